// Package dedup implements the bounded FIFO event deduplicator (C7):
// every ingested log passes through Send, which drops anything whose
// (tx_hash, log_index) key was already seen and forwards the rest.
package dedup

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/poolmirror/engine/address"
	"github.com/poolmirror/engine/poolerr"
)

// DefaultCapacity bounds the number of keys retained before the
// oldest is evicted, matching the FIFO eviction spec.md §4.7 requires.
const DefaultCapacity = 100_000

// Deduplicator forwards each not-yet-seen log to Out, dropping
// duplicates by (tx_hash, log_index). The LRU cache is used purely as
// an ordered, capacity-bounded set: Has/Send never call Get, so the
// cache's own recency-promotion never reorders the FIFO eviction
// sequence — the oldest key inserted is always the first evicted.
type Deduplicator struct {
	seen *lru.Cache[address.EventKey, struct{}]
	Out  chan address.Log
}

// New constructs a deduplicator with the given capacity and output
// channel buffer size.
func New(capacity, outBuffer int) *Deduplicator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	cache, err := lru.New[address.EventKey, struct{}](capacity)
	if err != nil {
		panic("dedup: invalid capacity: " + err.Error())
	}
	return &Deduplicator{
		seen: cache,
		Out:  make(chan address.Log, outBuffer),
	}
}

// Send rejects l with ErrMissingKey if it carries no usable
// (tx_hash, log_index) key, silently drops it (returning ErrDuplicate)
// if already seen, and otherwise records the key and forwards l to
// Out.
func (d *Deduplicator) Send(l address.Log) error {
	key, ok := l.Key()
	if !ok {
		return poolerr.ErrMissingKey
	}
	if _, ok := d.seen.Peek(key); ok {
		return poolerr.ErrDuplicate
	}
	d.seen.Add(key, struct{}{})
	d.Out <- l
	return nil
}

// Has reports whether key has already been forwarded, without
// affecting eviction order.
func (d *Deduplicator) Has(key address.EventKey) bool {
	_, ok := d.seen.Peek(key)
	return ok
}

// Len returns the number of keys currently tracked.
func (d *Deduplicator) Len() int {
	return d.seen.Len()
}
