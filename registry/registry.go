// Package registry implements the per-chain Pool Registry (C6): the
// address/type indices over live pool.Pool instances, and the bounded
// depth-first path search quote.Path composition is built on.
package registry

import (
	"bytes"
	"sort"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/poolmirror/engine/address"
	"github.com/poolmirror/engine/pool"
	"github.com/poolmirror/engine/poolerr"
)

// Registry indexes one chain's pools by address and by type, tracks
// the event topics it subscribes to, and records ingestion progress,
// per spec.md §4.6.
type Registry struct {
	mu                 sync.RWMutex
	byAddress          map[address.Address]pool.Pool
	byType             map[pool.Type][]address.Address
	lastProcessedBlock uint64
	topics             []address.Topic
	profitableTopics   mapset.Set[address.Topic]
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{
		byAddress:        make(map[address.Address]pool.Pool),
		byType:           make(map[pool.Type][]address.Address),
		profitableTopics: mapset.NewSet[address.Topic](),
	}
}

// AddPool indexes p by address and by type. Re-adding an address
// already present replaces its entry in byAddress but leaves any
// stale byType slice entry in place until the next RemovePool/rebuild
// — callers are expected to RemovePool before re-adding under a new
// type, matching the reference implementation's entry-or-insert.
func (r *Registry) AddPool(p pool.Pool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	addr := p.Address()
	r.byAddress[addr] = p
	t := p.Type()
	r.byType[t] = append(r.byType[t], addr)
}

// RemovePool removes a pool by address, returning it if present.
func (r *Registry) RemovePool(addr address.Address) (pool.Pool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byAddress[addr]
	if !ok {
		return nil, false
	}
	delete(r.byAddress, addr)

	t := p.Type()
	addrs := r.byType[t]
	for i, a := range addrs {
		if a == addr {
			r.byType[t] = append(addrs[:i], addrs[i+1:]...)
			break
		}
	}
	if len(r.byType[t]) == 0 {
		delete(r.byType, t)
	}
	return p, true
}

// GetPool looks up a pool by address.
func (r *Registry) GetPool(addr address.Address) (pool.Pool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byAddress[addr]
	return p, ok
}

// AllAddresses returns every indexed pool address, in map iteration
// order (callers needing determinism should sort the result).
func (r *Registry) AllAddresses() []address.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]address.Address, 0, len(r.byAddress))
	for a := range r.byAddress {
		out = append(out, a)
	}
	return out
}

// AddressesByType returns the addresses indexed under t.
func (r *Registry) AddressesByType(t pool.Type) []address.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	addrs := r.byType[t]
	out := make([]address.Address, len(addrs))
	copy(out, addrs)
	return out
}

// Topics returns the event topics this registry subscribes to.
func (r *Registry) Topics() []address.Topic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]address.Topic, len(r.topics))
	copy(out, r.topics)
	return out
}

// AddTopics appends to the subscribed topic set.
func (r *Registry) AddTopics(topics ...address.Topic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topics...)
}

// ProfitableTopics returns the subset of topics considered
// profit-signaling (spec.md's profit-token supplement).
func (r *Registry) ProfitableTopics() mapset.Set[address.Topic] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.profitableTopics.Clone()
}

// AddProfitableTopics marks topics as profit-signaling.
func (r *Registry) AddProfitableTopics(topics ...address.Topic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range topics {
		r.profitableTopics.Add(t)
	}
}

// LastProcessedBlock returns the ingestion cursor.
func (r *Registry) LastProcessedBlock() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastProcessedBlock
}

// SetLastProcessedBlock advances the ingestion cursor.
func (r *Registry) SetLastProcessedBlock(n uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastProcessedBlock = n
}

// pathEdge is one hop in a candidate path: the pool traversed and the
// token it outputs, feeding the next hop's input.
type pathEdge struct {
	Pool     pool.Pool
	TokenOut address.Address
}

// GetAllPathFromTokenToToken enumerates every simple pool-sequence of
// length ≤ maxHops connecting tIn to tOut, per spec.md §4.6: a bounded
// depth-first walk over the undirected graph induced by shared tokens,
// with pools visited in stable address order (ascending) at each step
// and no pool repeated within a path.
func (r *Registry) GetAllPathFromTokenToToken(tIn, tOut address.Address, maxHops int) ([][]pool.Pool, error) {
	if maxHops <= 0 {
		return nil, poolerr.ErrBadInput
	}
	r.mu.RLock()
	addrs := make([]address.Address, 0, len(r.byAddress))
	pools := make(map[address.Address]pool.Pool, len(r.byAddress))
	for a, p := range r.byAddress {
		addrs = append(addrs, a)
		pools[a] = p
	}
	r.mu.RUnlock()

	sort.Slice(addrs, func(i, j int) bool { return bytes.Compare(addrs[i][:], addrs[j][:]) < 0 })

	var results [][]pool.Pool
	visited := make(map[address.Address]bool, maxHops)
	var walk func(current address.Address, depth int, path []pool.Pool)
	walk = func(current address.Address, depth int, path []pool.Pool) {
		if current == tOut && depth > 0 {
			cp := make([]pool.Pool, len(path))
			copy(cp, path)
			results = append(results, cp)
		}
		if depth >= maxHops {
			return
		}
		for _, a := range addrs {
			if visited[a] {
				continue
			}
			p := pools[a]
			other, ok := p.Other(current)
			if !ok {
				continue
			}
			visited[a] = true
			walk(other, depth+1, append(path, p))
			visited[a] = false
		}
	}
	walk(tIn, 0, nil)
	return results, nil
}
