// Package multichain implements the Multichain Registry (C10):
// per-chain-id indexing of pool and token registries, with
// shared-read/exclusive-write access, grounded on
// original_source/src/models/pool/multichain_registry.rs and its
// token-registry counterpart.
package multichain

import (
	"sort"
	"sync"

	"github.com/poolmirror/engine/registry"
	"github.com/poolmirror/engine/token"
)

// chainEntry bundles one chain's pool and token registries.
type chainEntry struct {
	pools  *registry.Registry
	tokens *token.Registry
}

// Registry indexes a registry.Registry and a token.Registry per
// chain-id, per spec.md §4.10.
type Registry struct {
	mu     sync.RWMutex
	chains map[uint64]chainEntry
}

// New constructs an empty multichain registry.
func New() *Registry {
	return &Registry{chains: make(map[uint64]chainEntry)}
}

// AddChain registers the pool/token registries for chainID.
// Re-registering an existing chain-id replaces its entry.
func (r *Registry) AddChain(chainID uint64, pools *registry.Registry, tokens *token.Registry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chains[chainID] = chainEntry{pools: pools, tokens: tokens}
}

// Pools returns the pool registry for chainID, or false if the chain
// is not registered.
func (r *Registry) Pools(chainID uint64) (*registry.Registry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.chains[chainID]
	if !ok {
		return nil, false
	}
	return e.pools, true
}

// Tokens returns the token registry for chainID, or false if the
// chain is not registered.
func (r *Registry) Tokens(chainID uint64) (*token.Registry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.chains[chainID]
	if !ok {
		return nil, false
	}
	return e.tokens, true
}

// AllChainIDs returns every registered chain-id in ascending order, a
// stable order independent of map iteration, per spec.md §4.10.
func (r *Registry) AllChainIDs() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]uint64, 0, len(r.chains))
	for id := range r.chains {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
