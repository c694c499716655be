// Package token implements the per-chain token registry (C2): a cache
// of on-chain (address -> symbol, name, decimals) that lazily fetches
// unseen addresses through a multicall aggregator contract.
package token

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/poolmirror/engine/address"
)

// Token is an immutable record of an ERC-20-shaped asset, per
// spec.md §3. Once registered it is never mutated.
type Token struct {
	Address  address.Address
	ChainID  uint64
	Symbol   string
	Name     string
	Decimals uint8
}

// ToRaw scales a human-decimal amount string by 10^Decimals, returning
// the on-chain (raw) integer amount.
func (t Token) ToRaw(amount string) (*address.U256, bool) {
	dec, ok := new(big.Float).SetString(amount)
	if !ok {
		return nil, false
	}
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(t.Decimals)), nil))
	raw, _ := new(big.Float).Mul(dec, scale).Int(nil)
	if raw.Sign() < 0 {
		return nil, false
	}
	u, overflow := uint256.FromBig(raw)
	if overflow {
		return nil, false
	}
	return u, true
}

// Fetcher performs the batched name/symbol/decimals multicall against a
// chain's aggregator contract. Implementations wrap the chain transport
// (C1); production code backs this with an ethclient-based multicaller,
// tests back it with a fake.
type Fetcher interface {
	FetchMetadata(ctx context.Context, addr address.Address) (symbol, name string, decimals uint8, err error)
}

// Registry is the per-chain token cache of C2. Zero value is not usable;
// construct with New.
type Registry struct {
	chainID uint64
	fetcher Fetcher
	log     log.Logger

	mu   sync.RWMutex
	byID map[address.Address]Token
}

// New builds a Registry for chainID backed by fetcher.
func New(chainID uint64, fetcher Fetcher, logger log.Logger) *Registry {
	if logger == nil {
		logger = log.Root()
	}
	return &Registry{
		chainID: chainID,
		fetcher: fetcher,
		log:     logger,
		byID:    make(map[address.Address]Token),
	}
}

// Get returns the cached token for addr without touching the network.
func (r *Registry) Get(addr address.Address) (Token, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[addr]
	return t, ok
}

// GetOrFetch returns the cached token for addr, fetching and inserting
// it on first reference. Concurrent misses for the same address are
// idempotent: every caller observes identical content, and the last
// writer to actually store the result wins without corrupting the map.
func (r *Registry) GetOrFetch(ctx context.Context, addr address.Address) (Token, error) {
	if t, ok := r.Get(addr); ok {
		return t, nil
	}

	symbol, name, decimals, err := r.fetcher.FetchMetadata(ctx, addr)
	if err != nil {
		return Token{}, err
	}
	t := Token{
		Address:  addr,
		ChainID:  r.chainID,
		Symbol:   symbol,
		Name:     name,
		Decimals: decimals,
	}

	r.mu.Lock()
	r.byID[addr] = t
	r.mu.Unlock()

	r.log.Debug("registered token", "chain", r.chainID, "address", addr, "symbol", symbol, "decimals", decimals)
	return t, nil
}

// All returns every registered token in an unspecified order.
func (r *Registry) All() []Token {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Token, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, t)
	}
	return out
}

// Len reports the number of registered tokens.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
