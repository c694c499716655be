// Package quote implements the Quote Processor (C11): the chain-id
// scoped quote/path-composition surface every external caller goes
// through, per spec.md §4.11.
package quote

import (
	"github.com/poolmirror/engine/address"
	"github.com/poolmirror/engine/multichain"
	"github.com/poolmirror/engine/pool"
	"github.com/poolmirror/engine/poolerr"
)

// Direction is re-exported from pool so callers of this package don't
// need a second import for it.
type Direction = pool.Direction

const (
	ExactIn  = pool.ExactIn
	ExactOut = pool.ExactOut
)

// Step is one hop's record in a composed path quote.
type Step struct {
	Pool      address.Address
	TokenIn   address.Address
	TokenOut  address.Address
	AmountIn  *address.U256
	AmountOut *address.U256
}

// PathResult is quote_path's {input, output, route[]}.
type PathResult struct {
	Input  *address.U256
	Output *address.U256
	Route  []Step
}

// Processor is the chain-id scoped quote surface.
type Processor struct {
	chains *multichain.Registry
}

// New constructs a Processor over a populated multichain registry.
func New(chains *multichain.Registry) *Processor {
	return &Processor{chains: chains}
}

func (p *Processor) pools(chainID uint64, poolAddr address.Address) (pool.Pool, error) {
	reg, ok := p.chains.Pools(chainID)
	if !ok {
		return nil, poolerr.ErrUnknownChain
	}
	pl, ok := reg.GetPool(poolAddr)
	if !ok {
		return nil, poolerr.ErrNotFound
	}
	return pl, nil
}

// QuoteExactIn returns the output for an exact input of tokenIn on a
// single pool.
func (p *Processor) QuoteExactIn(chainID uint64, poolAddr, tokenIn address.Address, amountIn *address.U256) (*address.U256, error) {
	pl, err := p.pools(chainID, poolAddr)
	if err != nil {
		return nil, err
	}
	return pl.QuoteExactIn(tokenIn, amountIn)
}

// QuoteExactInByTokenOut is QuoteExactIn where the caller names the
// output token instead of the input; tokenIn is resolved as the
// pool's other member.
func (p *Processor) QuoteExactInByTokenOut(chainID uint64, poolAddr, tokenOut address.Address, amountIn *address.U256) (*address.U256, error) {
	pl, err := p.pools(chainID, poolAddr)
	if err != nil {
		return nil, err
	}
	tokenIn, ok := pl.Other(tokenOut)
	if !ok {
		return nil, poolerr.ErrTokenNotInPool
	}
	return pl.QuoteExactIn(tokenIn, amountIn)
}

// QuoteExactOut returns the required input for an exact output of
// tokenOut on a single pool.
func (p *Processor) QuoteExactOut(chainID uint64, poolAddr, tokenOut address.Address, amountOut *address.U256) (*address.U256, error) {
	pl, err := p.pools(chainID, poolAddr)
	if err != nil {
		return nil, err
	}
	return pl.QuoteExactOut(tokenOut, amountOut)
}

// QuoteExactOutByTokenIn is QuoteExactOut where the caller names the
// input token instead of the output.
func (p *Processor) QuoteExactOutByTokenIn(chainID uint64, poolAddr, tokenIn address.Address, amountOut *address.U256) (*address.U256, error) {
	pl, err := p.pools(chainID, poolAddr)
	if err != nil {
		return nil, err
	}
	tokenOut, ok := pl.Other(tokenIn)
	if !ok {
		return nil, poolerr.ErrTokenNotInPool
	}
	return pl.QuoteExactOut(tokenOut, amountOut)
}

// QuotePath walks path in order for ExactIn and in reverse for
// ExactOut, carrying the current amount/token through each hop, per
// spec.md §4.11.
func (p *Processor) QuotePath(chainID uint64, path []address.Address, amount *address.U256, dir Direction, tokenIn, tokenOut address.Address) (*PathResult, error) {
	if len(path) == 0 {
		return nil, poolerr.ErrNoRoute
	}

	hops := make([]address.Address, len(path))
	copy(hops, path)
	start, end := tokenIn, tokenOut
	if dir == ExactOut {
		reverse(hops)
		start, end = tokenOut, tokenIn
	}

	current := amount
	currentToken := start
	route := make([]Step, 0, len(hops))

	for _, poolAddr := range hops {
		pl, err := p.pools(chainID, poolAddr)
		if err != nil {
			return nil, err
		}
		other, ok := pl.Other(currentToken)
		if !ok {
			return nil, poolerr.ErrTokenNotInPool
		}

		var step Step
		if dir == ExactIn {
			out, err := pl.QuoteExactIn(currentToken, current)
			if err != nil {
				return nil, err
			}
			step = Step{Pool: poolAddr, TokenIn: currentToken, TokenOut: other, AmountIn: current, AmountOut: out}
			current = out
		} else {
			in, err := pl.QuoteExactOut(currentToken, current)
			if err != nil {
				return nil, err
			}
			step = Step{Pool: poolAddr, TokenIn: other, TokenOut: currentToken, AmountIn: in, AmountOut: current}
			current = in
		}
		currentToken = other
		route = append(route, step)
	}

	if currentToken != end {
		return nil, poolerr.ErrPathMismatch
	}

	result := &PathResult{Route: route}
	if dir == ExactIn {
		result.Input, result.Output = amount, current
	} else {
		reverseSteps(route)
		result.Route = route
		result.Input, result.Output = current, amount
	}
	return result, nil
}

// BestQuotePath enumerates every path of length ≤ maxHops between
// tokenIn and tokenOut via the chain's registry and returns the best
// terminal amount: the maximum output for ExactIn, the minimum
// required input for ExactOut, per spec.md §4.11.
func (p *Processor) BestQuotePath(chainID uint64, tokenIn, tokenOut address.Address, amount *address.U256, dir Direction, maxHops int) (*address.U256, error) {
	reg, ok := p.chains.Pools(chainID)
	if !ok {
		return nil, poolerr.ErrUnknownChain
	}
	paths, err := reg.GetAllPathFromTokenToToken(tokenIn, tokenOut, maxHops)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, poolerr.ErrNoRoute
	}

	var best *address.U256
	for _, poolPath := range paths {
		addrs := make([]address.Address, len(poolPath))
		for i, pl := range poolPath {
			addrs[i] = pl.Address()
		}
		result, err := p.QuotePath(chainID, addrs, amount, dir, tokenIn, tokenOut)
		if err != nil {
			continue
		}
		candidate := result.Output
		if dir == ExactOut {
			candidate = result.Input
		}
		if best == nil {
			best = candidate
			continue
		}
		if dir == ExactIn && candidate.Cmp(best) > 0 {
			best = candidate
		}
		if dir == ExactOut && candidate.Cmp(best) < 0 {
			best = candidate
		}
	}
	if best == nil {
		return nil, poolerr.ErrNoRoute
	}
	return best, nil
}

func reverse(s []address.Address) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func reverseSteps(s []Step) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
