// Package v2 implements the constant-product pool model (C3):
// reserve-based quoting with fee-in-ppm, and Sync-driven state updates.
// The swap math mirrors the on-chain UniswapV2Pair reference bit for
// bit, grounded on the reserve arithmetic used throughout
// luxfi-evm/core and the fee-fork table pattern common to the pack's
// DEX-adjacent repos.
package v2

import (
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/poolmirror/engine/address"
	"github.com/poolmirror/engine/pool"
	"github.com/poolmirror/engine/poolerr"
)

// Event topics recognized by ApplyLog, both Sync wire encodings and the
// (state-irrelevant) Swap topic named in spec.md §4.3.
var (
	TopicSyncReserve112 = mustTopic("0x1c411e9a96e071241c2f21f7726b17ae89e3cab4c78be50e062b03a9fffbbad1")
	TopicSync256        = mustTopic("0xcf2aa50876cdfbb541206f89af0ee78d44a2abf8d328e37fa4917f982149848a")
	TopicSwap           = mustTopic("0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822")
)

func mustTopic(s string) address.Topic {
	t, ok := address.ParseTopic(s)
	if !ok {
		// programmer error: malformed literal topic constant
		panic("v2: invalid topic literal " + s)
	}
	return t
}

// Pool is the constant-product model of spec.md §4.3.
type Pool struct {
	addr        address.Address
	token0      address.Address
	token1      address.Address
	feePPM      uint32
	lastUpdated time.Time

	mu       sync.RWMutex
	reserve0 *address.U256
	reserve1 *address.U256
}

// New constructs a V2 pool. Initial reserves are fetched at bootstrap
// via RPC and passed in here; fee is resolved by the factory-fork
// table described in spec.md §4.3 before calling New.
func New(addr, token0, token1 address.Address, feePPM uint32, reserve0, reserve1 *address.U256) *Pool {
	return &Pool{
		addr:        addr,
		token0:      token0,
		token1:      token1,
		feePPM:      feePPM,
		reserve0:    reserve0.Clone(),
		reserve1:    reserve1.Clone(),
		lastUpdated: time.Now(),
	}
}

func (p *Pool) Address() address.Address { return p.addr }
func (p *Pool) Type() pool.Type          { return pool.Type{Kind: pool.KindV2} }
func (p *Pool) Token0() address.Address  { return p.token0 }
func (p *Pool) Token1() address.Address  { return p.token1 }
func (p *Pool) LastUpdated() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastUpdated
}

func (p *Pool) Other(tok address.Address) (address.Address, bool) {
	switch tok {
	case p.token0:
		return p.token1, true
	case p.token1:
		return p.token0, true
	default:
		return address.Address{}, false
	}
}

// Reserves returns a snapshot of the current reserves.
func (p *Pool) Reserves() (r0, r1 *address.U256) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reserve0.Clone(), p.reserve1.Clone()
}

// FeePPM returns the pool's fee in parts-per-million.
func (p *Pool) FeePPM() uint32 { return p.feePPM }

var denom = uint256.NewInt(pool.Denominator)

// QuoteExactIn implements spec.md §4.3's exact-in formula:
//
//	aInF = aIn * (D - f)
//	out  = (aInF * reserveOut) / (reserveIn * D + aInF)
func (p *Pool) QuoteExactIn(tokenIn address.Address, amountIn *address.U256) (*address.U256, error) {
	if address.Zero(amountIn) {
		return nil, poolerr.ErrBadInput
	}
	reserveIn, reserveOut, err := p.reservesFor(tokenIn)
	if err != nil {
		return nil, err
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, poolerr.ErrPoolInvariant
	}

	feeFactor := new(uint256.Int).SetUint64(uint64(pool.Denominator - p.feePPM))
	aInF, overflow := new(uint256.Int).MulOverflow(amountIn, feeFactor)
	if overflow {
		return nil, poolerr.ErrOverflow
	}

	numerator, overflow := new(uint256.Int).MulOverflow(aInF, reserveOut)
	if overflow {
		return nil, poolerr.ErrOverflow
	}
	scaledReserveIn, overflow := new(uint256.Int).MulOverflow(reserveIn, denom)
	if overflow {
		return nil, poolerr.ErrOverflow
	}
	denominator, overflow := new(uint256.Int).AddOverflow(scaledReserveIn, aInF)
	if overflow {
		return nil, poolerr.ErrOverflow
	}
	if denominator.IsZero() {
		return nil, poolerr.ErrPoolInvariant
	}

	out := new(uint256.Int).Div(numerator, denominator)
	if out.Cmp(reserveOut) >= 0 {
		return nil, poolerr.ErrPoolInvariant
	}
	return out, nil
}

// QuoteExactOut implements spec.md §4.3's exact-out formula, rounding
// the required input up by one to guarantee the caller never receives
// less than amountOut on-chain:
//
//	in = (reserveIn * aOut * D) / ((reserveOut - aOut) * (D - f)) + 1
func (p *Pool) QuoteExactOut(tokenOut address.Address, amountOut *address.U256) (*address.U256, error) {
	if address.Zero(amountOut) {
		return nil, poolerr.ErrBadInput
	}
	reserveOut, reserveIn, err := p.reservesFor(tokenOut)
	if err != nil {
		return nil, err
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, poolerr.ErrPoolInvariant
	}

	numerator, overflow := new(uint256.Int).MulOverflow(reserveIn, amountOut)
	if overflow {
		return nil, poolerr.ErrOverflow
	}
	numerator, overflow = numerator.MulOverflow(numerator, denom)
	if overflow {
		return nil, poolerr.ErrOverflow
	}

	remaining := new(uint256.Int).Sub(reserveOut, amountOut)
	feeFactor := new(uint256.Int).SetUint64(uint64(pool.Denominator - p.feePPM))
	denominator, overflow := new(uint256.Int).MulOverflow(remaining, feeFactor)
	if overflow {
		return nil, poolerr.ErrOverflow
	}
	if denominator.IsZero() {
		return nil, poolerr.ErrPoolInvariant
	}

	in := new(uint256.Int).Div(numerator, denominator)
	in, overflow = in.AddOverflow(in, uint256.NewInt(1))
	if overflow {
		return nil, poolerr.ErrOverflow
	}
	return in, nil
}

// reservesFor returns (reserveOf(tok), reserveOf(other)) or
// ErrTokenNotInPool.
func (p *Pool) reservesFor(tok address.Address) (*address.U256, *address.U256, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	switch tok {
	case p.token0:
		return p.reserve0.Clone(), p.reserve1.Clone(), nil
	case p.token1:
		return p.reserve1.Clone(), p.reserve0.Clone(), nil
	default:
		return nil, nil, poolerr.ErrTokenNotInPool
	}
}

// ApplyLog applies Sync(reserve0, reserve1) verbatim; Swap and unknown
// topics are no-ops, per spec.md §4.3. Both the 112-bit packed and the
// 256-bit wire encodings of Sync are recognized.
func (p *Pool) ApplyLog(l address.Log) error {
	switch l.Topic0() {
	case TopicSyncReserve112:
		r0, r1, err := decodeSync112(l.Data)
		if err != nil {
			return err
		}
		p.setReserves(r0, r1)
		return nil
	case TopicSync256:
		r0, r1, err := decodeSync256(l.Data)
		if err != nil {
			return err
		}
		p.setReserves(r0, r1)
		return nil
	case TopicSwap:
		// Sync carries the authoritative post-swap reserves; Swap
		// itself changes no state.
		return nil
	default:
		return nil
	}
}

func (p *Pool) setReserves(r0, r1 *address.U256) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reserve0 = r0
	p.reserve1 = r1
	p.lastUpdated = time.Now()
}

// decodeSync112 decodes the canonical UniswapV2 Sync payload: two
// right-aligned 112-bit reserves packed into a single 32-byte word
// each (as emitted: reserve0 in bytes[0:32], reserve1 in bytes[32:64],
// both well within 112 bits but wire-padded to 256).
func decodeSync112(data []byte) (*address.U256, *address.U256, error) {
	if len(data) < 64 {
		return nil, nil, poolerr.ErrDecode
	}
	r0 := new(uint256.Int).SetBytes(data[0:32])
	r1 := new(uint256.Int).SetBytes(data[32:64])
	return r0, r1, nil
}

// decodeSync256 decodes a fork's 256-bit Sync variant, wire-identical
// in layout to the 112-bit form but without the reserve value being
// bounded to 112 bits (some forks, e.g. Solidly forks, widen reserves).
func decodeSync256(data []byte) (*address.U256, *address.U256, error) {
	return decodeSync112(data)
}

var _ pool.Pool = (*Pool)(nil)
