// Package v3 implements the concentrated-liquidity pool model (C4):
// tick-tree state, the swap step-machine of spec.md §4.4, and the
// Uniswap/Pancake, Algebra, Algebra-two-sided-fee, and Ramses variant
// handling it describes.
package v3

import (
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/poolmirror/engine/address"
	"github.com/poolmirror/engine/pool"
	"github.com/poolmirror/engine/poolerr"
)

// Variant selects the fee/tick-traversal convention of a V3-family
// pool, per spec.md §4.4.
type Variant uint8

const (
	VariantUniswap Variant = iota
	VariantAlgebra
	VariantAlgebraTwoSide
	VariantRamses
)

// Event topics recognized by ApplyLog.
var (
	TopicSwap        = mustTopic("0xc42079f94a6350d7e6235f29174924f928cc2ac818eb64fed8004e115fbcca67")
	TopicMint        = mustTopic("0x7a53080ba414158be7ec69b987b5fb7d07dee101fe85488f0853ae16239d0bde")
	TopicBurn        = mustTopic("0x0c396cd989a39f4459b5fa1aed6a9a8dcdbc45908acfd67e028cd568da98982c")
	TopicAlgebraSwap = mustTopic("0xd51785ad8dadb0f7fdc496f9cac5dc7c633e5e3ce6c5f42d99b2850c77bfc2b4")
	TopicAlgebraBurn = mustTopic("0x09d3e3b71ab0e3d1a60296e71a8b7b7a5d2eaba82d0aa28e6e1ce3f34e0b23f3")
)

func mustTopic(s string) address.Topic {
	t, ok := address.ParseTopic(s)
	if !ok {
		panic("v3: invalid topic literal " + s)
	}
	return t
}

// Pool is the concentrated-liquidity model of spec.md §4.4.
type Pool struct {
	addr         address.Address
	token0       address.Address
	token1       address.Address
	feePPM       uint32 // Uniswap/Pancake/Algebra (single fee)
	feeZeroToOne uint32 // Algebra two-sided: fee for zeroForOne swaps
	feeOneToZero uint32 // Algebra two-sided: fee for oneForZero swaps
	tickSpacing  int32
	variant      Variant

	// ratioConversionFactor scales local quotes against an external
	// reference for Ramses pools, per spec.md §4.4. Expressed as a
	// multiplier over 1e10 (factor/1e10 is applied to the raw output).
	ratioConversionFactor *uint256.Int

	mu            sync.RWMutex
	sqrtPriceX96  *uint256.Int
	currentTick   int32
	liquidity     *uint256.Int
	ticks         *TickMap
	lastUpdated   time.Time
}

// Config carries the bootstrap-time, RPC-fetched state for a new V3
// pool.
type Config struct {
	Address               address.Address
	Token0                address.Address
	Token1                address.Address
	FeePPM                uint32
	FeeZeroToOne          uint32
	FeeOneToZero          uint32
	TickSpacing           int32
	Variant               Variant
	SqrtPriceX96          *uint256.Int
	CurrentTick           int32
	Liquidity             *uint256.Int
	Ticks                 *TickMap
	RatioConversionFactor *uint256.Int // Ramses only, see RatioFactorOrDefault
}

// New constructs a V3 pool from bootstrapped on-chain state.
func New(cfg Config) *Pool {
	ticks := cfg.Ticks
	if ticks == nil {
		ticks = NewTickMap()
	}
	p := &Pool{
		addr:                  cfg.Address,
		token0:                cfg.Token0,
		token1:                cfg.Token1,
		feePPM:                cfg.FeePPM,
		feeZeroToOne:          cfg.FeeZeroToOne,
		feeOneToZero:          cfg.FeeOneToZero,
		tickSpacing:           cfg.TickSpacing,
		variant:               cfg.Variant,
		ratioConversionFactor: cfg.RatioFactorOrDefault(),
		sqrtPriceX96:          cfg.SqrtPriceX96.Clone(),
		currentTick:           cfg.CurrentTick,
		liquidity:             cfg.Liquidity.Clone(),
		ticks:                 ticks,
		lastUpdated:           time.Now(),
	}
	return p
}

// ratioFactorDenominator is the fixed-point base Ramses conversion
// factors are expressed in, per spec.md §4.4.
const ratioFactorDenominator = 10_000_000_000

// RatioFactorOrDefault returns the configured Ramses factor, or the
// identity factor (1e10) when unset/non-Ramses.
func (c Config) RatioFactorOrDefault() *uint256.Int {
	if c.RatioConversionFactor != nil {
		return c.RatioConversionFactor
	}
	return uint256.NewInt(ratioFactorDenominator)
}

func (p *Pool) Address() address.Address { return p.addr }
func (p *Pool) Token0() address.Address  { return p.token0 }
func (p *Pool) Token1() address.Address  { return p.token1 }
func (p *Pool) Type() pool.Type          { return pool.Type{Kind: pool.KindV3} }

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

// Snapshot returns a read-only copy of the pool's mutable fields, for
// tests and diagnostics.
func (p *Pool) Snapshot() (sqrtPriceX96 *uint256.Int, tick int32, liquidity *uint256.Int) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sqrtPriceX96.Clone(), p.currentTick, p.liquidity.Clone()
}

func (p *Pool) Ticks() *TickMap {
	return p.ticks
}

func (p *Pool) feeFor(zeroForOne bool) uint32 {
	if p.variant == VariantAlgebraTwoSide {
		if zeroForOne {
			return p.feeZeroToOne
		}
		return p.feeOneToZero
	}
	return p.feePPM
}

// QuoteExactIn simulates a swap of amountIn of tokenIn and returns the
// resulting output, per spec.md §4.4.
func (p *Pool) QuoteExactIn(tokenIn address.Address, amountIn *address.U256) (*address.U256, error) {
	zeroForOne, err := p.directionFor(tokenIn)
	if err != nil {
		return nil, err
	}
	if address.Zero(amountIn) {
		return nil, poolerr.ErrBadInput
	}
	out, err := p.simulate(zeroForOne, amountIn, true)
	if err != nil {
		return nil, err
	}
	return p.applyRamsesFactor(out), nil
}

// QuoteExactOut simulates a swap producing exactly amountOut of
// tokenOut and returns the required input.
func (p *Pool) QuoteExactOut(tokenOut address.Address, amountOut *address.U256) (*address.U256, error) {
	// zeroForOne is the direction token0->token1; requesting an exact
	// amount of tokenOut means the swap direction is "the other token
	// is being paid in", i.e. zeroForOne iff tokenOut == token1.
	var zeroForOne bool
	switch tokenOut {
	case p.token1:
		zeroForOne = true
	case p.token0:
		zeroForOne = false
	default:
		return nil, poolerr.ErrTokenNotInPool
	}
	if address.Zero(amountOut) {
		return nil, poolerr.ErrBadInput
	}
	in, err := p.simulate(zeroForOne, amountOut, false)
	if err != nil {
		return nil, err
	}
	return p.applyRamsesFactor(in), nil
}

func (p *Pool) directionFor(tokenIn address.Address) (zeroForOne bool, err error) {
	switch tokenIn {
	case p.token0:
		return true, nil
	case p.token1:
		return false, nil
	default:
		return false, poolerr.ErrTokenNotInPool
	}
}

func (p *Pool) applyRamsesFactor(amount *uint256.Int) *uint256.Int {
	if p.variant != VariantRamses {
		return amount
	}
	scaled, _ := mulDiv(amount, p.ratioConversionFactor, uint256.NewInt(ratioFactorDenominator))
	return scaled
}

// priceLimits bound how far a simulated swap may move price, matching
// the reference contract's default (no explicit limit) of sweeping to
// the minimum/maximum representable sqrt price for the direction.
var (
	minSqrtPriceX96 = TickToSqrtPriceX96(MinTick)
	maxSqrtPriceX96 = TickToSqrtPriceX96(MaxTick)
)

// simulate runs the swap step-machine of spec.md §4.4 to completion and
// returns the calculated amount (output for exact-in, required input
// for exact-out).
func (p *Pool) simulate(zeroForOne bool, amountSpecified *uint256.Int, exactIn bool) (*uint256.Int, error) {
	p.mu.RLock()
	sqrtPrice := p.sqrtPriceX96.Clone()
	tick := p.currentTick
	liquidity := p.liquidity.Clone()
	tickSpacing := p.tickSpacing
	p.mu.RUnlock()

	if sqrtPrice.IsZero() {
		return nil, poolerr.ErrPoolInvariant
	}

	priceLimit := maxSqrtPriceX96
	if zeroForOne {
		priceLimit = minSqrtPriceX96
	}

	amountRemaining := amountSpecified.Clone()
	amountCalculated := new(uint256.Int)

	const maxIterations = 512
	for i := 0; i < maxIterations && !amountRemaining.IsZero() && !sqrtPrice.Eq(priceLimit); i++ {
		nextTick, initialized := p.ticks.nextInitializedTickWithinOneWord(tick, tickSpacing, zeroForOne)
		if nextTick < MinTick {
			nextTick = MinTick
		}
		if nextTick > MaxTick {
			nextTick = MaxTick
		}

		sqrtPriceTarget := TickToSqrtPriceX96(nextTick)
		sqrtPriceTarget = clampToLimit(sqrtPriceTarget, priceLimit, zeroForOne)

		step := computeSwapStep(sqrtPrice, sqrtPriceTarget, liquidity, amountRemaining, exactIn, p.feeFor(zeroForOne))

		if exactIn {
			spent, overflow := new(uint256.Int).AddOverflow(step.AmountIn, step.FeeAmount)
			if overflow || spent.Cmp(amountRemaining) > 0 {
				spent = amountRemaining
			}
			amountRemaining = new(uint256.Int).Sub(amountRemaining, spent)
			amountCalculated = new(uint256.Int).Add(amountCalculated, step.AmountOut)
		} else {
			if step.AmountOut.Cmp(amountRemaining) > 0 {
				amountRemaining = new(uint256.Int)
			} else {
				amountRemaining = new(uint256.Int).Sub(amountRemaining, step.AmountOut)
			}
			paid, _ := new(uint256.Int).AddOverflow(step.AmountIn, step.FeeAmount)
			amountCalculated = new(uint256.Int).Add(amountCalculated, paid)
		}

		if step.SqrtPriceNext.Eq(sqrtPriceTarget) {
			if initialized {
				if t, ok := p.ticks.Get(nextTick); ok {
					netAmount := t.LiquidityNet.abs
					netNeg := t.LiquidityNet.neg
					if zeroForOne {
						netNeg = !netNeg
					}
					if netNeg {
						if liquidity.Cmp(netAmount) < 0 {
							liquidity = new(uint256.Int)
						} else {
							liquidity = new(uint256.Int).Sub(liquidity, netAmount)
						}
					} else {
						liquidity = new(uint256.Int).Add(liquidity, netAmount)
					}
				}
			}
			if zeroForOne {
				tick = nextTick - 1
			} else {
				tick = nextTick
			}
		} else {
			tick = SqrtPriceX96ToTick(step.SqrtPriceNext)
		}
		sqrtPrice = step.SqrtPriceNext
	}

	if exactIn {
		return amountCalculated, nil
	}
	return amountCalculated, nil
}

func clampToLimit(target, limit *uint256.Int, zeroForOne bool) *uint256.Int {
	if zeroForOne {
		if target.Cmp(limit) < 0 {
			return limit
		}
	} else {
		if target.Cmp(limit) > 0 {
			return limit
		}
	}
	return target
}

// ApplyLog applies a decoded Swap/Mint/Burn event, per spec.md §4.4.
// Unknown topics are silent no-ops.
func (p *Pool) ApplyLog(l address.Log) error {
	switch l.Topic0() {
	case TopicSwap, TopicAlgebraSwap:
		return p.applySwap(l)
	case TopicMint:
		return p.applyMint(l)
	case TopicBurn, TopicAlgebraBurn:
		return p.applyBurn(l)
	default:
		return nil
	}
}

func (p *Pool) applySwap(l address.Log) error {
	sqrtPriceX96, tick, liquidity, err := decodeSwap(l.Data)
	if err != nil {
		return err
	}
	if sqrtPriceX96.IsZero() {
		return poolerr.ErrTickInvariant
	}
	if tick < MinTick || tick > MaxTick {
		return poolerr.ErrTickInvariant
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sqrtPriceX96 = sqrtPriceX96
	p.currentTick = tick
	p.liquidity = liquidity
	p.lastUpdated = time.Now()
	return nil
}

func (p *Pool) applyMint(l address.Log) error {
	lower, upper, amount, err := decodeMintBurn(l.Data)
	if err != nil {
		return err
	}
	if lower >= upper {
		return poolerr.ErrTickInvariant
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ticks.Upsert(lower, amount, false, amount, false)
	p.ticks.Upsert(upper, amount, true, amount, false)

	if p.currentTick >= lower && p.currentTick < upper {
		p.liquidity = new(uint256.Int).Add(p.liquidity, amount)
	}
	p.lastUpdated = time.Now()
	return nil
}

func (p *Pool) applyBurn(l address.Log) error {
	lower, upper, amount, err := decodeMintBurn(l.Data)
	if err != nil {
		return err
	}
	if lower >= upper {
		return poolerr.ErrTickInvariant
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, err := p.ticks.Require(lower); err != nil {
		return err
	}
	if _, err := p.ticks.Require(upper); err != nil {
		return err
	}

	p.ticks.Upsert(lower, amount, true, amount, true)
	p.ticks.Upsert(upper, amount, false, amount, true)

	if p.currentTick >= lower && p.currentTick < upper {
		if p.liquidity.Cmp(amount) < 0 {
			p.liquidity = new(uint256.Int)
		} else {
			p.liquidity = new(uint256.Int).Sub(p.liquidity, amount)
		}
	}
	p.lastUpdated = time.Now()
	return nil
}

var _ pool.Pool = (*Pool)(nil)
