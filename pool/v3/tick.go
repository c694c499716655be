package v3

import (
	"sort"

	"github.com/holiman/uint256"

	"github.com/poolmirror/engine/poolerr"
)

// Tick is a discrete price index with net/gross liquidity, per
// spec.md §3.
type Tick struct {
	Index          int32
	LiquidityNet   *signedInt // i128 in spec.md
	LiquidityGross *uint256.Int
}

// signedInt models liquidity_net, which spec.md §3 declares i128:
// uint256.Int cannot represent a sign directly, and a tick's net
// liquidity never needs to exceed the magnitude a uint128 can hold, so
// it is modeled as (magnitude *uint256.Int, negative bool) rather than
// pulling in a second big-integer type.
type signedInt struct {
	abs *uint256.Int
	neg bool
}

func newSignedLiquidity(v int64) *signedInt {
	if v < 0 {
		return &signedInt{abs: uint256.NewInt(uint64(-v)), neg: true}
	}
	return &signedInt{abs: uint256.NewInt(uint64(v)), neg: false}
}

func (b *signedInt) add(amount *uint256.Int, negAmount bool) *signedInt {
	if b == nil {
		b = &signedInt{abs: new(uint256.Int)}
	}
	if b.neg == negAmount {
		return &signedInt{abs: new(uint256.Int).Add(b.abs, amount), neg: b.neg}
	}
	if b.abs.Cmp(amount) >= 0 {
		return &signedInt{abs: new(uint256.Int).Sub(b.abs, amount), neg: b.neg}
	}
	return &signedInt{abs: new(uint256.Int).Sub(amount, b.abs), neg: negAmount}
}

func (b *signedInt) isZero() bool { return b == nil || b.abs.IsZero() }

// applyTo adds (or subtracts, if b is negative) b's magnitude
// to/from a liquidity accumulator, saturating at zero rather than
// underflowing — pool.liquidity is unsigned.
func (b *signedInt) applyTo(liquidity *uint256.Int) *uint256.Int {
	if b == nil || b.abs.IsZero() {
		return liquidity
	}
	if b.neg {
		if liquidity.Cmp(b.abs) < 0 {
			return new(uint256.Int)
		}
		return new(uint256.Int).Sub(liquidity, b.abs)
	}
	return new(uint256.Int).Add(liquidity, b.abs)
}

// TickMap is an ordered mapping from tick index to Tick, implementing
// spec.md §4.4/§9's "ordered map over i32 is a correct semantic
// equivalent [to the reference bitmap], simpler to implement".
type TickMap struct {
	byIndex map[int32]*Tick
	sorted  []int32 // kept sorted ascending; rebuilt lazily on mutation
	dirty   bool
}

func NewTickMap() *TickMap {
	return &TickMap{byIndex: make(map[int32]*Tick)}
}

func (m *TickMap) Get(index int32) (*Tick, bool) {
	t, ok := m.byIndex[index]
	return t, ok
}

func (m *TickMap) ensureSorted() {
	if !m.dirty {
		return
	}
	m.sorted = m.sorted[:0]
	for idx := range m.byIndex {
		m.sorted = append(m.sorted, idx)
	}
	sort.Slice(m.sorted, func(i, j int) bool { return m.sorted[i] < m.sorted[j] })
	m.dirty = false
}

// Upsert adds (net, gross) deltas to the tick at index, creating it if
// absent, and prunes it from the map if gross reaches zero, per
// spec.md §3's invariant that ticks with liquidity_gross==0 are absent.
func (m *TickMap) Upsert(index int32, netDelta *uint256.Int, netNegative bool, grossDelta *uint256.Int, grossNegative bool) *Tick {
	t, ok := m.byIndex[index]
	if !ok {
		t = &Tick{Index: index, LiquidityNet: &signedInt{abs: new(uint256.Int)}, LiquidityGross: new(uint256.Int)}
	}
	t.LiquidityNet = t.LiquidityNet.add(netDelta, netNegative)
	if grossNegative {
		if t.LiquidityGross.Cmp(grossDelta) < 0 {
			t.LiquidityGross = new(uint256.Int)
		} else {
			t.LiquidityGross = new(uint256.Int).Sub(t.LiquidityGross, grossDelta)
		}
	} else {
		t.LiquidityGross = new(uint256.Int).Add(t.LiquidityGross, grossDelta)
	}

	if t.LiquidityGross.IsZero() {
		delete(m.byIndex, index)
		m.dirty = true
		return nil
	}
	m.byIndex[index] = t
	m.dirty = true
	return t
}

// Require returns the existing tick at index, or ErrTickInvariant if
// absent — used by Burn, which spec.md §4.4 requires to target ticks
// that currently exist.
func (m *TickMap) Require(index int32) (*Tick, error) {
	t, ok := m.byIndex[index]
	if !ok {
		return nil, poolerr.ErrTickInvariant
	}
	return t, nil
}

// LiquiditySum returns the sum of LiquidityNet over every tick with
// Index <= currentTick, the invariant spec.md §3/§8 checks after
// Mint/Burn sequences.
func (m *TickMap) LiquiditySum(currentTick int32) *uint256.Int {
	sum := &signedInt{abs: new(uint256.Int)}
	for idx, t := range m.byIndex {
		if idx <= currentTick {
			sum = sum.add(t.LiquidityNet.abs, t.LiquidityNet.neg)
		}
	}
	if sum.neg {
		return new(uint256.Int)
	}
	return sum.abs
}

// NoZeroGross reports whether every tick in the map has non-zero gross
// liquidity — always true by construction (Upsert prunes zero-gross
// ticks), exposed for the spec.md §8 tick-map invariant test.
func (m *TickMap) NoZeroGross() bool {
	for _, t := range m.byIndex {
		if t.LiquidityGross.IsZero() {
			return false
		}
	}
	return true
}

func (m *TickMap) Len() int { return len(m.byIndex) }

// nextInitializedTickWithinOneWord returns the next initialized tick
// index relative to `tick`, searching toward -infinity if lte else
// toward +infinity, clamped to a 256*tickSpacing-wide window aligned to
// tickSpacing — preserving the reference bitmap's "within one word"
// contract (spec.md §4.4) over the ordered-map representation.
func (m *TickMap) nextInitializedTickWithinOneWord(tick int32, tickSpacing int32, lte bool) (next int32, initialized bool) {
	m.ensureSorted()
	compressed := floorDiv(tick, tickSpacing)

	if lte {
		wordBoundary := (compressed - mod(compressed, 256)) * tickSpacing
		for i := len(m.sorted) - 1; i >= 0; i-- {
			idx := m.sorted[i]
			if idx <= tick && idx >= wordBoundary {
				return idx, true
			}
			if idx < wordBoundary {
				break
			}
		}
		return wordBoundary, false
	}

	wordBoundary := (compressed + 1 - mod(compressed+1, 256) + 255) * tickSpacing
	for _, idx := range m.sorted {
		if idx > tick && idx <= wordBoundary {
			return idx, true
		}
		if idx > wordBoundary {
			break
		}
	}
	return wordBoundary, false
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func mod(a, b int32) int32 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
