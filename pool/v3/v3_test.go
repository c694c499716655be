package v3

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolmirror/engine/address"
	"github.com/poolmirror/engine/poolerr"
)

func emptyPool() *Pool {
	t0 := address.Address{0x01}
	t1 := address.Address{0x02}
	return New(Config{
		Address:      address.Address{0xaa},
		Token0:       t0,
		Token1:       t1,
		FeePPM:       3000,
		TickSpacing:  60,
		Variant:      VariantUniswap,
		SqrtPriceX96: TickToSqrtPriceX96(0),
		CurrentTick:  0,
		Liquidity:    uint256.NewInt(0),
	})
}

// TestTickMathRoundTrip asserts exact (tolerance 0) round-tripping per
// spec.md §4.4/§8: TickToSqrtPriceX96(t) always falls on the tick t's
// own boundary, so SqrtPriceX96ToTick must return exactly t, not t±1.
func TestTickMathRoundTrip(t *testing.T) {
	for _, tick := range []int32{0, 1, -1, 60, -60, 887220, -887220, MaxTick, MinTick, MaxTick - 1, MinTick + 1} {
		sqrtPrice := TickToSqrtPriceX96(tick)
		got := SqrtPriceX96ToTick(sqrtPrice)
		assert.Equal(t, tick, got, "tick=%d sqrtPrice=%s got=%d", tick, sqrtPrice, got)
	}
}

// TestTickToSqrtPriceX96KnownValues pins TickToSqrtPriceX96 against
// the reference contract's published getSqrtRatioAtTick outputs,
// confirming the magic-constant ladder matches bit-exact rather than
// merely round-tripping.
func TestTickToSqrtPriceX96KnownValues(t *testing.T) {
	q96, _ := uint256.FromDecimal("79228162514264337593543950336")
	assert.Equal(t, q96, TickToSqrtPriceX96(0))

	minSqrtRatio := uint256.NewInt(4295128739)
	assert.Equal(t, minSqrtRatio, TickToSqrtPriceX96(MinTick))

	maxSqrtRatio, _ := uint256.FromDecimal("1461446703485210103287273052203988822378723970342")
	assert.Equal(t, maxSqrtRatio, TickToSqrtPriceX96(MaxTick))
}

func TestTickToSqrtPriceMonotonic(t *testing.T) {
	prev := TickToSqrtPriceX96(-1000)
	for _, tick := range []int32{-500, 0, 500, 1000, 5000} {
		cur := TickToSqrtPriceX96(tick)
		assert.True(t, cur.Cmp(prev) > 0)
		prev = cur
	}
}

// Scenario 3 of spec.md §8: empty pool, current tick 0; Mint(-60, 60,
// 1_000_000) then Burn(-60, 60, 1_000_000) returns the tick map to
// empty and pool liquidity to 0.
func TestMintBurnSymmetry(t *testing.T) {
	p := emptyPool()

	mintData := mintBurnPayload(-60, 60, 1_000_000)
	require.NoError(t, p.ApplyLog(address.Log{Topics: []address.Topic{TopicMint}, Data: mintData}))

	_, _, liq := p.Snapshot()
	assert.Equal(t, uint256.NewInt(1_000_000), liq)
	assert.Equal(t, 2, p.Ticks().Len())

	burnData := mintBurnPayload(-60, 60, 1_000_000)
	require.NoError(t, p.ApplyLog(address.Log{Topics: []address.Topic{TopicBurn}, Data: burnData}))

	_, _, liq = p.Snapshot()
	assert.True(t, liq.IsZero())
	assert.Equal(t, 0, p.Ticks().Len())
	assert.True(t, p.Ticks().NoZeroGross())
}

func TestBurnAbsentTickFails(t *testing.T) {
	p := emptyPool()
	burnData := mintBurnPayload(-60, 60, 1_000_000)
	err := p.ApplyLog(address.Log{Topics: []address.Topic{TopicBurn}, Data: burnData})
	assert.ErrorIs(t, err, poolerr.ErrTickInvariant)
}

// Scenario 4 of spec.md §8: Swap(Q=2^96, T=0, L=1_000_000) overwrites
// those three fields and leaves the tick map untouched.
func TestApplySwapOverwritesFields(t *testing.T) {
	p := emptyPool()
	mintData := mintBurnPayload(-60, 60, 1_000_000)
	require.NoError(t, p.ApplyLog(address.Log{Topics: []address.Topic{TopicMint}, Data: mintData}))
	ticksBefore := p.Ticks().Len()

	q96 := new(uint256.Int).Lsh(uint256.NewInt(1), 96)
	swapData := swapPayload(q96, uint256.NewInt(1_000_000), 0)
	require.NoError(t, p.ApplyLog(address.Log{Topics: []address.Topic{TopicSwap}, Data: swapData}))

	sqrtPrice, tick, liq := p.Snapshot()
	assert.True(t, sqrtPrice.Eq(q96))
	assert.Equal(t, int32(0), tick)
	assert.Equal(t, uint256.NewInt(1_000_000), liq)
	assert.Equal(t, ticksBefore, p.Ticks().Len())
}

func TestApplySwapRejectsZeroPrice(t *testing.T) {
	p := emptyPool()
	swapData := swapPayload(uint256.NewInt(0), uint256.NewInt(1), 0)
	err := p.ApplyLog(address.Log{Topics: []address.Topic{TopicSwap}, Data: swapData})
	assert.ErrorIs(t, err, poolerr.ErrTickInvariant)
}

func TestMintThenQuoteWithinRange(t *testing.T) {
	p := emptyPool()
	mintData := mintBurnPayload(-887220, 887220, 1_000_000_000_000)
	require.NoError(t, p.ApplyLog(address.Log{Topics: []address.Topic{TopicMint}, Data: mintData}))

	out, err := p.QuoteExactIn(p.Token0(), uint256.NewInt(1_000))
	require.NoError(t, err)
	assert.False(t, out.IsZero())

	in, err := p.QuoteExactOut(p.Token1(), out)
	require.NoError(t, err)
	assert.False(t, in.IsZero())
}

func TestLiquidityInvariantAfterMintBurn(t *testing.T) {
	p := emptyPool()
	require.NoError(t, p.ApplyLog(address.Log{Topics: []address.Topic{TopicMint}, Data: mintBurnPayload(-120, 120, 500)}))
	require.NoError(t, p.ApplyLog(address.Log{Topics: []address.Topic{TopicMint}, Data: mintBurnPayload(-60, 60, 300)}))

	_, tick, liq := p.Snapshot()
	sum := p.Ticks().LiquiditySum(tick)
	assert.True(t, liq.Eq(sum), "liquidity=%s sum=%s", liq, sum)

	require.NoError(t, p.ApplyLog(address.Log{Topics: []address.Topic{TopicBurn}, Data: mintBurnPayload(-60, 60, 300)}))

	_, tick, liq = p.Snapshot()
	sum = p.Ticks().LiquiditySum(tick)
	assert.True(t, liq.Eq(sum), "after burn: liquidity=%s sum=%s", liq, sum)
}

func mintBurnPayload(lower, upper int32, amount uint64) []byte {
	data := make([]byte, 96)
	copy(data[0:32], encodeInt32(lower))
	copy(data[32:64], encodeInt32(upper))
	amt := uint256.NewInt(amount).Bytes32()
	copy(data[64:96], amt[:])
	return data
}

func swapPayload(sqrtPriceX96, liquidity *uint256.Int, tick int32) []byte {
	data := make([]byte, 160)
	sp := sqrtPriceX96.Bytes32()
	copy(data[64:96], sp[:])
	liq := liquidity.Bytes32()
	copy(data[96:128], liq[:])
	copy(data[128:160], encodeInt32(tick))
	return data
}

func encodeInt32(v int32) []byte {
	var maxUint256 uint256.Int
	maxUint256.SetAllOne()
	if v >= 0 {
		b := uint256.NewInt(uint64(v)).Bytes32()
		return b[:]
	}
	diff := uint256.NewInt(uint64(-v))
	u := new(uint256.Int).Sub(&maxUint256, diff)
	u.AddUint64(u, 1)
	b := u.Bytes32()
	return b[:]
}
