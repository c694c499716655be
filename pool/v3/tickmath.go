package v3

import (
	"github.com/holiman/uint256"
)

// MinTick and MaxTick bound the usable tick range, per spec.md §3/§4.4.
const (
	MinTick = -887272
	MaxTick = 887272
)

func mustFromHex(s string) *uint256.Int {
	u, err := uint256.FromHex(s)
	if err != nil {
		panic(err)
	}
	return u
}

// maxUint256 is type(uint256).max, used to invert the Q128.128 ratio
// for positive ticks below.
var maxUint256 = mustFromHex("0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")

// ratioConstants are the reference contract's Q128.128 magic constants
// for getSqrtRatioAtTick, one per bit of |tick|. ratioConstants[0] is
// the starting ratio itself (used when bit 0 of |tick| is set);
// ratioConstants[i] for i>=1 is applied as (ratio * c) >> 128 when bit
// i of |tick| is set. spec.md §4.4/§8 require the tick<->sqrtPrice
// conversion to match the reference bit-exact (tolerance 0), which
// this ladder — ported from the same magic-constant algorithm the
// reference uses, rather than the float approximation this package
// previously shipped — now satisfies.
var ratioConstants = [20]*uint256.Int{
	mustFromHex("0xfffcb933bd6fad37aa2d162d1a594001"),
	mustFromHex("0xfff97272373d413259a46990580e213a"),
	mustFromHex("0xfff2e50f5f656932ef12357cf3c7fdcc"),
	mustFromHex("0xffe5caca7e10e4e61c3624eaa0941cd0"),
	mustFromHex("0xffcb9843d60f6159c9db58835c926644"),
	mustFromHex("0xff973b41fa98c081472e6896dfb254c0"),
	mustFromHex("0xff2ea16466c96a3843ec78b326b52861"),
	mustFromHex("0xfe5dee046a99a2a811c461f1969c3053"),
	mustFromHex("0xfcbe86c7900a88aedcffc83b479aa3a4"),
	mustFromHex("0xf987a7253ac413176f2b074cf7815e54"),
	mustFromHex("0xf3392b0822b70005940c7a398e4b70f3"),
	mustFromHex("0xe7159475a2c29b7443b29c7fa6e889d9"),
	mustFromHex("0xd097f3bdfd2022b8845ad8f792aa5825"),
	mustFromHex("0xa9f746462d870fdf8a65dc1f90e061e5"),
	mustFromHex("0x70d869a156d2a1b890bb3df62baf32f7"),
	mustFromHex("0x31be135f97d08fd981231505542fcfa6"),
	mustFromHex("0x9aa508b5b7a84e1c677de54f3e99bc9"),
	mustFromHex("0x5d6af8dedb81196699c329225ee604"),
	mustFromHex("0x2216e584f5fa1ea926041bedfe98"),
	mustFromHex("0x48a170391f7dc42444e8fa2"),
}

// TickToSqrtPriceX96 computes the reference contract's
// getSqrtRatioAtTick(tick): a Q64.96 sqrt price, exact to the bit.
func TickToSqrtPriceX96(tick int32) *uint256.Int {
	absTick := tick
	if absTick < 0 {
		absTick = -absTick
	}

	var ratio *uint256.Int
	if absTick&0x1 != 0 {
		ratio = new(uint256.Int).Set(ratioConstants[0])
	} else {
		ratio = new(uint256.Int).Lsh(uint256.NewInt(1), 128)
	}
	for i := 1; i < len(ratioConstants); i++ {
		if absTick&(1<<uint(i)) != 0 {
			ratio = new(uint256.Int).Rsh(new(uint256.Int).Mul(ratio, ratioConstants[i]), 128)
		}
	}

	if tick > 0 {
		ratio = new(uint256.Int).Div(maxUint256, ratio)
	}

	// Q128.128 -> Q128.96, rounding up so SqrtPriceX96ToTick's search
	// below stays consistent for prices on an exact tick boundary.
	shifted := new(uint256.Int).Rsh(ratio, 32)
	rem := new(uint256.Int).And(ratio, uint256.NewInt((1<<32)-1))
	if !rem.IsZero() {
		shifted = new(uint256.Int).Add(shifted, uint256.NewInt(1))
	}
	return shifted
}

// SqrtPriceX96ToTick returns the greatest tick t with
// TickToSqrtPriceX96(t) <= sqrtPriceX96, matching the reference
// contract's getTickAtSqrtRatio. Rather than porting that function's
// bit-length/log2 assembly ladder, this binary-searches over the exact
// forward function above — TickToSqrtPriceX96 is strictly monotonic
// and bit-exact, so the search is bit-exact against the reference by
// construction, and this engine runs off-chain with no gas cost to the
// extra multiplications a production contract would need to avoid.
func SqrtPriceX96ToTick(sqrtPriceX96 *uint256.Int) int32 {
	lo, hi := int32(MinTick), int32(MaxTick)
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		if TickToSqrtPriceX96(mid).Cmp(sqrtPriceX96) <= 0 {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}
