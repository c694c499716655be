package v3

import (
	"github.com/holiman/uint256"

	"github.com/poolmirror/engine/poolerr"
)

// decodeSwap decodes the canonical Uniswap-V3-family Swap payload:
// amount0 (32B), amount1 (32B), sqrtPriceX96 (32B), liquidity (32B),
// tick (32B, signed two's-complement). Only the last three fields are
// state-relevant per spec.md §4.4; amount0/amount1 are skipped.
func decodeSwap(data []byte) (sqrtPriceX96 *uint256.Int, tick int32, liquidity *uint256.Int, err error) {
	if len(data) < 160 {
		return nil, 0, nil, poolerr.ErrDecode
	}
	sqrtPriceX96 = new(uint256.Int).SetBytes(data[64:96])
	liquidity = new(uint256.Int).SetBytes(data[96:128])
	tick = decodeInt32(data[128:160])
	return sqrtPriceX96, tick, liquidity, nil
}

// decodeMintBurn decodes the canonical Mint/Burn payload's tickLower,
// tickUpper, and amount fields. The reference ABI also carries an
// `owner` topic (indexed) and, for Mint, a `sender` topic — neither is
// needed for state application.
func decodeMintBurn(data []byte) (tickLower, tickUpper int32, amount *uint256.Int, err error) {
	if len(data) < 96 {
		return 0, 0, nil, poolerr.ErrDecode
	}
	tickLower = decodeInt32(data[0:32])
	tickUpper = decodeInt32(data[32:64])
	amount = new(uint256.Int).SetBytes(data[64:96])
	return tickLower, tickUpper, amount, nil
}

// decodeInt32 interprets a 32-byte big-endian two's-complement word as
// a signed int32, the ABI encoding Solidity uses for `int24`/`int32`
// event parameters (sign-extended to the full word).
func decodeInt32(word []byte) int32 {
	u := new(uint256.Int).SetBytes(word)
	// Two's complement: if the top bit of the 256-bit word is set, the
	// value is negative; recover it as -(2^256 - u), computed without
	// overflow as (maxUint256 - u) + 1.
	var maxUint256 uint256.Int
	maxUint256.SetAllOne()
	half := new(uint256.Int).Rsh(&maxUint256, 1)
	half.AddUint64(half, 1) // 2^255
	if u.Cmp(half) >= 0 {
		diff := new(uint256.Int).Sub(&maxUint256, u)
		diff.AddUint64(diff, 1)
		return -int32(diff.Uint64())
	}
	return int32(u.Uint64())
}
