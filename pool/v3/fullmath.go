package v3

import "github.com/holiman/uint256"

// mulDiv computes floor(x*y/d) using uint256's full 512-bit
// intermediate multiplication, matching the reference contract's
// FullMath.mulDiv (truncating division), per spec.md §4.4.
func mulDiv(x, y, d *uint256.Int) (*uint256.Int, bool) {
	return new(uint256.Int).MulDivOverflow(x, y, d)
}

// mulDivRoundingUp computes ceil(x*y/d), matching FullMath.mulDivRoundingUp.
// spec.md §4.4 requires divRoundingUp for input-amounts on exact-in and
// output-amounts on exact-out.
func mulDivRoundingUp(x, y, d *uint256.Int) (*uint256.Int, bool) {
	q, overflow := mulDiv(x, y, d)
	if overflow {
		return nil, true
	}
	rem := new(uint256.Int).MulMod(x, y, d)
	if !rem.IsZero() {
		q, overflow = new(uint256.Int).AddOverflow(q, uint256.NewInt(1))
		if overflow {
			return nil, true
		}
	}
	return q, false
}

// divRoundingUp computes ceil(x/d).
func divRoundingUp(x, d *uint256.Int) *uint256.Int {
	q, rem := new(uint256.Int).DivMod(x, d, new(uint256.Int))
	if !rem.IsZero() {
		q.AddUint64(q, 1)
	}
	return q
}
