package v3

import "github.com/holiman/uint256"

var (
	q96U     = mustShiftLeft(1, 96)
	feeDenom = uint256.NewInt(1_000_000)
)

func mustShiftLeft(x uint64, n uint) *uint256.Int {
	return new(uint256.Int).Lsh(uint256.NewInt(x), n)
}

// getAmount0Delta returns the amount of token0 corresponding to a
// liquidity range between two sqrt prices. roundUp selects
// mulDivRoundingUp vs mulDiv, matching the reference's need to round
// up when computing an amount a caller must *pay in*.
func getAmount0Delta(sqrtA, sqrtB *uint256.Int, liquidity *uint256.Int, roundUp bool) *uint256.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	numerator1 := new(uint256.Int).Lsh(liquidity, 96)
	numerator2 := new(uint256.Int).Sub(sqrtB, sqrtA)

	if roundUp {
		inner, overflow := mulDivRoundingUp(numerator1, numerator2, sqrtB)
		if overflow {
			inner = new(uint256.Int).SetAllOne()
		}
		return divRoundingUp(inner, sqrtA)
	}
	n1n2, _ := mulDiv(numerator1, numerator2, sqrtB)
	out, _ := mulDiv(n1n2, uint256.NewInt(1), sqrtA)
	return out
}

func mulOrMax(a, b *uint256.Int) *uint256.Int {
	r, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow {
		return new(uint256.Int).SetAllOne()
	}
	return r
}

// getAmount1Delta returns the amount of token1 corresponding to a
// liquidity range between two sqrt prices.
func getAmount1Delta(sqrtA, sqrtB *uint256.Int, liquidity *uint256.Int, roundUp bool) *uint256.Int {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	diff := new(uint256.Int).Sub(sqrtB, sqrtA)
	if roundUp {
		r, _ := mulDivRoundingUp(liquidity, diff, q96U)
		return r
	}
	r, _ := mulDiv(liquidity, diff, q96U)
	return r
}

// getNextSqrtPriceFromAmount0RoundingUp computes the next sqrt price
// after adding (exact-in) or removing (exact-out) amount of token0.
func getNextSqrtPriceFromAmount0RoundingUp(sqrtPrice, liquidity *uint256.Int, amount *uint256.Int, add bool) *uint256.Int {
	if amount.IsZero() {
		return sqrtPrice
	}
	numerator1 := new(uint256.Int).Lsh(liquidity, 96)

	if add {
		product := mulOrMax(amount, sqrtPrice)
		if !product.IsZero() && new(uint256.Int).Div(product, amount).Eq(sqrtPrice) {
			denominator := new(uint256.Int).Add(numerator1, product)
			if denominator.Cmp(numerator1) >= 0 {
				r, _ := mulDivRoundingUp(numerator1, sqrtPrice, denominator)
				return r
			}
		}
		denom := divRoundingUp(numerator1, sqrtPrice)
		denom = new(uint256.Int).Add(denom, amount)
		return divRoundingUp(numerator1, denom)
	}

	product := mulOrMax(amount, sqrtPrice)
	denominator := new(uint256.Int).Sub(numerator1, product)
	r, _ := mulDivRoundingUp(numerator1, sqrtPrice, denominator)
	return r
}

// getNextSqrtPriceFromAmount1RoundingDown computes the next sqrt price
// after adding (exact-in) or removing (exact-out) amount of token1.
func getNextSqrtPriceFromAmount1RoundingDown(sqrtPrice, liquidity *uint256.Int, amount *uint256.Int, add bool) *uint256.Int {
	if add {
		quotient, _ := mulDiv(amount, q96U, liquidity)
		return new(uint256.Int).Add(sqrtPrice, quotient)
	}
	quotient, _ := mulDivRoundingUp(amount, q96U, liquidity)
	if sqrtPrice.Cmp(quotient) <= 0 {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Sub(sqrtPrice, quotient)
}

// getNextSqrtPriceFromInput computes the sqrt price after swapping in
// amountIn, given the direction.
func getNextSqrtPriceFromInput(sqrtPrice, liquidity *uint256.Int, amountIn *uint256.Int, zeroForOne bool) *uint256.Int {
	if zeroForOne {
		return getNextSqrtPriceFromAmount0RoundingUp(sqrtPrice, liquidity, amountIn, true)
	}
	return getNextSqrtPriceFromAmount1RoundingDown(sqrtPrice, liquidity, amountIn, true)
}

// getNextSqrtPriceFromOutput computes the sqrt price after swapping out
// amountOut, given the direction.
func getNextSqrtPriceFromOutput(sqrtPrice, liquidity *uint256.Int, amountOut *uint256.Int, zeroForOne bool) *uint256.Int {
	if zeroForOne {
		return getNextSqrtPriceFromAmount1RoundingDown(sqrtPrice, liquidity, amountOut, false)
	}
	return getNextSqrtPriceFromAmount0RoundingUp(sqrtPrice, liquidity, amountOut, false)
}

// swapStepResult holds one iteration's computed deltas, mirroring the
// reference contract's SwapMath.computeSwapStep four-tuple.
type swapStepResult struct {
	SqrtPriceNext *uint256.Int
	AmountIn      *uint256.Int
	AmountOut     *uint256.Int
	FeeAmount     *uint256.Int
}

// computeSwapStep simulates one within-tick swap step, per spec.md §4.4.
// amountRemaining is signed: positive means exact-in, negative exact-out
// (magnitude only is passed here; the caller tracks sign).
func computeSwapStep(sqrtPriceCurrent, sqrtPriceTarget, liquidity *uint256.Int, amountRemaining *uint256.Int, exactIn bool, feePPM uint32) swapStepResult {
	zeroForOne := sqrtPriceCurrent.Cmp(sqrtPriceTarget) >= 0
	fee := uint256.NewInt(uint64(feePPM))

	var amountIn, amountOut *uint256.Int
	var sqrtPriceNext *uint256.Int

	if exactIn {
		amountRemainingLessFee, _ := mulDiv(amountRemaining, new(uint256.Int).Sub(feeDenom, fee), feeDenom)
		if zeroForOne {
			amountIn = getAmount0Delta(sqrtPriceTarget, sqrtPriceCurrent, liquidity, true)
		} else {
			amountIn = getAmount1Delta(sqrtPriceCurrent, sqrtPriceTarget, liquidity, true)
		}
		if amountRemainingLessFee.Cmp(amountIn) >= 0 {
			sqrtPriceNext = sqrtPriceTarget
		} else {
			sqrtPriceNext = getNextSqrtPriceFromInput(sqrtPriceCurrent, liquidity, amountRemainingLessFee, zeroForOne)
		}
	} else {
		if zeroForOne {
			amountOut = getAmount1Delta(sqrtPriceTarget, sqrtPriceCurrent, liquidity, false)
		} else {
			amountOut = getAmount0Delta(sqrtPriceCurrent, sqrtPriceTarget, liquidity, false)
		}
		if amountRemaining.Cmp(amountOut) >= 0 {
			sqrtPriceNext = sqrtPriceTarget
		} else {
			sqrtPriceNext = getNextSqrtPriceFromOutput(sqrtPriceCurrent, liquidity, amountRemaining, zeroForOne)
		}
	}

	max := sqrtPriceNext.Eq(sqrtPriceTarget)

	if zeroForOne {
		if !(max && exactIn) {
			amountIn = getAmount0Delta(sqrtPriceNext, sqrtPriceCurrent, liquidity, true)
		}
		if !(max && !exactIn) {
			amountOut = getAmount1Delta(sqrtPriceNext, sqrtPriceCurrent, liquidity, false)
		}
	} else {
		if !(max && exactIn) {
			amountIn = getAmount1Delta(sqrtPriceCurrent, sqrtPriceNext, liquidity, true)
		}
		if !(max && !exactIn) {
			amountOut = getAmount0Delta(sqrtPriceCurrent, sqrtPriceNext, liquidity, false)
		}
	}

	if !exactIn && amountOut.Cmp(amountRemaining) > 0 {
		amountOut = amountRemaining
	}

	var feeAmount *uint256.Int
	if exactIn && !sqrtPriceNext.Eq(sqrtPriceTarget) {
		feeAmount = new(uint256.Int).Sub(amountRemaining, amountIn)
	} else {
		feeAmount = divRoundingUpNonZeroDenom(mulOrMax(amountIn, fee), new(uint256.Int).Sub(feeDenom, fee))
	}

	return swapStepResult{
		SqrtPriceNext: sqrtPriceNext,
		AmountIn:      amountIn,
		AmountOut:     amountOut,
		FeeAmount:     feeAmount,
	}
}

func divRoundingUpNonZeroDenom(x, d *uint256.Int) *uint256.Int {
	if d.IsZero() {
		return new(uint256.Int)
	}
	return divRoundingUp(x, d)
}
