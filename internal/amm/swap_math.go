// swap_math.go - One bounded step of the swap loop.

package amm

import "math/big"

// feePipsDenominator is the fee unit: a feeRate of 3000 pips is 0.30%.
const feePipsDenominator = 1_000_000

// swapStep is the outcome of one iteration of the swap loop.
type swapStep struct {
	nextSqrtPrice *big.Int
	amountIn      *big.Int
	amountOut     *big.Int
	feeAmount     *big.Int
}

// computeSwapStep advances the price from sqrtCurrent toward sqrtTarget,
// consuming at most amountRemaining of the input token (fee inclusive).
// sqrtTarget already folds in the caller's price limit. Exact input only.
func computeSwapStep(sqrtCurrent, sqrtTarget, liquidity, amountRemaining *big.Int, feePips uint32) swapStep {
	zeroForOne := sqrtCurrent.Cmp(sqrtTarget) >= 0

	feeDen := big.NewInt(feePipsDenominator)
	feeComplement := big.NewInt(feePipsDenominator - int64(feePips))
	remainingLessFee := mulDiv(amountRemaining, feeComplement, feeDen)

	var step swapStep
	if zeroForOne {
		step.amountIn = amount0Delta(sqrtTarget, sqrtCurrent, liquidity, true)
	} else {
		step.amountIn = amount1Delta(sqrtCurrent, sqrtTarget, liquidity, true)
	}

	reachedTarget := remainingLessFee.Cmp(step.amountIn) >= 0
	if reachedTarget {
		step.nextSqrtPrice = new(big.Int).Set(sqrtTarget)
	} else {
		step.nextSqrtPrice = nextSqrtPriceFromInput(sqrtCurrent, liquidity, remainingLessFee, zeroForOne)
		if zeroForOne {
			step.amountIn = amount0Delta(step.nextSqrtPrice, sqrtCurrent, liquidity, true)
		} else {
			step.amountIn = amount1Delta(sqrtCurrent, step.nextSqrtPrice, liquidity, true)
		}
	}

	if zeroForOne {
		step.amountOut = amount1Delta(step.nextSqrtPrice, sqrtCurrent, liquidity, false)
	} else {
		step.amountOut = amount0Delta(sqrtCurrent, step.nextSqrtPrice, liquidity, false)
	}

	if reachedTarget {
		// Fee on top of the consumed input.
		step.feeAmount = mulDivRoundingUp(step.amountIn, big.NewInt(int64(feePips)), feeComplement)
	} else {
		// Everything left over after the input is the fee.
		step.feeAmount = new(big.Int).Sub(amountRemaining, step.amountIn)
	}
	return step
}
