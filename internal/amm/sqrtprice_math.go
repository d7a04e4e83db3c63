// sqrtprice_math.go - Amount deltas and price movement for a single step.
//
// All functions operate on Q64.96 sqrt prices and raw token amounts. Only
// exact-input price movement exists; exact-output swaps are unsupported by
// design and there is deliberately no inverse helper.

package amm

import "math/big"

// mulDiv computes floor(a*b/denominator) at full intermediate precision.
func mulDiv(a, b, denominator *big.Int) *big.Int {
	out := new(big.Int).Mul(a, b)
	return out.Div(out, denominator)
}

// mulDivRoundingUp computes ceil(a*b/denominator).
func mulDivRoundingUp(a, b, denominator *big.Int) *big.Int {
	out := new(big.Int).Mul(a, b)
	rem := new(big.Int)
	out.DivMod(out, denominator, rem)
	if rem.Sign() != 0 {
		out.Add(out, big.NewInt(1))
	}
	return out
}

// divRoundingUp computes ceil(a/denominator).
func divRoundingUp(a, denominator *big.Int) *big.Int {
	out, rem := new(big.Int).DivMod(a, denominator, new(big.Int))
	if rem.Sign() != 0 {
		out.Add(out, big.NewInt(1))
	}
	return out
}

// amount0Delta returns the token0 amount between two sqrt prices for the
// given liquidity: L * 2^96 * (sqrtB - sqrtA) / (sqrtB * sqrtA).
// Callers pass the bounds in either order.
func amount0Delta(sqrtA, sqrtB, liquidity *big.Int, roundUp bool) *big.Int {
	lower, upper := sqrtA, sqrtB
	if lower.Cmp(upper) > 0 {
		lower, upper = upper, lower
	}
	numerator1 := new(big.Int).Lsh(liquidity, 96)
	numerator2 := new(big.Int).Sub(upper, lower)
	if roundUp {
		return divRoundingUp(mulDivRoundingUp(numerator1, numerator2, upper), lower)
	}
	return new(big.Int).Div(mulDiv(numerator1, numerator2, upper), lower)
}

// amount1Delta returns the token1 amount between two sqrt prices:
// L * (sqrtB - sqrtA) / 2^96.
func amount1Delta(sqrtA, sqrtB, liquidity *big.Int, roundUp bool) *big.Int {
	lower, upper := sqrtA, sqrtB
	if lower.Cmp(upper) > 0 {
		lower, upper = upper, lower
	}
	diff := new(big.Int).Sub(upper, lower)
	if roundUp {
		return mulDivRoundingUp(liquidity, diff, Q96)
	}
	return mulDiv(liquidity, diff, Q96)
}

// nextSqrtPriceFromInput returns the price after consuming amountIn of the
// input token at the current price and liquidity. zeroForOne moves the price
// down (token0 in), otherwise up (token1 in). Rounding always favors the
// pool: down for zeroForOne, up never overshoots the true price.
func nextSqrtPriceFromInput(sqrtPrice, liquidity, amountIn *big.Int, zeroForOne bool) *big.Int {
	if zeroForOne {
		// next = L * 2^96 * sqrtP / (L * 2^96 + amountIn * sqrtP), rounded up.
		numerator1 := new(big.Int).Lsh(liquidity, 96)
		product := new(big.Int).Mul(amountIn, sqrtPrice)
		denominator := new(big.Int).Add(numerator1, product)
		return mulDivRoundingUp(numerator1, sqrtPrice, denominator)
	}
	// next = sqrtP + amountIn * 2^96 / L, rounded down.
	quotient := mulDiv(amountIn, Q96, liquidity)
	return new(big.Int).Add(sqrtPrice, quotient)
}
