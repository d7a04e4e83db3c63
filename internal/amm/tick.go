// tick.go - Per-tick liquidity and fee-growth bookkeeping.

package amm

import (
	"math/big"

	"github.com/holiman/uint256"
)

// TickInfo tracks the liquidity anchored at one tick and the fee growth
// recorded on the far side of it. FeeGrowthOutside is a relative value whose
// meaning flips every time the tick is crossed; only differences of these
// accumulators are meaningful, taken modulo 2^256.
type TickInfo struct {
	LiquidityGross    *big.Int
	LiquidityNet      *big.Int
	FeeGrowthOutside0 *uint256.Int
	FeeGrowthOutside1 *uint256.Int
	Initialized       bool
}

func newTickInfo() *TickInfo {
	return &TickInfo{
		LiquidityGross:    new(big.Int),
		LiquidityNet:      new(big.Int),
		FeeGrowthOutside0: new(uint256.Int),
		FeeGrowthOutside1: new(uint256.Int),
	}
}

// update applies a liquidity delta to the tick and reports whether the tick
// flipped between initialized and uninitialized. When a tick at or below the
// current tick initializes, its outside growth starts at the current global
// value, so growth accrued before the tick existed counts as "below".
func (t *TickInfo) update(tick, currentTick int, liquidityDelta *big.Int, feeGrowthGlobal0, feeGrowthGlobal1 *uint256.Int, upper bool) (flipped bool, err error) {
	grossBefore := new(big.Int).Set(t.LiquidityGross)
	grossAfter := new(big.Int).Add(grossBefore, liquidityDelta)
	if grossAfter.Sign() < 0 {
		return false, ErrInsufficientLiquidity
	}

	flipped = (grossAfter.Sign() == 0) != (grossBefore.Sign() == 0)

	if grossBefore.Sign() == 0 && tick <= currentTick {
		t.FeeGrowthOutside0.Set(feeGrowthGlobal0)
		t.FeeGrowthOutside1.Set(feeGrowthGlobal1)
	}

	t.LiquidityGross = grossAfter
	if upper {
		t.LiquidityNet = new(big.Int).Sub(t.LiquidityNet, liquidityDelta)
	} else {
		t.LiquidityNet = new(big.Int).Add(t.LiquidityNet, liquidityDelta)
	}
	t.Initialized = grossAfter.Sign() != 0
	return flipped, nil
}

// cross flips the tick's outside growth to the other side of the current
// global accumulators and returns the net liquidity to apply. Subtraction
// wraps modulo 2^256 by construction.
func (t *TickInfo) cross(feeGrowthGlobal0, feeGrowthGlobal1 *uint256.Int) *big.Int {
	t.FeeGrowthOutside0.Sub(feeGrowthGlobal0, t.FeeGrowthOutside0)
	t.FeeGrowthOutside1.Sub(feeGrowthGlobal1, t.FeeGrowthOutside1)
	return t.LiquidityNet
}

// feeGrowthInside computes the fee growth accrued strictly inside
// [tickLower, tickUpper]: global minus the growth outside below and outside
// above. The three-way selection on the current tick must be exact; an
// off-by-one here misattributes fees between positions. All subtraction is
// modulo 2^256.
func feeGrowthInside(lower, upper *TickInfo, tickLower, tickUpper, currentTick int, feeGrowthGlobal0, feeGrowthGlobal1 *uint256.Int) (inside0, inside1 *uint256.Int) {
	var below0, below1, above0, above1 uint256.Int

	if currentTick >= tickLower {
		below0.Set(lower.FeeGrowthOutside0)
		below1.Set(lower.FeeGrowthOutside1)
	} else {
		below0.Sub(feeGrowthGlobal0, lower.FeeGrowthOutside0)
		below1.Sub(feeGrowthGlobal1, lower.FeeGrowthOutside1)
	}

	if currentTick < tickUpper {
		above0.Set(upper.FeeGrowthOutside0)
		above1.Set(upper.FeeGrowthOutside1)
	} else {
		above0.Sub(feeGrowthGlobal0, upper.FeeGrowthOutside0)
		above1.Sub(feeGrowthGlobal1, upper.FeeGrowthOutside1)
	}

	inside0 = new(uint256.Int).Sub(feeGrowthGlobal0, &below0)
	inside0.Sub(inside0, &above0)
	inside1 = new(uint256.Int).Sub(feeGrowthGlobal1, &below1)
	inside1.Sub(inside1, &above1)
	return inside0, inside1
}
