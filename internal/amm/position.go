// position.go - Per-position liquidity and owed-fee accounting.

package amm

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Position is the liquidity a single owner (or, on the shielded path, a
// single position commitment) holds in one tick range, plus the fees it is
// owed but has not collected.
type Position struct {
	Liquidity            *big.Int
	FeeGrowthInside0Last *uint256.Int
	FeeGrowthInside1Last *uint256.Int
	TokensOwed0          *big.Int
	TokensOwed1          *big.Int
}

func newPosition() *Position {
	return &Position{
		Liquidity:            new(big.Int),
		FeeGrowthInside0Last: new(uint256.Int),
		FeeGrowthInside1Last: new(uint256.Int),
		TokensOwed0:          new(big.Int),
		TokensOwed1:          new(big.Int),
	}
}

// update applies a liquidity delta and settles fees accrued since the last
// touch. The growth delta is taken modulo 2^256; the accumulators wrap by
// design and only differences are meaningful.
func (p *Position) update(liquidityDelta *big.Int, feeGrowthInside0, feeGrowthInside1 *uint256.Int) error {
	newLiquidity := new(big.Int).Add(p.Liquidity, liquidityDelta)
	if newLiquidity.Sign() < 0 {
		return ErrInsufficientLiquidity
	}
	if liquidityDelta.Sign() == 0 && p.Liquidity.Sign() == 0 {
		return ErrZeroLiquidity
	}

	delta0 := new(uint256.Int).Sub(feeGrowthInside0, p.FeeGrowthInside0Last)
	delta1 := new(uint256.Int).Sub(feeGrowthInside1, p.FeeGrowthInside1Last)

	owed0 := mulDiv(delta0.ToBig(), p.Liquidity, Q128)
	owed1 := mulDiv(delta1.ToBig(), p.Liquidity, Q128)

	p.Liquidity = newLiquidity
	p.FeeGrowthInside0Last = new(uint256.Int).Set(feeGrowthInside0)
	p.FeeGrowthInside1Last = new(uint256.Int).Set(feeGrowthInside1)
	p.TokensOwed0 = new(big.Int).Add(p.TokensOwed0, owed0)
	p.TokensOwed1 = new(big.Int).Add(p.TokensOwed1, owed1)
	return nil
}
