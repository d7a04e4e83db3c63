// pool.go - Pool state and the mint/burn/swap engine.
//
// A Pool is identified by (tokenLow, tokenHigh, feeTier) with tokenLow <
// tokenHigh. The engine is storage only: it moves no tokens and holds no
// locks; the pool controller serializes every mutating call. Each mutating
// operation either commits completely or leaves the pool untouched.

package amm

import (
	"math/big"

	"github.com/holiman/uint256"
)

// MaxSwapIterations is the hard ceiling on swap loop steps. Breaching it is
// a fatal error for the call, never a silent truncation.
const MaxSwapIterations = 256

// FeeTier couples a fee rate in pips with the tick spacing it trades at.
type FeeTier struct {
	FeeRate     uint32
	TickSpacing int
}

// Pool holds the aggregate state of one concentrated-liquidity market.
type Pool struct {
	TokenLow  *big.Int
	TokenHigh *big.Int
	Fee       FeeTier

	// ProtocolFeeDenom takes 1/n of every swap fee for the protocol when
	// non-zero.
	ProtocolFeeDenom uint32

	sqrtPrice        *big.Int
	tick             int
	liquidity        *big.Int
	feeGrowthGlobal0 *uint256.Int
	feeGrowthGlobal1 *uint256.Int
	protocolFees0    *big.Int
	protocolFees1    *big.Int

	ticks     map[int]*TickInfo
	bitmap    *TickBitmap
	positions map[string]*Position

	initialized bool
}

// NewPool creates an uninitialized pool. Tokens must already be in canonical
// order (lower identifier first) and distinct.
func NewPool(tokenLow, tokenHigh *big.Int, fee FeeTier) (*Pool, error) {
	if tokenLow.Cmp(tokenHigh) >= 0 {
		return nil, ErrTokenOrder
	}
	if fee.TickSpacing <= 0 || fee.FeeRate >= feePipsDenominator {
		return nil, ErrInvalidTickRange
	}
	return &Pool{
		TokenLow:         new(big.Int).Set(tokenLow),
		TokenHigh:        new(big.Int).Set(tokenHigh),
		Fee:              fee,
		liquidity:        new(big.Int),
		feeGrowthGlobal0: new(uint256.Int),
		feeGrowthGlobal1: new(uint256.Int),
		protocolFees0:    new(big.Int),
		protocolFees1:    new(big.Int),
		ticks:            make(map[int]*TickInfo),
		bitmap:           NewTickBitmap(),
		positions:        make(map[string]*Position),
	}, nil
}

// Initialize sets the starting price and derives the starting tick.
func (p *Pool) Initialize(sqrtPrice *big.Int) error {
	if p.initialized {
		return ErrAlreadyInitialized
	}
	tick, err := TickAtSqrtRatio(sqrtPrice)
	if err != nil {
		return err
	}
	p.sqrtPrice = new(big.Int).Set(sqrtPrice)
	p.tick = tick
	p.initialized = true
	return nil
}

// SqrtPrice returns the current sqrt price (Q64.96).
func (p *Pool) SqrtPrice() *big.Int { return new(big.Int).Set(p.sqrtPrice) }

// Tick returns the current tick.
func (p *Pool) Tick() int { return p.tick }

// Liquidity returns the currently active liquidity.
func (p *Pool) Liquidity() *big.Int { return new(big.Int).Set(p.liquidity) }

// FeeGrowthGlobal returns both global fee-growth accumulators.
func (p *Pool) FeeGrowthGlobal() (*uint256.Int, *uint256.Int) {
	return new(uint256.Int).Set(p.feeGrowthGlobal0), new(uint256.Int).Set(p.feeGrowthGlobal1)
}

// ProtocolFees returns the accumulated protocol fee balances.
func (p *Pool) ProtocolFees() (*big.Int, *big.Int) {
	return new(big.Int).Set(p.protocolFees0), new(big.Int).Set(p.protocolFees1)
}

// TickInfoAt returns a copy of the tick's bookkeeping, or nil when the tick
// has never been touched.
func (p *Pool) TickInfoAt(tick int) *TickInfo {
	info, ok := p.ticks[tick]
	if !ok {
		return nil
	}
	cp := *info
	cp.LiquidityGross = new(big.Int).Set(info.LiquidityGross)
	cp.LiquidityNet = new(big.Int).Set(info.LiquidityNet)
	cp.FeeGrowthOutside0 = new(uint256.Int).Set(info.FeeGrowthOutside0)
	cp.FeeGrowthOutside1 = new(uint256.Int).Set(info.FeeGrowthOutside1)
	return &cp
}

// PositionAt returns the position stored under key, or ErrPositionNotFound.
func (p *Pool) PositionAt(key string) (*Position, error) {
	pos, ok := p.positions[key]
	if !ok {
		return nil, ErrPositionNotFound
	}
	return pos, nil
}

// checkTicks validates a position range against the global bounds and the
// pool's tick spacing.
func (p *Pool) checkTicks(tickLower, tickUpper int) error {
	if tickLower >= tickUpper {
		return ErrInvalidTickRange
	}
	if tickLower < MinTick || tickUpper > MaxTick {
		return ErrInvalidTickRange
	}
	if tickLower%p.Fee.TickSpacing != 0 || tickUpper%p.Fee.TickSpacing != 0 {
		return ErrTickNotSpaced
	}
	return nil
}

// tickAt returns the TickInfo for tick, creating it on first reference.
func (p *Pool) tickAt(tick int) *TickInfo {
	info, ok := p.ticks[tick]
	if !ok {
		info = newTickInfo()
		p.ticks[tick] = info
	}
	return info
}

// amountsForLiquidity computes the token amounts a liquidity delta moves at
// the current price using the three-region formula. roundUp is set when the
// pool is owed the amounts (mint).
func (p *Pool) amountsForLiquidity(tickLower, tickUpper int, liquidity *big.Int, roundUp bool) (amount0, amount1 *big.Int, err error) {
	sqrtLower, err := SqrtRatioAtTick(tickLower)
	if err != nil {
		return nil, nil, err
	}
	sqrtUpper, err := SqrtRatioAtTick(tickUpper)
	if err != nil {
		return nil, nil, err
	}

	amount0 = new(big.Int)
	amount1 = new(big.Int)
	switch {
	case p.tick < tickLower:
		// Price below the range: the position is all token0.
		amount0 = amount0Delta(sqrtLower, sqrtUpper, liquidity, roundUp)
	case p.tick < tickUpper:
		// Price inside the range: both tokens.
		amount0 = amount0Delta(p.sqrtPrice, sqrtUpper, liquidity, roundUp)
		amount1 = amount1Delta(sqrtLower, p.sqrtPrice, liquidity, roundUp)
	default:
		// Price above the range: all token1.
		amount1 = amount1Delta(sqrtLower, sqrtUpper, liquidity, roundUp)
	}
	return amount0, amount1, nil
}

// modifyPosition applies a signed liquidity delta to the position under key
// and to both boundary ticks, flipping bitmap bits as gross liquidity
// transitions through zero and adjusting active liquidity when the current
// tick is inside the range.
func (p *Pool) modifyPosition(key string, tickLower, tickUpper int, liquidityDelta *big.Int) error {
	// Validate removal against the position before touching the ticks, so a
	// failure leaves no partial state behind.
	if liquidityDelta.Sign() < 0 {
		pos, ok := p.positions[key]
		if !ok {
			return ErrPositionNotFound
		}
		if new(big.Int).Add(pos.Liquidity, liquidityDelta).Sign() < 0 {
			return ErrInsufficientLiquidity
		}
	}

	lower := p.tickAt(tickLower)
	upper := p.tickAt(tickUpper)

	flippedLower, err := lower.update(tickLower, p.tick, liquidityDelta, p.feeGrowthGlobal0, p.feeGrowthGlobal1, false)
	if err != nil {
		return err
	}
	flippedUpper, err := upper.update(tickUpper, p.tick, liquidityDelta, p.feeGrowthGlobal0, p.feeGrowthGlobal1, true)
	if err != nil {
		// Roll the lower tick back so the failed call has no effect.
		if _, rbErr := lower.update(tickLower, p.tick, new(big.Int).Neg(liquidityDelta), p.feeGrowthGlobal0, p.feeGrowthGlobal1, false); rbErr != nil {
			panic("amm: tick rollback failed: " + rbErr.Error())
		}
		return err
	}

	if flippedLower {
		p.bitmap.Flip(tickLower, p.Fee.TickSpacing)
	}
	if flippedUpper {
		p.bitmap.Flip(tickUpper, p.Fee.TickSpacing)
	}

	inside0, inside1 := feeGrowthInside(lower, upper, tickLower, tickUpper, p.tick, p.feeGrowthGlobal0, p.feeGrowthGlobal1)
	pos, ok := p.positions[key]
	if !ok {
		pos = newPosition()
		p.positions[key] = pos
	}
	if err := pos.update(liquidityDelta, inside0, inside1); err != nil {
		return err
	}

	if tickLower <= p.tick && p.tick < tickUpper {
		p.liquidity = new(big.Int).Add(p.liquidity, liquidityDelta)
	}
	return nil
}

// QuoteLiquidity returns the token amounts a position of the given size
// would require at the current price, rounded up, without mutating anything.
func (p *Pool) QuoteLiquidity(tickLower, tickUpper int, liquidity *big.Int) (amount0, amount1 *big.Int, err error) {
	if !p.initialized {
		return nil, nil, ErrPoolNotInitialized
	}
	if err := p.checkTicks(tickLower, tickUpper); err != nil {
		return nil, nil, err
	}
	if liquidity.Sign() <= 0 {
		return nil, nil, ErrZeroLiquidity
	}
	return p.amountsForLiquidity(tickLower, tickUpper, liquidity, true)
}

// Mint adds liquidity to the position under key and returns the token
// amounts the caller owes the pool.
func (p *Pool) Mint(key string, tickLower, tickUpper int, liquidity *big.Int) (amount0, amount1 *big.Int, err error) {
	if !p.initialized {
		return nil, nil, ErrPoolNotInitialized
	}
	if err := p.checkTicks(tickLower, tickUpper); err != nil {
		return nil, nil, err
	}
	if liquidity.Sign() <= 0 {
		return nil, nil, ErrZeroLiquidity
	}
	amount0, amount1, err = p.amountsForLiquidity(tickLower, tickUpper, liquidity, true)
	if err != nil {
		return nil, nil, err
	}
	if err := p.modifyPosition(key, tickLower, tickUpper, liquidity); err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

// Burn removes liquidity from the position under key. The freed principal
// is credited to the position's tokensOwed balances together with any fees;
// no token movement happens here. Collect retrieves the total.
func (p *Pool) Burn(key string, tickLower, tickUpper int, liquidity *big.Int) (amount0, amount1 *big.Int, err error) {
	if !p.initialized {
		return nil, nil, ErrPoolNotInitialized
	}
	if err := p.checkTicks(tickLower, tickUpper); err != nil {
		return nil, nil, err
	}
	if liquidity.Sign() <= 0 {
		return nil, nil, ErrZeroLiquidity
	}
	amount0, amount1, err = p.amountsForLiquidity(tickLower, tickUpper, liquidity, false)
	if err != nil {
		return nil, nil, err
	}
	if err := p.modifyPosition(key, tickLower, tickUpper, new(big.Int).Neg(liquidity)); err != nil {
		return nil, nil, err
	}

	pos := p.positions[key]
	pos.TokensOwed0 = new(big.Int).Add(pos.TokensOwed0, amount0)
	pos.TokensOwed1 = new(big.Int).Add(pos.TokensOwed1, amount1)
	return amount0, amount1, nil
}

// Collect drains the position's owed balances and returns them. The position
// record itself is never deleted, only zeroed.
func (p *Pool) Collect(key string) (amount0, amount1 *big.Int, err error) {
	pos, ok := p.positions[key]
	if !ok {
		return nil, nil, ErrPositionNotFound
	}
	amount0, amount1 = pos.TokensOwed0, pos.TokensOwed1
	pos.TokensOwed0 = new(big.Int)
	pos.TokensOwed1 = new(big.Int)
	return amount0, amount1, nil
}

// CollectAmount drains up to the requested amounts from the position's owed
// balances. Anything beyond what is owed is clamped, never overdrawn.
func (p *Pool) CollectAmount(key string, amount0Req, amount1Req *big.Int) (amount0, amount1 *big.Int, err error) {
	pos, ok := p.positions[key]
	if !ok {
		return nil, nil, ErrPositionNotFound
	}
	amount0 = new(big.Int).Set(amount0Req)
	if amount0.Cmp(pos.TokensOwed0) > 0 {
		amount0.Set(pos.TokensOwed0)
	}
	amount1 = new(big.Int).Set(amount1Req)
	if amount1.Cmp(pos.TokensOwed1) > 0 {
		amount1.Set(pos.TokensOwed1)
	}
	pos.TokensOwed0 = new(big.Int).Sub(pos.TokensOwed0, amount0)
	pos.TokensOwed1 = new(big.Int).Sub(pos.TokensOwed1, amount1)
	return amount0, amount1, nil
}

// stagedCross records a tick crossing discovered during the swap loop. The
// crossing is applied to the tick registry only when the whole swap commits.
type stagedCross struct {
	tick int
	fg0  uint256.Int
	fg1  uint256.Int
}

// Swap trades an exact input amount in the given direction, bounded by
// sqrtPriceLimit. Returns the input actually consumed (fee inclusive) and
// the output produced. amountSpecified must be positive; exact-output swaps
// are unsupported. A non-nil minAmountOut fails the whole swap with
// ErrSlippage before any state is committed. The input may be consumed only
// partially when the price limit or the liquidity range is exhausted first.
func (p *Pool) Swap(zeroForOne bool, amountSpecified, sqrtPriceLimit, minAmountOut *big.Int) (amountIn, amountOut *big.Int, err error) {
	return p.swap(zeroForOne, amountSpecified, sqrtPriceLimit, minAmountOut, false)
}

// SwapExactIn is Swap with the extra requirement that the whole input is
// consumed. It fails with ErrPartialFill before any state is committed, so
// callers that cannot refund a remainder never see a half-executed trade.
func (p *Pool) SwapExactIn(zeroForOne bool, amountSpecified, sqrtPriceLimit, minAmountOut *big.Int) (amountIn, amountOut *big.Int, err error) {
	return p.swap(zeroForOne, amountSpecified, sqrtPriceLimit, minAmountOut, true)
}

func (p *Pool) swap(zeroForOne bool, amountSpecified, sqrtPriceLimit, minAmountOut *big.Int, requireFull bool) (amountIn, amountOut *big.Int, err error) {
	if !p.initialized {
		return nil, nil, ErrPoolNotInitialized
	}
	if amountSpecified.Sign() < 0 {
		return nil, nil, ErrExactOutputUnsupported
	}
	if amountSpecified.Sign() == 0 {
		return nil, nil, ErrZeroAmount
	}
	if zeroForOne {
		if sqrtPriceLimit.Cmp(p.sqrtPrice) >= 0 || sqrtPriceLimit.Cmp(MinSqrtRatio) < 0 {
			return nil, nil, ErrInvalidPriceLimit
		}
	} else {
		if sqrtPriceLimit.Cmp(p.sqrtPrice) <= 0 || sqrtPriceLimit.Cmp(MaxSqrtRatio) > 0 {
			return nil, nil, ErrInvalidPriceLimit
		}
	}

	// The loop works on scratch copies; pool state and tick registry are
	// only written after the loop succeeds.
	sqrtPrice := new(big.Int).Set(p.sqrtPrice)
	tick := p.tick
	liquidity := new(big.Int).Set(p.liquidity)
	feeGrowth := new(uint256.Int)
	if zeroForOne {
		feeGrowth.Set(p.feeGrowthGlobal0)
	} else {
		feeGrowth.Set(p.feeGrowthGlobal1)
	}
	protocolFee := new(big.Int)
	remaining := new(big.Int).Set(amountSpecified)
	amountIn = new(big.Int)
	amountOut = new(big.Int)
	var crossings []stagedCross

	iterations := 0
	for remaining.Sign() > 0 && sqrtPrice.Cmp(sqrtPriceLimit) != 0 {
		iterations++
		if iterations > MaxSwapIterations {
			return nil, nil, ErrSwapLoopLimitExceeded
		}

		nextTick, nextInitialized := p.bitmap.NextInitializedTickWithinOneWord(tick, p.Fee.TickSpacing, zeroForOne)
		if nextTick < MinTick {
			nextTick = MinTick
		} else if nextTick > MaxTick {
			nextTick = MaxTick
		}
		sqrtNext, err := SqrtRatioAtTick(nextTick)
		if err != nil {
			return nil, nil, err
		}

		// Step no further than the caller's price limit.
		target := sqrtNext
		if zeroForOne {
			if sqrtNext.Cmp(sqrtPriceLimit) < 0 {
				target = sqrtPriceLimit
			}
		} else {
			if sqrtNext.Cmp(sqrtPriceLimit) > 0 {
				target = sqrtPriceLimit
			}
		}

		step := computeSwapStep(sqrtPrice, target, liquidity, remaining, p.Fee.FeeRate)

		consumed := new(big.Int).Add(step.amountIn, step.feeAmount)
		remaining.Sub(remaining, consumed)
		amountIn.Add(amountIn, consumed)
		amountOut.Add(amountOut, step.amountOut)

		// Split the fee between the protocol and the LP accumulator.
		lpFee := step.feeAmount
		if p.ProtocolFeeDenom > 0 {
			share := new(big.Int).Div(step.feeAmount, big.NewInt(int64(p.ProtocolFeeDenom)))
			protocolFee.Add(protocolFee, share)
			lpFee = new(big.Int).Sub(step.feeAmount, share)
		}
		if liquidity.Sign() > 0 && lpFee.Sign() > 0 {
			growth := mulDiv(lpFee, Q128, liquidity)
			g, overflow := uint256.FromBig(growth)
			if overflow {
				return nil, nil, ErrArithmeticOverflow
			}
			feeGrowth.Add(feeGrowth, g) // wraps mod 2^256
		}

		sqrtPrice = step.nextSqrtPrice

		if sqrtPrice.Cmp(sqrtNext) == 0 {
			// Landed exactly on the tick boundary.
			if nextInitialized {
				sc := stagedCross{tick: nextTick}
				if zeroForOne {
					sc.fg0.Set(feeGrowth)
					sc.fg1.Set(p.feeGrowthGlobal1)
				} else {
					sc.fg0.Set(p.feeGrowthGlobal0)
					sc.fg1.Set(feeGrowth)
				}
				crossings = append(crossings, sc)

				liquidityNet := p.ticks[nextTick].LiquidityNet
				if zeroForOne {
					liquidity = new(big.Int).Sub(liquidity, liquidityNet)
				} else {
					liquidity = new(big.Int).Add(liquidity, liquidityNet)
				}
				if liquidity.Sign() < 0 {
					return nil, nil, ErrArithmeticOverflow
				}
			}
			if zeroForOne {
				tick = nextTick - 1
			} else {
				tick = nextTick
			}
		} else {
			tick, err = TickAtSqrtRatio(sqrtPrice)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	if minAmountOut != nil && amountOut.Cmp(minAmountOut) < 0 {
		return nil, nil, ErrSlippage
	}
	if requireFull && remaining.Sign() > 0 {
		return nil, nil, ErrPartialFill
	}

	// Commit.
	for _, sc := range crossings {
		p.ticks[sc.tick].cross(&sc.fg0, &sc.fg1)
	}
	p.sqrtPrice = sqrtPrice
	p.tick = tick
	p.liquidity = liquidity
	if zeroForOne {
		p.feeGrowthGlobal0 = feeGrowth
		p.protocolFees0 = new(big.Int).Add(p.protocolFees0, protocolFee)
	} else {
		p.feeGrowthGlobal1 = feeGrowth
		p.protocolFees1 = new(big.Int).Add(p.protocolFees1, protocolFee)
	}
	return amountIn, amountOut, nil
}
