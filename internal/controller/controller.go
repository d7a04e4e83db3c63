// controller.go - Pool controller, shielded path.
//
// Bridges accepted coordinator outputs into engine mutations. The shielded
// path never moves tokens: value enters and leaves purely through
// commitment/nullifier accounting, and output notes the engine prices at
// execution time are completed here from the proven inner hashes.
//
// Shielded liquidity lives in one engine position per tick range. A burn
// reveals only its range and size, so payouts take the burn's principal plus
// a pro-rata share of the range's accrued fees.

package controller

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"shieldpool/internal/amm"
	"shieldpool/internal/coordinator"
	"shieldpool/internal/note"
)

const recipientBits = 160

var (
	ErrValueOutOfRange     = errors.New("controller: value does not fit its narrow type")
	ErrTokenPair           = errors.New("controller: token pair does not match pool")
	ErrInsufficientDeposit = errors.New("controller: disclosed deposits below required amounts")
	ErrUnauthorized        = errors.New("controller: caller does not own this position")
)

// Withdrawal is a completed shielded withdrawal, recorded for settlement.
type Withdrawal struct {
	Recipient *big.Int
	Amount    *big.Int
	Token     *big.Int
}

// Controller owns one pool and serializes every mutation against it.
type Controller struct {
	mu   sync.Mutex
	pool *amm.Pool

	transferer  TokenTransferer
	withdrawals []Withdrawal
}

// New wraps a pool. transferer backs the public path; it may be nil when
// only the shielded path is used.
func New(pool *amm.Pool, transferer TokenTransferer) *Controller {
	return &Controller{pool: pool, transferer: transferer}
}

// Pool returns the underlying engine pool.
func (c *Controller) Pool() *amm.Pool { return c.pool }

// Withdrawals returns a copy of the recorded withdrawal queue.
func (c *Controller) Withdrawals() []Withdrawal {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Withdrawal, len(c.withdrawals))
	copy(out, c.withdrawals)
	return out
}

// shieldedKey addresses the aggregate engine position for one tick range.
func shieldedKey(tickLower, tickUpper int) string {
	return fmt.Sprintf("shielded:%d:%d", tickLower, tickUpper)
}

// ExecuteWithdraw validates and records a withdrawal. The recipient travels
// as a field element but must narrow to an address without loss.
func (c *Controller) ExecuteWithdraw(out *coordinator.WithdrawOutputs) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if out.Recipient.BitLen() > recipientBits {
		return ErrValueOutOfRange
	}
	amount, err := note.JoinAmount(out.AmountLow, out.AmountHigh)
	if err != nil {
		return err
	}
	c.withdrawals = append(c.withdrawals, Withdrawal{
		Recipient: new(big.Int).Set(out.Recipient),
		Amount:    amount,
		Token:     new(big.Int).Set(out.Token),
	})
	return nil
}

// swapDirection maps a tokenIn/tokenOut pair onto the pool's canonical pair.
func (c *Controller) swapDirection(tokenIn, tokenOut *big.Int) (zeroForOne bool, err error) {
	switch {
	case tokenIn.Cmp(c.pool.TokenLow) == 0 && tokenOut.Cmp(c.pool.TokenHigh) == 0:
		return true, nil
	case tokenIn.Cmp(c.pool.TokenHigh) == 0 && tokenOut.Cmp(c.pool.TokenLow) == 0:
		return false, nil
	default:
		return false, ErrTokenPair
	}
}

// priceLimit is the widest admissible limit for a direction; shielded swaps
// bound slippage by amountOutMin, not by price.
func priceLimit(zeroForOne bool) *big.Int {
	if zeroForOne {
		return new(big.Int).Add(amm.MinSqrtRatio, big.NewInt(1))
	}
	return new(big.Int).Sub(amm.MaxSqrtRatio, big.NewInt(1))
}

// ExecuteSwap runs the engine swap and completes the output commitment with
// the realized amountOut. The change note is fixed in-circuit as amount
// minus amountIn, so a partially consumed input has nowhere to go; the
// engine rejects such swaps with amm.ErrPartialFill before committing.
func (c *Controller) ExecuteSwap(out *coordinator.SwapOutputs) ([]*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	zeroForOne, err := c.swapDirection(out.TokenIn, out.TokenOut)
	if err != nil {
		return nil, err
	}
	_, amountOut, err := c.pool.SwapExactIn(zeroForOne, out.AmountIn, priceLimit(zeroForOne), out.AmountOutMin)
	if err != nil {
		return nil, err
	}
	outLow, outHigh, err := note.SplitAmount(amountOut)
	if err != nil {
		return nil, err
	}
	completed := note.CommitmentFromInner(out.NewInner, outLow, outHigh, out.TokenOut)
	return []*big.Int{out.ChangeCommitment, completed}, nil
}

// ExecuteMint adds the proven liquidity to the range's aggregate position and
// completes the two change commitments with whatever the deposits left over.
func (c *Controller) ExecuteMint(out *coordinator.MintOutputs) ([]*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if out.Token0.Cmp(c.pool.TokenLow) != 0 || out.Token1.Cmp(c.pool.TokenHigh) != 0 {
		return nil, ErrTokenPair
	}
	need0, need1, err := c.pool.QuoteLiquidity(out.TickLower, out.TickUpper, out.Liquidity)
	if err != nil {
		return nil, err
	}
	if need0.Cmp(out.Amount0) > 0 || need1.Cmp(out.Amount1) > 0 {
		return nil, ErrInsufficientDeposit
	}
	if _, _, err := c.pool.Mint(shieldedKey(out.TickLower, out.TickUpper), out.TickLower, out.TickUpper, out.Liquidity); err != nil {
		return nil, err
	}

	change0 := new(big.Int).Sub(out.Amount0, need0)
	change1 := new(big.Int).Sub(out.Amount1, need1)
	low0, high0, err := note.SplitAmount(change0)
	if err != nil {
		return nil, err
	}
	low1, high1, err := note.SplitAmount(change1)
	if err != nil {
		return nil, err
	}
	c0 := note.CommitmentFromInner(out.ChangeInner0, low0, high0, out.Token0)
	c1 := note.CommitmentFromInner(out.ChangeInner1, low1, high1, out.Token1)
	return []*big.Int{c0, c1, out.PositionCommitment}, nil
}

// ExecuteBurn unwinds the proven liquidity from the range's aggregate
// position and completes the two payout commitments: principal plus this
// burn's share of the fees the range has accrued.
func (c *Controller) ExecuteBurn(out *coordinator.BurnOutputs) ([]*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := shieldedKey(out.TickLower, out.TickUpper)
	pos, err := c.pool.PositionAt(key)
	if err != nil {
		return nil, err
	}
	totalBefore := new(big.Int).Set(pos.Liquidity)

	principal0, principal1, err := c.pool.Burn(key, out.TickLower, out.TickUpper, out.Liquidity)
	if err != nil {
		return nil, err
	}

	// Everything owed beyond this burn's principal is the range's fee pot;
	// the burner takes liquidity/totalBefore of it.
	pot0 := new(big.Int).Sub(pos.TokensOwed0, principal0)
	pot1 := new(big.Int).Sub(pos.TokensOwed1, principal1)
	fee0 := new(big.Int).Div(new(big.Int).Mul(pot0, out.Liquidity), totalBefore)
	fee1 := new(big.Int).Div(new(big.Int).Mul(pot1, out.Liquidity), totalBefore)

	payout0, payout1, err := c.pool.CollectAmount(key,
		new(big.Int).Add(principal0, fee0),
		new(big.Int).Add(principal1, fee1))
	if err != nil {
		return nil, err
	}

	low0, high0, err := note.SplitAmount(payout0)
	if err != nil {
		return nil, err
	}
	low1, high1, err := note.SplitAmount(payout1)
	if err != nil {
		return nil, err
	}
	c0 := note.CommitmentFromInner(out.NewInner0, low0, high0, c.pool.TokenLow)
	c1 := note.CommitmentFromInner(out.NewInner1, low1, high1, c.pool.TokenHigh)
	return []*big.Int{c0, c1}, nil
}
