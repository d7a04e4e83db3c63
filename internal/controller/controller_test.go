// controller_test.go - Shielded executor and public path tests.

package controller

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldpool/internal/amm"
	"shieldpool/internal/coordinator"
	"shieldpool/internal/note"
)

var (
	token0 = big.NewInt(1)
	token1 = big.NewInt(2)
)

func newTestPool(t *testing.T) *amm.Pool {
	t.Helper()
	p, err := amm.NewPool(token0, token1, amm.FeeTier{FeeRate: 3000, TickSpacing: 60})
	require.NoError(t, err)
	require.NoError(t, p.Initialize(amm.Q96))
	return p
}

func mintOutputs(liquidity int64) *coordinator.MintOutputs {
	return &coordinator.MintOutputs{
		ChangeInner0:       big.NewInt(901),
		ChangeInner1:       big.NewInt(902),
		Root:               big.NewInt(1),
		NullifierHash0:     big.NewInt(11),
		NullifierHash1:     big.NewInt(12),
		PositionCommitment: big.NewInt(903),
		TickLower:          -1200,
		TickUpper:          1200,
		Token0:             token0,
		Token1:             token1,
		Amount0:            new(big.Int).Lsh(big.NewInt(1), 40),
		Amount1:            new(big.Int).Lsh(big.NewInt(1), 40),
		Liquidity:          big.NewInt(liquidity),
	}
}

func TestExecuteWithdraw(t *testing.T) {
	c := New(newTestPool(t), nil)

	out := &coordinator.WithdrawOutputs{
		Root:          big.NewInt(1),
		NullifierHash: big.NewInt(2),
		Recipient:     big.NewInt(0xcafe),
		AmountLow:     big.NewInt(1234),
		AmountHigh:    big.NewInt(0),
		Token:         token0,
	}
	require.NoError(t, c.ExecuteWithdraw(out))

	ws := c.Withdrawals()
	require.Len(t, ws, 1)
	assert.Equal(t, int64(1234), ws[0].Amount.Int64())
	assert.Equal(t, int64(0xcafe), ws[0].Recipient.Int64())
}

func TestExecuteWithdrawWideRecipient(t *testing.T) {
	c := New(newTestPool(t), nil)

	out := &coordinator.WithdrawOutputs{
		Root:          big.NewInt(1),
		NullifierHash: big.NewInt(2),
		Recipient:     new(big.Int).Lsh(big.NewInt(1), 161),
		AmountLow:     big.NewInt(1),
		AmountHigh:    big.NewInt(0),
		Token:         token0,
	}
	assert.ErrorIs(t, c.ExecuteWithdraw(out), ErrValueOutOfRange)
	assert.Empty(t, c.Withdrawals())
}

func TestExecuteMintAndChange(t *testing.T) {
	c := New(newTestPool(t), nil)
	out := mintOutputs(1 << 20)

	need0, need1, err := c.Pool().QuoteLiquidity(out.TickLower, out.TickUpper, out.Liquidity)
	require.NoError(t, err)

	commitments, err := c.ExecuteMint(out)
	require.NoError(t, err)
	require.Len(t, commitments, 3)

	change0 := new(big.Int).Sub(out.Amount0, need0)
	change1 := new(big.Int).Sub(out.Amount1, need1)
	low0, high0, _ := note.SplitAmount(change0)
	low1, high1, _ := note.SplitAmount(change1)
	assert.Equal(t, note.CommitmentFromInner(out.ChangeInner0, low0, high0, token0), commitments[0])
	assert.Equal(t, note.CommitmentFromInner(out.ChangeInner1, low1, high1, token1), commitments[1])
	assert.Equal(t, out.PositionCommitment, commitments[2])
	assert.Equal(t, out.Liquidity, c.Pool().Liquidity())
}

func TestExecuteMintInsufficientDeposit(t *testing.T) {
	c := New(newTestPool(t), nil)
	out := mintOutputs(1 << 20)
	out.Amount0 = big.NewInt(1)

	_, err := c.ExecuteMint(out)
	assert.ErrorIs(t, err, ErrInsufficientDeposit)
	assert.Equal(t, int64(0), c.Pool().Liquidity().Int64())
}

func TestExecuteMintWrongTokens(t *testing.T) {
	c := New(newTestPool(t), nil)
	out := mintOutputs(1 << 20)
	out.Token1 = big.NewInt(9)

	_, err := c.ExecuteMint(out)
	assert.ErrorIs(t, err, ErrTokenPair)
}

func TestExecuteSwapCompletesOutput(t *testing.T) {
	c := New(newTestPool(t), nil)
	_, err := c.ExecuteMint(mintOutputs(1 << 30))
	require.NoError(t, err)

	out := &coordinator.SwapOutputs{
		ChangeCommitment: big.NewInt(801),
		Root:             big.NewInt(1),
		NullifierHash:    big.NewInt(21),
		NewInner:         big.NewInt(802),
		TokenIn:          token0,
		TokenOut:         token1,
		AmountIn:         big.NewInt(100000),
		AmountOutMin:     big.NewInt(1),
	}
	commitments, err := c.ExecuteSwap(out)
	require.NoError(t, err)
	require.Len(t, commitments, 2)
	assert.Equal(t, out.ChangeCommitment, commitments[0])
	// The completed output commitment must be the inner hash closed over the
	// realized amountOut and tokenOut; anything else will not be spendable.
	assert.NotEqual(t, out.NewInner, commitments[1])
}

func TestExecuteSwapPartialFillRejected(t *testing.T) {
	// No liquidity: the engine cannot consume the input, and the change
	// note already committed to amount minus amountIn, so accepting would
	// destroy the remainder.
	pool := newTestPool(t)
	c := New(pool, nil)

	out := &coordinator.SwapOutputs{
		ChangeCommitment: big.NewInt(801),
		Root:             big.NewInt(1),
		NullifierHash:    big.NewInt(21),
		NewInner:         big.NewInt(802),
		TokenIn:          token0,
		TokenOut:         token1,
		AmountIn:         big.NewInt(1_000_000),
		AmountOutMin:     big.NewInt(0),
	}
	commitments, err := c.ExecuteSwap(out)
	assert.ErrorIs(t, err, amm.ErrPartialFill)
	assert.Nil(t, commitments)

	// The rejection leaves the pool at its starting price.
	assert.Equal(t, 0, pool.Tick())
	assert.Equal(t, 0, pool.SqrtPrice().Cmp(amm.Q96))
}

func TestExecuteSwapUnknownPair(t *testing.T) {
	c := New(newTestPool(t), nil)
	out := &coordinator.SwapOutputs{
		ChangeCommitment: big.NewInt(801),
		Root:             big.NewInt(1),
		NullifierHash:    big.NewInt(21),
		NewInner:         big.NewInt(802),
		TokenIn:          token0,
		TokenOut:         big.NewInt(9),
		AmountIn:         big.NewInt(1000),
		AmountOutMin:     big.NewInt(0),
	}
	_, err := c.ExecuteSwap(out)
	assert.ErrorIs(t, err, ErrTokenPair)
}

func TestExecuteBurnPaysPrincipalAndFees(t *testing.T) {
	c := New(newTestPool(t), nil)
	mintOut := mintOutputs(1 << 30)
	_, err := c.ExecuteMint(mintOut)
	require.NoError(t, err)

	// Generate fees inside the range.
	swapOut := &coordinator.SwapOutputs{
		ChangeCommitment: big.NewInt(801),
		Root:             big.NewInt(1),
		NullifierHash:    big.NewInt(21),
		NewInner:         big.NewInt(802),
		TokenIn:          token0,
		TokenOut:         token1,
		AmountIn:         big.NewInt(1000000),
		AmountOutMin:     big.NewInt(1),
	}
	_, err = c.ExecuteSwap(swapOut)
	require.NoError(t, err)

	burnOut := &coordinator.BurnOutputs{
		Root:                  big.NewInt(1),
		PositionNullifierHash: big.NewInt(41),
		NewInner0:             big.NewInt(811),
		NewInner1:             big.NewInt(812),
		TickLower:             mintOut.TickLower,
		TickUpper:             mintOut.TickUpper,
		Liquidity:             mintOut.Liquidity,
	}
	commitments, err := c.ExecuteBurn(burnOut)
	require.NoError(t, err)
	require.Len(t, commitments, 2)

	// Sole LP burning in full: the position is zeroed, nothing left owed.
	pos, err := c.Pool().PositionAt("shielded:-1200:1200")
	require.NoError(t, err)
	assert.Equal(t, int64(0), pos.Liquidity.Int64())
	assert.Equal(t, int64(0), pos.TokensOwed0.Int64())
	assert.Equal(t, int64(0), pos.TokensOwed1.Int64())
	assert.Equal(t, int64(0), c.Pool().Liquidity().Int64())
}

func TestExecuteBurnUnknownRange(t *testing.T) {
	c := New(newTestPool(t), nil)
	out := &coordinator.BurnOutputs{
		Root:                  big.NewInt(1),
		PositionNullifierHash: big.NewInt(41),
		NewInner0:             big.NewInt(811),
		NewInner1:             big.NewInt(812),
		TickLower:             -600,
		TickUpper:             600,
		Liquidity:             big.NewInt(100),
	}
	_, err := c.ExecuteBurn(out)
	assert.ErrorIs(t, err, amm.ErrPositionNotFound)
}

// fakeTransferer tracks net balances moved through the public path.
type fakeTransferer struct {
	pulled map[string]*big.Int
	paid   map[string]*big.Int
	fail   bool
}

func newFakeTransferer() *fakeTransferer {
	return &fakeTransferer{pulled: make(map[string]*big.Int), paid: make(map[string]*big.Int)}
}

func (f *fakeTransferer) add(m map[string]*big.Int, token, amount *big.Int) {
	k := token.String()
	if m[k] == nil {
		m[k] = new(big.Int)
	}
	m[k].Add(m[k], amount)
}

func (f *fakeTransferer) Transfer(_ context.Context, token, _, amount *big.Int) error {
	if f.fail {
		return errors.New("transfer refused")
	}
	f.add(f.paid, token, amount)
	return nil
}

func (f *fakeTransferer) TransferFrom(_ context.Context, token, _, amount *big.Int) error {
	if f.fail {
		return errors.New("transfer refused")
	}
	f.add(f.pulled, token, amount)
	return nil
}

func TestPublicMintPullsFunds(t *testing.T) {
	ft := newFakeTransferer()
	c := New(newTestPool(t), ft)
	owner := big.NewInt(0xbeef)

	a0, a1, err := c.MintPublic(context.Background(), owner, -1200, 1200, big.NewInt(1<<20))
	require.NoError(t, err)
	assert.Equal(t, a0, ft.pulled[token0.String()])
	assert.Equal(t, a1, ft.pulled[token1.String()])
}

func TestPublicBurnRequiresOwnership(t *testing.T) {
	ft := newFakeTransferer()
	c := New(newTestPool(t), ft)

	_, _, err := c.BurnPublic(context.Background(), big.NewInt(0xbeef), -1200, 1200, big.NewInt(100))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestPublicSwapRoundTrip(t *testing.T) {
	ft := newFakeTransferer()
	c := New(newTestPool(t), ft)
	owner := big.NewInt(0xbeef)

	_, _, err := c.MintPublic(context.Background(), owner, -1200, 1200, big.NewInt(1<<30))
	require.NoError(t, err)

	limit := new(big.Int).Add(amm.MinSqrtRatio, big.NewInt(1))
	in, out, err := c.SwapPublic(context.Background(), owner, true, big.NewInt(100000), limit, nil)
	require.NoError(t, err)
	assert.True(t, in.Sign() > 0)
	assert.True(t, out.Sign() > 0)
	// amountIn pulled, amountOut paid back out.
	assert.Equal(t, ft.paid[token1.String()], out)
}
