// public.go - Pool controller, non-shielded path.
//
// The same engine exposed to callers who move real tokens instead of notes.
// Positions are keyed by owner and range; value moves through the
// TokenTransferer, with funds pulled before the engine mutates and refunded
// when it refuses.

package controller

import (
	"context"
	"fmt"
	"math/big"
)

// TokenTransferer is the standard fungible transfer surface backing the
// public path.
type TokenTransferer interface {
	Transfer(ctx context.Context, token, to, amount *big.Int) error
	TransferFrom(ctx context.Context, token, from, amount *big.Int) error
}

func ownerKey(owner *big.Int, tickLower, tickUpper int) string {
	return fmt.Sprintf("owner:%s:%d:%d", owner.Text(16), tickLower, tickUpper)
}

// MintPublic adds liquidity for owner, pulling the required token amounts.
func (c *Controller) MintPublic(ctx context.Context, owner *big.Int, tickLower, tickUpper int, liquidity *big.Int) (amount0, amount1 *big.Int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	need0, need1, err := c.pool.QuoteLiquidity(tickLower, tickUpper, liquidity)
	if err != nil {
		return nil, nil, err
	}
	if err := c.transferer.TransferFrom(ctx, c.pool.TokenLow, owner, need0); err != nil {
		return nil, nil, err
	}
	if err := c.transferer.TransferFrom(ctx, c.pool.TokenHigh, owner, need1); err != nil {
		if rbErr := c.transferer.Transfer(ctx, c.pool.TokenLow, owner, need0); rbErr != nil {
			return nil, nil, fmt.Errorf("refund after failed pull: %v: %w", rbErr, err)
		}
		return nil, nil, err
	}
	amount0, amount1, err = c.pool.Mint(ownerKey(owner, tickLower, tickUpper), tickLower, tickUpper, liquidity)
	if err != nil {
		if rbErr := c.refund(ctx, owner, need0, need1); rbErr != nil {
			return nil, nil, fmt.Errorf("refund after failed mint: %v: %w", rbErr, err)
		}
		return nil, nil, err
	}
	return amount0, amount1, nil
}

func (c *Controller) refund(ctx context.Context, owner, amount0, amount1 *big.Int) error {
	if err := c.transferer.Transfer(ctx, c.pool.TokenLow, owner, amount0); err != nil {
		return err
	}
	return c.transferer.Transfer(ctx, c.pool.TokenHigh, owner, amount1)
}

// BurnPublic removes liquidity from owner's position and credits the freed
// amounts to its owed balances. Collect pays them out.
func (c *Controller) BurnPublic(ctx context.Context, owner *big.Int, tickLower, tickUpper int, liquidity *big.Int) (amount0, amount1 *big.Int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := ownerKey(owner, tickLower, tickUpper)
	if _, err := c.pool.PositionAt(key); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return c.pool.Burn(key, tickLower, tickUpper, liquidity)
}

// CollectPublic drains owner's owed balances for the range and pays them out.
func (c *Controller) CollectPublic(ctx context.Context, owner *big.Int, tickLower, tickUpper int) (amount0, amount1 *big.Int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := ownerKey(owner, tickLower, tickUpper)
	amount0, amount1, err = c.pool.Collect(key)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if err := c.transferer.Transfer(ctx, c.pool.TokenLow, owner, amount0); err != nil {
		return nil, nil, err
	}
	if err := c.transferer.Transfer(ctx, c.pool.TokenHigh, owner, amount1); err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

// SwapPublic pulls amountSpecified of the input token, swaps, refunds any
// unconsumed input and pays out the output token.
func (c *Controller) SwapPublic(ctx context.Context, owner *big.Int, zeroForOne bool, amountSpecified, sqrtPriceLimit, minAmountOut *big.Int) (amountIn, amountOut *big.Int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tokenIn, tokenOut := c.pool.TokenLow, c.pool.TokenHigh
	if !zeroForOne {
		tokenIn, tokenOut = tokenOut, tokenIn
	}
	if err := c.transferer.TransferFrom(ctx, tokenIn, owner, amountSpecified); err != nil {
		return nil, nil, err
	}
	amountIn, amountOut, err = c.pool.Swap(zeroForOne, amountSpecified, sqrtPriceLimit, minAmountOut)
	if err != nil {
		if rbErr := c.transferer.Transfer(ctx, tokenIn, owner, amountSpecified); rbErr != nil {
			return nil, nil, fmt.Errorf("refund after failed swap: %v: %w", rbErr, err)
		}
		return nil, nil, err
	}
	if unused := new(big.Int).Sub(amountSpecified, amountIn); unused.Sign() > 0 {
		if err := c.transferer.Transfer(ctx, tokenIn, owner, unused); err != nil {
			return nil, nil, err
		}
	}
	if err := c.transferer.Transfer(ctx, tokenOut, owner, amountOut); err != nil {
		return nil, nil, err
	}
	return amountIn, amountOut, nil
}
