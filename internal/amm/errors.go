// errors.go - Error taxonomy of the concentrated-liquidity engine.
//
// Every error is fatal to the call that raised it: the engine applies no
// partial state and never retries internally.

package amm

import "errors"

var (
	ErrInvalidTickRange       = errors.New("amm: invalid tick range")
	ErrTickNotSpaced          = errors.New("amm: tick not a multiple of tick spacing")
	ErrZeroLiquidity          = errors.New("amm: zero liquidity")
	ErrZeroAmount             = errors.New("amm: zero amount")
	ErrSwapLoopLimitExceeded  = errors.New("amm: swap loop limit exceeded")
	ErrArithmeticOverflow     = errors.New("amm: arithmetic overflow")
	ErrPoolNotInitialized     = errors.New("amm: pool not initialized")
	ErrAlreadyInitialized     = errors.New("amm: pool already initialized")
	ErrInvalidSqrtPrice       = errors.New("amm: sqrt price out of range")
	ErrInvalidPriceLimit      = errors.New("amm: invalid sqrt price limit")
	ErrTokenOrder             = errors.New("amm: tokens not canonically ordered")
	ErrExactOutputUnsupported = errors.New("amm: exact-output swaps are not supported")
	ErrPositionNotFound       = errors.New("amm: position not found")
	ErrSlippage               = errors.New("amm: swap output below minimum")
	ErrPartialFill            = errors.New("amm: swap input not fully consumed")
	ErrInsufficientLiquidity  = errors.New("amm: position liquidity too small")
)
