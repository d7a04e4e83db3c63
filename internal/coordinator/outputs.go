// outputs.go - Positional decoding of verified public-input vectors.
//
// Position in the vector is the wire contract. Ticks travel as non-negative
// offsets (signedTick + note.TickOffset) and are re-centered here; anything
// outside [0, 2*TickOffset] is rejected before the engine ever sees it.

package coordinator

import (
	"math/big"

	"shieldpool/internal/note"
	"shieldpool/internal/registry"
)

// WithdrawOutputs is the decoded tuple of an accepted withdrawal.
type WithdrawOutputs struct {
	Root          *big.Int
	NullifierHash *big.Int
	Recipient     *big.Int
	AmountLow     *big.Int
	AmountHigh    *big.Int
	Token         *big.Int
}

// SwapOutputs is the decoded tuple of an accepted shielded swap. NewInner is
// the inner hash of the output note; the pool controller completes it into a
// full commitment once the realized output amount is known.
type SwapOutputs struct {
	ChangeCommitment *big.Int
	Root             *big.Int
	NullifierHash    *big.Int
	NewInner         *big.Int
	TokenIn          *big.Int
	TokenOut         *big.Int
	AmountIn         *big.Int
	AmountOutMin     *big.Int
}

// MintOutputs is the decoded tuple of an accepted shielded mint plus the
// auxiliary public inputs the engine needs (deposited amounts and liquidity).
// ChangeInner0/1 are inner hashes completed by the controller with the
// unconsumed remainder of each deposit.
type MintOutputs struct {
	ChangeInner0       *big.Int
	ChangeInner1       *big.Int
	Root               *big.Int
	NullifierHash0     *big.Int
	NullifierHash1     *big.Int
	PositionCommitment *big.Int
	TickLower          int
	TickUpper          int
	Token0             *big.Int
	Token1             *big.Int
	Amount0            *big.Int
	Amount1            *big.Int
	Liquidity          *big.Int
}

// BurnOutputs is the decoded tuple of an accepted shielded burn. NewInner0/1
// are inner hashes completed by the controller with the owed token amounts.
type BurnOutputs struct {
	Root                  *big.Int
	PositionNullifierHash *big.Int
	NewInner0             *big.Int
	NewInner1             *big.Int
	TickLower             int
	TickUpper             int
	Liquidity             *big.Int
}

var maxTickWire = big.NewInt(2 * note.TickOffset)

// decodeTick re-centers a wire-encoded tick. The wire value must fit in
// [0, 2*TickOffset]; a field element outside that range never narrows
// silently.
func decodeTick(v *big.Int) (int, error) {
	if v.Sign() < 0 || v.Cmp(maxTickWire) > 0 {
		return 0, ErrTickOutOfRange
	}
	return int(v.Int64()) - note.TickOffset, nil
}

func decodeWithdraw(vec []*big.Int) (*WithdrawOutputs, error) {
	out := &WithdrawOutputs{
		Root:          vec[0],
		NullifierHash: vec[1],
		Recipient:     vec[2],
		AmountLow:     vec[3],
		AmountHigh:    vec[4],
		Token:         vec[5],
	}
	if out.AmountLow.Sign() == 0 && out.AmountHigh.Sign() == 0 {
		return nil, ErrZeroAmount
	}
	return out, nil
}

func decodeSwap(vec []*big.Int) (*SwapOutputs, error) {
	out := &SwapOutputs{
		ChangeCommitment: vec[0],
		Root:             vec[1],
		NullifierHash:    vec[2],
		NewInner:         vec[3],
		TokenIn:          vec[4],
		TokenOut:         vec[5],
		AmountIn:         vec[6],
		AmountOutMin:     vec[7],
	}
	if out.TokenIn.Cmp(out.TokenOut) == 0 {
		return nil, ErrTokenPair
	}
	return out, nil
}

func decodeMint(vec []*big.Int) (*MintOutputs, error) {
	tickLower, err := decodeTick(vec[6])
	if err != nil {
		return nil, err
	}
	tickUpper, err := decodeTick(vec[7])
	if err != nil {
		return nil, err
	}
	if tickLower >= tickUpper {
		return nil, ErrInvalidTickRange
	}
	// Two distinct input notes; a duplicate nullifier would let one note
	// fund both sides.
	if vec[3].Cmp(vec[4]) == 0 {
		return nil, registry.ErrNullifierAlreadySpent
	}
	out := &MintOutputs{
		ChangeInner0:       vec[0],
		ChangeInner1:       vec[1],
		Root:               vec[2],
		NullifierHash0:     vec[3],
		NullifierHash1:     vec[4],
		PositionCommitment: vec[5],
		TickLower:          tickLower,
		TickUpper:          tickUpper,
		Token0:             vec[8],
		Token1:             vec[9],
		Amount0:            vec[10],
		Amount1:            vec[11],
		Liquidity:          vec[12],
	}
	// Canonical pool ordering: lower token identifier first.
	if out.Token0.Cmp(out.Token1) >= 0 {
		return nil, ErrTokenPair
	}
	return out, nil
}

func decodeBurn(vec []*big.Int) (*BurnOutputs, error) {
	tickLower, err := decodeTick(vec[4])
	if err != nil {
		return nil, err
	}
	tickUpper, err := decodeTick(vec[5])
	if err != nil {
		return nil, err
	}
	if tickLower >= tickUpper {
		return nil, ErrInvalidTickRange
	}
	return &BurnOutputs{
		Root:                  vec[0],
		PositionNullifierHash: vec[1],
		NewInner0:             vec[2],
		NewInner1:             vec[3],
		TickLower:             tickLower,
		TickUpper:             tickUpper,
		Liquidity:             vec[6],
	}, nil
}
