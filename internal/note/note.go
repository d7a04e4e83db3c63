// note.go - Note types and the pure commitment scheme.
//
// A Note is the private record (secret, nullifier, amount, token) known only
// to its owner; the pool only ever sees its commitment. A PositionNote is the
// private record behind a shielded concentrated-liquidity position.
//
// The hash chain is a wire contract: any conforming implementation must
// reproduce these functions bit for bit, including input ordering.

package note

import (
	"errors"
	"math/big"
)

// TickOffset is the maximum representable tick magnitude. Signed ticks are
// carried on the wire and inside position commitments as tick+TickOffset so
// every value is a non-negative field element.
const TickOffset = 887272

// amountHalfBits is the width of one amount limb. A note amount is 256 bits,
// split into low/high 128-bit halves for in-field arithmetic.
const amountHalfBits = 128

var amountHalfMod = new(big.Int).Lsh(big.NewInt(1), amountHalfBits)

var (
	ErrAmountTooWide = errors.New("note: amount exceeds 256 bits")
	ErrHalfTooWide   = errors.New("note: amount half exceeds 128 bits")
)

// Note is a confidential value record. Amount is the full 256-bit amount;
// Token is the token identifier as a field element.
type Note struct {
	Secret    *big.Int
	Nullifier *big.Int
	Amount    *big.Int
	Token     *big.Int
}

// NewNote creates a note with fresh randomness for the given amount and token.
func NewNote(amount, token *big.Int) (*Note, error) {
	if amount.BitLen() > 2*amountHalfBits {
		return nil, ErrAmountTooWide
	}
	return &Note{
		Secret:    randomFieldElement(),
		Nullifier: randomFieldElement(),
		Amount:    new(big.Int).Set(amount),
		Token:     new(big.Int).Set(token),
	}, nil
}

// SplitAmount splits a 256-bit amount into its low and high 128-bit halves.
func SplitAmount(amount *big.Int) (low, high *big.Int, err error) {
	if amount.BitLen() > 2*amountHalfBits {
		return nil, nil, ErrAmountTooWide
	}
	low = new(big.Int).Mod(amount, amountHalfMod)
	high = new(big.Int).Rsh(amount, amountHalfBits)
	return low, high, nil
}

// JoinAmount recombines low/high 128-bit halves into the full amount.
// Fails if either half does not fit its limb; a conforming caller never
// truncates silently.
func JoinAmount(low, high *big.Int) (*big.Int, error) {
	if low.BitLen() > amountHalfBits || high.BitLen() > amountHalfBits {
		return nil, ErrHalfTooWide
	}
	out := new(big.Int).Lsh(high, amountHalfBits)
	return out.Add(out, low), nil
}

// InnerHash computes H(secret, nullifier), the ownership binding of a note.
func InnerHash(secret, nullifier *big.Int) *big.Int {
	return hashFields(secret, nullifier)
}

// Commitment computes the full note commitment
// H(H(secret, nullifier), amountLow, amountHigh, token).
func Commitment(secret, nullifier, amountLow, amountHigh, token *big.Int) *big.Int {
	return CommitmentFromInner(InnerHash(secret, nullifier), amountLow, amountHigh, token)
}

// CommitmentFromInner completes a commitment from a note's inner hash. The
// pool controller uses this to turn a proven inner hash plus engine-computed
// amounts into the inserted output commitment.
func CommitmentFromInner(inner, amountLow, amountHigh, token *big.Int) *big.Int {
	return hashFields(inner, amountLow, amountHigh, token)
}

// NullifierHash computes H(nullifier), revealed once to spend a note.
func NullifierHash(nullifier *big.Int) *big.Int {
	return hashFields(nullifier)
}

// Commitment returns the note's commitment.
func (n *Note) Commitment() (*big.Int, error) {
	low, high, err := SplitAmount(n.Amount)
	if err != nil {
		return nil, err
	}
	return Commitment(n.Secret, n.Nullifier, low, high, n.Token), nil
}

// NullifierHash returns the note's nullifier hash.
func (n *Note) NullifierHash() *big.Int {
	return NullifierHash(n.Nullifier)
}

// PositionNote is the private record behind a shielded liquidity position.
type PositionNote struct {
	Secret    *big.Int
	Nullifier *big.Int
	TickLower int
	TickUpper int
	Liquidity *big.Int
}

// NewPositionNote creates a position note with fresh randomness.
func NewPositionNote(tickLower, tickUpper int, liquidity *big.Int) *PositionNote {
	return &PositionNote{
		Secret:    randomFieldElement(),
		Nullifier: randomFieldElement(),
		TickLower: tickLower,
		TickUpper: tickUpper,
		Liquidity: new(big.Int).Set(liquidity),
	}
}

// PositionCommitment computes
// H(secret, nullifier, tickLower+TickOffset, tickUpper+TickOffset, liquidity).
// Ticks are hashed in offset form so the preimage is all non-negative.
func PositionCommitment(secret, nullifier *big.Int, tickLower, tickUpper int, liquidity *big.Int) *big.Int {
	return hashFields(
		secret,
		nullifier,
		big.NewInt(int64(tickLower)+TickOffset),
		big.NewInt(int64(tickUpper)+TickOffset),
		liquidity,
	)
}

// Commitment returns the position note's commitment.
func (p *PositionNote) Commitment() *big.Int {
	return PositionCommitment(p.Secret, p.Nullifier, p.TickLower, p.TickUpper, p.Liquidity)
}

// NullifierHash returns the position note's nullifier hash.
func (p *PositionNote) NullifierHash() *big.Int {
	return NullifierHash(p.Nullifier)
}
