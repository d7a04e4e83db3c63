// circuit.go - Shielded liquidity mint circuit.
//
// Spends two notes, one per pool token, and commits to a position note over
// public ticks and liquidity. The deposited amounts are disclosed as public
// inputs so the engine can compute what the position actually consumes; the
// change remainders come back as notes completed outside the circuit from
// the published change inner hashes. Disclosed deposits fit a single amount
// limb; the high limb of each input note must be zero.

package mint

import (
	"github.com/consensys/gnark/frontend"

	"shieldpool/internal/transactions/gadget"
)

type Circuit struct {
	// Public, in wire order.
	ChangeInner0       frontend.Variable `gnark:",public"`
	ChangeInner1       frontend.Variable `gnark:",public"`
	Root               frontend.Variable `gnark:",public"`
	NullifierHash0     frontend.Variable `gnark:",public"`
	NullifierHash1     frontend.Variable `gnark:",public"`
	PositionCommitment frontend.Variable `gnark:",public"`
	TickLowerOff       frontend.Variable `gnark:",public"`
	TickUpperOff       frontend.Variable `gnark:",public"`
	Token0             frontend.Variable `gnark:",public"`
	Token1             frontend.Variable `gnark:",public"`
	Amount0            frontend.Variable `gnark:",public"`
	Amount1            frontend.Variable `gnark:",public"`
	Liquidity          frontend.Variable `gnark:",public"`

	// Private
	Secret0    frontend.Variable
	Nullifier0 frontend.Variable
	Secret1    frontend.Variable
	Nullifier1 frontend.Variable

	PosSecret    frontend.Variable
	PosNullifier frontend.Variable

	Siblings0 [gadget.MerkleDepth]frontend.Variable
	PathBits0 [gadget.MerkleDepth]frontend.Variable
	Siblings1 [gadget.MerkleDepth]frontend.Variable
	PathBits1 [gadget.MerkleDepth]frontend.Variable
}

func (c *Circuit) Define(api frontend.API) error {
	gadget.AssertAmountLimb(api, c.Amount0)
	gadget.AssertAmountLimb(api, c.Amount1)

	// Both input notes commit to the disclosed amounts with a zero high limb.
	inner0 := gadget.InnerHash(api, c.Secret0, c.Nullifier0)
	commitment0 := gadget.Commitment(api, inner0, c.Amount0, 0, c.Token0)
	root0 := gadget.MerkleRoot(api, commitment0, c.Siblings0, c.PathBits0)
	api.AssertIsEqual(c.Root, root0)

	inner1 := gadget.InnerHash(api, c.Secret1, c.Nullifier1)
	commitment1 := gadget.Commitment(api, inner1, c.Amount1, 0, c.Token1)
	root1 := gadget.MerkleRoot(api, commitment1, c.Siblings1, c.PathBits1)
	api.AssertIsEqual(c.Root, root1)

	api.AssertIsDifferent(c.Nullifier0, c.Nullifier1)
	api.AssertIsEqual(c.NullifierHash0, gadget.NullifierHash(api, c.Nullifier0))
	api.AssertIsEqual(c.NullifierHash1, gadget.NullifierHash(api, c.Nullifier1))

	position := gadget.PositionCommitment(api, c.PosSecret, c.PosNullifier, c.TickLowerOff, c.TickUpperOff, c.Liquidity)
	api.AssertIsEqual(c.PositionCommitment, position)

	gadget.BindPublic(api, c.ChangeInner0)
	gadget.BindPublic(api, c.ChangeInner1)
	return nil
}
