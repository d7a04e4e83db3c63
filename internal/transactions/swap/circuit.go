// circuit.go - Shielded swap circuit.
//
// Spends one note of tokenIn, commits to a change note carrying the unspent
// remainder, and publishes the inner hash of the output note. The output
// commitment itself is completed outside the circuit once the realized
// amountOut is known; the inner hash is what ties the output note to its
// owner. The input amount is spent from the low limb; the high limb carries
// through to the change note unchanged.

package swap

import (
	"github.com/consensys/gnark/frontend"

	"shieldpool/internal/transactions/gadget"
)

type Circuit struct {
	// Public, in wire order.
	ChangeCommitment frontend.Variable `gnark:",public"`
	Root             frontend.Variable `gnark:",public"`
	NullifierHash    frontend.Variable `gnark:",public"`
	NewInner         frontend.Variable `gnark:",public"`
	TokenIn          frontend.Variable `gnark:",public"`
	TokenOut         frontend.Variable `gnark:",public"`
	AmountIn         frontend.Variable `gnark:",public"`
	AmountOutMin     frontend.Variable `gnark:",public"`

	// Private
	Secret          frontend.Variable
	Nullifier       frontend.Variable
	AmountLow       frontend.Variable
	AmountHigh      frontend.Variable
	ChangeSecret    frontend.Variable
	ChangeNullifier frontend.Variable
	Siblings        [gadget.MerkleDepth]frontend.Variable
	PathBits        [gadget.MerkleDepth]frontend.Variable
}

func (c *Circuit) Define(api frontend.API) error {
	gadget.AssertAmountLimb(api, c.AmountLow)
	gadget.AssertAmountLimb(api, c.AmountHigh)
	gadget.AssertAmountLimb(api, c.AmountIn)

	inner := gadget.InnerHash(api, c.Secret, c.Nullifier)
	commitment := gadget.Commitment(api, inner, c.AmountLow, c.AmountHigh, c.TokenIn)
	root := gadget.MerkleRoot(api, commitment, c.Siblings, c.PathBits)
	api.AssertIsEqual(c.Root, root)

	api.AssertIsEqual(c.NullifierHash, gadget.NullifierHash(api, c.Nullifier))

	// Change note: remainder of the input, same token, fresh randomness.
	api.AssertIsLessOrEqual(c.AmountIn, c.AmountLow)
	changeLow := api.Sub(c.AmountLow, c.AmountIn)
	changeInner := gadget.InnerHash(api, c.ChangeSecret, c.ChangeNullifier)
	changeCommitment := gadget.Commitment(api, changeInner, changeLow, c.AmountHigh, c.TokenIn)
	api.AssertIsEqual(c.ChangeCommitment, changeCommitment)

	gadget.BindPublic(api, c.NewInner)
	gadget.BindPublic(api, c.TokenOut)
	gadget.BindPublic(api, c.AmountOutMin)
	return nil
}
