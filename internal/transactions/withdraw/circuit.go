// circuit.go - Withdrawal circuit.
//
// Proves ownership of an unspent note included under a known root and binds
// the public recipient, amount halves and token to the statement. Public
// input order is the wire contract shared with the coordinator.

package withdraw

import (
	"github.com/consensys/gnark/frontend"

	"shieldpool/internal/transactions/gadget"
)

type Circuit struct {
	// Public, in wire order.
	Root          frontend.Variable `gnark:",public"`
	NullifierHash frontend.Variable `gnark:",public"`
	Recipient     frontend.Variable `gnark:",public"`
	AmountLow     frontend.Variable `gnark:",public"`
	AmountHigh    frontend.Variable `gnark:",public"`
	Token         frontend.Variable `gnark:",public"`

	// Private
	Secret    frontend.Variable
	Nullifier frontend.Variable
	Siblings  [gadget.MerkleDepth]frontend.Variable
	PathBits  [gadget.MerkleDepth]frontend.Variable
}

func (c *Circuit) Define(api frontend.API) error {
	gadget.AssertAmountLimb(api, c.AmountLow)
	gadget.AssertAmountLimb(api, c.AmountHigh)

	inner := gadget.InnerHash(api, c.Secret, c.Nullifier)
	commitment := gadget.Commitment(api, inner, c.AmountLow, c.AmountHigh, c.Token)
	root := gadget.MerkleRoot(api, commitment, c.Siblings, c.PathBits)
	api.AssertIsEqual(c.Root, root)

	api.AssertIsEqual(c.NullifierHash, gadget.NullifierHash(api, c.Nullifier))

	gadget.BindPublic(api, c.Recipient)
	return nil
}
