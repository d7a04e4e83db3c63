// circuit.go - Shielded liquidity burn circuit.
//
// Proves ownership of a position note included under a known root and reveals
// its ticks and liquidity so the engine can unwind the position in full. The
// two output notes (principal plus fees per token) are completed outside the
// circuit from the published inner hashes once the owed amounts are known.

package burn

import (
	"github.com/consensys/gnark/frontend"

	"shieldpool/internal/transactions/gadget"
)

type Circuit struct {
	// Public, in wire order.
	Root                  frontend.Variable `gnark:",public"`
	PositionNullifierHash frontend.Variable `gnark:",public"`
	NewInner0             frontend.Variable `gnark:",public"`
	NewInner1             frontend.Variable `gnark:",public"`
	TickLowerOff          frontend.Variable `gnark:",public"`
	TickUpperOff          frontend.Variable `gnark:",public"`
	Liquidity             frontend.Variable `gnark:",public"`

	// Private
	PosSecret    frontend.Variable
	PosNullifier frontend.Variable
	Siblings     [gadget.MerkleDepth]frontend.Variable
	PathBits     [gadget.MerkleDepth]frontend.Variable
}

func (c *Circuit) Define(api frontend.API) error {
	position := gadget.PositionCommitment(api, c.PosSecret, c.PosNullifier, c.TickLowerOff, c.TickUpperOff, c.Liquidity)
	root := gadget.MerkleRoot(api, position, c.Siblings, c.PathBits)
	api.AssertIsEqual(c.Root, root)

	api.AssertIsEqual(c.PositionNullifierHash, gadget.NullifierHash(api, c.PosNullifier))

	gadget.BindPublic(api, c.NewInner0)
	gadget.BindPublic(api, c.NewInner1)
	return nil
}
