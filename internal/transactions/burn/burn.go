// burn.go - Witness construction, proving and verification for liquidity burns.

package burn

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"shieldpool/internal/merkle"
	"shieldpool/internal/note"
)

// PublicInputCount is the wire vector length for a burn.
const PublicInputCount = 7

// Compile builds the constraint system over BN254.
func Compile() (constraint.ConstraintSystem, error) {
	return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &Circuit{})
}

// BuildWitness constructs the assignment for burning pos in full. out0/out1
// supply the randomness behind the two published output inner hashes.
// Returns the public vector in wire order.
func BuildWitness(pos *note.PositionNote, out0, out1 *note.Note, root *big.Int, siblings [merkle.Depth]*big.Int, pathBits [merkle.Depth]bool) (*Circuit, []*big.Int, error) {
	newInner0 := note.InnerHash(out0.Secret, out0.Nullifier)
	newInner1 := note.InnerHash(out1.Secret, out1.Nullifier)
	nullifierHash := pos.NullifierHash()
	tickLowerOff := big.NewInt(int64(pos.TickLower) + note.TickOffset)
	tickUpperOff := big.NewInt(int64(pos.TickUpper) + note.TickOffset)

	w := &Circuit{
		Root:                  root,
		PositionNullifierHash: nullifierHash,
		NewInner0:             newInner0,
		NewInner1:             newInner1,
		TickLowerOff:          tickLowerOff,
		TickUpperOff:          tickUpperOff,
		Liquidity:             pos.Liquidity,
		PosSecret:             pos.Secret,
		PosNullifier:          pos.Nullifier,
	}
	for i := 0; i < merkle.Depth; i++ {
		w.Siblings[i] = siblings[i]
		w.PathBits[i] = boolBit(pathBits[i])
	}
	vec := []*big.Int{root, nullifierHash, newInner0, newInner1, tickLowerOff, tickUpperOff, pos.Liquidity}
	return w, vec, nil
}

// Prove produces a serialized Groth16 proof for the assignment.
func Prove(ccs constraint.ConstraintSystem, pk groth16.ProvingKey, assignment *Circuit) ([]byte, error) {
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, err
	}
	proof, err := groth16.Prove(ccs, pk, w)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := proof.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PublicAssignment fills only the public fields from the wire vector.
func PublicAssignment(vec []*big.Int) (*Circuit, error) {
	if len(vec) != PublicInputCount {
		return nil, fmt.Errorf("burn: want %d public inputs, got %d", PublicInputCount, len(vec))
	}
	return &Circuit{
		Root:                  vec[0],
		PositionNullifierHash: vec[1],
		NewInner0:             vec[2],
		NewInner1:             vec[3],
		TickLowerOff:          vec[4],
		TickUpperOff:          vec[5],
		Liquidity:             vec[6],
	}, nil
}

// Verify checks a serialized proof against the wire vector.
func Verify(vk groth16.VerifyingKey, proofBytes []byte, vec []*big.Int) error {
	assignment, err := PublicAssignment(vec)
	if err != nil {
		return err
	}
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return err
	}
	proof := groth16.NewProof(ecc.BN254)
	if _, err := proof.ReadFrom(bytes.NewReader(proofBytes)); err != nil {
		return err
	}
	return groth16.Verify(proof, vk, w)
}

func boolBit(b bool) frontend.Variable {
	if b {
		return 1
	}
	return 0
}
