// withdraw.go - Witness construction, proving and verification for withdrawals.

package withdraw

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

// PublicInputCount is the wire vector length for a withdrawal.
const PublicInputCount = 6

// Compile builds the constraint system over BN254.
func Compile() (constraint.ConstraintSystem, error) {
	return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &Circuit{})
}

// BuildWitness constructs the full assignment for spending n to recipient,
// along with the public vector in wire order.
func BuildWitness(n *note.Note, root, recipient *big.Int, siblings [merkle.Depth]*big.Int, pathBits [merkle.Depth]bool) (*Circuit, []*big.Int, error) {
	low, high, err := note.SplitAmount(n.Amount)
	if err != nil {
		return nil, nil, err
	}
	nullifierHash := n.NullifierHash()
	w := &Circuit{
		Root:          root,
		NullifierHash: nullifierHash,
		Recipient:     recipient,
		AmountLow:     low,
		AmountHigh:    high,
		Token:         n.Token,
		Secret:        n.Secret,
		Nullifier:     n.Nullifier,
	}
	for i := 0; i < merkle.Depth; i++ {
		w.Siblings[i] = siblings[i]
		w.PathBits[i] = boolBit(pathBits[i])
	}
	vec := []*big.Int{root, nullifierHash, recipient, low, high, n.Token}
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
		return nil, fmt.Errorf("withdraw: want %d public inputs, got %d", PublicInputCount, len(vec))
	}
	return &Circuit{
		Root:          vec[0],
		NullifierHash: vec[1],
		Recipient:     vec[2],
		AmountLow:     vec[3],
		AmountHigh:    vec[4],
		Token:         vec[5],
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
