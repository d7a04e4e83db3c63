// swap.go - Witness construction, proving and verification for shielded swaps.

package swap

import (
	"bytes"
	"errors"
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

// PublicInputCount is the wire vector length for a swap.
const PublicInputCount = 8

// ErrAmountHighSpend is returned when amountIn exceeds the input note's low
// limb; in-circuit spending only draws from the low limb.
var ErrAmountHighSpend = errors.New("swap: amountIn exceeds low amount limb")

// Compile builds the constraint system over BN254.
func Compile() (constraint.ConstraintSystem, error) {
	return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &Circuit{})
}

// BuildWitness constructs the assignment for swapping amountIn of n's token
// toward tokenOut. change receives the remainder of n; out is the output
// note whose inner hash goes on the wire. Returns the public vector in wire
// order.
func BuildWitness(n, change, out *note.Note, root, amountIn, amountOutMin *big.Int, siblings [merkle.Depth]*big.Int, pathBits [merkle.Depth]bool) (*Circuit, []*big.Int, error) {
	low, high, err := note.SplitAmount(n.Amount)
	if err != nil {
		return nil, nil, err
	}
	if amountIn.Cmp(low) > 0 {
		return nil, nil, ErrAmountHighSpend
	}
	changeLow := new(big.Int).Sub(low, amountIn)
	changeCommitment := note.Commitment(change.Secret, change.Nullifier, changeLow, high, n.Token)
	newInner := note.InnerHash(out.Secret, out.Nullifier)
	nullifierHash := n.NullifierHash()

	w := &Circuit{
		ChangeCommitment: changeCommitment,
		Root:             root,
		NullifierHash:    nullifierHash,
		NewInner:         newInner,
		TokenIn:          n.Token,
		TokenOut:         out.Token,
		AmountIn:         amountIn,
		AmountOutMin:     amountOutMin,
		Secret:           n.Secret,
		Nullifier:        n.Nullifier,
		AmountLow:        low,
		AmountHigh:       high,
		ChangeSecret:     change.Secret,
		ChangeNullifier:  change.Nullifier,
	}
	for i := 0; i < merkle.Depth; i++ {
		w.Siblings[i] = siblings[i]
		w.PathBits[i] = boolBit(pathBits[i])
	}
	vec := []*big.Int{changeCommitment, root, nullifierHash, newInner, n.Token, out.Token, amountIn, amountOutMin}
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
		return nil, fmt.Errorf("swap: want %d public inputs, got %d", PublicInputCount, len(vec))
	}
	return &Circuit{
		ChangeCommitment: vec[0],
		Root:             vec[1],
		NullifierHash:    vec[2],
		NewInner:         vec[3],
		TokenIn:          vec[4],
		TokenOut:         vec[5],
		AmountIn:         vec[6],
		AmountOutMin:     vec[7],
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
