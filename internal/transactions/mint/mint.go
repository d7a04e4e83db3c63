// mint.go - Witness construction, proving and verification for liquidity mints.

package mint

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

// PublicInputCount is the wire vector length for a mint.
const PublicInputCount = 13

// ErrWideDeposit is returned when a deposited note's amount does not fit a
// single limb; disclosed mint deposits are single-limb by construction.
var ErrWideDeposit = errors.New("mint: deposit amount exceeds one limb")

// InclusionProof is one input note's sibling path.
type InclusionProof struct {
	Siblings [merkle.Depth]*big.Int
	PathBits [merkle.Depth]bool
}

// Compile builds the constraint system over BN254.
func Compile() (constraint.ConstraintSystem, error) {
	return frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, &Circuit{})
}

// BuildWitness constructs the assignment for minting pos from deposits n0
// (token0) and n1 (token1). change0/change1 supply the randomness behind the
// published change inner hashes. Returns the public vector in wire order.
func BuildWitness(n0, n1 *note.Note, pos *note.PositionNote, change0, change1 *note.Note, root *big.Int, proof0, proof1 InclusionProof) (*Circuit, []*big.Int, error) {
	low0, high0, err := note.SplitAmount(n0.Amount)
	if err != nil {
		return nil, nil, err
	}
	low1, high1, err := note.SplitAmount(n1.Amount)
	if err != nil {
		return nil, nil, err
	}
	if high0.Sign() != 0 || high1.Sign() != 0 {
		return nil, nil, ErrWideDeposit
	}

	changeInner0 := note.InnerHash(change0.Secret, change0.Nullifier)
	changeInner1 := note.InnerHash(change1.Secret, change1.Nullifier)
	positionCommitment := pos.Commitment()
	nh0, nh1 := n0.NullifierHash(), n1.NullifierHash()
	tickLowerOff := big.NewInt(int64(pos.TickLower) + note.TickOffset)
	tickUpperOff := big.NewInt(int64(pos.TickUpper) + note.TickOffset)

	w := &Circuit{
		ChangeInner0:       changeInner0,
		ChangeInner1:       changeInner1,
		Root:               root,
		NullifierHash0:     nh0,
		NullifierHash1:     nh1,
		PositionCommitment: positionCommitment,
		TickLowerOff:       tickLowerOff,
		TickUpperOff:       tickUpperOff,
		Token0:             n0.Token,
		Token1:             n1.Token,
		Amount0:            low0,
		Amount1:            low1,
		Liquidity:          pos.Liquidity,
		Secret0:            n0.Secret,
		Nullifier0:         n0.Nullifier,
		Secret1:            n1.Secret,
		Nullifier1:         n1.Nullifier,
		PosSecret:          pos.Secret,
		PosNullifier:       pos.Nullifier,
	}
	for i := 0; i < merkle.Depth; i++ {
		w.Siblings0[i] = proof0.Siblings[i]
		w.PathBits0[i] = boolBit(proof0.PathBits[i])
		w.Siblings1[i] = proof1.Siblings[i]
		w.PathBits1[i] = boolBit(proof1.PathBits[i])
	}
	vec := []*big.Int{
		changeInner0, changeInner1, root, nh0, nh1, positionCommitment,
		tickLowerOff, tickUpperOff, n0.Token, n1.Token, low0, low1, pos.Liquidity,
	}
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
		return nil, fmt.Errorf("mint: want %d public inputs, got %d", PublicInputCount, len(vec))
	}
	return &Circuit{
		ChangeInner0:       vec[0],
		ChangeInner1:       vec[1],
		Root:               vec[2],
		NullifierHash0:     vec[3],
		NullifierHash1:     vec[4],
		PositionCommitment: vec[5],
		TickLowerOff:       vec[6],
		TickUpperOff:       vec[7],
		Token0:             vec[8],
		Token1:             vec[9],
		Amount0:            vec[10],
		Amount1:            vec[11],
		Liquidity:          vec[12],
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
