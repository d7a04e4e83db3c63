// oracle.go - Groth16 verification oracle.
//
// Implements the coordinator's Verifier interface with one verifying key per
// operation kind. On success the claimed public vector is returned as the
// ordered outputs; the proof has attested to exactly those values.

package oracle

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark/backend/groth16"

	"shieldpool/internal/coordinator"
	"shieldpool/internal/transactions/burn"
	"shieldpool/internal/transactions/mint"
	"shieldpool/internal/transactions/swap"
	"shieldpool/internal/transactions/withdraw"
)

var ErrUnknownKind = errors.New("oracle: no verifying key for operation kind")

type Groth16Oracle struct {
	vks map[coordinator.Kind]groth16.VerifyingKey
}

func New() *Groth16Oracle {
	return &Groth16Oracle{vks: make(map[coordinator.Kind]groth16.VerifyingKey)}
}

// Register installs the verifying key for one operation kind.
func (o *Groth16Oracle) Register(kind coordinator.Kind, vk groth16.VerifyingKey) {
	o.vks[kind] = vk
}

// Verify checks the proof against the public vector for the given kind and
// returns the vector in wire order.
func (o *Groth16Oracle) Verify(kind coordinator.Kind, proof []byte, publicInputs []*big.Int) ([]*big.Int, error) {
	vk, ok := o.vks[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	var err error
	switch kind {
	case coordinator.KindWithdraw:
		err = withdraw.Verify(vk, proof, publicInputs)
	case coordinator.KindSwap:
		err = swap.Verify(vk, proof, publicInputs)
	case coordinator.KindMint:
		err = mint.Verify(vk, proof, publicInputs)
	case coordinator.KindBurn:
		err = burn.Verify(vk, proof, publicInputs)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, err
	}
	return publicInputs, nil
}
