// keys.go - Circuit compilation and Groth16 key management.

package oracle

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"

	"shieldpool/internal/coordinator"
	"shieldpool/internal/transactions/burn"
	"shieldpool/internal/transactions/mint"
	"shieldpool/internal/transactions/swap"
	"shieldpool/internal/transactions/withdraw"
)

// Keys bundles the proving artifacts for one operation circuit.
type Keys struct {
	CCS constraint.ConstraintSystem
	PK  groth16.ProvingKey
	VK  groth16.VerifyingKey
}

// CompileKind builds the constraint system for one operation kind.
func CompileKind(kind coordinator.Kind) (constraint.ConstraintSystem, error) {
	switch kind {
	case coordinator.KindWithdraw:
		return withdraw.Compile()
	case coordinator.KindSwap:
		return swap.Compile()
	case coordinator.KindMint:
		return mint.Compile()
	case coordinator.KindBurn:
		return burn.Compile()
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
}

// SetupKeys compiles the circuit for kind and runs the Groth16 setup.
func SetupKeys(kind coordinator.Kind) (*Keys, error) {
	ccs, err := CompileKind(kind)
	if err != nil {
		return nil, err
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, err
	}
	return &Keys{CCS: ccs, PK: pk, VK: vk}, nil
}

// SaveProvingKey writes a proving key to disk.
func SaveProvingKey(path string, pk groth16.ProvingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = pk.WriteTo(f)
	return err
}

// SaveVerifyingKey writes a verifying key to disk.
func SaveVerifyingKey(path string, vk groth16.VerifyingKey) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = vk.WriteTo(f)
	return err
}

// LoadProvingKey reads a proving key from disk.
func LoadProvingKey(path string) (groth16.ProvingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pk := groth16.NewProvingKey(ecc.BN254)
	_, err = pk.ReadFrom(f)
	return pk, err
}

// LoadVerifyingKey reads a verifying key from disk.
func LoadVerifyingKey(path string) (groth16.VerifyingKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	vk := groth16.NewVerifyingKey(ecc.BN254)
	_, err = vk.ReadFrom(f)
	return vk, err
}

func keyPaths(dir string, kind coordinator.Kind) (pkPath, vkPath string) {
	return filepath.Join(dir, kind.String()+".pk"), filepath.Join(dir, kind.String()+".vk")
}

// SetupOrLoadKeys loads the keys for kind from dir when both files exist,
// otherwise generates and saves a fresh pair. The constraint system is
// recompiled either way.
func SetupOrLoadKeys(kind coordinator.Kind, dir string) (*Keys, error) {
	pkPath, vkPath := keyPaths(dir, kind)
	pk, pkErr := LoadProvingKey(pkPath)
	vk, vkErr := LoadVerifyingKey(vkPath)
	ccs, err := CompileKind(kind)
	if err != nil {
		return nil, err
	}
	if pkErr == nil && vkErr == nil {
		return &Keys{CCS: ccs, PK: pk, VK: vk}, nil
	}
	pk, vk, err = groth16.Setup(ccs)
	if err != nil {
		return nil, err
	}
	if err := SaveProvingKey(pkPath, pk); err != nil {
		return nil, err
	}
	if err := SaveVerifyingKey(vkPath, vk); err != nil {
		return nil, err
	}
	return &Keys{CCS: ccs, PK: pk, VK: vk}, nil
}

// AllKinds lists every operation kind with a circuit.
func AllKinds() []coordinator.Kind {
	return []coordinator.Kind{
		coordinator.KindWithdraw,
		coordinator.KindSwap,
		coordinator.KindMint,
		coordinator.KindBurn,
	}
}
