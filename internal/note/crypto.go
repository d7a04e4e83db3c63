// crypto.go - Hash primitives for the shielded pool commitment scheme.
//
// All commitments and nullifier hashes are MiMC over the BN254 scalar field,
// matching the in-circuit MiMC used by the operation circuits. Every input is
// written as a 32-byte big-endian block so the native hash consumes exactly
// the field elements the circuit does.

package note

import (
	"crypto/rand"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// FieldModulus is the BN254 scalar field modulus. Commitments, nullifier
// hashes and every public input live in this field.
var FieldModulus = ecc.BN254.ScalarField()

// modBytes is the byte width of a field element (32 for BN254).
var modBytes = len(FieldModulus.Bytes())

// padToModBytes left-pads a field element to the full 32-byte block the
// native MiMC expects.
func padToModBytes(v *big.Int) []byte {
	b := v.Bytes()
	return append(make([]byte, modBytes-len(b)), b...)
}

// hashFields computes MiMC(v0, v1, ...) over BN254, each input consumed as
// one field element. Inputs must already be reduced below the modulus.
func hashFields(vals ...*big.Int) *big.Int {
	h := mimc.NewMiMC()
	for _, v := range vals {
		if _, err := h.Write(padToModBytes(v)); err != nil {
			panic("note: mimc write: " + err.Error())
		}
	}
	return new(big.Int).SetBytes(h.Sum(nil))
}

// randomFieldElement draws a uniformly random element of the BN254 scalar
// field using crypto/rand. Used for note secrets and nullifiers.
func randomFieldElement() *big.Int {
	v, err := rand.Int(rand.Reader, FieldModulus)
	if err != nil {
		panic("note: randomness unavailable: " + err.Error())
	}
	return v
}
