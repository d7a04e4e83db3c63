// gadget.go - Shared in-circuit building blocks for the operation circuits.
//
// These mirror the native commitment scheme in internal/note field for field:
// gnark's std mimc pads every written variable to a full field-element block,
// which matches the native hasher's fixed 32-byte input blocks, so the two
// sides agree on every digest.

package gadget

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
)

// MerkleDepth must equal the accumulator depth on the native side.
const MerkleDepth = 20

// AmountBits is the width of one amount limb.
const AmountBits = 128

func hash(api frontend.API, vals ...frontend.Variable) frontend.Variable {
	h, _ := mimc.NewMiMC(api)
	h.Write(vals...)
	return h.Sum()
}

// InnerHash computes H(secret, nullifier).
func InnerHash(api frontend.API, secret, nullifier frontend.Variable) frontend.Variable {
	return hash(api, secret, nullifier)
}

// Commitment computes H(inner, amountLow, amountHigh, token).
func Commitment(api frontend.API, inner, amountLow, amountHigh, token frontend.Variable) frontend.Variable {
	return hash(api, inner, amountLow, amountHigh, token)
}

// NullifierHash computes H(nullifier).
func NullifierHash(api frontend.API, nullifier frontend.Variable) frontend.Variable {
	return hash(api, nullifier)
}

// PositionCommitment computes H(secret, nullifier, tickLowerOff, tickUpperOff,
// liquidity). Ticks are already in wire (offset) form.
func PositionCommitment(api frontend.API, secret, nullifier, tickLowerOff, tickUpperOff, liquidity frontend.Variable) frontend.Variable {
	return hash(api, secret, nullifier, tickLowerOff, tickUpperOff, liquidity)
}

// MerkleRoot folds a leaf up the accumulator. A zero sibling marks an empty
// branch and is skipped rather than hashed; the fold must reproduce the
// native verifier exactly, including root == leaf for a single-leaf tree.
func MerkleRoot(api frontend.API, leaf frontend.Variable, siblings, pathBits [MerkleDepth]frontend.Variable) frontend.Variable {
	node := leaf
	for i := 0; i < MerkleDepth; i++ {
		api.AssertIsBoolean(pathBits[i])
		left := api.Select(pathBits[i], siblings[i], node)
		right := api.Select(pathBits[i], node, siblings[i])
		hashed := hash(api, left, right)
		empty := api.IsZero(siblings[i])
		node = api.Select(empty, node, hashed)
	}
	return node
}

// AssertAmountLimb range-checks one amount limb to 128 bits.
func AssertAmountLimb(api frontend.API, v frontend.Variable) {
	api.ToBinary(v, AmountBits)
}

// BindPublic ties an otherwise unconstrained public input into the constraint
// system so a relayer cannot strip or substitute it.
func BindPublic(api frontend.API, v frontend.Variable) {
	api.AssertIsDifferent(api.Add(v, 1), v)
}
