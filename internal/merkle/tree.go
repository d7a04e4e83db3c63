// tree.go - Fixed-depth, append-only Merkle accumulator over note commitments.
//
// The tree is incremental: a per-level filled-subtree cache makes each insert
// O(depth). Empty branches are represented by a zero sentinel, and hashing a
// node with the sentinel carries the node through unchanged, so an inclusion
// path through empty territory never hashes. The same rule applies on insert
// and on verification; after a single insert the root equals the leaf.

package merkle

import (
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// Depth is the fixed tree depth; capacity is 2^Depth leaves.
const Depth = 20

// Capacity is the maximum number of leaves the accumulator holds.
const Capacity = 1 << Depth

var (
	ErrTreeFull     = errors.New("merkle: tree is full")
	ErrBadLeafIndex = errors.New("merkle: leaf index out of range")
)

// zeroSentinel marks a not-yet-populated sibling at every level.
var zeroSentinel = new(big.Int)

// hashNode computes MiMC(left, right) over BN254, each child as one
// 32-byte field element block.
func hashNode(left, right *big.Int) *big.Int {
	h := mimc.NewMiMC()
	buf := make([]byte, 32)
	left.FillBytes(buf)
	if _, err := h.Write(buf); err != nil {
		panic("merkle: mimc write: " + err.Error())
	}
	right.FillBytes(buf)
	if _, err := h.Write(buf); err != nil {
		panic("merkle: mimc write: " + err.Error())
	}
	return new(big.Int).SetBytes(h.Sum(nil))
}

// combine folds a node with a sibling, skipping the hash when the sibling is
// the zero sentinel. siblingOnLeft selects which side the sibling sits on.
func combine(nd, sibling *big.Int, siblingOnLeft bool) *big.Int {
	if sibling.Sign() == 0 {
		return nd
	}
	if siblingOnLeft {
		return hashNode(sibling, nd)
	}
	return hashNode(nd, sibling)
}

// Tree is the append-only accumulator. It keeps every inserted leaf so
// inclusion paths can be generated for provers; the incremental state is the
// filled-subtree cache plus the next leaf index.
type Tree struct {
	filled   [Depth]*big.Int
	leaves   []*big.Int
	nextLeaf uint64
	root     *big.Int
}

// New creates an empty accumulator. The empty root is the zero sentinel.
func New() *Tree {
	t := &Tree{
		leaves: make([]*big.Int, 0, 1024),
		root:   new(big.Int),
	}
	for i := range t.filled {
		t.filled[i] = new(big.Int)
	}
	return t
}

// Root returns the current root.
func (t *Tree) Root() *big.Int {
	return new(big.Int).Set(t.root)
}

// Size returns the number of inserted leaves.
func (t *Tree) Size() uint64 {
	return t.nextLeaf
}

// Leaf returns the leaf stored at index.
func (t *Tree) Leaf(index uint64) (*big.Int, error) {
	if index >= t.nextLeaf {
		return nil, ErrBadLeafIndex
	}
	return new(big.Int).Set(t.leaves[index]), nil
}

// Insert appends a leaf at the next index and returns its index and the new
// root. Fails with ErrTreeFull once the capacity is reached.
func (t *Tree) Insert(leaf *big.Int) (uint64, *big.Int, error) {
	if t.nextLeaf >= Capacity {
		return 0, nil, ErrTreeFull
	}
	index := t.nextLeaf
	t.leaves = append(t.leaves, new(big.Int).Set(leaf))
	t.nextLeaf++

	nd := new(big.Int).Set(leaf)
	idx := index
	for level := 0; level < Depth; level++ {
		if idx%2 == 0 {
			// Left child: remember it for the future right sibling.
			// The right branch is still empty, so the node carries up.
			t.filled[level] = new(big.Int).Set(nd)
			nd = combine(nd, zeroSentinel, false)
		} else {
			nd = combine(nd, t.filled[level], true)
		}
		idx /= 2
	}
	t.root = nd
	return index, new(big.Int).Set(nd), nil
}

// VerifyInclusion folds a leaf up its sibling path and returns the implied
// root. pathBits[i] == false means the node is the left child at level i.
// A sibling equal to the zero sentinel is skipped: the node passes through
// unhashed, which makes an all-zero path of a single-leaf tree resolve to
// the leaf itself.
func VerifyInclusion(leaf *big.Int, siblings [Depth]*big.Int, pathBits [Depth]bool) *big.Int {
	nd := new(big.Int).Set(leaf)
	for i := 0; i < Depth; i++ {
		nd = combine(nd, siblings[i], pathBits[i])
	}
	return nd
}

// Proof returns the sibling path and path bits for the leaf at index against
// the current tree contents. Siblings of empty branches are the zero
// sentinel.
func (t *Tree) Proof(index uint64) (siblings [Depth]*big.Int, pathBits [Depth]bool, err error) {
	if index >= t.nextLeaf {
		return siblings, pathBits, ErrBadLeafIndex
	}

	// Rebuild the populated layers; beyond the populated frontier every
	// sibling is the sentinel.
	layer := make([]*big.Int, t.nextLeaf)
	for i, l := range t.leaves {
		layer[i] = l
	}
	idx := index
	for level := 0; level < Depth; level++ {
		sib := idx ^ 1
		if sib < uint64(len(layer)) {
			siblings[level] = new(big.Int).Set(layer[sib])
		} else {
			siblings[level] = new(big.Int)
		}
		pathBits[level] = idx%2 == 1

		next := make([]*big.Int, (len(layer)+1)/2)
		for i := 0; i < len(layer); i += 2 {
			if i+1 < len(layer) {
				next[i/2] = combine(layer[i], layer[i+1], false)
			} else {
				next[i/2] = combine(layer[i], zeroSentinel, false)
			}
		}
		layer = next
		idx /= 2
	}
	return siblings, pathBits, nil
}
