// registry.go - Spent-nullifier set and accepted-root history.
//
// Both structures are owned by a single coordinator instance per pool and are
// mutated only under its lock; they carry no locking of their own.

package registry

import (
	"errors"
	"math/big"
)

// RootHistorySize bounds how many accepted roots stay provable against.
// A proof built against an older root is rejected with ErrUnknownRoot.
const RootHistorySize = 30

var (
	ErrNullifierAlreadySpent = errors.New("registry: nullifier already spent")
	ErrUnknownRoot           = errors.New("registry: unknown root")
)

// NullifierSet is the append-only set of spent nullifier hashes. Membership
// is never reversed.
type NullifierSet struct {
	spent map[string]struct{}
}

// NewNullifierSet creates an empty set.
func NewNullifierSet() *NullifierSet {
	return &NullifierSet{spent: make(map[string]struct{})}
}

func nullifierKey(hash *big.Int) string {
	return string(hash.Bytes())
}

// IsSpent reports whether the nullifier hash has been recorded.
func (s *NullifierSet) IsSpent(hash *big.Int) bool {
	_, ok := s.spent[nullifierKey(hash)]
	return ok
}

// Spend records the nullifier hash. Fails if it is already present.
func (s *NullifierSet) Spend(hash *big.Int) error {
	k := nullifierKey(hash)
	if _, ok := s.spent[k]; ok {
		return ErrNullifierAlreadySpent
	}
	s.spent[k] = struct{}{}
	return nil
}

// Len returns the number of spent nullifiers.
func (s *NullifierSet) Len() int {
	return len(s.spent)
}

// RootHistory is a bounded ring buffer of accepted accumulator roots.
// IsKnown scans newest-first and stops at the first empty slot, so only the
// last RootHistorySize published roots are live.
type RootHistory struct {
	roots [RootHistorySize]*big.Int
	next  int
}

// NewRootHistory creates an empty history.
func NewRootHistory() *RootHistory {
	return &RootHistory{}
}

// Add publishes a root into the ring, evicting the oldest entry.
func (h *RootHistory) Add(root *big.Int) {
	h.roots[h.next] = new(big.Int).Set(root)
	h.next = (h.next + 1) % RootHistorySize
}

// IsKnown reports whether root is present in the buffer. The zero root is
// never known: an empty slot terminates the scan.
func (h *RootHistory) IsKnown(root *big.Int) bool {
	if root.Sign() == 0 {
		return false
	}
	for i := 0; i < RootHistorySize; i++ {
		slot := (h.next - 1 - i + 2*RootHistorySize) % RootHistorySize
		r := h.roots[slot]
		if r == nil {
			return false
		}
		if r.Cmp(root) == 0 {
			return true
		}
	}
	return false
}

// Latest returns the most recently added root, or nil if empty.
func (h *RootHistory) Latest() *big.Int {
	slot := (h.next - 1 + RootHistorySize) % RootHistorySize
	if h.roots[slot] == nil {
		return nil
	}
	return new(big.Int).Set(h.roots[slot])
}
