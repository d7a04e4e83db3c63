package registry

import (
	"math/big"
	"testing"
)

func TestNullifierIsolation(t *testing.T) {
	s := NewNullifierSet()
	a := big.NewInt(111)
	b := big.NewInt(222)

	if err := s.Spend(a); err != nil {
		t.Fatalf("spend a: %v", err)
	}
	if !s.IsSpent(a) {
		t.Fatalf("a should be spent")
	}
	// Spending a must not affect b.
	if s.IsSpent(b) {
		t.Fatalf("b must be unaffected by spending a")
	}
	if err := s.Spend(a); err != ErrNullifierAlreadySpent {
		t.Fatalf("double spend: got %v, want ErrNullifierAlreadySpent", err)
	}
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
}

func TestRootHistoryKnownRoots(t *testing.T) {
	h := NewRootHistory()
	if h.IsKnown(big.NewInt(1)) {
		t.Fatalf("empty history knows no roots")
	}
	if h.Latest() != nil {
		t.Fatalf("empty history has no latest root")
	}

	h.Add(big.NewInt(10))
	h.Add(big.NewInt(20))
	if !h.IsKnown(big.NewInt(10)) || !h.IsKnown(big.NewInt(20)) {
		t.Fatalf("recent roots must be known")
	}
	if h.IsKnown(big.NewInt(30)) {
		t.Fatalf("unseen root must be unknown")
	}
	if h.Latest().Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("latest = %s, want 20", h.Latest())
	}
}

func TestRootHistoryEviction(t *testing.T) {
	h := NewRootHistory()
	for i := 1; i <= RootHistorySize+5; i++ {
		h.Add(big.NewInt(int64(i)))
	}
	// The first five roots rolled out of the ring.
	for i := 1; i <= 5; i++ {
		if h.IsKnown(big.NewInt(int64(i))) {
			t.Fatalf("root %d should have been evicted", i)
		}
	}
	for i := 6; i <= RootHistorySize+5; i++ {
		if !h.IsKnown(big.NewInt(int64(i))) {
			t.Fatalf("root %d should still be known", i)
		}
	}
}

func TestZeroRootNeverKnown(t *testing.T) {
	h := NewRootHistory()
	h.Add(big.NewInt(0))
	if h.IsKnown(big.NewInt(0)) {
		t.Fatalf("zero root must never be known")
	}
}
