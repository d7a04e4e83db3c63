// kind.go - Closed set of shielded operation kinds.
//
// The four kinds form a closed tagged union. Each has a fixed, positionally
// ordered public-input vector; decoding is an explicit switch per kind, never
// name- or reflection-based, so wire-format drift fails loudly.

package coordinator

import (
	"fmt"

	"shieldpool/internal/merkle"
)

type Kind uint8

const (
	KindWithdraw Kind = iota
	KindSwap
	KindMint
	KindBurn
)

func (k Kind) String() string {
	switch k {
	case KindWithdraw:
		return "withdraw"
	case KindSwap:
		return "swap"
	case KindMint:
		return "mint"
	case KindBurn:
		return "burn"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// publicInputLen is the exact public vector length for a kind: the event
// tuple followed by any auxiliary public inputs bound by the proof.
func (k Kind) publicInputLen() int {
	switch k {
	case KindWithdraw:
		return 6
	case KindSwap:
		return 8
	case KindMint:
		return 13
	case KindBurn:
		return 7
	default:
		return 0
	}
}

// checkCapacity rejects an operation whose inserts would not fit the
// accumulator, before any side effect happens.
func (k Kind) checkCapacity(treeSize uint64) error {
	if treeSize+uint64(k.insertCount()) > merkle.Capacity {
		return merkle.ErrTreeFull
	}
	return nil
}

// insertCount is the number of commitments appended to the accumulator when
// an operation of this kind is accepted.
func (k Kind) insertCount() int {
	switch k {
	case KindSwap:
		return 2
	case KindMint:
		return 3
	case KindBurn:
		return 2
	default:
		return 0
	}
}
