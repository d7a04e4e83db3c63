// coordinator.go - Proof coordinator: verify, decode, enforce, mutate.
//
// One coordinator owns the accumulator, nullifier set and root history for a
// single pool. Every submitted operation walks the same state machine:
// verify via the oracle, decode the public vector, check registry and domain
// invariants, execute against the engine, then commit registry effects as one
// unit under the coordinator mutex. A rejected operation leaves no trace; the
// registry, not the proof, is what makes a nullifier single-use.

package coordinator

import (
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"shieldpool/internal/merkle"
	"shieldpool/internal/registry"
)

var (
	ErrInvalidProof     = errors.New("coordinator: invalid proof")
	ErrInvalidOutputs   = errors.New("coordinator: malformed public input vector")
	ErrTickOutOfRange   = errors.New("coordinator: wire tick outside [0, 2*offset]")
	ErrInvalidTickRange = errors.New("coordinator: tickLower must be below tickUpper")
	ErrZeroAmount       = errors.New("coordinator: withdrawal amount is zero")
	ErrTokenPair        = errors.New("coordinator: invalid token pair")
)

// Verifier is the external verification oracle. It checks the proof against
// the public vector for the given kind and returns the vector in wire order
// on success. The coordinator never looks inside the proof.
type Verifier interface {
	Verify(kind Kind, proof []byte, publicInputs []*big.Int) ([]*big.Int, error)
}

// Executor applies an accepted operation's decoded outputs to the liquidity
// engine. Each call either mutates the engine completely or not at all, and
// returns the full commitments to append to the accumulator.
type Executor interface {
	ExecuteWithdraw(out *WithdrawOutputs) error
	ExecuteSwap(out *SwapOutputs) ([]*big.Int, error)
	ExecuteMint(out *MintOutputs) ([]*big.Int, error)
	ExecuteBurn(out *BurnOutputs) ([]*big.Int, error)
}

// EventSink receives the coordinator's lifecycle events. Calls happen under
// the coordinator mutex, after the corresponding state change is applied.
type EventSink interface {
	OperationVerified(ev OperationEvent)
	NullifierSpent(hash *big.Int)
	CommitmentAdded(commitment *big.Int, leafIndex uint64)
}

// OperationEvent is emitted once per accepted operation.
type OperationEvent struct {
	Kind      Kind
	Outputs   any
	NewRoot   *big.Int // nil when the operation inserted no commitments
	Timestamp time.Time
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) OperationVerified(OperationEvent) {}
func (NopSink) NullifierSpent(*big.Int)          {}
func (NopSink) CommitmentAdded(*big.Int, uint64) {}

// Operation is a submitted proof plus its claimed public inputs.
type Operation struct {
	Kind         Kind
	Proof        []byte
	PublicInputs []*big.Int
}

type Coordinator struct {
	mu         sync.Mutex
	tree       *merkle.Tree
	nullifiers *registry.NullifierSet
	roots      *registry.RootHistory
	verifier   Verifier
	executor   Executor
	sink       EventSink
}

// New constructs a coordinator for one pool. A nil sink discards events.
func New(verifier Verifier, executor Executor, sink EventSink) *Coordinator {
	if sink == nil {
		sink = NopSink{}
	}
	return &Coordinator{
		tree:       merkle.New(),
		nullifiers: registry.NewNullifierSet(),
		roots:      registry.NewRootHistory(),
		verifier:   verifier,
		executor:   executor,
		sink:       sink,
	}
}

// Deposit appends a commitment to the accumulator and records the new root
// as known. Returns the assigned leaf index and the new root.
func (c *Coordinator) Deposit(commitment *big.Int) (uint64, *big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	index, root, err := c.tree.Insert(commitment)
	if err != nil {
		return 0, nil, err
	}
	c.roots.Add(root)
	c.sink.CommitmentAdded(commitment, index)
	return index, root, nil
}

// AddKnownRoot records an externally published root as acceptable.
func (c *Coordinator) AddKnownRoot(root *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roots.Add(root)
}

// IsKnownRoot reports whether the root is in the bounded history.
func (c *Coordinator) IsKnownRoot(root *big.Int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roots.IsKnown(root)
}

// LatestRoot returns the most recently accepted root, or nil when empty.
func (c *Coordinator) LatestRoot() *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roots.Latest()
}

// TreeSize returns the number of committed leaves.
func (c *Coordinator) TreeSize() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.Size()
}

// NullifierCount returns the number of spent nullifier hashes.
func (c *Coordinator) NullifierCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nullifiers.Len()
}

// InclusionProof returns the sibling path for a committed leaf, for callers
// building proofs against the current tree.
func (c *Coordinator) InclusionProof(index uint64) ([merkle.Depth]*big.Int, [merkle.Depth]bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.Proof(index)
}

// Submit runs a proof through the full state machine and, on acceptance,
// applies its effects atomically. On any failure nothing is mutated.
func (c *Coordinator) Submit(op Operation) (*OperationEvent, error) {
	if want := op.Kind.publicInputLen(); want == 0 || len(op.PublicInputs) != want {
		return nil, fmt.Errorf("%w: kind %s wants %d inputs, got %d",
			ErrInvalidOutputs, op.Kind, op.Kind.publicInputLen(), len(op.PublicInputs))
	}

	vec, err := c.verifier.Verify(op.Kind, op.Proof, op.PublicInputs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProof, err)
	}
	if len(vec) != op.Kind.publicInputLen() {
		return nil, ErrInvalidOutputs
	}

	var (
		outputs    any
		root       *big.Int
		nullifiers []*big.Int
	)
	switch op.Kind {
	case KindWithdraw:
		out, err := decodeWithdraw(vec)
		if err != nil {
			return nil, err
		}
		outputs, root = out, out.Root
		nullifiers = []*big.Int{out.NullifierHash}
	case KindSwap:
		out, err := decodeSwap(vec)
		if err != nil {
			return nil, err
		}
		outputs, root = out, out.Root
		nullifiers = []*big.Int{out.NullifierHash}
	case KindMint:
		out, err := decodeMint(vec)
		if err != nil {
			return nil, err
		}
		outputs, root = out, out.Root
		nullifiers = []*big.Int{out.NullifierHash0, out.NullifierHash1}
	case KindBurn:
		out, err := decodeBurn(vec)
		if err != nil {
			return nil, err
		}
		outputs, root = out, out.Root
		nullifiers = []*big.Int{out.PositionNullifierHash}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.roots.IsKnown(root) {
		return nil, registry.ErrUnknownRoot
	}
	for _, n := range nullifiers {
		if c.nullifiers.IsSpent(n) {
			return nil, registry.ErrNullifierAlreadySpent
		}
	}
	if err := op.Kind.checkCapacity(c.tree.Size()); err != nil {
		return nil, err
	}

	// The engine mutation is the only step that can still fail; it commits
	// all-or-nothing, so registry effects are applied only after it returns.
	var commitments []*big.Int
	switch out := outputs.(type) {
	case *WithdrawOutputs:
		err = c.executor.ExecuteWithdraw(out)
	case *SwapOutputs:
		commitments, err = c.executor.ExecuteSwap(out)
	case *MintOutputs:
		commitments, err = c.executor.ExecuteMint(out)
	case *BurnOutputs:
		commitments, err = c.executor.ExecuteBurn(out)
	}
	if err != nil {
		return nil, err
	}

	for _, n := range nullifiers {
		if err := c.nullifiers.Spend(n); err != nil {
			return nil, err
		}
		c.sink.NullifierSpent(n)
	}
	var newRoot *big.Int
	for _, cm := range commitments {
		index, r, err := c.tree.Insert(cm)
		if err != nil {
			return nil, err
		}
		newRoot = r
		c.sink.CommitmentAdded(cm, index)
	}
	if newRoot != nil {
		c.roots.Add(newRoot)
	}

	ev := &OperationEvent{Kind: op.Kind, Outputs: outputs, NewRoot: newRoot, Timestamp: time.Now()}
	c.sink.OperationVerified(*ev)
	return ev, nil
}
