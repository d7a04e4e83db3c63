// coordinator_test.go - State machine, registry enforcement and replay tests.

package coordinator

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shieldpool/internal/merkle"
	"shieldpool/internal/note"
	"shieldpool/internal/registry"
)

// acceptVerifier accepts any proof equal to its token and echoes the claimed
// public inputs back as the verified vector, the way a real verifier does
// when the witness matches. Everything else is an invalid proof.
type acceptVerifier struct {
	token []byte
}

func (v *acceptVerifier) Verify(kind Kind, proof []byte, publicInputs []*big.Int) ([]*big.Int, error) {
	if string(proof) != string(v.token) {
		return nil, errors.New("proof does not verify")
	}
	return publicInputs, nil
}

// stubExecutor fabricates output commitments from the decoded inner hashes
// and records the last outputs it saw. Setting fail makes every call error
// without touching anything.
type stubExecutor struct {
	fail error
	last any
}

func (e *stubExecutor) ExecuteWithdraw(out *WithdrawOutputs) error {
	e.last = out
	return e.fail
}

func (e *stubExecutor) ExecuteSwap(out *SwapOutputs) ([]*big.Int, error) {
	e.last = out
	if e.fail != nil {
		return nil, e.fail
	}
	change := out.ChangeCommitment
	completed := note.CommitmentFromInner(out.NewInner, out.AmountOutMin, big.NewInt(0), out.TokenOut)
	return []*big.Int{change, completed}, nil
}

func (e *stubExecutor) ExecuteMint(out *MintOutputs) ([]*big.Int, error) {
	e.last = out
	if e.fail != nil {
		return nil, e.fail
	}
	c0 := note.CommitmentFromInner(out.ChangeInner0, big.NewInt(0), big.NewInt(0), out.Token0)
	c1 := note.CommitmentFromInner(out.ChangeInner1, big.NewInt(0), big.NewInt(0), out.Token1)
	return []*big.Int{c0, c1, out.PositionCommitment}, nil
}

func (e *stubExecutor) ExecuteBurn(out *BurnOutputs) ([]*big.Int, error) {
	e.last = out
	if e.fail != nil {
		return nil, e.fail
	}
	c0 := note.CommitmentFromInner(out.NewInner0, big.NewInt(1), big.NewInt(0), big.NewInt(1))
	c1 := note.CommitmentFromInner(out.NewInner1, big.NewInt(1), big.NewInt(0), big.NewInt(2))
	return []*big.Int{c0, c1}, nil
}

type recordSink struct {
	ops         []OperationEvent
	spent       []*big.Int
	commitments []*big.Int
}

func (s *recordSink) OperationVerified(ev OperationEvent) { s.ops = append(s.ops, ev) }
func (s *recordSink) NullifierSpent(h *big.Int)           { s.spent = append(s.spent, h) }
func (s *recordSink) CommitmentAdded(c *big.Int, _ uint64) {
	s.commitments = append(s.commitments, c)
}

var goodProof = []byte("valid-proof")

func newTestCoordinator(t *testing.T) (*Coordinator, *stubExecutor, *recordSink) {
	t.Helper()
	exec := &stubExecutor{}
	sink := &recordSink{}
	c := New(&acceptVerifier{token: goodProof}, exec, sink)
	return c, exec, sink
}

// depositNote commits an arbitrary leaf so the coordinator has a known root.
func depositNote(t *testing.T, c *Coordinator, leaf int64) *big.Int {
	t.Helper()
	_, root, err := c.Deposit(big.NewInt(leaf))
	require.NoError(t, err)
	return root
}

func withdrawVec(root *big.Int, nullifierHash int64) []*big.Int {
	return []*big.Int{
		root,
		big.NewInt(nullifierHash),
		big.NewInt(0xabcdef), // recipient
		big.NewInt(500),      // amountLow
		big.NewInt(0),        // amountHigh
		big.NewInt(7),        // token
	}
}

func TestSubmitRejectsInvalidProof(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	root := depositNote(t, c, 1)

	_, err := c.Submit(Operation{
		Kind:         KindWithdraw,
		Proof:        []byte("forged"),
		PublicInputs: withdrawVec(root, 11),
	})
	assert.ErrorIs(t, err, ErrInvalidProof)
	assert.Equal(t, 0, c.NullifierCount())
}

func TestSubmitRejectsWrongVectorLength(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	root := depositNote(t, c, 1)

	_, err := c.Submit(Operation{
		Kind:         KindWithdraw,
		Proof:        goodProof,
		PublicInputs: withdrawVec(root, 11)[:5],
	})
	assert.ErrorIs(t, err, ErrInvalidOutputs)
}

func TestSubmitRejectsUnknownRoot(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	depositNote(t, c, 1)

	_, err := c.Submit(Operation{
		Kind:         KindWithdraw,
		Proof:        goodProof,
		PublicInputs: withdrawVec(big.NewInt(999999), 11),
	})
	assert.ErrorIs(t, err, registry.ErrUnknownRoot)
}

func TestSubmitWithdrawAndReplay(t *testing.T) {
	c, _, sink := newTestCoordinator(t)
	root := depositNote(t, c, 1)

	op := Operation{Kind: KindWithdraw, Proof: goodProof, PublicInputs: withdrawVec(root, 11)}

	ev, err := c.Submit(op)
	require.NoError(t, err)
	require.IsType(t, &WithdrawOutputs{}, ev.Outputs)
	out := ev.Outputs.(*WithdrawOutputs)
	assert.Equal(t, int64(500), out.AmountLow.Int64())
	assert.Equal(t, 1, c.NullifierCount())
	assert.Len(t, sink.spent, 1)
	assert.Len(t, sink.ops, 1)

	// The oracle would still accept the identical proof; the registry is
	// what makes the nullifier single-use.
	_, err = c.Submit(op)
	assert.ErrorIs(t, err, registry.ErrNullifierAlreadySpent)
	assert.Equal(t, 1, c.NullifierCount())
}

func TestSubmitZeroWithdrawAmount(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	root := depositNote(t, c, 1)

	vec := withdrawVec(root, 11)
	vec[3] = big.NewInt(0)
	vec[4] = big.NewInt(0)
	_, err := c.Submit(Operation{Kind: KindWithdraw, Proof: goodProof, PublicInputs: vec})
	assert.ErrorIs(t, err, ErrZeroAmount)
}

func swapVec(root *big.Int) []*big.Int {
	return []*big.Int{
		big.NewInt(1001), // changeCommitment
		root,
		big.NewInt(21),   // nullifierHash
		big.NewInt(1002), // newInner
		big.NewInt(1),    // tokenIn
		big.NewInt(2),    // tokenOut
		big.NewInt(300),
		big.NewInt(1),
	}
}

func TestSubmitSwapAppendsCommitments(t *testing.T) {
	c, _, sink := newTestCoordinator(t)
	root := depositNote(t, c, 1)
	before := c.TreeSize()

	ev, err := c.Submit(Operation{Kind: KindSwap, Proof: goodProof, PublicInputs: swapVec(root)})
	require.NoError(t, err)
	require.IsType(t, &SwapOutputs{}, ev.Outputs)

	assert.Equal(t, before+2, c.TreeSize())
	assert.True(t, c.IsKnownRoot(c.LatestRoot()))
	// Deposit leaf plus the two swap outputs.
	assert.Len(t, sink.commitments, 3)
}

func TestSubmitSwapSameTokenRejected(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	root := depositNote(t, c, 1)

	vec := swapVec(root)
	vec[5] = new(big.Int).Set(vec[4])
	_, err := c.Submit(Operation{Kind: KindSwap, Proof: goodProof, PublicInputs: vec})
	assert.ErrorIs(t, err, ErrTokenPair)
}

func mintVec(root *big.Int, tickLower, tickUpper int64) []*big.Int {
	return []*big.Int{
		big.NewInt(2001), // changeInner0
		big.NewInt(2002), // changeInner1
		root,
		big.NewInt(31),   // nullifierHash0
		big.NewInt(32),   // nullifierHash1
		big.NewInt(2003), // positionCommitment
		big.NewInt(tickLower + note.TickOffset),
		big.NewInt(tickUpper + note.TickOffset),
		big.NewInt(1), // token0
		big.NewInt(2), // token1
		big.NewInt(5000),
		big.NewInt(5000),
		big.NewInt(777), // liquidity
	}
}

func TestSubmitMintDecodesTicks(t *testing.T) {
	c, exec, _ := newTestCoordinator(t)
	root := depositNote(t, c, 1)

	ev, err := c.Submit(Operation{Kind: KindMint, Proof: goodProof, PublicInputs: mintVec(root, -1000, 1000)})
	require.NoError(t, err)

	out := ev.Outputs.(*MintOutputs)
	assert.Equal(t, -1000, out.TickLower)
	assert.Equal(t, 1000, out.TickUpper)
	assert.Equal(t, out, exec.last)
	// Two spent nullifiers, three appended commitments.
	assert.Equal(t, 2, c.NullifierCount())
}

func TestSubmitMintTickWireRange(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	root := depositNote(t, c, 1)

	vec := mintVec(root, -1000, 1000)
	vec[7] = big.NewInt(2*note.TickOffset + 1)
	_, err := c.Submit(Operation{Kind: KindMint, Proof: goodProof, PublicInputs: vec})
	assert.ErrorIs(t, err, ErrTickOutOfRange)

	vec = mintVec(root, 1000, -1000)
	_, err = c.Submit(Operation{Kind: KindMint, Proof: goodProof, PublicInputs: vec})
	assert.ErrorIs(t, err, ErrInvalidTickRange)
}

func TestSubmitMintTokenOrderCanonical(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	root := depositNote(t, c, 1)

	vec := mintVec(root, -1000, 1000)
	vec[8], vec[9] = vec[9], vec[8]
	_, err := c.Submit(Operation{Kind: KindMint, Proof: goodProof, PublicInputs: vec})
	assert.ErrorIs(t, err, ErrTokenPair)
}

func TestSubmitBurn(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	root := depositNote(t, c, 1)
	before := c.TreeSize()

	vec := []*big.Int{
		root,
		big.NewInt(41), // positionNullifierHash
		big.NewInt(3001),
		big.NewInt(3002),
		big.NewInt(-60 + note.TickOffset),
		big.NewInt(60 + note.TickOffset),
		big.NewInt(777),
	}
	ev, err := c.Submit(Operation{Kind: KindBurn, Proof: goodProof, PublicInputs: vec})
	require.NoError(t, err)

	out := ev.Outputs.(*BurnOutputs)
	assert.Equal(t, -60, out.TickLower)
	assert.Equal(t, 60, out.TickUpper)
	assert.Equal(t, before+2, c.TreeSize())
	assert.Equal(t, 1, c.NullifierCount())
}

func TestExecutorFailureLeavesNoState(t *testing.T) {
	c, exec, sink := newTestCoordinator(t)
	root := depositNote(t, c, 1)
	before := c.TreeSize()

	exec.fail = errors.New("insufficient liquidity")
	_, err := c.Submit(Operation{Kind: KindSwap, Proof: goodProof, PublicInputs: swapVec(root)})
	require.Error(t, err)

	assert.Equal(t, 0, c.NullifierCount())
	assert.Equal(t, before, c.TreeSize())
	assert.Empty(t, sink.spent)
	assert.Empty(t, sink.ops)

	// The identical submission succeeds once the engine can execute it.
	exec.fail = nil
	_, err = c.Submit(Operation{Kind: KindSwap, Proof: goodProof, PublicInputs: swapVec(root)})
	assert.NoError(t, err)
}

func TestCapacityPrecheckPerKind(t *testing.T) {
	// Withdraw inserts nothing and is admissible even on a full tree.
	assert.NoError(t, KindWithdraw.checkCapacity(merkle.Capacity))

	assert.NoError(t, KindSwap.checkCapacity(merkle.Capacity-2))
	assert.ErrorIs(t, KindSwap.checkCapacity(merkle.Capacity-1), merkle.ErrTreeFull)

	assert.NoError(t, KindMint.checkCapacity(merkle.Capacity-3))
	assert.ErrorIs(t, KindMint.checkCapacity(merkle.Capacity-2), merkle.ErrTreeFull)

	assert.NoError(t, KindBurn.checkCapacity(merkle.Capacity-2))
	assert.ErrorIs(t, KindBurn.checkCapacity(merkle.Capacity-1), merkle.ErrTreeFull)
}

func TestDepositAssignsSequentialIndexes(t *testing.T) {
	c, _, _ := newTestCoordinator(t)
	for i := int64(0); i < 4; i++ {
		index, root, err := c.Deposit(big.NewInt(100 + i))
		require.NoError(t, err)
		assert.Equal(t, uint64(i), index)
		assert.True(t, c.IsKnownRoot(root))
	}
	assert.Equal(t, uint64(4), c.TreeSize())
}
