// main.go - End-to-end demo of the shielded pool protocol.
//
// Walks the full lifecycle against one pool with real Groth16 proofs:
// deposit, withdraw, liquidity mint, shielded swap and liquidity burn.

package main

import (
	"fmt"
	"math/big"

	"shieldpool/internal/amm"
	"shieldpool/internal/controller"
	"shieldpool/internal/coordinator"
	"shieldpool/internal/merkle"
	"shieldpool/internal/note"
	"shieldpool/internal/transactions/burn"
	"shieldpool/internal/transactions/mint"
	"shieldpool/internal/transactions/oracle"
	"shieldpool/internal/transactions/swap"
	"shieldpool/internal/transactions/withdraw"
)

var (
	token0 = big.NewInt(1)
	token1 = big.NewInt(2)
)

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func mustNote(n *note.Note, err error) *note.Note {
	must(err)
	return n
}

func proofFor(coord *coordinator.Coordinator, index uint64) ([merkle.Depth]*big.Int, [merkle.Depth]bool) {
	siblings, pathBits, err := coord.InclusionProof(index)
	must(err)
	return siblings, pathBits
}

func main() {
	fmt.Println("=== Shielded Concentrated-Liquidity Pool ===")

	fmt.Println("\n1. Compiling circuits and generating keys...")
	keys := make(map[coordinator.Kind]*oracle.Keys)
	verifier := oracle.New()
	for _, kind := range oracle.AllKinds() {
		k, err := oracle.SetupKeys(kind)
		must(err)
		keys[kind] = k
		verifier.Register(kind, k.VK)
		fmt.Printf("   %s: %d constraints\n", kind, k.CCS.GetNbConstraints())
	}

	fmt.Println("\n2. Initializing the pool...")
	pool, err := amm.NewPool(token0, token1, amm.FeeTier{FeeRate: 3000, TickSpacing: 60})
	must(err)
	must(pool.Initialize(amm.Q96))
	ctrl := controller.New(pool, nil)
	coord := coordinator.New(verifier, ctrl, coordinator.NopSink{})
	fmt.Printf("   tokens %s/%s, fee 0.3%%, starting tick %d\n", token0, token1, pool.Tick())

	fmt.Println("\n3. Depositing notes...")
	wNote := mustNote(note.NewNote(big.NewInt(1_000_000), token0))
	n0 := mustNote(note.NewNote(new(big.Int).Lsh(big.NewInt(1), 40), token0))
	n1 := mustNote(note.NewNote(new(big.Int).Lsh(big.NewInt(1), 40), token1))
	var indexes []uint64
	for _, n := range []*note.Note{wNote, n0, n1} {
		cm, err := n.Commitment()
		must(err)
		index, root, err := coord.Deposit(cm)
		must(err)
		indexes = append(indexes, index)
		fmt.Printf("   leaf %d, root %s...\n", index, root.Text(16)[:16])
	}

	fmt.Println("\n4. Withdrawing the first note...")
	recipient := big.NewInt(0xec1b1e57)
	siblings, pathBits := proofFor(coord, indexes[0])
	assignment, vec, err := withdraw.BuildWitness(wNote, coord.LatestRoot(), recipient, siblings, pathBits)
	must(err)
	proof, err := withdraw.Prove(keys[coordinator.KindWithdraw].CCS, keys[coordinator.KindWithdraw].PK, assignment)
	must(err)
	ev, err := coord.Submit(coordinator.Operation{Kind: coordinator.KindWithdraw, Proof: proof, PublicInputs: vec})
	must(err)
	w := ev.Outputs.(*coordinator.WithdrawOutputs)
	fmt.Printf("   accepted: %s of token %s to %#x\n", w.AmountLow, w.Token, w.Recipient)

	fmt.Println("\n5. Minting shielded liquidity...")
	pos := note.NewPositionNote(-1200, 1200, new(big.Int).Lsh(big.NewInt(1), 30))
	change0 := mustNote(note.NewNote(big.NewInt(0), token0))
	change1 := mustNote(note.NewNote(big.NewInt(0), token1))
	sib0, path0 := proofFor(coord, indexes[1])
	sib1, path1 := proofFor(coord, indexes[2])
	mintAssignment, mintVec, err := mint.BuildWitness(n0, n1, pos, change0, change1, coord.LatestRoot(),
		mint.InclusionProof{Siblings: sib0, PathBits: path0},
		mint.InclusionProof{Siblings: sib1, PathBits: path1})
	must(err)
	mintProof, err := mint.Prove(keys[coordinator.KindMint].CCS, keys[coordinator.KindMint].PK, mintAssignment)
	must(err)
	_, err = coord.Submit(coordinator.Operation{Kind: coordinator.KindMint, Proof: mintProof, PublicInputs: mintVec})
	must(err)
	fmt.Printf("   pool liquidity now %s, tree has %d leaves\n", pool.Liquidity(), coord.TreeSize())

	fmt.Println("\n6. Swapping through the pool...")
	sNote := mustNote(note.NewNote(big.NewInt(5_000_000), token0))
	sCm, err := sNote.Commitment()
	must(err)
	sIndex, _, err := coord.Deposit(sCm)
	must(err)
	sChange := mustNote(note.NewNote(big.NewInt(0), token0))
	sOut := mustNote(note.NewNote(big.NewInt(0), token1))
	sSib, sPath := proofFor(coord, sIndex)
	swapAssignment, swapVec, err := swap.BuildWitness(sNote, sChange, sOut, coord.LatestRoot(),
		big.NewInt(1_000_000), big.NewInt(1), sSib, sPath)
	must(err)
	swapProof, err := swap.Prove(keys[coordinator.KindSwap].CCS, keys[coordinator.KindSwap].PK, swapAssignment)
	must(err)
	_, err = coord.Submit(coordinator.Operation{Kind: coordinator.KindSwap, Proof: swapProof, PublicInputs: swapVec})
	must(err)
	fmt.Printf("   price moved to tick %d, sqrtPrice %s...\n", pool.Tick(), pool.SqrtPrice().String()[:12])

	fmt.Println("\n7. Burning the position...")
	// The position commitment was the third output of the mint: leaves 3, 4, 5.
	out0 := mustNote(note.NewNote(big.NewInt(0), token0))
	out1 := mustNote(note.NewNote(big.NewInt(0), token1))
	bSib, bPath := proofFor(coord, 5)
	burnAssignment, burnVec, err := burn.BuildWitness(pos, out0, out1, coord.LatestRoot(), bSib, bPath)
	must(err)
	burnProof, err := burn.Prove(keys[coordinator.KindBurn].CCS, keys[coordinator.KindBurn].PK, burnAssignment)
	must(err)
	_, err = coord.Submit(coordinator.Operation{Kind: coordinator.KindBurn, Proof: burnProof, PublicInputs: burnVec})
	must(err)
	fmt.Printf("   pool liquidity back to %s, %d nullifiers spent, %d leaves\n",
		pool.Liquidity(), coord.NullifierCount(), coord.TreeSize())

	fmt.Println("\nDone.")
}
