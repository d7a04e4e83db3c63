package p2p

import (
	"fmt"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// memorySink is a stand-in root history for tests.
type memorySink struct {
	mu    sync.Mutex
	roots map[string]bool
}

func newMemorySink() *memorySink {
	return &memorySink{roots: make(map[string]bool)}
}

func (s *memorySink) AddKnownRoot(root *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roots[root.String()] = true
}

func (s *memorySink) IsKnownRoot(root *big.Int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roots[root.String()]
}

// Helper to create a test network of nodes with unique ports
func setupTestNetwork(t *testing.T, nodeIDs []string, basePort int) map[string]*Node {
	peerDirectory := make(map[string]string)
	for i, id := range nodeIDs {
		peerDirectory[id] = fmt.Sprintf("localhost:%d", basePort+i)
	}
	nodes := make(map[string]*Node)
	var wg sync.WaitGroup
	readyCh := make(chan struct{})
	for id, addr := range peerDirectory {
		nodes[id] = NewNode(id, addr, peerDirectory, &wg, zerolog.Nop())
	}
	for _, node := range nodes {
		if err := node.StartServer(readyCh); err != nil {
			t.Fatalf("StartServer failed: %v", err)
		}
	}
	for i := 0; i < len(nodes); i++ {
		<-readyCh
	}
	return nodes
}

func shutdownNetwork(nodes map[string]*Node) {
	for _, n := range nodes {
		n.Close()
	}
}

func TestRootAnnouncePropagation(t *testing.T) {
	nodes := setupTestNetwork(t, []string{"A", "B"}, 9100)
	defer shutdownNetwork(nodes)

	sink := newMemorySink()
	nodes["B"].RegisterPool("1/2", sink)

	root := big.NewInt(123456789)
	nodes["A"].AnnounceRoot("1/2", root)

	deadline := time.Now().Add(2 * time.Second)
	for !sink.IsKnownRoot(root) {
		if time.Now().After(deadline) {
			t.Fatal("Timeout waiting for root to propagate")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestAnnounceUnregisteredPoolIgnored(t *testing.T) {
	nodes := setupTestNetwork(t, []string{"A", "B"}, 9200)
	defer shutdownNetwork(nodes)

	sink := newMemorySink()
	nodes["B"].RegisterPool("1/2", sink)

	root := big.NewInt(42)
	nodes["A"].AnnounceRoot("3/4", root)
	time.Sleep(300 * time.Millisecond)
	if sink.IsKnownRoot(root) {
		t.Fatal("Root for an unregistered pool reached the sink")
	}
}

func TestBroadcast(t *testing.T) {
	nodes := setupTestNetwork(t, []string{"A", "B", "C"}, 9300)
	defer shutdownNetwork(nodes)
	var mu sync.Mutex
	received := make(map[string]bool)
	for _, id := range []string{"B", "C"} {
		nodes[id].RegisterHandler("broadcast", func(n *Node, msg Message) {
			mu.Lock()
			received[n.ID] = true
			mu.Unlock()
		})
	}
	nodes["A"].Broadcast("broadcast", SimpleTextMessage{Content: "hi all"})
	time.Sleep(500 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if !received["B"] || !received["C"] {
		t.Fatal("Broadcast not received by all nodes")
	}
}

func TestSendToNonExistentPeer(t *testing.T) {
	nodes := setupTestNetwork(t, []string{"A"}, 9400)
	defer shutdownNetwork(nodes)
	err := nodes["A"].SendMessage("B", "test_text", SimpleTextMessage{Content: "hello"})
	if err == nil {
		t.Fatal("Expected error when sending to non-existent peer, got nil")
	}
}

func TestHealthCheck(t *testing.T) {
	nodes := setupTestNetwork(t, []string{"A", "B"}, 9500)
	defer shutdownNetwork(nodes)
	nodes["A"].HealthCheck()

	deadline := time.Now().Add(2 * time.Second)
	for !nodes["A"].PeerHealthy("B") {
		if time.Now().After(deadline) {
			t.Fatal("Node B should be healthy after ping/pong")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestFieldJSONRoundTrip(t *testing.T) {
	in := FieldJSON{new(big.Int).Lsh(big.NewInt(1), 200)}
	data, err := in.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	var out FieldJSON
	if err := out.UnmarshalJSON(data); err != nil {
		t.Fatalf("UnmarshalJSON failed: %v", err)
	}
	if in.Int.Cmp(out.Int) != 0 {
		t.Fatalf("round trip mismatch: %s != %s", in.Int, out.Int)
	}
	if err := out.UnmarshalJSON([]byte(`"not-a-number"`)); err == nil {
		t.Fatal("Expected error for a non-decimal payload")
	}
}
