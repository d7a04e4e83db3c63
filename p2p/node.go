// Package p2p gossips accepted accumulator roots between pool daemons over
// plain HTTP, so a follower can accept proofs built against roots it did not
// publish itself.
//
// Messages carry no authentication. The peer directory given to NewNode is
// the trust boundary: every address in it is assumed to be operated by the
// same administrator, and a root announced by any listed peer enters the
// accepted history unverified. Do not point a node at peers you do not
// control.
package p2p

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RootSink receives roots learned from peers. *coordinator.Coordinator
// satisfies it.
type RootSink interface {
	AddKnownRoot(root *big.Int)
	IsKnownRoot(root *big.Int) bool
}

// HandlerFunc processes one received message envelope.
type HandlerFunc func(n *Node, msg Message)

// Node represents one daemon in the gossip network.
type Node struct {
	ID      string
	Address string
	Peers   map[string]string // Map of node ID to its address

	log       zerolog.Logger
	server    *http.Server
	waitGroup *sync.WaitGroup

	handlerMutex sync.RWMutex
	handlers     map[string]HandlerFunc

	poolMutex sync.RWMutex
	pools     map[string]RootSink

	healthMutex sync.Mutex
	health      map[string]bool
}

// NewNode creates and initializes a new Node with the built-in handlers for
// root announcements and liveness pings.
func NewNode(id, address string, peers map[string]string, wg *sync.WaitGroup, log zerolog.Logger) *Node {
	n := &Node{
		ID:        id,
		Address:   address,
		Peers:     peers,
		log:       log.With().Str("node", id).Logger(),
		waitGroup: wg,
		handlers:  make(map[string]HandlerFunc),
		pools:     make(map[string]RootSink),
		health:    make(map[string]bool),
	}
	n.handlers["root_announce"] = (*Node).handleRootAnnounce
	n.handlers["ping"] = (*Node).handlePing
	n.handlers["pong"] = (*Node).handlePong
	return n
}

// RegisterPool attaches a root sink for a pool name. Announcements for
// unregistered pools are dropped.
func (n *Node) RegisterPool(name string, sink RootSink) {
	n.poolMutex.Lock()
	defer n.poolMutex.Unlock()
	n.pools[name] = sink
}

// RegisterHandler installs a handler for a message type, replacing any
// existing one.
func (n *Node) RegisterHandler(messageType string, fn HandlerFunc) {
	n.handlerMutex.Lock()
	defer n.handlerMutex.Unlock()
	n.handlers[messageType] = fn
}

// messageHandler is the HTTP handler for receiving messages.
// It decodes the message envelope and dispatches on the payload type.
func (n *Node) messageHandler(w http.ResponseWriter, r *http.Request) {
	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		n.log.Warn().Err(err).Msg("received a bad request")
		return
	}

	n.handlerMutex.RLock()
	fn, ok := n.handlers[msg.Type]
	n.handlerMutex.RUnlock()
	if !ok {
		n.log.Warn().Str("type", msg.Type).Msg("received unknown message type")
		w.WriteHeader(http.StatusOK)
		return
	}

	n.log.Debug().Str("type", msg.Type).Str("from", msg.SenderID).Msg("received message")
	fn(n, msg)

	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "Message received")
}

// handleRootAnnounce records a peer's root into the matching pool's history.
func (n *Node) handleRootAnnounce(msg Message) {
	var payload RootAnnouncePayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		n.log.Warn().Err(err).Msg("error unmarshalling RootAnnouncePayload")
		return
	}
	if payload.Root.Int == nil {
		return
	}

	n.poolMutex.RLock()
	sink, ok := n.pools[payload.Pool]
	n.poolMutex.RUnlock()
	if !ok {
		n.log.Warn().Str("pool", payload.Pool).Msg("root announce for unregistered pool")
		return
	}
	if sink.IsKnownRoot(payload.Root.Int) {
		return
	}
	sink.AddKnownRoot(payload.Root.Int)
	n.log.Info().
		Str("pool", payload.Pool).
		Str("from", payload.SenderID).
		Str("root", payload.Root.Text(16)).
		Msg("adopted peer root")
}

// handlePing answers with a pong so the sender can mark us healthy.
func (n *Node) handlePing(msg Message) {
	var payload PingPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		n.log.Warn().Err(err).Msg("error unmarshalling PingPayload")
		return
	}
	go func() {
		if err := n.SendMessage(payload.SenderID, "pong", PingPayload{SenderID: n.ID}); err != nil {
			n.log.Warn().Err(err).Str("peer", payload.SenderID).Msg("error sending pong")
		}
	}()
}

// handlePong marks the answering peer as healthy.
func (n *Node) handlePong(msg Message) {
	var payload PingPayload
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return
	}
	n.healthMutex.Lock()
	n.health[payload.SenderID] = true
	n.healthMutex.Unlock()
}

// AnnounceRoot broadcasts a freshly accepted root for a pool to all peers.
// Sends happen in the background so callers never block on slow peers.
func (n *Node) AnnounceRoot(pool string, root *big.Int) {
	if root == nil {
		return
	}
	n.Broadcast("root_announce", RootAnnouncePayload{
		SenderID: n.ID,
		Pool:     pool,
		Root:     FieldJSON{new(big.Int).Set(root)},
	})
}

// Broadcast sends a message to every known peer except ourselves.
func (n *Node) Broadcast(messageType string, payload interface{}) {
	for id := range n.Peers {
		if id == n.ID {
			continue
		}
		go func(target string) {
			if err := n.SendMessage(target, messageType, payload); err != nil {
				n.log.Warn().Err(err).Str("peer", target).Str("type", messageType).Msg("broadcast failed")
			}
		}(id)
	}
}

// HealthCheck resets the health map and pings every peer. Peers that answer
// are marked healthy by the pong handler.
func (n *Node) HealthCheck() {
	n.healthMutex.Lock()
	for id := range n.Peers {
		if id != n.ID {
			n.health[id] = false
		}
	}
	n.healthMutex.Unlock()
	n.Broadcast("ping", PingPayload{SenderID: n.ID})
}

// PeerHealthy reports the result of the last HealthCheck round for a peer.
func (n *Node) PeerHealthy(id string) bool {
	n.healthMutex.Lock()
	defer n.healthMutex.Unlock()
	return n.health[id]
}

// StartServer starts the node's HTTP server in a new goroutine.
// It signals on the 'ready' channel once the server is actively listening.
func (n *Node) StartServer(ready chan<- struct{}) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/message", n.messageHandler)

	n.server = &http.Server{
		Addr:    n.Address,
		Handler: mux,
	}

	listener, err := net.Listen("tcp", n.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", n.Address, err)
	}

	n.waitGroup.Add(1)
	go func() {
		defer n.waitGroup.Done()
		n.log.Info().Str("addr", n.Address).Msg("gossip server starting")

		// Signal that the server is up and ready
		ready <- struct{}{}

		if err := n.server.Serve(listener); err != http.ErrServerClosed {
			n.log.Error().Err(err).Msg("gossip server failed")
		}
		n.log.Info().Msg("gossip server stopped")
	}()
	return nil
}

// Close shuts the node's server down.
func (n *Node) Close() error {
	if n.server == nil {
		return nil
	}
	return n.server.Close()
}

// SendMessage sends a message to another node in the network.
// The payload can be any struct that is marshallable to JSON.
func (n *Node) SendMessage(targetID, messageType string, payload interface{}) error {
	targetAddress, ok := n.Peers[targetID]
	if !ok {
		return fmt.Errorf("peer '%s' not found in directory", targetID)
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %v", err)
	}

	msg := Message{
		Type:     messageType,
		Payload:  payloadBytes,
		SenderID: n.ID,
	}

	messageBytes, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message envelope: %v", err)
	}

	req, err := http.NewRequest("POST", "http://"+targetAddress+"/message", bytes.NewBuffer(messageBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("peer returned non-OK status: %s", resp.Status)
	}

	return nil
}
