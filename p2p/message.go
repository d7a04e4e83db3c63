package p2p

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// --- Custom JSON marshaling for field elements ---

// FieldJSON wraps a big.Int field element so it travels over the wire as a
// decimal JSON string instead of a number, which would lose precision.
type FieldJSON struct {
	*big.Int
}

// MarshalJSON implements the json.Marshaler interface.
func (f FieldJSON) MarshalJSON() ([]byte, error) {
	if f.Int == nil {
		return []byte(`"0"`), nil
	}
	return []byte(`"` + f.Int.Text(10) + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (f *FieldJSON) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return fmt.Errorf("invalid JSON string for FieldJSON")
	}
	v, ok := new(big.Int).SetString(string(data[1:len(data)-1]), 10)
	if !ok {
		return fmt.Errorf("invalid decimal field element")
	}
	f.Int = v
	return nil
}

// Message is the generic envelope for any message sent over the network.
// It allows for flexible communication of different data structures.
type Message struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	SenderID string          `json:"senderId"`
}

// RootAnnouncePayload publishes a freshly accepted accumulator root for one
// pool, so peers can accept proofs built against it.
type RootAnnouncePayload struct {
	SenderID string    `json:"senderId"`
	Pool     string    `json:"pool"`
	Root     FieldJSON `json:"root"`
}

// PingPayload is used for liveness checks between peers.
type PingPayload struct {
	SenderID string `json:"senderId"`
}

// SimpleTextMessage is a free-form payload, mainly useful in tests.
type SimpleTextMessage struct {
	Content string `json:"content"`
}
