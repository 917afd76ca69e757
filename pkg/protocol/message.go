// Package protocol defines the WebSocket messages exchanged by the streaming
// filter endpoint and its clients.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/teslashibe/go-eulerfilter/pkg/eulerfilter"
	"github.com/teslashibe/go-eulerfilter/pkg/rotation"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Server → Client messages
	TypeSession   MessageType = "session"   // Sent once on connect
	TypeCorrected MessageType = "corrected" // Filtered sample
	TypeError     MessageType = "error"     // Sample rejected
	TypeObserved  MessageType = "observed"  // Sent to /ws/watch observers

	// Client → Server messages
	TypeSample MessageType = "sample" // Rotation to filter
	TypeReset  MessageType = "reset"  // Forget the reference

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Server → Client Message Types
// =============================================================================

// SessionData announces a new streaming session
type SessionData struct {
	ID     string                   `json:"id"`
	Method eulerfilter.FilterMethod `json:"method"`
}

// CorrectedData is the filtered rotation for one sample
type CorrectedData struct {
	Frame    float64              `json:"frame"`
	Rotation rotation.AngleTriple `json:"rotation"`
	Changed  bool                 `json:"changed"`
}

// ErrorData reports a rejected message
type ErrorData struct {
	Frame float64 `json:"frame,omitempty"`
	Error string  `json:"error"`
}

// ObservedData is one filtered stream sample as seen by watchers
type ObservedData struct {
	Session   string               `json:"session"`
	Frame     float64              `json:"frame"`
	Original  rotation.AngleTriple `json:"original"`
	Corrected rotation.AngleTriple `json:"corrected"`
	Changed   bool                 `json:"changed"`
}

// =============================================================================
// Client → Server Message Types
// =============================================================================

// SampleData is one rotation in stream order
type SampleData struct {
	Frame    float64              `json:"frame"`
	Rotation rotation.AngleTriple `json:"rotation"`
}

// ResetData clears the session reference and optionally switches method
type ResetData struct {
	Method *eulerfilter.FilterMethod `json:"method,omitempty"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
