package protocol

import (
	"github.com/teslashibe/go-eulerfilter/pkg/eulerfilter"
	"github.com/teslashibe/go-eulerfilter/pkg/rotation"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewSessionMessage creates the greeting sent when a stream opens
func NewSessionMessage(id string, method eulerfilter.FilterMethod) (*Message, error) {
	return NewMessage(TypeSession, SessionData{ID: id, Method: method})
}

// NewSampleMessage creates a sample message
func NewSampleMessage(frame float64, t rotation.AngleTriple) (*Message, error) {
	return NewMessage(TypeSample, SampleData{Frame: frame, Rotation: t})
}

// NewCorrectedMessage creates a corrected-sample message
func NewCorrectedMessage(frame float64, t rotation.AngleTriple, changed bool) (*Message, error) {
	return NewMessage(TypeCorrected, CorrectedData{Frame: frame, Rotation: t, Changed: changed})
}

// NewErrorMessage creates an error message
func NewErrorMessage(frame float64, err error) (*Message, error) {
	return NewMessage(TypeError, ErrorData{Frame: frame, Error: err.Error()})
}

// NewObservedMessage creates a watcher notification
func NewObservedMessage(data ObservedData) (*Message, error) {
	return NewMessage(TypeObserved, data)
}

// NewResetMessage creates a reset message. A nil method keeps the current one.
func NewResetMessage(method *eulerfilter.FilterMethod) (*Message, error) {
	return NewMessage(TypeReset, ResetData{Method: method})
}

// NewPingMessage creates a ping message
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: 0, // Will be set by NewMessage
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetSessionData extracts session data from a message
func (m *Message) GetSessionData() (*SessionData, error) {
	var data SessionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetSampleData extracts sample data from a message
func (m *Message) GetSampleData() (*SampleData, error) {
	var data SampleData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetCorrectedData extracts corrected data from a message
func (m *Message) GetCorrectedData() (*CorrectedData, error) {
	var data CorrectedData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetErrorData extracts error data from a message
func (m *Message) GetErrorData() (*ErrorData, error) {
	var data ErrorData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetObservedData extracts watcher data from a message
func (m *Message) GetObservedData() (*ObservedData, error) {
	var data ObservedData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetResetData extracts reset data from a message
func (m *Message) GetResetData() (*ResetData, error) {
	var data ResetData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
