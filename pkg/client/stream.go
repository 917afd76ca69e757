package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-eulerfilter/internal/log"
	"github.com/teslashibe/go-eulerfilter/pkg/eulerfilter"
	"github.com/teslashibe/go-eulerfilter/pkg/protocol"
	"github.com/teslashibe/go-eulerfilter/pkg/rotation"
)

// ErrUnexpectedMessage is returned when the server answers with a message
// type the call did not expect.
var ErrUnexpectedMessage = errors.New("unexpected message")

// StreamError is an error message sent by the server for one sample.
type StreamError struct {
	Frame   float64
	Message string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("frame %g: %s", e.Frame, e.Message)
}

// Stream is an open /ws/stream session. Filter and Reset are
// request/response and must not be called concurrently.
type Stream struct {
	conn    *websocket.Conn
	session protocol.SessionData

	writeMu sync.Mutex
}

// Stream opens a streaming session. An empty method uses the server's
// default.
func (c *Client) Stream(ctx context.Context, method string) (*Stream, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws/stream"
	if method != "" {
		m, err := eulerfilter.ParseMethod(method)
		if err != nil {
			return nil, err
		}
		wsURL += "?method=" + m.String()
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("stream dial: %w", &StatusError{Code: resp.StatusCode, Message: err.Error()})
		}
		return nil, fmt.Errorf("stream dial: %w", err)
	}

	s := &Stream{conn: conn}

	msg, err := s.Recv()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if msg.Type != protocol.TypeSession {
		conn.Close()
		return nil, fmt.Errorf("%w: %s before session", ErrUnexpectedMessage, msg.Type)
	}
	session, err := msg.GetSessionData()
	if err != nil {
		conn.Close()
		return nil, err
	}
	s.session = *session

	log.Debug("stream opened", "session", session.ID, "method", session.Method)
	return s, nil
}

// Session returns the id and method the server assigned.
func (s *Stream) Session() protocol.SessionData {
	return s.session
}

// Send writes one message.
func (s *Stream) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Recv blocks until the next message arrives.
func (s *Stream) Recv() (*protocol.Message, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	return protocol.ParseMessage(data)
}

// Filter sends one sample and waits for its correction. A sample the
// server rejects comes back as a *StreamError.
func (s *Stream) Filter(frame float64, t rotation.AngleTriple) (*protocol.CorrectedData, error) {
	msg, err := protocol.NewSampleMessage(frame, t)
	if err != nil {
		return nil, err
	}
	if err := s.Send(msg); err != nil {
		return nil, err
	}

	reply, err := s.Recv()
	if err != nil {
		return nil, err
	}

	switch reply.Type {
	case protocol.TypeCorrected:
		return reply.GetCorrectedData()
	case protocol.TypeError:
		e, err := reply.GetErrorData()
		if err != nil {
			return nil, err
		}
		return nil, &StreamError{Frame: e.Frame, Message: e.Error}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedMessage, reply.Type)
	}
}

// Reset clears the server's reference. A non-nil method also switches the
// session's filter method.
func (s *Stream) Reset(method *eulerfilter.FilterMethod) error {
	msg, err := protocol.NewResetMessage(method)
	if err != nil {
		return err
	}
	if err := s.Send(msg); err != nil {
		return err
	}

	reply, err := s.Recv()
	if err != nil {
		return err
	}
	if reply.Type != protocol.TypeSession {
		return fmt.Errorf("%w: %s after reset", ErrUnexpectedMessage, reply.Type)
	}
	session, err := reply.GetSessionData()
	if err != nil {
		return err
	}
	s.session = *session
	return nil
}

// Close sends a close frame and closes the connection.
func (s *Stream) Close() error {
	s.writeMu.Lock()
	err := s.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()

	if cerr := s.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
