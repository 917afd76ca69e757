package server

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/teslashibe/go-eulerfilter/internal/log"
	"github.com/teslashibe/go-eulerfilter/pkg/eulerfilter"
	"github.com/teslashibe/go-eulerfilter/pkg/keyframes"
	"github.com/teslashibe/go-eulerfilter/pkg/protocol"
	"github.com/teslashibe/go-eulerfilter/pkg/rotation"
)

// Session is one streaming connection. The reference is owned by the
// connection's read loop and never locked; everything under mu may also be
// read by the inspection API.
type Session struct {
	ID        string
	Conn      *websocket.Conn
	Connected time.Time

	reference *rotation.AngleTriple

	mu       sync.Mutex
	method   eulerfilter.FilterMethod
	lastSeen time.Time
	samples  uint64
}

// Method returns the session's filter method.
func (s *Session) Method() eulerfilter.FilterMethod {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.method
}

// reset drops the reference and, when method is non-nil, switches methods.
// It returns the method now in effect.
func (s *Session) reset(method *eulerfilter.FilterMethod) eulerfilter.FilterMethod {
	s.reference = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	if method != nil {
		s.method = *method
	}
	return s.method
}

// Send writes a message to the session.
func (s *Session) Send(msg *protocol.Message) error {
	data, err := msg.Bytes()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.samples++
	s.mu.Unlock()
}

// filter runs one streamed sample. The first sample since connect or reset
// is returned unchanged and becomes the reference.
func (s *Session) filter(sample *protocol.SampleData) (rotation.AngleTriple, bool, error) {
	if s.reference == nil {
		if err := sample.Rotation.Validate(); err != nil {
			return rotation.AngleTriple{}, false, err
		}
		ref := sample.Rotation
		s.reference = &ref
		return ref, false, nil
	}

	corrected, err := eulerfilter.FilterRotation(*s.reference, sample.Rotation, s.Method())
	if err != nil {
		return rotation.AngleTriple{}, false, err
	}
	s.reference = &corrected

	c := keyframes.Correction{Frame: sample.Frame, Original: sample.Rotation, Corrected: corrected}
	return corrected, c.Changed(changeTolerance), nil
}

// Hub tracks streaming sessions.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	method   eulerfilter.FilterMethod
	debug    bool

	onCorrected func(protocol.ObservedData)

	messagesReceived atomic.Uint64
	messagesSent     atomic.Uint64
	samplesFiltered  atomic.Uint64
	samplesChanged   atomic.Uint64
	samplesRejected  atomic.Uint64
}

// NewHub creates a hub whose sessions default to method.
func NewHub(method eulerfilter.FilterMethod, debug bool) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		method:   method,
		debug:    debug,
	}
}

// OnCorrected sets the callback run for every sample a stream accepts
func (h *Hub) OnCorrected(callback func(protocol.ObservedData)) {
	h.mu.Lock()
	h.onCorrected = callback
	h.mu.Unlock()
}

// RegisterRoutes registers the WebSocket routes on a Fiber app
func (h *Hub) RegisterRoutes(app *fiber.App) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		method := h.method
		if q := c.Query("method"); q != "" {
			m, err := eulerfilter.ParseMethod(q)
			if err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(protocol.ErrorResponse{Error: err.Error()})
			}
			method = m
		}
		c.Locals("method", method)
		return c.Next()
	})

	app.Get("/ws/stream", websocket.New(h.handleStream))
}

func (h *Hub) handleStream(c *websocket.Conn) {
	method, ok := c.Locals("method").(eulerfilter.FilterMethod)
	if !ok {
		method = h.method
	}

	now := time.Now()
	session := &Session{
		ID:        uuid.NewString(),
		Conn:      c,
		Connected: now,
		method:    method,
		lastSeen:  now,
	}

	h.mu.Lock()
	h.sessions[session.ID] = session
	count := len(h.sessions)
	h.mu.Unlock()

	log.Info("stream connected", "session", session.ID, "method", method, "sessions", count)

	defer func() {
		h.mu.Lock()
		delete(h.sessions, session.ID)
		count := len(h.sessions)
		h.mu.Unlock()

		log.Info("stream disconnected", "session", session.ID, "sessions", count)
	}()

	hello, err := protocol.NewSessionMessage(session.ID, method)
	if err == nil {
		err = h.send(session, hello)
	}
	if err != nil {
		log.Warn("stream greeting failed", "session", session.ID, "error", err)
		return
	}

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			if h.debug {
				log.Debug("stream read ended", "session", session.ID, "error", err)
			}
			return
		}

		h.messagesReceived.Add(1)
		if err := h.handleMessage(session, data); err != nil {
			log.Warn("stream write failed", "session", session.ID, "error", err)
			return
		}
	}
}

// handleMessage answers one client message. The returned error is a write
// failure; bad input is reported to the client instead.
func (h *Hub) handleMessage(s *Session, data []byte) error {
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		return h.sendError(s, 0, err)
	}

	switch msg.Type {
	case protocol.TypeSample:
		sample, err := msg.GetSampleData()
		if err != nil {
			return h.sendError(s, 0, fmt.Errorf("%w: %v", eulerfilter.ErrInvalidInput, err))
		}
		s.touch()

		corrected, changed, err := s.filter(sample)
		if err != nil {
			h.samplesRejected.Add(1)
			return h.sendError(s, sample.Frame, err)
		}

		h.samplesFiltered.Add(1)
		if changed {
			h.samplesChanged.Add(1)
			if h.debug {
				log.Debug("stream sample corrected", "session", s.ID, "frame", sample.Frame,
					"from", sample.Rotation, "to", corrected)
			}
		}

		h.mu.RLock()
		observe := h.onCorrected
		h.mu.RUnlock()
		if observe != nil {
			observe(protocol.ObservedData{
				Session:   s.ID,
				Frame:     sample.Frame,
				Original:  sample.Rotation,
				Corrected: corrected,
				Changed:   changed,
			})
		}

		reply, err := protocol.NewCorrectedMessage(sample.Frame, corrected, changed)
		if err != nil {
			return err
		}
		return h.send(s, reply)

	case protocol.TypeReset:
		reset, err := msg.GetResetData()
		if err != nil {
			return h.sendError(s, 0, err)
		}
		method := s.reset(reset.Method)

		reply, err := protocol.NewSessionMessage(s.ID, method)
		if err != nil {
			return err
		}
		return h.send(s, reply)

	case protocol.TypePing:
		ping, err := msg.GetPingData()
		if err != nil {
			return h.sendError(s, 0, err)
		}
		reply, err := protocol.NewPongMessage(ping.ID, msg.Timestamp, time.Now().UnixMilli())
		if err != nil {
			return err
		}
		return h.send(s, reply)

	default:
		return h.sendError(s, 0, fmt.Errorf("%w: unknown message type %q", eulerfilter.ErrInvalidInput, msg.Type))
	}
}

func (h *Hub) send(s *Session, msg *protocol.Message) error {
	h.messagesSent.Add(1)
	return s.Send(msg)
}

func (h *Hub) sendError(s *Session, frame float64, err error) error {
	reply, mErr := protocol.NewErrorMessage(frame, err)
	if mErr != nil {
		return errors.Join(err, mErr)
	}
	return h.send(s, reply)
}

// SessionCount returns the number of open streams
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// GetSession returns a session by ID, or nil.
func (h *Hub) GetSession(id string) *Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.sessions[id]
}

// Stats contains hub statistics
type Stats struct {
	SessionCount     int    `json:"session_count"`
	MessagesReceived uint64 `json:"messages_received"`
	MessagesSent     uint64 `json:"messages_sent"`
	SamplesFiltered  uint64 `json:"samples_filtered"`
	SamplesChanged   uint64 `json:"samples_changed"`
	SamplesRejected  uint64 `json:"samples_rejected"`
}

// GetStats returns hub statistics
func (h *Hub) GetStats() Stats {
	return Stats{
		SessionCount:     h.SessionCount(),
		MessagesReceived: h.messagesReceived.Load(),
		MessagesSent:     h.messagesSent.Load(),
		SamplesFiltered:  h.samplesFiltered.Load(),
		SamplesChanged:   h.samplesChanged.Load(),
		SamplesRejected:  h.samplesRejected.Load(),
	}
}

// SessionInfo describes an open stream
type SessionInfo struct {
	ID        string                   `json:"id"`
	Method    eulerfilter.FilterMethod `json:"method"`
	Connected time.Time                `json:"connected"`
	LastSeen  time.Time                `json:"last_seen"`
	Samples   uint64                   `json:"samples"`
}

// GetSessionInfos returns info about all open streams
func (h *Hub) GetSessionInfos() []SessionInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(h.sessions))
	for _, s := range h.sessions {
		s.mu.Lock()
		infos = append(infos, SessionInfo{
			ID:        s.ID,
			Method:    s.method,
			Connected: s.Connected,
			LastSeen:  s.lastSeen,
			Samples:   s.samples,
		})
		s.mu.Unlock()
	}
	return infos
}

// RegisterAPIRoutes registers session inspection routes
func (h *Hub) RegisterAPIRoutes(api fiber.Router) {
	sessions := api.Group("/sessions")

	sessions.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"sessions": h.GetSessionInfos(),
			"count":    h.SessionCount(),
		})
	})

	sessions.Get("/stats", func(c *fiber.Ctx) error {
		return c.JSON(h.GetStats())
	})
}
