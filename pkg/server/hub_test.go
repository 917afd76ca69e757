package server

import (
	"context"
	"io"
	"math"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-eulerfilter/pkg/eulerfilter"
	"github.com/teslashibe/go-eulerfilter/pkg/protocol"
	"github.com/teslashibe/go-eulerfilter/pkg/rotation"
)

func startHub(t *testing.T, port string) (*Hub, *fiber.App) {
	t.Helper()

	hub := NewHub(eulerfilter.DefaultMethod, true)
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	hub.RegisterRoutes(app)
	hub.RegisterAPIRoutes(app.Group("/api"))

	go app.Listen(":" + port)
	time.Sleep(100 * time.Millisecond)
	return hub, app
}

func dial(t *testing.T, url string) (*websocket.Conn, *protocol.SessionData) {
	t.Helper()

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("WebSocket dial error: %v", err)
	}

	msg := read(t, ws)
	if msg.Type != protocol.TypeSession {
		t.Fatalf("first message type = %s, want session", msg.Type)
	}
	session, err := msg.GetSessionData()
	if err != nil {
		t.Fatalf("GetSessionData error: %v", err)
	}
	return ws, session
}

func read(t *testing.T, ws *websocket.Conn) *protocol.Message {
	t.Helper()

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	msg, err := protocol.ParseMessage(data)
	if err != nil {
		t.Fatalf("ParseMessage error: %v", err)
	}
	return msg
}

func write(t *testing.T, ws *websocket.Conn, msg *protocol.Message) {
	t.Helper()

	data, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes error: %v", err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("Write error: %v", err)
	}
}

func sendSample(t *testing.T, ws *websocket.Conn, frame float64, tr rotation.AngleTriple) *protocol.Message {
	t.Helper()

	msg, err := protocol.NewSampleMessage(frame, tr)
	if err != nil {
		t.Fatalf("NewSampleMessage error: %v", err)
	}
	write(t, ws, msg)
	return read(t, ws)
}

func TestNewHub(t *testing.T) {
	hub := NewHub(eulerfilter.DefaultMethod, false)

	if hub.SessionCount() != 0 {
		t.Error("SessionCount should be 0 initially")
	}
	if hub.GetSession("nonexistent") != nil {
		t.Error("GetSession should return nil for unknown id")
	}
	if len(hub.GetSessionInfos()) != 0 {
		t.Error("GetSessionInfos should be empty initially")
	}

	stats := hub.GetStats()
	if stats.MessagesReceived != 0 || stats.SamplesFiltered != 0 {
		t.Errorf("stats should start at zero, got %+v", stats)
	}
}

func TestStreamConnection(t *testing.T) {
	hub, app := startHub(t, "18090")
	defer app.Shutdown()

	ws, session := dial(t, "ws://localhost:18090/ws/stream")

	if session.ID == "" {
		t.Error("session ID should be set")
	}
	if session.Method != eulerfilter.Unwrap {
		t.Errorf("Method = %v, want UNWRAP", session.Method)
	}
	if hub.SessionCount() != 1 {
		t.Errorf("SessionCount = %d, want 1", hub.SessionCount())
	}
	if hub.GetSession(session.ID) == nil {
		t.Error("GetSession should return the connected session")
	}

	ws.Close()
	time.Sleep(100 * time.Millisecond)

	if hub.SessionCount() != 0 {
		t.Errorf("SessionCount = %d, want 0 after disconnect", hub.SessionCount())
	}
}

func TestStreamFiltersSamples(t *testing.T) {
	hub, app := startHub(t, "18091")
	defer app.Shutdown()

	ws, _ := dial(t, "ws://localhost:18091/ws/stream")
	defer ws.Close()

	// The first sample is echoed unchanged.
	first := rotation.NewAngleTriple(0, 0, -4*math.Pi, rotation.OrderXYZ)
	msg := sendSample(t, ws, 0, first)
	if msg.Type != protocol.TypeCorrected {
		t.Fatalf("Type = %s, want corrected", msg.Type)
	}
	got, _ := msg.GetCorrectedData()
	if got.Rotation != first || got.Changed {
		t.Errorf("first sample = %+v, want unchanged %v", got, first)
	}

	// Z flips from +170° to -170°; the stream keeps it continuous.
	zs := []float64{-4*math.Pi + rotation.Radians(170), -4*math.Pi + rotation.Radians(190)}
	prev := first.Z
	for i, z := range []float64{rotation.Radians(170), rotation.Radians(-170)} {
		msg = sendSample(t, ws, float64(i+1), rotation.NewAngleTriple(0, 0, z, rotation.OrderXYZ))
		got, err := msg.GetCorrectedData()
		if err != nil {
			t.Fatalf("GetCorrectedData error: %v", err)
		}
		if math.Abs(got.Rotation.Z-zs[i]) > 1e-9 {
			t.Errorf("frame %d Z = %v, want %v", i+1, got.Rotation.Z, zs[i])
		}
		if math.Abs(got.Rotation.Z-prev) > math.Pi {
			t.Errorf("frame %d jumped from %v to %v", i+1, prev, got.Rotation.Z)
		}
		if !got.Changed {
			t.Errorf("frame %d should be marked changed", i+1)
		}
		prev = got.Rotation.Z
	}

	stats := hub.GetStats()
	if stats.SamplesFiltered != 3 {
		t.Errorf("SamplesFiltered = %d, want 3", stats.SamplesFiltered)
	}
	if stats.SamplesChanged != 2 {
		t.Errorf("SamplesChanged = %d, want 2", stats.SamplesChanged)
	}
}

func TestStreamRejectsMismatchedOrder(t *testing.T) {
	hub, app := startHub(t, "18092")
	defer app.Shutdown()

	ws, _ := dial(t, "ws://localhost:18092/ws/stream")
	defer ws.Close()

	sendSample(t, ws, 0, rotation.NewAngleTriple(0, 0, 1, rotation.OrderXYZ))

	msg := sendSample(t, ws, 1, rotation.NewAngleTriple(0, 0, 1, rotation.OrderZYX))
	if msg.Type != protocol.TypeError {
		t.Fatalf("Type = %s, want error", msg.Type)
	}
	e, _ := msg.GetErrorData()
	if e.Frame != 1 || e.Error == "" {
		t.Errorf("ErrorData = %+v", e)
	}

	// The reference survives a rejected sample.
	msg = sendSample(t, ws, 2, rotation.NewAngleTriple(0, 0, 1-2*math.Pi, rotation.OrderXYZ))
	got, _ := msg.GetCorrectedData()
	if math.Abs(got.Rotation.Z-1) > 1e-9 {
		t.Errorf("Z = %v, want 1", got.Rotation.Z)
	}

	if hub.GetStats().SamplesRejected != 1 {
		t.Errorf("SamplesRejected = %d, want 1", hub.GetStats().SamplesRejected)
	}
}

func TestSessionReset(t *testing.T) {
	ref := rotation.NewAngleTriple(0, 0, 3, rotation.OrderXYZ)
	s := &Session{ID: "s1", method: eulerfilter.Unwrap, reference: &ref}

	if got := s.reset(nil); got != eulerfilter.Unwrap {
		t.Errorf("reset(nil) = %v, want UNWRAP", got)
	}
	if s.reference != nil {
		t.Error("reset should clear the reference")
	}

	m := eulerfilter.QuadThenReseed
	if got := s.reset(&m); got != m {
		t.Errorf("reset(&m) = %v, want %v", got, m)
	}
	if s.Method() != m {
		t.Errorf("Method() = %v, want %v", s.Method(), m)
	}
}

func TestStreamReset(t *testing.T) {
	hub, app := startHub(t, "18093")
	defer app.Shutdown()

	ws, session := dial(t, "ws://localhost:18093/ws/stream")
	defer ws.Close()

	sendSample(t, ws, 0, rotation.NewAngleTriple(0, 0, 3, rotation.OrderXYZ))

	m := eulerfilter.ReseedThenUnwrap
	reset, _ := protocol.NewResetMessage(&m)
	write(t, ws, reset)

	msg := read(t, ws)
	if msg.Type != protocol.TypeSession {
		t.Fatalf("Type = %s, want session", msg.Type)
	}
	ack, _ := msg.GetSessionData()
	if ack.ID != session.ID || ack.Method != eulerfilter.ReseedThenUnwrap {
		t.Errorf("reset ack = %+v", ack)
	}
	if live := hub.GetSession(session.ID); live == nil || live.Method() != eulerfilter.ReseedThenUnwrap {
		t.Errorf("session method not switched: %+v", live)
	}

	// With the reference cleared the next sample comes back as sent.
	next := rotation.NewAngleTriple(0, 0, -3, rotation.OrderXYZ)
	msg = sendSample(t, ws, 1, next)
	got, _ := msg.GetCorrectedData()
	if got.Rotation != next || got.Changed {
		t.Errorf("after reset = %+v, want %v", got, next)
	}
}

func TestStreamMethodQuery(t *testing.T) {
	_, app := startHub(t, "18094")
	defer app.Shutdown()

	ws, session := dial(t, "ws://localhost:18094/ws/stream?method=quad")
	defer ws.Close()

	if session.Method != eulerfilter.QuaternionReseed {
		t.Errorf("Method = %v, want QUAD", session.Method)
	}

	_, resp, err := websocket.DefaultDialer.Dial("ws://localhost:18094/ws/stream?method=bogus", nil)
	if err == nil {
		t.Fatal("dial with unknown method should fail")
	}
	if resp == nil || resp.StatusCode != 400 {
		t.Errorf("response = %v, want 400", resp)
	}
}

func TestStreamPingPong(t *testing.T) {
	_, app := startHub(t, "18095")
	defer app.Shutdown()

	ws, _ := dial(t, "ws://localhost:18095/ws/stream")
	defer ws.Close()

	ping, _ := protocol.NewPingMessage("p1")
	write(t, ws, ping)

	msg := read(t, ws)
	if msg.Type != protocol.TypePong {
		t.Fatalf("Type = %s, want pong", msg.Type)
	}
	pong, _ := msg.GetPongData()
	if pong.ID != "p1" {
		t.Errorf("pong ID = %q, want p1", pong.ID)
	}
}

func TestStreamUnknownMessage(t *testing.T) {
	_, app := startHub(t, "18096")
	defer app.Shutdown()

	ws, _ := dial(t, "ws://localhost:18096/ws/stream")
	defer ws.Close()

	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"dance"}`)); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if msg := read(t, ws); msg.Type != protocol.TypeError {
		t.Errorf("Type = %s, want error", msg.Type)
	}

	if err := ws.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if msg := read(t, ws); msg.Type != protocol.TypeError {
		t.Errorf("Type = %s, want error", msg.Type)
	}
}

func TestAPISessions(t *testing.T) {
	hub := NewHub(eulerfilter.DefaultMethod, false)
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	hub.RegisterAPIRoutes(app.Group("/api"))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/sessions/", nil))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "sessions") {
		t.Error("Response should contain 'sessions' field")
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/api/sessions/stats", nil))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "samples_filtered") {
		t.Errorf("stats body = %s", body)
	}
}

func TestWatchReceivesCorrections(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Port = 18097
	s, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}
	go s.Start()
	defer s.Shutdown(context.Background())
	time.Sleep(100 * time.Millisecond)

	watcher, _, err := websocket.DefaultDialer.Dial("ws://localhost:18097/ws/watch", nil)
	if err != nil {
		t.Fatalf("watch dial error: %v", err)
	}
	defer watcher.Close()

	deadline := time.Now().Add(time.Second)
	for s.watch.ClientCount() != 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.watch.ClientCount() != 1 {
		t.Fatalf("watch ClientCount = %d, want 1", s.watch.ClientCount())
	}

	ws, session := dial(t, "ws://localhost:18097/ws/stream")
	defer ws.Close()

	sendSample(t, ws, 0, rotation.NewAngleTriple(0, 0, 3, rotation.OrderXYZ))
	sendSample(t, ws, 1, rotation.NewAngleTriple(0, 0, -3, rotation.OrderXYZ))

	for i := 0; i < 2; i++ {
		msg := read(t, watcher)
		if msg.Type != protocol.TypeObserved {
			t.Fatalf("Type = %s, want observed", msg.Type)
		}
		seen, err := msg.GetObservedData()
		if err != nil {
			t.Fatalf("GetObservedData error: %v", err)
		}
		if seen.Session != session.ID || seen.Frame != float64(i) {
			t.Errorf("observed = %+v", seen)
		}
		if i == 1 && (!seen.Changed || seen.Original.Z != -3) {
			t.Errorf("second observation = %+v, want changed from -3", seen)
		}
	}
}
