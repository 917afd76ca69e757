// Package server exposes the Euler filter over HTTP and WebSocket.
package server

import (
	"context"
	"fmt"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/teslashibe/go-eulerfilter/internal/log"
	"github.com/teslashibe/go-eulerfilter/pkg/broadcast"
	"github.com/teslashibe/go-eulerfilter/pkg/eulerfilter"
	"github.com/teslashibe/go-eulerfilter/pkg/protocol"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Config holds server settings.
type Config struct {
	Port int
	// Debug enables request logging and per-message stream logs.
	Debug bool
	// Method is used by streams that do not pick one.
	Method eulerfilter.FilterMethod
	// MaxResults bounds how many sequence results are kept for GET.
	MaxResults int
}

// DefaultConfig returns the defaults used by eulerfilter-server.
func DefaultConfig() Config {
	return Config{
		Port:       8080,
		Method:     eulerfilter.DefaultMethod,
		MaxResults: 256,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port must be 0-65535, got %d", c.Port)
	}
	if !c.Method.Valid() {
		return fmt.Errorf("%w: unknown filter method %d", eulerfilter.ErrInvalidInput, int(c.Method))
	}
	if c.MaxResults < 1 {
		return fmt.Errorf("max results must be positive, got %d", c.MaxResults)
	}
	return nil
}

// Server is the filtering service
type Server struct {
	cfg     Config
	app     *fiber.App
	hub     *Hub
	results *resultStore

	// watch fans accepted stream samples out to /ws/watch observers.
	watch     *broadcast.Hub
	stopWatch context.CancelFunc
}

// NewServer builds the fiber app and registers every route.
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:       cfg,
		hub:       NewHub(cfg.Method, cfg.Debug),
		results:   newResultStore(cfg.MaxResults),
		watch:     broadcast.New("watch"),
		stopWatch: cancel,
	}
	go s.watch.Run(ctx)
	s.hub.OnCorrected(s.publish)

	app := fiber.New(fiber.Config{
		AppName:               "eulerfilter",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))
	if cfg.Debug {
		app.Use(logger.New())
	}

	api := app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/methods", s.handleMethods)
	api.Post("/filter", s.handleFilter)
	api.Post("/filter/sequence", s.handleSequence)
	api.Get("/filter/sequence/:id", s.handleGetSequence)
	api.Get("/watch/stats", func(c *fiber.Ctx) error {
		return c.JSON(s.watch.GetStats())
	})
	s.hub.RegisterAPIRoutes(api)

	s.hub.RegisterRoutes(app)
	app.Get("/ws/watch", websocket.New(func(c *websocket.Conn) {
		broadcast.NewClient(s.watch, c).Run()
	}))

	s.app = app
	return s, nil
}

// App returns the underlying fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the stream session hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start listens on the configured port. It blocks until Shutdown.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	log.Info("server listening", "addr", addr, "method", s.cfg.Method)
	return s.app.Listen(addr)
}

// Shutdown closes the watch observers, then stops accepting connections
// and waits for handlers until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopWatch()
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) publish(data protocol.ObservedData) {
	msg, err := protocol.NewObservedMessage(data)
	if err != nil {
		log.Warn("observed message", "error", err)
		return
	}
	b, err := msg.Bytes()
	if err != nil {
		log.Warn("observed message", "error", err)
		return
	}
	s.watch.Broadcast(b)
}
