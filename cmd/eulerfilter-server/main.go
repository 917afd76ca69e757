// eulerfilter-server: HTTP and WebSocket service for the Euler filter
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-eulerfilter/internal/config"
	"github.com/teslashibe/go-eulerfilter/internal/log"
	"github.com/teslashibe/go-eulerfilter/pkg/eulerfilter"
	"github.com/teslashibe/go-eulerfilter/pkg/server"
)

var (
	port   = flag.Int("port", 0, "HTTP server port (default: $PORT or 8080)")
	debug  = flag.Bool("debug", false, "Enable debug logging")
	method = flag.String("method", config.Method(), "Default method for streams")
)

func main() {
	flag.Parse()

	level := config.LogLevel()
	if *debug {
		level = "debug"
	}
	log.Init(level)

	cfg := server.DefaultConfig()
	cfg.Debug = *debug

	p, err := config.Port()
	if err != nil {
		log.Error("invalid environment", "error", err)
		os.Exit(2)
	}
	cfg.Port = p
	if *port != 0 {
		cfg.Port = *port
	}

	if cfg.Method, err = eulerfilter.ParseMethod(*method); err != nil {
		log.Error("invalid method", "error", err)
		os.Exit(2)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	fmt.Println()
	fmt.Println("eulerfilter-server v" + server.Version)
	fmt.Printf("   REST:      http://localhost:%d/api/filter\n", cfg.Port)
	fmt.Printf("   WebSocket: ws://localhost:%d/ws/stream\n", cfg.Port)
	fmt.Printf("   Health:    http://localhost:%d/api/health\n", cfg.Port)
	fmt.Println()

	go func() {
		if err := srv.Start(); err != nil {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
	}
}
