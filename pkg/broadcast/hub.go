// Package broadcast fans JSON messages out to read-only websocket
// observers using a single goroutine that owns the client set.
package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-eulerfilter/internal/log"
)

// Hub maintains the set of observers and broadcasts messages to them
type Hub struct {
	name string

	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu      sync.RWMutex
	count   int
	running atomic.Bool
	dropped atomic.Uint64
	sent    atomic.Uint64
}

// New creates a Hub. Call Run before attaching clients.
func New(name string) *Hub {
	return &Hub{
		name:       name,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run owns the client set until ctx is done, then closes every client.
// It must be called at most once.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.remove(client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			h.setCount()
			log.Debug("observer connected", "hub", h.name, "observers", len(h.clients))

		case client := <-h.unregister:
			if h.clients[client] {
				h.remove(client)
				log.Debug("observer disconnected", "hub", h.name, "observers", len(h.clients))
			}

		case data := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- data:
					h.sent.Add(1)
				default:
					// Slow observers are dropped rather than stalling the fan-out.
					h.remove(client)
					h.dropped.Add(1)
					log.Warn("dropped slow observer", "hub", h.name)
				}
			}
		}
	}
}

func (h *Hub) remove(client *Client) {
	delete(h.clients, client)
	close(client.send)
	h.setCount()
}

func (h *Hub) setCount() {
	h.mu.Lock()
	h.count = len(h.clients)
	h.mu.Unlock()
}

// Broadcast queues pre-encoded JSON for every observer. It never blocks;
// when the queue is full the message is dropped.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		h.dropped.Add(1)
		log.Warn("broadcast queue full, dropping message", "hub", h.name)
	}
}

// BroadcastJSON encodes v and broadcasts it
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(data)
	return nil
}

// ClientCount returns the number of connected observers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// IsRunning reports whether Run is active
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

// Stats counts deliveries since the hub was created.
type Stats struct {
	Observers int    `json:"observers"`
	Sent      uint64 `json:"sent"`
	Dropped   uint64 `json:"dropped"`
}

// GetStats returns delivery counters
func (h *Hub) GetStats() Stats {
	return Stats{
		Observers: h.ClientCount(),
		Sent:      h.sent.Load(),
		Dropped:   h.dropped.Load(),
	}
}
