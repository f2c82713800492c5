// Package network broadcasts simulation events to observer WebSocket
// clients (map views, dashboards). The feed is one-way telemetry: dropping
// it never affects simulation correctness.
package network

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/openskies-sim/airtycoon/internal/events"
	"github.com/openskies-sim/airtycoon/internal/platform/logger"
	"github.com/openskies-sim/airtycoon/internal/platform/metrics"
)

// Message is the wire envelope pushed to observers.
type Message struct {
	Type      string      `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// Hub maintains the set of active observer clients and broadcasts to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	mu         sync.Mutex
	logger     *logger.Logger
	metrics    *metrics.Collector
}

// NewHub initializes an observer hub. collector may be nil.
func NewHub(log *logger.Logger, collector *metrics.Collector) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     log,
		metrics:    collector,
	}
}

// Run starts the hub's main loop. Call in a goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("observer hub shutting down")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			if h.metrics != nil {
				h.metrics.RecordWSConnection(1)
			}
			h.logger.Info("observer connected")
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				if h.metrics != nil {
					h.metrics.RecordWSConnection(-1)
				}
				h.logger.Info("observer disconnected")
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					if h.metrics != nil {
						h.metrics.RecordWSMessage()
					}
				default:
					// Slow observer: drop it rather than block the feed.
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast serializes and fans out one message to every observer.
func (h *Hub) Broadcast(msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to serialize observer message: " + err.Error())
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		// Feed congested; observer telemetry is best effort.
	}
}

// StartEventPoller spawns a goroutine that tails the audit log and pushes
// new simulation events to the hub, independent of the engine's tick loop.
func (h *Hub) StartEventPoller(ctx context.Context, log *events.Log) {
	go func() {
		poll := time.NewTicker(200 * time.Millisecond)
		defer poll.Stop()

		cursor := 0
		for {
			select {
			case <-ctx.Done():
				return
			case <-poll.C:
				fresh := log.Since(cursor)
				for _, e := range fresh {
					h.Broadcast(Message{
						Type:      "SIM_EVENT",
						Timestamp: time.Now().Unix(),
						Payload:   e,
					})
				}
				cursor += len(fresh)
			}
		}
	}()
}
