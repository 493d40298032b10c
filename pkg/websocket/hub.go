package websocket

import (
	"context"
	"sync"

	"github.com/edrive/ride-hailing/pkg/logger"
	"github.com/edrive/ride-hailing/pkg/metrics"
	"github.com/edrive/ride-hailing/pkg/pubsub"
)

// Resolver opens the live subscription behind a client topic. The returned
// snapshot is delivered to the client before any live event.
type Resolver interface {
	Open(ctx context.Context, userID, role, topic string) (*pubsub.Subscription, interface{}, error)
}

// Hub tracks connected clients
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	resolver   Resolver
	mu         sync.RWMutex
	logger     *logger.Logger
}

// Message is what the server sends to a client
type Message struct {
	Type  string      `json:"type"`
	Topic string      `json:"topic,omitempty"`
	Event string      `json:"event,omitempty"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// NewHub creates a new WebSocket hub
func NewHub(resolver Resolver, log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		resolver:   resolver,
		logger:     log,
	}
}

// Run starts the hub's main loop and closes every client when ctx is done
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.ActiveConnections.Inc()
			h.logger.Info("Client registered",
				logger.String("client_id", client.ID),
				logger.UserID(client.UserID),
				logger.String("role", client.Role),
			)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
				metrics.ActiveConnections.Dec()
				h.logger.Info("Client unregistered", logger.String("client_id", client.ID))
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.close()
				metrics.ActiveConnections.Dec()
			}
			h.mu.Unlock()
			return
		}
	}
}

// Register registers a new client
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister unregisters a client
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// GetActiveConnections returns the number of active connections
func (h *Hub) GetActiveConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
