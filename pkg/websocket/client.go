package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/edrive/ride-hailing/pkg/logger"
	"github.com/edrive/ride-hailing/pkg/pubsub"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client represents a WebSocket client connection
type Client struct {
	ID     string
	UserID string
	Role   string
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte

	ctx           context.Context
	cancel        context.CancelFunc
	subscriptions map[string]*pubsub.Subscription
	closed        bool
	mu            sync.Mutex
	logger        *logger.Logger
}

// ClientMessage represents a message from the client
type ClientMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic,omitempty"`
}

// NewClient creates a new WebSocket client
func NewClient(hub *Hub, conn *websocket.Conn, userID, role string, log *logger.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		ID:            uuid.NewString(),
		UserID:        userID,
		Role:          role,
		Hub:           hub,
		Conn:          conn,
		Send:          make(chan []byte, 256),
		ctx:           ctx,
		cancel:        cancel,
		subscriptions: make(map[string]*pubsub.Subscription),
		logger:        log,
	}
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error",
					logger.Err(err),
					logger.String("client_id", c.ID),
				)
			}
			break
		}

		c.handleMessage(message)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// One JSON document per frame so clients can parse each frame on its own.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.SendMessage(Message{Type: "error", Error: "invalid message"})
		return
	}

	switch msg.Type {
	case "subscribe":
		c.Subscribe(msg.Topic)
	case "unsubscribe":
		c.Unsubscribe(msg.Topic)
	case "ping":
		c.SendMessage(Message{Type: "pong"})
	default:
		c.logger.Warn("Unknown message type",
			logger.String("type", msg.Type),
			logger.String("client_id", c.ID),
		)
		c.SendMessage(Message{Type: "error", Error: "unknown message type"})
	}
}

// Subscribe opens topic, sends its snapshot and then forwards live events
// until the client unsubscribes or disconnects.
func (c *Client) Subscribe(topic string) {
	c.mu.Lock()
	_, exists := c.subscriptions[topic]
	c.mu.Unlock()
	if exists {
		return
	}

	sub, snapshot, err := c.Hub.resolver.Open(c.ctx, c.UserID, c.Role, topic)
	if err != nil {
		c.SendMessage(Message{Type: "error", Topic: topic, Error: err.Error()})
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	if _, exists := c.subscriptions[topic]; exists {
		c.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	c.subscriptions[topic] = sub
	c.mu.Unlock()

	c.SendMessage(Message{Type: "snapshot", Topic: topic, Data: snapshot})
	go c.forward(topic, sub)

	c.logger.Debug("Client subscribed",
		logger.String("client_id", c.ID),
		logger.String("topic", topic),
	)
}

func (c *Client) forward(topic string, sub *pubsub.Subscription) {
	for {
		select {
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			c.SendMessage(Message{Type: "event", Topic: topic, Event: ev.Type, Data: ev.Data})
		case <-sub.Done():
			return
		}
	}
}

// Unsubscribe stops delivery of topic
func (c *Client) Unsubscribe(topic string) {
	c.mu.Lock()
	sub, ok := c.subscriptions[topic]
	delete(c.subscriptions, topic)
	c.mu.Unlock()
	if ok {
		sub.Unsubscribe()
	}
}

// Topics returns the topics the client currently follows
func (c *Client) Topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.subscriptions))
	for t := range c.subscriptions {
		out = append(out, t)
	}
	return out
}

// SendMessage queues a message. It is dropped when the buffer is full or the
// client is gone.
func (c *Client) SendMessage(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("Failed to marshal message",
			logger.Err(err),
			logger.String("client_id", c.ID),
		)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.Send <- data:
	default:
		c.logger.Warn("Client send buffer full",
			logger.String("client_id", c.ID),
		)
	}
}

// close ends every subscription and closes Send. Safe to call twice.
func (c *Client) close() {
	c.cancel()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	subs := c.subscriptions
	c.subscriptions = map[string]*pubsub.Subscription{}
	close(c.Send)
	c.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
