package push

import "context"

// Message is a push notification addressed to one device
type Message struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Pusher delivers messages to devices
type Pusher interface {
	Send(ctx context.Context, msg *Message) (string, error)
}

// Nop accepts every message and delivers nothing
type Nop struct{}

func (Nop) Send(context.Context, *Message) (string, error) { return "", nil }
