package notification

import (
	"context"
	"errors"
	"time"
)

// Type classifies a notification for client rendering
type Type string

const (
	TypeRideRequest Type = "ride_request"
	TypeSystem      Type = "system"
	TypeAlert       Type = "alert"
)

// Notification is a record addressed to one user
type Notification struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	Type          Type      `json:"type"`
	RideRequestID string    `json:"ride_request_id,omitempty"`
	IsRead        bool      `json:"is_read"`
	CreatedAt     time.Time `json:"created_at"`
}

// Repository stores notifications per recipient
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, userID, id string) error
	CountUnread(ctx context.Context, userID string) (int64, error)
}

// DeviceRegistry maps users to push tokens
type DeviceRegistry interface {
	SetToken(ctx context.Context, userID, token string) error
	Token(ctx context.Context, userID string) (string, error)
}

var ErrNotificationNotFound = errors.New("notification not found")
