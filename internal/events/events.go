// Package events names the live topics and lifecycle records shared by the
// services, the WebSocket hub and the SSE endpoints.
package events

import (
	"context"
	"time"

	"github.com/edrive/ride-hailing/internal/domain/ride"
)

// Live event types
const (
	RequestCreated  = "request.created"
	RequestUpdated  = "request.updated"
	OfferCreated    = "offer.created"
	LocationUpdated = "location.updated"
	ChatMessage     = "chat.message"
	Notification    = "notification"
)

// Lifecycle-only record types
const (
	OfferAccepted  = "offer.accepted"
	RequestDeleted = "request.deleted"
)

func PendingTopic(c ride.Category) string { return "pending:" + string(c) }

func RequestTopic(id string) string { return "request:" + id }

func OffersTopic(requestID string) string { return "offers:" + requestID }

func LocationTopic(tripID string) string { return "location:" + tripID }

func ChatTopic(tripID string) string { return "chat:" + tripID }

func NotificationsTopic(userID string) string { return "notifications:" + userID }

// Lifecycle is an audit record of a request state change or offer
type Lifecycle struct {
	Type      string      `json:"type"`
	RequestID string      `json:"request_id"`
	ActorID   string      `json:"actor_id"`
	From      ride.Status `json:"from,omitempty"`
	To        ride.Status `json:"to,omitempty"`
	OfferID   string      `json:"offer_id,omitempty"`
	DriverID  string      `json:"driver_id,omitempty"`
	Fare      string      `json:"fare,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	At        time.Time   `json:"at"`
}

// Sink receives lifecycle records for downstream consumers
type Sink interface {
	Record(ctx context.Context, ev Lifecycle) error
}

// NopSink discards lifecycle records
type NopSink struct{}

func (NopSink) Record(context.Context, Lifecycle) error { return nil }

// Publisher is the subset of eventlog.Writer used by KafkaSink
type Publisher interface {
	Publish(ctx context.Context, key, recordType string, at time.Time, payload interface{}) error
}

// KafkaSink records lifecycle events keyed by request id
type KafkaSink struct {
	Writer Publisher
}

func (k KafkaSink) Record(ctx context.Context, ev Lifecycle) error {
	return k.Writer.Publish(ctx, ev.RequestID, ev.Type, ev.At, ev)
}
