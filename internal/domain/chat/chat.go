package chat

import (
	"context"
	"errors"
	"time"
)

// Message is one entry of a trip's append-only chat log
type Message struct {
	ID        string    `json:"id"`
	TripID    string    `json:"trip_id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	Seq       int64     `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}

// Block records that one participant blocked the other
type Block struct {
	ID        string    `json:"id"`
	BlockerID string    `json:"blocker_id"`
	BlockedID string    `json:"blocked_id"`
	TripID    string    `json:"trip_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Report records a safety complaint against the other participant
type Report struct {
	ID         string    `json:"id"`
	ReporterID string    `json:"reporter_id"`
	ReportedID string    `json:"reported_id"`
	TripID     string    `json:"trip_id"`
	Reason     string    `json:"reason"`
	Details    string    `json:"details,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Repository stores chat messages. Append assigns Seq, which breaks ties
// between messages with the same CreatedAt by arrival order.
type Repository interface {
	Append(ctx context.Context, m *Message) error
	History(ctx context.Context, tripID string) ([]*Message, error)
}

// SafetyRepository stores blocks and reports
type SafetyRepository interface {
	CreateBlock(ctx context.Context, b *Block) error
	IsBlocked(ctx context.Context, a, b string) (bool, error)
	CreateReport(ctx context.Context, r *Report) error
	ListReports(ctx context.Context, limit int) ([]*Report, error)
}

var (
	ErrEmptyMessage   = errors.New("message text is required")
	ErrMessageTooLong = errors.New("message text is too long")
	ErrReasonRequired = errors.New("report reason is required")
)

// MaxMessageLength bounds a single chat message
const MaxMessageLength = 2000

// Less orders messages by creation time, then by arrival
func Less(a, b *Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.Seq < b.Seq
}
