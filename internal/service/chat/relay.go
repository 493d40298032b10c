package chat

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/edrive/ride-hailing/internal/domain/chat"
	"github.com/edrive/ride-hailing/internal/domain/notification"
	"github.com/edrive/ride-hailing/internal/domain/ride"
	"github.com/edrive/ride-hailing/internal/domain/trip"
	"github.com/edrive/ride-hailing/internal/events"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
	"github.com/edrive/ride-hailing/pkg/logger"
	"github.com/edrive/ride-hailing/pkg/pubsub"
)

// Notifier delivers notifications without blocking
type Notifier interface {
	Notify(ctx context.Context, n notification.Notification)
}

// Relay carries chat between the two participants of a trip and records
// blocks and reports against the other participant.
type Relay struct {
	rides    ride.Repository
	messages chat.Repository
	safety   chat.SafetyRepository
	broker   *pubsub.Broker
	notifier Notifier
	logger   *logger.Logger
	now      func() time.Time
}

func NewRelay(rides ride.Repository, messages chat.Repository, safety chat.SafetyRepository, broker *pubsub.Broker, notifier Notifier, log *logger.Logger) *Relay {
	return &Relay{
		rides:    rides,
		messages: messages,
		safety:   safety,
		broker:   broker,
		notifier: notifier,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Send appends a message to the trip's log. Chat stays open after the trip
// ends but closes once either side has blocked the other.
func (r *Relay) Send(ctx context.Context, tripID, senderID, text string) (*chat.Message, error) {
	s, err := r.session(ctx, tripID, senderID)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.Validation("Message text is required", chat.ErrEmptyMessage)
	}
	if utf8.RuneCountInString(text) > chat.MaxMessageLength {
		return nil, apperrors.Validation("Message text is too long", chat.ErrMessageTooLong)
	}

	other, _ := s.Other(senderID)
	blocked, err := r.safety.IsBlocked(ctx, senderID, other)
	if err != nil {
		return nil, apperrors.Transport("Safety store unavailable", err)
	}
	if blocked {
		return nil, apperrors.ErrBlocked
	}

	m := &chat.Message{
		ID:        uuid.NewString(),
		TripID:    tripID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: r.now(),
	}
	if err := r.messages.Append(ctx, m); err != nil {
		return nil, apperrors.Transport("Chat store unavailable", err)
	}

	r.broker.Publish(events.ChatTopic(tripID), events.ChatMessage, m)
	if r.notifier != nil {
		r.notifier.Notify(ctx, notification.Notification{
			UserID:        other,
			Title:         "New Message",
			Body:          preview(text),
			Type:          notification.TypeSystem,
			RideRequestID: tripID,
		})
	}
	return m, nil
}

// History returns every message of the trip in order
func (r *Relay) History(ctx context.Context, tripID, userID string) ([]*chat.Message, error) {
	if _, err := r.session(ctx, tripID, userID); err != nil {
		return nil, err
	}
	msgs, err := r.messages.History(ctx, tripID)
	if err != nil {
		return nil, apperrors.Transport("Chat store unavailable", err)
	}
	return msgs, nil
}

// Subscribe streams new messages after returning the history as a snapshot
func (r *Relay) Subscribe(ctx context.Context, tripID, userID string) (*pubsub.Subscription, []*chat.Message, error) {
	if _, err := r.session(ctx, tripID, userID); err != nil {
		return nil, nil, err
	}
	sub := r.broker.SubscribeContext(ctx, events.ChatTopic(tripID))
	history, err := r.History(ctx, tripID, userID)
	if err != nil {
		sub.Unsubscribe()
		return nil, nil, err
	}
	return sub, history, nil
}

// Block blocks the other participant of the trip for the caller
func (r *Relay) Block(ctx context.Context, tripID, callerID string) (*chat.Block, error) {
	s, err := r.session(ctx, tripID, callerID)
	if err != nil {
		return nil, err
	}
	other, _ := s.Other(callerID)

	b := &chat.Block{
		ID:        uuid.NewString(),
		BlockerID: callerID,
		BlockedID: other,
		TripID:    tripID,
		CreatedAt: r.now(),
	}
	if err := r.safety.CreateBlock(ctx, b); err != nil {
		return nil, apperrors.Transport("Safety store unavailable", err)
	}
	r.logger.Info("User blocked",
		logger.UserID(callerID),
		logger.String("blocked_id", other),
		logger.RequestID(tripID),
	)
	return b, nil
}

// Report files a safety report against the other participant of the trip
func (r *Relay) Report(ctx context.Context, tripID, callerID, reason, details string) (*chat.Report, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.Validation("Report reason is required", chat.ErrReasonRequired)
	}
	s, err := r.session(ctx, tripID, callerID)
	if err != nil {
		return nil, err
	}
	other, _ := s.Other(callerID)

	rep := &chat.Report{
		ID:         uuid.NewString(),
		ReporterID: callerID,
		ReportedID: other,
		TripID:     tripID,
		Reason:     reason,
		Details:    strings.TrimSpace(details),
		CreatedAt:  r.now(),
	}
	if err := r.safety.CreateReport(ctx, rep); err != nil {
		return nil, apperrors.Transport("Safety store unavailable", err)
	}
	r.logger.Warn("Safety report filed",
		logger.UserID(callerID),
		logger.String("reported_id", other),
		logger.RequestID(tripID),
		logger.String("reason", reason),
	)
	return rep, nil
}

// Reports lists safety reports, newest first. Administrative only.
func (r *Relay) Reports(ctx context.Context, limit int) ([]*chat.Report, error) {
	reports, err := r.safety.ListReports(ctx, limit)
	if err != nil {
		return nil, apperrors.Transport("Safety store unavailable", err)
	}
	return reports, nil
}

func (r *Relay) session(ctx context.Context, tripID, userID string) (*trip.Session, error) {
	s, err := trip.Resolve(ctx, r.rides, tripID)
	switch {
	case errors.Is(err, ride.ErrRequestNotFound):
		return nil, apperrors.ErrRequestNotFound
	case errors.Is(err, trip.ErrNoDriver):
		return nil, apperrors.ErrTripHasNoDriver
	case err != nil:
		return nil, apperrors.Transport("Request store unavailable", err)
	}
	if !s.IsParticipant(userID) {
		return nil, apperrors.ErrNotParticipant
	}
	return s, nil
}

func preview(text string) string {
	const max = 80
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max]) + "..."
}
