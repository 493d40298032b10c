package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edrive/ride-hailing/internal/domain/notification"
	"github.com/edrive/ride-hailing/internal/domain/review"
	"github.com/edrive/ride-hailing/internal/domain/ride"
	"github.com/edrive/ride-hailing/internal/domain/trip"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
)

// Notifier delivers notifications without blocking
type Notifier interface {
	Notify(ctx context.Context, n notification.Notification)
}

// Service lets trip participants rate each other once the trip is completed
type Service struct {
	rides    ride.Repository
	reviews  review.Repository
	notifier Notifier
	now      func() time.Time
}

func NewService(rides ride.Repository, reviews review.Repository, notifier Notifier) *Service {
	return &Service{
		rides:    rides,
		reviews:  reviews,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create stores the caller's review of the other participant
func (s *Service) Create(ctx context.Context, tripID, reviewerID string, rating int, comment string) (*review.Review, error) {
	session, err := trip.Resolve(ctx, s.rides, tripID)
	switch {
	case errors.Is(err, ride.ErrRequestNotFound):
		return nil, apperrors.ErrRequestNotFound
	case errors.Is(err, trip.ErrNoDriver):
		return nil, apperrors.ErrTripHasNoDriver
	case err != nil:
		return nil, apperrors.Transport("Request store unavailable", err)
	}

	reviewee, err := session.Other(reviewerID)
	if err != nil {
		return nil, apperrors.ErrNotParticipant
	}
	if session.Status != ride.StatusCompleted {
		return nil, apperrors.Conflict("Only completed trips can be reviewed", nil).
			WithDetail("current", string(session.Status))
	}

	r := &review.Review{
		ID:         uuid.NewString(),
		TripID:     tripID,
		ReviewerID: reviewerID,
		RevieweeID: reviewee,
		Rating:     rating,
		Comment:    strings.TrimSpace(comment),
		CreatedAt:  s.now(),
	}
	if err := r.Validate(); err != nil {
		return nil, apperrors.Validation("Rating must be between 1 and 5", err)
	}
	if err := s.reviews.Create(ctx, r); err != nil {
		if errors.Is(err, review.ErrDuplicate) {
			return nil, apperrors.ErrAlreadyReviewed
		}
		return nil, apperrors.Transport("Review store unavailable", err)
	}

	if s.notifier != nil {
		s.notifier.Notify(ctx, notification.Notification{
			UserID:        reviewee,
			Title:         "New Rating",
			Body:          fmt.Sprintf("You received %d stars for your trip.", rating),
			Type:          notification.TypeSystem,
			RideRequestID: tripID,
		})
	}
	return r, nil
}

// Summary returns the average rating a user received
func (s *Service) Summary(ctx context.Context, userID string) (*review.Summary, error) {
	sum, err := s.reviews.SummaryFor(ctx, userID)
	if err != nil {
		return nil, apperrors.Transport("Review store unavailable", err)
	}
	return sum, nil
}
