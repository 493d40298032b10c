package review

import (
	"context"
	"errors"
	"time"
)

// Review is one participant's rating of the other after a completed trip
type Review struct {
	ID         string    `json:"id"`
	TripID     string    `json:"trip_id"`
	ReviewerID string    `json:"reviewer_id"`
	RevieweeID string    `json:"reviewee_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Summary aggregates the ratings a user received
type Summary struct {
	UserID  string  `json:"user_id"`
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// Repository stores reviews
type Repository interface {
	// Create fails with ErrDuplicate when the reviewer already reviewed the trip
	Create(ctx context.Context, r *Review) error
	SummaryFor(ctx context.Context, userID string) (*Summary, error)
}

var (
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrDuplicate     = errors.New("trip already reviewed by this user")
)

// Validate checks the rating range
func (r *Review) Validate() error {
	if r.Rating < 1 || r.Rating > 5 {
		return ErrInvalidRating
	}
	return nil
}
