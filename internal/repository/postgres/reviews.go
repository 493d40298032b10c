package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/edrive/ride-hailing/internal/domain/review"
	"github.com/lib/pq"
)

// ReviewRepository implements review.Repository
type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const uniqueViolation = "23505"

func (r *ReviewRepository) Create(ctx context.Context, rv *review.Review) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO ride_reviews (id, trip_id, reviewer_id, reviewee_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rv.ID, rv.TripID, rv.ReviewerID, rv.RevieweeID, rv.Rating, rv.Comment, rv.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return review.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

func (r *ReviewRepository) SummaryFor(ctx context.Context, userID string) (*review.Summary, error) {
	var avg sql.NullFloat64
	sum := &review.Summary{UserID: userID}
	err := r.db.QueryRowContext(ctx, `
		SELECT AVG(rating)::float8, COUNT(*) FROM ride_reviews WHERE reviewee_id = $1
	`, userID).Scan(&avg, &sum.Count)
	if err != nil {
		return nil, fmt.Errorf("review summary: %w", err)
	}
	sum.Average = avg.Float64
	return sum, nil
}
