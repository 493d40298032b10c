package memory

import (
	"context"
	"sync"

	"github.com/edrive/ride-hailing/internal/domain/review"
)

// ReviewStore implements review.Repository
type ReviewStore struct {
	mu      sync.RWMutex
	reviews map[[2]string]*review.Review
}

func NewReviewStore() *ReviewStore {
	return &ReviewStore{reviews: make(map[[2]string]*review.Review)}
}

func (s *ReviewStore) Create(ctx context.Context, r *review.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{r.TripID, r.ReviewerID}
	if _, ok := s.reviews[key]; ok {
		return review.ErrDuplicate
	}
	c := *r
	s.reviews[key] = &c
	return nil
}

func (s *ReviewStore) SummaryFor(ctx context.Context, userID string) (*review.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := &review.Summary{UserID: userID}
	total := 0
	for _, r := range s.reviews {
		if r.RevieweeID == userID {
			total += r.Rating
			sum.Count++
		}
	}
	if sum.Count > 0 {
		sum.Average = float64(total) / float64(sum.Count)
	}
	return sum, nil
}
