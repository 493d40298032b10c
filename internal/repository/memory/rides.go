// Package memory holds in-process repository implementations used by tests
// and by single-node runs without Postgres or Redis.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/edrive/ride-hailing/internal/domain/ride"
)

// RideStore implements ride.Repository
type RideStore struct {
	mu    sync.RWMutex
	rides map[string]*ride.Request
}

func NewRideStore() *RideStore {
	return &RideStore{rides: make(map[string]*ride.Request)}
}

func cloneRequest(r *ride.Request) *ride.Request {
	c := *r
	if r.DriverID != nil {
		d := *r.DriverID
		c.DriverID = &d
	}
	c.AcceptedAt = cloneTime(r.AcceptedAt)
	c.StartedAt = cloneTime(r.StartedAt)
	c.CompletedAt = cloneTime(r.CompletedAt)
	c.CancelledAt = cloneTime(r.CancelledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func (s *RideStore) Create(ctx context.Context, r *ride.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rides[r.ID] = cloneRequest(r)
	return nil
}

func (s *RideStore) GetByID(ctx context.Context, id string) (*ride.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rides[id]
	if !ok {
		return nil, ride.ErrRequestNotFound
	}
	return cloneRequest(r), nil
}

func (s *RideStore) List(ctx context.Context, filter ride.Filter) ([]*ride.Request, error) {
	s.mu.RLock()
	var out []*ride.Request
	for _, r := range s.rides {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.Category != "" && r.Category != filter.Category {
			continue
		}
		out = append(out, cloneRequest(r))
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *RideStore) ListByParticipant(ctx context.Context, userID string, limit int) ([]*ride.Request, error) {
	s.mu.RLock()
	var out []*ride.Request
	for _, r := range s.rides {
		if r.IsParticipant(userID) {
			out = append(out, cloneRequest(r))
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Accept is the in-memory compare-and-swap on status
func (s *RideStore) Accept(ctx context.Context, id string, bind ride.Binding) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rides[id]
	if !ok {
		return false, ride.ErrRequestNotFound
	}
	if r.Status != ride.StatusPending {
		return false, nil
	}

	d, at := bind.DriverID, bind.At
	r.Status = ride.StatusAccepted
	r.DriverID = &d
	r.OfferID = bind.OfferID
	r.Fare = bind.Fare
	r.AcceptedAt = &at
	r.UpdatedAt = at
	return true, nil
}

func (s *RideStore) Transition(ctx context.Context, id string, t ride.Transition) (*ride.Request, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rides[id]
	if !ok {
		return nil, false, ride.ErrRequestNotFound
	}
	if !t.Matches(r) {
		return nil, false, nil
	}
	t.Apply(r)
	return cloneRequest(r), true, nil
}

func (s *RideStore) ActiveByDriver(ctx context.Context, driverID string) (*ride.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rides {
		if r.IsDriver(driverID) && r.IsActiveTrip() {
			return cloneRequest(r), nil
		}
	}
	return nil, ride.ErrRequestNotFound
}

func (s *RideStore) CompletedByDriver(ctx context.Context, driverID string, from, to time.Time) ([]*ride.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ride.Request
	for _, r := range s.rides {
		if !r.IsDriver(driverID) || r.Status != ride.StatusCompleted || r.CompletedAt == nil {
			continue
		}
		if r.CompletedAt.Before(from) || !r.CompletedAt.Before(to) {
			continue
		}
		out = append(out, cloneRequest(r))
	}
	return out, nil
}

func (s *RideStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rides[id]; !ok {
		return ride.ErrRequestNotFound
	}
	delete(s.rides, id)
	return nil
}

func sortNewestFirst(rs []*ride.Request) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].CreatedAt.Equal(rs[j].CreatedAt) {
			return rs[i].ID > rs[j].ID
		}
		return rs[i].CreatedAt.After(rs[j].CreatedAt)
	})
}
