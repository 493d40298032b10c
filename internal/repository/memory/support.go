package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/edrive/ride-hailing/internal/domain/place"
	"github.com/edrive/ride-hailing/internal/domain/support"
)

// ComplaintStore implements support.Repository
type ComplaintStore struct {
	mu         sync.RWMutex
	complaints map[string]*support.Complaint
}

func NewComplaintStore() *ComplaintStore {
	return &ComplaintStore{complaints: make(map[string]*support.Complaint)}
}

func (s *ComplaintStore) Create(ctx context.Context, c *support.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := *c
	s.complaints[c.ID] = &v
	return nil
}

func (s *ComplaintStore) GetByID(ctx context.Context, id string) (*support.Complaint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.complaints[id]
	if !ok {
		return nil, support.ErrComplaintNotFound
	}
	v := *c
	return &v, nil
}

func (s *ComplaintStore) List(ctx context.Context, status support.Status, limit int) ([]*support.Complaint, error) {
	s.mu.RLock()
	var out []*support.Complaint
	for _, c := range s.complaints {
		if status != "" && c.Status != status {
			continue
		}
		v := *c
		out = append(out, &v)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *ComplaintStore) UpdateStatus(ctx context.Context, id string, status support.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	if !ok {
		return support.ErrComplaintNotFound
	}
	c.Status = status
	c.UpdatedAt = at
	return nil
}

// PlaceStore implements place.Repository
type PlaceStore struct {
	mu     sync.RWMutex
	places map[string]*place.Place
}

func NewPlaceStore() *PlaceStore {
	return &PlaceStore{places: make(map[string]*place.Place)}
}

func (s *PlaceStore) Save(ctx context.Context, p *place.Place) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := *p
	s.places[p.ID] = &v
	return nil
}

func (s *PlaceStore) GetByID(ctx context.Context, id string) (*place.Place, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.places[id]
	if !ok {
		return nil, place.ErrPlaceNotFound
	}
	v := *p
	return &v, nil
}

func (s *PlaceStore) List(ctx context.Context) ([]*place.Place, error) {
	s.mu.RLock()
	out := make([]*place.Place, 0, len(s.places))
	for _, p := range s.places {
		v := *p
		out = append(out, &v)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *PlaceStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.places[id]; !ok {
		return place.ErrPlaceNotFound
	}
	delete(s.places, id)
	return nil
}
