package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/edrive/ride-hailing/internal/domain/driver"
)

// DriverStore implements driver.Repository
type DriverStore struct {
	mu      sync.RWMutex
	drivers map[string]*driver.Driver
}

func NewDriverStore() *DriverStore {
	return &DriverStore{drivers: make(map[string]*driver.Driver)}
}

func cloneDriver(d *driver.Driver) *driver.Driver {
	c := *d
	c.Documents = append([]driver.Document(nil), d.Documents...)
	return &c
}

func (s *DriverStore) Save(ctx context.Context, d *driver.Driver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drivers[d.ID] = cloneDriver(d)
	return nil
}

func (s *DriverStore) GetByID(ctx context.Context, id string) (*driver.Driver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.drivers[id]
	if !ok {
		return nil, driver.ErrDriverNotFound
	}
	return cloneDriver(d), nil
}

func (s *DriverStore) List(ctx context.Context, status driver.Status) ([]*driver.Driver, error) {
	s.mu.RLock()
	var out []*driver.Driver
	for _, d := range s.drivers {
		if status == "" || d.Status == status {
			out = append(out, cloneDriver(d))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *DriverStore) UpdateStatus(ctx context.Context, id string, status driver.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drivers[id]
	if !ok {
		return driver.ErrDriverNotFound
	}
	return d.SetStatus(status)
}
