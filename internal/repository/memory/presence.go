package memory

import (
	"context"
	"sync"

	"github.com/edrive/ride-hailing/internal/domain/presence"
)

// PresenceStore implements presence.Repository
type PresenceStore struct {
	mu    sync.RWMutex
	trips map[string]map[string]*presence.Ping
}

func NewPresenceStore() *PresenceStore {
	return &PresenceStore{trips: make(map[string]map[string]*presence.Ping)}
}

func (s *PresenceStore) Put(ctx context.Context, p *presence.Ping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.trips[p.TripID]
	if !ok {
		m = make(map[string]*presence.Ping)
		s.trips[p.TripID] = m
	}
	c := *p
	m[p.Identity] = &c
	return nil
}

func (s *PresenceStore) Snapshot(ctx context.Context, tripID string) (map[string]*presence.Ping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*presence.Ping, len(s.trips[tripID]))
	for id, p := range s.trips[tripID] {
		c := *p
		out[id] = &c
	}
	return out, nil
}
