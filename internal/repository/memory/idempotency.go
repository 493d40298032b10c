package memory

import (
	"context"
	"sync"
)

// IdempotencyStore remembers which request id a client key produced
type IdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]string
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{keys: make(map[string]string)}
}

// Reserve claims key. If the key already completed, its request id is returned.
// An empty id with reserved false means another call holds the key.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.keys[key]; ok {
		return v, false, nil
	}
	s.keys[key] = ""
	return "", true, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key, requestID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = requestID
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}
