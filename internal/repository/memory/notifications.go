package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/edrive/ride-hailing/internal/domain/notification"
)

// NotificationStore implements notification.Repository
type NotificationStore struct {
	mu     sync.RWMutex
	byUser map[string]map[string]*notification.Notification
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{byUser: make(map[string]map[string]*notification.Notification)}
}

func (s *NotificationStore) Create(ctx context.Context, n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.byUser[n.UserID]
	if !ok {
		m = make(map[string]*notification.Notification)
		s.byUser[n.UserID] = m
	}
	c := *n
	m[n.ID] = &c
	return nil
}

func (s *NotificationStore) ListByUser(ctx context.Context, userID string, limit int) ([]*notification.Notification, error) {
	s.mu.RLock()
	var out []*notification.Notification
	for _, n := range s.byUser[userID] {
		c := *n
		out = append(out, &c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.byUser[userID][id]
	if !ok {
		return notification.ErrNotificationNotFound
	}
	n.IsRead = true
	return nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var changed int64
	for _, n := range s.byUser[userID] {
		if !n.IsRead {
			n.IsRead = true
			changed++
		}
	}
	return changed, nil
}

func (s *NotificationStore) Delete(ctx context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byUser[userID][id]; !ok {
		return notification.ErrNotificationNotFound
	}
	delete(s.byUser[userID], id)
	return nil
}

func (s *NotificationStore) CountUnread(ctx context.Context, userID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, item := range s.byUser[userID] {
		if !item.IsRead {
			n++
		}
	}
	return n, nil
}

// DeviceStore implements notification.DeviceRegistry
type DeviceStore struct {
	mu     sync.RWMutex
	tokens map[string]string
}

func NewDeviceStore() *DeviceStore {
	return &DeviceStore{tokens: make(map[string]string)}
}

func (s *DeviceStore) SetToken(ctx context.Context, userID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[userID] = token
	return nil
}

func (s *DeviceStore) Token(ctx context.Context, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens[userID], nil
}
