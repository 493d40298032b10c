package notification

import (
	"context"
	"errors"
	"strings"

	"github.com/edrive/ride-hailing/internal/domain/notification"
	"github.com/edrive/ride-hailing/internal/events"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
	"github.com/edrive/ride-hailing/pkg/pubsub"
)

// Service serves a user's notification inbox
type Service struct {
	repo    notification.Repository
	devices notification.DeviceRegistry
	broker  *pubsub.Broker
}

// Inbox is a page of notifications with the unread count
type Inbox struct {
	Notifications []*notification.Notification `json:"notifications"`
	Unread        int64                        `json:"unread"`
}

func NewService(repo notification.Repository, devices notification.DeviceRegistry, broker *pubsub.Broker) *Service {
	return &Service{repo: repo, devices: devices, broker: broker}
}

func (s *Service) List(ctx context.Context, userID string, limit int) (*Inbox, error) {
	list, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.Transport("Notification store unavailable", err)
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, apperrors.Transport("Notification store unavailable", err)
	}
	if list == nil {
		list = []*notification.Notification{}
	}
	return &Inbox{Notifications: list, Unread: unread}, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	return mapErr(s.repo.MarkRead(ctx, userID, id))
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	return n, mapErr(err)
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	return mapErr(s.repo.Delete(ctx, userID, id))
}

// RegisterDevice stores the push token of the user's current device
func (s *Service) RegisterDevice(ctx context.Context, userID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperrors.Validation("Device token is required", nil)
	}
	if err := s.devices.SetToken(ctx, userID, token); err != nil {
		return apperrors.Transport("Device registry unavailable", err)
	}
	return nil
}

// Subscribe streams notifications addressed to userID as they are stored
func (s *Service) Subscribe(ctx context.Context, userID string) *pubsub.Subscription {
	return s.broker.SubscribeContext(ctx, events.NotificationsTopic(userID))
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, notification.ErrNotificationNotFound):
		return apperrors.ErrNotificationNotFound
	}
	return apperrors.Transport("Notification store unavailable", err)
}
