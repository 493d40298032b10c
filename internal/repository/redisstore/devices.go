package redisstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const deviceTokensKey = "push:tokens"

// DeviceStore maps user ids to FCM registration tokens
type DeviceStore struct {
	client redis.Cmdable
}

func NewDeviceStore(client redis.Cmdable) *DeviceStore {
	return &DeviceStore{client: client}
}

func (s *DeviceStore) SetToken(ctx context.Context, userID, token string) error {
	if token == "" {
		return s.client.HDel(ctx, deviceTokensKey, userID).Err()
	}
	return s.client.HSet(ctx, deviceTokensKey, userID, token).Err()
}

func (s *DeviceStore) Token(ctx context.Context, userID string) (string, error) {
	token, err := s.client.HGet(ctx, deviceTokensKey, userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}
