package redisstore

import (
	"context"
	"time"

	"github.com/edrive/ride-hailing/pkg/cache"
	"github.com/redis/go-redis/v9"
)

const inFlight = "in-flight"

// IdempotencyStore remembers which request id an Idempotency-Key produced
type IdempotencyStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewIdempotencyStore(client redis.Cmdable, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{client: client, ttl: ttl}
}

func idempotencyKey(key string) string {
	return "idempotency:request:" + key
}

// Reserve claims key. If the key already completed, its request id is returned.
// An empty id with reserved false means another call holds the key.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (string, bool, error) {
	ok, err := cache.SetNX(ctx, s.client, idempotencyKey(key), inFlight, s.ttl)
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}

	existing, err := cache.Get(ctx, s.client, idempotencyKey(key))
	if err != nil {
		return "", false, err
	}
	if existing == inFlight {
		existing = ""
	}
	return existing, false, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key, requestID string) error {
	return cache.SetWithExpiry(ctx, s.client, idempotencyKey(key), requestID, s.ttl)
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return cache.Delete(ctx, s.client, idempotencyKey(key))
}
