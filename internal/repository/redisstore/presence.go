// Package redisstore keeps short-lived state in Redis: latest trip positions,
// push device tokens and idempotency keys.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/edrive/ride-hailing/internal/domain/presence"
	"github.com/redis/go-redis/v9"
)

// PresenceStore keeps one hash per trip, one field per identity. HSET
// overwrites the field, so only the latest ping survives.
type PresenceStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewPresenceStore(client redis.Cmdable, ttl time.Duration) *PresenceStore {
	return &PresenceStore{client: client, ttl: ttl}
}

func presenceKey(tripID string) string {
	return fmt.Sprintf("trip:%s:locations", tripID)
}

func (s *PresenceStore) Put(ctx context.Context, p *presence.Ping) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode ping: %w", err)
	}

	key := presenceKey(p.TripID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, p.Identity, b)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store ping: %w", err)
	}
	return nil
}

func (s *PresenceStore) Snapshot(ctx context.Context, tripID string) (map[string]*presence.Ping, error) {
	fields, err := s.client.HGetAll(ctx, presenceKey(tripID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load pings: %w", err)
	}

	out := make(map[string]*presence.Ping, len(fields))
	for identity, raw := range fields {
		var p presence.Ping
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			continue
		}
		out[identity] = &p
	}
	return out, nil
}
