package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/edrive/ride-hailing/internal/domain/place"
	"github.com/edrive/ride-hailing/pkg/cache"
	"github.com/edrive/ride-hailing/pkg/logger"
)

const placesKey = "catalog:places"

// CachedPlaces serves the place list from Redis and falls through to the
// backing store on a miss. Every write drops the cached list.
type CachedPlaces struct {
	place.Repository
	client redis.Cmdable
	ttl    time.Duration
	logger *logger.Logger
}

func NewCachedPlaces(repo place.Repository, client redis.Cmdable, ttl time.Duration, log *logger.Logger) *CachedPlaces {
	return &CachedPlaces{Repository: repo, client: client, ttl: ttl, logger: log}
}

func (c *CachedPlaces) List(ctx context.Context) ([]*place.Place, error) {
	if raw, err := cache.Get(ctx, c.client, placesKey); err != nil {
		c.logger.Warn("Place cache read failed", logger.Err(err))
	} else if raw != "" {
		var out []*place.Place
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out, nil
		}
	}

	out, err := c.Repository.List(ctx)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(out); err == nil {
		if err := cache.SetWithExpiry(ctx, c.client, placesKey, b, c.ttl); err != nil {
			c.logger.Warn("Place cache write failed", logger.Err(err))
		}
	}
	return out, nil
}

func (c *CachedPlaces) Save(ctx context.Context, p *place.Place) error {
	if err := c.Repository.Save(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *CachedPlaces) Delete(ctx context.Context, id string) error {
	if err := c.Repository.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx)
	return nil
}

func (c *CachedPlaces) invalidate(ctx context.Context) {
	if err := cache.Delete(ctx, c.client, placesKey); err != nil {
		c.logger.Warn("Place cache invalidation failed", logger.Err(err))
	}
}
