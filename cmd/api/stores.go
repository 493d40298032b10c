package main

import (
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/edrive/ride-hailing/internal/config"
	"github.com/edrive/ride-hailing/internal/domain/chat"
	"github.com/edrive/ride-hailing/internal/domain/driver"
	"github.com/edrive/ride-hailing/internal/domain/notification"
	"github.com/edrive/ride-hailing/internal/domain/offer"
	"github.com/edrive/ride-hailing/internal/domain/place"
	"github.com/edrive/ride-hailing/internal/domain/presence"
	"github.com/edrive/ride-hailing/internal/domain/review"
	"github.com/edrive/ride-hailing/internal/domain/ride"
	"github.com/edrive/ride-hailing/internal/domain/support"
	"github.com/edrive/ride-hailing/internal/repository/memory"
	"github.com/edrive/ride-hailing/internal/repository/postgres"
	"github.com/edrive/ride-hailing/internal/repository/redisstore"
	"github.com/edrive/ride-hailing/internal/service/matching"
	"github.com/edrive/ride-hailing/pkg/logger"
)

// stores is the persistence layer selected by STORE_DRIVER
type stores struct {
	Rides         ride.Repository
	Offers        offer.Repository
	Drivers       driver.Repository
	Messages      chat.Repository
	Safety        chat.SafetyRepository
	Notifications notification.Repository
	Devices       notification.DeviceRegistry
	Presence      presence.Repository
	Reviews       review.Repository
	Idempotency   matching.IdempotencyStore
	Complaints    support.Repository
	Places        place.Repository
}

func newStores(cfg *config.Config, db *sql.DB, rdb *redis.Client, log *logger.Logger) (*stores, error) {
	switch cfg.Store.Driver {
	case "postgres":
		chats := postgres.NewChatRepository(db)
		return &stores{
			Rides:         postgres.NewRideRepository(db),
			Offers:        postgres.NewOfferRepository(db),
			Drivers:       postgres.NewDriverRepository(db),
			Messages:      chats,
			Safety:        chats,
			Notifications: postgres.NewNotificationRepository(db),
			Devices:       redisstore.NewDeviceStore(rdb),
			Presence:      redisstore.NewPresenceStore(rdb, cfg.Cache.TTLPresence),
			Reviews:       postgres.NewReviewRepository(db),
			Idempotency:   redisstore.NewIdempotencyStore(rdb, cfg.Cache.TTLIdempotency),
			Complaints:    postgres.NewComplaintRepository(db),
			Places:        redisstore.NewCachedPlaces(postgres.NewPlaceRepository(db), rdb, cfg.Cache.TTLPlaces, log),
		}, nil
	case "memory":
		chats := memory.NewChatStore()
		return &stores{
			Rides:         memory.NewRideStore(),
			Offers:        memory.NewOfferStore(),
			Drivers:       memory.NewDriverStore(),
			Messages:      chats,
			Safety:        chats,
			Notifications: memory.NewNotificationStore(),
			Devices:       memory.NewDeviceStore(),
			Presence:      memory.NewPresenceStore(),
			Reviews:       memory.NewReviewStore(),
			Idempotency:   memory.NewIdempotencyStore(),
			Complaints:    memory.NewComplaintStore(),
			Places:        memory.NewPlaceStore(),
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
