package presence

import (
	"context"
	"errors"
	"time"

	"github.com/edrive/ride-hailing/internal/domain/presence"
	"github.com/edrive/ride-hailing/internal/domain/ride"
	"github.com/edrive/ride-hailing/internal/domain/trip"
	"github.com/edrive/ride-hailing/internal/events"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
	"github.com/edrive/ride-hailing/pkg/monitoring"
	"github.com/edrive/ride-hailing/pkg/pubsub"
)

// Feed shares live positions between the two participants of a trip
type Feed struct {
	rides  ride.Repository
	store  presence.Repository
	broker *pubsub.Broker
	nr     *monitoring.NewRelicApp
	now    func() time.Time
}

func NewFeed(rides ride.Repository, store presence.Repository, broker *pubsub.Broker, nr *monitoring.NewRelicApp) *Feed {
	if nr == nil {
		nr = monitoring.Disabled()
	}
	return &Feed{
		rides:  rides,
		store:  store,
		broker: broker,
		nr:     nr,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// PingInput is one position report
type PingInput struct {
	TripID   string
	Identity string
	Lat      float64
	Lng      float64
	Rotation *float64
}

// Ping overwrites the caller's latest position on an active trip
func (f *Feed) Ping(ctx context.Context, in PingInput) (*presence.Ping, error) {
	s, err := f.session(ctx, in.TripID, in.Identity)
	if err != nil {
		return nil, err
	}
	if !s.IsActive() {
		return nil, apperrors.ErrTripNotActive
	}

	p := &presence.Ping{
		TripID:    in.TripID,
		Identity:  in.Identity,
		Lat:       in.Lat,
		Lng:       in.Lng,
		Rotation:  in.Rotation,
		Timestamp: f.now(),
	}
	if err := p.Validate(); err != nil {
		return nil, apperrors.ErrInvalidCoordinates
	}
	if err := f.store.Put(ctx, p); err != nil {
		return nil, apperrors.Transport("Presence store unavailable", err)
	}

	f.broker.Publish(events.LocationTopic(in.TripID), events.LocationUpdated, p)
	f.nr.RecordLocationPing()
	return p, nil
}

// Latest returns the most recent ping of each participant
func (f *Feed) Latest(ctx context.Context, tripID, userID string) (map[string]*presence.Ping, error) {
	if _, err := f.session(ctx, tripID, userID); err != nil {
		return nil, err
	}
	snap, err := f.store.Snapshot(ctx, tripID)
	if err != nil {
		return nil, apperrors.Transport("Presence store unavailable", err)
	}
	if snap == nil {
		snap = map[string]*presence.Ping{}
	}
	return snap, nil
}

// Subscribe streams position updates of a trip, starting from the current snapshot
func (f *Feed) Subscribe(ctx context.Context, tripID, userID string) (*pubsub.Subscription, map[string]*presence.Ping, error) {
	if _, err := f.session(ctx, tripID, userID); err != nil {
		return nil, nil, err
	}
	sub := f.broker.SubscribeContext(ctx, events.LocationTopic(tripID))
	snap, err := f.Latest(ctx, tripID, userID)
	if err != nil {
		sub.Unsubscribe()
		return nil, nil, err
	}
	return sub, snap, nil
}

func (f *Feed) session(ctx context.Context, tripID, userID string) (*trip.Session, error) {
	s, err := trip.Resolve(ctx, f.rides, tripID)
	switch {
	case errors.Is(err, ride.ErrRequestNotFound):
		return nil, apperrors.ErrRequestNotFound
	case errors.Is(err, trip.ErrNoDriver):
		return nil, apperrors.ErrTripHasNoDriver
	case err != nil:
		return nil, apperrors.Transport("Request store unavailable", err)
	}
	if !s.IsParticipant(userID) {
		return nil, apperrors.ErrNotParticipant
	}
	return s, nil
}
