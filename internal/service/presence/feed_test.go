package presence

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edrive/ride-hailing/internal/domain/ride"
	"github.com/edrive/ride-hailing/internal/events"
	"github.com/edrive/ride-hailing/internal/repository/memory"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
	"github.com/edrive/ride-hailing/pkg/logger"
	"github.com/edrive/ride-hailing/pkg/pubsub"
)

func seedTrip(t *testing.T, rides *memory.RideStore, id string, status ride.Status, driverID string) {
	t.Helper()
	r := &ride.Request{
		ID:          id,
		PassengerID: "p1",
		Category:    ride.CategoryCar,
		Fare:        decimal.NewFromInt(300),
		Status:      status,
		CreatedAt:   time.Now(),
	}
	if driverID != "" {
		r.DriverID = &driverID
	}
	require.NoError(t, rides.Create(context.Background(), r))
}

func TestFeed_Ping(t *testing.T) {
	rides := memory.NewRideStore()
	seedTrip(t, rides, "active", ride.StatusOngoing, "d1")
	seedTrip(t, rides, "done", ride.StatusCompleted, "d1")
	seedTrip(t, rides, "waiting", ride.StatusPending, "")

	tests := []struct {
		name    string
		in      PingInput
		wantErr error
	}{
		{name: "driver on active trip", in: PingInput{TripID: "active", Identity: "d1", Lat: 32.07, Lng: 73.68}},
		{name: "passenger on active trip", in: PingInput{TripID: "active", Identity: "p1", Lat: 32.07, Lng: 73.68}},
		{name: "stranger", in: PingInput{TripID: "active", Identity: "x"}, wantErr: apperrors.ErrNotParticipant},
		{name: "completed trip", in: PingInput{TripID: "done", Identity: "d1"}, wantErr: apperrors.ErrTripNotActive},
		{name: "no driver yet", in: PingInput{TripID: "waiting", Identity: "p1"}, wantErr: apperrors.ErrTripHasNoDriver},
		{name: "unknown trip", in: PingInput{TripID: "nope", Identity: "p1"}, wantErr: apperrors.ErrRequestNotFound},
		{name: "bad latitude", in: PingInput{TripID: "active", Identity: "d1", Lat: 91}, wantErr: apperrors.ErrInvalidCoordinates},
	}

	feed := NewFeed(rides, memory.NewPresenceStore(), pubsub.NewBroker(logger.NewNop()), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := feed.Ping(context.Background(), tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFeed_LatestKeepsOnlyNewest(t *testing.T) {
	rides := memory.NewRideStore()
	seedTrip(t, rides, "r1", ride.StatusAccepted, "d1")
	feed := NewFeed(rides, memory.NewPresenceStore(), pubsub.NewBroker(logger.NewNop()), nil)
	ctx := context.Background()

	rotation := 90.0
	_, err := feed.Ping(ctx, PingInput{TripID: "r1", Identity: "d1", Lat: 32.0, Lng: 73.0})
	require.NoError(t, err)
	_, err = feed.Ping(ctx, PingInput{TripID: "r1", Identity: "d1", Lat: 32.1, Lng: 73.1, Rotation: &rotation})
	require.NoError(t, err)

	snap, err := feed.Latest(ctx, "r1", "p1")
	require.NoError(t, err)
	require.Len(t, snap, 1)
	assert.Equal(t, 32.1, snap["d1"].Lat)
	assert.Equal(t, 90.0, *snap["d1"].Rotation)
}

func TestFeed_Subscribe(t *testing.T) {
	rides := memory.NewRideStore()
	seedTrip(t, rides, "r1", ride.StatusOngoing, "d1")
	feed := NewFeed(rides, memory.NewPresenceStore(), pubsub.NewBroker(logger.NewNop()), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, _, err := feed.Subscribe(ctx, "r1", "x")
	assert.ErrorIs(t, err, apperrors.ErrNotParticipant)

	sub, snap, err := feed.Subscribe(ctx, "r1", "p1")
	require.NoError(t, err)
	defer sub.Unsubscribe()
	assert.Empty(t, snap)

	_, err = feed.Ping(ctx, PingInput{TripID: "r1", Identity: "d1", Lat: 1, Lng: 2})
	require.NoError(t, err)

	select {
	case ev := <-sub.C():
		assert.Equal(t, events.LocationUpdated, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("location update not delivered")
	}
}
