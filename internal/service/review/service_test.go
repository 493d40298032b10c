package review

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edrive/ride-hailing/internal/domain/notification"
	"github.com/edrive/ride-hailing/internal/domain/ride"
	"github.com/edrive/ride-hailing/internal/repository/memory"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.Notification
}

func (r *recordingNotifier) Notify(ctx context.Context, n notification.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func seed(t *testing.T, rides *memory.RideStore, id string, status ride.Status) {
	t.Helper()
	d := "d1"
	require.NoError(t, rides.Create(context.Background(), &ride.Request{
		ID: id, PassengerID: "p1", Category: ride.CategoryRickshaw,
		Fare: decimal.NewFromInt(150), Status: status, DriverID: &d, CreatedAt: time.Now(),
	}))
}

func TestService_Create(t *testing.T) {
	tests := []struct {
		name     string
		trip     string
		reviewer string
		rating   int
		wantErr  error
		wantCode string
	}{
		{name: "passenger rates driver", trip: "done", reviewer: "p1", rating: 5},
		{name: "driver rates passenger", trip: "done", reviewer: "d1", rating: 4},
		{name: "stranger", trip: "done", reviewer: "x", rating: 5, wantErr: apperrors.ErrNotParticipant},
		{name: "trip still running", trip: "running", reviewer: "p1", rating: 5, wantCode: "CONFLICT"},
		{name: "rating out of range", trip: "done", reviewer: "p1", rating: 6, wantCode: "VALIDATION_ERROR"},
		{name: "unknown trip", trip: "missing", reviewer: "p1", rating: 3, wantErr: apperrors.ErrRequestNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rides := memory.NewRideStore()
			seed(t, rides, "done", ride.StatusCompleted)
			seed(t, rides, "running", ride.StatusOngoing)
			notifier := &recordingNotifier{}
			svc := NewService(rides, memory.NewReviewStore(), notifier)

			r, err := svc.Create(context.Background(), tt.trip, tt.reviewer, tt.rating, "Great ride")
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantCode != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, apperrors.GetAppError(err).Code)
			default:
				require.NoError(t, err)
				assert.NotEqual(t, tt.reviewer, r.RevieweeID)
				require.Len(t, notifier.sent, 1)
				assert.Equal(t, r.RevieweeID, notifier.sent[0].UserID)
			}
		})
	}
}

func TestService_OneReviewPerReviewer(t *testing.T) {
	rides := memory.NewRideStore()
	seed(t, rides, "r1", ride.StatusCompleted)
	seed(t, rides, "r2", ride.StatusCompleted)
	svc := NewService(rides, memory.NewReviewStore(), nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, "r1", "p1", 5, "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "r1", "p1", 1, "changed my mind")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyReviewed)

	_, err = svc.Create(ctx, "r2", "p1", 2, "")
	require.NoError(t, err)

	sum, err := svc.Summary(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Count)
	assert.InDelta(t, 3.5, sum.Average, 0.001)
}
