package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edrive/ride-hailing/internal/domain/notification"
	"github.com/edrive/ride-hailing/internal/events"
	"github.com/edrive/ride-hailing/internal/repository/memory"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
	"github.com/edrive/ride-hailing/pkg/logger"
	"github.com/edrive/ride-hailing/pkg/pubsub"
	"github.com/edrive/ride-hailing/pkg/push"
	"github.com/edrive/ride-hailing/pkg/retry"
)

type fakePusher struct {
	mu   sync.Mutex
	sent []*push.Message
	err  error
}

func (f *fakePusher) Send(ctx context.Context, msg *push.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "msg-1", nil
}

func (f *fakePusher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs [][]byte
}

func (q *fakeQueue) Publish(ctx context.Context, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, b)
	return nil
}

func newDispatcher(pusher push.Pusher, jobs Enqueuer) (*Dispatcher, *memory.NotificationStore, *memory.DeviceStore, *pubsub.Broker) {
	repo := memory.NewNotificationStore()
	devices := memory.NewDeviceStore()
	broker := pubsub.NewBroker(logger.NewNop())
	d := NewDispatcher(repo, devices, broker, pusher, jobs, logger.NewNop(), Config{Workers: 2, QueueSize: 16, Timeout: time.Second})
	return d, repo, devices, broker
}

func TestDispatcher_StoresPublishesAndPushes(t *testing.T) {
	pusher := &fakePusher{}
	d, repo, devices, broker := newDispatcher(pusher, nil)
	require.NoError(t, devices.SetToken(context.Background(), "p1", "token-p1"))

	sub := broker.Subscribe(events.NotificationsTopic("p1"))
	defer sub.Unsubscribe()

	d.Start()
	d.Notify(context.Background(), notification.Notification{
		UserID: "p1", Title: "New Bid Received!", Body: "Ali offered Rs 90 for your trip.", Type: notification.TypeRideRequest,
	})
	d.Stop()

	list, err := repo.ListByUser(context.Background(), "p1", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsRead)
	assert.NotEmpty(t, list[0].ID)

	select {
	case ev := <-sub.C():
		assert.Equal(t, events.Notification, ev.Type)
	default:
		t.Fatal("notification not published")
	}
	assert.Equal(t, 1, pusher.count())
}

func TestDispatcher_PushFailureIsSwallowed(t *testing.T) {
	pusher := &fakePusher{err: errors.New("fcm unavailable")}
	d, repo, devices, _ := newDispatcher(pusher, nil)
	require.NoError(t, devices.SetToken(context.Background(), "p1", "token-p1"))

	d.Start()
	d.Notify(context.Background(), notification.Notification{UserID: "p1", Title: "t"})
	d.Stop()

	n, err := repo.CountUnread(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "the record is kept even when push fails")
}

func TestDispatcher_NoTokenSkipsPush(t *testing.T) {
	pusher := &fakePusher{}
	d, _, _, _ := newDispatcher(pusher, nil)

	d.Start()
	d.Notify(context.Background(), notification.Notification{UserID: "p1", Title: "t"})
	d.Stop()

	assert.Equal(t, 0, pusher.count())
}

func TestDispatcher_EnqueuesWhenQueueConfigured(t *testing.T) {
	pusher := &fakePusher{}
	q := &fakeQueue{}
	d, _, devices, _ := newDispatcher(pusher, q)
	require.NoError(t, devices.SetToken(context.Background(), "d1", "token-d1"))

	d.Start()
	d.Notify(context.Background(), notification.Notification{UserID: "d1", Title: "Bid Accepted!", RideRequestID: "r1"})
	d.Stop()

	require.Len(t, q.jobs, 1)
	assert.Equal(t, 0, pusher.count(), "pushes go through the queue, not inline")

	handle := JobHandler(pusher)
	require.NoError(t, handle(context.Background(), q.jobs[0]))
	require.Equal(t, 1, pusher.count())
	assert.Equal(t, "token-d1", pusher.sent[0].Token)
	assert.Equal(t, "r1", pusher.sent[0].Data["ride_request_id"])
}

func TestDispatcher_FullQueueKeepsEveryNotification(t *testing.T) {
	repo := memory.NewNotificationStore()
	d := NewDispatcher(repo, nil, nil, nil, nil, logger.NewNop(), Config{Workers: 1, QueueSize: 1, Timeout: time.Second})

	for i := 0; i < 3; i++ {
		d.Notify(context.Background(), notification.Notification{UserID: "p1", Title: "Ride Taken"})
	}
	d.Start()
	d.Stop()

	n, err := repo.CountUnread(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

// failingStore fails the first Create calls before passing through
type failingStore struct {
	notification.Repository
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *failingStore) Create(ctx context.Context, n *notification.Notification) error {
	f.mu.Lock()
	f.calls++
	fail := f.calls <= f.failures
	f.mu.Unlock()
	if fail {
		return errors.New("connection refused")
	}
	return f.Repository.Create(ctx, n)
}

func TestDispatcher_RetriesStoreWrites(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		wantCount int64
	}{
		{name: "one transient failure", failures: 1, wantCount: 1},
		{name: "recovers on last attempt", failures: 2, wantCount: 1},
		{name: "store stays down", failures: 5, wantCount: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := memory.NewNotificationStore()
			store := &failingStore{Repository: repo, failures: tt.failures}
			d := NewDispatcher(store, nil, nil, nil, nil, logger.NewNop(), Config{
				Workers:    1,
				Timeout:    time.Second,
				StoreRetry: retry.Policy{Attempts: 3, Delay: time.Millisecond},
			})

			d.Start()
			d.Notify(context.Background(), notification.Notification{UserID: "d2", Title: "Ride Cancelled"})
			d.Stop()

			n, err := repo.CountUnread(context.Background(), "d2")
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, n)
		})
	}
}

func TestDispatcher_NotifyAfterStopStillDelivers(t *testing.T) {
	repo := memory.NewNotificationStore()
	d := NewDispatcher(repo, nil, nil, nil, nil, logger.NewNop(), Config{Workers: 1, Timeout: time.Second})
	d.Start()
	d.Stop()

	d.Notify(context.Background(), notification.Notification{UserID: "p1", Title: "late"})

	assert.Eventually(t, func() bool {
		n, err := repo.CountUnread(context.Background(), "p1")
		return err == nil && n == 1
	}, time.Second, 5*time.Millisecond)
}

func TestJobHandler_RejectsBadJobs(t *testing.T) {
	handle := JobHandler(&fakePusher{})
	assert.Error(t, handle(context.Background(), []byte("not json")))
	assert.Error(t, handle(context.Background(), []byte(`{"user_id":"u1"}`)))
}

func TestService_Inbox(t *testing.T) {
	repo := memory.NewNotificationStore()
	svc := NewService(repo, memory.NewDeviceStore(), pubsub.NewBroker(logger.NewNop()))
	ctx := context.Background()

	for _, id := range []string{"n1", "n2"} {
		require.NoError(t, repo.Create(ctx, &notification.Notification{ID: id, UserID: "u1", Title: id, CreatedAt: time.Now()}))
	}

	inbox, err := svc.List(ctx, "u1", 20)
	require.NoError(t, err)
	assert.Len(t, inbox.Notifications, 2)
	assert.Equal(t, int64(2), inbox.Unread)

	require.NoError(t, svc.MarkRead(ctx, "u1", "n1"))
	assert.ErrorIs(t, svc.MarkRead(ctx, "u2", "n2"), apperrors.ErrNotificationNotFound, "other users cannot touch the record")

	n, err := svc.MarkAllRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, svc.Delete(ctx, "u1", "n2"))
	assert.ErrorIs(t, svc.Delete(ctx, "u1", "n2"), apperrors.ErrNotificationNotFound)

	assert.Error(t, svc.RegisterDevice(ctx, "u1", "  "))
	require.NoError(t, svc.RegisterDevice(ctx, "u1", "tok"))
}
