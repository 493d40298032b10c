package matching

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edrive/ride-hailing/internal/domain/chat"
	"github.com/edrive/ride-hailing/internal/domain/driver"
	"github.com/edrive/ride-hailing/internal/domain/notification"
	"github.com/edrive/ride-hailing/internal/domain/offer"
	"github.com/edrive/ride-hailing/internal/domain/ride"
	"github.com/edrive/ride-hailing/internal/events"
	"github.com/edrive/ride-hailing/internal/repository/memory"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
	"github.com/edrive/ride-hailing/pkg/logger"
	"github.com/edrive/ride-hailing/pkg/pubsub"
	"github.com/edrive/ride-hailing/pkg/retry"
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

func (r *recordingNotifier) For(userID string) []notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification.Notification
	for _, n := range r.sent {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type recordingSink struct {
	mu     sync.Mutex
	events []events.Lifecycle
}

func (r *recordingSink) Record(ctx context.Context, ev events.Lifecycle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

type fixture struct {
	svc      *Service
	rides    *memory.RideStore
	offers   *memory.OfferStore
	drivers  *memory.DriverStore
	safety   *memory.ChatStore
	broker   *pubsub.Broker
	notifier *recordingNotifier
	sink     *recordingSink
}

var fastRetry = retry.Policy{Attempts: 3, Delay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		rides:    memory.NewRideStore(),
		offers:   memory.NewOfferStore(),
		drivers:  memory.NewDriverStore(),
		safety:   memory.NewChatStore(),
		broker:   pubsub.NewBroker(logger.NewNop()),
		notifier: &recordingNotifier{},
		sink:     &recordingSink{},
	}
	f.svc = f.build(f.rides)
	return f
}

func (f *fixture) build(rides ride.Repository) *Service {
	return NewService(Deps{
		Rides:       rides,
		Offers:      f.offers,
		Drivers:     f.drivers,
		Safety:      f.safety,
		Broker:      f.broker,
		Notifier:    f.notifier,
		Sink:        f.sink,
		Idempotency: memory.NewIdempotencyStore(),
		Logger:      logger.NewNop(),
	}, Config{AcceptRetry: fastRetry, ReadRetry: fastRetry})
}

func (f *fixture) addDriver(t *testing.T, id, name string, category ride.Category, status driver.Status) {
	t.Helper()
	require.NoError(t, f.drivers.Save(context.Background(), &driver.Driver{
		ID:            id,
		Name:          name,
		Category:      category,
		VehicleNumber: "GAA-" + id,
		Status:        status,
	}))
}

func (f *fixture) createRequest(t *testing.T, passengerID string, category ride.Category, fare int64) *ride.Request {
	t.Helper()
	req, err := f.svc.CreateRequest(context.Background(), CreateRequestInput{
		PassengerID: passengerID,
		Category:    string(category),
		Pickup:      ride.Location{Address: "Fawara Chowk", Lat: 32.07, Lng: 73.68},
		Destination: ride.Location{Address: "Railway Station", Lat: 32.06, Lng: 73.69},
		Fare:        decimal.NewFromInt(fare),
	})
	require.NoError(t, err)
	return req
}

func money(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestCreateRequest(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *CreateRequestInput)
		wantErr error
	}{
		{name: "valid", mutate: func(in *CreateRequestInput) {}},
		{name: "uppercase category", mutate: func(in *CreateRequestInput) { in.Category = "CAR" }},
		{name: "zero fare", mutate: func(in *CreateRequestInput) { in.Fare = decimal.Zero }, wantErr: apperrors.ErrInvalidFare},
		{name: "unknown category", mutate: func(in *CreateRequestInput) { in.Category = "boat" }, wantErr: apperrors.ErrInvalidCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := CreateRequestInput{
				PassengerID: "p1",
				Category:    "moto",
				Pickup:      ride.Location{Address: "A"},
				Destination: ride.Location{Address: "B"},
				Fare:        money(100),
			}
			tt.mutate(&in)

			req, err := f.svc.CreateRequest(context.Background(), in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ride.StatusPending, req.Status)
			assert.Nil(t, req.DriverID)
			assert.NotEmpty(t, req.ID)
		})
	}
}

func TestCreateRequest_MissingAddress(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateRequest(context.Background(), CreateRequestInput{
		PassengerID: "p1", Category: "moto", Pickup: ride.Location{Address: "A"}, Fare: money(10),
	})
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestCreateRequest_IdempotencyKey(t *testing.T) {
	f := newFixture(t)
	in := CreateRequestInput{
		PassengerID:    "p1",
		Category:       "moto",
		Pickup:         ride.Location{Address: "A"},
		Destination:    ride.Location{Address: "B"},
		Fare:           money(100),
		IdempotencyKey: "key-1",
	}

	first, err := f.svc.CreateRequest(context.Background(), in)
	require.NoError(t, err)
	second, err := f.svc.CreateRequest(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	all, err := f.rides.List(context.Background(), ride.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPendingForDriver_Eligibility(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "moto-driver", "Ali", ride.CategoryMoto, driver.StatusApproved)
	f.addDriver(t, "car-driver", "Bilal", ride.CategoryCar, driver.StatusApproved)

	f.createRequest(t, "p1", ride.CategoryMoto, 100)
	f.createRequest(t, "p2", ride.CategoryDelivery, 150)
	f.createRequest(t, "p3", ride.CategoryCar, 400)

	ctx := context.Background()
	moto, err := f.svc.PendingForDriver(ctx, "moto-driver", "")
	require.NoError(t, err)
	assert.Len(t, moto, 2)
	for _, r := range moto {
		assert.Contains(t, []ride.Category{ride.CategoryMoto, ride.CategoryDelivery}, r.Category)
	}

	car, err := f.svc.PendingForDriver(ctx, "car-driver", "")
	require.NoError(t, err)
	require.Len(t, car, 1)
	assert.Equal(t, ride.CategoryCar, car[0].Category)

	_, err = f.svc.PendingForDriver(ctx, "car-driver", "delivery")
	assert.ErrorIs(t, err, apperrors.ErrDriverNotEligible)
}

func TestPendingForDriver_HidesBlockedPassengers(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", "Ali", ride.CategoryMoto, driver.StatusApproved)
	f.createRequest(t, "p1", ride.CategoryMoto, 100)
	f.createRequest(t, "p2", ride.CategoryMoto, 120)

	require.NoError(t, f.safety.CreateBlock(context.Background(), &chat.Block{ID: "b1", BlockerID: "p1", BlockedID: "d1"}))

	list, err := f.svc.PendingForDriver(context.Background(), "d1", "moto")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "p2", list[0].PassengerID)
}

func TestPendingForDriver_RequiresApproval(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", "Ali", ride.CategoryMoto, driver.StatusPending)

	_, err := f.svc.PendingForDriver(context.Background(), "d1", "")
	assert.ErrorIs(t, err, apperrors.ErrDriverNotApproved)

	_, err = f.svc.PendingForDriver(context.Background(), "unknown", "")
	assert.ErrorIs(t, err, apperrors.ErrDriverNotApproved)
}

func TestCreateOffer(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, f *fixture, req *ride.Request)
		driver  string
		fare    decimal.Decimal
		wantErr error
	}{
		{name: "eligible driver", driver: "moto", fare: money(90)},
		{name: "zero fare", driver: "moto", fare: money(0), wantErr: apperrors.ErrInvalidFare},
		{name: "negative fare", driver: "moto", fare: money(-5), wantErr: apperrors.ErrInvalidFare},
		{name: "three decimals", driver: "moto", fare: decimal.RequireFromString("90.005"), wantErr: apperrors.ErrInvalidFare},
		{name: "above maximum", driver: "moto", fare: decimal.RequireFromString("10000000000"), wantErr: apperrors.ErrInvalidFare},
		{name: "wrong category", driver: "car", fare: money(90), wantErr: apperrors.ErrDriverNotEligible},
		{name: "not approved", driver: "pending", fare: money(90), wantErr: apperrors.ErrDriverNotApproved},
		{
			name:   "blocked by passenger",
			driver: "moto",
			fare:   money(90),
			setup: func(t *testing.T, f *fixture, req *ride.Request) {
				require.NoError(t, f.safety.CreateBlock(context.Background(), &chat.Block{ID: "b", BlockerID: req.PassengerID, BlockedID: "moto"}))
			},
			wantErr: apperrors.ErrBlocked,
		},
		{
			name:   "request cancelled",
			driver: "moto",
			fare:   money(90),
			setup: func(t *testing.T, f *fixture, req *ride.Request) {
				_, err := f.svc.Cancel(context.Background(), req.ID, req.PassengerID, "Changed my mind")
				require.NoError(t, err)
			},
			wantErr: apperrors.ErrRequestNotPending,
		},
		{
			name:   "driver busy",
			driver: "moto",
			fare:   money(90),
			setup: func(t *testing.T, f *fixture, req *ride.Request) {
				other := f.createRequest(t, "p9", ride.CategoryMoto, 50)
				o, err := f.svc.CreateOffer(context.Background(), other.ID, "moto", money(50))
				require.NoError(t, err)
				_, err = f.svc.Accept(context.Background(), other.ID, o.ID, "p9")
				require.NoError(t, err)
			},
			wantErr: apperrors.ErrDriverBusy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.addDriver(t, "moto", "Ali", ride.CategoryMoto, driver.StatusApproved)
			f.addDriver(t, "car", "Bilal", ride.CategoryCar, driver.StatusApproved)
			f.addDriver(t, "pending", "Chand", ride.CategoryMoto, driver.StatusPending)
			req := f.createRequest(t, "p1", ride.CategoryMoto, 100)
			if tt.setup != nil {
				tt.setup(t, f, req)
			}

			o, err := f.svc.CreateOffer(context.Background(), req.ID, tt.driver, tt.fare)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, offer.StatusOpen, o.Status)
			assert.Equal(t, "Ali", o.DriverName)

			sent := f.notifier.For("p1")
			require.Len(t, sent, 1)
			assert.Equal(t, "New Bid Received!", sent[0].Title)
			assert.Equal(t, "Ali offered Rs 90 for your trip.", sent[0].Body)
		})
	}
}

func TestSubscribeOffers_SnapshotThenLive(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", "Ali", ride.CategoryMoto, driver.StatusApproved)
	f.addDriver(t, "d2", "Bilal", ride.CategoryMoto, driver.StatusApproved)
	req := f.createRequest(t, "p1", ride.CategoryMoto, 100)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := f.svc.CreateOffer(ctx, req.ID, "d1", money(90))
	require.NoError(t, err)

	sub, snapshot, err := f.svc.SubscribeOffers(ctx, req.ID, "p1")
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.Len(t, snapshot, 1)

	o2, err := f.svc.CreateOffer(ctx, req.ID, "d2", money(95))
	require.NoError(t, err)

	select {
	case ev := <-sub.C():
		assert.Equal(t, events.OfferCreated, ev.Type)
		assert.Equal(t, o2.ID, ev.Data.(*offer.Offer).ID)
	case <-time.After(time.Second):
		t.Fatal("offer event not delivered")
	}

	_, _, err = f.svc.SubscribeOffers(ctx, req.ID, "someone-else")
	assert.ErrorIs(t, err, apperrors.ErrNotRequestOwner)
}

func TestAccept_SecondAcceptLoses(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", "Ali", ride.CategoryMoto, driver.StatusApproved)
	f.addDriver(t, "d2", "Bilal", ride.CategoryMoto, driver.StatusApproved)
	req := f.createRequest(t, "p1", ride.CategoryMoto, 100)
	ctx := context.Background()

	o1, err := f.svc.CreateOffer(ctx, req.ID, "d1", money(90))
	require.NoError(t, err)
	o2, err := f.svc.CreateOffer(ctx, req.ID, "d2", money(95))
	require.NoError(t, err)

	accepted, err := f.svc.Accept(ctx, req.ID, o2.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, ride.StatusAccepted, accepted.Status)
	assert.Equal(t, "d2", *accepted.DriverID)
	assert.True(t, money(95).Equal(accepted.Fare))

	_, err = f.svc.Accept(ctx, req.ID, o1.ID, "p1")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyAccepted)

	stored, err := f.rides.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "d2", *stored.DriverID)

	offers, err := f.svc.ListOffers(ctx, req.ID, "p1")
	require.NoError(t, err)
	status := map[string]offer.Status{}
	for _, o := range offers {
		status[o.ID] = o.Status
	}
	assert.Equal(t, offer.StatusStale, status[o1.ID])
	assert.Equal(t, offer.StatusAccepted, status[o2.ID])

	assert.NotEmpty(t, f.notifier.For("d2"))
	assert.NotEmpty(t, f.notifier.For("d1"))
}

func TestAccept_ConcurrentExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	req := f.createRequest(t, "p1", ride.CategoryCar, 300)
	ctx := context.Background()

	const n = 16
	offerIDs := make([]string, n)
	for i := 0; i < n; i++ {
		id := "d" + string(rune('a'+i))
		f.addDriver(t, id, id, ride.CategoryCar, driver.StatusApproved)
		o, err := f.svc.CreateOffer(ctx, req.ID, id, money(int64(250+i)))
		require.NoError(t, err)
		offerIDs[i] = o.ID
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		already int
	)
	for _, id := range offerIDs {
		wg.Add(1)
		go func(offerID string) {
			defer wg.Done()
			_, err := f.svc.Accept(ctx, req.ID, offerID, "p1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, apperrors.ErrAlreadyAccepted):
				already++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, n-1, already)
}

func TestAccept_Guards(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", "Ali", ride.CategoryMoto, driver.StatusApproved)
	ctx := context.Background()
	req := f.createRequest(t, "p1", ride.CategoryMoto, 100)
	other := f.createRequest(t, "p1", ride.CategoryMoto, 80)

	o, err := f.svc.CreateOffer(ctx, req.ID, "d1", money(90))
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, req.ID, o.ID, "p2")
	assert.ErrorIs(t, err, apperrors.ErrNotRequestOwner)

	_, err = f.svc.Accept(ctx, other.ID, o.ID, "p1")
	assert.ErrorIs(t, err, apperrors.ErrStaleOffer)

	_, err = f.svc.Accept(ctx, req.ID, "bid-missing", "p1")
	assert.ErrorIs(t, err, apperrors.ErrOfferNotFound)

	_, err = f.svc.Cancel(ctx, req.ID, "p1", "Found another ride")
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, req.ID, o.ID, "p1")
	appErr := apperrors.GetAppError(err)
	assert.Equal(t, "INVALID_TRANSITION", appErr.Code)
}

// flakyRides fails the first Accept in transport after it has been applied.
type flakyRides struct {
	ride.Repository
	mu     sync.Mutex
	failed bool
}

func (f *flakyRides) Accept(ctx context.Context, id string, bind ride.Binding) (bool, error) {
	ok, err := f.Repository.Accept(ctx, id, bind)
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.failed {
		f.failed = true
		return false, errors.New("connection reset by peer")
	}
	return ok, err
}

func TestAccept_AmbiguousFailureResolvedByReread(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", "Ali", ride.CategoryMoto, driver.StatusApproved)
	req := f.createRequest(t, "p1", ride.CategoryMoto, 100)
	o, err := f.svc.CreateOffer(context.Background(), req.ID, "d1", money(90))
	require.NoError(t, err)

	svc := f.build(&flakyRides{Repository: f.rides})
	accepted, err := svc.Accept(context.Background(), req.ID, o.ID, "p1")
	require.NoError(t, err, "own acceptance that landed must not be reported as lost")
	assert.Equal(t, "d1", *accepted.DriverID)
}

func TestLifecycle_HappyPath(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", "Ali", ride.CategoryMoto, driver.StatusApproved)
	ctx := context.Background()
	req := f.createRequest(t, "p1", ride.CategoryMoto, 100)
	o, err := f.svc.CreateOffer(ctx, req.ID, "d1", money(90))
	require.NoError(t, err)
	_, err = f.svc.Accept(ctx, req.ID, o.ID, "p1")
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, req.ID, "d1")
	assert.Equal(t, "INVALID_TRANSITION", apperrors.GetAppError(err).Code, "cannot complete before start")

	_, err = f.svc.Start(ctx, req.ID, "d2")
	assert.ErrorIs(t, err, apperrors.ErrNotBoundDriver)

	started, err := f.svc.Start(ctx, req.ID, "d1")
	require.NoError(t, err)
	assert.Equal(t, ride.StatusOngoing, started.Status)
	assert.NotNil(t, started.StartedAt)

	_, err = f.svc.Cancel(ctx, req.ID, "p1", "Changed my mind")
	assert.Equal(t, "INVALID_TRANSITION", apperrors.GetAppError(err).Code, "ongoing trips cannot be cancelled")

	completed, err := f.svc.Complete(ctx, req.ID, "d1")
	require.NoError(t, err)
	assert.Equal(t, ride.StatusCompleted, completed.Status)

	var types []string
	for _, ev := range f.sink.events {
		types = append(types, ev.Type)
	}
	assert.Contains(t, types, events.OfferAccepted)
}

func TestCancel(t *testing.T) {
	tests := []struct {
		name       string
		accept     bool
		caller     string
		reason     string
		wantErr    error
		wantDriver bool
	}{
		{name: "passenger cancels pending", caller: "p1", reason: "Changed my mind"},
		{name: "passenger cancels accepted", accept: true, caller: "p1", reason: "Driver taking too long", wantDriver: true},
		{name: "driver cancels accepted", accept: true, caller: "d1", reason: "Vehicle problem", wantDriver: true},
		{name: "empty reason", caller: "p1", reason: "   ", wantErr: apperrors.ErrReasonRequired},
		{name: "stranger", caller: "x", reason: "nope", wantErr: apperrors.ErrNotParticipant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.addDriver(t, "d1", "Ali", ride.CategoryMoto, driver.StatusApproved)
			ctx := context.Background()
			req := f.createRequest(t, "p1", ride.CategoryMoto, 100)
			if tt.accept {
				o, err := f.svc.CreateOffer(ctx, req.ID, "d1", money(90))
				require.NoError(t, err)
				_, err = f.svc.Accept(ctx, req.ID, o.ID, "p1")
				require.NoError(t, err)
			}

			got, err := f.svc.Cancel(ctx, req.ID, tt.caller, tt.reason)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ride.StatusCancelled, got.Status)
			assert.Equal(t, tt.reason, got.CancelReason)
			assert.Equal(t, tt.caller, got.CancelledBy)
			assert.Equal(t, tt.wantDriver, got.HasDriver())

			if tt.wantDriver {
				other, _ := got.OtherParticipant(tt.caller)
				assert.NotEmpty(t, f.notifier.For(other))
			}
		})
	}
}

func TestSubscribePending_SeesCreatedAndAccepted(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", "Ali", ride.CategoryMoto, driver.StatusApproved)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub, snapshot, err := f.svc.SubscribePending(ctx, "d1", "")
	require.NoError(t, err)
	defer sub.Unsubscribe()
	assert.Empty(t, snapshot)

	req := f.createRequest(t, "p1", ride.CategoryDelivery, 150)

	select {
	case ev := <-sub.C():
		assert.Equal(t, events.RequestCreated, ev.Type)
		assert.Equal(t, req.ID, ev.Data.(*ride.Request).ID)
	case <-time.After(time.Second):
		t.Fatal("pending event not delivered")
	}

	f.createRequest(t, "p2", ride.CategoryCar, 400)
	select {
	case ev := <-sub.C():
		t.Fatalf("car request leaked into moto feed: %v", ev)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestDeleteRequest(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", "Ali", ride.CategoryMoto, driver.StatusApproved)
	ctx := context.Background()
	req := f.createRequest(t, "p1", ride.CategoryMoto, 100)
	_, err := f.svc.CreateOffer(ctx, req.ID, "d1", money(90))
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteRequest(ctx, req.ID))

	_, err = f.svc.GetRequest(ctx, req.ID, Viewer{Admin: true})
	assert.ErrorIs(t, err, apperrors.ErrRequestNotFound)
	offers, err := f.offers.ListByRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Empty(t, offers)
}

// acceptingRides lets another accept land just before each Transition, the
// way a passenger's accept can race a cancel.
type acceptingRides struct {
	ride.Repository
	bind ride.Binding
}

func (a *acceptingRides) Transition(ctx context.Context, id string, t ride.Transition) (*ride.Request, bool, error) {
	if _, err := a.Repository.Accept(ctx, id, a.bind); err != nil {
		return nil, false, err
	}
	return a.Repository.Transition(ctx, id, t)
}

func TestCancel_AcceptLandsFirst(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d2", "Bilal", ride.CategoryMoto, driver.StatusApproved)
	ctx := context.Background()
	req := f.createRequest(t, "p1", ride.CategoryMoto, 100)
	o, err := f.svc.CreateOffer(ctx, req.ID, "d2", money(95))
	require.NoError(t, err)

	svc := f.build(&acceptingRides{
		Repository: f.rides,
		bind:       ride.Binding{OfferID: o.ID, DriverID: "d2", Fare: money(95), At: time.Now()},
	})
	got, err := svc.Cancel(ctx, req.ID, "p1", "Changed my mind")
	require.NoError(t, err)

	assert.Equal(t, ride.StatusCancelled, got.Status)
	require.True(t, got.HasDriver(), "cancel must report the driver bound by the accept")
	assert.Equal(t, "d2", *got.DriverID)
	assert.Equal(t, o.ID, got.OfferID)

	sent := f.notifier.For("d2")
	require.NotEmpty(t, sent)
	assert.Equal(t, "Ride Cancelled", sent[len(sent)-1].Title)

	last := f.sink.events[len(f.sink.events)-1]
	assert.Equal(t, ride.StatusAccepted, last.From)
	assert.Equal(t, ride.StatusCancelled, last.To)
}

// hijackedRides applies a different binding than the one asked for and then
// fails in transport, so the caller only learns the outcome by re-reading.
type hijackedRides struct {
	ride.Repository
	mu     sync.Mutex
	bind   ride.Binding
	failed bool
}

func (h *hijackedRides) Accept(ctx context.Context, id string, bind ride.Binding) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failed {
		return h.Repository.Accept(ctx, id, bind)
	}
	h.failed = true
	if _, err := h.Repository.Accept(ctx, id, h.bind); err != nil {
		return false, err
	}
	return false, errors.New("connection reset by peer")
}

func TestAccept_AmbiguousFailureComparesOfferID(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", "Ali", ride.CategoryMoto, driver.StatusApproved)
	ctx := context.Background()
	req := f.createRequest(t, "p1", ride.CategoryMoto, 100)

	// Same driver, same fare: only the offer id tells the two bids apart.
	o1, err := f.svc.CreateOffer(ctx, req.ID, "d1", money(90))
	require.NoError(t, err)
	o2, err := f.svc.CreateOffer(ctx, req.ID, "d1", money(90))
	require.NoError(t, err)

	svc := f.build(&hijackedRides{
		Repository: f.rides,
		bind:       ride.Binding{OfferID: o1.ID, DriverID: "d1", Fare: money(90), At: time.Now()},
	})
	_, err = svc.Accept(ctx, req.ID, o2.ID, "p1")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyAccepted)

	stored, err := f.rides.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, o1.ID, stored.OfferID)
}

func TestAccept_RecordsOfferID(t *testing.T) {
	f := newFixture(t)
	f.addDriver(t, "d1", "Ali", ride.CategoryMoto, driver.StatusApproved)
	ctx := context.Background()
	req := f.createRequest(t, "p1", ride.CategoryMoto, 100)
	o, err := f.svc.CreateOffer(ctx, req.ID, "d1", money(90))
	require.NoError(t, err)

	accepted, err := f.svc.Accept(ctx, req.ID, o.ID, "p1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, accepted.OfferID)

	stored, err := f.rides.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, stored.OfferID)
}

func TestGetRequest_Visibility(t *testing.T) {
	tests := []struct {
		name    string
		viewer  Viewer
		accept  bool
		wantErr error
	}{
		{name: "passenger", viewer: Viewer{UserID: "p1"}},
		{name: "admin", viewer: Viewer{UserID: "root", Admin: true}, accept: true},
		{name: "other passenger", viewer: Viewer{UserID: "p2"}, wantErr: apperrors.ErrNotParticipant},
		{name: "eligible driver while pending", viewer: Viewer{UserID: "d1"}},
		{name: "ineligible driver", viewer: Viewer{UserID: "car"}, wantErr: apperrors.ErrNotParticipant},
		{name: "unapproved driver", viewer: Viewer{UserID: "pending"}, wantErr: apperrors.ErrNotParticipant},
		{name: "blocked driver", viewer: Viewer{UserID: "blocked"}, wantErr: apperrors.ErrNotParticipant},
		{name: "bound driver", viewer: Viewer{UserID: "d1"}, accept: true},
		{name: "outbid driver", viewer: Viewer{UserID: "d2"}, accept: true, wantErr: apperrors.ErrNotParticipant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.addDriver(t, "d1", "Ali", ride.CategoryMoto, driver.StatusApproved)
			f.addDriver(t, "d2", "Bilal", ride.CategoryMoto, driver.StatusApproved)
			f.addDriver(t, "car", "Chand", ride.CategoryCar, driver.StatusApproved)
			f.addDriver(t, "pending", "Dawood", ride.CategoryMoto, driver.StatusPending)
			f.addDriver(t, "blocked", "Ehsan", ride.CategoryMoto, driver.StatusApproved)
			req := f.createRequest(t, "p1", ride.CategoryMoto, 100)
			require.NoError(t, f.safety.CreateBlock(ctx, &chat.Block{ID: "b", BlockerID: "p1", BlockedID: "blocked"}))
			if tt.accept {
				o, err := f.svc.CreateOffer(ctx, req.ID, "d1", money(90))
				require.NoError(t, err)
				_, err = f.svc.Accept(ctx, req.ID, o.ID, "p1")
				require.NoError(t, err)
			}

			got, err := f.svc.GetRequest(ctx, req.ID, tt.viewer)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, req.ID, got.ID)
		})
	}
}
