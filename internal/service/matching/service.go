package matching

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/edrive/ride-hailing/internal/domain/chat"
	"github.com/edrive/ride-hailing/internal/domain/driver"
	"github.com/edrive/ride-hailing/internal/domain/notification"
	"github.com/edrive/ride-hailing/internal/domain/offer"
	"github.com/edrive/ride-hailing/internal/domain/ride"
	"github.com/edrive/ride-hailing/internal/events"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
	"github.com/edrive/ride-hailing/pkg/logger"
	"github.com/edrive/ride-hailing/pkg/monitoring"
	"github.com/edrive/ride-hailing/pkg/pubsub"
	"github.com/edrive/ride-hailing/pkg/retry"
)

// Notifier delivers notifications without blocking the caller. Failures are
// the notifier's problem and never reach the coordinator.
type Notifier interface {
	Notify(ctx context.Context, n notification.Notification)
}

// IdempotencyStore remembers which request a client retry key produced
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (existingID string, reserved bool, err error)
	Complete(ctx context.Context, key, requestID string) error
	Release(ctx context.Context, key string) error
}

// Deps are the collaborators of the coordinator
type Deps struct {
	Rides       ride.Repository
	Offers      offer.Repository
	Drivers     driver.Repository
	Safety      chat.SafetyRepository
	Broker      *pubsub.Broker
	Notifier    Notifier
	Sink        events.Sink
	Idempotency IdempotencyStore
	NewRelic    *monitoring.NewRelicApp
	Logger      *logger.Logger
}

// Config holds matching configuration
type Config struct {
	AcceptRetry retry.Policy
	ReadRetry   retry.Policy
}

// DefaultConfig retries accepts and reads three times with doubling backoff
func DefaultConfig() Config {
	return Config{AcceptRetry: retry.Default, ReadRetry: retry.Default}
}

// Service is the matching coordinator: it owns the request lifecycle and
// resolves accept races.
type Service struct {
	rides    ride.Repository
	offers   offer.Repository
	drivers  driver.Repository
	safety   chat.SafetyRepository
	broker   *pubsub.Broker
	notifier Notifier
	sink     events.Sink
	idem     IdempotencyStore
	nr       *monitoring.NewRelicApp
	logger   *logger.Logger
	config   Config
	now      func() time.Time
}

// NewService creates a new matching coordinator
func NewService(deps Deps, config Config) *Service {
	s := &Service{
		rides:    deps.Rides,
		offers:   deps.Offers,
		drivers:  deps.Drivers,
		safety:   deps.Safety,
		broker:   deps.Broker,
		notifier: deps.Notifier,
		sink:     deps.Sink,
		idem:     deps.Idempotency,
		nr:       deps.NewRelic,
		logger:   deps.Logger,
		config:   config,
		now:      func() time.Time { return time.Now().UTC() },
	}
	if s.sink == nil {
		s.sink = events.NopSink{}
	}
	if s.nr == nil {
		s.nr = monitoring.Disabled()
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	return s
}

// getRequest reads a request, retrying transport failures
func (s *Service) getRequest(ctx context.Context, id string) (*ride.Request, error) {
	var req *ride.Request
	err := retry.Do(ctx, s.config.ReadRetry, func(int) error {
		r, err := s.rides.GetByID(ctx, id)
		if errors.Is(err, ride.ErrRequestNotFound) {
			return retry.Stop(apperrors.ErrRequestNotFound)
		}
		if err != nil {
			return err
		}
		req = r
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	return req, nil
}

// storeError leaves AppErrors alone and reports everything else as a
// transport failure of the backing store.
func storeError(err error) error {
	if err == nil || apperrors.IsAppError(err) {
		return err
	}
	return apperrors.Transport("Request store unavailable", err)
}

func (s *Service) record(ctx context.Context, ev events.Lifecycle) {
	ev.At = s.now()
	if err := s.sink.Record(ctx, ev); err != nil {
		s.logger.Warn("Failed to record lifecycle event",
			logger.String("type", ev.Type),
			logger.RequestID(ev.RequestID),
			logger.Err(err),
		)
	}
}

func (s *Service) notify(ctx context.Context, userID, title, body string, typ notification.Type, requestID string) {
	if s.notifier == nil || userID == "" {
		return
	}
	s.notifier.Notify(ctx, notification.Notification{
		UserID:        userID,
		Title:         title,
		Body:          body,
		Type:          typ,
		RideRequestID: requestID,
	})
}

// publishRequest fans a request change out to its own topic and to the
// pending feed of its category, so driver feeds can drop it once it leaves
// pending.
func (s *Service) publishRequest(eventType string, req *ride.Request) {
	if s.broker == nil {
		return
	}
	s.broker.Publish(events.RequestTopic(req.ID), eventType, req)
	s.broker.Publish(events.PendingTopic(req.Category), eventType, req)
}

func sortNewestFirst(rs []*ride.Request) {
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].CreatedAt.After(rs[j].CreatedAt)
	})
}
