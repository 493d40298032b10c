package matching

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/edrive/ride-hailing/internal/domain/driver"
	"github.com/edrive/ride-hailing/internal/domain/ride"
	"github.com/edrive/ride-hailing/internal/events"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
	"github.com/edrive/ride-hailing/pkg/logger"
	"github.com/edrive/ride-hailing/pkg/metrics"
	"github.com/edrive/ride-hailing/pkg/pubsub"
	"github.com/edrive/ride-hailing/pkg/retry"
)

// CreateRequestInput carries everything a passenger submits
type CreateRequestInput struct {
	PassengerID    string
	PassengerName  string
	Category       string
	Pickup         ride.Location
	Destination    ride.Location
	Fare           decimal.Decimal
	Instructions   string
	VoiceNote      string
	ItemType       string
	IdempotencyKey string
}

// CreateRequest stores a new pending request and announces it on the pending
// feed of its category. A repeated IdempotencyKey returns the request the first
// call created.
func (s *Service) CreateRequest(ctx context.Context, in CreateRequestInput) (*ride.Request, error) {
	category, err := ride.ParseCategory(in.Category)
	if err != nil {
		return nil, apperrors.ErrInvalidCategory
	}

	now := s.now()
	req := &ride.Request{
		ID:            uuid.NewString(),
		PassengerID:   in.PassengerID,
		PassengerName: strings.TrimSpace(in.PassengerName),
		Category:      category,
		Pickup:        in.Pickup,
		Destination:   in.Destination,
		Fare:          in.Fare,
		Instructions:  strings.TrimSpace(in.Instructions),
		VoiceNote:     in.VoiceNote,
		ItemType:      strings.TrimSpace(in.ItemType),
		Status:        ride.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}

	if in.IdempotencyKey != "" && s.idem != nil {
		existing, reserved, err := s.idem.Reserve(ctx, in.IdempotencyKey)
		if err != nil {
			return nil, apperrors.Transport("Idempotency store unavailable", err)
		}
		if existing != "" {
			return s.getRequest(ctx, existing)
		}
		if !reserved {
			return nil, apperrors.ErrDuplicateRequest
		}
	}

	if err := s.insertRequest(ctx, req); err != nil {
		if in.IdempotencyKey != "" && s.idem != nil {
			if relErr := s.idem.Release(ctx, in.IdempotencyKey); relErr != nil {
				s.logger.Warn("Failed to release idempotency key", logger.Err(relErr))
			}
		}
		return nil, err
	}
	if in.IdempotencyKey != "" && s.idem != nil {
		if err := s.idem.Complete(ctx, in.IdempotencyKey, req.ID); err != nil {
			s.logger.Warn("Failed to complete idempotency key", logger.RequestID(req.ID), logger.Err(err))
		}
	}

	s.logger.Info("Ride request created",
		logger.RequestID(req.ID),
		logger.UserID(req.PassengerID),
		logger.String("category", string(req.Category)),
	)
	metrics.RequestsCreated.WithLabelValues(string(req.Category)).Inc()
	s.nr.RecordRequestCreated(string(req.Category))

	s.publishRequest(events.RequestCreated, req)
	s.record(ctx, events.Lifecycle{
		Type:      events.RequestCreated,
		RequestID: req.ID,
		ActorID:   req.PassengerID,
		To:        ride.StatusPending,
		Fare:      req.Fare.String(),
	})
	return req, nil
}

// insertRequest retries a failed insert only after confirming the previous
// attempt did not land.
func (s *Service) insertRequest(ctx context.Context, req *ride.Request) error {
	err := retry.Do(ctx, s.config.ReadRetry, func(attempt int) error {
		if attempt > 1 {
			if _, err := s.rides.GetByID(ctx, req.ID); err == nil {
				return nil
			} else if !errors.Is(err, ride.ErrRequestNotFound) {
				return err
			}
		}
		return s.rides.Create(ctx, req)
	})
	return storeError(err)
}

// Viewer is the caller reading a request
type Viewer struct {
	UserID string
	Admin  bool
}

// GetRequest returns a request by id to a caller allowed to see it
func (s *Service) GetRequest(ctx context.Context, id string, viewer Viewer) (*ride.Request, error) {
	req, err := s.getRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.canView(ctx, req, viewer); err != nil {
		return nil, err
	}
	return req, nil
}

// canView admits admins and the request's participants. Other drivers see a
// request only while it is pending and only if they could bid on it.
func (s *Service) canView(ctx context.Context, req *ride.Request, v Viewer) error {
	if v.Admin || req.IsParticipant(v.UserID) {
		return nil
	}
	if req.Status != ride.StatusPending || req.PassengerID == v.UserID {
		return apperrors.ErrNotParticipant
	}

	d, err := s.drivers.GetByID(ctx, v.UserID)
	if errors.Is(err, driver.ErrDriverNotFound) {
		return apperrors.ErrNotParticipant
	}
	if err != nil {
		return storeError(err)
	}
	if !d.CanBid() || !driver.Eligible(d.Category, req.Category) {
		return apperrors.ErrNotParticipant
	}
	blocked, err := s.isBlocked(ctx, v.UserID, req.PassengerID)
	if err != nil {
		return err
	}
	if blocked {
		return apperrors.ErrNotParticipant
	}
	return nil
}

// ListRequests returns requests matching filter, newest first
func (s *Service) ListRequests(ctx context.Context, filter ride.Filter) ([]*ride.Request, error) {
	var out []*ride.Request
	err := retry.Do(ctx, s.config.ReadRetry, func(int) error {
		rs, err := s.rides.List(ctx, filter)
		if err != nil {
			return err
		}
		out = rs
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	return out, nil
}

// MyRequests returns the caller's requests as passenger or driver, newest first
func (s *Service) MyRequests(ctx context.Context, userID string, limit int) ([]*ride.Request, error) {
	rs, err := s.rides.ListByParticipant(ctx, userID, limit)
	if err != nil {
		return nil, storeError(err)
	}
	return rs, nil
}

// PendingForDriver lists the pending requests a driver may bid on. An empty
// category means every category the driver's vehicle serves. Requests from
// passengers who blocked the driver, or whom the driver blocked, are hidden.
func (s *Service) PendingForDriver(ctx context.Context, driverID string, category string) ([]*ride.Request, error) {
	categories, err := s.driverCategories(ctx, driverID, category)
	if err != nil {
		return nil, err
	}

	var out []*ride.Request
	for _, c := range categories {
		rs, err := s.ListRequests(ctx, ride.Filter{Status: ride.StatusPending, Category: c})
		if err != nil {
			return nil, err
		}
		for _, r := range rs {
			if r.PassengerID == driverID {
				continue
			}
			blocked, err := s.isBlocked(ctx, driverID, r.PassengerID)
			if err != nil {
				return nil, err
			}
			if !blocked {
				out = append(out, r)
			}
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// SubscribePending subscribes to the pending feed of the driver's visible
// categories and returns the current pending list as the initial snapshot.
// Events arrive for created requests and for requests leaving pending.
func (s *Service) SubscribePending(ctx context.Context, driverID, category string) (*pubsub.Subscription, []*ride.Request, error) {
	categories, err := s.driverCategories(ctx, driverID, category)
	if err != nil {
		return nil, nil, err
	}
	topics := make([]string, 0, len(categories))
	for _, c := range categories {
		topics = append(topics, events.PendingTopic(c))
	}

	// Subscribe before reading the snapshot so nothing falls between them.
	sub := s.broker.SubscribeContext(ctx, topics...)
	snapshot, err := s.PendingForDriver(ctx, driverID, category)
	if err != nil {
		sub.Unsubscribe()
		return nil, nil, err
	}
	return sub, snapshot, nil
}

// SubscribeRequest follows status changes of one request. The same callers
// who may read the request may watch it.
func (s *Service) SubscribeRequest(ctx context.Context, requestID string, viewer Viewer) (*pubsub.Subscription, *ride.Request, error) {
	sub := s.broker.SubscribeContext(ctx, events.RequestTopic(requestID))
	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		sub.Unsubscribe()
		return nil, nil, err
	}
	if err := s.canView(ctx, req, viewer); err != nil {
		sub.Unsubscribe()
		return nil, nil, err
	}
	return sub, req, nil
}

// DeleteRequest removes a request and its offers. Administrative only.
func (s *Service) DeleteRequest(ctx context.Context, id string) error {
	req, err := s.getRequest(ctx, id)
	if err != nil {
		return err
	}
	if err := s.offers.DeleteByRequest(ctx, id); err != nil {
		return storeError(err)
	}
	if err := s.rides.Delete(ctx, id); err != nil {
		if errors.Is(err, ride.ErrRequestNotFound) {
			return apperrors.ErrRequestNotFound
		}
		return storeError(err)
	}
	s.logger.Info("Ride request deleted", logger.RequestID(id))
	s.record(ctx, events.Lifecycle{Type: events.RequestDeleted, RequestID: id, From: req.Status})
	return nil
}

// driverCategories resolves the categories a driver may list. The driver must
// have an approved profile.
func (s *Service) driverCategories(ctx context.Context, driverID, category string) ([]ride.Category, error) {
	d, err := s.approvedDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if category == "" {
		return driver.VisibleCategories(d.Category), nil
	}
	c, err := ride.ParseCategory(category)
	if err != nil {
		return nil, apperrors.ErrInvalidCategory
	}
	if !driver.Eligible(d.Category, c) {
		return nil, apperrors.ErrDriverNotEligible
	}
	return []ride.Category{c}, nil
}

func (s *Service) approvedDriver(ctx context.Context, driverID string) (*driver.Driver, error) {
	d, err := s.drivers.GetByID(ctx, driverID)
	if errors.Is(err, driver.ErrDriverNotFound) {
		return nil, apperrors.ErrDriverNotApproved
	}
	if err != nil {
		return nil, storeError(err)
	}
	if !d.CanBid() {
		return nil, apperrors.ErrDriverNotApproved
	}
	return d, nil
}

func (s *Service) isBlocked(ctx context.Context, a, b string) (bool, error) {
	if s.safety == nil {
		return false, nil
	}
	blocked, err := s.safety.IsBlocked(ctx, a, b)
	if err != nil {
		return false, storeError(err)
	}
	return blocked, nil
}

func validationError(err error) error {
	switch {
	case errors.Is(err, ride.ErrInvalidCategory):
		return apperrors.ErrInvalidCategory
	case errors.Is(err, ride.ErrInvalidFare):
		return apperrors.ErrInvalidFare
	}
	return apperrors.Validation(capitalize(err.Error()), err)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
