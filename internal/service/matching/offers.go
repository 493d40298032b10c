package matching

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/edrive/ride-hailing/internal/domain/driver"
	"github.com/edrive/ride-hailing/internal/domain/notification"
	"github.com/edrive/ride-hailing/internal/domain/offer"
	"github.com/edrive/ride-hailing/internal/domain/ride"
	"github.com/edrive/ride-hailing/internal/events"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
	"github.com/edrive/ride-hailing/pkg/logger"
	"github.com/edrive/ride-hailing/pkg/metrics"
	"github.com/edrive/ride-hailing/pkg/pubsub"
)

// CreateOffer records a driver's fare against a pending request and tells
// the passenger about it.
func (s *Service) CreateOffer(ctx context.Context, requestID, driverID string, fare decimal.Decimal) (*offer.Offer, error) {
	o := &offer.Offer{DriverID: driverID, Fare: fare, Status: offer.StatusOpen}
	if err := o.Validate(); err != nil {
		return nil, apperrors.ErrInvalidFare
	}

	d, err := s.approvedDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}

	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.AcceptsOffers() {
		return nil, apperrors.ErrRequestNotPending
	}
	if req.PassengerID == driverID {
		return nil, apperrors.Forbidden("Cannot bid on your own request", nil)
	}
	if !driver.Eligible(d.Category, req.Category) {
		return nil, apperrors.ErrDriverNotEligible
	}

	if active, err := s.rides.ActiveByDriver(ctx, driverID); err == nil && active != nil {
		return nil, apperrors.ErrDriverBusy.WithDetail("request_id", active.ID)
	} else if err != nil && !errors.Is(err, ride.ErrRequestNotFound) {
		return nil, storeError(err)
	}

	blocked, err := s.isBlocked(ctx, driverID, req.PassengerID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, apperrors.ErrBlocked
	}

	o.ID = offer.NewID()
	o.RequestID = req.ID
	o.DriverName = d.Name
	o.CreatedAt = s.now()
	if err := s.offers.Create(ctx, o); err != nil {
		if errors.Is(err, offer.ErrRequestNotPending) {
			return nil, apperrors.ErrRequestNotPending
		}
		return nil, storeError(err)
	}

	s.logger.Info("Offer created",
		logger.OfferID(o.ID),
		logger.RequestID(req.ID),
		logger.DriverID(driverID),
		logger.String("fare", fare.String()),
	)
	metrics.OffersCreated.Inc()

	if s.broker != nil {
		s.broker.Publish(events.OffersTopic(req.ID), events.OfferCreated, o)
	}
	s.notify(ctx, req.PassengerID,
		"New Bid Received!",
		fmt.Sprintf("%s offered Rs %s for your trip.", displayName(d), fare.StringFixed(0)),
		notification.TypeRideRequest, req.ID,
	)
	s.record(ctx, events.Lifecycle{
		Type:      events.OfferCreated,
		RequestID: req.ID,
		ActorID:   driverID,
		OfferID:   o.ID,
		DriverID:  driverID,
		Fare:      fare.String(),
	})
	return o, nil
}

// ListOffers returns the offers on a request in arrival order. Only the
// passenger sees every offer. Once the request has left pending, open offers
// are reported stale.
func (s *Service) ListOffers(ctx context.Context, requestID, passengerID string) ([]*offer.Offer, error) {
	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.PassengerID != passengerID {
		return nil, apperrors.ErrNotRequestOwner
	}
	return s.offersOf(ctx, req)
}

func (s *Service) offersOf(ctx context.Context, req *ride.Request) ([]*offer.Offer, error) {
	offers, err := s.offers.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, storeError(err)
	}
	if !req.AcceptsOffers() {
		for _, o := range offers {
			if o.Status == offer.StatusOpen {
				o.Status = offer.StatusStale
			}
		}
	}
	return offers, nil
}

// SubscribeOffers streams new offers on a request to its passenger. The
// existing offers are returned as the initial snapshot.
func (s *Service) SubscribeOffers(ctx context.Context, requestID, passengerID string) (*pubsub.Subscription, []*offer.Offer, error) {
	sub := s.broker.SubscribeContext(ctx, events.OffersTopic(requestID), events.RequestTopic(requestID))
	snapshot, err := s.ListOffers(ctx, requestID, passengerID)
	if err != nil {
		sub.Unsubscribe()
		return nil, nil, err
	}
	return sub, snapshot, nil
}

func displayName(d *driver.Driver) string {
	if d.Name != "" {
		return d.Name
	}
	return "A driver"
}
