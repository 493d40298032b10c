package matching

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/edrive/ride-hailing/internal/domain/notification"
	"github.com/edrive/ride-hailing/internal/domain/offer"
	"github.com/edrive/ride-hailing/internal/domain/ride"
	"github.com/edrive/ride-hailing/internal/events"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
	"github.com/edrive/ride-hailing/pkg/logger"
	"github.com/edrive/ride-hailing/pkg/metrics"
	"github.com/edrive/ride-hailing/pkg/retry"
)

var errStillPending = errors.New("request still pending after conditional update")

// Accept binds the driver and fare of offerID to the request. It is a single
// conditional update on status = pending, so of any number of concurrent
// accepts exactly one wins and the rest get ErrAlreadyAccepted. An attempt
// that failed in transport is retried only after a re-read shows the request
// still pending, or reported as success if the re-read shows our own
// acceptance landed.
func (s *Service) Accept(ctx context.Context, requestID, offerID, passengerID string) (*ride.Request, error) {
	start := time.Now()

	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.PassengerID != passengerID {
		return nil, apperrors.ErrNotRequestOwner
	}

	o, err := s.offers.GetByID(ctx, offerID)
	if errors.Is(err, offer.ErrOfferNotFound) {
		return nil, apperrors.ErrOfferNotFound
	}
	if err != nil {
		return nil, storeError(err)
	}
	if !o.BelongsTo(requestID) {
		return nil, apperrors.ErrStaleOffer
	}
	if req.Status != ride.StatusPending {
		s.observeAccept(start, 0, "conflict")
		return nil, notPendingError(req)
	}

	var (
		accepted  *ride.Request
		ambiguous bool
		attempts  int
		at        = s.now()
	)
	err = retry.Do(ctx, s.config.AcceptRetry, func(attempt int) error {
		attempts = attempt
		if attempt > 1 {
			cur, err := s.rides.GetByID(ctx, requestID)
			if errors.Is(err, ride.ErrRequestNotFound) {
				return retry.Stop(apperrors.ErrRequestNotFound)
			}
			if err != nil {
				return err
			}
			if cur.Status != ride.StatusPending {
				if ambiguous && acceptedOffer(cur, o) {
					accepted = cur
					return nil
				}
				return retry.Stop(notPendingError(cur))
			}
		}

		ok, err := s.rides.Accept(ctx, requestID, ride.Binding{
			OfferID:  o.ID,
			DriverID: o.DriverID,
			Fare:     o.Fare,
			At:       at,
		})
		if errors.Is(err, ride.ErrRequestNotFound) {
			return retry.Stop(apperrors.ErrRequestNotFound)
		}
		if err != nil {
			ambiguous = true
			s.logger.Warn("Accept attempt failed",
				logger.RequestID(requestID),
				logger.Int("attempt", attempt),
				logger.Err(err),
			)
			return err
		}
		if ok {
			accepted = acceptedCopy(req, o, at)
			return nil
		}

		// The conditional update matched nothing: someone else moved the request.
		cur, err := s.rides.GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if cur.Status == ride.StatusPending {
			return errStillPending
		}
		if ambiguous && acceptedOffer(cur, o) {
			accepted = cur
			return nil
		}
		return retry.Stop(notPendingError(cur))
	})
	if err != nil {
		outcome := "error"
		if apperrors.IsAppError(err) {
			outcome = "conflict"
		}
		s.observeAccept(start, attempts, outcome)
		if errors.Is(err, apperrors.ErrAlreadyAccepted) {
			s.logger.Info("Accept lost race", logger.RequestID(requestID), logger.OfferID(offerID))
		}
		return nil, storeError(err)
	}

	s.observeAccept(start, attempts, "accepted")
	s.logger.Info("Ride request accepted",
		logger.RequestID(requestID),
		logger.OfferID(o.ID),
		logger.DriverID(o.DriverID),
		logger.Int("attempts", attempts),
	)
	metrics.Transitions.WithLabelValues(string(ride.StatusAccepted)).Inc()

	s.afterAccept(ctx, accepted, o)
	return accepted, nil
}

// afterAccept settles the losing offers and tells everyone involved. None of
// it can undo the acceptance, so failures are only logged.
func (s *Service) afterAccept(ctx context.Context, req *ride.Request, winner *offer.Offer) {
	if err := s.offers.Settle(ctx, req.ID, winner.ID); err != nil {
		s.logger.Warn("Failed to settle offers", logger.RequestID(req.ID), logger.Err(err))
	}

	s.publishRequest(events.RequestUpdated, req)
	if s.broker != nil {
		s.broker.Publish(events.OffersTopic(req.ID), events.RequestUpdated, req)
	}

	s.notify(ctx, winner.DriverID,
		"Bid Accepted!",
		fmt.Sprintf("Your offer of Rs %s was accepted. Head to the pickup point.", winner.Fare.StringFixed(0)),
		notification.TypeRideRequest, req.ID,
	)

	offers, err := s.offers.ListByRequest(ctx, req.ID)
	if err != nil {
		s.logger.Warn("Failed to list outbid offers", logger.RequestID(req.ID), logger.Err(err))
	}
	notified := map[string]bool{winner.DriverID: true}
	for _, o := range offers {
		if notified[o.DriverID] {
			continue
		}
		notified[o.DriverID] = true
		s.notify(ctx, o.DriverID,
			"Ride Taken",
			"The passenger accepted another offer.",
			notification.TypeSystem, req.ID,
		)
	}

	s.record(ctx, events.Lifecycle{
		Type:      events.OfferAccepted,
		RequestID: req.ID,
		ActorID:   req.PassengerID,
		From:      ride.StatusPending,
		To:        ride.StatusAccepted,
		OfferID:   winner.ID,
		DriverID:  winner.DriverID,
		Fare:      winner.Fare.String(),
	})
}

func (s *Service) observeAccept(start time.Time, attempts int, outcome string) {
	metrics.AcceptAttempts.WithLabelValues(outcome).Inc()
	s.nr.RecordAcceptLatency(time.Since(start), attempts, outcome)
}

// notPendingError classifies a request that can no longer be accepted
func notPendingError(r *ride.Request) error {
	if r.Status == ride.StatusCancelled {
		return apperrors.InvalidTransition(string(r.Status), string(ride.StatusAccepted))
	}
	return apperrors.ErrAlreadyAccepted
}

// acceptedOffer reports whether r carries the acceptance of o. The offer id
// tells apart two equal bids from the same driver.
func acceptedOffer(r *ride.Request, o *offer.Offer) bool {
	return r.Status != ride.StatusCancelled && r.OfferID == o.ID
}

func acceptedCopy(req *ride.Request, o *offer.Offer, at time.Time) *ride.Request {
	c := *req
	driverID := o.DriverID
	c.Status = ride.StatusAccepted
	c.DriverID = &driverID
	c.OfferID = o.ID
	c.Fare = o.Fare
	c.AcceptedAt = &at
	c.UpdatedAt = at
	return &c
}
