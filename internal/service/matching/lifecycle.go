package matching

import (
	"context"
	"errors"
	"strings"

	"github.com/edrive/ride-hailing/internal/domain/notification"
	"github.com/edrive/ride-hailing/internal/domain/ride"
	"github.com/edrive/ride-hailing/internal/events"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
	"github.com/edrive/ride-hailing/pkg/logger"
	"github.com/edrive/ride-hailing/pkg/metrics"
)

// Start moves an accepted request to ongoing. Only the bound driver may start.
func (s *Service) Start(ctx context.Context, requestID, driverID string) (*ride.Request, error) {
	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsDriver(driverID) {
		return nil, apperrors.ErrNotBoundDriver
	}

	t := ride.NewTransition(ride.StatusOngoing, s.now())
	t.RequireDriver = driverID
	updated, from, err := s.transition(ctx, req, t)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, updated.PassengerID, "Trip Started", "Your driver has started the trip.",
		notification.TypeRideRequest, updated.ID)
	s.record(ctx, events.Lifecycle{
		Type: events.RequestUpdated, RequestID: updated.ID, ActorID: driverID,
		From: from, To: ride.StatusOngoing, DriverID: driverID,
	})
	return updated, nil
}

// Complete moves an ongoing request to completed. Only the bound driver may
// complete.
func (s *Service) Complete(ctx context.Context, requestID, driverID string) (*ride.Request, error) {
	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsDriver(driverID) {
		return nil, apperrors.ErrNotBoundDriver
	}

	t := ride.NewTransition(ride.StatusCompleted, s.now())
	t.RequireDriver = driverID
	updated, from, err := s.transition(ctx, req, t)
	if err != nil {
		return nil, err
	}

	fare, _ := updated.Fare.Float64()
	s.nr.RecordTripCompleted(updated.ID, string(updated.Category), fare)
	s.notify(ctx, updated.PassengerID, "Trip Completed",
		"You have arrived. Please pay Rs "+updated.Fare.StringFixed(0)+" to your driver.",
		notification.TypeRideRequest, updated.ID)
	s.record(ctx, events.Lifecycle{
		Type: events.RequestUpdated, RequestID: updated.ID, ActorID: driverID,
		From: from, To: ride.StatusCompleted, DriverID: driverID, Fare: updated.Fare.String(),
	})
	return updated, nil
}

// Cancel cancels a pending or accepted request. The passenger may cancel
// either; the bound driver may cancel an accepted one. A reason is required.
// The driver binding of an accepted request is kept for audit.
func (s *Service) Cancel(ctx context.Context, requestID, callerID, reason string) (*ride.Request, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.ErrReasonRequired
	}

	req, err := s.getRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.IsParticipant(callerID) {
		return nil, apperrors.ErrNotParticipant
	}

	t := ride.NewTransition(ride.StatusCancelled, s.now())
	t.Reason = reason
	t.CancelledBy = callerID
	if req.PassengerID != callerID {
		t.RequireDriver = callerID
	}
	updated, from, err := s.transition(ctx, req, t)
	if err != nil {
		return nil, err
	}

	if err := s.offers.Expire(ctx, req.ID); err != nil {
		s.logger.Warn("Failed to expire offers", logger.RequestID(req.ID), logger.Err(err))
	}
	if s.broker != nil {
		s.broker.Publish(events.OffersTopic(req.ID), events.RequestUpdated, updated)
	}

	if other, ok := updated.OtherParticipant(callerID); ok {
		s.notify(ctx, other, "Ride Cancelled", "Reason: "+reason, notification.TypeAlert, req.ID)
	}
	s.record(ctx, events.Lifecycle{
		Type: events.RequestUpdated, RequestID: req.ID, ActorID: callerID,
		From: from, To: ride.StatusCancelled, Reason: reason,
	})
	return updated, nil
}

// transition applies t as a conditional update and returns the stored row
// with the status it left. When it matches nothing the request is re-read so
// the error names the status that actually blocked it.
func (s *Service) transition(ctx context.Context, req *ride.Request, t ride.Transition) (*ride.Request, ride.Status, error) {
	if !ride.CanTransition(req.Status, t.To) {
		return nil, "", apperrors.InvalidTransition(string(req.Status), string(t.To))
	}

	updated, ok, err := s.rides.Transition(ctx, req.ID, t)
	if errors.Is(err, ride.ErrRequestNotFound) {
		return nil, "", apperrors.ErrRequestNotFound
	}
	if err != nil {
		return nil, "", storeError(err)
	}
	if !ok {
		cur, err := s.getRequest(ctx, req.ID)
		if err != nil {
			return nil, "", err
		}
		if t.RequireDriver != "" && !cur.IsDriver(t.RequireDriver) {
			return nil, "", apperrors.ErrNotBoundDriver
		}
		return nil, "", apperrors.InvalidTransition(string(cur.Status), string(t.To))
	}

	// An accept may have landed between our read and the update.
	from := req.Status
	if from == ride.StatusPending && updated.HasDriver() {
		from = ride.StatusAccepted
	}

	s.logger.Info("Ride request transitioned",
		logger.RequestID(req.ID),
		logger.String("from", string(from)),
		logger.String("to", string(t.To)),
	)
	metrics.Transitions.WithLabelValues(string(t.To)).Inc()
	s.publishRequest(events.RequestUpdated, updated)
	return updated, from, nil
}
