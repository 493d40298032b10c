package trip

import (
	"context"
	"errors"

	"github.com/edrive/ride-hailing/internal/domain/ride"
)

// Session is the runtime pairing of an accepted request with its bound driver.
// It is never persisted; chat, presence, reviews and safety records key on ID,
// which is the request id.
type Session struct {
	ID          string
	PassengerID string
	DriverID    string
	Status      ride.Status
}

var (
	ErrNoDriver       = errors.New("request has no bound driver")
	ErrNotParticipant = errors.New("caller is not a participant of this trip")
)

// FromRequest derives the session of a request. Requests that never had a
// driver bound have no session.
func FromRequest(r *ride.Request) (*Session, error) {
	if !r.HasDriver() {
		return nil, ErrNoDriver
	}
	return &Session{
		ID:          r.ID,
		PassengerID: r.PassengerID,
		DriverID:    *r.DriverID,
		Status:      r.Status,
	}, nil
}

// Resolve loads the request behind tripID and derives its session
func Resolve(ctx context.Context, rides ride.Repository, tripID string) (*Session, error) {
	r, err := rides.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	return FromRequest(r)
}

// IsParticipant reports whether userID is one of the two parties
func (s *Session) IsParticipant(userID string) bool {
	return userID == s.PassengerID || userID == s.DriverID
}

// Other returns the party that is not userID
func (s *Session) Other(userID string) (string, error) {
	switch userID {
	case s.PassengerID:
		return s.DriverID, nil
	case s.DriverID:
		return s.PassengerID, nil
	}
	return "", ErrNotParticipant
}

// IsActive reports whether location sharing is meaningful
func (s *Session) IsActive() bool {
	return s.Status == ride.StatusAccepted || s.Status == ride.StatusOngoing
}
