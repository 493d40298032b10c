package offer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/edrive/ride-hailing/internal/domain/ride"
)

// Status marks what became of a bid once its request left pending
type Status string

const (
	StatusOpen     Status = "open"
	StatusAccepted Status = "accepted"
	StatusStale    Status = "stale"
)

// Offer is a driver's proposed fare against a pending request
type Offer struct {
	ID         string          `json:"id"`
	RequestID  string          `json:"request_id"`
	DriverID   string          `json:"driver_id"`
	DriverName string          `json:"driver_name,omitempty"`
	Fare       decimal.Decimal `json:"fare"`
	Status     Status          `json:"status"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Repository defines offer storage
type Repository interface {
	Create(ctx context.Context, o *Offer) error
	GetByID(ctx context.Context, id string) (*Offer, error)
	ListByRequest(ctx context.Context, requestID string) ([]*Offer, error)

	// Settle marks offerID accepted and every other offer of the request stale.
	Settle(ctx context.Context, requestID, acceptedOfferID string) error

	// Expire marks every open offer of the request stale.
	Expire(ctx context.Context, requestID string) error

	DeleteByRequest(ctx context.Context, requestID string) error
}

var (
	ErrOfferNotFound     = errors.New("offer not found")
	ErrRequestNotPending = errors.New("request is not pending")
)

// NewID returns an offer id in the bid-<uuid> form
func NewID() string {
	return "bid-" + uuid.NewString()
}

// Validate checks an offer before it is stored
func (o *Offer) Validate() error {
	return ride.ValidateFare(o.Fare)
}

// BelongsTo reports whether the offer was made against requestID
func (o *Offer) BelongsTo(requestID string) bool {
	return o.RequestID == requestID
}
