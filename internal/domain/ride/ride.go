package ride

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status represents ride request status
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Category is the vehicle class a request asks for
type Category string

const (
	CategoryMoto     Category = "moto"
	CategoryRickshaw Category = "rickshaw"
	CategoryCar      Category = "car"
	CategoryDelivery Category = "delivery"
)

// Categories lists every category in a stable order
var Categories = []Category{CategoryMoto, CategoryRickshaw, CategoryCar, CategoryDelivery}

// Location is an address with its coordinate
type Location struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// Request represents a passenger's ride or delivery ask
type Request struct {
	ID            string          `json:"id"`
	PassengerID   string          `json:"passenger_id"`
	PassengerName string          `json:"passenger_name,omitempty"`
	Category      Category        `json:"category"`
	Pickup        Location        `json:"pickup"`
	Destination   Location        `json:"destination"`
	Fare          decimal.Decimal `json:"fare"`
	Instructions  string          `json:"instructions,omitempty"`
	VoiceNote     string          `json:"voice_note,omitempty"`
	ItemType      string          `json:"item_type,omitempty"`
	Status        Status          `json:"status"`
	DriverID      *string         `json:"driver_id,omitempty"`
	OfferID       string          `json:"accepted_offer_id,omitempty"`
	CancelReason  string          `json:"cancel_reason,omitempty"`
	CancelledBy   string          `json:"cancelled_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	AcceptedAt    *time.Time      `json:"accepted_at,omitempty"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	CompletedAt   *time.Time      `json:"completed_at,omitempty"`
	CancelledAt   *time.Time      `json:"cancelled_at,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Filter narrows request listings
type Filter struct {
	Status   Status
	Category Category
	Limit    int
}

// Repository interface
type Repository interface {
	Create(ctx context.Context, req *Request) error
	GetByID(ctx context.Context, id string) (*Request, error)
	List(ctx context.Context, filter Filter) ([]*Request, error)
	ListByParticipant(ctx context.Context, userID string, limit int) ([]*Request, error)

	// Accept binds the offer's driver and fare only if the request is still
	// pending. It reports false when the conditional update matched nothing.
	Accept(ctx context.Context, id string, bind Binding) (bool, error)

	// Transition moves the request to t.To only if its current status is one
	// of t.From and returns the row as written. It reports false when the
	// conditional update matched nothing.
	Transition(ctx context.Context, id string, t Transition) (*Request, bool, error)

	ActiveByDriver(ctx context.Context, driverID string) (*Request, error)
	CompletedByDriver(ctx context.Context, driverID string, from, to time.Time) ([]*Request, error)
	Delete(ctx context.Context, id string) error
}

// Binding is the offer an accept writes onto a pending request
type Binding struct {
	OfferID  string
	DriverID string
	Fare     decimal.Decimal
	At       time.Time
}

// Fare bounds match the NUMERIC(12,2) fare columns
const fareDecimals = 2

var MaxFare = decimal.RequireFromString("9999999999.99")

// Errors
var (
	ErrRequestNotFound = errors.New("ride request not found")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidFare     = errors.New("fare must be positive with at most two decimals")
	ErrMissingPickup   = errors.New("pickup address is required")
	ErrMissingDest     = errors.New("destination address is required")
	ErrMissingOwner    = errors.New("passenger id is required")
)

// IsValid validates the status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusOngoing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether nothing may follow this status
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// IsValid validates the category
func (c Category) IsValid() bool {
	switch c {
	case CategoryMoto, CategoryRickshaw, CategoryCar, CategoryDelivery:
		return true
	}
	return false
}

// ParseCategory accepts any casing ("MOTO", "moto")
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

// Validate checks a request before it is stored
func (r *Request) Validate() error {
	if r.PassengerID == "" {
		return ErrMissingOwner
	}
	if !r.Category.IsValid() {
		return ErrInvalidCategory
	}
	if err := ValidateFare(r.Fare); err != nil {
		return err
	}
	if strings.TrimSpace(r.Pickup.Address) == "" {
		return ErrMissingPickup
	}
	if strings.TrimSpace(r.Destination.Address) == "" {
		return ErrMissingDest
	}
	return nil
}

// ValidateFare accepts positive amounts of at most two decimals up to MaxFare
func ValidateFare(fare decimal.Decimal) error {
	if !fare.IsPositive() || fare.GreaterThan(MaxFare) {
		return ErrInvalidFare
	}
	if !fare.Equal(fare.Truncate(fareDecimals)) {
		return ErrInvalidFare
	}
	return nil
}

// HasDriver reports whether a driver is bound to the request
func (r *Request) HasDriver() bool {
	return r.DriverID != nil && *r.DriverID != ""
}

// IsDriver reports whether userID is the bound driver
func (r *Request) IsDriver(userID string) bool {
	return r.HasDriver() && *r.DriverID == userID
}

// IsParticipant reports whether userID is the passenger or the bound driver
func (r *Request) IsParticipant(userID string) bool {
	return r.PassengerID == userID || r.IsDriver(userID)
}

// OtherParticipant returns the participant that is not userID
func (r *Request) OtherParticipant(userID string) (string, bool) {
	switch {
	case r.PassengerID == userID && r.HasDriver():
		return *r.DriverID, true
	case r.IsDriver(userID):
		return r.PassengerID, true
	}
	return "", false
}

// AcceptsOffers reports whether new offers are meaningful
func (r *Request) AcceptsOffers() bool {
	return r.Status == StatusPending
}

// IsActiveTrip reports whether the trip is between accept and completion
func (r *Request) IsActiveTrip() bool {
	return r.Status == StatusAccepted || r.Status == StatusOngoing
}
