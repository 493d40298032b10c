package dto

import (
	"github.com/shopspring/decimal"

	"github.com/edrive/ride-hailing/internal/domain/ride"
)

// LocationRequest is an address with its coordinate
type LocationRequest struct {
	Address string  `json:"address" binding:"required"`
	Lat     float64 `json:"lat" binding:"min=-90,max=90"`
	Lng     float64 `json:"lng" binding:"min=-180,max=180"`
}

// ToLocation converts the payload to the domain type
func (l LocationRequest) ToLocation() ride.Location {
	return ride.Location{Address: l.Address, Lat: l.Lat, Lng: l.Lng}
}

// CreateRideRequest represents a passenger's new ride or delivery ask
type CreateRideRequest struct {
	Category      string          `json:"category" binding:"required"`
	Pickup        LocationRequest `json:"pickup" binding:"required"`
	Destination   LocationRequest `json:"destination" binding:"required"`
	Fare          decimal.Decimal `json:"fare"`
	Instructions  string          `json:"instructions"`
	VoiceNote     string          `json:"voice_note"`
	ItemType      string          `json:"item_type"`
	PassengerName string          `json:"passenger_name"`
}

// CreateRideResponse returns the new request id
type CreateRideResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// CreateOfferRequest is a driver's bid
type CreateOfferRequest struct {
	Fare decimal.Decimal `json:"fare"`
}

// CreateOfferResponse returns the new offer id
type CreateOfferResponse struct {
	OfferID string `json:"offer_id"`
}

// AcceptOfferRequest names the offer the passenger picked
type AcceptOfferRequest struct {
	OfferID string `json:"offer_id" binding:"required"`
}

// CancelRequest carries the cancellation reason
type CancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// UpdateLocationRequest is one position report
type UpdateLocationRequest struct {
	Lat      float64  `json:"lat" binding:"min=-90,max=90"`
	Lng      float64  `json:"lng" binding:"min=-180,max=180"`
	Rotation *float64 `json:"rotation"`
}

// SendMessageRequest is one chat message
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

// ReportRequest is a safety report against the other participant
type ReportRequest struct {
	Reason  string `json:"reason" binding:"required"`
	Details string `json:"details"`
}

// CreateReviewRequest rates the other participant of a completed trip
type CreateReviewRequest struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// DocumentRequest is one onboarding document. Image is base64 encoded.
type DocumentRequest struct {
	Type      string `json:"type" binding:"required,oneof=cnic_front cnic_back license vehicle_photo"`
	Image     string `json:"image" binding:"required"`
	Reference string `json:"reference"`
}

// OnboardingRequest is a driver's profile submission
type OnboardingRequest struct {
	Name          string            `json:"name" binding:"required"`
	Phone         string            `json:"phone"`
	Category      string            `json:"category" binding:"required"`
	VehicleModel  string            `json:"vehicle_model" binding:"required"`
	VehicleNumber string            `json:"vehicle_number" binding:"required"`
	Documents     []DocumentRequest `json:"documents" binding:"required,min=1,dive"`
}

// UpdateDriverStatusRequest approves or rejects a driver
type UpdateDriverStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=approved rejected"`
}

// DeviceTokenRequest registers a push token
type DeviceTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Code    string                 `json:"code"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ComplaintRequest files a general support complaint
type ComplaintRequest struct {
	Subject     string `json:"subject" binding:"required"`
	Message     string `json:"message" binding:"required"`
	TargetName  string `json:"target_name" binding:"required"`
	TargetPhone string `json:"target_phone"`
	TargetEmail string `json:"target_email" binding:"omitempty,email"`
	ProofImage  string `json:"proof_image"`
}

// UpdateComplaintStatusRequest moves a complaint through triage
type UpdateComplaintStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=open investigating closed"`
}

// PlaceRequest creates or updates a catalog place
type PlaceRequest struct {
	Name     string  `json:"name" binding:"required"`
	Address  string  `json:"address"`
	Category string  `json:"category"`
	Lat      float64 `json:"lat" binding:"min=-90,max=90"`
	Lng      float64 `json:"lng" binding:"min=-180,max=180"`
}
