package driver

import (
	"strings"
	"time"

	"github.com/edrive/ride-hailing/internal/domain/ride"
)

// Status represents the approval state of a driver profile
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// DocumentType names an onboarding document
type DocumentType string

const (
	DocumentCNICFront DocumentType = "cnic_front"
	DocumentCNICBack  DocumentType = "cnic_back"
	DocumentLicense   DocumentType = "license"
	DocumentVehicle   DocumentType = "vehicle_photo"
)

// Document records the verification outcome of one uploaded document.
// Images themselves live in blob storage and are referenced, never stored here.
type Document struct {
	Type         DocumentType `json:"type"`
	Reference    string       `json:"reference,omitempty"`
	Valid        bool         `json:"valid"`
	Reason       string       `json:"reason,omitempty"`
	ManualReview bool         `json:"manual_review"`
}

// Driver represents a driver profile
type Driver struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Phone             string        `json:"phone"`
	Category          ride.Category `json:"category"`
	VehicleModel      string        `json:"vehicle_model"`
	VehicleNumber     string        `json:"vehicle_number"`
	Status            Status        `json:"status"`
	NeedsManualReview bool          `json:"needs_manual_review"`
	Documents         []Document    `json:"documents,omitempty"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// IsValid validates the driver entity
func (d *Driver) IsValid() error {
	if d.ID == "" {
		return ErrMissingID
	}
	if strings.TrimSpace(d.Name) == "" {
		return ErrInvalidDriverName
	}
	if !d.Category.IsValid() {
		return ErrInvalidVehicleType
	}
	if strings.TrimSpace(d.VehicleNumber) == "" {
		return ErrInvalidVehicleNumber
	}
	if !d.Status.IsValid() {
		return ErrInvalidDriverStatus
	}
	return nil
}

// IsValid validates the status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// CanBid returns true if the driver may submit offers
func (d *Driver) CanBid() bool {
	return d.Status == StatusApproved
}

// SetStatus updates the driver's approval status
func (d *Driver) SetStatus(status Status) error {
	if !status.IsValid() {
		return ErrInvalidDriverStatus
	}
	d.Status = status
	if status != StatusPending {
		d.NeedsManualReview = false
	}
	d.UpdatedAt = time.Now()
	return nil
}
