package support

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Status tracks a complaint through admin triage
type Status string

const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusClosed        Status = "closed"
)

// Complaint is a support ticket filed by a passenger or driver against
// another person, not tied to a trip
type Complaint struct {
	ID           string    `json:"id"`
	ReporterID   string    `json:"reporter_id"`
	ReporterName string    `json:"reporter_name,omitempty"`
	Subject      string    `json:"subject"`
	Message      string    `json:"message"`
	TargetName   string    `json:"target_name"`
	TargetPhone  string    `json:"target_phone,omitempty"`
	TargetEmail  string    `json:"target_email,omitempty"`
	ProofImage   string    `json:"proof_image,omitempty"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Repository stores complaints
type Repository interface {
	Create(ctx context.Context, c *Complaint) error
	GetByID(ctx context.Context, id string) (*Complaint, error)
	// List returns complaints newest first; an empty status lists all
	List(ctx context.Context, status Status, limit int) ([]*Complaint, error)
	UpdateStatus(ctx context.Context, id string, status Status, at time.Time) error
}

var (
	ErrComplaintNotFound = errors.New("complaint not found")
	ErrMissingFields     = errors.New("subject, target name and message are required")
	ErrInvalidStatus     = errors.New("invalid complaint status")
)

// IsValid validates the status
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInvestigating, StatusClosed:
		return true
	}
	return false
}

// Validate checks the fields a reporter must fill
func (c *Complaint) Validate() error {
	if strings.TrimSpace(c.Subject) == "" || strings.TrimSpace(c.TargetName) == "" || strings.TrimSpace(c.Message) == "" {
		return ErrMissingFields
	}
	return nil
}
