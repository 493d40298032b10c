package onboarding

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/edrive/ride-hailing/internal/domain/driver"
	"github.com/edrive/ride-hailing/internal/domain/notification"
	"github.com/edrive/ride-hailing/internal/domain/ride"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
	"github.com/edrive/ride-hailing/pkg/logger"
)

// Notifier delivers notifications without blocking
type Notifier interface {
	Notify(ctx context.Context, n notification.Notification)
}

// RequiredDocuments must be present in every submission
var RequiredDocuments = []driver.DocumentType{driver.DocumentLicense, driver.DocumentVehicle}

// DocumentInput is one uploaded document
type DocumentInput struct {
	Type      driver.DocumentType
	Image     string
	Reference string
}

// SubmitInput is a driver's onboarding form
type SubmitInput struct {
	DriverID      string
	Name          string
	Phone         string
	Category      string
	VehicleModel  string
	VehicleNumber string
	Documents     []DocumentInput
}

// Service verifies driver documents and manages profile approval
type Service struct {
	drivers  driver.Repository
	verifier DocumentVerifier
	notifier Notifier
	logger   *logger.Logger
	now      func() time.Time
}

func NewService(drivers driver.Repository, verifier DocumentVerifier, notifier Notifier, log *logger.Logger) *Service {
	return &Service{
		drivers:  drivers,
		verifier: verifier,
		notifier: notifier,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Submit verifies the documents and stores the profile as pending. A definite
// rejection of any document fails the submission. Documents the verifier
// could not judge are accepted but flag the profile for manual review.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*driver.Driver, error) {
	category, err := ride.ParseCategory(in.Category)
	if err != nil {
		return nil, apperrors.ErrInvalidCategory
	}

	existing, err := s.drivers.GetByID(ctx, in.DriverID)
	if err != nil && !errors.Is(err, driver.ErrDriverNotFound) {
		return nil, apperrors.Transport("Driver store unavailable", err)
	}
	if existing != nil && existing.Status == driver.StatusApproved {
		return nil, apperrors.Conflict("Driver profile is already approved", nil)
	}

	if err := requireDocuments(in.Documents); err != nil {
		return nil, err
	}

	now := s.now()
	d := &driver.Driver{
		ID:            in.DriverID,
		Name:          strings.TrimSpace(in.Name),
		Phone:         strings.TrimSpace(in.Phone),
		Category:      category,
		VehicleModel:  strings.TrimSpace(in.VehicleModel),
		VehicleNumber: strings.ToUpper(strings.TrimSpace(in.VehicleNumber)),
		Status:        driver.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if existing != nil {
		d.CreatedAt = existing.CreatedAt
	}
	if err := d.IsValid(); err != nil {
		return nil, apperrors.Validation(capitalize(err.Error()), err)
	}

	for _, doc := range in.Documents {
		v := s.verify(ctx, doc)
		if !v.Valid {
			return nil, apperrors.Validation(v.Reason, nil).WithDetail("document", string(doc.Type))
		}
		if v.ManualReview {
			d.NeedsManualReview = true
		}
		d.Documents = append(d.Documents, driver.Document{
			Type:         doc.Type,
			Reference:    doc.Reference,
			Valid:        v.Valid,
			Reason:       v.Reason,
			ManualReview: v.ManualReview,
		})
	}

	if err := s.drivers.Save(ctx, d); err != nil {
		return nil, apperrors.Transport("Driver store unavailable", err)
	}
	s.logger.Info("Driver onboarding submitted",
		logger.DriverID(d.ID),
		logger.String("category", string(d.Category)),
		logger.Bool("needs_manual_review", d.NeedsManualReview),
	)
	return d, nil
}

// verify never fails: an unreachable verifier yields ManualReview
func (s *Service) verify(ctx context.Context, doc DocumentInput) Verification {
	if s.verifier == nil {
		return ManualReview
	}
	v, err := s.verifier.Verify(ctx, doc.Image, doc.Type)
	if err != nil || v == nil {
		s.logger.Warn("Document verification unavailable, routing to manual review",
			logger.String("document", string(doc.Type)),
			logger.Err(err),
		)
		return ManualReview
	}
	if !v.Valid && v.Reason == "" {
		v.Reason = InvalidReason(doc.Type)
	}
	return *v
}

// Get returns a driver profile
func (s *Service) Get(ctx context.Context, id string) (*driver.Driver, error) {
	d, err := s.drivers.GetByID(ctx, id)
	if errors.Is(err, driver.ErrDriverNotFound) {
		return nil, apperrors.ErrDriverNotFound
	}
	if err != nil {
		return nil, apperrors.Transport("Driver store unavailable", err)
	}
	return d, nil
}

// List returns profiles with the given status, or all of them
func (s *Service) List(ctx context.Context, status string) ([]*driver.Driver, error) {
	st := driver.Status(status)
	if status != "" && !st.IsValid() {
		return nil, apperrors.Validation("Invalid driver status", driver.ErrInvalidDriverStatus)
	}
	list, err := s.drivers.List(ctx, st)
	if err != nil {
		return nil, apperrors.Transport("Driver store unavailable", err)
	}
	return list, nil
}

// SetStatus approves or rejects a profile. Administrative only.
func (s *Service) SetStatus(ctx context.Context, id, status string) (*driver.Driver, error) {
	st := driver.Status(status)
	if st != driver.StatusApproved && st != driver.StatusRejected {
		return nil, apperrors.Validation("Status must be approved or rejected", driver.ErrInvalidDriverStatus)
	}

	if err := s.drivers.UpdateStatus(ctx, id, st); err != nil {
		if errors.Is(err, driver.ErrDriverNotFound) {
			return nil, apperrors.ErrDriverNotFound
		}
		return nil, apperrors.Transport("Driver store unavailable", err)
	}
	d, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Driver status updated", logger.DriverID(id), logger.String("status", status))
	if s.notifier != nil {
		title, body := "Profile Approved", "You can now bid on ride requests."
		if st == driver.StatusRejected {
			title, body = "Profile Rejected", "Your documents could not be verified. Please resubmit."
		}
		s.notifier.Notify(ctx, notification.Notification{
			UserID: id,
			Title:  title,
			Body:   body,
			Type:   notification.TypeSystem,
		})
	}
	return d, nil
}

func requireDocuments(docs []DocumentInput) error {
	have := make(map[driver.DocumentType]bool, len(docs))
	for _, d := range docs {
		have[d.Type] = true
	}
	for _, t := range RequiredDocuments {
		if !have[t] {
			return apperrors.Validation(Label(t)+" is required", nil).WithDetail("document", string(t))
		}
	}
	return nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
