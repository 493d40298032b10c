// Package support handles general complaints filed outside a trip and their
// triage by admins.
package support

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/edrive/ride-hailing/internal/domain/notification"
	"github.com/edrive/ride-hailing/internal/domain/support"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
	"github.com/edrive/ride-hailing/pkg/logger"
)

// Notifier delivers notifications without blocking
type Notifier interface {
	Notify(ctx context.Context, n notification.Notification)
}

// FileInput is what a reporter submits
type FileInput struct {
	ReporterID   string
	ReporterName string
	Subject      string
	Message      string
	TargetName   string
	TargetPhone  string
	TargetEmail  string
	ProofImage   string
}

type Service struct {
	complaints support.Repository
	notifier   Notifier
	logger     *logger.Logger
	now        func() time.Time
}

func NewService(complaints support.Repository, notifier Notifier, log *logger.Logger) *Service {
	return &Service{
		complaints: complaints,
		notifier:   notifier,
		logger:     log.Named("support"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// File stores a new open complaint
func (s *Service) File(ctx context.Context, in FileInput) (*support.Complaint, error) {
	now := s.now()
	c := &support.Complaint{
		ID:           uuid.NewString(),
		ReporterID:   in.ReporterID,
		ReporterName: strings.TrimSpace(in.ReporterName),
		Subject:      strings.TrimSpace(in.Subject),
		Message:      strings.TrimSpace(in.Message),
		TargetName:   strings.TrimSpace(in.TargetName),
		TargetPhone:  strings.TrimSpace(in.TargetPhone),
		TargetEmail:  strings.TrimSpace(in.TargetEmail),
		ProofImage:   in.ProofImage,
		Status:       support.StatusOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := c.Validate(); err != nil {
		return nil, apperrors.Validation("Please fill subject, target name and message", err)
	}
	if err := s.complaints.Create(ctx, c); err != nil {
		return nil, apperrors.Transport("Complaint store unavailable", err)
	}

	s.logger.Info("Complaint filed",
		logger.String("complaint_id", c.ID),
		logger.UserID(c.ReporterID),
	)
	return c, nil
}

// List returns complaints for admin triage, newest first
func (s *Service) List(ctx context.Context, status string, limit int) ([]*support.Complaint, error) {
	st := support.Status(status)
	if st != "" && !st.IsValid() {
		return nil, apperrors.Validation("Invalid complaint status", support.ErrInvalidStatus)
	}
	out, err := s.complaints.List(ctx, st, limit)
	if err != nil {
		return nil, apperrors.Transport("Complaint store unavailable", err)
	}
	return out, nil
}

// SetStatus moves a complaint through triage and tells the reporter
func (s *Service) SetStatus(ctx context.Context, id, status string) (*support.Complaint, error) {
	st := support.Status(status)
	if !st.IsValid() {
		return nil, apperrors.Validation("Invalid complaint status", support.ErrInvalidStatus)
	}

	err := s.complaints.UpdateStatus(ctx, id, st, s.now())
	if errors.Is(err, support.ErrComplaintNotFound) {
		return nil, apperrors.ErrComplaintNotFound
	}
	if err != nil {
		return nil, apperrors.Transport("Complaint store unavailable", err)
	}

	c, err := s.complaints.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Transport("Complaint store unavailable", err)
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, notification.Notification{
			UserID: c.ReporterID,
			Title:  "Complaint Update",
			Body:   "Your complaint \"" + c.Subject + "\" is now " + string(st) + ".",
			Type:   notification.TypeSystem,
		})
	}
	return c, nil
}
