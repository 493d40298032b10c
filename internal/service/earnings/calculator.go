package earnings

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/edrive/ride-hailing/internal/domain/ride"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
)

// Service sums a driver's completed fares
type Service struct {
	rides    ride.Repository
	location *time.Location
	now      func() time.Time
}

// Config holds earnings configuration
type Config struct {
	// Location defines where "today" starts. Defaults to UTC.
	Location *time.Location
}

// Range is the total of completed trips in [From, To)
type Range struct {
	From  time.Time       `json:"from"`
	To    time.Time       `json:"to"`
	Total decimal.Decimal `json:"total"`
	Trips int             `json:"trips"`
}

// Summary is the dashboard view of a driver's earnings
type Summary struct {
	DriverID string `json:"driver_id"`
	Today    Range  `json:"today"`
	Week     Range  `json:"week"`
	Lifetime Range  `json:"lifetime"`
}

// NewService creates a new earnings service
func NewService(rides ride.Repository, config Config) *Service {
	loc := config.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		rides:    rides,
		location: loc,
		now:      time.Now,
	}
}

// ForRange sums fares of the driver's trips completed in [from, to)
func (s *Service) ForRange(ctx context.Context, driverID string, from, to time.Time) (*Range, error) {
	if !to.After(from) {
		return nil, apperrors.Validation("Range end must be after its start", nil)
	}
	trips, err := s.rides.CompletedByDriver(ctx, driverID, from, to)
	if err != nil {
		return nil, apperrors.Transport("Request store unavailable", err)
	}
	return &Range{From: from, To: to, Total: Total(trips), Trips: len(trips)}, nil
}

// Summarize reports today, the last seven days and the lifetime total
func (s *Service) Summarize(ctx context.Context, driverID string) (*Summary, error) {
	now := s.now().In(s.location)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.location)
	end := now.Add(time.Nanosecond)

	today, err := s.ForRange(ctx, driverID, midnight, end)
	if err != nil {
		return nil, err
	}
	week, err := s.ForRange(ctx, driverID, midnight.AddDate(0, 0, -6), end)
	if err != nil {
		return nil, err
	}
	lifetime, err := s.ForRange(ctx, driverID, time.Unix(0, 0).UTC(), end)
	if err != nil {
		return nil, err
	}

	return &Summary{DriverID: driverID, Today: *today, Week: *week, Lifetime: *lifetime}, nil
}

// Total sums the fares of completed requests. Anything else is ignored.
func Total(trips []*ride.Request) decimal.Decimal {
	total := decimal.Zero
	for _, t := range trips {
		if t.Status == ride.StatusCompleted {
			total = total.Add(t.Fare)
		}
	}
	return total
}
