// Package places manages the admin-curated catalog of pickup presets
package places

import (
	"context"
	"errors"
	"time"

	"github.com/edrive/ride-hailing/internal/domain/place"
	apperrors "github.com/edrive/ride-hailing/pkg/errors"
	"github.com/edrive/ride-hailing/pkg/logger"
)

// Input is an admin's create or update payload
type Input struct {
	Name     string
	Address  string
	Category string
	Lat      float64
	Lng      float64
}

type Service struct {
	places place.Repository
	logger *logger.Logger
	now    func() time.Time
}

func NewService(places place.Repository, log *logger.Logger) *Service {
	return &Service{
		places: places,
		logger: log.Named("places"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// List returns every place ordered by name
func (s *Service) List(ctx context.Context) ([]*place.Place, error) {
	out, err := s.places.List(ctx)
	if err != nil {
		return nil, apperrors.Transport("Place store unavailable", err)
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, in Input) (*place.Place, error) {
	now := s.now()
	p := &place.Place{
		ID:        place.NewID(),
		Name:      in.Name,
		Address:   in.Address,
		Category:  in.Category,
		Lat:       in.Lat,
		Lng:       in.Lng,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Info("Place added", logger.String("place_id", p.ID), logger.String("name", p.Name))
	return p, nil
}

// Update replaces the editable fields of an existing place
func (s *Service) Update(ctx context.Context, id string, in Input) (*place.Place, error) {
	p, err := s.places.GetByID(ctx, id)
	if errors.Is(err, place.ErrPlaceNotFound) {
		return nil, apperrors.ErrPlaceNotFound
	}
	if err != nil {
		return nil, apperrors.Transport("Place store unavailable", err)
	}

	p.Name, p.Address, p.Category = in.Name, in.Address, in.Category
	p.Lat, p.Lng = in.Lat, in.Lng
	p.UpdatedAt = s.now()
	if err := s.save(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	err := s.places.Delete(ctx, id)
	if errors.Is(err, place.ErrPlaceNotFound) {
		return apperrors.ErrPlaceNotFound
	}
	if err != nil {
		return apperrors.Transport("Place store unavailable", err)
	}
	s.logger.Info("Place removed", logger.String("place_id", id))
	return nil
}

func (s *Service) save(ctx context.Context, p *place.Place) error {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return apperrors.Validation("Place needs a name and valid coordinates", err)
	}
	if err := s.places.Save(ctx, p); err != nil {
		return apperrors.Transport("Place store unavailable", err)
	}
	return nil
}
