package place

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultCategory is used when an admin adds a place without one
const DefaultCategory = "landmark"

// Place is an admin-curated pickup preset in the city
type Place struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Category  string    `json:"category"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository stores the catalog
type Repository interface {
	// Save inserts or replaces a place by id
	Save(ctx context.Context, p *Place) error
	GetByID(ctx context.Context, id string) (*Place, error)
	// List returns places ordered by name
	List(ctx context.Context) ([]*Place, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrPlaceNotFound  = errors.New("place not found")
	ErrMissingName    = errors.New("place name is required")
	ErrInvalidPlaceAt = errors.New("coordinates out of range")
)

// NewID returns a place id in the loc-<uuid> form
func NewID() string {
	return "loc-" + uuid.NewString()
}

// Normalize trims text fields and fills defaults
func (p *Place) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Address = strings.TrimSpace(p.Address)
	p.Category = strings.ToLower(strings.TrimSpace(p.Category))
	if p.Category == "" {
		p.Category = DefaultCategory
	}
	if p.Address == "" {
		p.Address = p.Name
	}
}

// Validate checks a normalized place
func (p *Place) Validate() error {
	if p.Name == "" {
		return ErrMissingName
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return ErrInvalidPlaceAt
	}
	return nil
}
