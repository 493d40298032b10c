package presence

import (
	"context"
	"errors"
	"time"
)

// Ping is the latest known position of one identity within a trip
type Ping struct {
	TripID    string    `json:"trip_id"`
	Identity  string    `json:"identity"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Rotation  *float64  `json:"rotation,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Repository keeps only the latest ping per identity and trip
type Repository interface {
	Put(ctx context.Context, p *Ping) error
	Snapshot(ctx context.Context, tripID string) (map[string]*Ping, error)
}

var ErrInvalidCoordinates = errors.New("invalid coordinates")

// Validate checks coordinate ranges
func (p *Ping) Validate() error {
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}
