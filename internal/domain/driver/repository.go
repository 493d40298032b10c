package driver

import "context"

// Repository defines the interface for driver data access
type Repository interface {
	// Save creates or replaces a driver profile
	Save(ctx context.Context, driver *Driver) error

	// GetByID retrieves a driver by ID
	GetByID(ctx context.Context, id string) (*Driver, error)

	// List returns drivers with the given status, or all when status is empty
	List(ctx context.Context, status Status) ([]*Driver, error)

	// UpdateStatus updates driver approval status
	UpdateStatus(ctx context.Context, id string, status Status) error
}
