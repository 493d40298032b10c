package driver

import "errors"

var (
	ErrDriverNotFound       = errors.New("driver not found")
	ErrMissingID            = errors.New("driver id is required")
	ErrInvalidDriverName    = errors.New("invalid driver name")
	ErrInvalidDriverStatus  = errors.New("invalid driver status")
	ErrInvalidVehicleType   = errors.New("invalid vehicle type")
	ErrInvalidVehicleNumber = errors.New("invalid vehicle number")
)
