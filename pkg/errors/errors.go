package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches AppErrors by code and message so sentinel values work with errors.Is
// after WithDetail or a wrapping fmt.Errorf.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == e.Message
}

// NewAppError creates a new AppError
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// WithDetail returns a copy of the error carrying an extra detail field
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Status:  e.Status,
		Err:     e.Err,
	}
}

// Common error constructors

// Validation creates a 400 error for malformed input
func Validation(message string, err error) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

// BadRequest creates a 400 error
func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    "BAD_REQUEST",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

// Unauthorized creates a 401 error
func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

// Forbidden creates a 403 error
func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

// NotFound creates a 404 error
func NotFound(message string, err error) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: message,
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

// Conflict creates a 409 error
func Conflict(message string, err error) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     err,
	}
}

// Internal creates a 500 error
func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// ServiceUnavailable creates a 503 error
func ServiceUnavailable(message string, err error) *AppError {
	return &AppError{
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

// Transport creates a 503 error for an unreachable backend
func Transport(message string, err error) *AppError {
	return &AppError{
		Code:    "TRANSPORT_ERROR",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

// InvalidTransition creates a 409 error naming the current and attempted status
func InvalidTransition(current, attempted string) *AppError {
	return &AppError{
		Code:    "INVALID_TRANSITION",
		Message: fmt.Sprintf("Cannot move request from %s to %s", current, attempted),
		Details: map[string]interface{}{
			"current":   current,
			"attempted": attempted,
		},
		Status: http.StatusConflict,
	}
}

// Domain-specific errors

var (
	ErrRequestNotFound      = NotFound("Ride request not found", nil)
	ErrOfferNotFound        = NotFound("Offer not found", nil)
	ErrDriverNotFound       = NotFound("Driver not found", nil)
	ErrNotificationNotFound = NotFound("Notification not found", nil)
	ErrComplaintNotFound    = NotFound("Complaint not found", nil)
	ErrPlaceNotFound        = NotFound("Place not found", nil)

	ErrAlreadyAccepted = &AppError{
		Code:    "ALREADY_ACCEPTED",
		Message: "This ride was already taken",
		Status:  http.StatusConflict,
	}
	ErrRequestNotPending = &AppError{
		Code:    "REQUEST_NOT_PENDING",
		Message: "Ride request is no longer accepting offers",
		Status:  http.StatusConflict,
	}
	ErrStaleOffer      = Conflict("Offer does not belong to this request", nil)
	ErrDriverBusy      = Conflict("Driver already has an active trip", nil)
	ErrAlreadyReviewed = Conflict("Trip already reviewed", nil)

	ErrNotParticipant     = Forbidden("Caller is not a participant of this trip", nil)
	ErrNotRequestOwner    = Forbidden("Only the passenger can perform this action", nil)
	ErrNotBoundDriver     = Forbidden("Only the assigned driver can perform this action", nil)
	ErrDriverNotApproved  = Forbidden("Driver profile is not approved", nil)
	ErrDriverNotEligible  = Forbidden("Driver vehicle category is not eligible for this request", nil)
	ErrBlocked            = Forbidden("Interaction with this user is blocked", nil)
	ErrTripNotActive      = Conflict("Trip is not active", nil)
	ErrTripHasNoDriver    = Conflict("Trip has no assigned driver yet", nil)
	ErrInvalidCategory    = Validation("Invalid category", nil)
	ErrInvalidFare        = Validation("Fare must be a positive amount with at most two decimals", nil)
	ErrInvalidCoordinates = Validation("Invalid coordinates", nil)
	ErrReasonRequired     = Validation("Cancellation reason is required", nil)

	ErrDuplicateRequest = Conflict("Duplicate request detected", nil)
)

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError attempts to convert an error to AppError
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	// Return generic internal error if not an AppError
	return Internal("An unexpected error occurred", err)
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// WrapAppError wraps an AppError with additional context
func WrapAppError(appErr *AppError, message string) *AppError {
	if appErr == nil {
		return nil
	}
	return &AppError{
		Code:    appErr.Code,
		Message: fmt.Sprintf("%s: %s", message, appErr.Message),
		Details: appErr.Details,
		Status:  appErr.Status,
		Err:     appErr.Err,
	}
}
