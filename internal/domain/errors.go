package domain

import "errors"

// ErrInvalidTrade is matched by every ValidationError.
var ErrInvalidTrade = errors.New("invalid trade")

// Reasons surfaced to callers verbatim.
const (
	ReasonOptionFields    = "Options require type, strike, and expiry"
	ReasonCloseBeforeOpen = "Close date cannot be before open date"
	ReasonAccountNotFound = "Account not found"
)

// ValidationError is a caller-fixable problem with a trade write request.
type ValidationError struct {
	Reason string
}

// NewValidationError creates a ValidationError with the given reason.
func NewValidationError(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Unwrap lets errors.Is(err, ErrInvalidTrade) match any validation failure.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidTrade
}
