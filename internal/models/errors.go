package models

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrAlreadyBooked          = errors.New("slot already booked")
	ErrNotAvailable           = errors.New("not available")
	ErrDuplicateBooking       = errors.New("duplicate booking")
	ErrMaxInterviewsExceeded  = errors.New("max interviews per week exceeded")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrInvalid                = errors.New("invalid request")
)

// IsRetryable reports whether the caller may retry the operation unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
