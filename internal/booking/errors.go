package booking

import "errors"

var (
	ErrInvalidInput        = errors.New("booking: invalid input")
	ErrUserNotFound        = errors.New("booking: user does not exist")
	ErrNotFound            = errors.New("booking: appointment not found")
	ErrSlotConflict        = errors.New("booking: slot already booked")
	ErrUpstreamUnavailable = errors.New("booking: user service unavailable")
)

// inputError is an ErrInvalidInput whose text is safe to show to the caller.
type inputError string

func (e inputError) Error() string { return string(e) }

func (e inputError) Is(target error) bool { return target == ErrInvalidInput }

const (
	msgInvalidDate   = inputError("Invalid date format")
	msgInvalidMethod = inputError("Invalid reminder method")
)

func missingField(name string) error {
	return inputError("Missing field: " + name)
}
