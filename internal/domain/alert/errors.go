package alert

import "errors"

var (
	// ErrForbidden is returned when the acting principal's role may not perform the action.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when the referenced alert does not exist.
	ErrNotFound = errors.New("alert not found")
	// ErrInvalidAction is returned for unrecognized action names.
	ErrInvalidAction = errors.New("invalid action")
	// ErrInvalidPayload is returned when a required field is missing or malformed.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrConflict is returned when the alert changed between load and save.
	ErrConflict = errors.New("alert was modified concurrently")
)
