package patients

import "errors"

var (
	// ErrNotFound is returned when no patient matches the lookup key.
	ErrNotFound = errors.New("patient not found")

	// ErrMissingPhone is returned when a caller tries to create or resolve a
	// patient without a phone number.
	ErrMissingPhone = errors.New("phone is required")
)
