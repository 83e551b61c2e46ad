package appointments

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when no appointment matches the code or id.
	ErrNotFound = errors.New("appointment not found")

	// ErrConflict is returned when a status-conditioned update matched the
	// row but lost the race to a concurrent mutation.
	ErrConflict = errors.New("appointment was modified concurrently")

	// ErrDuplicateCode is returned when a generated confirmation code is
	// already taken. Callers regenerate and retry.
	ErrDuplicateCode = errors.New("confirmation code already in use")
)

// ValidationError reports which required fields a mutation is missing.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// TransitionError reports a mutation rejected by the current lifecycle state.
// Hint suggests what the caller can do instead, phrased for the end user.
type TransitionError struct {
	Action string
	From   Status
	Hint   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s appointment in status %q", e.Action, e.From)
}

// IsTransitionError reports whether err is a lifecycle rejection and returns it.
func IsTransitionError(err error) (*TransitionError, bool) {
	var te *TransitionError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
