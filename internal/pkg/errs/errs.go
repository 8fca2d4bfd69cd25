package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")

	// ErrInvalidTransition is returned when an approval action is applied to an
	// item that is not pending, or is not subject to approval at all.
	ErrInvalidTransition      = errors.New("invalid transition")
	ErrInvalidStageTransition = errors.New("invalid stage transition")
	ErrImmutableItem          = errors.New("item is immutable")
)

// Invalid wraps ErrValidation with a field-level message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// TransitionError carries the state an action was rejected from.
type TransitionError struct {
	Action string
	From   string
}

func (e *TransitionError) Error() string {
	from := e.From
	if from == "" {
		from = "none"
	}
	return fmt.Sprintf("invalid transition: cannot %s from %q", e.Action, from)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }
