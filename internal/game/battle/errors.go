package battle

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the engine. Callers match them with errors.Is.
var (
	// ErrNotFound reports an absent trainer, opponent template, party or session.
	ErrNotFound = errors.New("not found")
	// ErrInvalidState reports an intent that is well-formed but not legal now:
	// a terminal battle, an empty roster, a fainted switch target.
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation reports malformed intent or request fields.
	ErrValidation = errors.New("validation failed")
	// ErrTransient marks a recoverable data fault that was defaulted rather than raised.
	ErrTransient = errors.New("transient fault")
)

// NotFoundf returns an error wrapping ErrNotFound.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// InvalidStatef returns an error wrapping ErrInvalidState.
func InvalidStatef(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// Validationf returns an error wrapping ErrValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
