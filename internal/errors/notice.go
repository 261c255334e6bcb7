package errors

import (
	"errors"
	"fmt"
)

// UserError pairs an internal failure with the text a visitor is shown.
// Error() keeps the internal detail for logs; Message is safe to render.
type UserError struct {
	Op      string // failing operation, e.g. "directory.load"
	Message string
	Err     error
}

func (e *UserError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// WithMessage attaches a user-facing message to err. It returns nil for a
// nil err.
func WithMessage(op string, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &UserError{Op: op, Message: fmt.Sprintf(format, args...), Err: err}
}

// UserMessage returns the message of the first UserError in err's chain,
// or fallback when there is none.
func UserMessage(err error, fallback string) string {
	var ue *UserError
	if errors.As(err, &ue) && ue.Message != "" {
		return ue.Message
	}
	return fallback
}
