package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestWithMessage(t *testing.T) {
	if got := WithMessage("directory.load", nil, "ignored"); got != nil {
		t.Fatalf("WithMessage(nil) = %v, want nil", got)
	}

	cause := fmt.Errorf("%w: labs: status 500", ErrLoadFailure)
	err := WithMessage("directory.load", cause, "Unable to load %s data. Please try again later.", "labs")

	if !errors.Is(err, ErrLoadFailure) {
		t.Error("sentinel lost through UserError")
	}
	if got := err.Error(); got != "directory.load: "+cause.Error() {
		t.Errorf("Error() = %q", got)
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		fallback string
		want     string
	}{
		{"nil", nil, "fallback", "fallback"},
		{"plain error", errors.New("boom"), "fallback", "fallback"},
		{"direct", WithMessage("op", errors.New("boom"), "Shown"), "fallback", "Shown"},
		{"wrapped", fmt.Errorf("outer: %w", WithMessage("op", errors.New("boom"), "Shown")), "fallback", "Shown"},
		{"empty message", &UserError{Op: "op", Err: errors.New("boom")}, "fallback", "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := UserMessage(tt.err, tt.fallback); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}
