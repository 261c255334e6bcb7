// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrLoadFailure indicates a directory source was unreachable or malformed.
	// Callers show an empty table with a notice instead of failing the page.
	ErrLoadFailure = errors.New("directory load failed")

	// ErrFetchFailure indicates a calendar or timetable source could not be read.
	// It must surface as a distinct status, never as "available".
	ErrFetchFailure = errors.New("schedule fetch failed")

	// ErrRateLimitExceeded indicates rate limit has been exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidInput indicates user provided invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrNotConfigured indicates an optional feature has no backing configuration.
	ErrNotConfigured = errors.New("feature not configured")
)

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// SourceError represents a failed read from a remote or local data source
// (spreadsheet export, calendar feed, object store, file).
type SourceError struct {
	Source     string // sheets, html, file, object, google_calendar, ics, timetable
	URL        string // URL, path or object key
	StatusCode int
	Err        error
}

func (e *SourceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s source error (url=%s, status=%d): %v", e.Source, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s source error (url=%s): %v", e.Source, e.URL, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError creates a new source error.
func NewSourceError(source, url string, statusCode int, err error) *SourceError {
	return &SourceError{
		Source:     source,
		URL:        url,
		StatusCode: statusCode,
		Err:        err,
	}
}
