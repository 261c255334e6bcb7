package scraper

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	domerrors "github.com/garyellow/campus-assist-go/internal/errors"
)

// permanentError marks a failure that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return &permanentError{err: err}
}

// IsNetworkError reports whether err looks transient: a timeout, a refused
// or reset connection, a 5xx or a rate limit.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var srcErr *domerrors.SourceError
	if errors.As(err, &srcErr) && (srcErr.StatusCode >= 500 || srcErr.StatusCode == http.StatusTooManyRequests) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection refused", "connection reset", "server error", "rate limited", "no such host", "eof"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// IsNotFound reports whether err came from a 404 response.
func IsNotFound(err error) bool {
	var srcErr *domerrors.SourceError
	return errors.As(err, &srcErr) && srcErr.StatusCode == http.StatusNotFound
}

// statusLabel maps a request outcome to a metrics label.
func statusLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case IsNotFound(err):
		return "not_found"
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "timeout"
		}
		return "error"
	}
}
