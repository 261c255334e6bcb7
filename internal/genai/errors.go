package genai

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
)

var (
	// ErrEmptyQuestion is returned by Ask for a blank question.
	ErrEmptyQuestion = errors.New("genai: question is empty")

	// ErrEmptyAnswer is returned when a model replies with no text.
	ErrEmptyAnswer = errors.New("genai: model returned no text")

	// ErrNoProviders is returned when no provider has an API key.
	ErrNoProviders = errors.New("genai: no provider configured")
)

// ErrorAction is what the assistant does after a failed call.
type ErrorAction int

const (
	// ActionRetry retries the same model after a backoff.
	ActionRetry ErrorAction = iota
	// ActionFallback moves on to the next model in the chain.
	ActionFallback
	// ActionFail stops and returns the error.
	ActionFail
)

func (a ErrorAction) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionFallback:
		return "fallback"
	case ActionFail:
		return "fail"
	default:
		return "unknown"
	}
}

// LLMError records which provider and model failed, and the HTTP status
// when one is known.
type LLMError struct {
	Err        error
	Provider   Provider
	Model      string
	StatusCode int
}

func (e *LLMError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Provider))
	if e.Model != "" {
		b.WriteString("/")
		b.WriteString(e.Model)
	}
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	if e.StatusCode > 0 {
		b.WriteString(" (status: ")
		b.WriteString(strconv.Itoa(e.StatusCode))
		b.WriteString(")")
	}
	return b.String()
}

func (e *LLMError) Unwrap() error {
	return e.Err
}

// WrapError attaches provider and model to err. The status code is taken
// from an openai-go API error when present.
func WrapError(err error, provider Provider, model string) error {
	if err == nil {
		return nil
	}
	status := 0
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		status = apiErr.StatusCode
	}
	return &LLMError{Err: err, Provider: provider, Model: model, StatusCode: status}
}

// ClassifyError decides whether err is retried, falls back or fails.
//
//   - 429, 408, 409, 5xx, timeouts and network errors retry
//   - quota or billing exhaustion falls back
//   - other 4xx, cancellation and empty answers fail
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionFail
	}
	if errors.Is(err, context.Canceled) {
		return ActionFail
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ActionRetry
	}
	if errors.Is(err, ErrEmptyAnswer) {
		return ActionFallback
	}

	msg := strings.ToLower(err.Error())

	// Quota messages ride on 429s, so they are checked before the status.
	if containsAny(msg, "quota", "daily limit", "monthly limit", "billing") {
		return ActionFallback
	}

	var llmErr *LLMError
	if errors.As(err, &llmErr) && llmErr.StatusCode > 0 {
		return classifyStatusCode(llmErr.StatusCode)
	}

	switch {
	case containsAny(msg, "rate limit", "too many requests", "resource_exhausted", "429"):
		return ActionRetry
	case containsAny(msg, "unavailable", "internal server error", "bad gateway",
		"gateway timeout", "overloaded", "capacity", "500", "502", "503", "504"):
		return ActionRetry
	case containsAny(msg, "timeout", "deadline", "connection", "408", "409"):
		return ActionRetry
	case containsAny(msg, "401", "unauthorized", "unauthenticated", "api key",
		"403", "forbidden", "permission denied"):
		return ActionFail
	case containsAny(msg, "400", "bad request", "invalid", "malformed",
		"404", "not found", "422", "unprocessable"):
		return ActionFail
	default:
		return ActionRetry
	}
}

func classifyStatusCode(code int) ErrorAction {
	switch {
	case code == http.StatusTooManyRequests,
		code == http.StatusRequestTimeout,
		code == http.StatusConflict,
		code >= 500 && code < 600:
		return ActionRetry
	case code >= 400 && code < 500:
		return ActionFail
	default:
		return ActionRetry
	}
}

// ParseRetryAfter reads the server's requested delay from headers.
// It understands retry-after-ms, retry-after (seconds or HTTP date) and
// Groq's x-ratelimit-reset-requests. It returns 0 when none is usable.
func ParseRetryAfter(h http.Header) time.Duration {
	if v := h.Get("retry-after-ms"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	if v := h.Get("retry-after"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			return time.Duration(sec) * time.Second
		}
		if t, err := http.ParseTime(v); err == nil {
			if d := time.Until(t); d > 0 {
				return d
			}
		}
	}
	if v := h.Get("x-ratelimit-reset-requests"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return 0
}

// IsRetryable reports whether err is worth retrying on the same model.
func IsRetryable(err error) bool {
	return ClassifyError(err) == ActionRetry
}

// IsPermanent reports whether err should stop the whole chain.
func IsPermanent(err error) bool {
	return ClassifyError(err) == ActionFail
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
