package genai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestClassifyError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		expected ErrorAction
	}{
		{"nil error", nil, ActionFail},
		{"context canceled", context.Canceled, ActionFail},
		{"wrapped context canceled", fmt.Errorf("call: %w", context.Canceled), ActionFail},
		{"deadline exceeded", context.DeadlineExceeded, ActionRetry},
		{"empty answer", WrapError(ErrEmptyAnswer, ProviderGroq, "m"), ActionFallback},

		{"status 429", &LLMError{Err: errors.New("slow down"), Provider: ProviderGroq, StatusCode: http.StatusTooManyRequests}, ActionRetry},
		{"status 503", &LLMError{Err: errors.New("busy"), Provider: ProviderGroq, StatusCode: http.StatusServiceUnavailable}, ActionRetry},
		{"status 408", &LLMError{Err: errors.New("slow"), Provider: ProviderGroq, StatusCode: http.StatusRequestTimeout}, ActionRetry},
		{"status 400", &LLMError{Err: errors.New("nope"), Provider: ProviderGroq, StatusCode: http.StatusBadRequest}, ActionFail},
		{"status 401", &LLMError{Err: errors.New("who"), Provider: ProviderGroq, StatusCode: http.StatusUnauthorized}, ActionFail},
		{"status 404", &LLMError{Err: errors.New("gone"), Provider: ProviderGroq, StatusCode: http.StatusNotFound}, ActionFail},
		{"quota beats status", &LLMError{Err: errors.New("daily quota exceeded"), Provider: ProviderGroq, StatusCode: http.StatusTooManyRequests}, ActionFallback},

		{"quota message", errors.New("Quota exceeded for requests"), ActionFallback},
		{"billing message", errors.New("billing account disabled"), ActionFallback},
		{"rate limit message", errors.New("rate limit reached"), ActionRetry},
		{"resource exhausted", errors.New("Error 429, Status: RESOURCE_EXHAUSTED"), ActionRetry},
		{"overloaded", errors.New("model is overloaded"), ActionRetry},
		{"bad gateway", errors.New("502 Bad Gateway"), ActionRetry},
		{"connection reset", errors.New("read tcp: connection reset by peer"), ActionRetry},
		{"unauthorized", errors.New("401 Unauthorized"), ActionFail},
		{"invalid api key", errors.New("Invalid API Key"), ActionFail},
		{"forbidden", errors.New("permission denied"), ActionFail},
		{"model not found", errors.New("model not found"), ActionFail},
		{"unknown", errors.New("something odd"), ActionRetry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ClassifyError(tt.err); got != tt.expected {
				t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestErrorAction_String(t *testing.T) {
	t.Parallel()
	tests := map[ErrorAction]string{
		ActionRetry:     "retry",
		ActionFallback:  "fallback",
		ActionFail:      "fail",
		ErrorAction(42): "unknown",
	}
	for action, want := range tests {
		if got := action.String(); got != want {
			t.Errorf("ErrorAction(%d).String() = %q, want %q", action, got, want)
		}
	}
}

func TestLLMError(t *testing.T) {
	t.Parallel()

	base := errors.New("boom")
	err := &LLMError{Err: base, Provider: ProviderCerebras, Model: "llama-3.3-70b", StatusCode: 500}

	if got, want := err.Error(), "cerebras/llama-3.3-70b: boom (status: 500)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, base) {
		t.Error("LLMError should unwrap to the underlying error")
	}

	noStatus := &LLMError{Err: base, Provider: ProviderGemini}
	if got, want := noStatus.Error(), "gemini: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrapError(t *testing.T) {
	t.Parallel()

	if WrapError(nil, ProviderGroq, "m") != nil {
		t.Error("WrapError(nil) should be nil")
	}

	err := WrapError(errors.New("x"), ProviderGroq, "llama")
	var llmErr *LLMError
	if !errors.As(err, &llmErr) {
		t.Fatal("WrapError should return *LLMError")
	}
	if llmErr.Provider != ProviderGroq || llmErr.Model != "llama" || llmErr.StatusCode != 0 {
		t.Errorf("unexpected LLMError fields: %+v", llmErr)
	}
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		headers map[string]string
		want    time.Duration
	}{
		{"none", nil, 0},
		{"milliseconds", map[string]string{"retry-after-ms": "1500"}, 1500 * time.Millisecond},
		{"seconds", map[string]string{"retry-after": "3"}, 3 * time.Second},
		{"milliseconds win", map[string]string{"retry-after-ms": "200", "retry-after": "9"}, 200 * time.Millisecond},
		{"groq reset", map[string]string{"x-ratelimit-reset-requests": "2.5s"}, 2500 * time.Millisecond},
		{"garbage", map[string]string{"retry-after": "soon"}, 0},
		{"negative", map[string]string{"retry-after": "-1"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			if got := ParseRetryAfter(h); got != tt.want {
				t.Errorf("ParseRetryAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseRetryAfter_HTTPDate(t *testing.T) {
	t.Parallel()
	h := http.Header{}
	h.Set("retry-after", time.Now().Add(30*time.Second).UTC().Format(http.TimeFormat))

	got := ParseRetryAfter(h)
	if got <= 20*time.Second || got > 30*time.Second {
		t.Errorf("ParseRetryAfter() = %v, want about 30s", got)
	}
}

func TestIsRetryableIsPermanent(t *testing.T) {
	t.Parallel()
	if !IsRetryable(errors.New("503 service unavailable")) {
		t.Error("503 should be retryable")
	}
	if !IsPermanent(errors.New("403 forbidden")) {
		t.Error("403 should be permanent")
	}
	quota := errors.New("quota exceeded")
	if IsRetryable(quota) || IsPermanent(quota) {
		t.Error("quota should be neither retryable nor permanent")
	}
}
