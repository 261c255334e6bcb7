// Package sentry reports errors to a Sentry-compatible backend such as
// Better Stack Errors, and provides the gin middleware that captures
// panics per request.
package sentry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/garyellow/campus-assist-go/internal/ctxutil"
)

// Config selects the backend. DSN wins over Token and Host.
type Config struct {
	DSN         string
	Token       string // Better Stack Errors application token
	Host        string // e.g. "errors.betterstack.com"
	Environment string
	Release     string
	SampleRate  float64 // 1.0 when <= 0
	Debug       bool
}

// Enabled reports whether the config names a backend.
func (c Config) Enabled() bool {
	return c.DSN != "" || c.Token != ""
}

// dsn builds https://TOKEN@HOST/1 for Better Stack; the project id is
// required by the SDK and ignored by the backend.
func (c Config) dsn() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	if c.Host == "" {
		return "", errors.New("sentry: host is required when token is set")
	}
	return fmt.Sprintf("https://%s@%s/1", c.Token, c.Host), nil
}

// Initialize configures the global hub. It is a no-op when cfg is not
// Enabled.
func Initialize(cfg Config) error {
	if !cfg.Enabled() {
		return nil
	}
	dsn, err := cfg.dsn()
	if err != nil {
		return err
	}
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = 1.0
	}
	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       rate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
		BeforeSend:       tagFromContext,
	})
}

// tagFromContext copies tracing values from the capture context onto the event.
func tagFromContext(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if hint == nil || hint.Context == nil {
		return event
	}
	if event.Tags == nil {
		event.Tags = map[string]string{}
	}
	if id := ctxutil.GetRequestID(hint.Context); id != "" {
		event.Tags["request_id"] = id
	}
	if route := ctxutil.GetRoute(hint.Context); route != "" {
		event.Tags["route"] = route
	}
	return event
}

// IsEnabled reports whether a client is bound to the current hub.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// Flush waits up to timeout for queued events.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// Middleware captures panics and attaches a per-request hub. Panics are
// re-raised for gin.Recovery to render the 500.
func Middleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// CaptureError reports err using the request's hub when there is one.
func CaptureError(ctx context.Context, err error) {
	if err == nil || !IsEnabled() {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if client := hub.Client(); client != nil {
		client.CaptureException(err, &sentry.EventHint{Context: ctx}, hub.Scope())
	}
}

// CaptureGinError reports err with the hub that Middleware stored on c.
func CaptureGinError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("route", c.FullPath())
			hub.CaptureException(err)
		})
		return
	}
	CaptureError(c.Request.Context(), err)
}
