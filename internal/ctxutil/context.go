// Package ctxutil stores per-request tracing values in a context.
// Keys are unexported so other packages cannot collide with them.
package ctxutil

import (
	"context"
)

type contextKey string

const (
	requestIDKey contextKey = "ctxutil.requestID"
	clientIPKey  contextKey = "ctxutil.clientIP"
	routeKey     contextKey = "ctxutil.route"
)

// WithRequestID returns ctx carrying the request ID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request ID, or "" when none is set.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithClientIP returns ctx carrying the caller's IP address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// GetClientIP returns the caller's IP address, or "".
func GetClientIP(ctx context.Context) string {
	return stringValue(ctx, clientIPKey)
}

// WithRoute returns ctx carrying the matched route pattern, e.g. "/api/v1/:kind".
func WithRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeKey, route)
}

// GetRoute returns the matched route pattern, or "".
func GetRoute(ctx context.Context) string {
	return stringValue(ctx, routeKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// Detach returns a background context that keeps only the tracing values
// of ctx. Use it for work that must outlive the request, such as a
// refresh kicked off by a handler.
func Detach(ctx context.Context) context.Context {
	out := context.Background()
	if id := GetRequestID(ctx); id != "" {
		out = WithRequestID(out, id)
	}
	if ip := GetClientIP(ctx); ip != "" {
		out = WithClientIP(out, ip)
	}
	if route := GetRoute(ctx); route != "" {
		out = WithRoute(out, route)
	}
	return out
}
