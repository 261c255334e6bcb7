package logger

import (
	"context"
	"log/slog"

	"github.com/garyellow/campus-assist-go/internal/ctxutil"
)

// ContextHandler adds request_id, client_ip and route from the context to
// every record, so call sites only need slog.*Context.
type ContextHandler struct {
	handler slog.Handler
}

// NewContextHandler wraps handler.
func NewContextHandler(handler slog.Handler) *ContextHandler {
	return &ContextHandler{handler: handler}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		if id := ctxutil.GetRequestID(ctx); id != "" {
			r.AddAttrs(slog.String("request_id", id))
		}
		if ip := ctxutil.GetClientIP(ctx); ip != "" {
			r.AddAttrs(slog.String("client_ip", ip))
		}
		if route := ctxutil.GetRoute(ctx); route != "" {
			r.AddAttrs(slog.String("route", route))
		}
	}
	return h.handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{handler: h.handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{handler: h.handler.WithGroup(name)}
}
