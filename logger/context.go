package logger

import (
	"context"
	"log/slog"
)

type requestIDKey struct{}

// WithRequestID tags ctx so log lines written for it carry the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// FromContext returns the package logger, annotated with the request id of
// ctx when there is one.
func FromContext(ctx context.Context) *slog.Logger {
	if id := RequestID(ctx); id != "" {
		return Logger.With("request_id", id)
	}
	return Logger
}
