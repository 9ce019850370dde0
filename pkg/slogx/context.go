package slogx

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// WithContext attaches logger to ctx. Services pick it up with FromContext
// so every line they write carries the request's attributes.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger attached to ctx, falling back to
// slog.Default for background work.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// With derives a context whose logger carries args in addition to
// whatever it already had.
func With(ctx context.Context, args ...any) context.Context {
	return WithContext(ctx, FromContext(ctx).With(args...))
}

// WithUser tags the request logger with the authenticated account, so
// login and factor changes can be traced per user.
func WithUser(ctx context.Context, userID string) context.Context {
	return With(ctx, slog.String("user_id", userID))
}
