// Package logging is the structured logger every component receives. The
// only backend is log/slog (see New).
package logging

import "context"

// Logger takes a message plus alternating key/value pairs:
//
//	logger.Info(ctx, "cart migrated", "userType", "client", "lines", 3)
//
// Components derive a child with With("module", name) at construction.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	// Warn is used for recoverable data problems, such as a persisted value
	// that failed to decode and was dropped.
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
	With(args ...any) Logger
}
