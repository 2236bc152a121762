// Package logging defines the structured logger used across the client.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// Variadic args are key–value pairs:
//
//	log.Info(ctx, "vote submitted", "poll_id", pollID, "request_id", reqID)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}
