// Package logging is the structured logger of instalatrack: a small
// context-aware interface, a log/slog implementation and the handler setup
// driven by config.
package logging

import "context"

// Logger takes key-value pairs after the message:
//
//	log.Info(ctx, "installation synced", "installation_id", id, "revision", rev)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	// Warn is for degraded but recoverable paths, such as a push that went
	// to the replay queue.
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	With(args ...any) Logger
}
