package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithRequest returns a logger with request tracing fields attached.
// Use this for all logging within one chat turn so every line carries
// the correlation ID.
func WithRequest(correlationID, userID string) *slog.Logger {
	return slog.With(
		"correlation_id", correlationID,
		"user_id", userID,
	)
}

// WithConversation adds the conversation ID once it is known.
func WithConversation(logger *slog.Logger, conversationID string) *slog.Logger {
	return logger.With("conversation_id", conversationID)
}
