package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
)

// Notifier delivers a failure message to the user. Notify blocks until the
// message has been delivered.
type Notifier interface {
	Notify(ctx context.Context, sessionID uuid.UUID, message string)
}

// LogNotifier reports failures through the structured logger.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) Notify(_ context.Context, sessionID uuid.UUID, message string) {
	n.Log.Warn("prediction failed", "session_id", sessionID, "message", message)
}

// WriterNotifier prints failures to a terminal or other writer.
type WriterNotifier struct {
	W io.Writer
}

func (n WriterNotifier) Notify(_ context.Context, _ uuid.UUID, message string) {
	fmt.Fprintf(n.W, "error: %s\n", message) //nolint:errcheck // best-effort output
}
