package queue

import (
	"context"
	"errors"
	"time"

	"qna-agents/internal/retry"
)

// Handler answers one request. The returned bytes are sent back as the reply.
type Handler func(ctx context.Context, data []byte) []byte

// Queue is a minimal request/reply transport between the API and inference workers.
type Queue interface {
	Request(ctx context.Context, subject string, data []byte) ([]byte, error)
	// Serve answers requests on subject until ctx is done. Replicas sharing a
	// subject split the load.
	Serve(ctx context.Context, subject string, handler Handler) error
	Close()
}

// ErrNoResponders means nothing is subscribed to the subject yet.
var ErrNoResponders = errors.New("no responders")

// RequestWithRetry retries only while no worker is listening, with exponential backoff.
// Any other failure, including a timeout from a busy worker, is returned immediately.
func RequestWithRetry(ctx context.Context, q Queue, subject string, data []byte, attempts int, base time.Duration) ([]byte, error) {
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		reply, err := q.Request(ctx, subject, data)
		if err == nil {
			return reply, nil
		}
		if !errors.Is(err, ErrNoResponders) {
			return nil, err
		}
		lastErr = err
		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retry.CappedBackoff(attempt, base, 10*time.Second)):
		}
	}
	return nil, lastErr
}
