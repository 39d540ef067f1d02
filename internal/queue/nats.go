package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// NewNATS constructs a thin NATS-based request/reply queue.
func NewNATS(log *slog.Logger, nc *nats.Conn) Queue {
	return &natsQueue{log: log, nc: nc}
}

type natsQueue struct {
	log *slog.Logger
	nc  *nats.Conn
}

func (q *natsQueue) Request(ctx context.Context, subject string, data []byte) ([]byte, error) {
	msg, err := q.nc.RequestWithContext(ctx, subject, data)
	if errors.Is(err, nats.ErrNoResponders) {
		return nil, fmt.Errorf("%s: %w", subject, ErrNoResponders)
	}
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", subject, err)
	}
	return msg.Data, nil
}

func (q *natsQueue) Serve(ctx context.Context, subject string, handler Handler) error {
	group := "workers-" + subject
	sub, err := q.nc.QueueSubscribe(subject, group, func(msg *nats.Msg) {
		reply := handler(ctx, msg.Data)
		if err := msg.Respond(reply); err != nil {
			q.log.Error("failed to send reply", "subject", subject, "err", err)
		}
	})
	if err != nil {
		return err
	}
	q.log.Info("serving", "subject", subject, "group", group)
	<-ctx.Done()
	return sub.Unsubscribe()
}

func (q *natsQueue) Close() {
	q.nc.Close()
}
