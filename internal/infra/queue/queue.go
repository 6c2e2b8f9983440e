package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

type queue struct {
	js      nats.JetStreamContext
	subject string
}

func New(js nats.JetStreamContext, subject string) *queue {
	return &queue{
		js:      js,
		subject: subject,
	}
}

func (q *queue) Enqueue(ctx context.Context, recordingID string) error {
	if recordingID == "" {
		return fmt.Errorf("empty recordingID")
	}

	msg := &nats.Msg{
		Subject: q.subject,
		Data:    []byte(recordingID),
		Header:  nats.Header{},
	}

	ack, err := q.js.PublishMsg(msg)
	if err != nil {
		return fmt.Errorf("enqueue recording %s: publish failed: %w", recordingID, err)
	}

	slog.Debug(
		"recording enqueued",
		slog.String("recording_id", recordingID),
		slog.String("subject", q.subject),
		slog.String("stream", ack.Stream),
		slog.Uint64("seq", ack.Sequence),
	)

	return nil
}
