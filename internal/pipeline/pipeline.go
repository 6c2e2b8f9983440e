package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/akarpov/talknotes/internal/domain"

	"github.com/nats-io/nats.go"
)

// Runner executes the transcription -> summarization stages for a claimed
// recording. A non-nil error means the terminal state was not persisted
// and the message should be redelivered.
type Runner interface {
	Run(ctx context.Context, recordingID string) error
}

// FileCleaner removes stored audio older than maxAge, skipping any name
// present in inUse.
type FileCleaner interface {
	CleanupOlderThan(ctx context.Context, maxAge time.Duration, inUse map[string]bool) error
}

// RecordingLister supplies the audio refs that are still owned by a
// recording; only orphans may be cleaned up.
type RecordingLister interface {
	List(ctx context.Context) ([]domain.Recording, error)
}

const (
	StreamName   = "RECORDING_PIPELINE"
	consumerName = "recording-pipeline-consumer"
)

type natsWorkerPool struct {
	js              nats.JetStreamContext
	subject         string
	size            int
	runner          Runner
	runTimeout      time.Duration
	cleanupInterval time.Duration
	retention       time.Duration
	fileCleaner     FileCleaner
	recordings      RecordingLister

	started int
	done    chan struct{}
	sub     *nats.Subscription
}

func New(
	js nats.JetStreamContext,
	subject string,
	size int,
	runner Runner,
	runTimeout time.Duration,
	cleanupInterval time.Duration,
	retention time.Duration,
	fileCleaner FileCleaner,
	recordings RecordingLister,
) *natsWorkerPool {
	return &natsWorkerPool{
		js:              js,
		subject:         subject,
		size:            size,
		runner:          runner,
		runTimeout:      runTimeout,
		cleanupInterval: cleanupInterval,
		retention:       retention,
		fileCleaner:     fileCleaner,
		recordings:      recordings,
		done:            make(chan struct{}, size),
	}
}

func (p *natsWorkerPool) Run(ctx context.Context) error {
	_, err := p.js.AddConsumer(StreamName, &nats.ConsumerConfig{
		Durable:       consumerName,
		AckPolicy:     nats.AckExplicitPolicy,
		FilterSubject: p.subject,
		MaxAckPending: p.size * 2,
	})
	if err != nil && !errors.Is(err, nats.ErrConsumerNameAlreadyInUse) {
		return fmt.Errorf("JetStream AddConsumer: %w", err)
	}

	sub, err := p.js.PullSubscribe(p.subject, consumerName)
	if err != nil {
		return fmt.Errorf("JetStream PullSubscribe: %w", err)
	}
	p.sub = sub

	p.started = p.size
	for range p.size {
		go func() {
			defer func() { p.done <- struct{}{} }()
			p.runWorker(ctx)
		}()
	}

	slog.Info("pipeline workers running",
		slog.Int("workers", p.size),
		slog.String("subject", p.subject),
	)
	return nil
}

// Stop waits for the workers that actually launched; a pool whose Run
// failed has none and must not block shutdown.
func (p *natsWorkerPool) Stop(ctx context.Context) {
	<-ctx.Done()

	for range p.started {
		<-p.done
	}

	if p.sub != nil {
		if err := p.sub.Drain(); err != nil {
			slog.Warn("NATS subscription drain", slog.String("error", err.Error()))
		}
	}

	slog.Info("pipeline workers stopped")
}

func (p *natsWorkerPool) runWorker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("pipeline worker stopping")
			return
		default:
		}

		msgs, err := p.sub.Fetch(1, nats.Context(ctx))
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			slog.Warn("NATS Fetch", slog.String("error", err.Error()))
			time.Sleep(100 * time.Millisecond)
			continue
		}

		for _, msg := range msgs {
			recordingID := string(msg.Data)
			slog.Debug("got pipeline message", slog.String("recording_id", recordingID))

			runCtx, cancel := context.WithTimeout(ctx, p.runTimeout)
			err := p.runner.Run(runCtx, recordingID)
			cancel()

			if err != nil {
				slog.Error("pipeline run",
					slog.String("recording_id", recordingID),
					slog.String("error", err.Error()),
				)
				_ = msg.Nak()
				continue
			}

			if err := msg.Ack(); err != nil {
				slog.Warn("NATS Ack", slog.String("error", err.Error()))
			}
		}
	}
}

// StartCleanup periodically removes orphaned audio older than the
// retention window: objects whose recording was deleted but whose blob
// outlived it. Audio still referenced by a recording is never touched.
func (p *natsWorkerPool) StartCleanup(ctx context.Context) {
	if p.fileCleaner == nil || p.cleanupInterval <= 0 {
		return
	}

	ticker := time.NewTicker(p.cleanupInterval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := p.cleanupOrphans(ctx); err != nil && !errors.Is(err, context.Canceled) {
					slog.Warn("cleanup old audio", slog.String("error", err.Error()))
				}
			}
		}
	}()
}

func (p *natsWorkerPool) cleanupOrphans(ctx context.Context) error {
	recs, err := p.recordings.List(ctx)
	if err != nil {
		return fmt.Errorf("list recordings: %w", err)
	}

	inUse := make(map[string]bool, len(recs))
	for _, rec := range recs {
		inUse[rec.AudioRef] = true
	}

	return p.fileCleaner.CleanupOlderThan(ctx, p.retention, inUse)
}
