package sequencer

import (
	"context"
	"time"

	"github.com/akarpov/talknotes/internal/domain"
)

// Observer reports the current state of a recording without mutating it.
type Observer interface {
	Observe(ctx context.Context, recordingID string) (domain.StatusSnapshot, error)
}

// Observation is one element of a subscription stream. Err is a terminal
// local failure of the observation itself: the stream ends after it and is
// never retried here.
type Observation struct {
	Snapshot domain.StatusSnapshot
	Err      error
}

const DefaultPollInterval = 2 * time.Second

// Poller is the polling implementation of the subscription contract. A
// push transport can satisfy the same contract without a ticker.
type Poller struct {
	observer Observer
	interval time.Duration
}

func NewPoller(observer Observer, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{observer: observer, interval: interval}
}

// Subscribe polls on a fixed interval and sends every snapshot until a
// terminal status is observed, the observation fails, or the context is
// cancelled. The channel is closed when polling stops; no orphaned loops
// remain.
func (p *Poller) Subscribe(ctx context.Context, recordingID string) <-chan Observation {
	ch := make(chan Observation)

	go func() {
		defer close(ch)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			snap, err := p.observer.Observe(ctx, recordingID)
			if err != nil {
				select {
				case ch <- Observation{Err: err}:
				case <-ctx.Done():
				}
				return
			}

			select {
			case ch <- Observation{Snapshot: snap}:
			case <-ctx.Done():
				return
			}

			if domain.Terminal(snap.Status) {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return ch
}
