package sequencer

import "time"

// Clock abstracts timer waits so playback can be driven by a fake clock in
// tests.
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
