package sequencer

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock hands out channels it can fire on demand, so playback tests
// never sleep.
type fakeClock struct {
	waits chan chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{waits: make(chan chan time.Time, 64)}
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	c.waits <- ch
	return ch
}

func (c *fakeClock) fire(t *testing.T) {
	t.Helper()
	select {
	case ch := <-c.waits:
		ch <- time.Now()
	case <-time.After(time.Second):
		t.Fatal("no pending wait to fire")
	}
}

func TestPlayerPlaysInOrder(t *testing.T) {
	clock := newFakeClock()
	player := NewPlayer(clock)

	schedule := []TimedEvent{
		{Event: Event{Kind: EventLabel, Text: "a"}},
		{Delay: time.Second, Event: Event{Kind: EventContent, Text: "b"}},
		{Delay: time.Second, Event: Event{Kind: EventContent, Text: "c"}},
	}

	var got []string
	done := make(chan error, 1)
	go func() {
		done <- player.Play(context.Background(), schedule, func(ev Event) {
			got = append(got, ev.Text)
		})
	}()

	clock.fire(t)
	clock.fire(t)

	if err := <-done; err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("emitted %v, want [a b c]", got)
	}
}

func TestPlayerCancelHaltsPendingEvents(t *testing.T) {
	clock := newFakeClock()
	player := NewPlayer(clock)

	schedule := []TimedEvent{
		{Event: Event{Kind: EventLabel, Text: "a"}},
		{Delay: time.Second, Event: Event{Kind: EventContent, Text: "b"}},
		{Delay: time.Second, Event: Event{Kind: EventContent, Text: "c"}},
	}

	ctx, cancel := context.WithCancel(context.Background())

	var got []string
	done := make(chan error, 1)
	go func() {
		done <- player.Play(ctx, schedule, func(ev Event) {
			got = append(got, ev.Text)
		})
	}()

	clock.fire(t)
	// "a" and "b" are out; cancel while waiting for "c".
	for len(clock.waits) == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Play error = %v, want context.Canceled", err)
	}
	if len(got) != 2 {
		t.Errorf("emitted %v after cancel, want exactly [a b]", got)
	}
}

func TestPlayerCancelBeforeStart(t *testing.T) {
	player := NewPlayer(newFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := player.Play(ctx, []TimedEvent{{Event: Event{Kind: EventLabel, Text: "a"}}}, func(Event) {
		t.Error("emit called after cancellation")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Play error = %v, want context.Canceled", err)
	}
}

func TestPlayerNilClockDefaultsToRealClock(t *testing.T) {
	player := NewPlayer(nil)

	var got []Event
	err := player.Play(context.Background(), []TimedEvent{
		{Event: Event{Kind: EventLabel, Text: "a"}},
		{Delay: time.Millisecond, Event: Event{Kind: EventContent, Text: "b"}},
	}, func(ev Event) {
		got = append(got, ev)
	})
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("emitted %d events, want 2", len(got))
	}
}
