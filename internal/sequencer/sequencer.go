package sequencer

import (
	"sync"

	"github.com/akarpov/talknotes/internal/domain"
)

// Sequencer reconciles repeated status observations into at most one
// reveal sequence per recording: the sequence triggers exactly once, on the
// transition into a terminal state. Snapshots that still report processing
// produce nothing.
type Sequencer struct {
	timing Timing

	mu        sync.Mutex
	triggered map[string]bool
}

func New(timing Timing) *Sequencer {
	return &Sequencer{
		timing:    timing,
		triggered: make(map[string]bool),
	}
}

// Reconcile returns the schedule to play if this snapshot is the first
// observation of its recording's current terminal transition, and nil
// otherwise. Observing a non-terminal status re-arms the trigger: a
// reprocess that moves error -> processing -> completed reveals again.
func (s *Sequencer) Reconcile(snap domain.StatusSnapshot) []TimedEvent {
	s.mu.Lock()
	if !domain.Terminal(snap.Status) {
		delete(s.triggered, snap.ID)
		s.mu.Unlock()
		return nil
	}

	already := s.triggered[snap.ID]
	if !already {
		s.triggered[snap.ID] = true
	}
	s.mu.Unlock()

	if already {
		return nil
	}

	return BuildSchedule(snap, s.timing)
}
