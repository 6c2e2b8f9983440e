package sequencer

import (
	"sync"
	"testing"

	"github.com/akarpov/talknotes/internal/domain"
)

func TestReconcileTriggersOnce(t *testing.T) {
	seq := New(DefaultTiming())
	snap := completedSnapshot()

	first := seq.Reconcile(snap)
	if first == nil {
		t.Fatal("first terminal observation produced no schedule")
	}

	if again := seq.Reconcile(snap); again != nil {
		t.Error("repeated terminal observation must not re-trigger")
	}
}

func TestReconcileIgnoresNonTerminal(t *testing.T) {
	seq := New(DefaultTiming())

	for _, status := range []domain.Status{domain.StatusUploaded, domain.StatusProcessing} {
		snap := domain.StatusSnapshot{ID: "rec-1", Status: status}
		if got := seq.Reconcile(snap); got != nil {
			t.Errorf("status %s produced a schedule", status)
		}
	}

	// The non-terminal observations above must not consume the trigger.
	if got := seq.Reconcile(completedSnapshot()); got == nil {
		t.Error("terminal observation after processing produced no schedule")
	}
}

func TestReconcileTracksRecordingsIndependently(t *testing.T) {
	seq := New(DefaultTiming())

	a := completedSnapshot()
	a.ID = "rec-a"
	b := domain.StatusSnapshot{ID: "rec-b", Status: domain.StatusError, ErrorDetail: "transcription: boom"}

	if seq.Reconcile(a) == nil {
		t.Error("rec-a first observation produced no schedule")
	}
	if seq.Reconcile(b) == nil {
		t.Error("rec-b first observation produced no schedule")
	}
	if seq.Reconcile(a) != nil || seq.Reconcile(b) != nil {
		t.Error("repeat observations re-triggered")
	}
}

func TestReconcileRetriggersAfterReprocess(t *testing.T) {
	seq := New(DefaultTiming())

	errored := domain.StatusSnapshot{ID: "rec-1", Status: domain.StatusError, ErrorDetail: "transcription: boom"}
	if seq.Reconcile(errored) == nil {
		t.Fatal("error transition produced no schedule")
	}
	if seq.Reconcile(errored) != nil {
		t.Fatal("repeated error observation re-triggered")
	}

	// A reprocess moves the recording back to processing; the next
	// terminal transition is a new reveal.
	processing := domain.StatusSnapshot{ID: "rec-1", Status: domain.StatusProcessing}
	if seq.Reconcile(processing) != nil {
		t.Fatal("processing observation produced a schedule")
	}

	done := completedSnapshot()
	done.ID = "rec-1"
	if seq.Reconcile(done) == nil {
		t.Error("terminal transition after reprocess produced no schedule")
	}
	if seq.Reconcile(done) != nil {
		t.Error("repeated completed observation re-triggered")
	}
}

func TestReconcileConcurrentObservers(t *testing.T) {
	seq := New(DefaultTiming())
	snap := completedSnapshot()

	const observers = 32
	results := make(chan bool, observers)

	var wg sync.WaitGroup
	for i := 0; i < observers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- seq.Reconcile(snap) != nil
		}()
	}
	wg.Wait()
	close(results)

	triggered := 0
	for ok := range results {
		if ok {
			triggered++
		}
	}
	if triggered != 1 {
		t.Errorf("%d observers triggered, want exactly 1", triggered)
	}
}
