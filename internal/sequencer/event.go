package sequencer

import "time"

type EventKind string

const (
	EventLabel   EventKind = "label"
	EventContent EventKind = "content"
	EventChar    EventKind = "char"
	EventItem    EventKind = "item"
	EventError   EventKind = "error"
)

type Section string

const (
	SectionTranscript  Section = "transcript"
	SectionSummary     Section = "summary"
	SectionActionItems Section = "action_items"
	SectionKeyPoints   Section = "key_points"
)

// Event is one display event of a reveal sequence. The rendering surface
// is a pure projection of the emitted event log.
type Event struct {
	Kind    EventKind `json:"kind"`
	Section Section   `json:"section,omitempty"`
	Text    string    `json:"text"`
	Index   int       `json:"index,omitempty"`
}

// TimedEvent pairs an event with its delay relative to the previous one.
// A full schedule is computed up front so playback is deterministic and
// testable without wall-clock waits.
type TimedEvent struct {
	Delay time.Duration
	Event Event
}
