package sequencer

import (
	"time"

	"github.com/akarpov/talknotes/internal/domain"
)

const (
	labelTranscript  = "Transcript"
	labelSummary     = "Summary"
	labelActionItems = "Action items"
	labelKeyPoints   = "Key points"

	genericErrorText = "Processing failed. Please try again."
)

// Timing controls the cadence of a reveal sequence.
type Timing struct {
	// CharInterval is the delay between simulated summary characters.
	CharInterval time.Duration
	// ItemDelay staggers action items and key points: item n appears at
	// n times this delay after its group label.
	ItemDelay time.Duration
	// GroupPause separates the groups.
	GroupPause time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		CharInterval: 30 * time.Millisecond,
		ItemDelay:    500 * time.Millisecond,
		GroupPause:   time.Second,
	}
}

// BuildSchedule converts a terminal snapshot into the fixed reveal order:
// transcript as one unit, summary as a simulated character stream followed
// by the final text (which replaces the streamed fragment), then staggered
// action items, then staggered key points. An error snapshot yields a
// single error event.
func BuildSchedule(snap domain.StatusSnapshot, timing Timing) []TimedEvent {
	if snap.Status == domain.StatusError {
		text := snap.ErrorDetail
		if text == "" {
			text = genericErrorText
		}
		return []TimedEvent{{Event: Event{Kind: EventError, Text: text}}}
	}

	var schedule []TimedEvent

	schedule = append(schedule,
		TimedEvent{Event: Event{Kind: EventLabel, Section: SectionTranscript, Text: labelTranscript}},
		TimedEvent{Event: Event{Kind: EventContent, Section: SectionTranscript, Text: snap.Transcript}},
		TimedEvent{Event: Event{Kind: EventLabel, Section: SectionSummary, Text: labelSummary}},
	)

	var content string
	var actionItems, keyPoints []string
	if snap.Summary != nil {
		content = snap.Summary.Content
		actionItems = snap.Summary.ActionItems
		keyPoints = snap.Summary.KeyPoints
	}

	streamed := ""
	for _, r := range content {
		streamed += string(r)
		schedule = append(schedule, TimedEvent{
			Delay: timing.CharInterval,
			Event: Event{Kind: EventChar, Section: SectionSummary, Text: streamed},
		})
	}
	schedule = append(schedule, TimedEvent{
		Delay: timing.CharInterval,
		Event: Event{Kind: EventContent, Section: SectionSummary, Text: content},
	})

	if len(actionItems) > 0 {
		schedule = append(schedule, TimedEvent{
			Delay: timing.GroupPause,
			Event: Event{Kind: EventLabel, Section: SectionActionItems, Text: labelActionItems},
		})
		for i, item := range actionItems {
			schedule = append(schedule, TimedEvent{
				Delay: timing.ItemDelay,
				Event: Event{Kind: EventItem, Section: SectionActionItems, Text: item, Index: i + 1},
			})
		}
	}

	if len(keyPoints) > 0 {
		schedule = append(schedule, TimedEvent{
			Delay: timing.GroupPause,
			Event: Event{Kind: EventLabel, Section: SectionKeyPoints, Text: labelKeyPoints},
		})
		for i, point := range keyPoints {
			schedule = append(schedule, TimedEvent{
				Delay: timing.ItemDelay,
				Event: Event{Kind: EventItem, Section: SectionKeyPoints, Text: point, Index: i + 1},
			})
		}
	}

	return schedule
}

// ObservationErrorEvent is the terminal local error surfaced when the
// status observation itself fails, as opposed to the pipeline failing.
func ObservationErrorEvent(err error) Event {
	text := "status check failed"
	if err != nil {
		text += ": " + err.Error()
	}
	return Event{Kind: EventError, Text: text}
}
