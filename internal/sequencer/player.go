package sequencer

import "context"

// Player replays a precomputed schedule against a clock. Cancelling the
// context halts all pending events.
type Player struct {
	clock Clock
}

func NewPlayer(clock Clock) *Player {
	if clock == nil {
		clock = realClock{}
	}
	return &Player{clock: clock}
}

func (p *Player) Play(ctx context.Context, schedule []TimedEvent, emit func(Event)) error {
	for _, te := range schedule {
		if te.Delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-p.clock.After(te.Delay):
			}
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		emit(te.Event)
	}
	return nil
}
