package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/akarpov/talknotes/internal/sequencer"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// events upgrades to a WebSocket and replays the reveal sequence once the
// recording reaches a terminal state. Closing the socket cancels the
// subscription and halts any pending reveal events.
func (h *handler) events(w http.ResponseWriter, r *http.Request, id string) {
	logger := requestLogger(r, "events").With(slog.String("recording_id", id))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The read loop exists only to notice the client going away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	emit := func(ev sequencer.Event) {
		if err := conn.WriteJSON(ev); err != nil {
			logger.Debug("websocket write", slog.String("error", err.Error()))
			cancel()
		}
	}

	for obs := range h.subscriber.Subscribe(ctx, id) {
		if obs.Err != nil {
			logger.Warn("observation failed", slog.String("error", obs.Err.Error()))
			emit(sequencer.ObservationErrorEvent(obs.Err))
			return
		}

		schedule := h.seq.Reconcile(obs.Snapshot)
		if schedule == nil {
			continue
		}

		if err := h.player.Play(ctx, schedule, emit); err != nil {
			logger.Debug("reveal cancelled", slog.String("error", err.Error()))
		}
		return
	}
}
