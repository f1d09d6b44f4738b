package redesign

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"roomStylerAi/internal/events"
	"roomStylerAi/internal/logger"
)

const keepAliveInterval = 15 * time.Second

// StreamEvents handles GET /api/sessions/{id}/events as Server-Sent Events.
// The current state is sent first, followed by every change of the loading veil.
func (h Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	if h.Events == nil {
		http.Error(w, "event stream inactive", http.StatusServiceUnavailable)
		return
	}
	ctrl, ok := h.lookup(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ch := h.Events.Subscribe(ctrl.ID())
	defer h.Events.Unsubscribe(ch)
	logger.InfoWithFields("event stream opened", logger.Fields{
		"session_id":  ctrl.ID(),
		"subscribers": h.Events.Subscribers(ctrl.ID()),
	})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	snap := ctrl.Snapshot()
	if err := writeEvent(w, "state", events.Event{
		SessionID: snap.ID,
		Step:      string(snap.Step),
		Loading:   snap.Loading,
		Status:    snap.LoadingMessage,
		Error:     snap.Error,
	}); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case evt, open := <-ch:
			if !open {
				return
			}
			if err := writeEvent(w, "state", evt); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, evt events.Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
