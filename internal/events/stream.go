package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// StreamHandler exposes the bus as server-sent events. A client that names a session (via
// ?session= or the session header) only receives that session's events.
type StreamHandler struct {
	bus       *Bus
	logger    *slog.Logger
	heartbeat time.Duration
	sessionOf func(*http.Request) string
}

func NewStreamHandler(bus *Bus, logger *slog.Logger, heartbeat time.Duration, sessionOf func(*http.Request) string) *StreamHandler {
	return &StreamHandler{
		bus:       bus,
		logger:    logger,
		heartbeat: heartbeat,
		sessionOf: sessionOf,
	}
}

func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// The stream outlives the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" && h.sessionOf != nil {
		sessionID = h.sessionOf(r)
	}

	events, cancel := h.bus.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		h.logger.Error("streaming unsupported", "error", err)
		return
	}

	h.logger.Info("event stream opened", "session_id", sessionID)
	defer h.logger.Info("event stream closed", "session_id", sessionID)

	var tick <-chan time.Time
	if h.heartbeat > 0 {
		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-tick:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			_ = rc.Flush()
		case e, ok := <-events:
			if !ok {
				return
			}
			// Session-scoped events only reach that session; a client without one sees global events only.
			if e.SessionID != "" && e.SessionID != sessionID {
				continue
			}
			data, err := json.Marshal(e)
			if err != nil {
				h.logger.Error("failed to encode event", "error", err, "kind", e.Kind)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Kind, data); err != nil {
				return
			}
			_ = rc.Flush()
		}
	}
}
