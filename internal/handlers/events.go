package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pantrywatch/pantry-api/internal/notify"
	"go.uber.org/zap"
)

// keepAliveInterval is how often an SSE comment is written to hold idle
// connections open through proxies.
const keepAliveInterval = 25 * time.Second

// EventsHandler streams inventory change notifications over server-sent
// events. Reconnecting clients are expected to re-fetch full state; the
// stream carries changes, not history.
type EventsHandler struct {
	notifier *notify.Notifier
	logger   *zap.Logger
}

// NewEventsHandler creates a new SSE events handler
func NewEventsHandler(notifier *notify.Notifier, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{notifier: notifier, logger: logger}
}

// Stream handles GET /events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	sub := h.notifier.Subscribe()
	defer sub.Close()

	// Initial comment confirms the stream is open before any event fires
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	h.logger.Debug("sse_subscriber_connected",
		zap.Int("subscriber_count", h.notifier.SubscriberCount()),
	)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case event, open := <-sub.C:
			if !open {
				// Notifier shut down
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed_to_encode_event", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
			flusher.Flush()
		}
	}
}
