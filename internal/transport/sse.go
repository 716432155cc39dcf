package transport

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cloi-dev/hub/internal/hubcore"
	"github.com/cloi-dev/hub/internal/router"
)

// handleSSEStream serves an identity's outbox as a Server-Sent Events
// stream, for clients that cannot hold a WebSocket open. It connects
// identity to the router, reusing an existing outbox or creating one,
// so an HTTP-only client can still receive broadcasts; the identity is
// disconnected when the stream ends.
func (s *Server) handleSSEStream(w http.ResponseWriter, req *http.Request) {
	identity := chi.URLParam(req, "identity")
	if identity == "" {
		http.Error(w, "identity is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ob := s.deps.Router.Connect(identity, router.Policy{})
	defer s.deps.Router.Disconnect(identity)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx := req.Context()
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ob.Notify():
			writeSSEBatch(w, flusher, ob.Drain())
		case <-ticker.C:
			writeSSEBatch(w, flusher, ob.Drain())
			_, _ = w.Write([]byte(": keep-alive\n\n"))
			flusher.Flush()
		}
	}
}

func writeSSEBatch(w http.ResponseWriter, flusher http.Flusher, msgs []hubcore.Message) {
	if len(msgs) == 0 {
		return
	}
	for _, m := range msgs {
		writeSSEEvent(w, flusher, m)
	}
}

// writeSSEEvent frames v as a single Server-Sent Event: an id line
// carrying the millisecond-epoch send time, then a data line carrying
// v as JSON, per the hub's wire format. There is no event: line;
// clients dispatch on the JSON payload's own shape.
func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_, _ = w.Write([]byte("id: "))
	_, _ = w.Write([]byte(strconv.FormatInt(time.Now().UnixMilli(), 10)))
	_, _ = w.Write([]byte("\ndata: "))
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n\n"))
	flusher.Flush()
}
