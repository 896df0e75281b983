package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/strandio/strand/internal/eventlog"
	"github.com/strandio/strand/internal/streams"
	logpkg "github.com/strandio/strand/pkg/log"
)

// sseSink writes the two frame types of the subscribe endpoint: "event"
// frames carrying one stream event with its offset as the SSE id, and
// "control" frames advertising the stream head so clients can tell whether
// they are caught up.
type sseSink struct {
	w http.ResponseWriter
	f http.Flusher
}

func (s sseSink) sendEvent(ev streams.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "id: %s\nevent: event\ndata: %s\n\n", ev.Offset, b); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

func (s sseSink) sendControl(next eventlog.Offset, upToDate bool) error {
	b, _ := json.Marshal(map[string]any{
		"streamNextOffset": string(next),
		"upToDate":         upToDate,
	})
	if _, err := fmt.Fprintf(s.w, "event: control\ndata: %s\n\n", b); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// caughtUp reports whether the last delivered offset has reached the stream
// head. The START alias resolves to the canonical empty token first so it
// never compares at or past a real offset.
func caughtUp(lastSent, next eventlog.Offset) bool {
	if lastSent.IsStart() {
		lastSent = eventlog.Start
	}
	return lastSent >= next
}

// handleSubscribeSSE streams events over SSE, replay-then-live, from the
// offset in the "from" query param (exclusive). Control frames are emitted
// on a heartbeat so idle connections stay warm and clients can detect
// catch-up. The response ends when the client goes away or the stream is
// deleted.
func (s *Server) handleSubscribeSSE(w http.ResponseWriter, r *http.Request) {
	stream := r.PathValue("stream")
	from := eventlog.Offset(r.URL.Query().Get("from"))
	if from == "" {
		// reconnecting EventSource clients resume via Last-Event-ID
		from = eventlog.Offset(r.Header.Get("Last-Event-ID"))
	}
	filter := r.URL.Query().Get("filter")
	if len(filter) > 2048 {
		writeError(w, http.StatusBadRequest, "filter too long")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	sub, err := s.st.Subscribe(r.Context(), stream, from, streams.SubscribeOptions{Filter: filter})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher.Flush()

	heartbeat := time.Duration(s.rt.Config().HeartbeatMs) * time.Millisecond
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	sink := sseSink{w: w, f: flusher}
	lastSent := from
	for {
		select {
		case ev, open := <-sub.Events():
			if !open {
				if err := sub.Err(); err != nil && !errors.Is(err, streams.ErrStreamDeleted) {
					s.logger.Warn("http.subscribe ended",
						logpkg.Str("stream", stream), logpkg.Err(err))
				}
				return
			}
			if err := sink.sendEvent(ev); err != nil {
				return
			}
			lastSent = ev.Offset
		case <-ticker.C:
			next, err := s.st.LastOffset(stream)
			if err != nil {
				return
			}
			if err := sink.sendControl(next, caughtUp(lastSent, next)); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
