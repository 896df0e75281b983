package httpserver

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/strandio/strand/internal/eventlog"
	"github.com/strandio/strand/internal/streams"
	logpkg "github.com/strandio/strand/pkg/log"
)

// maxEventBytes bounds a single appended event payload.
const maxEventBytes = 1 << 20

// handleAppend appends the request body as the stream's next event. The
// body must be a JSON value; the stream is created implicitly if needed.
func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	stream := r.PathValue("stream")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	if len(body) > maxEventBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "event too large")
		return
	}
	if !json.Valid(body) {
		writeError(w, http.StatusBadRequest, "body must be valid JSON")
		return
	}
	ev, err := s.st.Append(r.Context(), stream, body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(ev)
}

// handleGetFrom reads events after the given offset.
// Query params: from (offset, default start), limit, filter (CEL).
func (s *Server) handleGetFrom(w http.ResponseWriter, r *http.Request) {
	stream := r.PathValue("stream")
	from := eventlog.Offset(r.URL.Query().Get("from"))
	opts := streams.ReadOptions{
		Limit:  parseLimit(r.URL.Query().Get("limit")),
		Filter: r.URL.Query().Get("filter"),
	}
	evs, err := s.st.GetFrom(r.Context(), stream, from, opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	next := from
	if len(evs) > 0 {
		next = evs[len(evs)-1].Offset
	}
	writeJSON(w, struct {
		Stream     string          `json:"stream"`
		Events     []streams.Event `json:"events"`
		NextOffset string          `json:"nextOffset"`
	}{Stream: stream, Events: evs, NextOffset: string(next)})
}

// handleList lists all streams holding events.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	names, err := s.st.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list streams")
		return
	}
	writeJSON(w, map[string]any{"streams": names})
}

// handleDeleteStream removes a stream and everything attached to it.
// Deleting a stream that does not exist is a no-op, not an error.
func (s *Server) handleDeleteStream(w http.ResponseWriter, r *http.Request) {
	stream := r.PathValue("stream")
	if err := s.st.Delete(r.Context(), stream); err != nil {
		writeServiceError(w, err)
		return
	}
	s.logger.Debug("http.stream deleted", logpkg.Str("stream", stream))
	w.WriteHeader(http.StatusNoContent)
}
