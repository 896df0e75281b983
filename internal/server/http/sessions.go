package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/strandio/strand/internal/harness"
	"github.com/strandio/strand/internal/session"
)

// handleSessionStart ensures a harness session is running for the stream.
// The body, when present, carries the creation parameters used only if the
// stream has no durable SESSION_CREATE yet. Idempotent.
func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	stream := r.PathValue("stream")
	var params harness.CreateParams
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if err := s.sp.EnsureSession(r.Context(), stream, params); err != nil {
		if errors.Is(err, session.ErrAdapter) {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, map[string]any{"stream": stream, "running": true})
}

// handleSessionStop cancels the stream's adapter task, if any. The stream
// and its history stay intact.
func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	stream := r.PathValue("stream")
	stopped := s.sp.StopSession(stream)
	writeJSON(w, map[string]any{"stream": stream, "stopped": stopped})
}
