package httpserver

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/strandio/strand/internal/runtime"
	"github.com/strandio/strand/internal/session"
	"github.com/strandio/strand/internal/streams"
	logpkg "github.com/strandio/strand/pkg/log"
)

type Server struct {
	rt     *runtime.Runtime
	st     *streams.Service
	sp     *session.Supervisor
	logger logpkg.Logger
	srv    *http.Server
	lis    net.Listener
}

func New(rt *runtime.Runtime, st *streams.Service, sp *session.Supervisor, logger logpkg.Logger) *Server {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("http"))
	}
	mux := http.NewServeMux()
	s := &Server{rt: rt, st: st, sp: sp, logger: logger, srv: &http.Server{Handler: cors(mux)}}
	mux.HandleFunc("GET /v1/healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/streams", s.handleList)
	mux.HandleFunc("POST /v1/streams/{stream}/events", s.handleAppend)
	mux.HandleFunc("GET /v1/streams/{stream}/events", s.handleGetFrom)
	mux.HandleFunc("GET /v1/streams/{stream}/subscribe", s.handleSubscribeSSE)
	mux.HandleFunc("DELETE /v1/streams/{stream}", s.handleDeleteStream)
	mux.HandleFunc("POST /v1/streams/{stream}/session", s.handleSessionStart)
	mux.HandleFunc("DELETE /v1/streams/{stream}/session", s.handleSessionStop)
	return s
}

// Handler returns the root handler, CORS wrapper included. Used by tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.logger.Info("http.listening", logpkg.Str("addr", l.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.rt.CheckHealth(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "not_serving"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
