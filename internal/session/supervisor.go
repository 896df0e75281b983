package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/strandio/strand/internal/eventlog"
	"github.com/strandio/strand/internal/harness"
	"github.com/strandio/strand/internal/streams"
	logpkg "github.com/strandio/strand/pkg/log"
)

// ErrAdapter wraps harness construction failures surfaced by EnsureSession.
var ErrAdapter = errors.New("session: harness adapter failure")

// Supervisor maintains the invariant of at most one running adapter per
// stream. It is safe for concurrent use.
type Supervisor struct {
	streams *streams.Service
	factory harness.Factory
	logger  logpkg.Logger

	mu       sync.Mutex
	adapters map[string]*adapter
	pending  map[string]*creation
}

// creation tracks one in-flight EnsureSession so concurrent callers for the
// same stream share its outcome instead of racing.
type creation struct {
	done chan struct{}
	err  error
}

// New constructs a Supervisor and hooks stream deletion so a deleted
// stream's adapter is stopped before its storage goes away.
func New(svc *streams.Service, factory harness.Factory, logger logpkg.Logger) *Supervisor {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("session"))
	}
	s := &Supervisor{
		streams:  svc,
		factory:  factory,
		logger:   logger,
		adapters: map[string]*adapter{},
		pending:  map[string]*creation{},
	}
	svc.OnDelete(func(stream string) { s.StopSession(stream) })
	return s
}

// EnsureSession guarantees a running adapter for the stream. Idempotent: a
// stream with a live adapter returns immediately, and concurrent calls for
// the same stream perform the startup once and share its result. When it
// returns nil the adapter's subscription is already live, so an input event
// appended afterwards is always observed.
func (s *Supervisor) EnsureSession(ctx context.Context, stream string, params harness.CreateParams) error {
	s.mu.Lock()
	if _, ok := s.adapters[stream]; ok {
		s.mu.Unlock()
		return nil
	}
	if c, ok := s.pending[stream]; ok {
		s.mu.Unlock()
		select {
		case <-c.done:
			return c.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c := &creation{done: make(chan struct{})}
	s.pending[stream] = c
	s.mu.Unlock()

	err := s.start(ctx, stream, params)

	s.mu.Lock()
	delete(s.pending, stream)
	s.mu.Unlock()
	c.err = err
	close(c.done)
	return err
}

// start performs the session startup sequence: replay durable history,
// construct the harness, re-enqueue unanswered prompts, then subscribe from
// the last replayed offset and register the adapter.
func (s *Supervisor) start(ctx context.Context, stream string, params harness.CreateParams) error {
	history, err := s.streams.GetFrom(ctx, stream, eventlog.Start, streams.ReadOptions{})
	if err != nil {
		return err
	}

	createParams, createIdx := findCreate(history)
	lastOffset := eventlog.Start
	if n := len(history); n > 0 {
		lastOffset = history[n-1].Offset
	}
	if createIdx < 0 {
		// first attach: record creation parameters durably before anything else
		createParams = params
		if createParams.SessionID == "" {
			createParams.SessionID = uuid.NewString()
		}
		ev, err := s.streams.Append(ctx, stream, NewCreateEnvelope(createParams))
		if err != nil {
			return err
		}
		lastOffset = ev.Offset
	}

	h, err := s.factory.New(ctx, createParams)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAdapter, err)
	}
	a := newAdapter(stream, h, s.streams, s.logger)

	replayed := 0
	for _, ev := range history[createIdx+1:] {
		env := DecodeEnvelope(ev.Data)
		if env.Type != KindPrompt {
			continue
		}
		var p PromptPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			continue
		}
		a.prompts.push(p.Content)
		replayed++
	}
	if replayed > 0 {
		// replayed prompts run again; harnesses answering them idempotently
		// will re-emit their turns into the stream
		s.logger.Warn("session.replaying prompts",
			logpkg.Str("stream", stream), logpkg.Int("count", replayed))
	}

	sub, err := s.streams.Subscribe(a.ctx, stream, lastOffset, streams.SubscribeOptions{})
	if err != nil {
		a.cancel()
		_ = h.Close()
		return err
	}

	s.mu.Lock()
	s.adapters[stream] = a
	s.mu.Unlock()
	go a.run(sub)
	go func() {
		<-a.done
		s.mu.Lock()
		if s.adapters[stream] == a {
			delete(s.adapters, stream)
		}
		s.mu.Unlock()
	}()

	s.logger.Info("session.started",
		logpkg.Str("stream", stream),
		logpkg.Str("session_id", createParams.SessionID),
		logpkg.Int("history", len(history)),
	)
	return nil
}

// findCreate returns the parameters of the first SESSION_CREATE event and
// its index, or a negative index when the history holds none. Durable
// parameters always win over whatever the caller passed.
func findCreate(history []streams.Event) (harness.CreateParams, int) {
	for i, ev := range history {
		env := DecodeEnvelope(ev.Data)
		if env.Type != KindSessionCreate {
			continue
		}
		var p harness.CreateParams
		_ = json.Unmarshal(env.Payload, &p)
		return p, i
	}
	return harness.CreateParams{}, -1
}

// StopSession cancels the stream's adapter and waits for it to finish.
// Reports whether an adapter was running.
func (s *Supervisor) StopSession(stream string) bool {
	s.mu.Lock()
	a, ok := s.adapters[stream]
	if ok {
		delete(s.adapters, stream)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	a.cancel()
	<-a.done
	s.logger.Info("session.stopped", logpkg.Str("stream", stream))
	return true
}

// Running reports whether the stream currently has a live adapter.
func (s *Supervisor) Running(stream string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.adapters[stream]
	return ok
}

// Sessions returns the streams with live adapters.
func (s *Supervisor) Sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.adapters))
	for name := range s.adapters {
		out = append(out, name)
	}
	return out
}

// Close stops every running adapter. Used on server shutdown.
func (s *Supervisor) Close() {
	for _, name := range s.Sessions() {
		s.StopSession(name)
	}
}
