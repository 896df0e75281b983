package streams

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/strandio/strand/internal/eventlog"
	"github.com/strandio/strand/internal/runtime"
	logpkg "github.com/strandio/strand/pkg/log"
)

// Service provides append/read/subscribe/delete operations on named streams
// built on the internal event log.
type Service struct {
	rt        *runtime.Runtime
	logger    logpkg.Logger
	subBufLen int

	mu   sync.Mutex
	logs map[string]*eventlog.Log

	hooksMu     sync.Mutex
	deleteHooks []func(stream string)
}

// New returns a Service using a default logger.
func New(rt *runtime.Runtime) *Service {
	return NewWithLogger(rt, nil)
}

// NewWithLogger constructs the service with an injected logger.
func NewWithLogger(rt *runtime.Runtime, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.NewLogger().With(logpkg.Component("streams"))
	}
	bufLen := rt.Config().SubscribeBuffer
	if bufLen <= 0 {
		bufLen = 1024
	}
	return &Service{rt: rt, logger: logger, subBufLen: bufLen, logs: map[string]*eventlog.Log{}}
}

// OnDelete registers a hook invoked before a stream's storage is removed.
// The session supervisor uses this to stop the stream's adapter task.
func (s *Service) OnDelete(hook func(stream string)) {
	s.hooksMu.Lock()
	s.deleteHooks = append(s.deleteHooks, hook)
	s.hooksMu.Unlock()
}

// openLog returns the shared Log for a stream, creating the cache entry on
// first use. All appends for a name go through this one instance.
func (s *Service) openLog(stream string) (*eventlog.Log, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.logs[stream]; ok {
		return l, nil
	}
	l, err := eventlog.OpenLog(s.rt.DB(), stream)
	if err != nil {
		return nil, err
	}
	s.logs[stream] = l
	return l, nil
}

// dropLog forgets a cached Log instance if it is still the cached one.
func (s *Service) dropLog(stream string, l *eventlog.Log) {
	s.mu.Lock()
	if s.logs[stream] == l {
		delete(s.logs, stream)
	}
	s.mu.Unlock()
}

// Append durably writes data as the next event of the stream and returns the
// persisted Event. Concurrent appends to one stream are serialized; appends
// to different streams do not block each other. Appending to a stream that
// does not exist (or was deleted) creates it implicitly.
func (s *Service) Append(ctx context.Context, stream string, data json.RawMessage) (Event, error) {
	if !validStreamName(stream) {
		return Event{}, fmt.Errorf("%w: %q", ErrInvalidStreamName, stream)
	}
	t0 := time.Now()
	for {
		l, err := s.openLog(stream)
		if err != nil {
			return Event{}, err
		}
		tsMs := time.Now().UnixMilli()
		seq, err := l.Append(ctx, tsMs, data)
		if err == eventlog.ErrLogDeleted {
			// raced with Delete; retry against a fresh log
			s.dropLog(stream, l)
			continue
		}
		if err != nil {
			return Event{}, err
		}
		s.logger.Debug("streams.append",
			logpkg.Str("stream", stream),
			logpkg.Int64("seq", int64(seq)),
			logpkg.Int("bytes", len(data)),
			logpkg.Int64("dur_ms", time.Since(t0).Milliseconds()),
		)
		return Event{
			Stream:    stream,
			Offset:    eventlog.OffsetFromSeq(seq),
			Data:      append(json.RawMessage(nil), data...),
			CreatedAt: time.UnixMilli(tsMs),
		}, nil
	}
}

// GetFrom returns events with offset strictly greater than from, in order.
// from = eventlog.Start reads from the beginning. A position past the end
// yields an empty slice. Malformed offsets fail with eventlog.ErrInvalidOffset.
func (s *Service) GetFrom(ctx context.Context, stream string, from eventlog.Offset, opts ReadOptions) ([]Event, error) {
	if !validStreamName(stream) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStreamName, stream)
	}
	fromSeq, err := from.Seq()
	if err != nil {
		return nil, err
	}
	filter, err := newCELFilter(opts.Filter)
	if err != nil {
		return nil, err
	}
	l, err := s.openLog(stream)
	if err != nil {
		return nil, err
	}
	items, err := l.Read(eventlog.ReadOptions{FromExclusive: fromSeq, Limit: opts.Limit})
	if err == eventlog.ErrLogDeleted {
		s.dropLog(stream, l)
		return []Event{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(items))
	for _, it := range items {
		if !filter.Eval(it.Seq, it.TsMs, it.Payload) {
			continue
		}
		out = append(out, Event{
			Stream:    stream,
			Offset:    eventlog.OffsetFromSeq(it.Seq),
			Data:      it.Payload,
			CreatedAt: time.UnixMilli(it.TsMs),
		})
	}
	return out, nil
}

// LastOffset returns the offset of the stream's newest event, or
// eventlog.Start for an empty/unknown stream.
func (s *Service) LastOffset(stream string) (eventlog.Offset, error) {
	if !validStreamName(stream) {
		return eventlog.Start, fmt.Errorf("%w: %q", ErrInvalidStreamName, stream)
	}
	l, err := s.openLog(stream)
	if err != nil {
		return eventlog.Start, err
	}
	return eventlog.OffsetFromSeq(l.LastSeq()), nil
}

// List returns the names of all streams holding at least one record.
func (s *Service) List(ctx context.Context) ([]string, error) {
	prefix := eventlog.KeyAllMetaPrefix()
	hi := append(append([]byte(nil), prefix...), 0xFF)
	it, err := s.rt.DB().NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: hi})
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()
	out := []string{}
	for ok := it.First(); ok; ok = it.Next() {
		if name := eventlog.StreamFromMetaKey(it.Key()); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

// Delete removes the stream. Running subscriptions for the name terminate
// with ErrStreamDeleted and any session adapter is stopped via OnDelete
// hooks before storage is touched.
func (s *Service) Delete(ctx context.Context, stream string) error {
	if !validStreamName(stream) {
		return fmt.Errorf("%w: %q", ErrInvalidStreamName, stream)
	}
	s.hooksMu.Lock()
	hooks := append([]func(string){}, s.deleteHooks...)
	s.hooksMu.Unlock()
	for _, hook := range hooks {
		hook(stream)
	}

	s.mu.Lock()
	l, ok := s.logs[stream]
	if ok {
		delete(s.logs, stream)
	}
	s.mu.Unlock()
	if !ok {
		// no live instance; open transiently to reuse the delete path
		var err error
		l, err = eventlog.OpenLog(s.rt.DB(), stream)
		if err != nil {
			return err
		}
	}
	if err := l.DeleteAll(ctx); err != nil {
		return err
	}
	s.logger.Info("streams.delete", logpkg.Str("stream", stream))
	return nil
}
