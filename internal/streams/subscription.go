package streams

import (
	"context"
	"fmt"
	"time"

	"github.com/strandio/strand/internal/eventlog"
	logpkg "github.com/strandio/strand/pkg/log"
)

// Subscription is a live cursor over one stream: catch-up from the requested
// offset, then live delivery of every subsequent append, in offset order,
// exactly once. Events ends when the subscriber cancels, the stream is
// deleted, or a storage error occurs; Err reports the cause afterwards.
type Subscription struct {
	stream string
	events chan Event
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Events returns the delivery channel. It is closed when the subscription
// terminates.
func (s *Subscription) Events() <-chan Event { return s.events }

// Err returns the termination cause once Events is closed. It is nil only if
// the subscriber itself cancelled.
func (s *Subscription) Err() error {
	<-s.done
	if s.err == context.Canceled {
		return nil
	}
	return s.err
}

// Close cancels the subscription and releases its listener registration.
// Safe to call multiple times.
func (s *Subscription) Close() { s.cancel() }

// Stream returns the subscribed stream name.
func (s *Subscription) Stream() string { return s.stream }

// Subscribe starts a replay-then-live subscription at from (exclusive).
// Delivery runs on a dedicated goroutine; the returned Subscription is live
// as soon as this call returns, so an event appended afterwards is always
// delivered.
func (s *Service) Subscribe(ctx context.Context, stream string, from eventlog.Offset, opts SubscribeOptions) (*Subscription, error) {
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

	buf := opts.Buffer
	if buf <= 0 {
		buf = s.subBufLen
	}
	sctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		stream: stream,
		events: make(chan Event, buf),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go s.deliver(sctx, sub, l, fromSeq, filter)
	return sub, nil
}

// deliver is the per-subscriber loop. The notify channel is taken before
// each read so an append landing between the read and the wait can never be
// missed; the next cursor dedupes anything observed twice.
func (s *Service) deliver(ctx context.Context, sub *Subscription, l *eventlog.Log, fromSeq uint64, filter celFilter) {
	var finalErr error
	defer func() {
		sub.err = finalErr
		close(sub.events)
		close(sub.done)
		sub.cancel()
	}()

	next := fromSeq
	for {
		notify := l.NotifyAppend()
		items, err := l.Read(eventlog.ReadOptions{FromExclusive: next, Limit: 128})
		if err == eventlog.ErrLogDeleted {
			finalErr = ErrStreamDeleted
			return
		}
		if err != nil {
			s.logger.Error("streams.subscribe read failed",
				logpkg.Str("stream", sub.stream), logpkg.Err(err))
			finalErr = err
			return
		}
		for _, it := range items {
			if !filter.Eval(it.Seq, it.TsMs, it.Payload) {
				continue
			}
			ev := Event{
				Stream:    sub.stream,
				Offset:    eventlog.OffsetFromSeq(it.Seq),
				Data:      it.Payload,
				CreatedAt: time.UnixMilli(it.TsMs),
			}
			select {
			case sub.events <- ev:
			case <-ctx.Done():
				finalErr = ctx.Err()
				return
			case <-l.Deleted():
				finalErr = ErrStreamDeleted
				return
			}
		}
		if len(items) > 0 {
			next = items[len(items)-1].Seq
			continue
		}
		select {
		case <-notify:
		case <-ctx.Done():
			finalErr = ctx.Err()
			return
		case <-l.Deleted():
			finalErr = ErrStreamDeleted
			return
		}
	}
}
