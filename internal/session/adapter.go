package session

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/strandio/strand/internal/harness"
	"github.com/strandio/strand/internal/streams"
	logpkg "github.com/strandio/strand/pkg/log"
)

// adapter is the per-stream task tying one harness to one stream. It owns
// three goroutines: the dispatch loop draining the subscription, the prompt
// runner executing one prompt at a time, and the output drain appending
// harness outputs in receipt order.
type adapter struct {
	stream string
	h      harness.Harness
	svc    *streams.Service
	logger logpkg.Logger

	prompts *queue[string]
	outputs *queue[harness.Output]

	promptMu     sync.Mutex
	promptCancel context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newAdapter(stream string, h harness.Harness, svc *streams.Service, logger logpkg.Logger) *adapter {
	ctx, cancel := context.WithCancel(context.Background())
	a := &adapter{
		stream:  stream,
		h:       h,
		svc:     svc,
		logger:  logger,
		prompts: newQueue[string](),
		outputs: newQueue[harness.Output](),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	h.Subscribe(a.outputs.push)
	return a
}

// run drives the adapter until the subscription ends, then shuts the
// harness down and flushes any queued outputs before signalling done.
func (a *adapter) run(sub *streams.Subscription) {
	defer close(a.done)

	promptDone := make(chan struct{})
	go func() { defer close(promptDone); a.promptLoop() }()
	outDone := make(chan struct{})
	go func() { defer close(outDone); a.outputLoop() }()

	a.dispatch(sub)

	a.prompts.close()
	a.abortInFlight()
	<-promptDone
	if err := a.h.Close(); err != nil {
		a.logger.Warn("session.harness close failed",
			logpkg.Str("stream", a.stream), logpkg.Err(err))
	}
	a.outputs.close()
	<-outDone
	a.cancel()
}

// dispatch consumes the live subscription and routes input events. Output
// kinds and unknown envelope types are skipped; the adapter wrote or will
// write those itself.
func (a *adapter) dispatch(sub *streams.Subscription) {
	for ev := range sub.Events() {
		env := DecodeEnvelope(ev.Data)
		switch env.Type {
		case KindPrompt:
			var p PromptPayload
			if err := json.Unmarshal(env.Payload, &p); err != nil {
				a.logger.Warn("session.prompt payload malformed",
					logpkg.Str("stream", a.stream), logpkg.Str("offset", string(ev.Offset)), logpkg.Err(err))
				continue
			}
			a.prompts.push(p.Content)
		case KindAbort:
			a.abortInFlight()
			if err := a.h.Abort(a.ctx); err != nil {
				a.logger.Warn("session.abort failed",
					logpkg.Str("stream", a.stream), logpkg.Err(err))
			}
		}
	}
	err := sub.Err()
	switch {
	case err == nil, errors.Is(err, streams.ErrStreamDeleted):
		a.logger.Debug("session.subscription ended", logpkg.Str("stream", a.stream))
	default:
		a.logger.Error("session.subscription failed",
			logpkg.Str("stream", a.stream), logpkg.Err(err))
	}
}

// promptLoop runs prompts strictly one at a time, in arrival order. A
// failed prompt is recorded as a durable ERROR event and the loop keeps
// going; only adapter shutdown stops it.
func (a *adapter) promptLoop() {
	for {
		content, ok := a.prompts.pop()
		if !ok {
			return
		}
		pctx, cancel := context.WithCancel(a.ctx)
		a.promptMu.Lock()
		a.promptCancel = cancel
		a.promptMu.Unlock()

		err := a.h.Prompt(pctx, content)

		a.promptMu.Lock()
		a.promptCancel = nil
		a.promptMu.Unlock()
		cancel()

		// an aborted prompt is a cancellation, not a failure
		if err != nil && a.ctx.Err() == nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("session.prompt failed",
				logpkg.Str("stream", a.stream), logpkg.Err(err))
			a.append(NewErrorEnvelope(err.Error(), "prompt"))
		}
	}
}

// abortInFlight cancels the currently running prompt, if any.
func (a *adapter) abortInFlight() {
	a.promptMu.Lock()
	cancel := a.promptCancel
	a.promptMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// outputLoop appends harness outputs to the stream in the order they were
// received. A single drain goroutine keeps the ordering guarantee.
func (a *adapter) outputLoop() {
	for {
		o, ok := a.outputs.pop()
		if !ok {
			return
		}
		a.append(OutputEnvelope(o))
	}
}

func (a *adapter) append(data json.RawMessage) {
	// background context: queued events still land during shutdown
	if _, err := a.svc.Append(context.Background(), a.stream, data); err != nil {
		a.logger.Error("session.append failed",
			logpkg.Str("stream", a.stream), logpkg.Err(err))
	}
}
