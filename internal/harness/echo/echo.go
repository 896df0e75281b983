// Package echo is a loopback harness used by the CLI demo and tests: each
// prompt produces one turn that echoes the prompt text back as deltas.
package echo

import (
	"context"
	"strings"
	"sync"

	"github.com/strandio/strand/internal/harness"
)

// Factory builds echo harnesses.
type Factory struct{}

// New returns a fresh echo harness. Creation never fails.
func (Factory) New(_ context.Context, params harness.CreateParams) (harness.Harness, error) {
	return &Echo{prefix: params.SystemPrompt}, nil
}

// Echo repeats every prompt back, one word per delta.
type Echo struct {
	mu       sync.Mutex
	fn       func(harness.Output)
	prefix   string
	inFlight context.CancelFunc
}

func (e *Echo) Subscribe(fn func(harness.Output)) {
	e.mu.Lock()
	e.fn = fn
	e.mu.Unlock()
}

func (e *Echo) emit(o harness.Output) {
	e.mu.Lock()
	fn := e.fn
	e.mu.Unlock()
	if fn != nil {
		fn(o)
	}
}

func (e *Echo) Prompt(ctx context.Context, content string) error {
	pctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.inFlight = cancel
	e.mu.Unlock()
	defer func() {
		cancel()
		e.mu.Lock()
		e.inFlight = nil
		e.mu.Unlock()
	}()

	e.emit(harness.Output{Kind: harness.TurnStart})
	text := content
	if e.prefix != "" {
		text = e.prefix + " " + content
	}
	for _, word := range strings.Fields(text) {
		if err := pctx.Err(); err != nil {
			e.emit(harness.Output{Kind: harness.TurnEnd})
			return err
		}
		e.emit(harness.Output{Kind: harness.TextDelta, Text: word})
	}
	e.emit(harness.Output{Kind: harness.TurnEnd})
	return nil
}

func (e *Echo) Abort(context.Context) error {
	e.mu.Lock()
	cancel := e.inFlight
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return nil
}

func (e *Echo) Close() error { return nil }
