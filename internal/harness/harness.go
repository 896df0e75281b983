// Package harness defines the contract between the session supervisor and a
// pluggable harness adapter (e.g. a conversational agent loop). The engine
// does not depend on what a harness does internally; it only constructs one
// per session, forwards prompts and aborts, and records the outputs the
// harness pushes back.
package harness

import "context"

// CreateParams configures a new harness session. They are recorded durably
// in the session's SESSION_CREATE event and reused verbatim on reattachment.
type CreateParams struct {
	SessionID    string            `json:"sessionId,omitempty"`
	Model        string            `json:"model,omitempty"`
	SystemPrompt string            `json:"systemPrompt,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// OutputKind classifies a harness output event.
type OutputKind string

const (
	// TurnStart marks the beginning of an assistant turn.
	TurnStart OutputKind = "TURN_START"
	// TextDelta carries an incremental piece of assistant text.
	TextDelta OutputKind = "TEXT_DELTA"
	// TurnEnd marks the end of an assistant turn.
	TurnEnd OutputKind = "TURN_END"
)

// Output is one domain event pushed by a harness. Outputs are appended to
// the session's stream in the order the harness produced them.
type Output struct {
	Kind OutputKind `json:"kind"`
	Text string     `json:"text,omitempty"`
}

// Harness is one running harness session.
//
// Subscribe registers the callback receiving outputs; the harness may invoke
// it synchronously from inside Prompt, so the callback must not block.
// Prompt forwards one user prompt and returns when the resulting turn is
// complete or ctx is cancelled. Abort requests cancellation of the current
// operation and is a no-op when nothing is in flight.
type Harness interface {
	Subscribe(fn func(Output))
	Prompt(ctx context.Context, content string) error
	Abort(ctx context.Context) error
	Close() error
}

// Factory constructs harness sessions from durable creation parameters.
type Factory interface {
	New(ctx context.Context, params CreateParams) (Harness, error)
}
