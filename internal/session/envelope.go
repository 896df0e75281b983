package session

import (
	"encoding/json"

	"github.com/strandio/strand/internal/harness"
)

// Kind discriminates the event envelope stored as stream payload.
type Kind string

const (
	KindSessionCreate Kind = "SESSION_CREATE"
	KindPrompt        Kind = "PROMPT"
	KindAbort         Kind = "ABORT"
	KindError         Kind = "ERROR"
	KindTurnStart     Kind = "TURN_START"
	KindTextDelta     Kind = "TEXT_DELTA"
	KindTurnEnd       Kind = "TURN_END"
)

// Envelope is the tagged union carried by every session event. Unknown
// types decode fine and are ignored by the adapter, so streams can carry
// foreign event kinds alongside session traffic.
type Envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// PromptPayload is the payload of a PROMPT envelope.
type PromptPayload struct {
	Content string `json:"content"`
}

// ErrorPayload is the payload of an ERROR envelope.
type ErrorPayload struct {
	Message string `json:"message"`
	Context string `json:"context,omitempty"`
}

// DeltaPayload is the payload of a TEXT_DELTA envelope.
type DeltaPayload struct {
	Text string `json:"text"`
}

// DecodeEnvelope parses raw event data. Payloads that are not an object
// with a type field come back with an empty Type; callers treat that as
// an event to ignore.
func DecodeEnvelope(data json.RawMessage) Envelope {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}
	}
	return env
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// NewCreateEnvelope builds the durable SESSION_CREATE event data.
func NewCreateEnvelope(params harness.CreateParams) json.RawMessage {
	return mustMarshal(Envelope{Type: KindSessionCreate, Payload: mustMarshal(params)})
}

// NewPromptEnvelope builds a PROMPT event data payload.
func NewPromptEnvelope(content string) json.RawMessage {
	return mustMarshal(Envelope{Type: KindPrompt, Payload: mustMarshal(PromptPayload{Content: content})})
}

// NewAbortEnvelope builds an ABORT event data payload.
func NewAbortEnvelope() json.RawMessage {
	return mustMarshal(Envelope{Type: KindAbort})
}

// NewErrorEnvelope builds an ERROR event data payload.
func NewErrorEnvelope(message, context string) json.RawMessage {
	return mustMarshal(Envelope{Type: KindError, Payload: mustMarshal(ErrorPayload{Message: message, Context: context})})
}

// OutputEnvelope maps a harness output to its durable event data.
func OutputEnvelope(o harness.Output) json.RawMessage {
	switch o.Kind {
	case harness.TextDelta:
		return mustMarshal(Envelope{Type: KindTextDelta, Payload: mustMarshal(DeltaPayload{Text: o.Text})})
	case harness.TurnStart:
		return mustMarshal(Envelope{Type: KindTurnStart})
	default:
		return mustMarshal(Envelope{Type: KindTurnEnd})
	}
}
