package session

import (
	"encoding/json"
	"testing"

	"github.com/strandio/strand/internal/harness"
)

func TestDecodeEnvelopeUnknownAndMalformed(t *testing.T) {
	if env := DecodeEnvelope(json.RawMessage(`{"type":"SOMETHING_NEW"}`)); env.Type != "SOMETHING_NEW" {
		t.Fatalf("unknown type should pass through: %+v", env)
	}
	if env := DecodeEnvelope(json.RawMessage(`not json`)); env.Type != "" {
		t.Fatalf("malformed data should decode empty: %+v", env)
	}
	if env := DecodeEnvelope(json.RawMessage(`"a string"`)); env.Type != "" {
		t.Fatalf("non-object data should decode empty: %+v", env)
	}
}

func TestPromptEnvelopeRoundTrip(t *testing.T) {
	env := DecodeEnvelope(NewPromptEnvelope("do the thing"))
	if env.Type != KindPrompt {
		t.Fatalf("kind: %q", env.Type)
	}
	var p PromptPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil || p.Content != "do the thing" {
		t.Fatalf("payload: %+v %v", p, err)
	}
}

func TestOutputEnvelopeMapping(t *testing.T) {
	if env := DecodeEnvelope(OutputEnvelope(harness.Output{Kind: harness.TurnStart})); env.Type != KindTurnStart {
		t.Fatalf("turn start mapped to %q", env.Type)
	}
	env := DecodeEnvelope(OutputEnvelope(harness.Output{Kind: harness.TextDelta, Text: "hi"}))
	if env.Type != KindTextDelta {
		t.Fatalf("delta mapped to %q", env.Type)
	}
	var d DeltaPayload
	if err := json.Unmarshal(env.Payload, &d); err != nil || d.Text != "hi" {
		t.Fatalf("delta payload: %+v %v", d, err)
	}
	if env := DecodeEnvelope(OutputEnvelope(harness.Output{Kind: harness.TurnEnd})); env.Type != KindTurnEnd {
		t.Fatalf("turn end mapped to %q", env.Type)
	}
}

func TestQueueOrderAndClose(t *testing.T) {
	q := newQueue[int]()
	for i := 1; i <= 3; i++ {
		q.push(i)
	}
	q.close()
	for want := 1; want <= 3; want++ {
		got, ok := q.pop()
		if !ok || got != want {
			t.Fatalf("pop: %d %v want %d", got, ok, want)
		}
	}
	if _, ok := q.pop(); ok {
		t.Fatal("pop on closed empty queue should report done")
	}
	q.push(9) // dropped
	if _, ok := q.pop(); ok {
		t.Fatal("push after close must be dropped")
	}
}
