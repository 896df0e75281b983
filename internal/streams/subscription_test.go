package streams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/strandio/strand/internal/eventlog"
)

func collectN(t *testing.T, sub *Subscription, n int) []Event {
	t.Helper()
	out := make([]Event, 0, n)
	timeout := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				t.Fatalf("subscription closed early (err=%v) after %d events", sub.Err(), len(out))
			}
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("timed out after %d/%d events", len(out), n)
		}
	}
	return out
}

func TestSubscribeReplayThenLive(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.Append(ctx, "t1", json.RawMessage(fmt.Sprintf(`{"n":%d}`, i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	sub, err := s.Subscribe(ctx, "t1", eventlog.Start, SubscribeOptions{})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	// live appends interleaved with catch-up consumption
	for i := 3; i < 6; i++ {
		if _, err := s.Append(ctx, "t1", json.RawMessage(fmt.Sprintf(`{"n":%d}`, i))); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	got := collectN(t, sub, 6)
	for i, ev := range got {
		want := eventlog.OffsetFromSeq(uint64(i + 1))
		if ev.Offset != want {
			t.Fatalf("event %d: offset %q want %q", i, ev.Offset, want)
		}
	}
}

func TestSubscribeFromOffsetSkipsReplayed(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	var first Event
	for i := 0; i < 2; i++ {
		ev, err := s.Append(ctx, "t1", json.RawMessage(`{}`))
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if i == 0 {
			first = ev
		}
	}
	sub, err := s.Subscribe(ctx, "t1", first.Offset, SubscribeOptions{})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	got := collectN(t, sub, 1)
	if got[0].Offset != eventlog.OffsetFromSeq(2) {
		t.Fatalf("expected only second event, got %q", got[0].Offset)
	}
}

func TestSubscribeNoDuplicatesUnderConcurrentAppends(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	sub, err := s.Subscribe(ctx, "t1", eventlog.Start, SubscribeOptions{})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()

	const n = 50
	go func() {
		for i := 0; i < n; i++ {
			_, _ = s.Append(ctx, "t1", json.RawMessage(`{}`))
		}
	}()
	got := collectN(t, sub, n)
	seen := map[eventlog.Offset]bool{}
	var prev eventlog.Offset
	for _, ev := range got {
		if seen[ev.Offset] {
			t.Fatalf("duplicate delivery of %q", ev.Offset)
		}
		seen[ev.Offset] = true
		if !(prev < ev.Offset) {
			t.Fatalf("out of order: %q after %q", ev.Offset, prev)
		}
		prev = ev.Offset
	}
}

func TestDeleteTerminatesSubscription(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	if _, err := s.Append(ctx, "t1", json.RawMessage(`{}`)); err != nil {
		t.Fatalf("append: %v", err)
	}
	sub, err := s.Subscribe(ctx, "t1", eventlog.Start, SubscribeOptions{})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	collectN(t, sub, 1)

	if err := s.Delete(ctx, "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Fatal("expected channel close after delete")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("subscription did not terminate on delete")
	}
	if !errors.Is(sub.Err(), ErrStreamDeleted) {
		t.Fatalf("expected ErrStreamDeleted, got %v", sub.Err())
	}
}

func TestSubscriberCancel(t *testing.T) {
	s := newTestService(t)
	sub, err := s.Subscribe(context.Background(), "t1", eventlog.Start, SubscribeOptions{})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	sub.Close()
	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancel did not terminate subscription")
	}
	if sub.Err() != nil {
		t.Fatalf("self-cancel should report nil, got %v", sub.Err())
	}
}

func TestSubscribeRejectsMalformedOffset(t *testing.T) {
	s := newTestService(t)
	_, err := s.Subscribe(context.Background(), "t1", eventlog.Offset("zzz"), SubscribeOptions{})
	if !errors.Is(err, eventlog.ErrInvalidOffset) {
		t.Fatalf("expected ErrInvalidOffset, got %v", err)
	}
}

func TestSubscribeWithFilter(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	sub, err := s.Subscribe(ctx, "t1", eventlog.Start, SubscribeOptions{Filter: `kind == "PROMPT"`})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Close()
	if _, err := s.Append(ctx, "t1", json.RawMessage(`{"type":"TEXT_DELTA"}`)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := s.Append(ctx, "t1", json.RawMessage(`{"type":"PROMPT"}`)); err != nil {
		t.Fatalf("append: %v", err)
	}
	got := collectN(t, sub, 1)
	if got[0].Offset != eventlog.OffsetFromSeq(2) {
		t.Fatalf("filter let wrong event through: %+v", got[0])
	}
}
