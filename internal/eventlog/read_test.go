package eventlog

import (
	"context"
	"testing"
)

func TestReadFromExclusive(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()
	for _, p := range []string{"a", "b", "c"} {
		if _, err := l.Append(ctx, 1, []byte(p)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	items, err := l.Read(ReadOptions{FromExclusive: 1})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 2 || string(items[0].Payload) != "b" || string(items[1].Payload) != "c" {
		t.Fatalf("exclusive read wrong: %+v", items)
	}
}

func TestReadPastEndIsEmpty(t *testing.T) {
	l := newTestLog(t)
	if _, err := l.Append(context.Background(), 1, []byte("a")); err != nil {
		t.Fatalf("append: %v", err)
	}
	items, err := l.Read(ReadOptions{FromExclusive: 99})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty, got %d items", len(items))
	}
}

func TestReadLimit(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := l.Append(ctx, 1, []byte{byte('a' + i)}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	items, err := l.Read(ReadOptions{Limit: 2})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 2 || items[0].Seq != 1 || items[1].Seq != 2 {
		t.Fatalf("limit read wrong: %+v", items)
	}
}

func TestReadPreservesTimestamp(t *testing.T) {
	l := newTestLog(t)
	if _, err := l.Append(context.Background(), 1234567, []byte("a")); err != nil {
		t.Fatalf("append: %v", err)
	}
	items, err := l.Read(ReadOptions{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(items) != 1 || items[0].TsMs != 1234567 {
		t.Fatalf("timestamp lost: %+v", items)
	}
}
