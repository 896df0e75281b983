package httpserver

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	cfgpkg "github.com/strandio/strand/internal/config"
	"github.com/strandio/strand/internal/eventlog"
	"github.com/strandio/strand/internal/harness/echo"
	"github.com/strandio/strand/internal/runtime"
	"github.com/strandio/strand/internal/session"
	pebblestore "github.com/strandio/strand/internal/storage/pebble"
	"github.com/strandio/strand/internal/streams"
	logpkg "github.com/strandio/strand/pkg/log"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.HeartbeatMs = 50
	rt, err := runtime.Open(runtime.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways, Config: cfg})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	logger, _ := logpkg.ApplyConfig(&logpkg.Config{Level: "error", Format: "text"})
	st := streams.NewWithLogger(rt, logger)
	sp := session.New(st, echo.Factory{}, logger)
	t.Cleanup(sp.Close)
	return New(rt, st, sp, logger)
}

func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(t, s, http.MethodGet, "/v1/healthz", "")
	if w.Code != 200 {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestAppendAndGetFromHandlers(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/v1/streams/t1/events", `{"type":"PROMPT","payload":{"content":"hi"}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("append status: %d body: %s", w.Code, w.Body.String())
	}
	var ev streams.Event
	if err := json.Unmarshal(w.Body.Bytes(), &ev); err != nil {
		t.Fatalf("append response: %v", err)
	}
	if string(ev.Offset) != "0000000001" {
		t.Fatalf("first offset: %q", ev.Offset)
	}

	w = doJSON(t, s, http.MethodGet, "/v1/streams/t1/events", "")
	if w.Code != 200 {
		t.Fatalf("getFrom status: %d", w.Code)
	}
	var resp struct {
		Events     []streams.Event `json:"events"`
		NextOffset string          `json:"nextOffset"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("getFrom response: %v", err)
	}
	if len(resp.Events) != 1 || resp.NextOffset != "0000000001" {
		t.Fatalf("getFrom: %+v", resp)
	}

	// exclusive read from the only event yields nothing
	w = doJSON(t, s, http.MethodGet, "/v1/streams/t1/events?from=0000000001", "")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("getFrom response: %v", err)
	}
	if len(resp.Events) != 0 {
		t.Fatalf("exclusive read returned %d events", len(resp.Events))
	}
}

func TestAppendRejectsInvalidBody(t *testing.T) {
	s := newTestServer(t)
	if w := doJSON(t, s, http.MethodPost, "/v1/streams/t1/events", `not json`); w.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestGetFromRejectsMalformedOffset(t *testing.T) {
	s := newTestServer(t)
	if w := doJSON(t, s, http.MethodGet, "/v1/streams/t1/events?from=banana", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", w.Code)
	}
}

func TestListAndDeleteHandlers(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/v1/streams/t1/events", `{"n":1}`)

	w := doJSON(t, s, http.MethodGet, "/v1/streams", "")
	if w.Code != 200 || !strings.Contains(w.Body.String(), `"t1"`) {
		t.Fatalf("list: %d %s", w.Code, w.Body.String())
	}

	if w := doJSON(t, s, http.MethodDelete, "/v1/streams/t1", ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete status: %d", w.Code)
	}
	// idempotent
	if w := doJSON(t, s, http.MethodDelete, "/v1/streams/t1", ""); w.Code != http.StatusNoContent {
		t.Fatalf("second delete status: %d", w.Code)
	}
	w = doJSON(t, s, http.MethodGet, "/v1/streams", "")
	if strings.Contains(w.Body.String(), `"t1"`) {
		t.Fatalf("t1 still listed: %s", w.Body.String())
	}
}

func TestSubscribeSSE(t *testing.T) {
	s := newTestServer(t)
	doJSON(t, s, http.MethodPost, "/v1/streams/t1/events", `{"n":1}`)
	doJSON(t, s, http.MethodPost, "/v1/streams/t1/events", `{"n":2}`)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/streams/t1/subscribe")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type: %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	var ids []string
	sawControl := false
	deadline := time.Now().Add(5 * time.Second)
	for (len(ids) < 2 || !sawControl) && time.Now().Before(deadline) && sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "id: ") {
			ids = append(ids, strings.TrimPrefix(line, "id: "))
		}
		if line == "event: control" {
			sawControl = true
		}
	}
	if len(ids) < 2 || ids[0] != "0000000001" || ids[1] != "0000000002" {
		t.Fatalf("sse ids: %v", ids)
	}
	if !sawControl {
		t.Fatal("no control frame observed")
	}
}

func TestCaughtUpStartAlias(t *testing.T) {
	// a subscriber that asked for everything but has received nothing is
	// behind any non-empty stream, whichever spelling of start it used
	for _, from := range []eventlog.Offset{eventlog.Start, "START"} {
		if caughtUp(from, "0000000005") {
			t.Fatalf("from=%q must not report caught up against a non-empty stream", from)
		}
		if !caughtUp(from, eventlog.Start) {
			t.Fatalf("from=%q should be caught up on an empty stream", from)
		}
	}
	if !caughtUp("0000000005", "0000000005") {
		t.Fatal("subscriber at the head should be caught up")
	}
	if caughtUp("0000000004", "0000000005") {
		t.Fatal("subscriber behind the head should not be caught up")
	}
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/v1/streams/t1/session", `{"systemPrompt":""}`)
	if w.Code != 200 {
		t.Fatalf("session start: %d %s", w.Code, w.Body.String())
	}

	w = doJSON(t, s, http.MethodPost, "/v1/streams/t1/events", `{"type":"PROMPT","payload":{"content":"ping"}}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("prompt append: %d", w.Code)
	}

	// the echo harness answers with a full turn
	deadline := time.Now().Add(5 * time.Second)
	for {
		w = doJSON(t, s, http.MethodGet, "/v1/streams/t1/events", "")
		if strings.Contains(w.Body.String(), "TURN_END") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("no echo turn: %s", w.Body.String())
		}
		time.Sleep(10 * time.Millisecond)
	}

	w = doJSON(t, s, http.MethodDelete, "/v1/streams/t1/session", "")
	if w.Code != 200 || !strings.Contains(w.Body.String(), `"stopped":true`) {
		t.Fatalf("session stop: %d %s", w.Code, w.Body.String())
	}
	w = doJSON(t, s, http.MethodDelete, "/v1/streams/t1/session", "")
	if !strings.Contains(w.Body.String(), `"stopped":false`) {
		t.Fatalf("second stop: %s", w.Body.String())
	}
}
