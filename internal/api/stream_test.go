package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"staffplan/internal/model"
)

// sseRecorder is a concurrency-safe ResponseWriter with flush support so
// the SSE handler can stream into it from another goroutine.
type sseRecorder struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	header http.Header
}

func newSSERecorder() *sseRecorder { return &sseRecorder{header: http.Header{}} }

func (r *sseRecorder) Header() http.Header { return r.header }
func (r *sseRecorder) WriteHeader(int)     {}
func (r *sseRecorder) Flush()              {}

func (r *sseRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

func (r *sseRecorder) contains(s string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Contains(r.buf.String(), s)
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", what)
}

func makeRun(t *testing.T, s *Server) model.ScheduleRun {
	t.Helper()
	run, err := s.Store.CreateScheduleRun(context.Background(), model.ScheduleRun{PlanID: "plan-demo", MethodID: "method-greedy"})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	return run
}

func TestRunEventsStream(t *testing.T) {
	s := newTestServer(t)
	run := makeRun(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/v1/runs/"+run.ID+"/events/stream", nil).WithContext(ctx)
	rec := newSSERecorder()

	done := make(chan struct{})
	go func() {
		s.Routes().ServeHTTP(rec, req)
		close(done)
	}()

	waitFor(t, "initial heartbeat", func() bool { return rec.contains("event: heartbeat") })
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	s.Broker.Publish(run.ID, SSEEvent{Type: "run.completed", Data: map[string]any{"gapMinutes": 5}})
	waitFor(t, "run.completed event", func() bool { return rec.contains("event: run.completed") })
	if !rec.contains(`"gapMinutes":5`) {
		t.Fatal("event payload missing")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not stop on client disconnect")
	}
}

func TestRunEventsStreamUnknownRun(t *testing.T) {
	s := newTestServer(t)
	rr := doJSON(t, s.Routes(), http.MethodGet, "/v1/runs/nope/events/stream", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown run: got %d", rr.Code)
	}
}

func TestWSHandlerStreamsEvents(t *testing.T) {
	s := newTestServer(t)
	run := makeRun(t, s)

	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws?runId=" + run.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var first wsEvent
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("read subscribed frame: %v", err)
	}
	if first.Type != "subscribed" || first.RunID != run.ID {
		t.Fatalf("first frame = %+v", first)
	}

	// The subscribed frame confirms registration, so this publish lands.
	s.Broker.Publish(run.ID, SSEEvent{Type: "run.failed", Data: map[string]any{"error": "boom"}})

	var evt wsEvent
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read event frame: %v", err)
	}
	if evt.Type != "run.failed" {
		t.Fatalf("event type = %s", evt.Type)
	}
	if evt.Data["error"] != "boom" {
		t.Fatalf("event data = %+v", evt.Data)
	}
}

func TestWSHandlerRejectsBadRequests(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	base := "ws" + strings.TrimPrefix(srv.URL, "http")
	if _, resp, err := websocket.DefaultDialer.Dial(base+"/v1/ws", nil); err == nil {
		t.Fatal("dial without runId should fail")
	} else if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 handshake, got %+v", resp)
	}
	if _, resp, err := websocket.DefaultDialer.Dial(base+"/v1/ws?runId=nope", nil); err == nil {
		t.Fatal("dial for unknown run should fail")
	} else if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 handshake, got %+v", resp)
	}
}
