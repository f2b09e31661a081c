package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"staffplan/internal/store"
)

// recordStore captures delivery state transitions on top of the memory store.
type recordStore struct {
	*store.Memory
	mu    sync.Mutex
	marks []markRec
	fails []failRec
}

type markRec struct {
	id        string
	delivered bool
	code      int
	lastErr   string
}

type failRec struct {
	id      string
	code    int
	lastErr string
}

func (r *recordStore) MarkWebhookDelivery(ctx context.Context, id string, delivered bool, next time.Time, lastError string, code int) error {
	r.mu.Lock()
	r.marks = append(r.marks, markRec{id, delivered, code, lastError})
	r.mu.Unlock()
	return r.Memory.MarkWebhookDelivery(ctx, id, delivered, next, lastError, code)
}

func (r *recordStore) FailWebhookDelivery(ctx context.Context, id, lastError string, code int) error {
	r.mu.Lock()
	r.fails = append(r.fails, failRec{id, code, lastError})
	r.mu.Unlock()
	return r.Memory.FailWebhookDelivery(ctx, id, lastError, code)
}

func TestProcessOnceDeliversAndSigns(t *testing.T) {
	var mu sync.Mutex
	var gotBody []byte
	var gotSig, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		gotBody, _ = io.ReadAll(r.Body)
		gotSig = r.Header.Get("X-Signature")
		gotType = r.Header.Get("X-Event-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx := context.Background()
	rs := &recordStore{Memory: store.NewMemory()}
	NewPublisher(rs, srv.URL).Emit(ctx, "run-1", "run.completed", map[string]any{"gapMinutes": 30})

	w := NewWorker(rs, "sekret")
	w.HTTP = srv.Client()
	if n := w.ProcessOnce(ctx); n != 1 {
		t.Fatalf("attempted %d deliveries, want 1", n)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotType != "run.completed" {
		t.Fatalf("event type header = %q", gotType)
	}
	if !VerifyHMAC("sekret", gotBody, gotSig) {
		t.Fatal("signature does not verify against the body")
	}
	var env struct {
		ID    string         `json:"id"`
		Type  string         `json:"type"`
		RunID string         `json:"runId"`
		Data  map[string]any `json:"data"`
	}
	if err := json.Unmarshal(gotBody, &env); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if env.ID == "" || env.Type != "run.completed" || env.RunID != "run-1" {
		t.Fatalf("envelope = %+v", env)
	}
	if env.Data["gapMinutes"] != float64(30) {
		t.Fatalf("data = %+v", env.Data)
	}
	if len(rs.marks) != 1 || !rs.marks[0].delivered || rs.marks[0].code != http.StatusOK {
		t.Fatalf("marks = %+v", rs.marks)
	}
	due, err := rs.DueWebhookDeliveries(ctx, 10)
	if err != nil || len(due) != 0 {
		t.Fatalf("delivered webhook still due: %v %+v", err, due)
	}
}

func TestProcessOnceReschedulesOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx := context.Background()
	rs := &recordStore{Memory: store.NewMemory()}
	NewPublisher(rs, srv.URL).Emit(ctx, "run-1", "run.failed", nil)

	w := NewWorker(rs, "")
	w.HTTP = srv.Client()
	w.ProcessOnce(ctx)

	if len(rs.marks) != 1 || rs.marks[0].delivered || rs.marks[0].code != http.StatusInternalServerError {
		t.Fatalf("marks = %+v", rs.marks)
	}
	if len(rs.fails) != 0 {
		t.Fatalf("first error must not be terminal: %+v", rs.fails)
	}
	// Backoff pushed the next attempt into the future.
	due, err := rs.DueWebhookDeliveries(ctx, 10)
	if err != nil || len(due) != 0 {
		t.Fatalf("rescheduled delivery still due: %v %+v", err, due)
	}
}

func TestProcessOnceGivesUpAtMaxAttempts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx := context.Background()
	rs := &recordStore{Memory: store.NewMemory()}
	NewPublisher(rs, srv.URL).Emit(ctx, "run-1", "run.failed", nil)

	w := NewWorker(rs, "")
	w.HTTP = srv.Client()
	w.MaxAttempts = 1
	w.ProcessOnce(ctx)

	if len(rs.fails) != 1 || rs.fails[0].code != http.StatusBadGateway {
		t.Fatalf("fails = %+v", rs.fails)
	}
	if len(rs.marks) != 0 {
		t.Fatalf("terminal failure should not reschedule: %+v", rs.marks)
	}
}

func TestEmitWithoutURLIsNoop(t *testing.T) {
	mem := store.NewMemory()
	NewPublisher(mem, "").Emit(context.Background(), "run-1", "run.completed", nil)
	due, err := mem.DueWebhookDeliveries(context.Background(), 10)
	if err != nil || len(due) != 0 {
		t.Fatalf("no deliveries expected: %v %+v", err, due)
	}
}

func TestNextBackoffCaps(t *testing.T) {
	if d := nextBackoff(0); d != time.Second {
		t.Fatalf("first retry backoff = %v", d)
	}
	if d := nextBackoff(3); d != 8*time.Second {
		t.Fatalf("fourth retry backoff = %v", d)
	}
	if d := nextBackoff(50); d != time.Hour {
		t.Fatalf("backoff cap = %v", d)
	}
}
