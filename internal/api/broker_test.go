package api

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestBrokerPublishSubscribe(t *testing.T) {
	b := NewBroker()
	runID := "run-1"
	ch := b.Subscribe(runID)

	evt := SSEEvent{Type: "run.completed", Data: map[string]any{"gapMinutes": 120}}
	b.Publish(runID, evt)

	select {
	case got := <-ch:
		if got.Type != evt.Type {
			t.Fatalf("got type %s, want %s", got.Type, evt.Type)
		}
		if got.Data["gapMinutes"].(int) != 120 {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timeout waiting for event")
	}

	b.Unsubscribe(runID, ch)
	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after unsubscribe")
	}
}

func TestBrokerPublishNeverBlocks(t *testing.T) {
	b := NewBroker()
	ch := b.Subscribe("run-1")
	// Overfill the buffered channel; extra events drop instead of blocking.
	for i := 0; i < 100; i++ {
		b.Publish("run-1", SSEEvent{Type: "run.started"})
	}
	b.Unsubscribe("run-1", ch)
}

func TestBrokerIsolatesRuns(t *testing.T) {
	b := NewBroker()
	ch1 := b.Subscribe("run-1")
	ch2 := b.Subscribe("run-2")
	defer b.Unsubscribe("run-1", ch1)
	defer b.Unsubscribe("run-2", ch2)

	b.Publish("run-1", SSEEvent{Type: "run.started"})
	select {
	case <-ch2:
		t.Fatal("run-2 subscriber received run-1 event")
	case <-time.After(50 * time.Millisecond):
	}
	select {
	case <-ch1:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("run-1 subscriber missed its event")
	}
}

func TestRedisBrokerRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := NewRedisBroker("redis://" + mr.Addr())
	if err != nil {
		t.Fatalf("NewRedisBroker: %v", err)
	}
	if err := b.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	ch := b.Subscribe("run-9")
	b.Publish("run-9", SSEEvent{Type: "run.completed", Data: map[string]any{"coveragePercent": 92.5}})

	select {
	case got := <-ch:
		if got.Type != "run.completed" {
			t.Fatalf("got type %s", got.Type)
		}
		// JSON round-trip turns numbers into float64.
		if got.Data["coveragePercent"].(float64) != 92.5 {
			t.Fatalf("bad payload: %+v", got.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for redis event")
	}

	b.Unsubscribe("run-9", ch)
	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel after unsubscribe")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}
}
