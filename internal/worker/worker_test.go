package worker

import (
	"context"
	"testing"
	"time"

	"staffplan/internal/model"
	"staffplan/internal/store"
)

func queuedRun(t *testing.T, m *store.Memory) model.ScheduleRun {
	t.Helper()
	m.SeedDemo()
	rows := []model.CoverageRequirement{}
	for start := 480; start < 600; start += 30 {
		rows = append(rows, model.CoverageRequirement{
			PlanID: "plan-demo", Date: "2025-06-02",
			StartMinute: start, EndMinute: start + 30,
			SkillID: "skill-sales", RequiredAgents: 1,
		})
	}
	if err := m.ReplaceCoverageRequirements(context.Background(), "plan-demo", rows); err != nil {
		t.Fatalf("seed coverage: %v", err)
	}
	run, err := m.CreateScheduleRun(context.Background(), model.ScheduleRun{PlanID: "plan-demo", MethodID: "method-greedy"})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	return run
}

func TestProcessOnceEmptyQueue(t *testing.T) {
	w := New(store.NewMemory(), time.Second)
	processed, err := w.ProcessOnce(context.Background())
	if err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if processed {
		t.Fatal("expected no work on an empty queue")
	}
}

func TestProcessOnceCompletesRun(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	run := queuedRun(t, m)

	w := New(m, time.Second)
	var events []string
	w.Notify = func(runID, event string, data map[string]any) {
		if runID != run.ID {
			t.Errorf("event for unexpected run %s", runID)
		}
		events = append(events, event)
	}

	processed, err := w.ProcessOnce(ctx)
	if err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if !processed {
		t.Fatal("expected the queued run to be claimed")
	}

	got, err := m.GetScheduleRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetScheduleRun: %v", err)
	}
	if got.Status != model.RunCompleted {
		t.Fatalf("run status = %s, want %s (error: %q)", got.Status, model.RunCompleted, got.Error)
	}
	if len(events) != 2 || events[0] != "run.started" || events[1] != "run.completed" {
		t.Fatalf("events = %v, want [run.started run.completed]", events)
	}

	shifts, err := m.GetShifts(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetShifts: %v", err)
	}
	if len(shifts) == 0 {
		t.Fatal("completed run produced no shifts")
	}
	// The queue is drained.
	if processed, _ := w.ProcessOnce(ctx); processed {
		t.Fatal("run claimed twice")
	}
}

func TestProcessOnceRecordsFailure(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	m.SeedDemo()
	// No coverage requirements exist for the plan, so the build fails.
	run, err := m.CreateScheduleRun(ctx, model.ScheduleRun{PlanID: "plan-demo", MethodID: "method-greedy"})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}

	w := New(m, time.Second)
	var failed bool
	w.Notify = func(runID, event string, data map[string]any) {
		if event == "run.failed" {
			failed = true
			if data["error"] == "" {
				t.Error("run.failed event carries no error")
			}
		}
	}

	processed, err := w.ProcessOnce(ctx)
	if err != nil {
		t.Fatalf("ProcessOnce: %v", err)
	}
	if !processed {
		t.Fatal("failed run still counts as processed")
	}
	if !failed {
		t.Fatal("expected a run.failed event")
	}
	got, err := m.GetScheduleRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetScheduleRun: %v", err)
	}
	if got.Status != model.RunFailed {
		t.Fatalf("run status = %s, want %s", got.Status, model.RunFailed)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w := New(store.NewMemory(), 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
