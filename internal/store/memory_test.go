package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"staffplan/internal/model"
)

func TestMemoryRunQueueClaim(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	first, err := m.CreateScheduleRun(ctx, model.ScheduleRun{PlanID: "p1", MethodID: "m1"})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	second, err := m.CreateScheduleRun(ctx, model.ScheduleRun{PlanID: "p1", MethodID: "m2"})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if first.Status != model.RunQueued {
		t.Fatalf("new run status = %q, want queued", first.Status)
	}

	claimed, err := m.NextQueuedRun(ctx)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.ID != first.ID {
		t.Fatalf("claimed %s, want oldest %s", claimed.ID, first.ID)
	}
	if claimed.Status != model.RunRunning || claimed.StartedAt == nil {
		t.Fatalf("claimed run not marked running: %+v", claimed)
	}

	claimed, err = m.NextQueuedRun(ctx)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.ID != second.ID {
		t.Fatalf("claimed %s, want %s", claimed.ID, second.ID)
	}

	if _, err := m.NextQueuedRun(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty queue err = %v, want ErrNotFound", err)
	}
}

func TestMemoryUpdateRunStatus(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	if err := m.UpdateScheduleRunStatus(ctx, "missing", model.RunFailed, nil, nil, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update missing run err = %v, want ErrNotFound", err)
	}

	run, _ := m.CreateScheduleRun(ctx, model.ScheduleRun{PlanID: "p1", MethodID: "m1"})
	done := time.Now().UTC()
	if err := m.UpdateScheduleRunStatus(ctx, run.ID, model.RunFailed, nil, &done, "no coverage"); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := m.GetScheduleRun(ctx, run.ID)
	if got.Status != model.RunFailed || got.Error != "no coverage" || got.CompletedAt == nil {
		t.Fatalf("unexpected run after update: %+v", got)
	}
}

func TestMemoryReplaceCoverage(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	rows := []model.CoverageRequirement{
		{PlanID: "p1", Date: "2025-06-02", StartMinute: 480, EndMinute: 510, SkillID: "s1", RequiredAgents: 3},
		{PlanID: "p1", Date: "2025-06-02", StartMinute: 510, EndMinute: 540, SkillID: "s1", RequiredAgents: 4},
	}
	if err := m.ReplaceCoverageRequirements(ctx, "p1", rows); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _ := m.GetCoverageRequirements(ctx, "p1")
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}

	if err := m.ReplaceCoverageRequirements(ctx, "p1", rows[:1]); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, _ = m.GetCoverageRequirements(ctx, "p1")
	if len(got) != 1 {
		t.Fatalf("replace did not drop old rows, got %d", len(got))
	}
}

func TestMemoryClearRunData(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	run, _ := m.CreateScheduleRun(ctx, model.ScheduleRun{PlanID: "p1", MethodID: "m1"})
	sh := model.Shift{ID: "sh1", RunID: run.ID, StaffID: "st1", Date: "2025-06-02", StartMinute: 480, EndMinute: 1020}
	if err := m.CreateShift(ctx, sh); err != nil {
		t.Fatalf("create shift: %v", err)
	}
	segs := []model.ShiftSegment{
		{ID: "sg1", ShiftID: "sh1", Type: model.SegmentWork, StartMinute: 480, EndMinute: 690, SkillID: "s1", Paid: true},
		{ID: "sg2", ShiftID: "sh1", Type: model.SegmentLunch, StartMinute: 690, EndMinute: 750},
	}
	if err := m.CreateShiftSegments(ctx, segs); err != nil {
		t.Fatalf("create segments: %v", err)
	}
	if err := m.SaveScheduleMetrics(ctx, model.ScheduleMetric{RunID: run.ID, CoveragePercent: 90}); err != nil {
		t.Fatalf("save metrics: %v", err)
	}
	if err := m.SaveScheduleViolations(ctx, []model.ScheduleViolation{{RunID: run.ID, Type: model.ViolationRest}}); err != nil {
		t.Fatalf("save violations: %v", err)
	}

	if err := m.ClearScheduleRunData(ctx, run.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if shifts, _ := m.GetShifts(ctx, run.ID); len(shifts) != 0 {
		t.Fatalf("shifts not cleared: %d", len(shifts))
	}
	if segs, _ := m.GetShiftSegments(ctx, run.ID); len(segs) != 0 {
		t.Fatalf("segments not cleared: %d", len(segs))
	}
	if _, err := m.GetScheduleMetrics(ctx, run.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("metrics not cleared, err = %v", err)
	}
	if vs, _ := m.GetScheduleViolations(ctx, run.ID); len(vs) != 0 {
		t.Fatalf("violations not cleared: %d", len(vs))
	}
	if _, err := m.GetScheduleRun(ctx, run.ID); err != nil {
		t.Fatalf("run row must survive a clear: %v", err)
	}
}

func TestMemorySegmentsGroupedByRun(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	run, _ := m.CreateScheduleRun(ctx, model.ScheduleRun{PlanID: "p1", MethodID: "m1"})
	_ = m.CreateShift(ctx, model.Shift{ID: "sh1", RunID: run.ID, StaffID: "st1", Date: "2025-06-02"})
	_ = m.CreateShift(ctx, model.Shift{ID: "sh2", RunID: run.ID, StaffID: "st2", Date: "2025-06-02"})
	_ = m.CreateShiftSegments(ctx, []model.ShiftSegment{
		{ID: "a", ShiftID: "sh1", Type: model.SegmentWork},
		{ID: "b", ShiftID: "sh2", Type: model.SegmentWork},
		{ID: "c", ShiftID: "sh2", Type: model.SegmentBreak},
	})

	segs, err := m.GetShiftSegments(ctx, run.ID)
	if err != nil {
		t.Fatalf("get segments: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("got %d segments, want 3", len(segs))
	}
}

func TestMemoryRunsByGroup(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	a, _ := m.CreateScheduleRun(ctx, model.ScheduleRun{PlanID: "p1", MethodID: "m1", RunGroupID: "g1", Label: "A"})
	_, _ = m.CreateScheduleRun(ctx, model.ScheduleRun{PlanID: "p1", MethodID: "m2", RunGroupID: "g2", Label: "A"})
	b, _ := m.CreateScheduleRun(ctx, model.ScheduleRun{PlanID: "p1", MethodID: "m2", RunGroupID: "g1", Label: "B"})

	runs, err := m.GetRunsByGroup(ctx, "g1")
	if err != nil {
		t.Fatalf("by group: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != a.ID || runs[1].ID != b.ID {
		t.Fatalf("unexpected group members: %+v", runs)
	}
}

func TestMemoryForecastRange(t *testing.T) {
	m := NewMemory()
	m.SeedDemo()
	ctx := context.Background()

	fs, err := m.GetForecasts(ctx, "scen-demo", "2025-06-03", "2025-06-05")
	if err != nil {
		t.Fatalf("forecasts: %v", err)
	}
	if len(fs) != 3 {
		t.Fatalf("got %d forecasts, want 3", len(fs))
	}
	for i := 1; i < len(fs); i++ {
		if fs[i].Date < fs[i-1].Date {
			t.Fatalf("forecasts out of order: %s before %s", fs[i-1].Date, fs[i].Date)
		}
	}
}
