// Package roster builds staff schedules against coverage requirements. A
// schedule run assigns shifts date by date, slices them into segments, and
// scores the result; constraint handling depends on the optimization
// method.
package roster

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"staffplan/internal/model"
	"staffplan/internal/store"
)

// DefaultHourlyCost is the cost rate applied when a plan has none.
const DefaultHourlyCost = 20.0

// ErrNoCoverage marks a run failed because its plan has no coverage
// requirements to schedule against.
var ErrNoCoverage = errors.New("no coverage requirements for plan")

type Scheduler struct {
	store store.Store
	log   zerolog.Logger
}

func NewScheduler(st store.Store) *Scheduler {
	return &Scheduler{store: st, log: log.With().Str("component", "roster").Logger()}
}

// Execute drives one schedule run to completion. The run ends Completed
// with persisted shifts, segments, metrics, and violations, or Failed with
// the error recorded on the run row.
func (s *Scheduler) Execute(ctx context.Context, runID string) (model.ScheduleMetric, error) {
	run, err := s.store.GetScheduleRun(ctx, runID)
	if err != nil {
		return model.ScheduleMetric{}, err
	}
	if run.Status != model.RunRunning {
		now := time.Now().UTC()
		if err := s.store.UpdateScheduleRunStatus(ctx, run.ID, model.RunRunning, &now, nil, ""); err != nil {
			return model.ScheduleMetric{}, err
		}
	}

	metric, err := s.build(ctx, run)
	done := time.Now().UTC()
	if err != nil {
		_ = s.store.UpdateScheduleRunStatus(ctx, run.ID, model.RunFailed, nil, &done, err.Error())
		s.log.Error().Err(err).Str("runId", run.ID).Msg("schedule run failed")
		return metric, err
	}
	if err := s.store.UpdateScheduleRunStatus(ctx, run.ID, model.RunCompleted, nil, &done, ""); err != nil {
		return metric, err
	}
	s.log.Info().Str("runId", run.ID).
		Float64("coveragePercent", metric.CoveragePercent).
		Int("gapMinutes", metric.GapMinutes).
		Int("violations", metric.ViolationsCount).
		Msg("schedule run completed")
	return metric, nil
}

func (s *Scheduler) build(ctx context.Context, run model.ScheduleRun) (model.ScheduleMetric, error) {
	// Re-running a run starts from a clean slate.
	if err := s.store.ClearScheduleRunData(ctx, run.ID); err != nil {
		return model.ScheduleMetric{}, err
	}

	plan, err := s.store.GetSchedulePlan(ctx, run.PlanID)
	if err != nil {
		return model.ScheduleMetric{}, fmt.Errorf("plan %s: %w", run.PlanID, err)
	}
	method, err := s.findMethod(ctx, run.MethodID)
	if err != nil {
		return model.ScheduleMetric{}, err
	}

	rows, err := s.store.GetCoverageRequirements(ctx, run.PlanID)
	if err != nil {
		return model.ScheduleMetric{}, err
	}
	if len(rows) == 0 {
		metric := model.ScheduleMetric{RunID: run.ID, ViolationsCount: 1}
		_ = s.store.SaveScheduleViolations(ctx, []model.ScheduleViolation{{
			RunID:   run.ID,
			Type:    model.ViolationCoverage,
			Details: "no coverage requirements for plan " + run.PlanID,
		}})
		_ = s.store.SaveScheduleMetrics(ctx, metric)
		return metric, ErrNoCoverage
	}

	tmpl, err := s.findTemplate(ctx, plan.ShiftTemplateID)
	if err != nil {
		return model.ScheduleMetric{}, err
	}
	pool, err := s.buildPool(ctx, rows)
	if err != nil {
		return model.ScheduleMetric{}, err
	}

	dm := buildDemand(plan, rows)
	asg := newAssignment(run, plan, tmpl, method, dm, pool, s.log)
	asg.assignAll()

	for _, sh := range asg.shifts {
		if err := s.store.CreateShift(ctx, sh); err != nil {
			return model.ScheduleMetric{}, err
		}
	}
	if err := s.store.CreateShiftSegments(ctx, asg.segments); err != nil {
		return model.ScheduleMetric{}, err
	}
	if err := s.store.SaveScheduleViolations(ctx, asg.violations); err != nil {
		return model.ScheduleMetric{}, err
	}

	metric := computeMetrics(run.ID, plan, dm, asg.covered, asg.weeklyPaid, len(asg.violations), asg.totalPaid)
	if err := s.store.SaveScheduleMetrics(ctx, metric); err != nil {
		return model.ScheduleMetric{}, err
	}
	return metric, nil
}

func (s *Scheduler) findMethod(ctx context.Context, id string) (model.OptimizationMethod, error) {
	methods, err := s.store.GetOptimizationMethods(ctx)
	if err != nil {
		return model.OptimizationMethod{}, err
	}
	for _, m := range methods {
		if m.ID == id {
			return m, nil
		}
	}
	return model.OptimizationMethod{}, fmt.Errorf("optimization method %s: %w", id, store.ErrNotFound)
}

func (s *Scheduler) findTemplate(ctx context.Context, id string) (model.ShiftTemplate, error) {
	if id == "" {
		return model.ShiftTemplate{}, errors.New("plan has no shift template")
	}
	templates, err := s.store.GetShiftTemplates(ctx)
	if err != nil {
		return model.ShiftTemplate{}, err
	}
	for _, t := range templates {
		if t.ID != id {
			continue
		}
		if t.PaidMinutes <= 0 {
			return model.ShiftTemplate{}, fmt.Errorf("shift template %s has no paid time", id)
		}
		return t, nil
	}
	return model.ShiftTemplate{}, fmt.Errorf("shift template %s: %w", id, store.ErrNotFound)
}

// buildPool loads staff and keeps those holding at least one demanded
// skill. Pool order follows store order and feeds ranking tie-breaks.
func (s *Scheduler) buildPool(ctx context.Context, rows []model.CoverageRequirement) ([]candidate, error) {
	staff, err := s.store.GetAllStaff(ctx)
	if err != nil {
		return nil, err
	}
	links, err := s.store.GetStaffSkills(ctx)
	if err != nil {
		return nil, err
	}

	demanded := map[string]bool{}
	for _, r := range rows {
		demanded[r.SkillID] = true
	}
	byStaff := map[string][]string{}
	for _, l := range links {
		byStaff[l.StaffID] = append(byStaff[l.StaffID], l.SkillID)
	}

	pool := []candidate{}
	for i, st := range staff {
		skills := append([]string(nil), byStaff[st.ID]...)
		sort.Strings(skills)
		set := map[string]bool{}
		relevant := false
		for _, sk := range skills {
			set[sk] = true
			if demanded[sk] {
				relevant = true
			}
		}
		if !relevant {
			continue
		}
		pool = append(pool, candidate{staffID: st.ID, order: i, skills: skills, skillSet: set})
	}
	return pool, nil
}
