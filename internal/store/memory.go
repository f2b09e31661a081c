package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"staffplan/internal/model"
)

// Memory is the in-memory store used when no DATABASE_URL is set. It is
// safe for concurrent use by the API server and the schedule worker.
type Memory struct {
	mu          sync.Mutex
	campaigns   map[string]model.Campaign
	plans       map[string]model.SchedulePlan
	forecasts   []model.Forecast
	skills      []model.Skill
	staff       []model.Staff
	staffSkills []model.StaffSkill
	templates   []model.ShiftTemplate
	methods     []model.OptimizationMethod
	coverage    map[string][]model.CoverageRequirement // planId -> rows
	runs        map[string]model.ScheduleRun
	runOrder    []string                        // creation order, drives queue claims
	shifts      map[string][]model.Shift        // runId -> shifts
	segments    map[string][]model.ShiftSegment // shiftId -> segments
	metrics     map[string]model.ScheduleMetric
	violations  map[string][]model.ScheduleViolation

	deliveries    map[string]WebhookDelivery
	deliveryOrder []string
}

func NewMemory() *Memory {
	return &Memory{
		campaigns:  map[string]model.Campaign{},
		plans:      map[string]model.SchedulePlan{},
		coverage:   map[string][]model.CoverageRequirement{},
		runs:       map[string]model.ScheduleRun{},
		shifts:     map[string][]model.Shift{},
		segments:   map[string][]model.ShiftSegment{},
		metrics:    map[string]model.ScheduleMetric{},
		violations: map[string][]model.ScheduleViolation{},
		deliveries: map[string]WebhookDelivery{},
	}
}

// Reference data setters, used by seeding and tests.

func (m *Memory) AddCampaign(c model.Campaign) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.campaigns[c.ID] = c
}

func (m *Memory) AddSchedulePlan(p model.SchedulePlan) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[p.ID] = p
}

func (m *Memory) AddForecast(f model.Forecast) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forecasts = append(m.forecasts, f)
}

func (m *Memory) AddSkill(s model.Skill) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skills = append(m.skills, s)
}

func (m *Memory) AddStaff(s model.Staff) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staff = append(m.staff, s)
}

func (m *Memory) AddStaffSkill(link model.StaffSkill) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.staffSkills = append(m.staffSkills, link)
}

func (m *Memory) AddShiftTemplate(t model.ShiftTemplate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates = append(m.templates, t)
}

func (m *Memory) AddOptimizationMethod(om model.OptimizationMethod) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.methods = append(m.methods, om)
}

// Reads

func (m *Memory) GetCampaign(ctx context.Context, id string) (model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return model.Campaign{}, ErrNotFound
	}
	return c, nil
}

func (m *Memory) GetSchedulePlan(ctx context.Context, id string) (model.SchedulePlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.plans[id]
	if !ok {
		return model.SchedulePlan{}, ErrNotFound
	}
	return p, nil
}

func (m *Memory) GetForecasts(ctx context.Context, scenarioID, fromDate, toDate string) ([]model.Forecast, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Forecast{}
	for _, f := range m.forecasts {
		if f.ScenarioID != scenarioID {
			continue
		}
		if f.Date < fromDate || f.Date > toDate {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (m *Memory) GetSkills(ctx context.Context) ([]model.Skill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Skill(nil), m.skills...), nil
}

func (m *Memory) GetAllStaff(ctx context.Context) ([]model.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Staff(nil), m.staff...), nil
}

func (m *Memory) GetStaffSkills(ctx context.Context) ([]model.StaffSkill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.StaffSkill(nil), m.staffSkills...), nil
}

func (m *Memory) GetShiftTemplates(ctx context.Context) ([]model.ShiftTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ShiftTemplate(nil), m.templates...), nil
}

func (m *Memory) GetOptimizationMethods(ctx context.Context) ([]model.OptimizationMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.OptimizationMethod(nil), m.methods...), nil
}

// Coverage requirements

func (m *Memory) GetCoverageRequirements(ctx context.Context, planID string) ([]model.CoverageRequirement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.CoverageRequirement(nil), m.coverage[planID]...), nil
}

func (m *Memory) ReplaceCoverageRequirements(ctx context.Context, planID string, rows []model.CoverageRequirement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coverage[planID] = append([]model.CoverageRequirement(nil), rows...)
	return nil
}

// Schedule runs

func (m *Memory) CreateScheduleRun(ctx context.Context, run model.ScheduleRun) (model.ScheduleRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Status == "" {
		run.Status = model.RunQueued
	}
	m.runs[run.ID] = run
	m.runOrder = append(m.runOrder, run.ID)
	return run, nil
}

func (m *Memory) GetScheduleRun(ctx context.Context, id string) (model.ScheduleRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return model.ScheduleRun{}, ErrNotFound
	}
	return r, nil
}

func (m *Memory) GetRunsByGroup(ctx context.Context, runGroupID string) ([]model.ScheduleRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.ScheduleRun{}
	for _, id := range m.runOrder {
		if r := m.runs[id]; r.RunGroupID == runGroupID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) NextQueuedRun(ctx context.Context) (model.ScheduleRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.runOrder {
		r := m.runs[id]
		if r.Status != model.RunQueued {
			continue
		}
		now := time.Now().UTC()
		r.Status = model.RunRunning
		r.StartedAt = &now
		m.runs[id] = r
		return r, nil
	}
	return model.ScheduleRun{}, ErrNotFound
}

func (m *Memory) UpdateScheduleRunStatus(ctx context.Context, id, status string, startedAt, completedAt *time.Time, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return ErrNotFound
	}
	r.Status = status
	if startedAt != nil {
		r.StartedAt = startedAt
	}
	if completedAt != nil {
		r.CompletedAt = completedAt
	}
	if errMsg != "" {
		r.Error = errMsg
	}
	m.runs[id] = r
	return nil
}

func (m *Memory) ClearScheduleRunData(ctx context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sh := range m.shifts[runID] {
		delete(m.segments, sh.ID)
	}
	delete(m.shifts, runID)
	delete(m.metrics, runID)
	delete(m.violations, runID)
	return nil
}

// Run output

func (m *Memory) CreateShift(ctx context.Context, shift model.Shift) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shifts[shift.RunID] = append(m.shifts[shift.RunID], shift)
	return nil
}

func (m *Memory) CreateShiftSegments(ctx context.Context, segments []model.ShiftSegment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, seg := range segments {
		m.segments[seg.ShiftID] = append(m.segments[seg.ShiftID], seg)
	}
	return nil
}

func (m *Memory) GetShifts(ctx context.Context, runID string) ([]model.Shift, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Shift(nil), m.shifts[runID]...), nil
}

func (m *Memory) GetShiftSegments(ctx context.Context, runID string) ([]model.ShiftSegment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.ShiftSegment{}
	for _, sh := range m.shifts[runID] {
		out = append(out, m.segments[sh.ID]...)
	}
	return out, nil
}

func (m *Memory) SaveScheduleMetrics(ctx context.Context, metric model.ScheduleMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics[metric.RunID] = metric
	return nil
}

func (m *Memory) GetScheduleMetrics(ctx context.Context, runID string) (model.ScheduleMetric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mt, ok := m.metrics[runID]
	if !ok {
		return model.ScheduleMetric{}, ErrNotFound
	}
	return mt, nil
}

func (m *Memory) SaveScheduleViolations(ctx context.Context, violations []model.ScheduleViolation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range violations {
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
		m.violations[v.RunID] = append(m.violations[v.RunID], v)
	}
	return nil
}

func (m *Memory) GetScheduleViolations(ctx context.Context, runID string) ([]model.ScheduleViolation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.ScheduleViolation(nil), m.violations[runID]...), nil
}
