package store

import (
	"context"
	"errors"
	"time"

	"staffplan/internal/model"
)

// Store is the persistence interface used by the API server, the coverage
// generator, and the schedule worker.
type Store interface {
	// Planning reference data
	GetCampaign(ctx context.Context, id string) (model.Campaign, error)
	GetSchedulePlan(ctx context.Context, id string) (model.SchedulePlan, error)
	GetForecasts(ctx context.Context, scenarioID, fromDate, toDate string) ([]model.Forecast, error)
	GetSkills(ctx context.Context) ([]model.Skill, error)
	GetAllStaff(ctx context.Context) ([]model.Staff, error)
	GetStaffSkills(ctx context.Context) ([]model.StaffSkill, error)
	GetShiftTemplates(ctx context.Context) ([]model.ShiftTemplate, error)
	GetOptimizationMethods(ctx context.Context) ([]model.OptimizationMethod, error)

	// Coverage requirements, replaced as a set per plan
	GetCoverageRequirements(ctx context.Context, planID string) ([]model.CoverageRequirement, error)
	ReplaceCoverageRequirements(ctx context.Context, planID string, rows []model.CoverageRequirement) error

	// Schedule runs
	CreateScheduleRun(ctx context.Context, run model.ScheduleRun) (model.ScheduleRun, error)
	GetScheduleRun(ctx context.Context, id string) (model.ScheduleRun, error)
	GetRunsByGroup(ctx context.Context, runGroupID string) ([]model.ScheduleRun, error)
	// NextQueuedRun claims the oldest queued run, flipping it to running
	// in the same step. ErrNotFound means the queue is empty.
	NextQueuedRun(ctx context.Context) (model.ScheduleRun, error)
	UpdateScheduleRunStatus(ctx context.Context, id, status string, startedAt, completedAt *time.Time, errMsg string) error
	// ClearScheduleRunData removes shifts, segments, metrics, and
	// violations for a run; the run row itself stays.
	ClearScheduleRunData(ctx context.Context, runID string) error

	// Run output
	CreateShift(ctx context.Context, shift model.Shift) error
	CreateShiftSegments(ctx context.Context, segments []model.ShiftSegment) error
	GetShifts(ctx context.Context, runID string) ([]model.Shift, error)
	GetShiftSegments(ctx context.Context, runID string) ([]model.ShiftSegment, error)
	SaveScheduleMetrics(ctx context.Context, metric model.ScheduleMetric) error
	GetScheduleMetrics(ctx context.Context, runID string) (model.ScheduleMetric, error)
	SaveScheduleViolations(ctx context.Context, violations []model.ScheduleViolation) error
	GetScheduleViolations(ctx context.Context, runID string) ([]model.ScheduleViolation, error)

	// Webhook delivery queue
	EnqueueWebhookDelivery(ctx context.Context, d WebhookDelivery) (WebhookDelivery, error)
	// DueWebhookDeliveries returns pending deliveries whose next attempt
	// time has passed, oldest first.
	DueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, delivered bool, nextAttemptAt time.Time, lastError string, responseCode int) error
	FailWebhookDelivery(ctx context.Context, id, lastError string, responseCode int) error
}

var ErrNotFound = errors.New("not found")
