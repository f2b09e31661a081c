package model

import "time"

// Staffing engine inputs

type WorkloadInput struct {
	Volume          float64 `json:"volume"`
	AHTSeconds      float64 `json:"ahtSeconds"`
	IntervalMinutes int     `json:"intervalMinutes"`
}

type ServiceConstraints struct {
	TargetSLPercent  float64 `json:"targetSLPercent"`
	ThresholdSeconds float64 `json:"thresholdSeconds"`
	MaxOccupancy     float64 `json:"maxOccupancy"` // percent
}

type BehaviorParams struct {
	ShrinkagePercent       float64 `json:"shrinkagePercent"`
	AveragePatienceSeconds float64 `json:"averagePatienceSeconds,omitempty"`
	Concurrency            float64 `json:"concurrency,omitempty"`
}

type CalcRequest struct {
	Workload             WorkloadInput      `json:"workload"`
	Constraints          ServiceConstraints `json:"constraints"`
	Behavior             BehaviorParams     `json:"behavior"`
	Model                string             `json:"model,omitempty"` // erlang_b, erlang_c, erlang_a, erlang_x
	ProductivityModifier float64            `json:"productivityModifier,omitempty"`
	FixedAgents          int                `json:"fixedAgents,omitempty"`
}

// EngineResult is one staffing answer: either the solved minimum agent count
// or the metrics achievable at a fixed headcount. Recomputed on every call.
type EngineResult struct {
	Model                string   `json:"model"`
	TrafficIntensity     float64  `json:"trafficIntensity"`
	RequiredAgents       int      `json:"requiredAgents"`
	TotalFTE             float64  `json:"totalFTE"`
	EffectiveShrinkage   float64  `json:"effectiveShrinkage"`
	ServiceLevel         float64  `json:"serviceLevel"` // percent
	ASASeconds           float64  `json:"asaSeconds"`   // -1 when the system is unstable at this agent count
	Occupancy            float64  `json:"occupancy"`    // percent
	AbandonmentRate      *float64 `json:"abandonmentRate,omitempty"` // percent, models A/X
	ExpectedAbandonments *float64 `json:"expectedAbandonments,omitempty"`
	RetrialProbability   *float64 `json:"retrialProbability,omitempty"` // model X
	VirtualTraffic       *float64 `json:"virtualTraffic,omitempty"`     // model X
	CanAchieveTarget     bool     `json:"canAchieveTarget"`
	Converged            bool     `json:"converged"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type CalcResult struct {
	Required   *EngineResult `json:"required"`
	Achievable *EngineResult `json:"achievable,omitempty"`
	Errors     []FieldError  `json:"errors,omitempty"`
}

// Scheduling domain

type Skill struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"` // channel type: voice, chat, email
}

type Campaign struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ChannelType string `json:"channelType,omitempty"`
	ScenarioID  string `json:"scenarioId,omitempty"`
	Model       string `json:"model,omitempty"` // optional Erlang model override
}

type Forecast struct {
	ID         string  `json:"id"`
	ScenarioID string  `json:"scenarioId"`
	Date       string  `json:"date"` // YYYY-MM-DD
	Volume     float64 `json:"volume"`
	AHTSeconds float64 `json:"ahtSeconds,omitempty"`
}

type SchedulePlan struct {
	ID               string  `json:"id"`
	CampaignID       string  `json:"campaignId"`
	Name             string  `json:"name,omitempty"`
	StartDate        string  `json:"startDate"`
	EndDate          string  `json:"endDate"`
	IntervalMinutes  int     `json:"intervalMinutes"`
	DayStartMinute   int     `json:"dayStartMinute"` // minutes from midnight
	DayEndMinute     int     `json:"dayEndMinute"`
	ShiftTemplateID  string  `json:"shiftTemplateId"`
	MaxWeeklyHours   float64 `json:"maxWeeklyHours"`
	MinRestHours     float64 `json:"minRestHours"`
	AllowSkillSwitch bool    `json:"allowSkillSwitch"`
	BreakWindowStart int     `json:"breakWindowStart"` // minutes from shift start
	BreakWindowEnd   int     `json:"breakWindowEnd"`
	LunchWindowStart int     `json:"lunchWindowStart"`
	LunchWindowEnd   int     `json:"lunchWindowEnd"`
	HourlyCost       float64 `json:"hourlyCost,omitempty"`
}

type ShiftTemplate struct {
	ID            string `json:"id"`
	Name          string `json:"name,omitempty"`
	PaidMinutes   int    `json:"paidMinutes"`
	UnpaidMinutes int    `json:"unpaidMinutes"`
	BreakCount    int    `json:"breakCount"`
	BreakMinutes  int    `json:"breakMinutes"`
}

type Staff struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

type StaffSkill struct {
	StaffID string `json:"staffId"`
	SkillID string `json:"skillId"`
}

// OptimizationMethod selects assignment behavior: constraint-enforcing
// methods skip infeasible candidates, unconstrained ones assign anyway and
// record violations.
type OptimizationMethod struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	EnforceConstraints bool   `json:"enforceConstraints"`
}

// Schedule run lifecycle

const (
	RunQueued    = "queued"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

type ScheduleRun struct {
	ID          string     `json:"id"`
	PlanID      string     `json:"planId"`
	MethodID    string     `json:"methodId"`
	RunGroupID  string     `json:"runGroupId,omitempty"`
	Label       string     `json:"label,omitempty"` // A or B within a run group
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

type RunRequest struct {
	PlanID     string `json:"planId"`
	MethodID   string `json:"methodId"`
	RunGroupID string `json:"runGroupId,omitempty"`
	Label      string `json:"label,omitempty"`
}

// CoverageRequirement rows are keyed by (plan, date, interval, skill); a
// generation run replaces all rows for a plan.
type CoverageRequirement struct {
	PlanID           string `json:"planId"`
	Date             string `json:"date"`
	StartMinute      int    `json:"startMinute"`
	EndMinute        int    `json:"endMinute"`
	SkillID          string `json:"skillId"`
	RequiredAgents   int    `json:"requiredAgents"`
	SourceForecastID string `json:"sourceForecastId,omitempty"`
}

const (
	SegmentWork  = "work"
	SegmentBreak = "break"
	SegmentLunch = "lunch"
)

type Shift struct {
	ID          string `json:"id"`
	RunID       string `json:"runId"`
	StaffID     string `json:"staffId"`
	TemplateID  string `json:"templateId"`
	Date        string `json:"date"`
	StartMinute int    `json:"startMinute"` // minutes from midnight
	EndMinute   int    `json:"endMinute"`
}

type ShiftSegment struct {
	ID          string `json:"id"`
	ShiftID     string `json:"shiftId"`
	Type        string `json:"type"` // work, break, lunch
	StartMinute int    `json:"startMinute"`
	EndMinute   int    `json:"endMinute"`
	SkillID     string `json:"skillId,omitempty"`
	Paid        bool   `json:"paid"`
}

type ScheduleMetric struct {
	RunID            string  `json:"runId"`
	CoveragePercent  float64 `json:"coveragePercent"`
	GapMinutes       int     `json:"gapMinutes"`
	OverstaffMinutes int     `json:"overstaffMinutes"`
	OvertimeMinutes  int     `json:"overtimeMinutes"`
	ViolationsCount  int     `json:"violationsCount"`
	TotalPaidMinutes int     `json:"totalPaidMinutes"`
	CostEstimate     float64 `json:"costEstimate"`
}

const (
	ViolationRest        = "rest"
	ViolationWeeklyHours = "weekly_hours"
	ViolationCoverage    = "coverage"
)

type ScheduleViolation struct {
	ID      string `json:"id"`
	RunID   string `json:"runId"`
	StaffID string `json:"staffId,omitempty"`
	Date    string `json:"date,omitempty"`
	Type    string `json:"type"`
	Details string `json:"details,omitempty"`
}

// Read models for run comparison

type ComparisonRow struct {
	Metric string `json:"metric"`
	A      string `json:"a"`
	B      string `json:"b"`
	Delta  string `json:"delta"`
}

type RunComparison struct {
	RunGroupID string          `json:"runGroupId"`
	RunA       *ScheduleRun    `json:"runA,omitempty"`
	RunB       *ScheduleRun    `json:"runB,omitempty"`
	Rows       []ComparisonRow `json:"rows"`
}
