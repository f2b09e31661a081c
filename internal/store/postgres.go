package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"staffplan/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Ping reports whether the database connection is usable. The readiness
// endpoint calls this.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// MigrateDir applies the .sql files in dir in name order, recording applied
// files in schema_migrations so restarts are safe.
func (p *Postgres) MigrateDir(dir string) error {
	if _, err := p.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
        name text PRIMARY KEY,
        applied_at timestamptz NOT NULL DEFAULT now()
    )`); err != nil {
		return err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		var applied bool
		if err := p.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name=$1)`, name).Scan(&applied); err != nil {
			return err
		}
		if applied {
			continue
		}
		body, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return err
		}
		if _, err := p.db.Exec(string(body)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		if _, err := p.db.Exec(`INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
			return err
		}
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Planning reference data

func (p *Postgres) GetCampaign(ctx context.Context, id string) (model.Campaign, error) {
	var c model.Campaign
	var channel, scenario, mdl sql.NullString
	row := p.db.QueryRowContext(ctx, `SELECT id, name, channel_type, scenario_id, model FROM campaigns WHERE id=$1`, id)
	if err := row.Scan(&c.ID, &c.Name, &channel, &scenario, &mdl); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c, ErrNotFound
		}
		return c, err
	}
	c.ChannelType = channel.String
	c.ScenarioID = scenario.String
	c.Model = mdl.String
	return c, nil
}

func (p *Postgres) GetSchedulePlan(ctx context.Context, id string) (model.SchedulePlan, error) {
	var sp model.SchedulePlan
	var name, tmpl sql.NullString
	var hourly sql.NullFloat64
	row := p.db.QueryRowContext(ctx, `SELECT id, campaign_id, name, start_date::text, end_date::text,
        interval_minutes, day_start_minute, day_end_minute, shift_template_id,
        max_weekly_hours, min_rest_hours, allow_skill_switch,
        break_window_start, break_window_end, lunch_window_start, lunch_window_end, hourly_cost
        FROM schedule_plans WHERE id=$1`, id)
	if err := row.Scan(&sp.ID, &sp.CampaignID, &name, &sp.StartDate, &sp.EndDate,
		&sp.IntervalMinutes, &sp.DayStartMinute, &sp.DayEndMinute, &tmpl,
		&sp.MaxWeeklyHours, &sp.MinRestHours, &sp.AllowSkillSwitch,
		&sp.BreakWindowStart, &sp.BreakWindowEnd, &sp.LunchWindowStart, &sp.LunchWindowEnd, &hourly); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sp, ErrNotFound
		}
		return sp, err
	}
	sp.Name = name.String
	sp.ShiftTemplateID = tmpl.String
	sp.HourlyCost = hourly.Float64
	return sp, nil
}

func (p *Postgres) GetForecasts(ctx context.Context, scenarioID, fromDate, toDate string) ([]model.Forecast, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, scenario_id, date::text, volume, COALESCE(aht_seconds, 0)
        FROM forecasts WHERE scenario_id=$1 AND date BETWEEN $2::date AND $3::date ORDER BY date`,
		scenarioID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Forecast{}
	for rows.Next() {
		var f model.Forecast
		if err := rows.Scan(&f.ID, &f.ScenarioID, &f.Date, &f.Volume, &f.AHTSeconds); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (p *Postgres) GetSkills(ctx context.Context) ([]model.Skill, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, name, COALESCE(type, '') FROM skills ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Skill{}
	for rows.Next() {
		var s model.Skill
		if err := rows.Scan(&s.ID, &s.Name, &s.Type); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) GetAllStaff(ctx context.Context) ([]model.Staff, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, COALESCE(name, '') FROM staff ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Staff{}
	for rows.Next() {
		var s model.Staff
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) GetStaffSkills(ctx context.Context) ([]model.StaffSkill, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT staff_id, skill_id FROM staff_skills ORDER BY staff_id, skill_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.StaffSkill{}
	for rows.Next() {
		var l model.StaffSkill
		if err := rows.Scan(&l.StaffID, &l.SkillID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (p *Postgres) GetShiftTemplates(ctx context.Context) ([]model.ShiftTemplate, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, COALESCE(name, ''), paid_minutes, unpaid_minutes, break_count, break_minutes
        FROM shift_templates ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ShiftTemplate{}
	for rows.Next() {
		var t model.ShiftTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.PaidMinutes, &t.UnpaidMinutes, &t.BreakCount, &t.BreakMinutes); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *Postgres) GetOptimizationMethods(ctx context.Context) ([]model.OptimizationMethod, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, name, enforce_constraints FROM optimization_methods ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.OptimizationMethod{}
	for rows.Next() {
		var om model.OptimizationMethod
		if err := rows.Scan(&om.ID, &om.Name, &om.EnforceConstraints); err != nil {
			return nil, err
		}
		out = append(out, om)
	}
	return out, rows.Err()
}

// Coverage requirements

func (p *Postgres) GetCoverageRequirements(ctx context.Context, planID string) ([]model.CoverageRequirement, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT plan_id, date::text, start_minute, end_minute, skill_id, required_agents, COALESCE(source_forecast_id, '')
        FROM coverage_requirements WHERE plan_id=$1 ORDER BY date, start_minute, skill_id`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.CoverageRequirement{}
	for rows.Next() {
		var r model.CoverageRequirement
		if err := rows.Scan(&r.PlanID, &r.Date, &r.StartMinute, &r.EndMinute, &r.SkillID, &r.RequiredAgents, &r.SourceForecastID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *Postgres) ReplaceCoverageRequirements(ctx context.Context, planID string, rows []model.CoverageRequirement) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM coverage_requirements WHERE plan_id=$1`, planID); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := tx.ExecContext(ctx, `INSERT INTO coverage_requirements
            (plan_id, date, start_minute, end_minute, skill_id, required_agents, source_forecast_id)
            VALUES ($1,$2::date,$3,$4,$5,$6,$7)`,
			planID, r.Date, r.StartMinute, r.EndMinute, r.SkillID, r.RequiredAgents, nullIfEmpty(r.SourceForecastID)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Schedule runs

func scanRun(sc interface{ Scan(dest ...any) error }) (model.ScheduleRun, error) {
	var r model.ScheduleRun
	var group, label, errMsg sql.NullString
	var started, completed sql.NullTime
	if err := sc.Scan(&r.ID, &r.PlanID, &r.MethodID, &group, &label, &r.Status, &errMsg, &started, &completed); err != nil {
		return r, err
	}
	r.RunGroupID = group.String
	r.Label = label.String
	r.Error = errMsg.String
	if started.Valid {
		t := started.Time
		r.StartedAt = &t
	}
	if completed.Valid {
		t := completed.Time
		r.CompletedAt = &t
	}
	return r, nil
}

const runColumns = `id, plan_id, method_id, run_group_id, label, status, error, started_at, completed_at`

func (p *Postgres) CreateScheduleRun(ctx context.Context, run model.ScheduleRun) (model.ScheduleRun, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Status == "" {
		run.Status = model.RunQueued
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO schedule_runs
        (id, plan_id, method_id, run_group_id, label, status, started_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		run.ID, run.PlanID, run.MethodID, nullIfEmpty(run.RunGroupID), nullIfEmpty(run.Label), run.Status, run.StartedAt)
	if err != nil {
		return model.ScheduleRun{}, err
	}
	return run, nil
}

func (p *Postgres) GetScheduleRun(ctx context.Context, id string) (model.ScheduleRun, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM schedule_runs WHERE id=$1`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

func (p *Postgres) GetRunsByGroup(ctx context.Context, runGroupID string) ([]model.ScheduleRun, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+runColumns+` FROM schedule_runs WHERE run_group_id=$1 ORDER BY created_at`, runGroupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ScheduleRun{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// NextQueuedRun claims the oldest queued run with SKIP LOCKED so multiple
// workers never grab the same run.
func (p *Postgres) NextQueuedRun(ctx context.Context) (model.ScheduleRun, error) {
	row := p.db.QueryRowContext(ctx, `UPDATE schedule_runs SET status='running', started_at=now()
        WHERE id = (
            SELECT id FROM schedule_runs WHERE status='queued'
            ORDER BY created_at LIMIT 1
            FOR UPDATE SKIP LOCKED
        )
        RETURNING `+runColumns)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrNotFound
	}
	return r, err
}

func (p *Postgres) UpdateScheduleRunStatus(ctx context.Context, id, status string, startedAt, completedAt *time.Time, errMsg string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE schedule_runs SET
        status=$2,
        started_at=COALESCE($3, started_at),
        completed_at=COALESCE($4, completed_at),
        error=CASE WHEN $5 <> '' THEN $5 ELSE error END
        WHERE id=$1`, id, status, startedAt, completedAt, errMsg)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ClearScheduleRunData(ctx context.Context, runID string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmts := []string{
		`DELETE FROM shift_segments WHERE shift_id IN (SELECT id FROM shifts WHERE run_id=$1)`,
		`DELETE FROM shifts WHERE run_id=$1`,
		`DELETE FROM schedule_metrics WHERE run_id=$1`,
		`DELETE FROM schedule_violations WHERE run_id=$1`,
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q, runID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Run output

func (p *Postgres) CreateShift(ctx context.Context, shift model.Shift) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO shifts
        (id, run_id, staff_id, template_id, date, start_minute, end_minute)
        VALUES ($1,$2,$3,$4,$5::date,$6,$7)`,
		shift.ID, shift.RunID, shift.StaffID, nullIfEmpty(shift.TemplateID), shift.Date, shift.StartMinute, shift.EndMinute)
	return err
}

func (p *Postgres) CreateShiftSegments(ctx context.Context, segments []model.ShiftSegment) error {
	if len(segments) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, s := range segments {
		if _, err := tx.ExecContext(ctx, `INSERT INTO shift_segments
            (id, shift_id, type, start_minute, end_minute, skill_id, paid)
            VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			s.ID, s.ShiftID, s.Type, s.StartMinute, s.EndMinute, nullIfEmpty(s.SkillID), s.Paid); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *Postgres) GetShifts(ctx context.Context, runID string) ([]model.Shift, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, run_id, staff_id, COALESCE(template_id, ''), date::text, start_minute, end_minute
        FROM shifts WHERE run_id=$1 ORDER BY date, staff_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Shift{}
	for rows.Next() {
		var s model.Shift
		if err := rows.Scan(&s.ID, &s.RunID, &s.StaffID, &s.TemplateID, &s.Date, &s.StartMinute, &s.EndMinute); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) GetShiftSegments(ctx context.Context, runID string) ([]model.ShiftSegment, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT seg.id, seg.shift_id, seg.type, seg.start_minute, seg.end_minute, COALESCE(seg.skill_id, ''), seg.paid
        FROM shift_segments seg
        JOIN shifts sh ON sh.id = seg.shift_id
        WHERE sh.run_id=$1 ORDER BY sh.date, seg.shift_id, seg.start_minute`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ShiftSegment{}
	for rows.Next() {
		var s model.ShiftSegment
		if err := rows.Scan(&s.ID, &s.ShiftID, &s.Type, &s.StartMinute, &s.EndMinute, &s.SkillID, &s.Paid); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (p *Postgres) SaveScheduleMetrics(ctx context.Context, metric model.ScheduleMetric) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO schedule_metrics
        (run_id, coverage_percent, gap_minutes, overstaff_minutes, overtime_minutes, violations_count, total_paid_minutes, cost_estimate)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (run_id) DO UPDATE SET
            coverage_percent=EXCLUDED.coverage_percent,
            gap_minutes=EXCLUDED.gap_minutes,
            overstaff_minutes=EXCLUDED.overstaff_minutes,
            overtime_minutes=EXCLUDED.overtime_minutes,
            violations_count=EXCLUDED.violations_count,
            total_paid_minutes=EXCLUDED.total_paid_minutes,
            cost_estimate=EXCLUDED.cost_estimate`,
		metric.RunID, metric.CoveragePercent, metric.GapMinutes, metric.OverstaffMinutes,
		metric.OvertimeMinutes, metric.ViolationsCount, metric.TotalPaidMinutes, metric.CostEstimate)
	return err
}

func (p *Postgres) GetScheduleMetrics(ctx context.Context, runID string) (model.ScheduleMetric, error) {
	var m model.ScheduleMetric
	row := p.db.QueryRowContext(ctx, `SELECT run_id, coverage_percent, gap_minutes, overstaff_minutes, overtime_minutes, violations_count, total_paid_minutes, cost_estimate
        FROM schedule_metrics WHERE run_id=$1`, runID)
	if err := row.Scan(&m.RunID, &m.CoveragePercent, &m.GapMinutes, &m.OverstaffMinutes, &m.OvertimeMinutes, &m.ViolationsCount, &m.TotalPaidMinutes, &m.CostEstimate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return m, ErrNotFound
		}
		return m, err
	}
	return m, nil
}

func (p *Postgres) SaveScheduleViolations(ctx context.Context, violations []model.ScheduleViolation) error {
	if len(violations) == 0 {
		return nil
	}
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, v := range violations {
		if v.ID == "" {
			v.ID = uuid.New().String()
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schedule_violations
            (id, run_id, staff_id, date, type, details)
            VALUES ($1,$2,$3,$4::date,$5,$6)`,
			v.ID, v.RunID, nullIfEmpty(v.StaffID), nullIfEmpty(v.Date), v.Type, nullIfEmpty(v.Details)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (p *Postgres) GetScheduleViolations(ctx context.Context, runID string) ([]model.ScheduleViolation, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, run_id, COALESCE(staff_id, ''), COALESCE(date::text, ''), type, COALESCE(details, '')
        FROM schedule_violations WHERE run_id=$1 ORDER BY date, staff_id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.ScheduleViolation{}
	for rows.Next() {
		var v model.ScheduleViolation
		if err := rows.Scan(&v.ID, &v.RunID, &v.StaffID, &v.Date, &v.Type, &v.Details); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
