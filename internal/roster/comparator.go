package roster

import (
	"context"
	"fmt"

	"staffplan/internal/model"
	"staffplan/internal/store"
)

var comparisonFields = []struct {
	name   string
	value  func(model.ScheduleMetric) float64
	format func(float64) string
	delta  func(float64) string
}{
	{"coveragePercent", func(m model.ScheduleMetric) float64 { return m.CoveragePercent }, fmtPercent, deltaPercent},
	{"gapMinutes", func(m model.ScheduleMetric) float64 { return float64(m.GapMinutes) }, fmtMinutes, deltaMinutes},
	{"overstaffMinutes", func(m model.ScheduleMetric) float64 { return float64(m.OverstaffMinutes) }, fmtMinutes, deltaMinutes},
	{"overtimeMinutes", func(m model.ScheduleMetric) float64 { return float64(m.OvertimeMinutes) }, fmtMinutes, deltaMinutes},
	{"violationsCount", func(m model.ScheduleMetric) float64 { return float64(m.ViolationsCount) }, fmtCount, deltaCount},
	{"totalPaidMinutes", func(m model.ScheduleMetric) float64 { return float64(m.TotalPaidMinutes) }, fmtMinutes, deltaMinutes},
	{"costEstimate", func(m model.ScheduleMetric) float64 { return m.CostEstimate }, fmtMoney, deltaMoney},
}

func fmtPercent(v float64) string   { return fmt.Sprintf("%.1f%%", v) }
func deltaPercent(v float64) string { return fmt.Sprintf("%+.1f%%", v) }
func fmtMinutes(v float64) string   { return fmt.Sprintf("%.0f min", v) }
func deltaMinutes(v float64) string { return fmt.Sprintf("%+.0f min", v) }
func fmtCount(v float64) string     { return fmt.Sprintf("%.0f", v) }
func deltaCount(v float64) string   { return fmt.Sprintf("%+.0f", v) }
func fmtMoney(v float64) string     { return fmt.Sprintf("$%.2f", v) }
func deltaMoney(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("+$%.2f", v)
}

// Compare builds the A/B metric table for a run group. Sides are matched
// by run label, falling back to creation order; a missing side or missing
// metrics render as "---" in every cell they would fill, and the delta is
// B minus A.
func Compare(ctx context.Context, st store.Store, runGroupID string) (model.RunComparison, error) {
	runs, err := st.GetRunsByGroup(ctx, runGroupID)
	if err != nil {
		return model.RunComparison{}, err
	}
	if len(runs) == 0 {
		return model.RunComparison{}, store.ErrNotFound
	}

	out := model.RunComparison{RunGroupID: runGroupID, Rows: []model.ComparisonRow{}}
	for i := range runs {
		switch runs[i].Label {
		case "A":
			if out.RunA == nil {
				out.RunA = &runs[i]
			}
		case "B":
			if out.RunB == nil {
				out.RunB = &runs[i]
			}
		}
	}
	if out.RunA == nil {
		for i := range runs {
			if out.RunB == nil || runs[i].ID != out.RunB.ID {
				out.RunA = &runs[i]
				break
			}
		}
	}
	if out.RunB == nil && out.RunA != nil {
		for i := range runs {
			if runs[i].ID != out.RunA.ID {
				out.RunB = &runs[i]
				break
			}
		}
	}

	var ma, mb *model.ScheduleMetric
	if out.RunA != nil {
		if m, err := st.GetScheduleMetrics(ctx, out.RunA.ID); err == nil {
			ma = &m
		}
	}
	if out.RunB != nil {
		if m, err := st.GetScheduleMetrics(ctx, out.RunB.ID); err == nil {
			mb = &m
		}
	}

	for _, f := range comparisonFields {
		row := model.ComparisonRow{Metric: f.name, A: "---", B: "---", Delta: "---"}
		if ma != nil {
			row.A = f.format(f.value(*ma))
		}
		if mb != nil {
			row.B = f.format(f.value(*mb))
		}
		if ma != nil && mb != nil {
			row.Delta = f.delta(f.value(*mb) - f.value(*ma))
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}
