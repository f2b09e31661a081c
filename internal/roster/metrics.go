package roster

import (
	"staffplan/internal/model"
)

// computeMetrics folds the coverage bookkeeping into the run's metric row.
// Gap and overstaff are measured in agent-minutes against the requirement
// grid; overtime sums the paid minutes above the weekly cap across staff
// weeks.
func computeMetrics(runID string, plan model.SchedulePlan, dm demand,
	covered map[string]map[int]map[string]int, weeklyPaid map[string]map[weekKey]int,
	violations, totalPaid int) model.ScheduleMetric {

	requiredTotal, gap, overstaff := 0, 0, 0
	for date, byStart := range dm.required {
		for start, bySkill := range byStart {
			for skill, agents := range bySkill {
				req := agents * dm.interval
				cov := covered[date][start][skill]
				requiredTotal += req
				if cov < req {
					gap += req - cov
				} else {
					overstaff += cov - req
				}
			}
		}
	}
	// Worked minutes with no matching requirement are pure overstaffing.
	for date, byStart := range covered {
		for start, bySkill := range byStart {
			for skill, cov := range bySkill {
				if _, ok := dm.required[date][start][skill]; !ok {
					overstaff += cov
				}
			}
		}
	}

	coverage := 0.0
	if requiredTotal > 0 {
		coverage = float64(requiredTotal-gap) / float64(requiredTotal) * 100
	}

	overtime := 0
	if maxWeekly := int(plan.MaxWeeklyHours * 60); maxWeekly > 0 {
		for _, weeks := range weeklyPaid {
			for _, mins := range weeks {
				if mins > maxWeekly {
					overtime += mins - maxWeekly
				}
			}
		}
	}

	rate := plan.HourlyCost
	if rate <= 0 {
		rate = DefaultHourlyCost
	}

	return model.ScheduleMetric{
		RunID:            runID,
		CoveragePercent:  coverage,
		GapMinutes:       gap,
		OverstaffMinutes: overstaff,
		OvertimeMinutes:  overtime,
		ViolationsCount:  violations,
		TotalPaidMinutes: totalPaid,
		CostEstimate:     float64(totalPaid) / 60 * rate,
	}
}
