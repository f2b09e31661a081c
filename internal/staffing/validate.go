package staffing

import (
	"math"

	"staffplan/internal/erlang"
	"staffplan/internal/model"
)

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks a calculation request and returns one error per offending
// field. An empty slice means the request is safe to evaluate.
func Validate(req model.CalcRequest) []model.FieldError {
	var errs []model.FieldError
	add := func(field, msg string) {
		errs = append(errs, model.FieldError{Field: field, Message: msg})
	}

	if !finite(req.Workload.Volume) || req.Workload.Volume < 0 {
		add("workload.volume", "volume must be a non-negative number")
	}
	if !finite(req.Workload.AHTSeconds) || req.Workload.AHTSeconds <= 0 {
		add("workload.ahtSeconds", "average handle time must be greater than zero")
	}
	if req.Workload.IntervalMinutes <= 0 || req.Workload.IntervalMinutes > 60 {
		add("workload.intervalMinutes", "interval must be between 1 and 60 minutes")
	}

	if !finite(req.Constraints.TargetSLPercent) || req.Constraints.TargetSLPercent < 0 || req.Constraints.TargetSLPercent > 100 {
		add("constraints.targetSLPercent", "service level target must be between 0 and 100")
	}
	if !finite(req.Constraints.ThresholdSeconds) || req.Constraints.ThresholdSeconds <= 0 {
		add("constraints.thresholdSeconds", "answer threshold must be greater than zero")
	}
	if !finite(req.Constraints.MaxOccupancy) || req.Constraints.MaxOccupancy < 50 || req.Constraints.MaxOccupancy > 100 {
		add("constraints.maxOccupancy", "max occupancy must be between 50 and 100")
	}

	if !finite(req.Behavior.ShrinkagePercent) || req.Behavior.ShrinkagePercent < 0 || req.Behavior.ShrinkagePercent >= 100 {
		add("behavior.shrinkagePercent", "shrinkage must be at least 0 and below 100")
	}
	if req.Behavior.Concurrency != 0 && (!finite(req.Behavior.Concurrency) || req.Behavior.Concurrency < 1) {
		add("behavior.concurrency", "concurrency must be 1 or higher")
	}

	mdl, ok := erlang.ParseModel(req.Model)
	if !ok {
		add("model", "model must be one of erlang_b, erlang_c, erlang_a, erlang_x")
	}
	if ok && (mdl == erlang.ErlangA || mdl == erlang.ErlangX) {
		if !finite(req.Behavior.AveragePatienceSeconds) || req.Behavior.AveragePatienceSeconds <= 0 {
			add("behavior.averagePatienceSeconds", "patience must be greater than zero for abandonment models")
		}
	}

	if req.ProductivityModifier != 0 && (!finite(req.ProductivityModifier) || req.ProductivityModifier <= 0 || req.ProductivityModifier > 1) {
		add("productivityModifier", "productivity modifier must be within (0, 1]")
	}
	if req.FixedAgents < 0 {
		add("fixedAgents", "fixed agent count cannot be negative")
	}

	return errs
}
