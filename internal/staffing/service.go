// Package staffing turns workload requests into agent requirements. It is a
// pure computation layer: no storage, no transport, and it never returns a
// Go error. Bad inputs come back as field errors so callers can surface
// them verbatim.
package staffing

import (
	"math"

	"staffplan/internal/erlang"
	"staffplan/internal/model"
)

// Calculate evaluates one staffing request. The required result is always
// solved for the minimum agent count; when fixedAgents is set and there is
// volume, an achievable result at that headcount is included as well.
func Calculate(req model.CalcRequest) model.CalcResult {
	if errs := Validate(req); len(errs) > 0 {
		return model.CalcResult{Errors: errs}
	}

	mdl, _ := erlang.ParseModel(req.Model)

	modifier := req.ProductivityModifier
	if modifier == 0 {
		modifier = 1
	}
	shrink := 100 - (100-req.Behavior.ShrinkagePercent)*modifier

	concurrency := req.Behavior.Concurrency
	if concurrency == 0 {
		concurrency = 1
	}
	effectiveAHT := req.Workload.AHTSeconds / concurrency

	if req.Workload.Volume == 0 {
		res := zeroVolume(mdl, shrink)
		return model.CalcResult{Required: &res}
	}

	in := erlang.Inputs{
		Traffic:          erlang.TrafficIntensity(req.Workload.Volume, effectiveAHT, float64(req.Workload.IntervalMinutes)*60),
		AHTSeconds:       effectiveAHT,
		ThresholdSeconds: req.Constraints.ThresholdSeconds,
		PatienceSeconds:  req.Behavior.AveragePatienceSeconds,
	}
	targetSL := req.Constraints.TargetSLPercent / 100
	maxOcc := req.Constraints.MaxOccupancy / 100

	pt, achieved := erlang.SolveAgents(mdl, in, targetSL, maxOcc)
	required := buildResult(mdl, pt, in, shrink, req.Workload.Volume, achieved)
	out := model.CalcResult{Required: &required}

	if req.FixedAgents > 0 {
		fp := erlang.Evaluate(mdl, req.FixedAgents, in)
		ok := fp.ServiceLevel >= targetSL && fp.Occupancy <= maxOcc
		achievable := buildResult(mdl, fp, in, shrink, req.Workload.Volume, ok)
		out.Achievable = &achievable
	}
	return out
}

func buildResult(mdl erlang.Model, pt erlang.Point, in erlang.Inputs, shrink, volume float64, achieved bool) model.EngineResult {
	asa := pt.ASASeconds
	if math.IsInf(asa, 1) {
		asa = -1
	}
	res := model.EngineResult{
		Model:              mdl.String(),
		TrafficIntensity:   in.Traffic,
		RequiredAgents:     pt.Agents,
		EffectiveShrinkage: shrink,
		ServiceLevel:       pt.ServiceLevel * 100,
		ASASeconds:         asa,
		Occupancy:          pt.Occupancy * 100,
		CanAchieveTarget:   achieved,
		Converged:          pt.Converged,
	}
	if shrink < 100 {
		res.TotalFTE = float64(pt.Agents) / (1 - shrink/100)
	}
	if mdl == erlang.ErlangA || mdl == erlang.ErlangX {
		rate := pt.AbandonRate * 100
		expected := volume * pt.AbandonRate
		res.AbandonmentRate = &rate
		res.ExpectedAbandonments = &expected
	}
	if mdl == erlang.ErlangX {
		retrial := pt.Retrial
		virtual := pt.VirtualTraffic
		res.RetrialProbability = &retrial
		res.VirtualTraffic = &virtual
	}
	return res
}

// zeroVolume short-circuits the solver: with nothing arriving the service
// level is perfect and no agents are needed.
func zeroVolume(mdl erlang.Model, shrink float64) model.EngineResult {
	res := model.EngineResult{
		Model:              mdl.String(),
		EffectiveShrinkage: shrink,
		ServiceLevel:       100,
		CanAchieveTarget:   true,
		Converged:          true,
	}
	if mdl == erlang.ErlangA || mdl == erlang.ErlangX {
		zero := 0.0
		expected := 0.0
		res.AbandonmentRate = &zero
		res.ExpectedAbandonments = &expected
	}
	if mdl == erlang.ErlangX {
		retrial := 0.0
		virtual := 0.0
		res.RetrialProbability = &retrial
		res.VirtualTraffic = &virtual
	}
	return res
}
