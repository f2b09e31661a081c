// Package erlang implements the queueing formulas behind the staffing
// engine: Erlang B (loss), Erlang C (queueing), Erlang A (abandonment),
// and Erlang X (abandonment with retrials).
package erlang

import "math"

// Model selects the formula family used to evaluate a staffing point.
type Model int

const (
	ErlangC Model = iota // queued, infinite patience
	ErlangB              // pure loss, no queue
	ErlangA              // queued with abandonment
	ErlangX              // abandonment plus retrials
)

func (m Model) String() string {
	switch m {
	case ErlangB:
		return "erlang_b"
	case ErlangA:
		return "erlang_a"
	case ErlangX:
		return "erlang_x"
	default:
		return "erlang_c"
	}
}

// ParseModel maps a wire name to a Model. The empty string selects Erlang C.
func ParseModel(s string) (Model, bool) {
	switch s {
	case "", "erlang_c":
		return ErlangC, true
	case "erlang_b":
		return ErlangB, true
	case "erlang_a":
		return ErlangA, true
	case "erlang_x":
		return ErlangX, true
	}
	return ErlangC, false
}

// Inputs carries the workload parameters shared by every formula family.
// Traffic is the offered load in Erlangs.
type Inputs struct {
	Traffic          float64
	AHTSeconds       float64
	ThresholdSeconds float64
	PatienceSeconds  float64 // models A and X only
}

// Point holds the evaluated metrics at a fixed agent count. Probabilities
// are fractions in [0,1]; ASASeconds is +Inf when the system is unstable.
type Point struct {
	Agents         int
	ServiceLevel   float64
	ASASeconds     float64
	Occupancy      float64
	AbandonRate    float64
	Retrial        float64
	VirtualTraffic float64
	Iterations     int
	Converged      bool
}

// TrafficIntensity converts an interval workload into offered Erlangs.
func TrafficIntensity(volume, ahtSeconds, intervalSeconds float64) float64 {
	if intervalSeconds <= 0 {
		return 0
	}
	return volume * ahtSeconds / intervalSeconds
}

// BlockingB computes the Erlang B blocking probability using the standard
// recurrence, which stays numerically stable at loads where the factorial
// form overflows.
func BlockingB(agents int, traffic float64) float64 {
	if traffic <= 0 {
		return 0
	}
	if agents <= 0 {
		return 1
	}
	b := 1.0
	for n := 1; n <= agents; n++ {
		b = traffic * b / (float64(n) + traffic*b)
	}
	return b
}

// WaitingC computes the Erlang C probability that an arrival has to wait.
// Returns 1 when agents <= traffic: the queue grows without bound.
func WaitingC(agents int, traffic float64) float64 {
	if traffic <= 0 {
		return 0
	}
	a := float64(agents)
	if a <= traffic {
		return 1
	}
	b := BlockingB(agents, traffic)
	return a * b / (a - traffic*(1-b))
}

func serviceLevelC(agents int, traffic, ahtSeconds, thresholdSeconds float64) float64 {
	a := float64(agents)
	if traffic <= 0 {
		return 1
	}
	if a <= traffic || ahtSeconds <= 0 {
		return 0
	}
	c := WaitingC(agents, traffic)
	sl := 1 - c*math.Exp(-(a-traffic)*thresholdSeconds/ahtSeconds)
	if sl < 0 {
		sl = 0
	}
	return sl
}

func asaC(agents int, traffic, ahtSeconds float64) float64 {
	if traffic <= 0 {
		return 0
	}
	a := float64(agents)
	if a <= traffic {
		return math.Inf(1)
	}
	return WaitingC(agents, traffic) * ahtSeconds / (a - traffic)
}

// abandonA approximates the Erlang A abandonment probability: the chance a
// queued arrival's wait exceeds its exponentially distributed patience,
// scaled by the waiting probability.
func abandonA(agents int, traffic, ahtSeconds, patienceSeconds float64) float64 {
	if traffic <= 0 {
		return 0
	}
	c := WaitingC(agents, traffic)
	a := float64(agents)
	if a <= traffic {
		return math.Min(1, c)
	}
	theta := 0.0
	if ahtSeconds > 0 {
		theta = patienceSeconds / ahtSeconds
	}
	p := c * math.Exp(-(a-traffic)*theta)
	if p > 1 {
		p = 1
	}
	if p < 0 {
		p = 0
	}
	return p
}

// Evaluate computes the staffing metrics for model m at a fixed agent count.
// Occupancy is always offered traffic over agents, independent of model.
func Evaluate(m Model, agents int, in Inputs) Point {
	pt := Point{Agents: agents, Converged: true}
	if agents <= 0 {
		if in.Traffic > 0 {
			pt.ASASeconds = math.Inf(1)
		} else {
			pt.ServiceLevel = 1
		}
		return pt
	}
	pt.Occupancy = in.Traffic / float64(agents)
	switch m {
	case ErlangB:
		// No queue: blocked contacts are lost, everyone else is served
		// immediately.
		pt.ServiceLevel = 1 - BlockingB(agents, in.Traffic)
		pt.ASASeconds = 0
	case ErlangA:
		ab := abandonA(agents, in.Traffic, in.AHTSeconds, in.PatienceSeconds)
		served := in.Traffic * (1 - ab)
		pt.AbandonRate = ab
		pt.ServiceLevel = serviceLevelC(agents, served, in.AHTSeconds, in.ThresholdSeconds)
		pt.ASASeconds = asaC(agents, served, in.AHTSeconds)
	case ErlangX:
		return equilibrium(agents, in)
	default:
		pt.ServiceLevel = serviceLevelC(agents, in.Traffic, in.AHTSeconds, in.ThresholdSeconds)
		pt.ASASeconds = asaC(agents, in.Traffic, in.AHTSeconds)
	}
	return pt
}

const (
	equilibriumTol     = 0.0001
	equilibriumMaxIter = 100
	virtualTrafficCap  = 3.0 // multiple of the base offered load
)

// equilibrium solves the Erlang X fixed point: abandonment feeds retrials,
// retrials inflate the offered load, and the inflated load changes
// abandonment. The loop stops once successive abandonment estimates differ
// by less than equilibriumTol; if the iteration cap is hit first the best
// estimate is returned with Converged=false.
func equilibrium(agents int, in Inputs) Point {
	pt := Point{Agents: agents}
	base := in.Traffic
	a := float64(agents)
	pt.Occupancy = base / a
	if base <= 0 {
		pt.ServiceLevel = 1
		pt.Converged = true
		return pt
	}

	abandon := 0.0
	retrial := 0.0
	virtual := base
	for i := 0; i < equilibriumMaxIter; i++ {
		pt.Iterations = i + 1

		asa := asaC(agents, virtual, in.AHTSeconds)
		switch {
		case math.IsInf(asa, 1):
			retrial = 1
		case asa+in.PatienceSeconds > 0:
			retrial = asa / (asa + in.PatienceSeconds)
		default:
			retrial = 0
		}

		virtual = base * virtualTrafficCap
		if d := 1 - abandon*retrial; d > 0 && base/d < virtual {
			virtual = base / d
		}

		next := abandonA(agents, virtual, in.AHTSeconds, in.PatienceSeconds)
		done := math.Abs(next-abandon) < equilibriumTol
		abandon = next
		if done {
			pt.Converged = true
			break
		}
	}

	pt.AbandonRate = abandon
	pt.Retrial = retrial
	pt.VirtualTraffic = virtual

	served := virtual * (1 - abandon)
	pt.ServiceLevel = serviceLevelC(agents, served, in.AHTSeconds, in.ThresholdSeconds)
	pt.ASASeconds = asaC(agents, served, in.AHTSeconds)
	return pt
}
