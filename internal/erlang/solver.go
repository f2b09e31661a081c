package erlang

import "math"

// SolveAgents finds the smallest agent count whose service level meets
// targetSL and whose occupancy stays at or below maxOccupancy (both
// fractions). The scan starts at the stability boundary and is capped at
// three times the offered load; when nothing in that window qualifies, the
// best-service-level candidate is returned with ok=false.
func SolveAgents(m Model, in Inputs, targetSL, maxOccupancy float64) (Point, bool) {
	if in.Traffic <= 0 {
		return Point{ServiceLevel: 1, Converged: true}, true
	}

	lo := int(math.Ceil(in.Traffic))
	if lo < 1 {
		lo = 1
	}
	hi := int(math.Ceil(in.Traffic * virtualTrafficCap))
	if hi < 10 {
		hi = 10
	}

	var best Point
	bestSL := -1.0
	for n := lo; n <= hi; n++ {
		pt := Evaluate(m, n, in)
		if pt.ServiceLevel >= targetSL && pt.Occupancy <= maxOccupancy {
			return pt, true
		}
		if pt.ServiceLevel > bestSL {
			best = pt
			bestSL = pt.ServiceLevel
		}
	}
	return best, false
}
