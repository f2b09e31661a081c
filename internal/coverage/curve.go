package coverage

import "math"

// weightCurve builds the normalized intraday demand curve across n
// intervals: a flat floor plus a morning peak at 30% of the day and a
// slightly smaller afternoon peak at 70%. Weights sum to 1.
func weightCurve(n int) []float64 {
	if n <= 0 {
		return nil
	}
	w := make([]float64, n)
	sum := 0.0
	for i := range w {
		t := (float64(i) + 0.5) / float64(n)
		w[i] = 0.25 + 0.55*gauss(t, 0.30, 0.18) + 0.45*gauss(t, 0.70, 0.18)
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

func gauss(t, mean, sigma float64) float64 {
	d := (t - mean) / sigma
	return math.Exp(-0.5 * d * d)
}
