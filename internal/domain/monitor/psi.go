package monitor

import "math"

// Score distribution histogram layout: fixed bins over [0,1].
const (
	scoreBins = 10
	// psiEpsilon floors empty bins so the index stays finite.
	psiEpsilon = 1e-4
)

// binFor maps a score in [0,1] to its histogram bin.
func binFor(score float64) int {
	if score < 0 {
		score = 0
	}
	if score >= 1 {
		return scoreBins - 1
	}
	return int(score * scoreBins)
}

// proportions normalizes a bin count histogram. A zero-total histogram
// yields the uniform distribution, which is PSI-neutral against itself.
func proportions(counts [scoreBins]int) [scoreBins]float64 {
	var out [scoreBins]float64
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		for i := range out {
			out[i] = 1.0 / scoreBins
		}
		return out
	}
	for i, c := range counts {
		out[i] = float64(c) / float64(total)
	}
	return out
}

// psi computes the population stability index between a current and a
// baseline score distribution. Values above 0.2 conventionally indicate a
// significant shift.
func psi(current, baseline [scoreBins]float64) float64 {
	var sum float64
	for i := range current {
		p := math.Max(current[i], psiEpsilon)
		q := math.Max(baseline[i], psiEpsilon)
		sum += (p - q) * math.Log(p/q)
	}
	return sum
}

// percentile returns the q-quantile (0 < q <= 1) of sorted values using the
// nearest-rank method. Returns 0 for an empty slice.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(q*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
