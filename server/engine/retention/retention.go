// Package retention estimates how well a skill is currently held and
// how quickly that hold decays.
package retention

import "math"

// NeutralPrior is the strength reported when no attempts exist yet.
const NeutralPrior = 0.5

// Strength converts accuracy and timing efficiency into a [0,1]
// retention estimate. Accuracy carries 70% of the weight and timing
// efficiency the remaining 30%; answering faster than the ideal time
// is not rewarded beyond full efficiency. Zero attempts yield the
// neutral prior rather than an error.
func Strength(correct, total int, avgTimeSec, idealTimeSec float64) float64 {
	if total <= 0 {
		return NeutralPrior
	}
	accuracy := float64(correct) / float64(total)
	efficiency := clamp01(idealTimeSec / math.Max(avgTimeSec, 1))
	return clamp01(0.70*accuracy + 0.30*efficiency)
}

// RecallProbability applies an exponential forgetting curve to a
// retention estimate. Higher retention slows the decay. Elapsed days
// floor at zero, so recall immediately after a review is always 1.
func RecallProbability(retention, daysSinceReview, baseDecay float64) float64 {
	days := math.Max(daysSinceReview, 0)
	lambda := baseDecay * (1.2 - retention)
	return clamp01(math.Exp(-lambda * days))
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
