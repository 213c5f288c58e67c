// Package trend derives performance deltas from a recent attempt
// window, comparing the newer half against the older half.
package trend

import (
	"math"

	"github.com/rankmarg/mastery/store"
)

// Trend summarizes how a user's performance on one entity is moving.
// All delta fields are signed; positive means improving.
type Trend struct {
	RecentAccuracy float64
	PriorAccuracy  float64
	AccuracyDelta  float64

	RecentAvgTimeSec float64
	PriorAvgTimeSec  float64
	// SpeedDelta is the relative speed-up of the recent half, in [-1,1].
	SpeedDelta float64

	// Consistency is [0,1]; 1 means chunk accuracies barely vary.
	Consistency float64
	// ImprovementRate blends accuracy and speed deltas into [-1,1].
	ImprovementRate float64
}

// chunkSize groups attempts for the consistency variance estimate.
const chunkSize = 5

// Velocity is the learning-velocity signal used by interval growth.
func (t Trend) Velocity() float64 {
	return t.ImprovementRate
}

// Compute builds a Trend from attempts ordered most-recent-first.
// Fewer than four attempts cannot support a half-vs-half comparison,
// so deltas stay zero and consistency sits at a neutral 0.5.
func Compute(attempts []store.Attempt) Trend {
	t := Trend{Consistency: 0.5}
	n := len(attempts)
	if n == 0 {
		return t
	}

	t.RecentAccuracy = accuracy(attempts)
	t.RecentAvgTimeSec = avgTime(attempts)
	if n < 4 {
		t.PriorAccuracy = t.RecentAccuracy
		t.PriorAvgTimeSec = t.RecentAvgTimeSec
		return t
	}

	half := n / 2
	recent, prior := attempts[:half], attempts[half:]

	t.RecentAccuracy = accuracy(recent)
	t.PriorAccuracy = accuracy(prior)
	t.AccuracyDelta = t.RecentAccuracy - t.PriorAccuracy

	t.RecentAvgTimeSec = avgTime(recent)
	t.PriorAvgTimeSec = avgTime(prior)
	if t.PriorAvgTimeSec > 0 && t.RecentAvgTimeSec > 0 {
		t.SpeedDelta = clamp((t.PriorAvgTimeSec-t.RecentAvgTimeSec)/math.Max(t.PriorAvgTimeSec, 1), -1, 1)
	}

	t.Consistency = consistency(attempts)
	t.ImprovementRate = clamp(0.7*t.AccuracyDelta+0.3*t.SpeedDelta, -1, 1)
	return t
}

func accuracy(attempts []store.Attempt) float64 {
	if len(attempts) == 0 {
		return 0
	}
	correct := 0
	for _, a := range attempts {
		if a.IsCorrect {
			correct++
		}
	}
	return float64(correct) / float64(len(attempts))
}

// avgTime averages the timed attempts only; untimed ones are common in
// imported history and must not drag the average toward zero.
func avgTime(attempts []store.Attempt) float64 {
	sum, n := 0.0, 0
	for _, a := range attempts {
		if a.TimingSec != nil && *a.TimingSec > 0 {
			sum += *a.TimingSec
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// consistency measures how stable accuracy is across fixed-size chunks
// of the window. High variance between chunks reads as streaky,
// unreliable knowledge.
func consistency(attempts []store.Attempt) float64 {
	var accs []float64
	for i := 0; i < len(attempts); i += chunkSize {
		end := i + chunkSize
		if end > len(attempts) {
			end = len(attempts)
		}
		accs = append(accs, accuracy(attempts[i:end]))
	}
	if len(accs) < 2 {
		return 0.5
	}

	mean := 0.0
	for _, a := range accs {
		mean += a
	}
	mean /= float64(len(accs))

	variance := 0.0
	for _, a := range accs {
		variance += (a - mean) * (a - mean)
	}
	variance /= float64(len(accs))

	return clamp(1-2*math.Sqrt(variance), 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
