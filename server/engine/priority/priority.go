// Package priority ranks topics by how badly they need review.
package priority

import (
	"math"

	"github.com/rankmarg/mastery/server/engine/phase"
	"github.com/rankmarg/mastery/server/engine/urgency"
)

// Input is the per-topic state the ranking reads.
type Input struct {
	Phase                phase.Phase
	Urgency              urgency.Level
	MasteryLevel         int
	Retention            float64
	ConsecutiveIncorrect int
	DaysSinceReview      float64
	DaysUntilExam        int
}

const baseScore = 50

// phaseScores weight earlier phases higher; fragile new knowledge
// loses more from a skipped review than settled material does.
var phaseScores = map[phase.Phase]float64{
	phase.Acquisition:   15,
	phase.Consolidation: 12,
	phase.Proficiency:   8,
	phase.Mastery:       4,
	phase.Maintenance:   0,
}

var urgencyScores = map[urgency.Level]float64{
	urgency.None:     0,
	urgency.Low:      3,
	urgency.Medium:   6,
	urgency.High:     10,
	urgency.Critical: 15,
}

// Score combines phase, exam pressure, failure streaks, low mastery,
// retention risk, and overdue drift into one 0-100 rank.
func Score(in Input) int {
	s := float64(baseScore)
	s += phaseScores[in.Phase]
	s += urgencyScores[in.Urgency]
	s += math.Min(float64(in.ConsecutiveIncorrect)*8, 20)
	if in.MasteryLevel < 50 {
		s += float64(50-in.MasteryLevel) * 0.3
	}
	if in.Retention < 0.6 {
		s += (0.6 - in.Retention) * 16
	}
	s += math.Min(math.Max(in.DaysSinceReview-14, 0)*0.5, 10)
	if in.DaysUntilExam >= 0 && in.DaysUntilExam <= 21 && in.MasteryLevel < 60 {
		s += 15
	}

	return int(math.Round(math.Min(math.Max(s, 0), 100)))
}

var urgencyLoadMultipliers = map[urgency.Level]float64{
	urgency.None:     1.0,
	urgency.Low:      1.2,
	urgency.Medium:   1.4,
	urgency.High:     1.7,
	urgency.Critical: 2.0,
}

// RecommendedDailyLoad suggests how many review or new-topic slots a
// day of study should carry, capped at 30.
func RecommendedDailyLoad(p phase.Phase, l urgency.Level) int {
	var base float64
	switch p {
	case phase.Acquisition:
		base = 5
	case phase.Consolidation:
		base = 10
	default:
		base = 15
	}
	load := base * urgencyLoadMultipliers[l]
	return int(math.Min(math.Round(load), 30))
}
