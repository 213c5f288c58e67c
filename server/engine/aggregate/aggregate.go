// Package aggregate rolls entity mastery up the subtopic, topic,
// subject hierarchy.
package aggregate

import "math"

const (
	// priorWeight and freshWeight form the subtopic-level hysteresis
	// that dampens single-session volatility.
	priorWeight = 0.6
	freshWeight = 0.4

	// topicBonus and subjectBonus are flat synthesis bonuses. Topic
	// understanding synthesizes its parts rather than averaging them.
	topicBonus   = 5
	subjectBonus = 3
)

// Blend merges a freshly computed subtopic score into the stored one.
// Without a stored row the fresh score stands alone. Repeated blending
// against identical fresh input converges on the fresh score.
func Blend(prior, fresh int, hasPrior bool) int {
	if !hasPrior {
		return clamp(fresh)
	}
	return clamp(int(math.Round(priorWeight*float64(prior) + freshWeight*float64(fresh))))
}

// Child is one scored member of a roll-up.
type Child struct {
	MasteryLevel  int
	StrengthIndex int
	// Weightage scales this child's share of the average; zero means
	// unset and defaults to 1.
	Weightage       float64
	TotalAttempts   int
	CorrectAttempts int
	// InWindow reports whether the child had attempts in the current
	// scoring window. Children outside the window keep their stored
	// mastery but do not pull the parent's average.
	InWindow bool
}

// Rollup is the aggregated parent record.
type Rollup struct {
	MasteryLevel    int
	StrengthIndex   int
	TotalAttempts   int
	CorrectAttempts int
	// MasteredCount counts children at or above the mastered
	// threshold, across the whole child set.
	MasteredCount int
}

// RollupTopic aggregates subtopic records into a topic record. The
// second return is false when no child was in the window, in which
// case the parent must be left untouched.
func RollupTopic(children []Child, masteredThreshold int) (Rollup, bool) {
	return rollup(children, masteredThreshold, topicBonus)
}

// RollupSubject aggregates topic records into a subject record.
func RollupSubject(children []Child, masteredThreshold int) (Rollup, bool) {
	return rollup(children, masteredThreshold, subjectBonus)
}

func rollup(children []Child, masteredThreshold, bonus int) (Rollup, bool) {
	var (
		weightSum   float64
		masterySum  float64
		strengthSum float64
		out         Rollup
		any         bool
	)
	for _, c := range children {
		if c.MasteryLevel >= masteredThreshold {
			out.MasteredCount++
		}
		if !c.InWindow {
			continue
		}
		any = true
		w := c.Weightage
		if w <= 0 {
			w = 1
		}
		weightSum += w
		masterySum += float64(c.MasteryLevel) * w
		strengthSum += float64(c.StrengthIndex) * w
		out.TotalAttempts += c.TotalAttempts
		out.CorrectAttempts += c.CorrectAttempts
	}
	if !any {
		return Rollup{}, false
	}

	out.MasteryLevel = clamp(int(math.Round(masterySum/weightSum)) + bonus)
	out.StrengthIndex = clamp(int(math.Round(strengthSum / weightSum)))
	return out, true
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
