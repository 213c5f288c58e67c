// Package mastery scores an attempt window into a 0-100 mastery level
// and a secondary strength index.
package mastery

import (
	"math"
	"time"

	"github.com/rankmarg/mastery/server/engine/config"
	"github.com/rankmarg/mastery/server/engine/trend"
	"github.com/rankmarg/mastery/store"
)

// Input collects everything one mastery computation reads. Attempts
// are ordered most-recent-first and already bounded to the scoring
// window by the caller.
type Input struct {
	Attempts []store.Attempt
	Profile  *store.UserProfile
	Trend    trend.Trend
	Exam     config.Exam
	Now      time.Time
}

// Result is one scored entity.
type Result struct {
	MasteryLevel    int
	StrengthIndex   int
	TotalAttempts   int
	CorrectAttempts int
}

const (
	baseScoreCap      = 59
	streakBonusCap    = 10
	timeScoreMax      = 8
	difficultyMax     = 8
	consistencyMax    = 6
	spacedRepMax      = 6
	forgettingMax     = 5
	mistakePenaltyCap = 10
)

// Compute scores one entity's attempt window. The second return is
// false when the window is empty; callers must skip the entity rather
// than persist a zero, since inactivity is not evidence of forgetting
// everything.
func Compute(in Input) (Result, bool) {
	total := len(in.Attempts)
	if total == 0 {
		return Result{}, false
	}

	correct := 0
	for _, a := range in.Attempts {
		if a.IsCorrect {
			correct++
		}
	}

	score := float64(correct) / float64(total) * baseScoreCap
	score += streakBonus(in)
	score += timeScore(in.Attempts, in.Exam.IdealTimeSec)
	score += difficultyBonus(in.Attempts, in.Exam.DifficultyMultiplier)
	score += consistencyScore(in.Trend)
	score += spacedRepScore(in.Attempts)
	score += forgettingFactor(in.Attempts, in.Now)
	score -= mistakePenalty(in.Attempts)

	return Result{
		MasteryLevel:    clampInt(int(math.Round(score)), 0, 100),
		StrengthIndex:   strengthIndex(in, total),
		TotalAttempts:   total,
		CorrectAttempts: correct,
	}, true
}

// currentStreak counts consecutive correct answers from the most
// recent attempt backwards.
func currentStreak(attempts []store.Attempt) int {
	streak := 0
	for _, a := range attempts {
		if !a.IsCorrect {
			break
		}
		streak++
	}
	return streak
}

// streakBonus grows logarithmically so long streaks saturate instead
// of dominating the score. Heavy daily study and an imminent target
// year nudge the bonus up slightly.
func streakBonus(in Input) float64 {
	streak := currentStreak(in.Attempts)
	if streak == 0 {
		return 0
	}
	bonus := math.Min(math.Log2(float64(1+streak))*2.2, streakBonusCap)

	if in.Profile != nil {
		hours := math.Min(in.Profile.StudyHoursPerDay, 8)
		bonus *= 0.9 + hours/40

		switch in.Profile.TargetYear {
		case in.Now.Year():
			bonus *= 1.1
		case in.Now.Year() + 1:
			// no adjustment
		default:
			bonus *= 0.95
		}
	}
	return math.Min(bonus, streakBonusCap)
}

// timeScore awards full marks when average solve time sits inside the
// 0.5x-1.5x ideal band and degrades linearly outside it. Answering far
// below the band reads as guessing, far above as struggling.
func timeScore(attempts []store.Attempt, idealSec float64) float64 {
	avg := avgTiming(attempts)
	if avg == 0 || idealSec <= 0 {
		return timeScoreMax / 2.0
	}
	ratio := avg / idealSec
	switch {
	case ratio >= 0.5 && ratio <= 1.5:
		return timeScoreMax
	case ratio < 0.5:
		return timeScoreMax * (ratio / 0.5)
	default:
		return timeScoreMax * math.Max(0, 1-(ratio-1.5)/1.5)
	}
}

func avgTiming(attempts []store.Attempt) float64 {
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

// difficultyBonus weights accuracy per difficulty bucket, so acing
// hard questions counts for more than acing easy ones, plus a small
// reward for simply attempting a volume of hard material.
func difficultyBonus(attempts []store.Attempt, multiplier float64) float64 {
	var bucketTotal, bucketCorrect [5]int
	hardAttempts := 0
	for _, a := range attempts {
		d := clampInt(a.Difficulty, 1, 4)
		bucketTotal[d]++
		if a.IsCorrect {
			bucketCorrect[d]++
		}
		if d >= 3 {
			hardAttempts++
		}
	}

	bonus := 0.0
	for d := 1; d <= 4; d++ {
		if bucketTotal[d] == 0 {
			continue
		}
		acc := float64(bucketCorrect[d]) / float64(bucketTotal[d])
		bonus += acc * float64(d) * 0.4
	}
	if hardAttempts >= 5 {
		bonus += 2
	}
	return math.Min(bonus*multiplier, difficultyMax)
}

func consistencyScore(t trend.Trend) float64 {
	score := t.Consistency * 4
	if t.ImprovementRate > 0 {
		score += t.ImprovementRate * 2
	}
	return math.Min(score, consistencyMax)
}

// spacedRepScore rewards questions retried within a one-to-three day
// gap that flipped from incorrect to correct, the signature of an
// effective review loop.
func spacedRepScore(attempts []store.Attempt) float64 {
	type seen struct {
		ts      int64
		correct bool
	}
	byQuestion := make(map[string][]seen, len(attempts))
	// Walk oldest-first so retry pairs line up chronologically.
	for i := len(attempts) - 1; i >= 0; i-- {
		a := attempts[i]
		byQuestion[a.QuestionID] = append(byQuestion[a.QuestionID], seen{ts: a.SolvedTs, correct: a.IsCorrect})
	}

	flips := 0
	for _, history := range byQuestion {
		for i := 1; i < len(history); i++ {
			if history[i-1].correct || !history[i].correct {
				continue
			}
			gapDays := float64(history[i].ts-history[i-1].ts) / 86400
			if gapDays >= 1 && gapDays <= 3 {
				flips++
			}
		}
	}
	return math.Min(float64(flips)*2, spacedRepMax)
}

// forgettingFactor decays from its maximum as the entity goes
// unpracticed.
func forgettingFactor(attempts []store.Attempt, now time.Time) float64 {
	last := attempts[0].SolvedTs
	days := math.Max(float64(now.Unix()-last)/86400, 0)
	return forgettingMax * math.Exp(-0.1*days)
}

var mistakeWeights = map[store.MistakeKind]float64{
	store.MistakeConceptual:     1.5,
	store.MistakeCalculation:    0.75,
	store.MistakeReading:        0.5,
	store.MistakeOverconfidence: 1.0,
}

func mistakePenalty(attempts []store.Attempt) float64 {
	penalty := 0.0
	for _, a := range attempts {
		if a.Mistake == nil {
			continue
		}
		penalty += mistakeWeights[*a.Mistake]
	}
	return math.Min(penalty, mistakePenaltyCap)
}

// strengthIndex measures retention confidence independent of raw
// mastery. It leans on consistency, streak depth, timing stability,
// trend, and engagement volume, and decays with staleness.
func strengthIndex(in Input, total int) int {
	t := in.Trend

	score := t.Consistency * 25
	score += math.Min(math.Log2(float64(1+currentStreak(in.Attempts)))*6, 25)
	score += timingStability(in.Attempts) * 20
	if t.ImprovementRate > 0 {
		score += t.ImprovementRate * 15
	}
	score += math.Min(float64(total)/30, 1) * 20

	days := math.Max(float64(in.Now.Unix()-in.Attempts[0].SolvedTs)/86400, 0)
	score -= math.Min(days*1.5, 30)

	return clampInt(int(math.Round(score)), 0, 100)
}

// timingStability is 1 minus the coefficient of variation of solve
// times, floored at 0.
func timingStability(attempts []store.Attempt) float64 {
	var times []float64
	for _, a := range attempts {
		if a.TimingSec != nil && *a.TimingSec > 0 {
			times = append(times, *a.TimingSec)
		}
	}
	if len(times) < 2 {
		return 0.5
	}

	mean := 0.0
	for _, v := range times {
		mean += v
	}
	mean /= float64(len(times))
	if mean == 0 {
		return 0.5
	}

	variance := 0.0
	for _, v := range times {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(times))

	return math.Max(0, 1-math.Sqrt(variance)/mean)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
