// Package interval computes the next review interval in days. The
// computation is a fixed-order pipeline of transforms; reordering the
// steps changes the output.
package interval

import (
	"math"

	"github.com/rankmarg/mastery/server/engine/phase"
	"github.com/rankmarg/mastery/server/engine/urgency"
)

const (
	// NeutralEF is the starting easiness factor.
	NeutralEF = 2.5
	MinEF     = 1.2
	MaxEF     = 3.8

	// RecoveryFloorDays is the minimum spacing when the struggling
	// protocol or urgent exam pressure compresses an interval.
	RecoveryFloorDays = 0.25
)

// Input is the full state one interval computation reads.
type Input struct {
	Phase       phase.Phase
	PhaseConfig phase.Config

	MasteryLevel  int
	StrengthIndex int
	// Retention is the current retention-strength estimate in [0,1].
	Retention float64
	// Confidence is a [0,1] self-reliability signal; the strength
	// index normalized works in its place.
	Confidence float64
	// Velocity is the learning-velocity delta in [-1,1].
	Velocity float64
	// AvgDifficulty is the mean attempt difficulty on the 1-4 scale.
	AvgDifficulty float64

	CompletedReviews     int
	ConsecutiveCorrect   int
	ConsecutiveIncorrect int

	Urgency       urgency.Level
	DaysUntilExam int

	// MaxIntervalDays is the global ceiling from configuration.
	MaxIntervalDays float64
}

// Result carries the fractional interval and the easiness factor that
// produced it.
type Result struct {
	Days float64
	EF   float64
}

// Compute runs the pipeline. The returned days are fractional;
// persisting callers round with RoundDays.
func Compute(in Input) Result {
	ef := easinessFactor(in)

	days := baseInterval(in)
	days *= efModulation(ef, in.Phase)
	days *= performanceAdjustment(in)
	days *= urgencyTransform(in)

	days, capDays, forced := strugglingOverride(in, days)
	if !forced {
		days *= difficultyAdjustment(in)
		days *= strengthAdjustment(in)
		if capDays > 0 {
			days = math.Min(days, capDays)
		} else {
			days = cognitiveLoadFloor(in, days)
		}
	}

	days = math.Max(days, RecoveryFloorDays)
	days = math.Min(days, in.MaxIntervalDays)
	return Result{Days: days, EF: ef}
}

// RoundDays converts a fractional interval into the persisted integer
// day count: sub-day values round up so the stored interval is never
// below one day, while the fractional value still drives the actual
// next-review timestamp.
func RoundDays(days, maxDays float64) int {
	d := int(math.Ceil(days))
	if d < 1 {
		d = 1
	}
	if hi := int(maxDays); d > hi {
		d = hi
	}
	return d
}

// baseInterval follows the phase's explicit progression for the first
// reviews, then extrapolates with diminishing growth, capped at the
// phase ceiling.
func baseInterval(in Input) float64 {
	prog := in.PhaseConfig.ProgressionDays
	if in.CompletedReviews < len(prog) {
		return prog[in.CompletedReviews]
	}

	excess := float64(in.CompletedReviews - len(prog))
	days := in.PhaseConfig.BaseIntervalDays +
		math.Min(float64(in.ConsecutiveCorrect)*0.5, 10) +
		float64(in.MasteryLevel)/20 +
		math.Pow(1.5, excess)*0.5
	return math.Min(days, in.PhaseConfig.MaxIntervalDays)
}

// easinessFactor starts at the SM-2 neutral value and shifts with
// streaks, retention, difficulty-relative mastery, confidence, and
// learning velocity.
func easinessFactor(in Input) float64 {
	ef := NeutralEF
	ef += math.Min(float64(in.ConsecutiveCorrect)*0.15, 0.8)
	ef -= math.Min(float64(in.ConsecutiveIncorrect)*0.4, 1.2)
	ef += (in.Retention - 0.5) * 1.2
	ef += (float64(in.MasteryLevel)/100 - 0.5) * difficulty01(in.AvgDifficulty) * 0.6
	ef += (in.Confidence - 0.5) * 0.8
	ef += clamp(in.Velocity, -1, 1) * 0.5
	return clamp(ef, MinEF, MaxEF)
}

// efModulation converts the EF into an interval multiplier. Early
// phases only get a fraction of the deviation from neutral so
// unstable knowledge is not spaced out prematurely.
func efModulation(ef float64, p phase.Phase) float64 {
	deviation := ef/NeutralEF - 1
	switch p {
	case phase.Acquisition:
		return 1 + 0.3*deviation
	case phase.Consolidation:
		return 1 + 0.6*deviation
	default:
		return 1 + deviation
	}
}

func performanceAdjustment(in Input) float64 {
	m := 0.6 + 0.8*in.Retention

	confScale := 0.1
	if in.Phase >= phase.Proficiency {
		confScale = 0.3
	}
	m *= 1 + confScale*(in.Confidence-0.5)*2

	m *= 1 + 0.15*clamp(in.Velocity, -1, 1)
	return m
}

func urgencyTransform(in Input) float64 {
	m := urgency.Multiplier(in.Urgency, in.Phase, in.MasteryLevel)
	if in.CompletedReviews == 0 && in.DaysUntilExam >= 0 && in.DaysUntilExam <= urgency.NewTopicWindowDays {
		m *= urgency.NewTopicPenalty
	}
	return m
}

// strugglingOverride replaces or caps the computed interval for topics
// in trouble. It returns the adjusted days, a cap that later steps
// must still respect (0 when none), and whether the interval was
// forced outright.
func strugglingOverride(in Input, days float64) (out, capDays float64, forced bool) {
	switch {
	case in.ConsecutiveIncorrect >= 3:
		return RecoveryFloorDays, RecoveryFloorDays, true
	case in.ConsecutiveIncorrect == 2:
		return math.Min(days, 0.5), 0.5, false
	case in.ConsecutiveIncorrect == 1:
		c := singleMissCap(in)
		return math.Min(days, c), c, false
	}
	if in.MasteryLevel < 30 && in.Phase > phase.Acquisition {
		return math.Min(days, 1.0), 1.0, false
	}
	return days, 0, false
}

func singleMissCap(in Input) float64 {
	switch {
	case in.Phase == phase.Acquisition:
		return 0.5
	case in.MasteryLevel < 50 || in.Retention < 0.5:
		return 1.0
	default:
		return 2.0
	}
}

// difficultyAdjustment dampens difficulty's pull early on and rewards
// holding hard material in later phases.
func difficultyAdjustment(in Input) float64 {
	d := difficulty01(in.AvgDifficulty)
	if in.Phase <= phase.Consolidation {
		return 0.9 + 0.2*d
	}
	return 0.85 + 0.35*d
}

func strengthAdjustment(in Input) float64 {
	s := clamp(float64(in.StrengthIndex)/100, 0, 1)
	if in.Phase == phase.Acquisition {
		return 0.95 + 0.15*s
	}
	return 0.9 + 0.3*s
}

// cognitiveLoadFloor keeps advanced-phase reviews from bunching up
// when there is no exam pressure.
func cognitiveLoadFloor(in Input, days float64) float64 {
	if in.Urgency.IsUrgent() {
		return math.Max(days, RecoveryFloorDays)
	}
	switch in.Phase {
	case phase.Proficiency:
		return math.Max(days, 2)
	case phase.Mastery, phase.Maintenance:
		return math.Max(days, 3)
	default:
		return days
	}
}

// difficulty01 maps the 1-4 difficulty scale onto [0,1].
func difficulty01(avg float64) float64 {
	return clamp((avg-1)/3, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
