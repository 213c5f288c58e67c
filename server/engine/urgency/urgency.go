// Package urgency maps exam proximity onto scheduling pressure.
package urgency

import "github.com/rankmarg/mastery/server/engine/phase"

// Level is the exam-proximity pressure tier.
type Level int

const (
	None Level = iota
	Low
	Medium
	High
	Critical
)

func (l Level) String() string {
	switch l {
	case None:
		return "NONE"
	case Low:
		return "LOW"
	case Medium:
		return "MEDIUM"
	case High:
		return "HIGH"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Windows holds the day thresholds that bound each tier. A tier covers
// (next tier's days, its own days]; anything beyond LowDays is None.
type Windows struct {
	CriticalDays int `mapstructure:"critical_days"`
	HighDays     int `mapstructure:"high_days"`
	MediumDays   int `mapstructure:"medium_days"`
	LowDays      int `mapstructure:"low_days"`
}

// DefaultWindows returns the stock exam windows.
func DefaultWindows() Windows {
	return Windows{CriticalDays: 7, HighDays: 21, MediumDays: 45, LowDays: 90}
}

// Classify returns the tier for the given days-until-exam. Negative
// days mean the exam date is unknown or already past, which carries no
// scheduling pressure.
func Classify(daysUntilExam int, w Windows) Level {
	switch {
	case daysUntilExam < 0:
		return None
	case daysUntilExam <= w.CriticalDays:
		return Critical
	case daysUntilExam <= w.HighDays:
		return High
	case daysUntilExam <= w.MediumDays:
		return Medium
	case daysUntilExam <= w.LowDays:
		return Low
	default:
		return None
	}
}

// IsUrgent reports whether the tier is sharp enough to suspend the
// normal cognitive-load spacing floors.
func (l Level) IsUrgent() bool {
	return l >= High
}

// Multiplier returns the interval shrink factor for a tier given the
// topic's phase and mastery. Critical pressure compresses weak topics
// hardest; a topic already in late phases with high mastery keeps most
// of its spacing even close to the exam.
func Multiplier(l Level, p phase.Phase, mastery int) float64 {
	switch l {
	case Critical:
		m := criticalBase(mastery)
		if p >= phase.Mastery {
			m += 0.1
		}
		if m > 0.6 {
			m = 0.6
		}
		return m
	case High:
		switch {
		case mastery < 50:
			return 0.5
		case mastery < 75:
			return 0.65
		default:
			return 0.8
		}
	case Medium:
		if mastery < 50 {
			return 0.7
		}
		return 0.85
	case Low:
		return 0.95
	default:
		return 1.0
	}
}

func criticalBase(mastery int) float64 {
	switch {
	case mastery < 40:
		return 0.2
	case mastery < 60:
		return 0.3
	case mastery < 80:
		return 0.45
	default:
		return 0.6
	}
}

// NewTopicPenalty is the extra shrink applied to topics first seen
// within 30 days of the exam.
const NewTopicPenalty = 0.6

// NewTopicWindowDays bounds how close to the exam a topic counts as
// "new" for the penalty above.
const NewTopicWindowDays = 30
