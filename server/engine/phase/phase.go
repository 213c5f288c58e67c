// Package phase implements the five-stage learning-phase machine.
package phase

// Phase is a stage of mastery progression. Phases are strictly ordered;
// the classifier recomputes from scratch each pass, so there is no
// hidden transition history.
type Phase int

const (
	Acquisition Phase = iota
	Consolidation
	Proficiency
	Mastery
	Maintenance
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case Acquisition:
		return "ACQUISITION"
	case Consolidation:
		return "CONSOLIDATION"
	case Proficiency:
		return "PROFICIENCY"
	case Mastery:
		return "MASTERY"
	case Maintenance:
		return "MAINTENANCE"
	default:
		return "UNKNOWN"
	}
}

// IsValid reports whether p is one of the five phases.
func (p Phase) IsValid() bool {
	return p >= Acquisition && p <= Maintenance
}

// Gate is the conjunctive threshold set for entering one phase.
type Gate struct {
	MinMastery   int     `mapstructure:"min_mastery"`
	MinReviews   int     `mapstructure:"min_reviews"`
	MinStreak    int     `mapstructure:"min_streak"`
	MinRetention float64 `mapstructure:"min_retention"`
	MinAttempts  int     `mapstructure:"min_attempts"`
}

// Thresholds holds the entry gates for each phase above Acquisition.
type Thresholds struct {
	Maintenance   Gate `mapstructure:"maintenance"`
	Mastery       Gate `mapstructure:"mastery"`
	Proficiency   Gate `mapstructure:"proficiency"`
	Consolidation Gate `mapstructure:"consolidation"`
}

// DefaultThresholds returns the stock gate table.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Maintenance:   Gate{MinMastery: 95, MinReviews: 15, MinStreak: 8, MinRetention: 0.90, MinAttempts: 3},
		Mastery:       Gate{MinMastery: 85, MinReviews: 10, MinStreak: 6, MinRetention: 0.80, MinAttempts: 3},
		Proficiency:   Gate{MinMastery: 70, MinReviews: 7, MinStreak: 4, MinRetention: 0.70, MinAttempts: 2},
		Consolidation: Gate{MinMastery: 50, MinReviews: 5, MinStreak: 2, MinRetention: 0.55, MinAttempts: 1},
	}
}

// Adjusted returns a copy of t with every mastery gate shifted by
// delta. Exam profiles use this to make phase entry harder or easier
// without touching the review or streak requirements.
func (t Thresholds) Adjusted(delta int) Thresholds {
	out := t
	out.Maintenance.MinMastery += delta
	out.Mastery.MinMastery += delta
	out.Proficiency.MinMastery += delta
	out.Consolidation.MinMastery += delta
	return out
}

// ClassifyInput is the observable state the classifier runs on.
type ClassifyInput struct {
	TotalAttempts      int
	MasteryLevel       int
	CompletedReviews   int
	ConsecutiveCorrect int
	RetentionStrength  float64
}

// Classify evaluates the gates from highest phase to lowest; the first
// match wins and the default is Acquisition. A single bad review can
// drop a topic several gates at once. That conservative re-classification
// is deliberate and must not be smoothed over.
func Classify(in ClassifyInput, t Thresholds) Phase {
	if matches(in, t.Maintenance) {
		return Maintenance
	}
	if matches(in, t.Mastery) {
		return Mastery
	}
	if matches(in, t.Proficiency) {
		return Proficiency
	}
	if matches(in, t.Consolidation) {
		return Consolidation
	}
	return Acquisition
}

func matches(in ClassifyInput, g Gate) bool {
	return in.TotalAttempts >= g.MinAttempts &&
		in.MasteryLevel >= g.MinMastery &&
		in.CompletedReviews >= g.MinReviews &&
		in.ConsecutiveCorrect >= g.MinStreak &&
		in.RetentionStrength >= g.MinRetention
}

// Config holds the per-phase interval parameters.
type Config struct {
	// BaseIntervalDays seeds extrapolation past the progression array.
	BaseIntervalDays float64 `mapstructure:"base_interval_days"`
	// MaxIntervalDays caps intervals while in this phase.
	MaxIntervalDays float64 `mapstructure:"max_interval_days"`
	// RequiredReviews is how many completed reviews this phase expects
	// before the next phase's gate can plausibly open.
	RequiredReviews int `mapstructure:"required_reviews"`
	// ProgressionDays is the explicit interval sequence for the first
	// reviews in this phase.
	ProgressionDays []float64 `mapstructure:"progression_days"`
}

// DefaultConfigs returns the stock per-phase interval table.
func DefaultConfigs() map[Phase]Config {
	return map[Phase]Config{
		Acquisition: {
			BaseIntervalDays: 1,
			MaxIntervalDays:  4,
			RequiredReviews:  5,
			ProgressionDays:  []float64{0.25, 0.5, 1, 2, 3},
		},
		Consolidation: {
			BaseIntervalDays: 3,
			MaxIntervalDays:  10,
			RequiredReviews:  5,
			ProgressionDays:  []float64{2, 3, 5, 7},
		},
		Proficiency: {
			BaseIntervalDays: 7,
			MaxIntervalDays:  21,
			RequiredReviews:  4,
			ProgressionDays:  []float64{5, 8, 12, 16},
		},
		Mastery: {
			BaseIntervalDays: 14,
			MaxIntervalDays:  45,
			RequiredReviews:  4,
			ProgressionDays:  []float64{12, 18, 25, 35},
		},
		Maintenance: {
			BaseIntervalDays: 30,
			MaxIntervalDays:  90,
			RequiredReviews:  3,
			ProgressionDays:  []float64{25, 40, 60},
		},
	}
}
