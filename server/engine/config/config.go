// Package config carries the engine's tunable tables. Everything the
// scoring and scheduling pipeline parameterizes on lives here so that
// deployments can retune exams, phase gates, and urgency windows
// without a code change.
package config

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/rankmarg/mastery/server/engine/phase"
	"github.com/rankmarg/mastery/server/engine/urgency"
)

// DefaultExamCode is the fallback entry every exam table must carry.
const DefaultExamCode = "DEFAULT"

// Exam holds the per-exam-code scoring parameters.
type Exam struct {
	// IdealTimeSec is the target seconds per question for this exam.
	IdealTimeSec float64 `mapstructure:"ideal_time_sec"`
	// ThresholdAdjustment shifts the phase mastery gates up or down.
	ThresholdAdjustment float64 `mapstructure:"threshold_adjustment"`
	// DifficultyMultiplier scales the difficulty bonus in mastery scoring.
	DifficultyMultiplier float64 `mapstructure:"difficulty_multiplier"`
}

// Config is the full tunable surface of the engine. Values are read
// once at startup and treated as immutable afterwards; calculators take
// the parts they need as plain arguments.
type Config struct {
	// MaxIntervalDays is the global ceiling on review intervals.
	MaxIntervalDays float64 `mapstructure:"max_interval_days"`
	// BaseDecayRate seeds the forgetting-curve exponent.
	BaseDecayRate float64 `mapstructure:"base_decay_rate"`
	// MasteredThreshold classifies an entity as mastered for roll-up counts.
	MasteredThreshold int `mapstructure:"mastered_threshold"`
	// AttemptWindowDays bounds how far back attempt aggregation reaches.
	AttemptWindowDays int `mapstructure:"attempt_window_days"`
	// AttemptWindowSize bounds how many attempts a single fetch returns.
	AttemptWindowSize int `mapstructure:"attempt_window_size"`

	Exams      map[string]Exam  `mapstructure:"exams"`
	Thresholds phase.Thresholds `mapstructure:"thresholds"`
	Windows    urgency.Windows  `mapstructure:"urgency_windows"`

	// Phases is keyed by phase; override files use the phase names.
	Phases map[phase.Phase]phase.Config
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		MaxIntervalDays:   90,
		BaseDecayRate:     0.12,
		MasteredThreshold: 70,
		AttemptWindowDays: 30,
		AttemptWindowSize: 30,
		Exams: map[string]Exam{
			DefaultExamCode: {IdealTimeSec: 90, ThresholdAdjustment: 0, DifficultyMultiplier: 1.0},
			"JEE":           {IdealTimeSec: 120, ThresholdAdjustment: 5, DifficultyMultiplier: 1.2},
			"NEET":          {IdealTimeSec: 60, ThresholdAdjustment: 0, DifficultyMultiplier: 1.0},
		},
		Thresholds: phase.DefaultThresholds(),
		Phases:     phase.DefaultConfigs(),
		Windows:    urgency.DefaultWindows(),
	}
}

// fileConfig mirrors Config with string phase keys so a YAML override
// file stays readable.
type fileConfig struct {
	MaxIntervalDays   float64                 `mapstructure:"max_interval_days"`
	BaseDecayRate     float64                 `mapstructure:"base_decay_rate"`
	MasteredThreshold int                     `mapstructure:"mastered_threshold"`
	AttemptWindowDays int                     `mapstructure:"attempt_window_days"`
	AttemptWindowSize int                     `mapstructure:"attempt_window_size"`
	Exams             map[string]Exam         `mapstructure:"exams"`
	Thresholds        *phase.Thresholds       `mapstructure:"thresholds"`
	Phases            map[string]phase.Config `mapstructure:"phases"`
	Windows           *urgency.Windows        `mapstructure:"urgency_windows"`
}

// Load builds a Config from the defaults, an optional YAML file, and
// MASTERY_ENGINE_* environment variables. An empty path skips the file
// layer.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix("mastery_engine")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read engine config %q", path)
		}
	}

	var fc fileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, errors.Wrap(err, "failed to parse engine config")
	}
	cfg.apply(&fc)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) apply(fc *fileConfig) {
	if fc.MaxIntervalDays > 0 {
		c.MaxIntervalDays = fc.MaxIntervalDays
	}
	if fc.BaseDecayRate > 0 {
		c.BaseDecayRate = fc.BaseDecayRate
	}
	if fc.MasteredThreshold > 0 {
		c.MasteredThreshold = fc.MasteredThreshold
	}
	if fc.AttemptWindowDays > 0 {
		c.AttemptWindowDays = fc.AttemptWindowDays
	}
	if fc.AttemptWindowSize > 0 {
		c.AttemptWindowSize = fc.AttemptWindowSize
	}
	for code, exam := range fc.Exams {
		c.Exams[strings.ToUpper(code)] = exam
	}
	if fc.Thresholds != nil {
		c.Thresholds = *fc.Thresholds
	}
	for name, pc := range fc.Phases {
		if p, ok := phaseByName(name); ok {
			c.Phases[p] = pc
		}
	}
	if fc.Windows != nil {
		c.Windows = *fc.Windows
	}
}

func phaseByName(name string) (phase.Phase, bool) {
	for p := phase.Acquisition; p <= phase.Maintenance; p++ {
		if strings.EqualFold(p.String(), name) {
			return p, true
		}
	}
	return 0, false
}

// Validate checks the structural invariants the pipeline relies on.
func (c *Config) Validate() error {
	if c.MaxIntervalDays < 1 {
		return errors.Errorf("max interval days must be at least 1, got %v", c.MaxIntervalDays)
	}
	if c.BaseDecayRate <= 0 {
		return errors.Errorf("base decay rate must be positive, got %v", c.BaseDecayRate)
	}
	if _, ok := c.Exams[DefaultExamCode]; !ok {
		return errors.New("exam table is missing the DEFAULT entry")
	}
	for code, exam := range c.Exams {
		if exam.IdealTimeSec <= 0 {
			return errors.Errorf("exam %q has non-positive ideal time", code)
		}
		if exam.DifficultyMultiplier <= 0 {
			return errors.Errorf("exam %q has non-positive difficulty multiplier", code)
		}
	}
	for p := phase.Acquisition; p <= phase.Maintenance; p++ {
		pc, ok := c.Phases[p]
		if !ok {
			return errors.Errorf("phase table is missing %s", p)
		}
		if pc.BaseIntervalDays <= 0 || pc.MaxIntervalDays < pc.BaseIntervalDays {
			return errors.Errorf("phase %s has invalid interval bounds", p)
		}
		if len(pc.ProgressionDays) == 0 {
			return errors.Errorf("phase %s has an empty progression", p)
		}
	}
	if c.Windows.CriticalDays <= 0 ||
		c.Windows.HighDays <= c.Windows.CriticalDays ||
		c.Windows.MediumDays <= c.Windows.HighDays ||
		c.Windows.LowDays <= c.Windows.MediumDays {
		return errors.New("urgency windows must be strictly increasing")
	}
	return nil
}

// ResolveExam looks up the exam entry for code, falling back to the
// DEFAULT entry. The bool result reports whether any entry was found;
// a table with no DEFAULT is a configuration fault the caller turns
// into a hard per-unit error.
func (c *Config) ResolveExam(code string) (Exam, bool) {
	if exam, ok := c.Exams[strings.ToUpper(code)]; ok {
		return exam, true
	}
	exam, ok := c.Exams[DefaultExamCode]
	return exam, ok
}
