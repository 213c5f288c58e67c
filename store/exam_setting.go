package store

// ExamSetting is a per-exam-code tuning row layered over the static
// engine configuration so operators can adjust exams without a deploy.
// The engine requires a DEFAULT row (or static DEFAULT entry) to exist;
// config resolution fails for the unit otherwise.
type ExamSetting struct {
	ExamCode string
	// IdealTimeSec is the ideal seconds per question for this exam.
	IdealTimeSec float64
	// ThresholdAdjustment shifts mastery thresholds for this exam.
	ThresholdAdjustment float64
	// DifficultyMultiplier scales difficulty weighting for this exam.
	DifficultyMultiplier float64

	UpdatedTs int64
}

// FindExamSetting is the parameter object for exam setting lookups.
type FindExamSetting struct {
	ExamCode *string
}
