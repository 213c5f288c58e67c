package store

// MistakeKind classifies why an attempt went wrong.
type MistakeKind string

const (
	MistakeConceptual     MistakeKind = "CONCEPTUAL"
	MistakeCalculation    MistakeKind = "CALCULATION"
	MistakeReading        MistakeKind = "READING"
	MistakeOverconfidence MistakeKind = "OVERCONFIDENCE"
)

// Attempt is an immutable graded attempt record. It is the source of
// truth for all scoring and is only ever aggregated over sliding windows.
type Attempt struct {
	ID         int64
	UserID     string
	QuestionID string

	// Resolved from the question at grading time.
	SubtopicID string
	TopicID    string
	SubjectID  string

	// Difficulty is bucketed 1 (easy) to 4 (very hard).
	Difficulty int
	IsCorrect  bool
	// TimingSec is nil when the client reported no timing.
	TimingSec *float64
	// Mistake is nil for correct attempts or unclassified mistakes.
	Mistake *MistakeKind

	SolvedTs int64
}

// FindAttempt is the parameter object for listing attempts.
// Results are ordered most-recent-first.
type FindAttempt struct {
	UserID     *string
	TopicID    *string
	SubtopicID *string
	// SolvedAfter bounds the sliding window (unix seconds).
	SolvedAfter *int64
	Limit       *int
}
