package store

// ReviewSchedule is the per-user, per-topic spaced-repetition state.
// It is created on the first mastery computation for a topic and
// upserted on every scheduling pass.
//
// Invariants: NextReviewTs >= LastReviewedTs and
// 1 <= ReviewInterval <= the configured maximum interval. Sub-day
// intervals from the struggling-topic protocol survive in NextReviewTs
// (hour resolution) while ReviewInterval stays day-granular.
type ReviewSchedule struct {
	UserID  string
	TopicID string

	LastReviewedTs int64
	NextReviewTs   int64
	// ReviewInterval is whole days.
	ReviewInterval int
	// RetentionStrength is in [0, 1].
	RetentionStrength float64

	CompletedReviews     int
	ConsecutiveCorrect   int
	ConsecutiveIncorrect int

	UpdatedTs int64
}

// FindReviewSchedule is the parameter object for schedule lookups.
type FindReviewSchedule struct {
	UserID  *string
	TopicID *string
	// DueBefore selects schedules with NextReviewTs at or before the
	// given unix time. A topic with no schedule row is "never reviewed,
	// review immediately": Store.ListDueReviewSchedules makes that
	// default explicit for consumers.
	DueBefore *int64
	Limit     *int
	Offset    *int
}

// UpsertReviewSchedule writes a schedule row.
type UpsertReviewSchedule struct {
	UserID  string
	TopicID string

	LastReviewedTs    int64
	NextReviewTs      int64
	ReviewInterval    int
	RetentionStrength float64

	CompletedReviews     int
	ConsecutiveCorrect   int
	ConsecutiveIncorrect int

	UpdatedTs int64
}
