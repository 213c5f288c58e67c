package store

// UserProfile is read-only input to the engine. It influences streak
// bonuses, decay penalties, and the urgency window, but the engine never
// mutates it.
type UserProfile struct {
	UserID string
	// StudyHoursPerDay as self-reported by the student.
	StudyHoursPerDay float64
	// TargetYear is the calendar year of the target exam sitting.
	TargetYear int
	// ExamCode selects the exam configuration (resolves to DEFAULT when unknown).
	ExamCode string
	// ExamTs is the exam date when known (unix seconds, 0 when unset).
	ExamTs   int64
	IsActive bool
}

// FindUserProfile is the parameter object for profile lookups.
type FindUserProfile struct {
	UserID *string
}

// FindActiveUserIDs pages over active users in stable id order for
// batch scheduling.
type FindActiveUserIDs struct {
	Limit  int
	Offset int
}
