package store

// EntityLevel identifies which syllabus level a mastery row belongs to.
type EntityLevel string

const (
	EntityLevelSubtopic EntityLevel = "subtopic"
	EntityLevelTopic    EntityLevel = "topic"
	EntityLevelSubject  EntityLevel = "subject"
)

// SubtopicMastery is the per-user mastery state of one subtopic.
// Rows are never deleted, only superseded by upserts.
type SubtopicMastery struct {
	UserID     string
	SubtopicID string
	// TopicID denormalizes the parent for roll-up reads.
	TopicID string

	MasteryLevel    int
	StrengthIndex   int
	TotalAttempts   int
	CorrectAttempts int

	UpdatedTs int64
}

// FindSubtopicMastery is the parameter object for listing subtopic mastery rows.
type FindSubtopicMastery struct {
	UserID     *string
	SubtopicID *string
	TopicID    *string
}

// UpsertSubtopicMastery writes a subtopic mastery row. The 60/40 blend with
// any existing row happens in the engine before the upsert; the store
// persists exactly what it is given.
type UpsertSubtopicMastery struct {
	UserID     string
	SubtopicID string
	TopicID    string

	MasteryLevel    int
	StrengthIndex   int
	TotalAttempts   int
	CorrectAttempts int

	UpdatedTs int64
}

// TopicMastery is the per-user mastery state of one topic.
type TopicMastery struct {
	UserID  string
	TopicID string
	// SubjectID denormalizes the parent for roll-up reads.
	SubjectID string

	MasteryLevel    int
	StrengthIndex   int
	TotalAttempts   int
	CorrectAttempts int
	// MasteredSubtopicCount counts children at or above the mastered
	// threshold. Consumed by reporting, not by the scheduler.
	MasteredSubtopicCount int

	UpdatedTs int64
}

// FindTopicMastery is the parameter object for topic mastery lookups.
type FindTopicMastery struct {
	UserID    *string
	TopicID   *string
	SubjectID *string
}

// UpsertTopicMastery writes a topic mastery row.
type UpsertTopicMastery struct {
	UserID    string
	TopicID   string
	SubjectID string

	MasteryLevel          int
	StrengthIndex         int
	TotalAttempts         int
	CorrectAttempts       int
	MasteredSubtopicCount int

	UpdatedTs int64
}

// SubjectMastery is the per-user mastery state of one subject.
type SubjectMastery struct {
	UserID    string
	SubjectID string

	MasteryLevel    int
	StrengthIndex   int
	TotalAttempts   int
	CorrectAttempts int
	// MasteredTopicCount counts children at or above the mastered
	// threshold. Consumed by reporting, not by the scheduler.
	MasteredTopicCount int

	UpdatedTs int64
}

// FindSubjectMastery is the parameter object for subject mastery lookups.
type FindSubjectMastery struct {
	UserID    *string
	SubjectID *string
}

// UpsertSubjectMastery writes a subject mastery row.
type UpsertSubjectMastery struct {
	UserID    string
	SubjectID string

	MasteryLevel       int
	StrengthIndex      int
	TotalAttempts      int
	CorrectAttempts    int
	MasteredTopicCount int

	UpdatedTs int64
}
