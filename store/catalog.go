package store

// The syllabus catalog is a strict DAG kept as entity id → parent id.
// There are no back-pointers from parents to children; aggregation walks
// child lists fetched by parent id.

// Subject is a top-level syllabus entity.
type Subject struct {
	ID       string
	Name     string
	ExamCode string
}

// FindSubject is the parameter object for listing subjects.
type FindSubject struct {
	ID       *string
	ExamCode *string
}

// Topic belongs to exactly one subject.
type Topic struct {
	ID        string
	SubjectID string
	Name      string
	// Weightage scales this topic's share of the subject roll-up.
	// Zero means unset; aggregation treats it as 1.
	Weightage float64
}

// FindTopic is the parameter object for listing topics.
type FindTopic struct {
	ID        *string
	SubjectID *string
}

// Subtopic belongs to exactly one topic.
type Subtopic struct {
	ID      string
	TopicID string
	Name    string
	// Weightage scales this subtopic's share of the topic roll-up.
	// Zero means unset; aggregation treats it as 1.
	Weightage float64
}

// FindSubtopic is the parameter object for listing subtopics.
type FindSubtopic struct {
	ID      *string
	TopicID *string
}
