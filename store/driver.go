package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	IsInitialized(ctx context.Context) (bool, error)

	// Attempt model related methods. Attempts are immutable: the engine
	// only ever reads them over sliding windows.
	CreateAttempt(ctx context.Context, create *Attempt) (*Attempt, error)
	ListAttempts(ctx context.Context, find *FindAttempt) ([]*Attempt, error)

	// Syllabus catalog related methods (read-only for the engine).
	ListSubjects(ctx context.Context, find *FindSubject) ([]*Subject, error)
	ListTopics(ctx context.Context, find *FindTopic) ([]*Topic, error)
	ListSubtopics(ctx context.Context, find *FindSubtopic) ([]*Subtopic, error)

	// Mastery model related methods.
	UpsertSubtopicMastery(ctx context.Context, upsert *UpsertSubtopicMastery) (*SubtopicMastery, error)
	ListSubtopicMasteries(ctx context.Context, find *FindSubtopicMastery) ([]*SubtopicMastery, error)
	UpsertTopicMastery(ctx context.Context, upsert *UpsertTopicMastery) (*TopicMastery, error)
	GetTopicMastery(ctx context.Context, find *FindTopicMastery) (*TopicMastery, error)
	ListTopicMasteries(ctx context.Context, find *FindTopicMastery) ([]*TopicMastery, error)
	UpsertSubjectMastery(ctx context.Context, upsert *UpsertSubjectMastery) (*SubjectMastery, error)
	ListSubjectMasteries(ctx context.Context, find *FindSubjectMastery) ([]*SubjectMastery, error)

	// ReviewSchedule model related methods.
	UpsertReviewSchedule(ctx context.Context, upsert *UpsertReviewSchedule) (*ReviewSchedule, error)
	GetReviewSchedule(ctx context.Context, find *FindReviewSchedule) (*ReviewSchedule, error)
	ListReviewSchedules(ctx context.Context, find *FindReviewSchedule) ([]*ReviewSchedule, error)

	// UserProfile model related methods (read-only for the engine).
	GetUserProfile(ctx context.Context, find *FindUserProfile) (*UserProfile, error)
	ListActiveUserIDs(ctx context.Context, find *FindActiveUserIDs) ([]string, error)

	// ExamSetting model related methods.
	ListExamSettings(ctx context.Context, find *FindExamSetting) ([]*ExamSetting, error)
	UpsertExamSetting(ctx context.Context, upsert *ExamSetting) (*ExamSetting, error)
}
