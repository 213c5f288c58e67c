package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankmarg/mastery/internal/profile"
	"github.com/rankmarg/mastery/server/engine/config"
	"github.com/rankmarg/mastery/server/internal/errors"
	"github.com/rankmarg/mastery/store"
	"github.com/rankmarg/mastery/store/storetest"
)

type fixture struct {
	driver *storetest.Driver
	store  *store.Store
	engine *Engine
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	driver := storetest.New()
	s := store.New(driver, &profile.Profile{Mode: "dev"})
	t.Cleanup(func() { _ = s.Close() })

	return &fixture{
		driver: driver,
		store:  s,
		engine: New(s, config.Default()),
		now:    time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) seedCatalog() {
	f.driver.AddSubject(&store.Subject{ID: "phy", Name: "Physics", ExamCode: "JEE"})
	f.driver.AddTopic(&store.Topic{ID: "kin", SubjectID: "phy", Name: "Kinematics", Weightage: 2})
	f.driver.AddTopic(&store.Topic{ID: "opt", SubjectID: "phy", Name: "Optics", Weightage: 1})
	f.driver.AddSubtopic(&store.Subtopic{ID: "kin-1", TopicID: "kin", Name: "Projectile motion"})
	f.driver.AddSubtopic(&store.Subtopic{ID: "kin-2", TopicID: "kin", Name: "Relative velocity"})
	f.driver.AddSubtopic(&store.Subtopic{ID: "opt-1", TopicID: "opt", Name: "Refraction"})
}

func (f *fixture) seedUser(userID string, examTs int64) {
	f.driver.AddProfile(&store.UserProfile{
		UserID:           userID,
		StudyHoursPerDay: 4,
		TargetYear:       2026,
		ExamCode:         "JEE",
		ExamTs:           examTs,
		IsActive:         true,
	})
}

// seedAttempts writes n attempts for one subtopic ending at end, one
// hour apart, most recent first in the correctness slice.
func (f *fixture) seedAttempts(userID, subjectID, topicID, subtopicID string, end time.Time, correctness []bool, timingSec float64) {
	for i, correct := range correctness {
		ts := timingSec
		var mistake *store.MistakeKind
		if !correct {
			kind := store.MistakeConceptual
			mistake = &kind
		}
		_, _ = f.driver.CreateAttempt(context.Background(), &store.Attempt{
			UserID:     userID,
			QuestionID: fmt.Sprintf("%s-q%d", subtopicID, i),
			SubtopicID: subtopicID,
			TopicID:    topicID,
			SubjectID:  subjectID,
			Difficulty: 2,
			IsCorrect:  correct,
			TimingSec:  &ts,
			Mistake:    mistake,
			SolvedTs:   end.Add(-time.Duration(i) * time.Hour).Unix(),
		})
	}
}

func allCorrect(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}

func TestProcessUserEndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedCatalog()
	f.seedUser("u1", f.now.Add(60*24*time.Hour).Unix())

	f.seedAttempts("u1", "phy", "kin", "kin-1", f.now.Add(-time.Hour), allCorrect(8), 110)
	f.seedAttempts("u1", "phy", "kin", "kin-2", f.now.Add(-2*time.Hour), []bool{true, false, true, true, false, true}, 140)
	f.seedAttempts("u1", "phy", "opt", "opt-1", f.now.Add(-3*time.Hour), []bool{false, false, true, true}, 200)

	result, err := f.engine.ProcessUser(ctx, "u1", f.now)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 2)
	assert.Equal(t, 1, result.SubjectsUpdated)
	assert.Greater(t, result.RecommendedDailyLoad, 0)

	userID := "u1"
	subtopicRows, err := f.store.ListSubtopicMasteries(ctx, &store.FindSubtopicMastery{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, subtopicRows, 3)
	for _, row := range subtopicRows {
		assert.GreaterOrEqual(t, row.MasteryLevel, 0)
		assert.LessOrEqual(t, row.MasteryLevel, 100)
	}

	topicRows, err := f.store.ListTopicMasteries(ctx, &store.FindTopicMastery{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, topicRows, 2)

	subjectRows, err := f.store.ListSubjectMasteries(ctx, &store.FindSubjectMastery{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, subjectRows, 1)
	assert.Equal(t, "phy", subjectRows[0].SubjectID)

	schedules, err := f.store.ListReviewSchedules(ctx, &store.FindReviewSchedule{UserID: &userID})
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	for _, schedule := range schedules {
		assert.GreaterOrEqual(t, schedule.NextReviewTs, schedule.LastReviewedTs)
		assert.GreaterOrEqual(t, schedule.ReviewInterval, 1)
		assert.LessOrEqual(t, schedule.ReviewInterval, 90)
		assert.GreaterOrEqual(t, schedule.RetentionStrength, 0.0)
		assert.LessOrEqual(t, schedule.RetentionStrength, 1.0)
		assert.Equal(t, 1, schedule.CompletedReviews)
	}
}

func TestProcessUserNoAttempts(t *testing.T) {
	f := newFixture(t)
	f.seedCatalog()
	f.seedUser("u1", 0)

	_, err := f.engine.ProcessUser(context.Background(), "u1", f.now)
	require.Error(t, err)
	assert.True(t, errors.IsMissingData(err))
}

func TestProcessUserTopicSinglePair(t *testing.T) {
	f := newFixture(t)
	f.seedCatalog()
	f.seedUser("u1", 0)
	f.seedAttempts("u1", "phy", "kin", "kin-1", f.now.Add(-time.Hour), allCorrect(5), 100)

	outcome, err := f.engine.ProcessUserTopic(context.Background(), "u1", "kin", f.now)
	require.NoError(t, err)
	assert.Equal(t, "kin", outcome.TopicID)
	assert.Greater(t, outcome.MasteryLevel, 0)
	assert.Greater(t, outcome.Priority, 0)
	assert.False(t, outcome.NextReview.IsZero())

	_, err = f.engine.ProcessUserTopic(context.Background(), "u1", "opt", f.now)
	assert.True(t, errors.IsMissingData(err))
}

func TestRepeatedRunsBlendTowardFreshScore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedCatalog()
	f.seedUser("u1", 0)
	f.seedAttempts("u1", "phy", "kin", "kin-1", f.now.Add(-time.Hour), allCorrect(10), 110)

	userID, subtopicID := "u1", "kin-1"
	var levels []int
	for i := 0; i < 3; i++ {
		_, err := f.engine.ProcessUserTopic(ctx, userID, "kin", f.now)
		require.NoError(t, err)
		rows, err := f.store.ListSubtopicMasteries(ctx, &store.FindSubtopicMastery{UserID: &userID, SubtopicID: &subtopicID})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		levels = append(levels, rows[0].MasteryLevel)
	}

	// Later passes blend prior and fresh; with unchanged input the
	// stored level stays within a couple of points of the first score.
	assert.InDelta(t, levels[0], levels[2], 3)
}

func TestStrugglingTopicSchedulesRecovery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedCatalog()
	f.seedUser("u1", 0)
	// Three most recent attempts wrong.
	f.seedAttempts("u1", "phy", "kin", "kin-1", f.now.Add(-time.Hour), []bool{false, false, false, true, true, true, true, true}, 120)

	outcome, err := f.engine.ProcessUserTopic(ctx, "u1", "kin", f.now)
	require.NoError(t, err)
	assert.Equal(t, 0.25, outcome.IntervalDays)

	userID, topicID := "u1", "kin"
	schedule, err := f.store.GetReviewSchedule(ctx, &store.FindReviewSchedule{UserID: &userID, TopicID: &topicID})
	require.NoError(t, err)
	require.NotNil(t, schedule)
	// Sub-day recovery keeps the stored interval at the one-day floor
	// while the timestamp lands six hours after the last attempt.
	assert.Equal(t, 1, schedule.ReviewInterval)
	assert.Equal(t, schedule.LastReviewedTs+6*3600, schedule.NextReviewTs)
	assert.Equal(t, 3, schedule.ConsecutiveIncorrect)
	assert.Zero(t, schedule.ConsecutiveCorrect)
}

func TestConfigResolutionFailure(t *testing.T) {
	f := newFixture(t)
	f.seedCatalog()
	f.seedUser("u1", 0)
	f.seedAttempts("u1", "phy", "kin", "kin-1", f.now.Add(-time.Hour), allCorrect(4), 100)

	delete(f.engine.cfg.Exams, config.DefaultExamCode)
	delete(f.engine.cfg.Exams, "JEE")

	_, err := f.engine.ProcessUser(context.Background(), "u1", f.now)
	require.Error(t, err)
	assert.True(t, errors.IsConfigResolution(err))
}

func TestExamSettingOverridesStaticTable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedCatalog()
	f.seedUser("u1", 0)

	_, err := f.store.UpsertExamSetting(ctx, &store.ExamSetting{
		ExamCode:             "JEE",
		IdealTimeSec:         45,
		ThresholdAdjustment:  2,
		DifficultyMultiplier: 1.4,
	})
	require.NoError(t, err)

	exam, err := f.engine.resolveExam(ctx, "JEE")
	require.NoError(t, err)
	assert.Equal(t, 45.0, exam.IdealTimeSec)
	assert.Equal(t, 2.0, exam.ThresholdAdjustment)
	assert.Equal(t, 1.4, exam.DifficultyMultiplier)

	// Codes without a setting row keep the static entry.
	exam, err = f.engine.resolveExam(ctx, "NEET")
	require.NoError(t, err)
	assert.Equal(t, 60.0, exam.IdealTimeSec)
}

func TestTransientStoreFailure(t *testing.T) {
	f := newFixture(t)
	f.seedCatalog()
	f.seedUser("u1", 0)
	f.seedAttempts("u1", "phy", "kin", "kin-1", f.now.Add(-time.Hour), allCorrect(4), 100)

	f.driver.SetErr(fmt.Errorf("connection reset"))
	_, err := f.engine.ProcessUser(context.Background(), "u1", f.now)
	require.Error(t, err)
	assert.True(t, errors.IsTransientIO(err))
}

func TestCompletedReviewsAdvanceAcrossPasses(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedCatalog()
	f.seedUser("u1", 0)
	f.seedAttempts("u1", "phy", "kin", "kin-1", f.now.Add(-48*time.Hour), allCorrect(5), 100)

	_, err := f.engine.ProcessUserTopic(ctx, "u1", "kin", f.now.Add(-47*time.Hour))
	require.NoError(t, err)

	// A later session adds fresh attempts after the recorded review.
	f.seedAttempts("u1", "phy", "kin", "kin-1", f.now.Add(-time.Hour), allCorrect(3), 95)
	_, err = f.engine.ProcessUserTopic(ctx, "u1", "kin", f.now)
	require.NoError(t, err)

	userID, topicID := "u1", "kin"
	schedule, err := f.store.GetReviewSchedule(ctx, &store.FindReviewSchedule{UserID: &userID, TopicID: &topicID})
	require.NoError(t, err)
	require.NotNil(t, schedule)
	assert.Equal(t, 2, schedule.CompletedReviews)
}

func TestSubtopicWithoutRecentAttemptsKeepsMastery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedCatalog()
	f.seedUser("u1", 0)

	// Seed a stored mastery row from earlier activity.
	_, err := f.store.UpsertSubtopicMastery(ctx, &store.UpsertSubtopicMastery{
		UserID: "u1", SubtopicID: "kin-2", TopicID: "kin",
		MasteryLevel: 85, StrengthIndex: 70, TotalAttempts: 20, CorrectAttempts: 18,
		UpdatedTs: f.now.Add(-40 * 24 * time.Hour).Unix(),
	})
	require.NoError(t, err)

	// Only kin-1 sees attempts this window.
	f.seedAttempts("u1", "phy", "kin", "kin-1", f.now.Add(-time.Hour), []bool{true, false, true, false}, 150)
	_, err = f.engine.ProcessUserTopic(ctx, "u1", "kin", f.now)
	require.NoError(t, err)

	userID, subtopicID := "u1", "kin-2"
	rows, err := f.store.ListSubtopicMasteries(ctx, &store.FindSubtopicMastery{UserID: &userID, SubtopicID: &subtopicID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	// Untouched subtopic keeps its stored score.
	assert.Equal(t, 85, rows[0].MasteryLevel)

	// And the topic roll-up reflects only the active subtopic plus the
	// synthesis bonus, not the stale 85.
	topicID := "kin"
	topicRow, err := f.store.GetTopicMastery(ctx, &store.FindTopicMastery{UserID: &userID, TopicID: &topicID})
	require.NoError(t, err)
	require.NotNil(t, topicRow)
	assert.Less(t, topicRow.MasteryLevel, 85)
	assert.Equal(t, 1, topicRow.MasteredSubtopicCount)
}

func TestScheduleHonorsTopicAttemptCap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedCatalog()
	f.seedUser("u1", 0)
	// 50 in-window correct attempts spread over two subtopics of the
	// same topic; neither subtopic alone exceeds the window size.
	f.seedAttempts("u1", "phy", "kin", "kin-1", f.now.Add(-time.Hour), allCorrect(25), 100)
	f.seedAttempts("u1", "phy", "kin", "kin-2", f.now.Add(-30*time.Hour), allCorrect(25), 100)

	_, err := f.engine.ProcessUserTopic(ctx, "u1", "kin", f.now)
	require.NoError(t, err)

	userID, topicID := "u1", "kin"
	schedule, err := f.store.GetReviewSchedule(ctx, &store.FindReviewSchedule{UserID: &userID, TopicID: &topicID})
	require.NoError(t, err)
	require.NotNil(t, schedule)
	// Only the most recent AttemptWindowSize attempts feed the topic
	// aggregates, so the streak cannot exceed the window.
	assert.Equal(t, f.engine.cfg.AttemptWindowSize, schedule.ConsecutiveCorrect)
	assert.Less(t, schedule.ConsecutiveCorrect, 50)
}

func TestProcessUserIsolatesTopicFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedCatalog()
	f.seedUser("u1", 0)
	f.seedAttempts("u1", "phy", "kin", "kin-1", f.now.Add(-time.Hour), allCorrect(5), 100)
	f.seedAttempts("u1", "phy", "opt", "opt-1", f.now.Add(-time.Hour), allCorrect(5), 100)

	// Topic mastery writes for kin fail; opt must still go through.
	f.driver.TopicMasteryErr = func(upsert *store.UpsertTopicMastery) error {
		if upsert.TopicID == "kin" {
			return fmt.Errorf("disk full")
		}
		return nil
	}

	result, err := f.engine.ProcessUser(ctx, "u1", f.now)
	require.NoError(t, err)
	require.Len(t, result.Outcomes, 1)
	assert.Equal(t, "opt", result.Outcomes[0].TopicID)
	require.Len(t, result.TopicErrors, 1)
	assert.Equal(t, "kin", result.TopicErrors[0].TopicID)

	// The surviving topic's subject still rolls up.
	assert.Equal(t, 1, result.SubjectsUpdated)
}

func TestProcessUserAllTopicsFailing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedCatalog()
	f.seedUser("u1", 0)
	f.seedAttempts("u1", "phy", "kin", "kin-1", f.now.Add(-time.Hour), allCorrect(5), 100)

	f.driver.TopicMasteryErr = func(*store.UpsertTopicMastery) error {
		return fmt.Errorf("disk full")
	}

	_, err := f.engine.ProcessUser(ctx, "u1", f.now)
	require.Error(t, err)
}
