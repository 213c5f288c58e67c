package review

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankmarg/mastery/internal/profile"
	"github.com/rankmarg/mastery/server/engine"
	"github.com/rankmarg/mastery/server/engine/config"
	"github.com/rankmarg/mastery/store"
	"github.com/rankmarg/mastery/store/storetest"
)

func newRunner(t *testing.T, driver *storetest.Driver, batchSize int) *Runner {
	t.Helper()
	p := &profile.Profile{
		Mode:          "dev",
		BatchSize:     batchSize,
		Concurrency:   4,
		RetryAttempts: 2,
	}
	s := store.New(driver, p)
	t.Cleanup(func() { _ = s.Close() })
	return NewRunner(s, engine.New(s, config.Default()), p)
}

func seedActiveUser(driver *storetest.Driver, userID string, withAttempts bool) {
	driver.AddProfile(&store.UserProfile{
		UserID:   userID,
		ExamCode: "NEET",
		IsActive: true,
	})
	if !withAttempts {
		return
	}
	now := time.Now()
	for i := 0; i < 6; i++ {
		ts := 55.0
		_, _ = driver.CreateAttempt(context.Background(), &store.Attempt{
			UserID:     userID,
			QuestionID: fmt.Sprintf("%s-q%d", userID, i),
			SubtopicID: "st1",
			TopicID:    "t1",
			SubjectID:  "s1",
			Difficulty: 2,
			IsCorrect:  i%2 == 0,
			TimingSec:  &ts,
			SolvedTs:   now.Add(-time.Duration(i) * time.Hour).Unix(),
		})
	}
}

func TestRunOnceProcessesActiveUsers(t *testing.T) {
	driver := storetest.New()
	driver.AddTopic(&store.Topic{ID: "t1", SubjectID: "s1", Name: "Cell biology"})
	driver.AddSubtopic(&store.Subtopic{ID: "st1", TopicID: "t1", Name: "Mitosis"})
	for i := 0; i < 5; i++ {
		seedActiveUser(driver, fmt.Sprintf("u%d", i), true)
	}

	runner := newRunner(t, driver, 2)
	summary := runner.RunOnce(context.Background())

	assert.Equal(t, 5, summary.Processed)
	assert.Zero(t, summary.Failed)
	assert.Zero(t, summary.Skipped)
	assert.NotEmpty(t, summary.RunID)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		userID := fmt.Sprintf("u%d", i)
		schedules, err := runner.Store.ListReviewSchedules(ctx, &store.FindReviewSchedule{UserID: &userID})
		require.NoError(t, err)
		require.Len(t, schedules, 1, "user %s", userID)
	}
}

func TestRunOnceSkipsUsersWithoutAttempts(t *testing.T) {
	driver := storetest.New()
	seedActiveUser(driver, "active", true)
	seedActiveUser(driver, "idle", false)

	runner := newRunner(t, driver, 50)
	summary := runner.RunOnce(context.Background())

	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, summary.Failed)
	assert.Empty(t, summary.Errors)
}

func TestRunOnceIsolatesUnitFailures(t *testing.T) {
	driver := storetest.New()
	seedActiveUser(driver, "u1", true)
	seedActiveUser(driver, "u2", true)

	runner := newRunner(t, driver, 50)
	// An exam table with no DEFAULT makes every unit fail config
	// resolution without retries, but the run itself completes.
	runner.Engine = engine.New(runner.Store, brokenConfig())

	summary := runner.RunOnce(context.Background())
	assert.Zero(t, summary.Processed)
	assert.Equal(t, 2, summary.Failed)
	assert.Len(t, summary.Errors, 2)
}

func brokenConfig() *config.Config {
	cfg := config.Default()
	cfg.Exams = map[string]config.Exam{}
	return cfg
}

func TestRunOncePagination(t *testing.T) {
	driver := storetest.New()
	for i := 0; i < 7; i++ {
		seedActiveUser(driver, fmt.Sprintf("u%d", i), true)
	}

	// Batch size 3 means three sequential pages: 3 + 3 + 1.
	runner := newRunner(t, driver, 3)
	summary := runner.RunOnce(context.Background())
	assert.Equal(t, 7, summary.Processed)
}

func TestScheduleStopsOnCancel(t *testing.T) {
	driver := storetest.New()
	runner := newRunner(t, driver, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Schedule(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}
