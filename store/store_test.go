package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rankmarg/mastery/internal/profile"
	"github.com/rankmarg/mastery/store"
	"github.com/rankmarg/mastery/store/storetest"
)

func TestListDueReviewSchedules(t *testing.T) {
	ctx := context.Background()
	driver := storetest.New()
	s := store.New(driver, &profile.Profile{Mode: "dev"})
	t.Cleanup(func() { _ = s.Close() })

	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	userID := "u1"

	// Topic with a schedule row in the past: due.
	_, err := s.UpsertReviewSchedule(ctx, &store.UpsertReviewSchedule{
		UserID:            userID,
		TopicID:           "kin",
		LastReviewedTs:    now.AddDate(0, 0, -5).Unix(),
		NextReviewTs:      now.AddDate(0, 0, -2).Unix(),
		ReviewInterval:    3,
		RetentionStrength: 0.7,
		CompletedReviews:  2,
		UpdatedTs:         now.Unix(),
	})
	require.NoError(t, err)

	// Topic scheduled for next week: not due.
	_, err = s.UpsertReviewSchedule(ctx, &store.UpsertReviewSchedule{
		UserID:            userID,
		TopicID:           "opt",
		LastReviewedTs:    now.AddDate(0, 0, -1).Unix(),
		NextReviewTs:      now.AddDate(0, 0, 7).Unix(),
		ReviewInterval:    8,
		RetentionStrength: 0.9,
		CompletedReviews:  4,
		UpdatedTs:         now.Unix(),
	})
	require.NoError(t, err)

	// Topic with mastery data but no schedule row: review immediately.
	_, err = s.UpsertTopicMastery(ctx, &store.UpsertTopicMastery{
		UserID:       userID,
		TopicID:      "thermo",
		SubjectID:    "phy",
		MasteryLevel: 62,
		UpdatedTs:    now.Unix(),
	})
	require.NoError(t, err)

	due, err := s.ListDueReviewSchedules(ctx, userID, now)
	require.NoError(t, err)
	require.Len(t, due, 2)

	byTopic := make(map[string]*store.ReviewSchedule, len(due))
	for _, schedule := range due {
		byTopic[schedule.TopicID] = schedule
	}
	require.Contains(t, byTopic, "kin")
	require.NotContains(t, byTopic, "opt")

	// The never-scheduled topic surfaces as a zero-history schedule
	// due right now.
	neverScheduled, ok := byTopic["thermo"]
	require.True(t, ok)
	require.Equal(t, now.Unix(), neverScheduled.NextReviewTs)
	require.Equal(t, 1, neverScheduled.ReviewInterval)
}

func TestListDueReviewSchedulesEmptyUser(t *testing.T) {
	driver := storetest.New()
	s := store.New(driver, &profile.Profile{Mode: "dev"})
	t.Cleanup(func() { _ = s.Close() })

	due, err := s.ListDueReviewSchedules(context.Background(), "ghost", time.Now())
	require.NoError(t, err)
	require.Empty(t, due)
}

func TestStoreServesCachedReferenceData(t *testing.T) {
	ctx := context.Background()
	driver := storetest.New()
	s := store.New(driver, &profile.Profile{Mode: "dev"})
	t.Cleanup(func() { _ = s.Close() })

	driver.AddSubject(&store.Subject{ID: "phy", Name: "Physics", ExamCode: "JEE"})
	driver.AddTopic(&store.Topic{ID: "kin", SubjectID: "phy", Name: "Kinematics", Weightage: 2})
	driver.AddProfile(&store.UserProfile{UserID: "u1", ExamCode: "JEE", IsActive: true})
	_, err := s.UpsertExamSetting(ctx, &store.ExamSetting{ExamCode: "JEE", IdealTimeSec: 120})
	require.NoError(t, err)

	// Warm the caches.
	subjectID := "phy"
	topics, err := s.ListTopics(ctx, &store.FindTopic{SubjectID: &subjectID})
	require.NoError(t, err)
	require.Len(t, topics, 1)

	userID := "u1"
	userProfile, err := s.GetUserProfile(ctx, &store.FindUserProfile{UserID: &userID})
	require.NoError(t, err)
	require.NotNil(t, userProfile)

	settings, err := s.ListExamSettings(ctx, nil)
	require.NoError(t, err)
	require.Len(t, settings, 1)

	// With the driver down, warm reads keep being served from cache.
	driver.SetErr(fmt.Errorf("connection refused"))

	topics, err = s.ListTopics(ctx, &store.FindTopic{SubjectID: &subjectID})
	require.NoError(t, err)
	require.Len(t, topics, 1)

	userProfile, err = s.GetUserProfile(ctx, &store.FindUserProfile{UserID: &userID})
	require.NoError(t, err)
	require.NotNil(t, userProfile)

	settings, err = s.ListExamSettings(ctx, nil)
	require.NoError(t, err)
	require.Len(t, settings, 1)
}
