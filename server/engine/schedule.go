package engine

import (
	"context"
	"math"
	"time"

	"github.com/rankmarg/mastery/server/engine/config"
	"github.com/rankmarg/mastery/server/engine/interval"
	"github.com/rankmarg/mastery/server/engine/phase"
	"github.com/rankmarg/mastery/server/engine/priority"
	"github.com/rankmarg/mastery/server/engine/retention"
	"github.com/rankmarg/mastery/server/engine/trend"
	"github.com/rankmarg/mastery/server/engine/urgency"
	"github.com/rankmarg/mastery/server/internal/errors"
	"github.com/rankmarg/mastery/server/internal/observability"
	"github.com/rankmarg/mastery/store"
)

// schedule derives the next review for one topic from its fresh
// mastery state and persists the schedule row. The fractional interval
// drives the next-review timestamp at hour resolution; the stored
// ReviewInterval column stays day-granular and never drops below 1.
func (e *Engine) schedule(ctx context.Context, userID, topicID string, attempts []store.Attempt, tm *store.TopicMastery, profile *store.UserProfile, exam config.Exam, now time.Time) (*TopicOutcome, error) {
	prior, err := e.store.GetReviewSchedule(ctx, &store.FindReviewSchedule{UserID: &userID, TopicID: &topicID})
	if err != nil {
		return nil, errors.TransientIO("failed to load review schedule", err)
	}

	correct := 0
	timeSum, timeN := 0.0, 0
	var diffSum float64
	for _, a := range attempts {
		if a.IsCorrect {
			correct++
		}
		if a.TimingSec != nil && *a.TimingSec > 0 {
			timeSum += *a.TimingSec
			timeN++
		}
		diffSum += float64(a.Difficulty)
	}
	avgTime := 0.0
	if timeN > 0 {
		avgTime = timeSum / float64(timeN)
	}
	avgDifficulty := diffSum / float64(len(attempts))

	strength := retention.Strength(correct, len(attempts), avgTime, exam.IdealTimeSec)
	cc, ci := streaks(attempts)

	lastReviewed := time.Unix(attempts[0].SolvedTs, 0)
	completedReviews := 0
	if prior != nil {
		completedReviews = prior.CompletedReviews
		if attempts[0].SolvedTs > prior.LastReviewedTs {
			completedReviews++
		}
	} else {
		completedReviews = 1
	}

	examDays := daysUntilExam(profile, now)
	level := urgency.Classify(examDays, e.cfg.Windows)

	thresholds := e.cfg.Thresholds.Adjusted(int(math.Round(exam.ThresholdAdjustment)))
	p := phase.Classify(phase.ClassifyInput{
		TotalAttempts:      tm.TotalAttempts,
		MasteryLevel:       tm.MasteryLevel,
		CompletedReviews:   completedReviews,
		ConsecutiveCorrect: cc,
		RetentionStrength:  strength,
	}, thresholds)

	res := interval.Compute(interval.Input{
		Phase:                p,
		PhaseConfig:          e.cfg.Phases[p],
		MasteryLevel:         tm.MasteryLevel,
		StrengthIndex:        tm.StrengthIndex,
		Retention:            strength,
		Confidence:           float64(tm.StrengthIndex) / 100,
		Velocity:             trend.Compute(attempts).Velocity(),
		AvgDifficulty:        avgDifficulty,
		CompletedReviews:     completedReviews,
		ConsecutiveCorrect:   cc,
		ConsecutiveIncorrect: ci,
		Urgency:              level,
		DaysUntilExam:        examDays,
		MaxIntervalDays:      e.cfg.MaxIntervalDays,
	})

	nextReview := lastReviewed.Add(time.Duration(math.Round(res.Days*24)) * time.Hour)
	if nextReview.Before(lastReviewed) {
		nextReview = lastReviewed
	}

	_, err = e.store.UpsertReviewSchedule(ctx, &store.UpsertReviewSchedule{
		UserID:               userID,
		TopicID:              topicID,
		LastReviewedTs:       lastReviewed.Unix(),
		NextReviewTs:         nextReview.Unix(),
		ReviewInterval:       interval.RoundDays(res.Days, e.cfg.MaxIntervalDays),
		RetentionStrength:    strength,
		CompletedReviews:     completedReviews,
		ConsecutiveCorrect:   cc,
		ConsecutiveIncorrect: ci,
		UpdatedTs:            now.Unix(),
	})
	if err != nil {
		return nil, errors.TransientIO("failed to upsert review schedule", err)
	}
	observability.GlobalMetrics().RecordScheduleSaved()

	daysSinceReview := 0.0
	if prior != nil && prior.LastReviewedTs > 0 {
		daysSinceReview = math.Max(float64(now.Unix()-prior.LastReviewedTs)/86400, 0)
	}
	// Priority reads recall, not raw strength: an untouched topic gets
	// riskier as its last review recedes.
	recall := retention.RecallProbability(strength, daysSinceReview, e.cfg.BaseDecayRate)

	return &TopicOutcome{
		TopicID:       topicID,
		MasteryLevel:  tm.MasteryLevel,
		StrengthIndex: tm.StrengthIndex,
		Phase:         p,
		Urgency:       level,
		Retention:     strength,
		IntervalDays:  res.Days,
		Priority: priority.Score(priority.Input{
			Phase:                p,
			Urgency:              level,
			MasteryLevel:         tm.MasteryLevel,
			Retention:            recall,
			ConsecutiveIncorrect: ci,
			DaysSinceReview:      daysSinceReview,
			DaysUntilExam:        examDays,
		}),
		NextReview: nextReview,
	}, nil
}

// streaks returns the consecutive-correct and consecutive-incorrect
// run lengths from the most recent attempt backwards. At most one of
// the two is non-zero.
func streaks(attempts []store.Attempt) (cc, ci int) {
	if len(attempts) == 0 {
		return 0, 0
	}
	if attempts[0].IsCorrect {
		for _, a := range attempts {
			if !a.IsCorrect {
				break
			}
			cc++
		}
		return cc, 0
	}
	for _, a := range attempts {
		if a.IsCorrect {
			break
		}
		ci++
	}
	return 0, ci
}
