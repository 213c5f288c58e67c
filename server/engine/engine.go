// Package engine wires the scoring and scheduling calculators into the
// per-user processing pipeline.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/rankmarg/mastery/server/engine/aggregate"
	"github.com/rankmarg/mastery/server/engine/config"
	"github.com/rankmarg/mastery/server/engine/mastery"
	"github.com/rankmarg/mastery/server/engine/phase"
	"github.com/rankmarg/mastery/server/engine/priority"
	"github.com/rankmarg/mastery/server/engine/trend"
	"github.com/rankmarg/mastery/server/engine/urgency"
	"github.com/rankmarg/mastery/server/internal/errors"
	"github.com/rankmarg/mastery/server/internal/observability"
	"github.com/rankmarg/mastery/store"
)

// Engine runs the mastery and scheduling pipeline against the store.
// It holds no per-user state; every call is independent.
type Engine struct {
	store *store.Store
	cfg   *config.Config
}

// New creates an engine over the given store and configuration.
func New(s *store.Store, cfg *config.Config) *Engine {
	return &Engine{store: s, cfg: cfg}
}

// TopicOutcome is the per-topic result of one scheduling pass.
type TopicOutcome struct {
	TopicID       string
	MasteryLevel  int
	StrengthIndex int
	Phase         phase.Phase
	Urgency       urgency.Level
	Retention     float64
	IntervalDays  float64
	Priority      int
	NextReview    time.Time
}

// TopicError records one topic that failed inside a user pass while
// the user's other topics went through.
type TopicError struct {
	TopicID string
	Err     error
}

// UserResult aggregates one user's pass.
type UserResult struct {
	UserID      string
	Outcomes    []TopicOutcome
	TopicErrors []TopicError
	// SubjectsUpdated counts subject mastery rows rolled up.
	SubjectsUpdated int
	// RecommendedDailyLoad is the suggested review/new-topic count per
	// day, derived from the user's weakest phase and exam pressure.
	RecommendedDailyLoad int
}

// ProcessUser scores and schedules every topic the user touched inside
// the attempt window, then rolls subjects up. Subtopic writes happen
// before topic writes and topic writes before subject writes; the
// roll-ups read what the previous level just wrote. Topic failures
// land in the result's TopicErrors and abort the pass only when every
// topic failed.
func (e *Engine) ProcessUser(ctx context.Context, userID string, now time.Time) (*UserResult, error) {
	profile, err := e.store.GetUserProfile(ctx, &store.FindUserProfile{UserID: &userID})
	if err != nil {
		return nil, errors.TransientIO("failed to load user profile", err)
	}

	exam, err := e.resolveExam(ctx, examCode(profile))
	if err != nil {
		return nil, err
	}

	attempts, err := e.windowAttempts(ctx, &store.FindAttempt{UserID: &userID}, now)
	if err != nil {
		return nil, err
	}
	if len(attempts) == 0 {
		return nil, errors.MissingData(fmt.Sprintf("user %s has no attempts in the scoring window", userID))
	}

	byTopic := groupByTopic(attempts)
	topicIDs := make([]string, 0, len(byTopic))
	for id := range byTopic {
		topicIDs = append(topicIDs, id)
	}
	sort.Strings(topicIDs)

	result := &UserResult{UserID: userID}
	subjectIDs := map[string]bool{}
	for _, topicID := range topicIDs {
		outcome, err := e.processTopic(ctx, userID, topicID, byTopic[topicID], profile, exam, now)
		if err != nil {
			// Topics fail independently; one bad topic must not
			// starve the user's remaining topics.
			slog.Warn("topic pass failed", "user", userID, "topic", topicID, "error", err)
			result.TopicErrors = append(result.TopicErrors, TopicError{TopicID: topicID, Err: err})
			continue
		}
		result.Outcomes = append(result.Outcomes, *outcome)
		if subjectID := byTopic[topicID][0].SubjectID; subjectID != "" {
			subjectIDs[subjectID] = true
		}
	}
	if len(result.Outcomes) == 0 && len(result.TopicErrors) > 0 {
		return nil, result.TopicErrors[0].Err
	}

	for subjectID := range subjectIDs {
		updated, err := e.rollupSubject(ctx, userID, subjectID, now)
		if err != nil {
			return nil, err
		}
		if updated {
			result.SubjectsUpdated++
		}
	}

	result.RecommendedDailyLoad = priority.RecommendedDailyLoad(
		weakestPhase(result.Outcomes),
		urgency.Classify(daysUntilExam(profile, now), e.cfg.Windows),
	)
	return result, nil
}

// ProcessUserTopic runs the pipeline for a single (user, topic) pair.
func (e *Engine) ProcessUserTopic(ctx context.Context, userID, topicID string, now time.Time) (*TopicOutcome, error) {
	profile, err := e.store.GetUserProfile(ctx, &store.FindUserProfile{UserID: &userID})
	if err != nil {
		return nil, errors.TransientIO("failed to load user profile", err)
	}

	exam, err := e.resolveExam(ctx, examCode(profile))
	if err != nil {
		return nil, err
	}

	attempts, err := e.windowAttempts(ctx, &store.FindAttempt{UserID: &userID, TopicID: &topicID}, now)
	if err != nil {
		return nil, err
	}
	if len(attempts) == 0 {
		return nil, errors.MissingData(fmt.Sprintf("no mastery data for user %s topic %s", userID, topicID))
	}

	return e.processTopic(ctx, userID, topicID, attempts, profile, exam, now)
}

// windowAttempts fetches the bounded, most-recent-first attempt window.
func (e *Engine) windowAttempts(ctx context.Context, find *store.FindAttempt, now time.Time) ([]store.Attempt, error) {
	after := now.Add(-time.Duration(e.cfg.AttemptWindowDays) * 24 * time.Hour).Unix()
	find.SolvedAfter = &after

	rows, err := e.store.ListAttempts(ctx, find)
	if err != nil {
		return nil, errors.TransientIO("failed to list attempts", err)
	}

	attempts := make([]store.Attempt, 0, len(rows))
	for _, row := range rows {
		attempts = append(attempts, *row)
	}
	sort.Slice(attempts, func(i, j int) bool { return attempts[i].SolvedTs > attempts[j].SolvedTs })
	return attempts, nil
}

func groupByTopic(attempts []store.Attempt) map[string][]store.Attempt {
	byTopic := map[string][]store.Attempt{}
	for _, a := range attempts {
		byTopic[a.TopicID] = append(byTopic[a.TopicID], a)
	}
	return byTopic
}

// processTopic runs one (user, topic) unit: subtopic scores, topic
// roll-up, then the schedule write. The topic sees at most
// AttemptWindowSize recent attempts; everything older is the blended
// prior's job.
func (e *Engine) processTopic(ctx context.Context, userID, topicID string, attempts []store.Attempt, profile *store.UserProfile, exam config.Exam, now time.Time) (*TopicOutcome, error) {
	attempts = capWindow(attempts, e.cfg.AttemptWindowSize)

	inWindow, err := e.scoreSubtopics(ctx, userID, topicID, attempts, profile, exam, now)
	if err != nil {
		return nil, err
	}

	topicMastery, err := e.rollupTopic(ctx, userID, topicID, attempts, inWindow, now)
	if err != nil {
		return nil, err
	}

	return e.schedule(ctx, userID, topicID, attempts, topicMastery, profile, exam, now)
}

// scoreSubtopics computes and blend-upserts mastery for every subtopic
// with attempts in the window. It returns the set of subtopic ids that
// were scored; subtopics the user did not touch keep their stored rows
// untouched.
func (e *Engine) scoreSubtopics(ctx context.Context, userID, topicID string, attempts []store.Attempt, profile *store.UserProfile, exam config.Exam, now time.Time) (map[string]bool, error) {
	bySubtopic := map[string][]store.Attempt{}
	for _, a := range attempts {
		if a.SubtopicID == "" {
			continue
		}
		bySubtopic[a.SubtopicID] = append(bySubtopic[a.SubtopicID], a)
	}

	existing, err := e.store.ListSubtopicMasteries(ctx, &store.FindSubtopicMastery{UserID: &userID, TopicID: &topicID})
	if err != nil {
		return nil, errors.TransientIO("failed to list subtopic mastery", err)
	}
	prior := make(map[string]*store.SubtopicMastery, len(existing))
	for _, row := range existing {
		prior[row.SubtopicID] = row
	}

	subtopicIDs := make([]string, 0, len(bySubtopic))
	for id := range bySubtopic {
		subtopicIDs = append(subtopicIDs, id)
	}
	sort.Strings(subtopicIDs)

	inWindow := make(map[string]bool, len(subtopicIDs))
	for _, subtopicID := range subtopicIDs {
		window := capWindow(bySubtopic[subtopicID], e.cfg.AttemptWindowSize)
		res, ok := mastery.Compute(mastery.Input{
			Attempts: window,
			Profile:  profile,
			Trend:    trend.Compute(window),
			Exam:     exam,
			Now:      now,
		})
		if !ok {
			continue
		}

		priorRow, hasPrior := prior[subtopicID]
		upsert := &store.UpsertSubtopicMastery{
			UserID:          userID,
			SubtopicID:      subtopicID,
			TopicID:         topicID,
			MasteryLevel:    res.MasteryLevel,
			StrengthIndex:   res.StrengthIndex,
			TotalAttempts:   res.TotalAttempts,
			CorrectAttempts: res.CorrectAttempts,
			UpdatedTs:       now.Unix(),
		}
		if hasPrior {
			upsert.MasteryLevel = aggregate.Blend(priorRow.MasteryLevel, res.MasteryLevel, true)
			upsert.StrengthIndex = aggregate.Blend(priorRow.StrengthIndex, res.StrengthIndex, true)
		}
		if _, err := e.store.UpsertSubtopicMastery(ctx, upsert); err != nil {
			return nil, errors.TransientIO("failed to upsert subtopic mastery", err)
		}
		observability.GlobalMetrics().RecordMasteryUpsert()
		inWindow[subtopicID] = true
	}
	return inWindow, nil
}

// rollupTopic aggregates the topic's subtopic rows into the topic
// mastery record and persists it. When the topic has no subtopic
// structure the topic is scored directly from its own attempt window
// by the caller-supplied attempts.
func (e *Engine) rollupTopic(ctx context.Context, userID, topicID string, attempts []store.Attempt, inWindow map[string]bool, now time.Time) (*store.TopicMastery, error) {
	subjectID := attempts[0].SubjectID

	rows, err := e.store.ListSubtopicMasteries(ctx, &store.FindSubtopicMastery{UserID: &userID, TopicID: &topicID})
	if err != nil {
		return nil, errors.TransientIO("failed to list subtopic mastery", err)
	}

	weightages, err := e.subtopicWeightages(ctx, topicID)
	if err != nil {
		return nil, err
	}

	children := make([]aggregate.Child, 0, len(rows))
	for _, row := range rows {
		children = append(children, aggregate.Child{
			MasteryLevel:    row.MasteryLevel,
			StrengthIndex:   row.StrengthIndex,
			Weightage:       weightages[row.SubtopicID],
			TotalAttempts:   row.TotalAttempts,
			CorrectAttempts: row.CorrectAttempts,
			InWindow:        inWindow[row.SubtopicID],
		})
	}

	rollup, ok := aggregate.RollupTopic(children, e.cfg.MasteredThreshold)
	if !ok {
		// No subtopic rows at all: score the topic from its raw window.
		correct := 0
		for _, a := range attempts {
			if a.IsCorrect {
				correct++
			}
		}
		level := int(math.Round(float64(correct) / float64(len(attempts)) * 100))
		rollup = aggregate.Rollup{
			MasteryLevel:    level,
			StrengthIndex:   level / 2,
			TotalAttempts:   len(attempts),
			CorrectAttempts: correct,
		}
	}

	upsert := &store.UpsertTopicMastery{
		UserID:                userID,
		TopicID:               topicID,
		SubjectID:             subjectID,
		MasteryLevel:          rollup.MasteryLevel,
		StrengthIndex:         rollup.StrengthIndex,
		TotalAttempts:         rollup.TotalAttempts,
		CorrectAttempts:       rollup.CorrectAttempts,
		MasteredSubtopicCount: rollup.MasteredCount,
		UpdatedTs:             now.Unix(),
	}
	saved, err := e.store.UpsertTopicMastery(ctx, upsert)
	if err != nil {
		return nil, errors.TransientIO("failed to upsert topic mastery", err)
	}
	observability.GlobalMetrics().RecordMasteryUpsert()
	return saved, nil
}

// rollupSubject aggregates the subject's topic rows. Topics whose rows
// were refreshed this pass count as in-window.
func (e *Engine) rollupSubject(ctx context.Context, userID, subjectID string, now time.Time) (bool, error) {
	rows, err := e.store.ListTopicMasteries(ctx, &store.FindTopicMastery{UserID: &userID, SubjectID: &subjectID})
	if err != nil {
		return false, errors.TransientIO("failed to list topic mastery", err)
	}

	topics, err := e.store.ListTopics(ctx, &store.FindTopic{SubjectID: &subjectID})
	if err != nil {
		return false, errors.TransientIO("failed to list topics", err)
	}
	weightages := make(map[string]float64, len(topics))
	for _, t := range topics {
		weightages[t.ID] = t.Weightage
	}

	windowStart := now.Add(-time.Duration(e.cfg.AttemptWindowDays) * 24 * time.Hour).Unix()
	children := make([]aggregate.Child, 0, len(rows))
	for _, row := range rows {
		children = append(children, aggregate.Child{
			MasteryLevel:    row.MasteryLevel,
			StrengthIndex:   row.StrengthIndex,
			Weightage:       weightages[row.TopicID],
			TotalAttempts:   row.TotalAttempts,
			CorrectAttempts: row.CorrectAttempts,
			InWindow:        row.UpdatedTs >= windowStart,
		})
	}

	rollup, ok := aggregate.RollupSubject(children, e.cfg.MasteredThreshold)
	if !ok {
		return false, nil
	}

	_, err = e.store.UpsertSubjectMastery(ctx, &store.UpsertSubjectMastery{
		UserID:             userID,
		SubjectID:          subjectID,
		MasteryLevel:       rollup.MasteryLevel,
		StrengthIndex:      rollup.StrengthIndex,
		TotalAttempts:      rollup.TotalAttempts,
		CorrectAttempts:    rollup.CorrectAttempts,
		MasteredTopicCount: rollup.MasteredCount,
		UpdatedTs:          now.Unix(),
	})
	if err != nil {
		return false, errors.TransientIO("failed to upsert subject mastery", err)
	}
	observability.GlobalMetrics().RecordMasteryUpsert()
	return true, nil
}

func (e *Engine) subtopicWeightages(ctx context.Context, topicID string) (map[string]float64, error) {
	subtopics, err := e.store.ListSubtopics(ctx, &store.FindSubtopic{TopicID: &topicID})
	if err != nil {
		return nil, errors.TransientIO("failed to list subtopics", err)
	}
	weightages := make(map[string]float64, len(subtopics))
	for _, st := range subtopics {
		weightages[st.ID] = st.Weightage
	}
	return weightages, nil
}

func capWindow(attempts []store.Attempt, size int) []store.Attempt {
	if size > 0 && len(attempts) > size {
		return attempts[:size]
	}
	return attempts
}

func examCode(profile *store.UserProfile) string {
	if profile == nil {
		return config.DefaultExamCode
	}
	return profile.ExamCode
}

func daysUntilExam(profile *store.UserProfile, now time.Time) int {
	if profile == nil || profile.ExamTs == 0 {
		return -1
	}
	seconds := profile.ExamTs - now.Unix()
	if seconds < 0 {
		return -1
	}
	return int(seconds / 86400)
}

func weakestPhase(outcomes []TopicOutcome) phase.Phase {
	weakest := phase.Maintenance
	for _, o := range outcomes {
		if o.Phase < weakest {
			weakest = o.Phase
		}
	}
	if len(outcomes) == 0 {
		return phase.Acquisition
	}
	return weakest
}

// resolveExam layers any operator-tuned exam setting row over the
// static exam table. An unknown code falls back to DEFAULT; a table
// with no DEFAULT at all fails the unit.
func (e *Engine) resolveExam(ctx context.Context, code string) (config.Exam, error) {
	exam, ok := e.cfg.ResolveExam(code)
	if !ok {
		return config.Exam{}, errors.ConfigResolution(fmt.Sprintf("exam code %q has no configuration and no DEFAULT fallback", code))
	}

	settings, err := e.store.ListExamSettings(ctx, &store.FindExamSetting{})
	if err != nil {
		return config.Exam{}, errors.TransientIO("failed to list exam settings", err)
	}
	for _, setting := range settings {
		if setting.ExamCode != code && setting.ExamCode != config.DefaultExamCode {
			continue
		}
		// An exact code match beats a DEFAULT row.
		if setting.ExamCode == config.DefaultExamCode && code != config.DefaultExamCode {
			if hasExact(settings, code) {
				continue
			}
		}
		if setting.IdealTimeSec > 0 {
			exam.IdealTimeSec = setting.IdealTimeSec
		}
		exam.ThresholdAdjustment = setting.ThresholdAdjustment
		if setting.DifficultyMultiplier > 0 {
			exam.DifficultyMultiplier = setting.DifficultyMultiplier
		}
	}
	return exam, nil
}

func hasExact(settings []*store.ExamSetting, code string) bool {
	for _, s := range settings {
		if s.ExamCode == code {
			return true
		}
	}
	return false
}
