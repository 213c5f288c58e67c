// Package storetest provides an in-memory store driver for tests.
package storetest

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/rankmarg/mastery/store"
)

// Driver is a map-backed store.Driver. It applies the same filter
// semantics as the SQL drivers but keeps everything in process memory.
// Safe for concurrent use.
type Driver struct {
	mu sync.Mutex

	nextAttemptID int64
	attempts      []*store.Attempt
	subjects      []*store.Subject
	topics        []*store.Topic
	subtopics     []*store.Subtopic

	subtopicMastery map[[2]string]*store.SubtopicMastery
	topicMastery    map[[2]string]*store.TopicMastery
	subjectMastery  map[[2]string]*store.SubjectMastery
	schedules       map[[2]string]*store.ReviewSchedule
	profiles        map[string]*store.UserProfile
	examSettings    map[string]*store.ExamSetting

	// Err, when set, is returned by every subsequent call. Tests use it
	// to simulate transient store failures.
	Err error

	// TopicMasteryErr, when set, can fail topic mastery writes
	// selectively. Tests use it to break a single topic.
	TopicMasteryErr func(upsert *store.UpsertTopicMastery) error
}

// New creates an empty in-memory driver.
func New() *Driver {
	return &Driver{
		nextAttemptID:   1,
		subtopicMastery: map[[2]string]*store.SubtopicMastery{},
		topicMastery:    map[[2]string]*store.TopicMastery{},
		subjectMastery:  map[[2]string]*store.SubjectMastery{},
		schedules:       map[[2]string]*store.ReviewSchedule{},
		profiles:        map[string]*store.UserProfile{},
		examSettings:    map[string]*store.ExamSetting{},
	}
}

func (d *Driver) GetDB() *sql.DB { return nil }

func (d *Driver) Close() error { return nil }

func (d *Driver) IsInitialized(ctx context.Context) (bool, error) { return true, nil }

// SetErr makes every following call fail with err; nil clears it.
func (d *Driver) SetErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Err = err
}

// AddSubject registers a catalog subject.
func (d *Driver) AddSubject(s *store.Subject) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subjects = append(d.subjects, s)
}

// AddTopic registers a catalog topic.
func (d *Driver) AddTopic(t *store.Topic) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.topics = append(d.topics, t)
}

// AddSubtopic registers a catalog subtopic.
func (d *Driver) AddSubtopic(st *store.Subtopic) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subtopics = append(d.subtopics, st)
}

// AddProfile registers a user profile.
func (d *Driver) AddProfile(p *store.UserProfile) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profiles[p.UserID] = p
}

func (d *Driver) CreateAttempt(ctx context.Context, create *store.Attempt) (*store.Attempt, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	a := *create
	a.ID = d.nextAttemptID
	d.nextAttemptID++
	d.attempts = append(d.attempts, &a)
	return &a, nil
}

func (d *Driver) ListAttempts(ctx context.Context, find *store.FindAttempt) ([]*store.Attempt, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	var out []*store.Attempt
	for _, a := range d.attempts {
		if find.UserID != nil && a.UserID != *find.UserID {
			continue
		}
		if find.TopicID != nil && a.TopicID != *find.TopicID {
			continue
		}
		if find.SubtopicID != nil && a.SubtopicID != *find.SubtopicID {
			continue
		}
		if find.SolvedAfter != nil && a.SolvedTs < *find.SolvedAfter {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SolvedTs > out[j].SolvedTs })
	if find.Limit != nil && len(out) > *find.Limit {
		out = out[:*find.Limit]
	}
	return out, nil
}

func (d *Driver) ListSubjects(ctx context.Context, find *store.FindSubject) ([]*store.Subject, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	var out []*store.Subject
	for _, s := range d.subjects {
		if find.ID != nil && s.ID != *find.ID {
			continue
		}
		if find.ExamCode != nil && s.ExamCode != *find.ExamCode {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (d *Driver) ListTopics(ctx context.Context, find *store.FindTopic) ([]*store.Topic, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	var out []*store.Topic
	for _, t := range d.topics {
		if find.ID != nil && t.ID != *find.ID {
			continue
		}
		if find.SubjectID != nil && t.SubjectID != *find.SubjectID {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (d *Driver) ListSubtopics(ctx context.Context, find *store.FindSubtopic) ([]*store.Subtopic, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	var out []*store.Subtopic
	for _, st := range d.subtopics {
		if find.ID != nil && st.ID != *find.ID {
			continue
		}
		if find.TopicID != nil && st.TopicID != *find.TopicID {
			continue
		}
		out = append(out, st)
	}
	return out, nil
}

func (d *Driver) UpsertSubtopicMastery(ctx context.Context, upsert *store.UpsertSubtopicMastery) (*store.SubtopicMastery, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	row := &store.SubtopicMastery{
		UserID:          upsert.UserID,
		SubtopicID:      upsert.SubtopicID,
		TopicID:         upsert.TopicID,
		MasteryLevel:    upsert.MasteryLevel,
		StrengthIndex:   upsert.StrengthIndex,
		TotalAttempts:   upsert.TotalAttempts,
		CorrectAttempts: upsert.CorrectAttempts,
		UpdatedTs:       upsert.UpdatedTs,
	}
	d.subtopicMastery[[2]string{upsert.UserID, upsert.SubtopicID}] = row
	return row, nil
}

func (d *Driver) ListSubtopicMasteries(ctx context.Context, find *store.FindSubtopicMastery) ([]*store.SubtopicMastery, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	var out []*store.SubtopicMastery
	for _, row := range d.subtopicMastery {
		if find.UserID != nil && row.UserID != *find.UserID {
			continue
		}
		if find.SubtopicID != nil && row.SubtopicID != *find.SubtopicID {
			continue
		}
		if find.TopicID != nil && row.TopicID != *find.TopicID {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubtopicID < out[j].SubtopicID })
	return out, nil
}

func (d *Driver) UpsertTopicMastery(ctx context.Context, upsert *store.UpsertTopicMastery) (*store.TopicMastery, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	if d.TopicMasteryErr != nil {
		if err := d.TopicMasteryErr(upsert); err != nil {
			return nil, err
		}
	}
	row := &store.TopicMastery{
		UserID:                upsert.UserID,
		TopicID:               upsert.TopicID,
		SubjectID:             upsert.SubjectID,
		MasteryLevel:          upsert.MasteryLevel,
		StrengthIndex:         upsert.StrengthIndex,
		TotalAttempts:         upsert.TotalAttempts,
		CorrectAttempts:       upsert.CorrectAttempts,
		MasteredSubtopicCount: upsert.MasteredSubtopicCount,
		UpdatedTs:             upsert.UpdatedTs,
	}
	d.topicMastery[[2]string{upsert.UserID, upsert.TopicID}] = row
	return row, nil
}

func (d *Driver) GetTopicMastery(ctx context.Context, find *store.FindTopicMastery) (*store.TopicMastery, error) {
	rows, err := d.ListTopicMasteries(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (d *Driver) ListTopicMasteries(ctx context.Context, find *store.FindTopicMastery) ([]*store.TopicMastery, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	var out []*store.TopicMastery
	for _, row := range d.topicMastery {
		if find.UserID != nil && row.UserID != *find.UserID {
			continue
		}
		if find.TopicID != nil && row.TopicID != *find.TopicID {
			continue
		}
		if find.SubjectID != nil && row.SubjectID != *find.SubjectID {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TopicID < out[j].TopicID })
	return out, nil
}

func (d *Driver) UpsertSubjectMastery(ctx context.Context, upsert *store.UpsertSubjectMastery) (*store.SubjectMastery, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	row := &store.SubjectMastery{
		UserID:             upsert.UserID,
		SubjectID:          upsert.SubjectID,
		MasteryLevel:       upsert.MasteryLevel,
		StrengthIndex:      upsert.StrengthIndex,
		TotalAttempts:      upsert.TotalAttempts,
		CorrectAttempts:    upsert.CorrectAttempts,
		MasteredTopicCount: upsert.MasteredTopicCount,
		UpdatedTs:          upsert.UpdatedTs,
	}
	d.subjectMastery[[2]string{upsert.UserID, upsert.SubjectID}] = row
	return row, nil
}

func (d *Driver) ListSubjectMasteries(ctx context.Context, find *store.FindSubjectMastery) ([]*store.SubjectMastery, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	var out []*store.SubjectMastery
	for _, row := range d.subjectMastery {
		if find.UserID != nil && row.UserID != *find.UserID {
			continue
		}
		if find.SubjectID != nil && row.SubjectID != *find.SubjectID {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubjectID < out[j].SubjectID })
	return out, nil
}

func (d *Driver) UpsertReviewSchedule(ctx context.Context, upsert *store.UpsertReviewSchedule) (*store.ReviewSchedule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	row := &store.ReviewSchedule{
		UserID:               upsert.UserID,
		TopicID:              upsert.TopicID,
		LastReviewedTs:       upsert.LastReviewedTs,
		NextReviewTs:         upsert.NextReviewTs,
		ReviewInterval:       upsert.ReviewInterval,
		RetentionStrength:    upsert.RetentionStrength,
		CompletedReviews:     upsert.CompletedReviews,
		ConsecutiveCorrect:   upsert.ConsecutiveCorrect,
		ConsecutiveIncorrect: upsert.ConsecutiveIncorrect,
		UpdatedTs:            upsert.UpdatedTs,
	}
	d.schedules[[2]string{upsert.UserID, upsert.TopicID}] = row
	return row, nil
}

func (d *Driver) GetReviewSchedule(ctx context.Context, find *store.FindReviewSchedule) (*store.ReviewSchedule, error) {
	rows, err := d.ListReviewSchedules(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (d *Driver) ListReviewSchedules(ctx context.Context, find *store.FindReviewSchedule) ([]*store.ReviewSchedule, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	var out []*store.ReviewSchedule
	for _, row := range d.schedules {
		if find.UserID != nil && row.UserID != *find.UserID {
			continue
		}
		if find.TopicID != nil && row.TopicID != *find.TopicID {
			continue
		}
		if find.DueBefore != nil && row.NextReviewTs > *find.DueBefore {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TopicID < out[j].TopicID })
	if find.Offset != nil && *find.Offset < len(out) {
		out = out[*find.Offset:]
	}
	if find.Limit != nil && len(out) > *find.Limit {
		out = out[:*find.Limit]
	}
	return out, nil
}

func (d *Driver) GetUserProfile(ctx context.Context, find *store.FindUserProfile) (*store.UserProfile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	if find.UserID != nil {
		return d.profiles[*find.UserID], nil
	}
	return nil, nil
}

func (d *Driver) ListActiveUserIDs(ctx context.Context, find *store.FindActiveUserIDs) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	var ids []string
	for id, p := range d.profiles {
		if p.IsActive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if find.Offset > 0 {
		if find.Offset >= len(ids) {
			return nil, nil
		}
		ids = ids[find.Offset:]
	}
	if find.Limit > 0 && len(ids) > find.Limit {
		ids = ids[:find.Limit]
	}
	return ids, nil
}

func (d *Driver) ListExamSettings(ctx context.Context, find *store.FindExamSetting) ([]*store.ExamSetting, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	var out []*store.ExamSetting
	for _, setting := range d.examSettings {
		if find != nil && find.ExamCode != nil && setting.ExamCode != *find.ExamCode {
			continue
		}
		out = append(out, setting)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExamCode < out[j].ExamCode })
	return out, nil
}

func (d *Driver) UpsertExamSetting(ctx context.Context, upsert *store.ExamSetting) (*store.ExamSetting, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Err != nil {
		return nil, d.Err
	}
	row := *upsert
	d.examSettings[upsert.ExamCode] = &row
	return &row, nil
}
