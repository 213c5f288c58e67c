package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/rankmarg/mastery/internal/profile"
	"github.com/rankmarg/mastery/store/cache"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver

	// Caches. All three are pure latency optimizations over reference
	// data; every miss falls through to the driver, and the Redis L2
	// tier lights up only when the profile carries a Redis address.
	examSettingCache *cache.TieredCache // cache for exam settings (30m)
	userProfileCache *cache.TieredCache // cache for user profiles (10m)
	catalogCache     *cache.TieredCache // cache for the syllabus catalog (30m)
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:           driver,
		profile:          profile,
		examSettingCache: newTieredCache(profile, 30*time.Minute, 100),
		userProfileCache: newTieredCache(profile, 10*time.Minute, 5000),
		catalogCache:     newTieredCache(profile, 30*time.Minute, 2000),
	}
}

func newTieredCache(p *profile.Profile, ttl time.Duration, maxItems int) *cache.TieredCache {
	config := &cache.TieredCacheConfig{
		L1MaxItems: maxItems,
		L1TTL:      ttl,
		L2TTL:      ttl,
		EnableL1:   true,
		EnableL2:   p.RedisAddr != "",
	}
	if p.RedisAddr != "" {
		redisConfig := cache.DefaultRedisConfig()
		redisConfig.Addr = p.RedisAddr
		redisConfig.Password = p.RedisPassword
		redisConfig.DefaultTTL = ttl
		config.Redis = redisConfig
	}

	tieredCache, err := cache.NewTieredCache(config)
	if err != nil {
		slog.Warn("falling back to memory-only cache", "error", err)
		config.EnableL2 = false
		tieredCache, _ = cache.NewTieredCache(config)
	}
	return tieredCache
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	_ = s.examSettingCache.Close()
	_ = s.userProfileCache.Close()
	_ = s.catalogCache.Close()

	return s.driver.Close()
}

func (s *Store) CreateAttempt(ctx context.Context, create *Attempt) (*Attempt, error) {
	return s.driver.CreateAttempt(ctx, create)
}

func (s *Store) ListAttempts(ctx context.Context, find *FindAttempt) ([]*Attempt, error) {
	return s.driver.ListAttempts(ctx, find)
}

func (s *Store) ListSubjects(ctx context.Context, find *FindSubject) ([]*Subject, error) {
	return s.driver.ListSubjects(ctx, find)
}

// ListTopics lists topics, serving repeat whole-subject reads from the
// catalog cache.
func (s *Store) ListTopics(ctx context.Context, find *FindTopic) ([]*Topic, error) {
	if find.SubjectID != nil && find.ID == nil {
		key := "topics:" + *find.SubjectID
		value, ok := s.catalogCache.Get(ctx, key, func(ctx context.Context, _ string) (any, error) {
			return s.driver.ListTopics(ctx, find)
		})
		if ok {
			if topics, ok := value.([]*Topic); ok {
				return topics, nil
			}
		}
		// An L2 round-trip loses the concrete type; read through.
		return s.driver.ListTopics(ctx, find)
	}
	return s.driver.ListTopics(ctx, find)
}

// ListSubtopics lists subtopics, serving repeat whole-topic reads from
// the catalog cache.
func (s *Store) ListSubtopics(ctx context.Context, find *FindSubtopic) ([]*Subtopic, error) {
	if find.TopicID != nil && find.ID == nil {
		key := "subtopics:" + *find.TopicID
		value, ok := s.catalogCache.Get(ctx, key, func(ctx context.Context, _ string) (any, error) {
			return s.driver.ListSubtopics(ctx, find)
		})
		if ok {
			if subtopics, ok := value.([]*Subtopic); ok {
				return subtopics, nil
			}
		}
		return s.driver.ListSubtopics(ctx, find)
	}
	return s.driver.ListSubtopics(ctx, find)
}

func (s *Store) UpsertSubtopicMastery(ctx context.Context, upsert *UpsertSubtopicMastery) (*SubtopicMastery, error) {
	return s.driver.UpsertSubtopicMastery(ctx, upsert)
}

func (s *Store) ListSubtopicMasteries(ctx context.Context, find *FindSubtopicMastery) ([]*SubtopicMastery, error) {
	return s.driver.ListSubtopicMasteries(ctx, find)
}

func (s *Store) UpsertTopicMastery(ctx context.Context, upsert *UpsertTopicMastery) (*TopicMastery, error) {
	return s.driver.UpsertTopicMastery(ctx, upsert)
}

func (s *Store) GetTopicMastery(ctx context.Context, find *FindTopicMastery) (*TopicMastery, error) {
	return s.driver.GetTopicMastery(ctx, find)
}

func (s *Store) ListTopicMasteries(ctx context.Context, find *FindTopicMastery) ([]*TopicMastery, error) {
	return s.driver.ListTopicMasteries(ctx, find)
}

func (s *Store) UpsertSubjectMastery(ctx context.Context, upsert *UpsertSubjectMastery) (*SubjectMastery, error) {
	return s.driver.UpsertSubjectMastery(ctx, upsert)
}

func (s *Store) ListSubjectMasteries(ctx context.Context, find *FindSubjectMastery) ([]*SubjectMastery, error) {
	return s.driver.ListSubjectMasteries(ctx, find)
}

func (s *Store) UpsertReviewSchedule(ctx context.Context, upsert *UpsertReviewSchedule) (*ReviewSchedule, error) {
	return s.driver.UpsertReviewSchedule(ctx, upsert)
}

func (s *Store) GetReviewSchedule(ctx context.Context, find *FindReviewSchedule) (*ReviewSchedule, error) {
	return s.driver.GetReviewSchedule(ctx, find)
}

func (s *Store) ListReviewSchedules(ctx context.Context, find *FindReviewSchedule) ([]*ReviewSchedule, error) {
	return s.driver.ListReviewSchedules(ctx, find)
}

// ListDueReviewSchedules returns the user's topics due for review at
// `now`, including topics that have mastery data but no schedule row
// yet. Such topics are "never reviewed, review immediately": they come
// back as zero-value schedules with NextReviewTs set to now.
func (s *Store) ListDueReviewSchedules(ctx context.Context, userID string, now time.Time) ([]*ReviewSchedule, error) {
	nowTs := now.Unix()
	due, err := s.driver.ListReviewSchedules(ctx, &FindReviewSchedule{
		UserID:    &userID,
		DueBefore: &nowTs,
	})
	if err != nil {
		return nil, err
	}

	scheduled := make(map[string]bool, len(due))
	all, err := s.driver.ListReviewSchedules(ctx, &FindReviewSchedule{UserID: &userID})
	if err != nil {
		return nil, err
	}
	for _, schedule := range all {
		scheduled[schedule.TopicID] = true
	}

	masteries, err := s.driver.ListTopicMasteries(ctx, &FindTopicMastery{UserID: &userID})
	if err != nil {
		return nil, err
	}
	for _, m := range masteries {
		if scheduled[m.TopicID] {
			continue
		}
		due = append(due, &ReviewSchedule{
			UserID:            m.UserID,
			TopicID:           m.TopicID,
			NextReviewTs:      nowTs,
			ReviewInterval:    1,
			RetentionStrength: 0.5,
		})
	}

	return due, nil
}

// GetUserProfile returns the user profile, cached for 10 minutes.
func (s *Store) GetUserProfile(ctx context.Context, find *FindUserProfile) (*UserProfile, error) {
	if find.UserID != nil {
		key := "profile:" + *find.UserID
		value, ok := s.userProfileCache.Get(ctx, key, func(ctx context.Context, _ string) (any, error) {
			return s.driver.GetUserProfile(ctx, find)
		})
		if ok {
			if userProfile, ok := value.(*UserProfile); ok {
				return userProfile, nil
			}
		}
		return s.driver.GetUserProfile(ctx, find)
	}
	return s.driver.GetUserProfile(ctx, find)
}

func (s *Store) ListActiveUserIDs(ctx context.Context, find *FindActiveUserIDs) ([]string, error) {
	return s.driver.ListActiveUserIDs(ctx, find)
}

// ListExamSettings returns all exam setting rows, cached for 30 minutes.
func (s *Store) ListExamSettings(ctx context.Context, find *FindExamSetting) ([]*ExamSetting, error) {
	if find == nil || find.ExamCode == nil {
		value, ok := s.examSettingCache.Get(ctx, "all", func(ctx context.Context, _ string) (any, error) {
			return s.driver.ListExamSettings(ctx, &FindExamSetting{})
		})
		if ok {
			if settings, ok := value.([]*ExamSetting); ok {
				return settings, nil
			}
		}
		return s.driver.ListExamSettings(ctx, &FindExamSetting{})
	}
	return s.driver.ListExamSettings(ctx, find)
}

func (s *Store) UpsertExamSetting(ctx context.Context, upsert *ExamSetting) (*ExamSetting, error) {
	s.examSettingCache.Delete(ctx, "all")
	return s.driver.UpsertExamSetting(ctx, upsert)
}
