package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/rankmarg/mastery/store"
)

func (d *DB) UpsertReviewSchedule(ctx context.Context, upsert *store.UpsertReviewSchedule) (*store.ReviewSchedule, error) {
	stmt := `
		INSERT INTO review_schedule (
			user_id, topic_id,
			last_reviewed_ts, next_review_ts, review_interval, retention_strength,
			completed_reviews, consecutive_correct, consecutive_incorrect, updated_ts
		)
		VALUES (` + placeholders(10) + `)
		ON CONFLICT (user_id, topic_id) DO UPDATE SET
			last_reviewed_ts = EXCLUDED.last_reviewed_ts,
			next_review_ts = EXCLUDED.next_review_ts,
			review_interval = EXCLUDED.review_interval,
			retention_strength = EXCLUDED.retention_strength,
			completed_reviews = EXCLUDED.completed_reviews,
			consecutive_correct = EXCLUDED.consecutive_correct,
			consecutive_incorrect = EXCLUDED.consecutive_incorrect,
			updated_ts = EXCLUDED.updated_ts`

	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.UserID, upsert.TopicID,
		upsert.LastReviewedTs, upsert.NextReviewTs, upsert.ReviewInterval, upsert.RetentionStrength,
		upsert.CompletedReviews, upsert.ConsecutiveCorrect, upsert.ConsecutiveIncorrect, upsert.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert review schedule: %w", err)
	}

	return &store.ReviewSchedule{
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
	}, nil
}

func (d *DB) GetReviewSchedule(ctx context.Context, find *store.FindReviewSchedule) (*store.ReviewSchedule, error) {
	list, err := d.ListReviewSchedules(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (d *DB) ListReviewSchedules(ctx context.Context, find *store.FindReviewSchedule) ([]*store.ReviewSchedule, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UserID; v != nil {
		where, args = append(where, "review_schedule.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.TopicID; v != nil {
		where, args = append(where, "review_schedule.topic_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.DueBefore; v != nil {
		where, args = append(where, "review_schedule.next_review_ts <= "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			user_id, topic_id,
			last_reviewed_ts, next_review_ts, review_interval, retention_strength,
			completed_reviews, consecutive_correct, consecutive_incorrect, updated_ts
		FROM review_schedule
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY review_schedule.next_review_ts ASC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query review schedules: %w", err)
	}
	defer rows.Close()

	list := make([]*store.ReviewSchedule, 0)
	for rows.Next() {
		var schedule store.ReviewSchedule
		if err := rows.Scan(
			&schedule.UserID,
			&schedule.TopicID,
			&schedule.LastReviewedTs,
			&schedule.NextReviewTs,
			&schedule.ReviewInterval,
			&schedule.RetentionStrength,
			&schedule.CompletedReviews,
			&schedule.ConsecutiveCorrect,
			&schedule.ConsecutiveIncorrect,
			&schedule.UpdatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan review schedule: %w", err)
		}
		list = append(list, &schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate review schedules: %w", err)
	}

	return list, nil
}
