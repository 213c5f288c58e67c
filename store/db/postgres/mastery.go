package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/rankmarg/mastery/store"
)

func (d *DB) UpsertSubtopicMastery(ctx context.Context, upsert *store.UpsertSubtopicMastery) (*store.SubtopicMastery, error) {
	stmt := `
		INSERT INTO subtopic_mastery (
			user_id, subtopic_id, topic_id,
			mastery_level, strength_index, total_attempts, correct_attempts, updated_ts
		)
		VALUES (` + placeholders(8) + `)
		ON CONFLICT (user_id, subtopic_id) DO UPDATE SET
			topic_id = EXCLUDED.topic_id,
			mastery_level = EXCLUDED.mastery_level,
			strength_index = EXCLUDED.strength_index,
			total_attempts = EXCLUDED.total_attempts,
			correct_attempts = EXCLUDED.correct_attempts,
			updated_ts = EXCLUDED.updated_ts`

	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.UserID, upsert.SubtopicID, upsert.TopicID,
		upsert.MasteryLevel, upsert.StrengthIndex, upsert.TotalAttempts, upsert.CorrectAttempts, upsert.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert subtopic mastery: %w", err)
	}

	return &store.SubtopicMastery{
		UserID:          upsert.UserID,
		SubtopicID:      upsert.SubtopicID,
		TopicID:         upsert.TopicID,
		MasteryLevel:    upsert.MasteryLevel,
		StrengthIndex:   upsert.StrengthIndex,
		TotalAttempts:   upsert.TotalAttempts,
		CorrectAttempts: upsert.CorrectAttempts,
		UpdatedTs:       upsert.UpdatedTs,
	}, nil
}

func (d *DB) ListSubtopicMasteries(ctx context.Context, find *store.FindSubtopicMastery) ([]*store.SubtopicMastery, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UserID; v != nil {
		where, args = append(where, "subtopic_mastery.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.SubtopicID; v != nil {
		where, args = append(where, "subtopic_mastery.subtopic_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.TopicID; v != nil {
		where, args = append(where, "subtopic_mastery.topic_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			user_id, subtopic_id, topic_id,
			mastery_level, strength_index, total_attempts, correct_attempts, updated_ts
		FROM subtopic_mastery
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY subtopic_mastery.subtopic_id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subtopic masteries: %w", err)
	}
	defer rows.Close()

	list := make([]*store.SubtopicMastery, 0)
	for rows.Next() {
		var mastery store.SubtopicMastery
		if err := rows.Scan(
			&mastery.UserID,
			&mastery.SubtopicID,
			&mastery.TopicID,
			&mastery.MasteryLevel,
			&mastery.StrengthIndex,
			&mastery.TotalAttempts,
			&mastery.CorrectAttempts,
			&mastery.UpdatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan subtopic mastery: %w", err)
		}
		list = append(list, &mastery)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subtopic masteries: %w", err)
	}

	return list, nil
}

func (d *DB) UpsertTopicMastery(ctx context.Context, upsert *store.UpsertTopicMastery) (*store.TopicMastery, error) {
	stmt := `
		INSERT INTO topic_mastery (
			user_id, topic_id, subject_id,
			mastery_level, strength_index, total_attempts, correct_attempts,
			mastered_subtopic_count, updated_ts
		)
		VALUES (` + placeholders(9) + `)
		ON CONFLICT (user_id, topic_id) DO UPDATE SET
			subject_id = EXCLUDED.subject_id,
			mastery_level = EXCLUDED.mastery_level,
			strength_index = EXCLUDED.strength_index,
			total_attempts = EXCLUDED.total_attempts,
			correct_attempts = EXCLUDED.correct_attempts,
			mastered_subtopic_count = EXCLUDED.mastered_subtopic_count,
			updated_ts = EXCLUDED.updated_ts`

	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.UserID, upsert.TopicID, upsert.SubjectID,
		upsert.MasteryLevel, upsert.StrengthIndex, upsert.TotalAttempts, upsert.CorrectAttempts,
		upsert.MasteredSubtopicCount, upsert.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert topic mastery: %w", err)
	}

	return &store.TopicMastery{
		UserID:                upsert.UserID,
		TopicID:               upsert.TopicID,
		SubjectID:             upsert.SubjectID,
		MasteryLevel:          upsert.MasteryLevel,
		StrengthIndex:         upsert.StrengthIndex,
		TotalAttempts:         upsert.TotalAttempts,
		CorrectAttempts:       upsert.CorrectAttempts,
		MasteredSubtopicCount: upsert.MasteredSubtopicCount,
		UpdatedTs:             upsert.UpdatedTs,
	}, nil
}

func (d *DB) GetTopicMastery(ctx context.Context, find *store.FindTopicMastery) (*store.TopicMastery, error) {
	list, err := d.ListTopicMasteries(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (d *DB) ListTopicMasteries(ctx context.Context, find *store.FindTopicMastery) ([]*store.TopicMastery, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UserID; v != nil {
		where, args = append(where, "topic_mastery.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.TopicID; v != nil {
		where, args = append(where, "topic_mastery.topic_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.SubjectID; v != nil {
		where, args = append(where, "topic_mastery.subject_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			user_id, topic_id, subject_id,
			mastery_level, strength_index, total_attempts, correct_attempts,
			mastered_subtopic_count, updated_ts
		FROM topic_mastery
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY topic_mastery.topic_id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query topic masteries: %w", err)
	}
	defer rows.Close()

	list := make([]*store.TopicMastery, 0)
	for rows.Next() {
		var mastery store.TopicMastery
		if err := rows.Scan(
			&mastery.UserID,
			&mastery.TopicID,
			&mastery.SubjectID,
			&mastery.MasteryLevel,
			&mastery.StrengthIndex,
			&mastery.TotalAttempts,
			&mastery.CorrectAttempts,
			&mastery.MasteredSubtopicCount,
			&mastery.UpdatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan topic mastery: %w", err)
		}
		list = append(list, &mastery)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate topic masteries: %w", err)
	}

	return list, nil
}

func (d *DB) UpsertSubjectMastery(ctx context.Context, upsert *store.UpsertSubjectMastery) (*store.SubjectMastery, error) {
	stmt := `
		INSERT INTO subject_mastery (
			user_id, subject_id,
			mastery_level, strength_index, total_attempts, correct_attempts,
			mastered_topic_count, updated_ts
		)
		VALUES (` + placeholders(8) + `)
		ON CONFLICT (user_id, subject_id) DO UPDATE SET
			mastery_level = EXCLUDED.mastery_level,
			strength_index = EXCLUDED.strength_index,
			total_attempts = EXCLUDED.total_attempts,
			correct_attempts = EXCLUDED.correct_attempts,
			mastered_topic_count = EXCLUDED.mastered_topic_count,
			updated_ts = EXCLUDED.updated_ts`

	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.UserID, upsert.SubjectID,
		upsert.MasteryLevel, upsert.StrengthIndex, upsert.TotalAttempts, upsert.CorrectAttempts,
		upsert.MasteredTopicCount, upsert.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert subject mastery: %w", err)
	}

	return &store.SubjectMastery{
		UserID:             upsert.UserID,
		SubjectID:          upsert.SubjectID,
		MasteryLevel:       upsert.MasteryLevel,
		StrengthIndex:      upsert.StrengthIndex,
		TotalAttempts:      upsert.TotalAttempts,
		CorrectAttempts:    upsert.CorrectAttempts,
		MasteredTopicCount: upsert.MasteredTopicCount,
		UpdatedTs:          upsert.UpdatedTs,
	}, nil
}

func (d *DB) ListSubjectMasteries(ctx context.Context, find *store.FindSubjectMastery) ([]*store.SubjectMastery, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UserID; v != nil {
		where, args = append(where, "subject_mastery.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.SubjectID; v != nil {
		where, args = append(where, "subject_mastery.subject_id = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			user_id, subject_id,
			mastery_level, strength_index, total_attempts, correct_attempts,
			mastered_topic_count, updated_ts
		FROM subject_mastery
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY subject_mastery.subject_id ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query subject masteries: %w", err)
	}
	defer rows.Close()

	list := make([]*store.SubjectMastery, 0)
	for rows.Next() {
		var mastery store.SubjectMastery
		if err := rows.Scan(
			&mastery.UserID,
			&mastery.SubjectID,
			&mastery.MasteryLevel,
			&mastery.StrengthIndex,
			&mastery.TotalAttempts,
			&mastery.CorrectAttempts,
			&mastery.MasteredTopicCount,
			&mastery.UpdatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan subject mastery: %w", err)
		}
		list = append(list, &mastery)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate subject masteries: %w", err)
	}

	return list, nil
}
