package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rankmarg/mastery/store"
)

func (d *DB) CreateAttempt(ctx context.Context, create *store.Attempt) (*store.Attempt, error) {
	fields := []string{
		"user_id", "question_id", "subtopic_id", "topic_id", "subject_id",
		"difficulty", "is_correct", "timing_sec", "mistake", "solved_ts",
	}
	var mistake *string
	if create.Mistake != nil {
		s := string(*create.Mistake)
		mistake = &s
	}
	placeholderValues := []any{
		create.UserID, create.QuestionID, create.SubtopicID, create.TopicID, create.SubjectID,
		create.Difficulty, create.IsCorrect, create.TimingSec, mistake, create.SolvedTs,
	}

	stmt := `INSERT INTO attempt (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id`

	if err := d.db.QueryRowContext(ctx, stmt, placeholderValues...).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	return create, nil
}

func (d *DB) ListAttempts(ctx context.Context, find *store.FindAttempt) ([]*store.Attempt, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UserID; v != nil {
		where, args = append(where, "attempt.user_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.TopicID; v != nil {
		where, args = append(where, "attempt.topic_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.SubtopicID; v != nil {
		where, args = append(where, "attempt.subtopic_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.SolvedAfter; v != nil {
		where, args = append(where, "attempt.solved_ts >= "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT
			id, user_id, question_id, subtopic_id, topic_id, subject_id,
			difficulty, is_correct, timing_sec, mistake, solved_ts
		FROM attempt
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY attempt.solved_ts DESC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	list := make([]*store.Attempt, 0)
	for rows.Next() {
		var attempt store.Attempt
		var timingSec sql.NullFloat64
		var mistake sql.NullString

		if err := rows.Scan(
			&attempt.ID,
			&attempt.UserID,
			&attempt.QuestionID,
			&attempt.SubtopicID,
			&attempt.TopicID,
			&attempt.SubjectID,
			&attempt.Difficulty,
			&attempt.IsCorrect,
			&timingSec,
			&mistake,
			&attempt.SolvedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}

		if timingSec.Valid {
			attempt.TimingSec = &timingSec.Float64
		}
		if mistake.Valid && mistake.String != "" {
			kind := store.MistakeKind(mistake.String)
			attempt.Mistake = &kind
		}

		list = append(list, &attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attempts: %w", err)
	}

	return list, nil
}
