package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rankmarg/mastery/store"
)

func (d *DB) GetUserProfile(ctx context.Context, find *store.FindUserProfile) (*store.UserProfile, error) {
	if find.UserID == nil {
		return nil, fmt.Errorf("user id is required")
	}

	query := `
		SELECT user_id, study_hours_per_day, target_year, exam_code, exam_ts, is_active
		FROM user_profile
		WHERE user_id = ` + placeholder(1)

	var userProfile store.UserProfile
	if err := d.db.QueryRowContext(ctx, query, *find.UserID).Scan(
		&userProfile.UserID,
		&userProfile.StudyHoursPerDay,
		&userProfile.TargetYear,
		&userProfile.ExamCode,
		&userProfile.ExamTs,
		&userProfile.IsActive,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	return &userProfile, nil
}

func (d *DB) ListActiveUserIDs(ctx context.Context, find *store.FindActiveUserIDs) ([]string, error) {
	query := `
		SELECT user_id FROM user_profile
		WHERE is_active = 1
		ORDER BY user_id ASC`
	query = fmt.Sprintf("%s LIMIT %d OFFSET %d", query, find.Limit, find.Offset)

	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active users: %w", err)
	}
	defer rows.Close()

	list := make([]string, 0)
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		list = append(list, userID)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user ids: %w", err)
	}

	return list, nil
}
