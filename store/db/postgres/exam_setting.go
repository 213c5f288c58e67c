package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/rankmarg/mastery/store"
)

func (d *DB) ListExamSettings(ctx context.Context, find *store.FindExamSetting) ([]*store.ExamSetting, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ExamCode; v != nil {
		where, args = append(where, "exam_setting.exam_code = "+placeholder(len(args)+1)), append(args, *v)
	}

	query := `
		SELECT exam_code, ideal_time_sec, threshold_adjustment, difficulty_multiplier, updated_ts
		FROM exam_setting
		WHERE ` + strings.Join(where, " AND ") + ` ORDER BY exam_setting.exam_code ASC`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exam settings: %w", err)
	}
	defer rows.Close()

	list := make([]*store.ExamSetting, 0)
	for rows.Next() {
		var setting store.ExamSetting
		if err := rows.Scan(
			&setting.ExamCode,
			&setting.IdealTimeSec,
			&setting.ThresholdAdjustment,
			&setting.DifficultyMultiplier,
			&setting.UpdatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan exam setting: %w", err)
		}
		list = append(list, &setting)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate exam settings: %w", err)
	}

	return list, nil
}

func (d *DB) UpsertExamSetting(ctx context.Context, upsert *store.ExamSetting) (*store.ExamSetting, error) {
	stmt := `
		INSERT INTO exam_setting (exam_code, ideal_time_sec, threshold_adjustment, difficulty_multiplier, updated_ts)
		VALUES (` + placeholders(5) + `)
		ON CONFLICT (exam_code) DO UPDATE SET
			ideal_time_sec = EXCLUDED.ideal_time_sec,
			threshold_adjustment = EXCLUDED.threshold_adjustment,
			difficulty_multiplier = EXCLUDED.difficulty_multiplier,
			updated_ts = EXCLUDED.updated_ts`

	if _, err := d.db.ExecContext(ctx, stmt,
		upsert.ExamCode, upsert.IdealTimeSec, upsert.ThresholdAdjustment, upsert.DifficultyMultiplier, upsert.UpdatedTs,
	); err != nil {
		return nil, fmt.Errorf("failed to upsert exam setting: %w", err)
	}

	return upsert, nil
}
