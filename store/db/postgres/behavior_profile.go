package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hrygo/remindwise/store"
)

const behaviorProfileFields = `user_id, preferred_start_hour, preferred_end_hour, avg_task_minutes,
	completion_rate, procrastination_score, stress_level, reminder_frequency,
	quiet_start_hour, quiet_end_hour, timezone, created_ts, updated_ts`

func (db *DB) GetBehaviorProfile(ctx context.Context, find *store.FindBehaviorProfile) (*store.BehaviorProfile, error) {
	if find.UserID == nil {
		return nil, fmt.Errorf("user id required")
	}

	query := "SELECT " + behaviorProfileFields + " FROM behavior_profile WHERE user_id = $1"
	bp, err := scanBehaviorProfile(db.db.QueryRowContext(ctx, query, *find.UserID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get behavior profile: %w", err)
	}
	return bp, nil
}

func (db *DB) UpsertBehaviorProfile(ctx context.Context, upsert *store.UpsertBehaviorProfile) (*store.BehaviorProfile, error) {
	query := `
		INSERT INTO behavior_profile (
			user_id, preferred_start_hour, preferred_end_hour, avg_task_minutes,
			completion_rate, procrastination_score, stress_level, reminder_frequency,
			quiet_start_hour, quiet_end_hour, timezone
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			preferred_start_hour = EXCLUDED.preferred_start_hour,
			preferred_end_hour = EXCLUDED.preferred_end_hour,
			avg_task_minutes = EXCLUDED.avg_task_minutes,
			completion_rate = EXCLUDED.completion_rate,
			procrastination_score = EXCLUDED.procrastination_score,
			stress_level = EXCLUDED.stress_level,
			reminder_frequency = EXCLUDED.reminder_frequency,
			quiet_start_hour = EXCLUDED.quiet_start_hour,
			quiet_end_hour = EXCLUDED.quiet_end_hour,
			timezone = EXCLUDED.timezone,
			updated_ts = EXTRACT(EPOCH FROM NOW())::BIGINT
		RETURNING ` + behaviorProfileFields
	bp, err := scanBehaviorProfile(db.db.QueryRowContext(ctx, query,
		upsert.UserID,
		upsert.PreferredStartHour,
		upsert.PreferredEndHour,
		upsert.AvgTaskMinutes,
		upsert.CompletionRate,
		upsert.ProcrastinationScore,
		upsert.StressLevel,
		upsert.ReminderFrequency,
		upsert.QuietStartHour,
		upsert.QuietEndHour,
		upsert.Timezone,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert behavior profile: %w", err)
	}
	return bp, nil
}

func scanBehaviorProfile(row rowScanner) (*store.BehaviorProfile, error) {
	var bp store.BehaviorProfile
	if err := row.Scan(
		&bp.UserID,
		&bp.PreferredStartHour,
		&bp.PreferredEndHour,
		&bp.AvgTaskMinutes,
		&bp.CompletionRate,
		&bp.ProcrastinationScore,
		&bp.StressLevel,
		&bp.ReminderFrequency,
		&bp.QuietStartHour,
		&bp.QuietEndHour,
		&bp.Timezone,
		&bp.CreatedTs,
		&bp.UpdatedTs,
	); err != nil {
		return nil, err
	}
	return &bp, nil
}
