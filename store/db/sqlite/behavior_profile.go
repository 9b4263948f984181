package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/hrygo/remindwise/store"
)

const behaviorProfileFields = `user_id, preferred_start_hour, preferred_end_hour, avg_task_minutes,
	completion_rate, procrastination_score, stress_level, reminder_frequency,
	quiet_start_hour, quiet_end_hour, timezone, created_ts, updated_ts`

// GetBehaviorProfile returns nil when no profile is stored; the Store layer
// substitutes the default profile.
func (d *DB) GetBehaviorProfile(ctx context.Context, find *store.FindBehaviorProfile) (*store.BehaviorProfile, error) {
	if find.UserID == nil {
		return nil, errors.New("user id required")
	}

	query := "SELECT " + behaviorProfileFields + " FROM behavior_profile WHERE user_id = ?"
	bp, err := scanBehaviorProfile(d.db.QueryRowContext(ctx, query, *find.UserID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get behavior profile")
	}
	return bp, nil
}

func (d *DB) UpsertBehaviorProfile(ctx context.Context, upsert *store.UpsertBehaviorProfile) (*store.BehaviorProfile, error) {
	stmt := `
		INSERT INTO behavior_profile (
			user_id, preferred_start_hour, preferred_end_hour, avg_task_minutes,
			completion_rate, procrastination_score, stress_level, reminder_frequency,
			quiet_start_hour, quiet_end_hour, timezone
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			preferred_start_hour = excluded.preferred_start_hour,
			preferred_end_hour = excluded.preferred_end_hour,
			avg_task_minutes = excluded.avg_task_minutes,
			completion_rate = excluded.completion_rate,
			procrastination_score = excluded.procrastination_score,
			stress_level = excluded.stress_level,
			reminder_frequency = excluded.reminder_frequency,
			quiet_start_hour = excluded.quiet_start_hour,
			quiet_end_hour = excluded.quiet_end_hour,
			timezone = excluded.timezone,
			updated_ts = strftime('%s', 'now')
		RETURNING ` + behaviorProfileFields
	bp, err := scanBehaviorProfile(d.db.QueryRowContext(ctx, stmt,
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
		return nil, errors.Wrap(err, "failed to upsert behavior profile")
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
