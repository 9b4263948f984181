package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hrygo/remindwise/store"
)

const reminderAnalyticsFields = "id, task_id, user_id, fire_ts, sent_ts, urgency_tier, backend, response, response_seconds, effectiveness"

func (db *DB) CreateReminderAnalytics(ctx context.Context, create *store.CreateReminderAnalytics) (*store.ReminderAnalytics, error) {
	query := `
		INSERT INTO reminder_analytics (task_id, user_id, fire_ts, sent_ts, urgency_tier, backend)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + reminderAnalyticsFields
	record, err := scanReminderAnalytics(db.db.QueryRowContext(ctx, query,
		create.TaskID,
		create.UserID,
		create.FireTs,
		create.SentTs,
		create.UrgencyTier,
		create.Backend,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create reminder analytics: %w", err)
	}
	return record, nil
}

func (db *DB) UpdateReminderResponse(ctx context.Context, update *store.UpdateReminderResponse) error {
	query := `
		UPDATE reminder_analytics
		SET response = $1,
			response_seconds = $2 - sent_ts,
			effectiveness = GREATEST(0.0, 1.0 - ($2 - sent_ts)::DOUBLE PRECISION / 86400.0)
		WHERE task_id = $3 AND user_id = $4 AND response IS NULL`
	if _, err := db.db.ExecContext(ctx, query,
		update.Response,
		update.ResponseTs,
		update.TaskID,
		update.UserID,
	); err != nil {
		return fmt.Errorf("failed to update reminder response: %w", err)
	}
	return nil
}

func (db *DB) ListReminderAnalytics(ctx context.Context, find *store.FindReminderAnalytics) ([]*store.ReminderAnalytics, error) {
	query := "SELECT " + reminderAnalyticsFields + " FROM reminder_analytics WHERE 1=1"
	var args []interface{}
	argIndex := 1

	if find.TaskID != nil {
		query += fmt.Sprintf(" AND task_id = $%d", argIndex)
		args = append(args, *find.TaskID)
		argIndex++
	}
	if find.UserID != nil {
		query += fmt.Sprintf(" AND user_id = $%d", argIndex)
		args = append(args, *find.UserID)
		argIndex++
	}
	query += " ORDER BY sent_ts DESC"
	if find.Limit != nil {
		query += fmt.Sprintf(" LIMIT $%d", argIndex)
		args = append(args, *find.Limit)
	}

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminder analytics: %w", err)
	}
	defer rows.Close()

	var records []*store.ReminderAnalytics
	for rows.Next() {
		record, err := scanReminderAnalytics(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanReminderAnalytics(row rowScanner) (*store.ReminderAnalytics, error) {
	var record store.ReminderAnalytics
	var response sql.NullString
	var responseSeconds sql.NullInt64
	var effectiveness sql.NullFloat64
	if err := row.Scan(
		&record.ID,
		&record.TaskID,
		&record.UserID,
		&record.FireTs,
		&record.SentTs,
		&record.UrgencyTier,
		&record.Backend,
		&response,
		&responseSeconds,
		&effectiveness,
	); err != nil {
		return nil, err
	}
	if response.Valid {
		r := store.ReminderResponse(response.String)
		record.Response = &r
	}
	if responseSeconds.Valid {
		record.ResponseSeconds = &responseSeconds.Int64
	}
	if effectiveness.Valid {
		record.Effectiveness = &effectiveness.Float64
	}
	return &record, nil
}
