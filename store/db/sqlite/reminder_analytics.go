package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/remindwise/store"
)

const reminderAnalyticsFields = "id, task_id, user_id, fire_ts, sent_ts, urgency_tier, backend, response, response_seconds, effectiveness"

func (d *DB) CreateReminderAnalytics(ctx context.Context, create *store.CreateReminderAnalytics) (*store.ReminderAnalytics, error) {
	stmt := `
		INSERT INTO reminder_analytics (task_id, user_id, fire_ts, sent_ts, urgency_tier, backend)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING ` + reminderAnalyticsFields
	record, err := scanReminderAnalytics(d.db.QueryRowContext(ctx, stmt,
		create.TaskID,
		create.UserID,
		create.FireTs,
		create.SentTs,
		create.UrgencyTier,
		create.Backend,
	))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create reminder analytics")
	}
	return record, nil
}

// UpdateReminderResponse stamps the response on all unanswered rows for the
// task. Effectiveness is the inverse of how long the user took to react,
// normalized to a day.
func (d *DB) UpdateReminderResponse(ctx context.Context, update *store.UpdateReminderResponse) error {
	stmt := `
		UPDATE reminder_analytics
		SET response = ?,
			response_seconds = ? - sent_ts,
			effectiveness = MAX(0.0, 1.0 - CAST(? - sent_ts AS REAL) / 86400.0)
		WHERE task_id = ? AND user_id = ? AND response IS NULL`
	if _, err := d.db.ExecContext(ctx, stmt,
		update.Response,
		update.ResponseTs,
		update.ResponseTs,
		update.TaskID,
		update.UserID,
	); err != nil {
		return errors.Wrap(err, "failed to update reminder response")
	}
	return nil
}

func (d *DB) ListReminderAnalytics(ctx context.Context, find *store.FindReminderAnalytics) ([]*store.ReminderAnalytics, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.TaskID != nil {
		where, args = append(where, "task_id = ?"), append(args, *find.TaskID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}

	query := "SELECT " + reminderAnalyticsFields + " FROM reminder_analytics WHERE " + strings.Join(where, " AND ") + " ORDER BY sent_ts DESC"
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list reminder analytics")
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
