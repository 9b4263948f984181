package postgres

import (
	"context"
	"fmt"

	"github.com/hrygo/remindwise/store"
)

const offlineQueueFields = "id, uid, task_id, user_id, fire_ts, title, body, urgency_tier, origin, created_ts"

func (db *DB) CreateOfflineQueueEntry(ctx context.Context, create *store.OfflineQueueEntry) (*store.OfflineQueueEntry, error) {
	query := `
		INSERT INTO offline_queue (uid, task_id, user_id, fire_ts, title, body, urgency_tier, origin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + offlineQueueFields
	entry, err := scanOfflineQueueEntry(db.db.QueryRowContext(ctx, query,
		create.UID,
		create.TaskID,
		create.UserID,
		create.FireTs,
		create.Title,
		create.Body,
		create.UrgencyTier,
		create.Origin,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create offline queue entry: %w", err)
	}
	return entry, nil
}

func (db *DB) ListOfflineQueueEntries(ctx context.Context, find *store.FindOfflineQueueEntry) ([]*store.OfflineQueueEntry, error) {
	query := "SELECT " + offlineQueueFields + " FROM offline_queue WHERE 1=1"
	var args []interface{}
	argIndex := 1

	if find.UID != nil {
		query += fmt.Sprintf(" AND uid = $%d", argIndex)
		args = append(args, *find.UID)
		argIndex++
	}
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
	if find.FireTsBefore != nil {
		query += fmt.Sprintf(" AND fire_ts <= $%d", argIndex)
		args = append(args, *find.FireTsBefore)
		argIndex++
	}
	query += " ORDER BY fire_ts ASC"

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list offline queue entries: %w", err)
	}
	defer rows.Close()

	var entries []*store.OfflineQueueEntry
	for rows.Next() {
		entry, err := scanOfflineQueueEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (db *DB) DeleteOfflineQueueEntry(ctx context.Context, delete *store.DeleteOfflineQueueEntry) error {
	if _, err := db.db.ExecContext(ctx, "DELETE FROM offline_queue WHERE uid = $1", delete.UID); err != nil {
		return fmt.Errorf("failed to delete offline queue entry %s: %w", delete.UID, err)
	}
	return nil
}

func scanOfflineQueueEntry(row rowScanner) (*store.OfflineQueueEntry, error) {
	var entry store.OfflineQueueEntry
	if err := row.Scan(
		&entry.ID,
		&entry.UID,
		&entry.TaskID,
		&entry.UserID,
		&entry.FireTs,
		&entry.Title,
		&entry.Body,
		&entry.UrgencyTier,
		&entry.Origin,
		&entry.CreatedTs,
	); err != nil {
		return nil, err
	}
	return &entry, nil
}
