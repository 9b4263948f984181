package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/remindwise/store"
)

const offlineQueueFields = "id, uid, task_id, user_id, fire_ts, title, body, urgency_tier, origin, created_ts"

func (d *DB) CreateOfflineQueueEntry(ctx context.Context, create *store.OfflineQueueEntry) (*store.OfflineQueueEntry, error) {
	stmt := `
		INSERT INTO offline_queue (uid, task_id, user_id, fire_ts, title, body, urgency_tier, origin)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING ` + offlineQueueFields
	entry, err := scanOfflineQueueEntry(d.db.QueryRowContext(ctx, stmt,
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
		return nil, errors.Wrap(err, "failed to create offline queue entry")
	}
	return entry, nil
}

func (d *DB) ListOfflineQueueEntries(ctx context.Context, find *store.FindOfflineQueueEntry) ([]*store.OfflineQueueEntry, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.TaskID != nil {
		where, args = append(where, "task_id = ?"), append(args, *find.TaskID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = ?"), append(args, *find.UserID)
	}
	if find.FireTsBefore != nil {
		where, args = append(where, "fire_ts <= ?"), append(args, *find.FireTsBefore)
	}

	query := "SELECT " + offlineQueueFields + " FROM offline_queue WHERE " + strings.Join(where, " AND ") + " ORDER BY fire_ts ASC"
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list offline queue entries")
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

// DeleteOfflineQueueEntry removes a single entry by UID. Deleting an already
// removed entry is not an error, so the local fire-check and the replay loop
// can race over the same entry safely.
func (d *DB) DeleteOfflineQueueEntry(ctx context.Context, delete *store.DeleteOfflineQueueEntry) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM offline_queue WHERE uid = ?", delete.UID); err != nil {
		return errors.Wrapf(err, "failed to delete offline queue entry %s", delete.UID)
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
