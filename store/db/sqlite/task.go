package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/remindwise/store"
)

const taskFields = "id, uid, creator_id, title, due_ts, priority, difficulty, reminder_lead_minutes, completed, created_ts, updated_ts"

func (d *DB) GetTask(ctx context.Context, find *store.FindTask) (*store.Task, error) {
	tasks, err := d.ListTasks(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return tasks[0], nil
}

func (d *DB) ListTasks(ctx context.Context, find *store.FindTask) ([]*store.Task, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.UID != nil {
		where, args = append(where, "uid = ?"), append(args, *find.UID)
	}
	if find.CreatorID != nil {
		where, args = append(where, "creator_id = ?"), append(args, *find.CreatorID)
	}
	if find.Completed != nil {
		where, args = append(where, "completed = ?"), append(args, boolToInt(*find.Completed))
	}

	query := "SELECT " + taskFields + " FROM task WHERE " + strings.Join(where, " AND ") + " ORDER BY due_ts ASC"
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tasks")
	}
	defer rows.Close()

	var tasks []*store.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (d *DB) UpdateTask(ctx context.Context, update *store.UpdateTask) (*store.Task, error) {
	if update.Completed == nil {
		return d.GetTask(ctx, &store.FindTask{ID: &update.ID})
	}

	stmt := `
		UPDATE task
		SET completed = ?, updated_ts = strftime('%s', 'now')
		WHERE id = ?
		RETURNING ` + taskFields
	row := d.db.QueryRowContext(ctx, stmt, boolToInt(*update.Completed), update.ID)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to update task")
	}
	return task, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*store.Task, error) {
	var task store.Task
	var difficulty, leadMinutes sql.NullInt32
	var completed int
	if err := row.Scan(
		&task.ID,
		&task.UID,
		&task.CreatorID,
		&task.Title,
		&task.DueTs,
		&task.Priority,
		&difficulty,
		&leadMinutes,
		&completed,
		&task.CreatedTs,
		&task.UpdatedTs,
	); err != nil {
		return nil, err
	}
	if difficulty.Valid {
		task.Difficulty = &difficulty.Int32
	}
	if leadMinutes.Valid {
		task.ReminderLeadMinutes = &leadMinutes.Int32
	}
	task.Completed = completed != 0
	return &task, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
