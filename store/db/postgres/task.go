package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hrygo/remindwise/store"
)

const taskFields = "id, uid, creator_id, title, due_ts, priority, difficulty, reminder_lead_minutes, completed, created_ts, updated_ts"

func (db *DB) GetTask(ctx context.Context, find *store.FindTask) (*store.Task, error) {
	tasks, err := db.ListTasks(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	return tasks[0], nil
}

func (db *DB) ListTasks(ctx context.Context, find *store.FindTask) ([]*store.Task, error) {
	query := "SELECT " + taskFields + " FROM task WHERE 1=1"
	var args []interface{}
	argIndex := 1

	if find.ID != nil {
		query += fmt.Sprintf(" AND id = $%d", argIndex)
		args = append(args, *find.ID)
		argIndex++
	}
	if find.UID != nil {
		query += fmt.Sprintf(" AND uid = $%d", argIndex)
		args = append(args, *find.UID)
		argIndex++
	}
	if find.CreatorID != nil {
		query += fmt.Sprintf(" AND creator_id = $%d", argIndex)
		args = append(args, *find.CreatorID)
		argIndex++
	}
	if find.Completed != nil {
		query += fmt.Sprintf(" AND completed = $%d", argIndex)
		args = append(args, *find.Completed)
		argIndex++
	}
	query += " ORDER BY due_ts ASC"

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
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

func (db *DB) UpdateTask(ctx context.Context, update *store.UpdateTask) (*store.Task, error) {
	if update.Completed == nil {
		return db.GetTask(ctx, &store.FindTask{ID: &update.ID})
	}

	query := `
		UPDATE task
		SET completed = $1, updated_ts = EXTRACT(EPOCH FROM NOW())::BIGINT
		WHERE id = $2
		RETURNING ` + taskFields
	task, err := scanTask(db.db.QueryRowContext(ctx, query, *update.Completed, update.ID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return task, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*store.Task, error) {
	var task store.Task
	var difficulty, leadMinutes sql.NullInt32
	if err := row.Scan(
		&task.ID,
		&task.UID,
		&task.CreatorID,
		&task.Title,
		&task.DueTs,
		&task.Priority,
		&difficulty,
		&leadMinutes,
		&task.Completed,
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
	return &task, nil
}
