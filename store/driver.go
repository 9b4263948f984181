package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for database access.
type Driver interface {
	GetDB() *sql.DB
	Close() error
	Migrate(ctx context.Context) error

	// Task
	GetTask(ctx context.Context, find *FindTask) (*Task, error)
	ListTasks(ctx context.Context, find *FindTask) ([]*Task, error)
	UpdateTask(ctx context.Context, update *UpdateTask) (*Task, error)

	// BehaviorProfile
	GetBehaviorProfile(ctx context.Context, find *FindBehaviorProfile) (*BehaviorProfile, error)
	UpsertBehaviorProfile(ctx context.Context, upsert *UpsertBehaviorProfile) (*BehaviorProfile, error)

	// OfflineQueue
	CreateOfflineQueueEntry(ctx context.Context, create *OfflineQueueEntry) (*OfflineQueueEntry, error)
	ListOfflineQueueEntries(ctx context.Context, find *FindOfflineQueueEntry) ([]*OfflineQueueEntry, error)
	DeleteOfflineQueueEntry(ctx context.Context, delete *DeleteOfflineQueueEntry) error

	// ReminderAnalytics
	CreateReminderAnalytics(ctx context.Context, create *CreateReminderAnalytics) (*ReminderAnalytics, error)
	UpdateReminderResponse(ctx context.Context, update *UpdateReminderResponse) error
	ListReminderAnalytics(ctx context.Context, find *FindReminderAnalytics) ([]*ReminderAnalytics, error)
}
