package postgres

import (
	"context"
	"database/sql"
	"fmt"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"

	"github.com/hrygo/remindwise/internal/profile"
	"github.com/hrygo/remindwise/store"
)

// DB is the PostgreSQL implementation of store.Driver, intended for
// multi-instance deployments where the offline queue must be shared.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL database using the DSN from the profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, fmt.Errorf("dsn required")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open db with dsn %s: %w", profile.DSN, err)
	}

	pgDB.SetMaxOpenConns(10)
	pgDB.SetMaxIdleConns(5)

	return &DB{db: pgDB, profile: profile}, nil
}

func (db *DB) GetDB() *sql.DB {
	return db.db
}

func (db *DB) Close() error {
	return db.db.Close()
}

// Migrate creates the schema. All statements are idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply postgres schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS task (
	id SERIAL PRIMARY KEY,
	uid TEXT NOT NULL UNIQUE,
	creator_id INTEGER NOT NULL,
	title TEXT NOT NULL,
	due_ts BIGINT NOT NULL,
	priority TEXT NOT NULL DEFAULT 'medium',
	difficulty INTEGER,
	reminder_lead_minutes INTEGER,
	completed BOOLEAN NOT NULL DEFAULT FALSE,
	created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
	updated_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
);

CREATE TABLE IF NOT EXISTS behavior_profile (
	user_id INTEGER PRIMARY KEY,
	preferred_start_hour INTEGER NOT NULL DEFAULT 9,
	preferred_end_hour INTEGER NOT NULL DEFAULT 21,
	avg_task_minutes INTEGER NOT NULL DEFAULT 45,
	completion_rate DOUBLE PRECISION NOT NULL DEFAULT 0.7,
	procrastination_score DOUBLE PRECISION NOT NULL DEFAULT 0.5,
	stress_level INTEGER NOT NULL DEFAULT 5,
	reminder_frequency TEXT NOT NULL DEFAULT 'normal',
	quiet_start_hour INTEGER NOT NULL DEFAULT 22,
	quiet_end_hour INTEGER NOT NULL DEFAULT 7,
	timezone TEXT NOT NULL DEFAULT 'UTC',
	created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT,
	updated_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
);

CREATE TABLE IF NOT EXISTS offline_queue (
	id SERIAL PRIMARY KEY,
	uid TEXT NOT NULL UNIQUE,
	task_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	fire_ts BIGINT NOT NULL,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	urgency_tier TEXT NOT NULL,
	origin TEXT NOT NULL,
	created_ts BIGINT NOT NULL DEFAULT EXTRACT(EPOCH FROM NOW())::BIGINT
);
CREATE INDEX IF NOT EXISTS idx_offline_queue_fire_ts ON offline_queue (fire_ts);
CREATE INDEX IF NOT EXISTS idx_offline_queue_task_id ON offline_queue (task_id);

CREATE TABLE IF NOT EXISTS reminder_analytics (
	id SERIAL PRIMARY KEY,
	task_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	fire_ts BIGINT NOT NULL,
	sent_ts BIGINT NOT NULL,
	urgency_tier TEXT NOT NULL,
	backend TEXT NOT NULL,
	response TEXT,
	response_seconds BIGINT,
	effectiveness DOUBLE PRECISION
);
CREATE INDEX IF NOT EXISTS idx_reminder_analytics_task_id ON reminder_analytics (task_id);
`
