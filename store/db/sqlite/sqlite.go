package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	// Import the SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/hrygo/remindwise/internal/profile"
	"github.com/hrygo/remindwise/store"
)

// DB is the SQLite implementation of store.Driver. SQLite is the default
// driver; the offline queue relies on per-row inserts and deletes, which WAL
// mode handles fine for a single-host deployment.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a database specified by its database driver name and a
// driver-specific data source name.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// Connect to the database with some sane settings:
	// - No shared-cache: it's obsolete; WAL journal mode is a better solution.
	// - Busy timeout so concurrent queue writers wait instead of failing.
	//
	// Note: with the `modernc.org/sqlite` driver, each pragma must be prefixed
	// with `_pragma=`.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=foreign_keys(0)&_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	// SQLite: a single connection is optimal with WAL.
	sqliteDB.SetMaxOpenConns(1)
	sqliteDB.SetMaxIdleConns(1)
	sqliteDB.SetConnMaxLifetime(0)
	sqliteDB.SetConnMaxIdleTime(0)

	driver := DB{db: sqliteDB, profile: profile}

	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the schema. All statements are idempotent.
func (d *DB) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply sqlite schema")
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS task (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	creator_id INTEGER NOT NULL,
	title TEXT NOT NULL,
	due_ts BIGINT NOT NULL,
	priority TEXT NOT NULL DEFAULT 'medium',
	difficulty INTEGER,
	reminder_lead_minutes INTEGER,
	completed INTEGER NOT NULL DEFAULT 0,
	created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
	updated_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
);

CREATE TABLE IF NOT EXISTS behavior_profile (
	user_id INTEGER PRIMARY KEY,
	preferred_start_hour INTEGER NOT NULL DEFAULT 9,
	preferred_end_hour INTEGER NOT NULL DEFAULT 21,
	avg_task_minutes INTEGER NOT NULL DEFAULT 45,
	completion_rate REAL NOT NULL DEFAULT 0.7,
	procrastination_score REAL NOT NULL DEFAULT 0.5,
	stress_level INTEGER NOT NULL DEFAULT 5,
	reminder_frequency TEXT NOT NULL DEFAULT 'normal',
	quiet_start_hour INTEGER NOT NULL DEFAULT 22,
	quiet_end_hour INTEGER NOT NULL DEFAULT 7,
	timezone TEXT NOT NULL DEFAULT 'UTC',
	created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
	updated_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
);

CREATE TABLE IF NOT EXISTS offline_queue (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	uid TEXT NOT NULL UNIQUE,
	task_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	fire_ts BIGINT NOT NULL,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	urgency_tier TEXT NOT NULL,
	origin TEXT NOT NULL,
	created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_offline_queue_fire_ts ON offline_queue (fire_ts);
CREATE INDEX IF NOT EXISTS idx_offline_queue_task_id ON offline_queue (task_id);

CREATE TABLE IF NOT EXISTS reminder_analytics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	task_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	fire_ts BIGINT NOT NULL,
	sent_ts BIGINT NOT NULL,
	urgency_tier TEXT NOT NULL,
	backend TEXT NOT NULL,
	response TEXT,
	response_seconds BIGINT,
	effectiveness REAL
);
CREATE INDEX IF NOT EXISTS idx_reminder_analytics_task_id ON reminder_analytics (task_id);
`
