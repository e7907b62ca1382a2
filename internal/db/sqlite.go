package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// schema is applied on every open. All statements are IF NOT EXISTS so a
// restart never touches existing collections.
const schema = `
CREATE TABLE IF NOT EXISTS workers (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	phone      TEXT NOT NULL DEFAULT '',
	role       TEXT NOT NULL DEFAULT '',
	area       TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_workers_phone ON workers (phone);

CREATE TABLE IF NOT EXISTS patients (
	id              TEXT PRIMARY KEY,
	worker_id       TEXT NOT NULL,
	name            TEXT NOT NULL,
	age             INTEGER,
	gender          TEXT NOT NULL DEFAULT '',
	phone           TEXT NOT NULL DEFAULT '',
	village         TEXT NOT NULL DEFAULT '',
	address         TEXT NOT NULL DEFAULT '',
	blood_group     TEXT NOT NULL DEFAULT '',
	medical_history TEXT NOT NULL DEFAULT '',
	synced          INTEGER NOT NULL DEFAULT 0,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_patients_worker_id ON patients (worker_id);
CREATE INDEX IF NOT EXISTS idx_patients_name ON patients (name);
CREATE INDEX IF NOT EXISTS idx_patients_village ON patients (village);

CREATE TABLE IF NOT EXISTS visits (
	id             TEXT PRIMARY KEY,
	patient_id     TEXT NOT NULL,
	worker_id      TEXT NOT NULL,
	visit_date     TEXT NOT NULL,
	symptoms       TEXT NOT NULL DEFAULT '',
	blood_pressure TEXT NOT NULL DEFAULT '',
	temperature    TEXT NOT NULL DEFAULT '',
	pulse          TEXT NOT NULL DEFAULT '',
	weight         TEXT NOT NULL DEFAULT '',
	diagnosis      TEXT NOT NULL DEFAULT '',
	treatment      TEXT NOT NULL DEFAULT '',
	notes          TEXT NOT NULL DEFAULT '',
	follow_up_date TEXT,
	synced         INTEGER NOT NULL DEFAULT 0,
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_visits_patient_id ON visits (patient_id);
CREATE INDEX IF NOT EXISTS idx_visits_worker_id ON visits (worker_id);

CREATE TABLE IF NOT EXISTS reminders (
	id            TEXT PRIMARY KEY,
	patient_id    TEXT NOT NULL,
	worker_id     TEXT NOT NULL,
	reminder_type TEXT NOT NULL DEFAULT '',
	reminder_date TEXT NOT NULL,
	message       TEXT NOT NULL DEFAULT '',
	is_completed  INTEGER NOT NULL DEFAULT 0,
	completed_at  TEXT,
	synced        INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reminders_patient_id ON reminders (patient_id);
CREATE INDEX IF NOT EXISTS idx_reminders_worker_id ON reminders (worker_id);
CREATE INDEX IF NOT EXISTS idx_reminders_reminder_date ON reminders (reminder_date);
CREATE INDEX IF NOT EXISTS idx_reminders_is_completed ON reminders (is_completed);

CREATE TABLE IF NOT EXISTS session (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// OpenSQLite opens (or creates) the local database file and applies the
// schema. Safe to call on every startup.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "?") {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(0)"
	}

	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	// The store is a single logical writer; one connection keeps every
	// operation serialized the way the UI issues them.
	sqldb.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := sqldb.PingContext(pingCtx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := sqldb.ExecContext(ctx, schema); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return sqldb, nil
}
