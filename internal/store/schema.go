package store

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// tables lists the portal schema in dependency order. {{ID}}, {{TS}} and
// {{MONEY}} are replaced per dialect.
var tables = []string{
	`CREATE TABLE IF NOT EXISTS courses (
		id           {{ID}},
		course_name  TEXT NOT NULL,
		course_code  TEXT NOT NULL DEFAULT '',
		created_at   {{TS}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS sections (
		id               {{ID}},
		section_name     TEXT NOT NULL,
		course_id        INTEGER NOT NULL REFERENCES courses(id),
		capacity         INTEGER,
		instructor_name  TEXT,
		semester         TEXT,
		is_active        BOOLEAN NOT NULL DEFAULT TRUE,
		created_at       {{TS}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       {{TS}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS students (
		id              {{ID}},
		student_number  TEXT NOT NULL UNIQUE,
		first_name      TEXT NOT NULL,
		last_name       TEXT NOT NULL,
		year_level      INTEGER,
		course_id       INTEGER REFERENCES courses(id),
		section_id      INTEGER REFERENCES sections(id),
		face_encoding   TEXT,
		photo           TEXT,
		is_active       BOOLEAN NOT NULL DEFAULT TRUE,
		created_at      {{TS}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id                 {{ID}},
		event_name         TEXT NOT NULL,
		event_date         DATE NOT NULL,
		start_time         TEXT NOT NULL,
		end_time           TEXT NOT NULL,
		fine_amount        {{MONEY}} NOT NULL DEFAULT 0,
		course_id          INTEGER REFERENCES courses(id),
		am_in_start_time   TEXT,
		am_in_end_time     TEXT,
		am_out_start_time  TEXT,
		am_out_end_time    TEXT,
		pm_in_start_time   TEXT,
		pm_in_end_time     TEXT,
		pm_out_start_time  TEXT,
		pm_out_end_time    TEXT,
		created_at         {{TS}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id             {{ID}},
		student_id     INTEGER NOT NULL REFERENCES students(id),
		event_id       INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		session        TEXT NOT NULL DEFAULT 'AM',
		type           TEXT NOT NULL DEFAULT 'IN',
		time_recorded  {{TS}} NOT NULL,
		recorded_at    {{TS}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (student_id, event_id, session, type)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_event ON attendance(event_id)`,
	`CREATE TABLE IF NOT EXISTS fines (
		id          {{ID}},
		student_id  INTEGER NOT NULL REFERENCES students(id),
		amount      {{MONEY}} NOT NULL,
		reason      TEXT NOT NULL,
		date        DATE NOT NULL,
		status      TEXT NOT NULL DEFAULT 'unpaid',
		paid_date   DATE,
		created_at  {{TS}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS fine_receipts (
		id              {{ID}},
		fine_id         INTEGER NOT NULL REFERENCES fines(id) ON DELETE CASCADE,
		receipt_number  TEXT NOT NULL UNIQUE,
		payment_date    DATE NOT NULL,
		amount_paid     {{MONEY}} NOT NULL,
		payment_method  TEXT NOT NULL DEFAULT 'cash',
		created_at      {{TS}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS admins (
		id             {{ID}},
		username       TEXT NOT NULL UNIQUE,
		email          TEXT NOT NULL UNIQUE,
		full_name      TEXT NOT NULL,
		password_hash  TEXT NOT NULL,
		role           TEXT NOT NULL,
		is_active      BOOLEAN NOT NULL DEFAULT TRUE,
		created_at     {{TS}} NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS login_logs (
		id             {{ID}},
		admin_id       INTEGER NOT NULL REFERENCES admins(id),
		activity_type  TEXT NOT NULL DEFAULT 'login',
		created_at     {{TS}} NOT NULL
	)`,
}

// Migrate creates every table that does not exist yet.
func (d *DB) Migrate(ctx context.Context) error {
	r := strings.NewReplacer(
		"{{ID}}", d.idColumn(),
		"{{TS}}", d.timestampColumn(),
		"{{MONEY}}", d.moneyColumn(),
	)
	for _, stmt := range tables {
		if _, err := d.Client.ExecContext(ctx, r.Replace(stmt)); err != nil {
			return errors.Wrapf(err, "migrate: %s", firstLine(stmt))
		}
	}
	return nil
}

func (d *DB) idColumn() string {
	if d.Dialect == SQLite {
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return "BIGSERIAL PRIMARY KEY"
}

func (d *DB) timestampColumn() string {
	if d.Dialect == SQLite {
		return "DATETIME"
	}
	return "TIMESTAMPTZ"
}

func (d *DB) moneyColumn() string {
	if d.Dialect == SQLite {
		return "REAL"
	}
	return "DOUBLE PRECISION"
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '('); i > 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
