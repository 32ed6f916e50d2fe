package database

import (
	"database/sql"
	"strconv"
	"strings"
)

type dialect struct {
	driver    string
	forUpdate string
	txOptions *sql.TxOptions
	schema    []string
}

var sqliteDialect = dialect{
	driver: DriverSQLite,
	// sqlite has no row locks; the immediate transaction already holds the database write lock.
	forUpdate: "",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS interviewers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			slot_duration_minutes INTEGER NOT NULL DEFAULT 60,
			max_interviews_per_week INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS weekly_availabilities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			interviewer_id INTEGER NOT NULL REFERENCES interviewers(id) ON DELETE CASCADE,
			day_of_week INTEGER NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS candidates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS interview_slots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			interviewer_id INTEGER NOT NULL REFERENCES interviewers(id) ON DELETE CASCADE,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'AVAILABLE',
			week_number INTEGER NOT NULL,
			year INTEGER NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (interviewer_id, start_time)
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			candidate_id INTEGER NOT NULL REFERENCES candidates(id),
			slot_id INTEGER NOT NULL REFERENCES interview_slots(id),
			status TEXT NOT NULL DEFAULT 'PENDING',
			week_number INTEGER NOT NULL,
			year INTEGER NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			confirmed_at DATETIME,
			cancelled_at DATETIME,
			version INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS booking_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			booking_id INTEGER NOT NULL,
			event_type TEXT NOT NULL,
			slot_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_bookings_active_slot ON bookings(slot_id) WHERE status <> 'CANCELLED'`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_candidate ON bookings(candidate_id)`,
		`CREATE INDEX IF NOT EXISTS idx_slots_week ON interview_slots(interviewer_id, year, week_number, status)`,
		`CREATE INDEX IF NOT EXISTS idx_slots_status_start ON interview_slots(status, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_availabilities_interviewer ON weekly_availabilities(interviewer_id, is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_booking_events_booking ON booking_events(booking_id)`,
	},
}

var postgresDialect = dialect{
	driver:    DriverPostgres,
	forUpdate: " FOR UPDATE",
	txOptions: &sql.TxOptions{Isolation: sql.LevelSerializable},
	schema: []string{
		`CREATE TABLE IF NOT EXISTS interviewers (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			slot_duration_minutes INTEGER NOT NULL DEFAULT 60,
			max_interviews_per_week INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS weekly_availabilities (
			id BIGSERIAL PRIMARY KEY,
			interviewer_id BIGINT NOT NULL REFERENCES interviewers(id) ON DELETE CASCADE,
			day_of_week SMALLINT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS candidates (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS interview_slots (
			id BIGSERIAL PRIMARY KEY,
			interviewer_id BIGINT NOT NULL REFERENCES interviewers(id) ON DELETE CASCADE,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL DEFAULT 'AVAILABLE',
			week_number INTEGER NOT NULL,
			year INTEGER NOT NULL,
			version BIGINT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (interviewer_id, start_time)
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id BIGSERIAL PRIMARY KEY,
			candidate_id BIGINT NOT NULL REFERENCES candidates(id),
			slot_id BIGINT NOT NULL REFERENCES interview_slots(id),
			status TEXT NOT NULL DEFAULT 'PENDING',
			week_number INTEGER NOT NULL,
			year INTEGER NOT NULL,
			note TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			confirmed_at TIMESTAMPTZ,
			cancelled_at TIMESTAMPTZ,
			version BIGINT NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS booking_events (
			id BIGSERIAL PRIMARY KEY,
			booking_id BIGINT NOT NULL,
			event_type TEXT NOT NULL,
			slot_id BIGINT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_bookings_active_slot ON bookings(slot_id) WHERE status <> 'CANCELLED'`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_candidate ON bookings(candidate_id)`,
		`CREATE INDEX IF NOT EXISTS idx_slots_week ON interview_slots(interviewer_id, year, week_number, status)`,
		`CREATE INDEX IF NOT EXISTS idx_slots_status_start ON interview_slots(status, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_availabilities_interviewer ON weekly_availabilities(interviewer_id, is_active)`,
		`CREATE INDEX IF NOT EXISTS idx_booking_events_booking ON booking_events(booking_id)`,
	},
}

// rebind rewrites '?' placeholders into the dialect's positional form.
func (d dialect) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
