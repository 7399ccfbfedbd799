package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteSchema is the DDL for the appointments table. Applied on Open.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS appointments (
    id           TEXT PRIMARY KEY,
    patient_name TEXT NOT NULL,
    doctor       TEXT NOT NULL,
    date         TEXT NOT NULL,
    time         TEXT NOT NULL,
    purpose      TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL DEFAULT 'scheduled',
    created_at   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_appointments_patient ON appointments(patient_name);
`

// Compile-time assertion that SQLiteStore satisfies the Store interface.
var _ Store = (*SQLiteStore)(nil)

// SQLiteStore is a [Store] backed by an embedded SQLite database. It is the
// default persistence for a single-desk deployment: no server to run, one
// file on disk.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the appointment database in dataDir and
// applies the schema. Pass ":memory:" as dataDir for an in-memory database
// (used by tests).
func OpenSQLite(dataDir string) (*SQLiteStore, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("booking: create data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "frontdesk.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("booking: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("booking: ping database: %w", err)
	}

	// Limit to a single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Wait briefly on concurrent access instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("booking: set busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("booking: set journal mode: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("booking: apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Append implements [Store.Append].
func (s *SQLiteStore) Append(ctx context.Context, appt Appointment) error {
	const query = `
		INSERT INTO appointments (id, patient_name, doctor, date, time, purpose, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		appt.ID, appt.PatientName, appt.Doctor, appt.Date, appt.Time,
		appt.Purpose, string(appt.Status), appt.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateID
		}
		return fmt.Errorf("booking: append: %w", err)
	}
	return nil
}

// Get implements [Store.Get].
func (s *SQLiteStore) Get(ctx context.Context, id string) (Appointment, error) {
	const query = `
		SELECT id, patient_name, doctor, date, time, purpose, status, created_at
		FROM appointments WHERE id = ?`

	appt, err := scanSQLiteRow(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Appointment{}, ErrNotFound
		}
		return Appointment{}, fmt.Errorf("booking: get: %w", err)
	}
	return appt, nil
}

// List implements [Store.List]. rowid is the insertion-order tiebreaker for
// appointments created within the same timestamp granularity.
func (s *SQLiteStore) List(ctx context.Context) ([]Appointment, error) {
	const query = `
		SELECT id, patient_name, doctor, date, time, purpose, status, created_at
		FROM appointments ORDER BY created_at, rowid`

	return s.queryAppointments(ctx, query)
}

// Search implements [Store.Search].
func (s *SQLiteStore) Search(ctx context.Context, term string) ([]Appointment, error) {
	if strings.TrimSpace(term) == "" {
		return s.List(ctx)
	}

	const query = `
		SELECT id, patient_name, doctor, date, time, purpose, status, created_at
		FROM appointments
		WHERE lower(patient_name) LIKE ?1 ESCAPE '\'
		   OR lower(doctor) LIKE ?1 ESCAPE '\'
		   OR lower(purpose) LIKE ?1 ESCAPE '\'
		ORDER BY created_at, rowid`

	pattern := "%" + strings.ToLower(likeEscape(term)) + "%"
	return s.queryAppointments(ctx, query, pattern)
}

// Ping implements [Store.Ping].
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("booking: ping: %w", err)
	}
	return nil
}

// Close implements [Store.Close].
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// queryAppointments runs a SELECT returning full appointment rows and scans
// them into a slice.
func (s *SQLiteStore) queryAppointments(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("booking: query: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		appt, err := scanSQLiteRow(rows)
		if err != nil {
			return nil, fmt.Errorf("booking: scan: %w", err)
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: iterate rows: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanSQLiteRow scans one appointments row, parsing the RFC 3339 created_at
// column back into a time.Time.
func scanSQLiteRow(row rowScanner) (Appointment, error) {
	var (
		appt      Appointment
		status    string
		createdAt string
	)
	err := row.Scan(&appt.ID, &appt.PatientName, &appt.Doctor, &appt.Date,
		&appt.Time, &appt.Purpose, &status, &createdAt)
	if err != nil {
		return Appointment{}, err
	}
	appt.Status = Status(status)
	appt.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Appointment{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	return appt, nil
}

// likeEscape escapes LIKE metacharacters so user search terms match literally.
func likeEscape(term string) string {
	term = strings.ReplaceAll(term, `%`, `\%`)
	return strings.ReplaceAll(term, `_`, `\_`)
}
