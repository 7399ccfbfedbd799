package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the appointments table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS appointments (
    id           TEXT PRIMARY KEY,
    patient_name TEXT NOT NULL,
    doctor       TEXT NOT NULL,
    date         TEXT NOT NULL,
    time         TEXT NOT NULL,
    purpose      TEXT NOT NULL DEFAULT '',
    status       TEXT NOT NULL DEFAULT 'scheduled',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    seq          BIGSERIAL
);
CREATE INDEX IF NOT EXISTS idx_appointments_patient ON appointments(patient_name);
CREATE INDEX IF NOT EXISTS idx_appointments_doctor ON appointments(doctor);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database, for deployments
// where several desks share one appointment book.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// appointments table and indexes if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.Exec(ctx, Schema)
	if err != nil {
		return fmt.Errorf("booking: migrate: %w", err)
	}
	return nil
}

// Append implements [Store.Append].
func (s *PostgresStore) Append(ctx context.Context, appt Appointment) error {
	const query = `
		INSERT INTO appointments (id, patient_name, doctor, date, time, purpose, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err := s.db.Exec(ctx, query,
		appt.ID, appt.PatientName, appt.Doctor, appt.Date, appt.Time,
		appt.Purpose, string(appt.Status), appt.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateID
		}
		return fmt.Errorf("booking: append: %w", err)
	}
	return nil
}

// Get implements [Store.Get].
func (s *PostgresStore) Get(ctx context.Context, id string) (Appointment, error) {
	const query = `
		SELECT id, patient_name, doctor, date, time, purpose, status, created_at
		FROM appointments WHERE id = $1`

	var (
		appt   Appointment
		status string
	)
	err := s.db.QueryRow(ctx, query, id).Scan(
		&appt.ID, &appt.PatientName, &appt.Doctor, &appt.Date,
		&appt.Time, &appt.Purpose, &status, &appt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Appointment{}, ErrNotFound
		}
		return Appointment{}, fmt.Errorf("booking: get %q: %w", id, err)
	}
	appt.Status = Status(status)
	return appt, nil
}

// List implements [Store.List]. The seq column preserves insertion order even
// when clock granularity makes created_at tie.
func (s *PostgresStore) List(ctx context.Context) ([]Appointment, error) {
	const query = `
		SELECT id, patient_name, doctor, date, time, purpose, status, created_at
		FROM appointments ORDER BY seq`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("booking: list: %w", err)
	}
	return scanPostgresRows(rows)
}

// Search implements [Store.Search].
func (s *PostgresStore) Search(ctx context.Context, term string) ([]Appointment, error) {
	if strings.TrimSpace(term) == "" {
		return s.List(ctx)
	}

	const query = `
		SELECT id, patient_name, doctor, date, time, purpose, status, created_at
		FROM appointments
		WHERE patient_name ILIKE $1 OR doctor ILIKE $1 OR purpose ILIKE $1
		ORDER BY seq`

	rows, err := s.db.Query(ctx, query, "%"+likeEscape(term)+"%")
	if err != nil {
		return nil, fmt.Errorf("booking: search: %w", err)
	}
	return scanPostgresRows(rows)
}

// Ping implements [Store.Ping].
func (s *PostgresStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("booking: ping: %w", err)
	}
	return nil
}

// Close implements [Store.Close]. The connection or pool is owned by the
// caller, so Close is a no-op here.
func (s *PostgresStore) Close() error {
	return nil
}

func scanPostgresRows(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var (
			appt   Appointment
			status string
		)
		if err := rows.Scan(
			&appt.ID, &appt.PatientName, &appt.Doctor, &appt.Date,
			&appt.Time, &appt.Purpose, &status, &appt.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("booking: scan: %w", err)
		}
		appt.Status = Status(status)
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("booking: iterate rows: %w", err)
	}
	return out, nil
}

// isDuplicateKeyError checks whether a PostgreSQL error is a unique-violation
// (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
