package booking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ---------------------------------------------------------------------------
// Test helpers — mock DB types
// ---------------------------------------------------------------------------

// mockRow implements pgx.Row for testing.
type mockRow struct {
	scanFunc func(dest ...any) error
}

func (r *mockRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

// mockRows implements pgx.Rows for testing.
type mockRows struct {
	data   [][]any
	idx    int
	err    error
	closed bool
}

func (r *mockRows) Close()                                       { r.closed = true }
func (r *mockRows) Err() error                                   { return r.err }
func (r *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *mockRows) RawValues() [][]byte                          { return nil }
func (r *mockRows) Conn() *pgx.Conn                              { return nil }
func (r *mockRows) Values() ([]any, error)                       { return nil, nil }

func (r *mockRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *mockRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: expected %d columns, got %d destinations", len(row), len(dest))
	}
	for i, v := range row {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("scan: unsupported type at index %d: %T", i, dest[i])
		}
	}
	return nil
}

// mockDB implements the DB interface for testing.
type mockDB struct {
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
	queryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	execFunc     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if m.queryRowFunc != nil {
		return m.queryRowFunc(ctx, sql, args...)
	}
	return &mockRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
}

func (m *mockDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if m.queryFunc != nil {
		return m.queryFunc(ctx, sql, args...)
	}
	return &mockRows{}, nil
}

func (m *mockDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if m.execFunc != nil {
		return m.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

// ---------------------------------------------------------------------------
// PostgresStore tests
// ---------------------------------------------------------------------------

func TestPostgresStore_AppendDuplicateID(t *testing.T) {
	t.Parallel()

	db := &mockDB{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505"}
		},
	}
	store := NewPostgresStore(db)

	err := store.Append(context.Background(), testAppointment("a1", "John Smith"))
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("Append() error = %v, want ErrDuplicateID", err)
	}
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	t.Parallel()

	store := NewPostgresStore(&mockDB{})

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestPostgresStore_Get(t *testing.T) {
	t.Parallel()

	want := testAppointment("a1", "John Smith")
	db := &mockDB{
		queryRowFunc: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFunc: func(dest ...any) error {
				*dest[0].(*string) = want.ID
				*dest[1].(*string) = want.PatientName
				*dest[2].(*string) = want.Doctor
				*dest[3].(*string) = want.Date
				*dest[4].(*string) = want.Time
				*dest[5].(*string) = want.Purpose
				*dest[6].(*string) = string(want.Status)
				*dest[7].(*time.Time) = want.CreatedAt
				return nil
			}}
		},
	}
	store := NewPostgresStore(db)

	got, err := store.Get(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if got != want {
		t.Errorf("Get() = %+v, want %+v", got, want)
	}
}

func TestPostgresStore_List(t *testing.T) {
	t.Parallel()

	created := time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC)
	rows := &mockRows{data: [][]any{
		{"a1", "John Smith", "Johnson", "monday", "2 pm", "checkup", "scheduled", created},
		{"a2", "Mary Jones", "Patel", "tuesday", "10:30", "", "scheduled", created},
	}}
	db := &mockDB{
		queryFunc: func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
			return rows, nil
		},
	}
	store := NewPostgresStore(db)

	got, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() returned %d appointments, want 2", len(got))
	}
	if got[0].ID != "a1" || got[1].ID != "a2" {
		t.Errorf("List() order = [%s %s], want [a1 a2]", got[0].ID, got[1].ID)
	}
	if got[1].Doctor != "Patel" || got[1].Status != StatusScheduled {
		t.Errorf("List()[1] = %+v, want Patel/scheduled", got[1])
	}
	if !rows.closed {
		t.Error("List() did not close rows")
	}
}

func TestPostgresStore_Migrate(t *testing.T) {
	t.Parallel()

	var gotSQL string
	db := &mockDB{
		execFunc: func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
			gotSQL = sql
			return pgconn.CommandTag{}, nil
		},
	}
	store := NewPostgresStore(db)

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() = %v", err)
	}
	if gotSQL != Schema {
		t.Error("Migrate() did not execute the Schema DDL")
	}
}
