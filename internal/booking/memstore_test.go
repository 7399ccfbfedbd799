package booking

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Record validation tests
// ---------------------------------------------------------------------------

func TestRecord_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rec     Record
		wantErr []string // substrings that must appear in the error
	}{
		{
			name: "valid full record",
			rec: Record{
				PatientName: "John Smith",
				Doctor:      "Johnson",
				Date:        "monday",
				Time:        "2 pm",
				Purpose:     "checkup",
			},
		},
		{
			name: "valid without purpose",
			rec: Record{
				PatientName: "Mary Jones",
				Doctor:      "Patel",
				Date:        "tomorrow",
				Time:        "10:30",
			},
		},
		{
			name:    "all required fields missing",
			rec:     Record{Purpose: "checkup"},
			wantErr: []string{"patientName", "doctor", "date", "time"},
		},
		{
			name: "whitespace-only fields rejected",
			rec: Record{
				PatientName: "   ",
				Doctor:      "Johnson",
				Date:        "monday",
				Time:        "2 pm",
			},
			wantErr: []string{"patientName"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.rec.Validate()
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("Validate() error %q missing substring %q", err, want)
				}
			}
		})
	}
}

func TestStatus_IsValid(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusScheduled, StatusCompleted, StatusCancelled} {
		if !s.IsValid() {
			t.Errorf("Status(%q).IsValid() = false, want true", s)
		}
	}
	if Status("pending").IsValid() {
		t.Error(`Status("pending").IsValid() = true, want false`)
	}
}

// ---------------------------------------------------------------------------
// MemStore tests
// ---------------------------------------------------------------------------

func testAppointment(id, patient string) Appointment {
	return Appointment{
		ID: id,
		Record: Record{
			PatientName: patient,
			Doctor:      "Johnson",
			Date:        "monday",
			Time:        "2 pm",
			Purpose:     "checkup",
		},
		Status:    StatusScheduled,
		CreatedAt: time.Date(2026, 2, 3, 9, 0, 0, 0, time.UTC),
	}
}

func TestMemStore_AppendAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemStore()

	appt := testAppointment("a1", "John Smith")
	if err := store.Append(ctx, appt); err != nil {
		t.Fatalf("Append() = %v", err)
	}

	got, err := store.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if got != appt {
		t.Errorf("Get() = %+v, want %+v", got, appt)
	}
}

func TestMemStore_GetNotFound(t *testing.T) {
	t.Parallel()
	store := NewMemStore()

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestMemStore_AppendDuplicateID(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemStore()

	if err := store.Append(ctx, testAppointment("a1", "John Smith")); err != nil {
		t.Fatalf("Append() = %v", err)
	}
	err := store.Append(ctx, testAppointment("a1", "Mary Jones"))
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("Append() error = %v, want ErrDuplicateID", err)
	}
}

func TestMemStore_ListPreservesInsertionOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemStore()

	for _, id := range []string{"c", "a", "b"} {
		if err := store.Append(ctx, testAppointment(id, "Patient "+id)); err != nil {
			t.Fatalf("Append(%q) = %v", id, err)
		}
	}

	appts, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() = %v", err)
	}
	if len(appts) != 3 {
		t.Fatalf("List() returned %d appointments, want 3", len(appts))
	}
	for i, want := range []string{"c", "a", "b"} {
		if appts[i].ID != want {
			t.Errorf("List()[%d].ID = %q, want %q", i, appts[i].ID, want)
		}
	}
}

func TestMemStore_Search(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemStore()

	a := testAppointment("a1", "John Smith")
	b := testAppointment("a2", "Mary Jones")
	b.Doctor = "Patel"
	b.Purpose = "dental cleaning"
	for _, appt := range []Appointment{a, b} {
		if err := store.Append(ctx, appt); err != nil {
			t.Fatalf("Append() = %v", err)
		}
	}

	tests := []struct {
		name    string
		term    string
		wantIDs []string
	}{
		{name: "empty term returns all", term: "", wantIDs: []string{"a1", "a2"}},
		{name: "patient name case-insensitive", term: "JOHN", wantIDs: []string{"a1"}},
		{name: "doctor match", term: "patel", wantIDs: []string{"a2"}},
		{name: "purpose match", term: "cleaning", wantIDs: []string{"a2"}},
		{name: "no match", term: "xylophone", wantIDs: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := store.Search(ctx, tt.term)
			if err != nil {
				t.Fatalf("Search(%q) = %v", tt.term, err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Search(%q) returned %d results, want %d", tt.term, len(got), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if got[i].ID != want {
					t.Errorf("Search(%q)[%d].ID = %q, want %q", tt.term, i, got[i].ID, want)
				}
			}
		})
	}
}

func TestMemStore_ListReturnsCopy(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := NewMemStore()

	if err := store.Append(ctx, testAppointment("a1", "John Smith")); err != nil {
		t.Fatalf("Append() = %v", err)
	}
	first, _ := store.List(ctx)
	first[0].PatientName = "mutated"

	second, _ := store.List(ctx)
	if second[0].PatientName != "John Smith" {
		t.Error("mutating List() result leaked into the store")
	}
}
