package booking

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the requested appointment does not exist.
var ErrNotFound = errors.New("appointment not found")

// ErrDuplicateID is returned by Append when an appointment with the same ID
// already exists.
var ErrDuplicateID = errors.New("appointment with that ID already exists")

// Store persists confirmed appointments.
//
// The booking core only ever appends; status changes and deletions belong to
// the surrounding administration tooling and are out of scope here. List and
// Search return appointments in creation order (oldest first) so the desk
// view is stable across reads.
//
// All implementations must be safe for concurrent use.
type Store interface {
	// Append adds a confirmed appointment. The appointment's ID must be
	// non-empty and unique; [ErrDuplicateID] is returned otherwise.
	Append(ctx context.Context, appt Appointment) error

	// Get retrieves an appointment by ID.
	// Returns [ErrNotFound] when no appointment with that ID exists.
	Get(ctx context.Context, id string) (Appointment, error)

	// List returns all appointments in creation order.
	List(ctx context.Context) ([]Appointment, error)

	// Search returns appointments whose patient name, doctor, or purpose
	// contains term (case-insensitive), in creation order. An empty term is
	// equivalent to List.
	Search(ctx context.Context, term string) ([]Appointment, error)

	// Ping verifies the store is reachable. Used by readiness checks.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store. Safe to call multiple
	// times.
	Close() error
}
