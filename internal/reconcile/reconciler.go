// Package reconcile owns the in-flight candidate record between extraction
// and persistence. A candidate may be edited any number of times without
// validation; only Confirm gates on the required fields, and only Confirm
// writes to the store. There is no partial-success path: a rejected confirm
// leaves both the candidate and the store untouched.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medvox/frontdesk/internal/booking"
)

// ErrNoCandidate is returned by Confirm when no candidate record is in
// flight.
var ErrNoCandidate = errors.New("reconcile: no candidate record")

// Option is a functional option for configuring a [Reconciler].
type Option func(*Reconciler)

// WithClock sets the timestamp source used for CreatedAt. Default: time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// WithIDFunc sets the appointment ID generator. Default: uuid.NewString.
func WithIDFunc(newID func() string) Option {
	return func(r *Reconciler) {
		r.newID = newID
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// Reconciler mediates between a candidate [booking.Record] and the
// appointment store. All methods are safe for concurrent use, though the
// front desk serialises user actions so at most one confirm is in flight.
type Reconciler struct {
	store  booking.Store
	now    func() time.Time
	newID  func() string
	logger *slog.Logger

	mu        sync.Mutex
	candidate *booking.Record
}

// New returns a [Reconciler] persisting confirmed appointments to store.
func New(store booking.Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:  store,
		now:    time.Now,
		newID:  uuid.NewString,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Begin seeds a new candidate record, replacing any previous one.
func (r *Reconciler) Begin(rec booking.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidate = &rec
}

// Edit replaces the candidate with rec. Edit never validates; a half-filled
// record is legitimate while the user is still correcting fields. Editing
// with no candidate in flight starts one.
func (r *Reconciler) Edit(rec booking.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidate = &rec
}

// Candidate returns the in-flight record, if any.
func (r *Reconciler) Candidate() (booking.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.candidate == nil {
		return booking.Record{}, false
	}
	return *r.candidate, true
}

// Cancel discards the in-flight candidate unconditionally. Nothing is
// persisted.
func (r *Reconciler) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidate = nil
}

// Confirm validates the candidate, stamps it with a fresh ID, creation time
// and scheduled status, and appends it to the store. On validation failure
// the candidate is kept so the user can correct it; on success it is cleared.
func (r *Reconciler) Confirm(ctx context.Context) (booking.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.candidate == nil {
		return booking.Appointment{}, ErrNoCandidate
	}
	if err := r.candidate.Validate(); err != nil {
		return booking.Appointment{}, err
	}

	appt := booking.Appointment{
		ID:        r.newID(),
		Record:    *r.candidate,
		Status:    booking.StatusScheduled,
		CreatedAt: r.now().UTC(),
	}
	if err := r.store.Append(ctx, appt); err != nil {
		return booking.Appointment{}, fmt.Errorf("reconcile: persist appointment: %w", err)
	}

	r.candidate = nil
	r.logger.Info("appointment confirmed",
		"id", appt.ID,
		"patient", appt.PatientName,
		"doctor", appt.Doctor,
		"date", appt.Date,
		"time", appt.Time)
	return appt, nil
}
