// Package session drives one booking interaction as an explicit state
// machine: Idle, Listening, Reviewing, Editing. Events arrive one at a time
// (user actions are serialised by the front desk surface) and each either
// advances the state or is rejected as an invalid transition; there is no
// implicit state spread across booleans.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/medvox/frontdesk/internal/booking"
	"github.com/medvox/frontdesk/internal/capture"
	"github.com/medvox/frontdesk/internal/extract"
	"github.com/medvox/frontdesk/internal/reconcile"
)

// ErrInvalidTransition is returned when an event is not legal in the current
// state, e.g. confirming while still listening.
var ErrInvalidTransition = errors.New("session: invalid transition")

// State identifies where in the booking interaction the machine is.
type State string

const (
	// StateIdle has no active transcript capture and no candidate record.
	StateIdle State = "idle"
	// StateListening means speech capture is running.
	StateListening State = "listening"
	// StateReviewing holds a candidate record pending confirm, edit or
	// cancel.
	StateReviewing State = "reviewing"
	// StateEditing means the candidate is open for field-level correction.
	StateEditing State = "editing"
)

// IsValid reports whether s is a known state.
func (s State) IsValid() bool {
	switch s {
	case StateIdle, StateListening, StateReviewing, StateEditing:
		return true
	}
	return false
}

// NoticeKind classifies the user-facing notifications the machine emits.
type NoticeKind string

const (
	// NoticeExtractionSucceeded signals that a candidate record was built
	// from the transcript.
	NoticeExtractionSucceeded NoticeKind = "extraction_succeeded"
	// NoticeExtractionFailed signals that no field could be extracted; the
	// transcript is kept so the user can see what was heard.
	NoticeExtractionFailed NoticeKind = "extraction_failed"
	// NoticeConfirmed signals that an appointment was persisted.
	NoticeConfirmed NoticeKind = "appointment_confirmed"
)

// Notice is a transient user-facing notification.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}

// Snapshot is a read-only view of the machine for presentation layers.
type Snapshot struct {
	State      State           `json:"state"`
	Transcript string          `json:"transcript"`
	Candidate  *booking.Record `json:"candidate,omitempty"`
	Supported  bool            `json:"speechSupported"`
}

// Option is a functional option for configuring a [Machine].
type Option func(*Machine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithNoticeBuffer sets the capacity of the notice channel. Default: 16.
func WithNoticeBuffer(n int) Option {
	return func(m *Machine) {
		m.noticeBuf = n
	}
}

// Machine orchestrates the capture adapter, extractor and reconciler for one
// front desk. All methods are safe for concurrent use; events are applied
// atomically under one lock.
type Machine struct {
	capture    *capture.Adapter
	extractor  *extract.Extractor
	reconciler *reconcile.Reconciler
	logger     *slog.Logger
	noticeBuf  int
	notices    chan Notice

	mu    sync.Mutex
	state State
}

// New wires a [Machine] over its three collaborators.
func New(adapter *capture.Adapter, ex *extract.Extractor, rec *reconcile.Reconciler, opts ...Option) *Machine {
	m := &Machine{
		capture:    adapter,
		extractor:  ex,
		reconciler: rec,
		logger:     slog.Default(),
		noticeBuf:  16,
		state:      StateIdle,
	}
	for _, o := range opts {
		o(m)
	}
	m.notices = make(chan Notice, m.noticeBuf)
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Transcript returns the capture adapter's accumulated transcript. Valid in
// any state; while Listening it grows as segments arrive.
func (m *Machine) Transcript() string {
	return m.capture.Transcript()
}

// Candidate returns the in-flight record, present only in Reviewing and
// Editing.
func (m *Machine) Candidate() (booking.Record, bool) {
	return m.reconciler.Candidate()
}

// Notices returns the channel of user-facing notifications. Notices are
// dropped, not blocked on, when no consumer keeps up.
func (m *Machine) Notices() <-chan Notice {
	return m.notices
}

// Snapshot returns a consistent view of state, transcript and candidate.
func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		State:      m.state,
		Transcript: m.capture.Transcript(),
		Supported:  m.capture.Supported(),
	}
	if rec, ok := m.reconciler.Candidate(); ok {
		snap.Candidate = &rec
	}
	return snap
}

// StartRecording begins a fresh listening session from Idle. The previous
// transcript is cleared first. When speech capture is unsupported the call
// fails with [capture.ErrUnsupported] and the machine stays Idle, leaving
// manual entry as the only path to a record.
func (m *Machine) StartRecording(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		return fmt.Errorf("session: start recording from %s: %w", m.state, ErrInvalidTransition)
	}
	if !m.capture.Supported() {
		return capture.ErrUnsupported
	}

	m.capture.ResetTranscript()
	if err := m.capture.Start(ctx); err != nil {
		return err
	}
	m.state = StateListening
	m.logger.Debug("recording started")
	return nil
}

// StopRecording ends capture and runs extraction on the accumulated
// transcript.
//
// An empty transcript is not an error: nothing is extracted, no notice is
// emitted and the machine returns to Idle. When extraction finds at least
// one field the candidate seeds Reviewing; when it finds none the machine
// returns to Idle with a failure notice and the transcript intact for
// inspection.
func (m *Machine) StopRecording() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateListening {
		return fmt.Errorf("session: stop recording from %s: %w", m.state, ErrInvalidTransition)
	}
	if err := m.capture.Stop(); err != nil {
		m.state = StateIdle
		return err
	}

	transcript := m.capture.Transcript()
	if strings.TrimSpace(transcript) == "" {
		m.state = StateIdle
		m.logger.Debug("recording stopped with empty transcript")
		return nil
	}

	rec, ok := m.extractor.Extract(transcript)
	if !ok {
		m.state = StateIdle
		m.notify(Notice{
			Kind:    NoticeExtractionFailed,
			Message: "Could not extract appointment details. Please try again or use manual entry.",
		})
		m.logger.Info("extraction failed", "transcript_len", len(transcript))
		return nil
	}

	m.reconciler.Begin(rec)
	m.state = StateReviewing
	m.notify(Notice{
		Kind:    NoticeExtractionSucceeded,
		Message: "Appointment details extracted. Please review.",
	})
	m.logger.Info("extraction succeeded", "patient", rec.PatientName, "doctor", rec.Doctor)
	return nil
}

// ManualEntry seeds Reviewing with an all-empty record from Idle, bypassing
// capture and extraction. This is the only record-producing path when speech
// capture is unsupported.
func (m *Machine) ManualEntry() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		return fmt.Errorf("session: manual entry from %s: %w", m.state, ErrInvalidTransition)
	}
	m.reconciler.Begin(booking.Record{})
	m.state = StateReviewing
	m.logger.Debug("manual entry started")
	return nil
}

// BeginEdit opens the candidate for field-level correction.
func (m *Machine) BeginEdit() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateReviewing {
		return fmt.Errorf("session: begin edit from %s: %w", m.state, ErrInvalidTransition)
	}
	m.state = StateEditing
	return nil
}

// SaveEdit replaces the candidate with rec and returns to Reviewing. No
// validation happens here; required fields are checked only at confirm time.
func (m *Machine) SaveEdit(rec booking.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateEditing {
		return fmt.Errorf("session: save edit from %s: %w", m.state, ErrInvalidTransition)
	}
	m.reconciler.Edit(rec)
	m.state = StateReviewing
	return nil
}

// Confirm validates and persists the candidate, then resets to Idle with a
// cleared transcript. A validation failure keeps the machine in Reviewing
// with the candidate untouched, so the user can edit and retry.
func (m *Machine) Confirm(ctx context.Context) (booking.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateReviewing {
		return booking.Appointment{}, fmt.Errorf("session: confirm from %s: %w", m.state, ErrInvalidTransition)
	}

	appt, err := m.reconciler.Confirm(ctx)
	if err != nil {
		return booking.Appointment{}, err
	}

	m.capture.ResetTranscript()
	m.state = StateIdle
	m.notify(Notice{
		Kind:    NoticeConfirmed,
		Message: fmt.Sprintf("Appointment confirmed for %s", appt.PatientName),
	})
	return appt, nil
}

// Cancel discards the candidate and transcript from Reviewing or Editing and
// returns to Idle. Nothing is persisted.
func (m *Machine) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateReviewing && m.state != StateEditing {
		return fmt.Errorf("session: cancel from %s: %w", m.state, ErrInvalidTransition)
	}
	m.reconciler.Cancel()
	m.capture.ResetTranscript()
	m.state = StateIdle
	m.logger.Debug("booking cancelled")
	return nil
}

// notify delivers n without blocking. Callers hold m.mu.
func (m *Machine) notify(n Notice) {
	select {
	case m.notices <- n:
	default:
		m.logger.Warn("notice dropped", "kind", string(n.Kind))
	}
}
