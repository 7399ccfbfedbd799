// Package booking defines the appointment data model and the appointment
// store used to persist confirmed bookings.
//
// A Record is the free-text appointment as captured from voice extraction or
// manual entry. Fields are deliberately kept as opaque strings — downstream
// consumers only display them, so no calendar or clock parsing happens here.
// An Appointment is a Record that survived confirmation: it carries an
// identity, a status, and a creation timestamp, none of which mutate after
// the append.
//
// All store implementations are safe for concurrent use.
package booking

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRecord is wrapped by [Record.Validate] when required fields are
// missing.
var ErrInvalidRecord = errors.New("booking: invalid record")

// Record is an appointment as reviewed by the front-desk operator.
// All fields are free text.
type Record struct {
	// PatientName is the patient's full name.
	PatientName string `json:"patientName"`

	// Doctor is the clinician's name.
	Doctor string `json:"doctor"`

	// Date is the appointment date as spoken or typed (e.g. "monday",
	// "march 3"). Not validated as a calendar value.
	Date string `json:"date"`

	// Time is the appointment time as spoken or typed (e.g. "2 pm").
	// Not validated as a clock value.
	Time string `json:"time"`

	// Purpose is the reason for the visit. May be empty.
	Purpose string `json:"purpose"`
}

// Validate reports whether the record is complete enough to persist.
// PatientName, Doctor, Date, and Time must all be non-empty after trimming;
// Purpose is optional. It returns a joined error naming every missing field.
func (r Record) Validate() error {
	var errs []error
	if strings.TrimSpace(r.PatientName) == "" {
		errs = append(errs, errors.New("patientName is required"))
	}
	if strings.TrimSpace(r.Doctor) == "" {
		errs = append(errs, errors.New("doctor is required"))
	}
	if strings.TrimSpace(r.Date) == "" {
		errs = append(errs, errors.New("date is required"))
	}
	if strings.TrimSpace(r.Time) == "" {
		errs = append(errs, errors.New("time is required"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, errors.Join(errs...))
	}
	return nil
}

// Status is the lifecycle state of a stored appointment.
type Status string

const (
	// StatusScheduled is the status assigned at confirm time.
	StatusScheduled Status = "scheduled"

	// StatusCompleted marks an appointment as carried out.
	StatusCompleted Status = "completed"

	// StatusCancelled marks an appointment as cancelled after booking.
	StatusCancelled Status = "cancelled"
)

// IsValid reports whether s is a recognised status.
func (s Status) IsValid() bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Appointment is a confirmed booking as held by the store. ID, Status, and
// CreatedAt are assigned once at confirm time and never mutated by the
// booking core.
type Appointment struct {
	// ID uniquely identifies the appointment within the store.
	ID string `json:"id"`

	// Record is the confirmed appointment content.
	Record

	// Status is the lifecycle state. Always [StatusScheduled] when the
	// appointment is first appended.
	Status Status `json:"status"`

	// CreatedAt is when the appointment was confirmed.
	CreatedAt time.Time `json:"createdAt"`
}

// matchesTerm reports whether the appointment matches a case-insensitive
// search term across patient name, doctor, and purpose. An empty term
// matches everything.
func (a Appointment) matchesTerm(term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(a.PatientName), term) ||
		strings.Contains(strings.ToLower(a.Doctor), term) ||
		strings.Contains(strings.ToLower(a.Purpose), term)
}
