// Package extract turns a raw speech transcript into a structured appointment
// record using cue-word pattern heuristics.
//
// Each field is recognised independently by a (cue word, stop word, character
// class) rule applied to the lowercased transcript: "for John Smith" yields a
// patient name, "with Dr. Johnson" a doctor, "on Monday" a date, "at 2 PM" a
// time, and a trailing "for checkup" a purpose. The rules deliberately overlap
// — "for" cues both patient and purpose — and no rule invalidates another.
//
// A field whose rule finds nothing is filled with the [NotSpecified] sentinel
// (purpose gets [DefaultPurpose] instead), so a partial utterance still
// produces a reviewable record. Only when patient, doctor, date and time all
// fail does Extract report no extraction at all.
package extract

import (
	"regexp"
	"strings"
	"sync"

	"github.com/medvox/frontdesk/internal/booking"
)

// Sentinel values substituted for fields the transcript did not mention.
const (
	// NotSpecified fills any required field whose pattern found no value.
	NotSpecified = "Not specified"

	// DefaultPurpose fills the purpose field when no purpose was stated.
	DefaultPurpose = "General consultation"
)

// Field patterns, matched against the lowercased transcript. Stop words only
// terminate a capture when they stand alone between whitespace, so "Barton"
// is never cut short at its embedded "at".
var (
	patientPattern = regexp.MustCompile(`\b(?:for|patient)\s+([a-z][a-z\s]*?)(?:\s+(?:with|on|at)\b|$)`)
	doctorPattern  = regexp.MustCompile(`\b(?:doctor|dr\.?|with)\s+([a-z][a-z\s]*?)(?:\s+(?:on|at)\b|$)`)
	datePattern    = regexp.MustCompile(`\b(?:on|date)\s+([a-z0-9][a-z0-9\s,]*?)(?:\s+at\b|$)`)
	timePattern    = regexp.MustCompile(`\b(?:at|time)\s+([0-9][0-9:apm\s]*)`)
	purposePattern = regexp.MustCompile(`\b(?:for|regarding|about)\s+([a-z\s]+?)$`)
)

// Option configures an [Extractor].
type Option func(*Extractor)

// WithRoster supplies the clinic's doctor roster. When set, a recognised
// doctor name is phonetically corrected to its closest roster entry, fixing
// transcription slips like "jonson" for "Johnson". Sentinel and non-matching
// values pass through untouched.
func WithRoster(names []string) Option {
	return func(e *Extractor) {
		e.roster = NewRosterMatcher(names)
	}
}

// Extractor extracts appointment fields from transcript text. It is stateless
// apart from its configuration and safe for concurrent use.
type Extractor struct {
	mu     sync.RWMutex
	roster *RosterMatcher
}

// New returns an [Extractor] configured with the supplied options.
func New(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, o := range opts {
		o(e)
	}
	return e
}

// SetRoster replaces the doctor roster at runtime, e.g. after a config
// reload. An empty roster disables phonetic correction.
func (e *Extractor) SetRoster(names []string) {
	var m *RosterMatcher
	if len(names) > 0 {
		m = NewRosterMatcher(names)
	}
	e.mu.Lock()
	e.roster = m
	e.mu.Unlock()
}

// Extract runs all field rules over text and assembles a record. ok is false
// only when none of patient, doctor, date and time matched; purpose alone
// never rescues an otherwise empty transcript.
//
// Extract is a pure function of text: identical input yields identical
// output.
func (e *Extractor) Extract(text string) (rec booking.Record, ok bool) {
	lower := strings.ToLower(text)

	patient, patientOK := capture(patientPattern, lower)
	doctor, doctorOK := capture(doctorPattern, lower)
	if doctorOK {
		// "with dr watson" cues at "with" and captures the honorific too.
		doctor, doctorOK = stripHonorific(doctor)
	}
	date, dateOK := capture(datePattern, lower)
	tm, timeOK := capture(timePattern, lower)
	purpose, purposeOK := capture(purposePattern, lower)

	if !patientOK && !doctorOK && !dateOK && !timeOK {
		return booking.Record{}, false
	}

	if !patientOK {
		patient = NotSpecified
	}
	if !doctorOK {
		doctor = NotSpecified
	}
	if !dateOK {
		date = NotSpecified
	}
	if !timeOK {
		tm = NotSpecified
	}
	if !purposeOK {
		purpose = DefaultPurpose
	}

	e.mu.RLock()
	roster := e.roster
	e.mu.RUnlock()
	if doctorOK && roster != nil {
		if corrected, matched := roster.Match(doctor); matched {
			doctor = corrected
		}
	}

	return booking.Record{
		PatientName: patient,
		Doctor:      doctor,
		Date:        date,
		Time:        tm,
		Purpose:     purpose,
	}, true
}

// stripHonorific drops a leading "dr", "dr." or "doctor" token from a
// captured doctor name. ok is false when nothing but the honorific was
// captured.
func stripHonorific(name string) (string, bool) {
	fields := strings.Fields(name)
	if len(fields) > 0 {
		switch fields[0] {
		case "dr", "dr.", "doctor":
			fields = fields[1:]
		}
	}
	if len(fields) == 0 {
		return "", false
	}
	return strings.Join(fields, " "), true
}

// capture returns the first capture group of re in text, trimmed. ok is false
// when the pattern does not match or the capture trims to nothing.
func capture(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	val := strings.TrimSpace(m[1])
	if val == "" {
		return "", false
	}
	return val, true
}
