package extract

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const rosterScoreThreshold = 0.80

// RosterMatcher corrects transcribed doctor names against a known roster
// using Double Metaphone phonetic encoding with Jaro-Winkler ranking.
// Speech-to-text frequently misspells surnames it has never seen; the roster
// is the ground truth for what it could have heard.
//
// A RosterMatcher is read-only after construction and safe for concurrent
// use.
type RosterMatcher struct {
	names []string
	codes []map[string]struct{}
}

// NewRosterMatcher builds a matcher over the given roster names. Blank
// entries are skipped.
func NewRosterMatcher(names []string) *RosterMatcher {
	m := &RosterMatcher{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		m.names = append(m.names, name)
		m.codes = append(m.codes, metaphoneCodes(name))
	}
	return m
}

// Match returns the roster entry closest to heard, in the roster's canonical
// spelling. matched is false when heard is phonetically unlike every roster
// entry, in which case heard is returned unchanged.
func (m *RosterMatcher) Match(heard string) (corrected string, matched bool) {
	heard = strings.TrimSpace(heard)
	if heard == "" || len(m.names) == 0 {
		return heard, false
	}

	heardLower := strings.ToLower(heard)
	heardCodes := metaphoneCodes(heardLower)

	var (
		bestName  string
		bestScore float64
	)
	for i, name := range m.names {
		if !codesOverlap(heardCodes, m.codes[i]) {
			continue
		}
		score := matchr.JaroWinkler(heardLower, strings.ToLower(name), false)
		if score >= rosterScoreThreshold && score > bestScore {
			bestName, bestScore = name, score
		}
	}
	if bestName == "" {
		return heard, false
	}
	return bestName, true
}

// metaphoneCodes returns the union of Double Metaphone codes for each word in
// s. Empty codes are excluded.
func metaphoneCodes(s string) map[string]struct{} {
	codes := make(map[string]struct{}, 2)
	for _, word := range strings.Fields(s) {
		p, sec := matchr.DoubleMetaphone(word)
		if p != "" {
			codes[p] = struct{}{}
		}
		if sec != "" {
			codes[sec] = struct{}{}
		}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
