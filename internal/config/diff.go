package config

import "strings"

// ChangeSet describes what changed between two configs. Log level and the
// doctor roster can be applied to a running server; everything else is
// reported in RestartRequired so the operator knows a reload was not enough.
type ChangeSet struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	RosterChanged  bool
	AddedDoctors   []string
	RemovedDoctors []string

	// RestartRequired names config sections whose changes only take effect
	// after a restart.
	RestartRequired []string
}

// Empty reports whether no tracked field changed.
func (c ChangeSet) Empty() bool {
	return !c.LogLevelChanged && !c.RosterChanged && len(c.RestartRequired) == 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ChangeSet {
	var c ChangeSet

	if old.Server.LogLevel != new.Server.LogLevel {
		c.LogLevelChanged = true
		c.NewLogLevel = new.Server.LogLevel
	}

	c.AddedDoctors, c.RemovedDoctors = diffRoster(old.Clinic.Doctors, new.Clinic.Doctors)
	c.RosterChanged = len(c.AddedDoctors) > 0 || len(c.RemovedDoctors) > 0

	if old.Server.ListenAddr != new.Server.ListenAddr || !tlsEqual(old.Server.TLS, new.Server.TLS) {
		c.RestartRequired = append(c.RestartRequired, "server")
	}
	if !sttEqual(old.STT, new.STT) {
		c.RestartRequired = append(c.RestartRequired, "stt")
	}
	if old.Storage != new.Storage {
		c.RestartRequired = append(c.RestartRequired, "storage")
	}
	if old.Clinic.KeywordBoost != new.Clinic.KeywordBoost {
		c.RestartRequired = append(c.RestartRequired, "clinic.keyword_boost")
	}

	return c
}

// diffRoster compares rosters case-insensitively, preserving the spelling
// from the config that introduced each name.
func diffRoster(old, new []string) (added, removed []string) {
	oldSet := rosterSet(old)
	newSet := rosterSet(new)

	for _, name := range new {
		if _, ok := oldSet[strings.ToLower(name)]; !ok {
			added = append(added, name)
		}
	}
	for _, name := range old {
		if _, ok := newSet[strings.ToLower(name)]; !ok {
			removed = append(removed, name)
		}
	}
	return added, removed
}

func rosterSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[strings.ToLower(name)] = struct{}{}
	}
	return set
}

func tlsEqual(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// sttEqual compares the scalar provider fields plus the fallback list. The
// Options map is ignored: option changes need a restart anyway, but they are
// rare enough not to track separately.
func sttEqual(a, b ProviderEntry) bool {
	if a.Name != b.Name || a.APIKey != b.APIKey ||
		a.BaseURL != b.BaseURL || a.Model != b.Model {
		return false
	}
	if len(a.Fallbacks) != len(b.Fallbacks) {
		return false
	}
	for i := range a.Fallbacks {
		fa, fb := a.Fallbacks[i], b.Fallbacks[i]
		if fa.Name != fb.Name || fa.APIKey != fb.APIKey ||
			fa.BaseURL != fb.BaseURL || fa.Model != fb.Model {
			return false
		}
	}
	return true
}
