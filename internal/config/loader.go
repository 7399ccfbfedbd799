package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidSTTProviderNames lists the STT provider names shipped with the server.
// Used by [Validate] to warn about unrecognised names.
var ValidSTTProviderNames = []string{"deepgram", "whisper", "whisper-native", "none"}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader] and
// [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills unset fields with their documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = StorageSQLite
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "./data"
	}
	if cfg.Clinic.KeywordBoost == 0 {
		cfg.Clinic.KeywordBoost = 1.0
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// STT provider
	if cfg.STT.Name != "" && !slices.Contains(ValidSTTProviderNames, cfg.STT.Name) {
		slog.Warn("unknown STT provider name — may be a typo or third-party provider",
			"name", cfg.STT.Name,
			"known", ValidSTTProviderNames,
		)
	}
	if cfg.STT.Name == "deepgram" && cfg.STT.APIKey == "" {
		errs = append(errs, errors.New("stt.api_key is required when stt.name is deepgram"))
	}
	if cfg.STT.Name == "" || cfg.STT.Name == "none" {
		slog.Warn("no STT provider configured; speech capture disabled, manual entry only")
	}
	for i, fb := range cfg.STT.Fallbacks {
		if fb.Name == "" || fb.Name == "none" {
			errs = append(errs, fmt.Errorf("stt.fallbacks[%d] must name a provider", i))
			continue
		}
		if fb.Name == "deepgram" && fb.APIKey == "" {
			errs = append(errs, fmt.Errorf("stt.fallbacks[%d]: api_key is required for deepgram", i))
		}
	}

	// Storage
	if !cfg.Storage.Driver.IsValid() {
		errs = append(errs, fmt.Errorf("storage.driver %q is invalid; valid values: memory, sqlite, postgres", cfg.Storage.Driver))
	}
	if cfg.Storage.Driver == StoragePostgres && cfg.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("storage.postgres_dsn is required when storage.driver is postgres"))
	}

	// Clinic roster duplicate detection
	seen := make(map[string]int, len(cfg.Clinic.Doctors))
	for i, name := range cfg.Clinic.Doctors {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, fmt.Errorf("clinic.doctors[%d] is blank", i))
			continue
		}
		key := strings.ToLower(strings.TrimSpace(name))
		if prev, ok := seen[key]; ok {
			errs = append(errs, fmt.Errorf("clinic.doctors[%d] %q is a duplicate of clinic.doctors[%d]", i, name, prev))
		}
		seen[key] = i
	}
	if cfg.Clinic.KeywordBoost < 0 {
		errs = append(errs, fmt.Errorf("clinic.keyword_boost %.2f must not be negative", cfg.Clinic.KeywordBoost))
	}

	return errors.Join(errs...)
}
