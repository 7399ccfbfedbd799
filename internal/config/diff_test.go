package config_test

import (
	"slices"
	"testing"

	"github.com/medvox/frontdesk/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   config.LogInfo,
		},
		STT: config.ProviderEntry{
			Name:   "deepgram",
			APIKey: "dg-secret",
		},
		Storage: config.StorageConfig{
			Driver:  config.StorageSQLite,
			DataDir: "./data",
		},
		Clinic: config.ClinicConfig{
			Doctors:      []string{"Johnson", "Patel"},
			KeywordBoost: 1.0,
		},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()

	d := config.Diff(baseConfig(), baseConfig())
	if !d.Empty() {
		t.Errorf("Diff() of identical configs = %+v, want empty", d)
	}
}

func TestDiff_LogLevel(t *testing.T) {
	t.Parallel()

	updated := baseConfig()
	updated.Server.LogLevel = config.LogDebug

	d := config.Diff(baseConfig(), updated)
	if !d.LogLevelChanged {
		t.Fatal("LogLevelChanged = false, want true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel = %q, want debug", d.NewLogLevel)
	}
	if len(d.RestartRequired) != 0 {
		t.Errorf("RestartRequired = %v, want none", d.RestartRequired)
	}
}

func TestDiff_Roster(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		doctors     []string
		wantAdded   []string
		wantRemoved []string
	}{
		{
			name:      "doctor added",
			doctors:   []string{"Johnson", "Patel", "Okonkwo"},
			wantAdded: []string{"Okonkwo"},
		},
		{
			name:        "doctor removed",
			doctors:     []string{"Johnson"},
			wantRemoved: []string{"Patel"},
		},
		{
			name:        "replacement",
			doctors:     []string{"Johnson", "Nguyen"},
			wantAdded:   []string{"Nguyen"},
			wantRemoved: []string{"Patel"},
		},
		{
			name:    "case change only is not a change",
			doctors: []string{"johnson", "PATEL"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			updated := baseConfig()
			updated.Clinic.Doctors = tt.doctors

			d := config.Diff(baseConfig(), updated)
			wantChanged := len(tt.wantAdded) > 0 || len(tt.wantRemoved) > 0
			if d.RosterChanged != wantChanged {
				t.Fatalf("RosterChanged = %v, want %v", d.RosterChanged, wantChanged)
			}
			if !slices.Equal(d.AddedDoctors, tt.wantAdded) {
				t.Errorf("AddedDoctors = %v, want %v", d.AddedDoctors, tt.wantAdded)
			}
			if !slices.Equal(d.RemovedDoctors, tt.wantRemoved) {
				t.Errorf("RemovedDoctors = %v, want %v", d.RemovedDoctors, tt.wantRemoved)
			}
		})
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "listen addr",
			mutate: func(c *config.Config) { c.Server.ListenAddr = ":9090" },
			want:   "server",
		},
		{
			name:   "tls enabled",
			mutate: func(c *config.Config) { c.Server.TLS = &config.TLSConfig{CertFile: "c", KeyFile: "k"} },
			want:   "server",
		},
		{
			name:   "stt provider",
			mutate: func(c *config.Config) { c.STT.Name = "whisper" },
			want:   "stt",
		},
		{
			name: "stt fallback added",
			mutate: func(c *config.Config) {
				c.STT.Fallbacks = append(c.STT.Fallbacks, config.ProviderEntry{Name: "whisper", BaseURL: "http://localhost:9000"})
			},
			want: "stt",
		},
		{
			name:   "storage driver",
			mutate: func(c *config.Config) { c.Storage.Driver = config.StoragePostgres },
			want:   "storage",
		},
		{
			name:   "keyword boost",
			mutate: func(c *config.Config) { c.Clinic.KeywordBoost = 3.0 },
			want:   "clinic.keyword_boost",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			updated := baseConfig()
			tt.mutate(updated)

			d := config.Diff(baseConfig(), updated)
			if !slices.Contains(d.RestartRequired, tt.want) {
				t.Errorf("RestartRequired = %v, want to contain %q", d.RestartRequired, tt.want)
			}
		})
	}
}

func TestDiff_OptionsIgnored(t *testing.T) {
	t.Parallel()

	updated := baseConfig()
	updated.STT.Options = map[string]any{"language": "en-GB"}

	d := config.Diff(baseConfig(), updated)
	if slices.Contains(d.RestartRequired, "stt") {
		t.Errorf("option-only change flagged stt restart: %v", d.RestartRequired)
	}
}
