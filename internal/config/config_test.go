package config_test

import (
	"errors"
	"testing"

	"github.com/medvox/frontdesk/internal/config"
	"github.com/medvox/frontdesk/pkg/stt"
	"github.com/medvox/frontdesk/pkg/stt/mock"
)

func TestLogLevel_IsValid(t *testing.T) {
	t.Parallel()

	for _, l := range []config.LogLevel{config.LogDebug, config.LogInfo, config.LogWarn, config.LogError} {
		if !l.IsValid() {
			t.Errorf("LogLevel(%q).IsValid() = false, want true", l)
		}
	}
	if config.LogLevel("verbose").IsValid() {
		t.Error(`LogLevel("verbose").IsValid() = true, want false`)
	}
}

func TestStorageDriver_IsValid(t *testing.T) {
	t.Parallel()

	for _, d := range []config.StorageDriver{config.StorageMemory, config.StorageSQLite, config.StoragePostgres} {
		if !d.IsValid() {
			t.Errorf("StorageDriver(%q).IsValid() = false, want true", d)
		}
	}
	if config.StorageDriver("redis").IsValid() {
		t.Error(`StorageDriver("redis").IsValid() = true, want false`)
	}
}

func TestRegistry_CreateSTT(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	want := &mock.Provider{}
	var gotEntry config.ProviderEntry
	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		gotEntry = entry
		return want, nil
	})

	entry := config.ProviderEntry{Name: "deepgram", APIKey: "dg-secret", Model: "nova-2"}
	p, err := reg.CreateSTT(entry)
	if err != nil {
		t.Fatalf("CreateSTT() = %v", err)
	}
	if p != want {
		t.Error("CreateSTT() returned a different provider than the factory produced")
	}
	if gotEntry.Name != entry.Name || gotEntry.APIKey != entry.APIKey || gotEntry.Model != entry.Model {
		t.Errorf("factory received %+v, want %+v", gotEntry, entry)
	}
}

func TestRegistry_CreateSTT_NoneDisablesCapture(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	for _, name := range []string{"", "none"} {
		p, err := reg.CreateSTT(config.ProviderEntry{Name: name})
		if err != nil {
			t.Errorf("CreateSTT(%q) = %v, want nil error", name, err)
		}
		if p != nil {
			t.Errorf("CreateSTT(%q) = %v, want nil provider", name, p)
		}
	}
}

func TestRegistry_CreateSTT_Unregistered(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	_, err := reg.CreateSTT(config.ProviderEntry{Name: "siri"})
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("CreateSTT() error = %v, want ErrProviderNotRegistered", err)
	}
}
