// Command frontdesk is the main entry point for the MedVox voice front-desk
// server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/medvox/frontdesk/internal/booking"
	"github.com/medvox/frontdesk/internal/capture"
	"github.com/medvox/frontdesk/internal/config"
	"github.com/medvox/frontdesk/internal/extract"
	"github.com/medvox/frontdesk/internal/gateway"
	"github.com/medvox/frontdesk/internal/observe"
	"github.com/medvox/frontdesk/internal/reconcile"
	"github.com/medvox/frontdesk/internal/resilience"
	"github.com/medvox/frontdesk/internal/session"
	"github.com/medvox/frontdesk/pkg/stt"
	"github.com/medvox/frontdesk/pkg/stt/deepgram"
	"github.com/medvox/frontdesk/pkg/stt/whisper"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "frontdesk: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "frontdesk: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel := new(slog.LevelVar)
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("frontdesk starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "frontdesk",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── STT provider ──────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	provider, err := buildSTTProvider(cfg, reg)
	if err != nil {
		slog.Error("failed to create stt provider", "name", cfg.STT.Name, "err", err)
		return 1
	}

	// ── Appointment store ─────────────────────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg.Storage)
	if err != nil {
		slog.Error("failed to open appointment store", "driver", cfg.Storage.Driver, "err", err)
		return 1
	}
	defer closeStore()

	// ── Booking session ───────────────────────────────────────────────────────
	adapter := capture.New(provider,
		capture.WithStreamConfig(stt.StreamConfig{
			SampleRate: 16000,
			Channels:   1,
			Language:   "en-US",
			Keywords:   rosterKeywords(cfg.Clinic),
		}))
	extractor := extract.New(extract.WithRoster(cfg.Clinic.Doctors))
	machine := session.New(adapter, extractor, reconcile.New(store))
	gw := gateway.New(machine, adapter, store)

	// ── Config hot reload ─────────────────────────────────────────────────────
	// Log level and the doctor roster apply live; anything else is logged as
	// needing a restart.
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if d.LogLevelChanged {
			logLevel.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level updated", "level", d.NewLogLevel)
		}
		if d.RosterChanged {
			extractor.SetRoster(new.Clinic.Doctors)
			slog.Info("doctor roster updated",
				"added", d.AddedDoctors,
				"removed", d.RemovedDoctors)
		}
		if len(d.RestartRequired) > 0 {
			slog.Warn("config changes need a restart to apply", "sections", d.RestartRequired)
		}
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           gw.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if cfg.Server.TLS != nil {
			err = srv.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		err := gw.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")

		if err := adapter.Stop(); err != nil {
			slog.Warn("capture stop error", "err", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := g.Wait(); err != nil {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in STT factories into reg. Each
// factory receives a config.ProviderEntry and constructs the provider from
// the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, deepgram.WithLanguage(lang))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.NativeOption
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		return whisper.NewNative(modelPath, opts...)
	})
}

// buildSTTProvider instantiates the configured STT provider, wrapping it in a
// failover chain when fallbacks are configured. A nil provider (no STT
// configured, or the named provider is unknown) leaves the front desk in
// manual-entry-only mode.
func buildSTTProvider(cfg *config.Config, reg *config.Registry) (stt.Provider, error) {
	p, err := reg.CreateSTT(cfg.STT)
	if errors.Is(err, config.ErrProviderNotRegistered) {
		slog.Warn("unknown stt provider — speech capture disabled", "name", cfg.STT.Name)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if p == nil {
		slog.Info("speech capture disabled — manual entry only")
		return nil, nil
	}
	slog.Info("stt provider created", "name", cfg.STT.Name, "model", cfg.STT.Model)

	if len(cfg.STT.Fallbacks) == 0 {
		return p, nil
	}
	chain := resilience.NewSTTChain(p, cfg.STT.Name, slog.Default())
	for _, entry := range cfg.STT.Fallbacks {
		fb, err := reg.CreateSTT(entry)
		if err != nil {
			return nil, fmt.Errorf("fallback %q: %w", entry.Name, err)
		}
		if fb == nil {
			continue
		}
		chain.AddFallback(entry.Name, fb)
		slog.Info("stt fallback registered", "name", entry.Name, "model", entry.Model)
	}
	return chain, nil
}

// rosterKeywords turns the clinic's doctor roster into recognition hints.
func rosterKeywords(clinic config.ClinicConfig) []stt.KeywordBoost {
	boost := clinic.KeywordBoost
	if boost == 0 {
		boost = 1.0
	}
	keywords := make([]stt.KeywordBoost, 0, len(clinic.Doctors))
	for _, name := range clinic.Doctors {
		keywords = append(keywords, stt.KeywordBoost{Keyword: name, Boost: boost})
	}
	return keywords
}

// ── Storage wiring ────────────────────────────────────────────────────────────

// openStore builds the appointment store named in cfg. The returned close
// func releases the store and any connection pool behind it.
func openStore(ctx context.Context, cfg config.StorageConfig) (booking.Store, func(), error) {
	switch cfg.Driver {
	case config.StorageMemory:
		store := booking.NewMemStore()
		slog.Info("appointment store opened", "driver", "memory")
		return store, func() {}, nil

	case config.StorageSQLite, "":
		store, err := booking.OpenSQLite(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("appointment store opened", "driver", "sqlite", "data_dir", cfg.DataDir)
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Warn("store close error", "err", err)
			}
		}, nil

	case config.StoragePostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := booking.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate postgres schema: %w", err)
		}
		slog.Info("appointment store opened", "driver", "postgres")
		return store, pool.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║       MedVox — startup summary        ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	sttValue := cfg.STT.Name
	if sttValue == "" || sttValue == "none" {
		sttValue = "(manual entry only)"
	} else if cfg.STT.Model != "" {
		sttValue = cfg.STT.Name + " / " + cfg.STT.Model
	}
	printRow("STT provider", sttValue)
	printRow("Storage", string(cfg.Storage.Driver))
	printRow("Doctors", fmt.Sprintf("%d on roster", len(cfg.Clinic.Doctors)))
	if cfg.Server.TLS != nil {
		printRow("TLS", "enabled")
	}
	printRow("Listen addr", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(label, value string) {
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", label, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
