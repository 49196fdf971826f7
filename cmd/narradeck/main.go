// Command narradeck is the main entry point for the narradeck presentation
// server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/narradeck/narradeck/internal/config"
	"github.com/narradeck/narradeck/internal/deck"
	"github.com/narradeck/narradeck/internal/observe"
	"github.com/narradeck/narradeck/internal/record"
	"github.com/narradeck/narradeck/internal/resilience"
	"github.com/narradeck/narradeck/internal/server"
	"github.com/narradeck/narradeck/internal/timing"
	"github.com/narradeck/narradeck/pkg/audio/clip"
)

// defaultRuntimeFile is used when no storage backend is configured.
const defaultRuntimeFile = "runtime_records.json"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration, keep watching for edits ───────────────────────────
	logLevel := new(slog.LevelVar)
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		applyConfigChange(logLevel, config.Diff(old, new))
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "narradeck: config file %q not found; copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "narradeck: %v\n", err)
		}
		return 1
	}
	defer watcher.Stop()
	cfg := watcher.Current()

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("narradeck starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	if cfg.Telemetry.Enabled {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
			ServiceName: cfg.Telemetry.ServiceName,
		})
		if err != nil {
			slog.Error("failed to initialise telemetry", "err", err)
			return 1
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Warn("telemetry shutdown error", "err", err)
			}
		}()
	}
	metrics := observe.DefaultMetrics()

	// ── Deck registry ─────────────────────────────────────────────────────────
	registry, err := deck.LoadDir(cfg.Presentations.Dir)
	if err != nil {
		slog.Error("failed to load presentations", "dir", cfg.Presentations.Dir, "err", err)
		return 1
	}

	// ── Audio loader ──────────────────────────────────────────────────────────
	fallback := cfg.Presentations.FallbackClip
	if fallback != "" && !filepath.IsAbs(fallback) {
		fallback = filepath.Join(cfg.Presentations.AudioDir, fallback)
	}
	loader := clip.NewLoader(clip.Config{
		Root:         cfg.Presentations.AudioDir,
		FallbackClip: fallback,
		OnFallback: func(segmentID string) {
			metrics.RecordFallbackLoad(context.Background(), segmentID)
		},
	})

	// ── Runtime record store ──────────────────────────────────────────────────
	store, closeStore, err := buildStore(ctx, cfg.Storage)
	if err != nil {
		slog.Error("failed to initialise record store", "err", err)
		return 1
	}
	defer closeStore()

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg, registry)

	// ── Serve ─────────────────────────────────────────────────────────────────
	// New sessions read the timing defaults through the watcher, so config
	// edits reach them without a restart.
	timingDefaults := func() *timing.Config { return watcher.Current().Timing }

	srv := server.New(cfg.Server, registry, loader, store, metrics, cfg.Presentations.AudioDir, timingDefaults)

	slog.Info("server ready; press Ctrl+C to shut down")
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildStore selects the configured record backend: postgres when a DSN is
// set, a JSON file otherwise.
func buildStore(ctx context.Context, cfg config.StorageConfig) (record.Store, func(), error) {
	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := record.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		slog.Info("runtime records stored in postgres")
		guarded := record.NewGuardedStore(store, resilience.CircuitBreakerConfig{Name: "records"})
		return guarded, pool.Close, nil
	}

	path := cfg.RuntimeFile
	if path == "" {
		path = defaultRuntimeFile
	}
	slog.Info("runtime records stored in file", "path", path)
	return record.NewFileStore(path), func() {}, nil
}

// applyConfigChange applies the hot-reloadable parts of a config edit.
func applyConfigChange(logLevel *slog.LevelVar, diff config.ConfigDiff) {
	if diff.LogLevelChanged {
		logLevel.Set(slogLevel(diff.NewLogLevel))
		slog.Info("log level changed", "level", diff.NewLogLevel)
	}
	if diff.TimingChanged {
		slog.Info("timing defaults changed; new sessions will use them")
	}
	if diff.PresentationsChanged {
		slog.Warn("presentation locations changed; restart required to apply")
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, registry *deck.Registry) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║       narradeck startup summary       ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	fmt.Printf("║  Presentations  : %-20d ║\n", registry.Len())
	fmt.Printf("║  Deck dir       : %-20s ║\n", trim(cfg.Presentations.Dir))
	fmt.Printf("║  Audio dir      : %-20s ║\n", trim(cfg.Presentations.AudioDir))
	storage := "file"
	if cfg.Storage.PostgresDSN != "" {
		storage = "postgres"
	}
	fmt.Printf("║  Record storage : %-20s ║\n", storage)
	telemetry := "disabled"
	if cfg.Telemetry.Enabled {
		telemetry = "enabled"
	}
	fmt.Printf("║  Telemetry      : %-20s ║\n", telemetry)
	if cfg.Server.ListenAddr != "" {
		fmt.Printf("║  Listen addr    : %-20s ║\n", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func trim(s string) string {
	if len(s) > 20 {
		return s[:17] + "…"
	}
	return s
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
