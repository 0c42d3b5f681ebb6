package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/rnp/api"
	"github.com/use-agent/rnp/browser"
	"github.com/use-agent/rnp/config"
	"github.com/use-agent/rnp/htmlpage"
	"github.com/use-agent/rnp/probe"
	"github.com/use-agent/rnp/registry"
)

var replayDir string

var rootCmd = &cobra.Command{
	Use:   "rnp",
	Short: "rnp serves RNP registry lookups for Peruvian suppliers over HTTP.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&replayDir, "replay", "",
		"serve queries from saved HTML snapshots in this directory instead of a live browser (env RNP_REPLAY_DIR)")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("rnp starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxConcurrent", cfg.Concurrency.MaxConcurrent,
		"replay", cfg.Registry.ReplayDir,
	)

	// ── 3. Registry client ──────────────────────────────────────────
	client, err := newClient(cfg, slog.Default())
	if err != nil {
		return fmt.Errorf("initialise registry client: %w", err)
	}

	// ── 4. Setup router ─────────────────────────────────────────────
	pr := probe.New(cfg.Browser.Proxy, cfg.Probe.Timeout)
	router := api.NewRouter(ctx, client, pr, cfg, time.Now())

	// ── 5. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// ── 6. Graceful shutdown ────────────────────────────────────────
	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutdown signal received")

	// In-flight queries get a short grace period; their browsers are
	// torn down when their request contexts are cancelled.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	slog.Info("rnp stopped")
	return nil
}

// load reads the environment and applies command-line overrides.
func load() *config.Config {
	cfg := config.Load()
	if replayDir != "" {
		cfg.Registry.ReplayDir = replayDir
	}
	return cfg
}

// newClient builds the registry client over a live browser launcher, or
// over snapshots when a replay directory is configured.
func newClient(cfg *config.Config, log *slog.Logger) (*registry.Client, error) {
	var l registry.Launcher
	if dir := cfg.Registry.ReplayDir; dir != "" {
		snaps, err := htmlpage.LoadDir(dir, cfg.Registry.BaseURL)
		if err != nil {
			return nil, err
		}
		l = registry.LauncherFunc(func(context.Context) (registry.Session, error) {
			return snaps.Open(), nil
		})
	} else {
		bl := browser.NewLauncher(cfg.Browser, log)
		// The closure keeps registry free of any browser import.
		l = registry.LauncherFunc(func(ctx context.Context) (registry.Session, error) {
			s, err := bl.Launch(ctx)
			if err != nil {
				return nil, err
			}
			return s, nil
		})
	}

	return registry.NewClient(l, registry.Options{
		BaseURL: cfg.Registry.BaseURL,
		Logger:  log,
	})
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
