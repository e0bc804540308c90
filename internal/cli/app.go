package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/loctrack/internal/blob"
	"github.com/roach88/loctrack/internal/config"
	"github.com/roach88/loctrack/internal/durability"
	"github.com/roach88/loctrack/internal/observability"
	"github.com/roach88/loctrack/internal/recorder"
)

// app is the wired storage stack shared by every command.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	backend  *blob.SQLite
	manager  *durability.Manager
	recorder *recorder.Recorder
	metrics  observability.MetricsRecorder
}

// loadConfig reads --config (or the defaults) and applies --db and
// --driver on top.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg := config.Default()
	if opts.Config != "" {
		var err error
		cfg, err = config.FromFile(opts.Config)
		if err != nil {
			return config.Config{}, err
		}
	}
	if opts.DB != "" {
		cfg.Database.Path = opts.DB
	}
	if opts.Driver != "" {
		cfg.Database.Driver = opts.Driver
	}
	if err := config.Validate(cfg); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newLogger writes text logs to w. Verbose forces debug level.
func newLogger(w io.Writer, cfg config.Config, verbose bool) *slog.Logger {
	level := cfg.Log.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openApp loads config, opens the database and restores the recorder.
// Errors are reported through f and returned as ExitErrors.
func openApp(ctx context.Context, opts *RootOptions, cmd *cobra.Command, f *OutputFormatter) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, f.fail(ExitCommandError, ErrCodeConfig, "invalid configuration", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg, opts.Verbose)
	logger.Debug("opening database",
		"path", cfg.Database.Path,
		"driver", cfg.Database.Driver)

	backend, err := blob.OpenSQLite(cfg.Database.Path, blob.WithDriver(cfg.Database.Driver))
	if err != nil {
		return nil, f.fail(ExitCommandError, ErrCodeStorage, "failed to open database", err)
	}

	metrics := observability.NewMetricsRecorder()
	manager := durability.New(backend,
		durability.WithLogger(logger),
		durability.WithMetrics(metrics),
		durability.WithSpans(observability.NewSpanManager()))

	rec, err := recorder.Open(ctx, manager,
		recorder.WithLogger(logger))
	if err != nil {
		_ = manager.Close()
		_ = backend.Close()
		return nil, f.fail(ExitCommandError, ErrCodeStorage, "failed to load samples", err)
	}
	if loadErr := rec.LoadErr(); loadErr != nil {
		f.Warn("warning: stored samples could not be loaded, starting empty: %v", loadErr)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		backend:  backend,
		manager:  manager,
		recorder: rec,
		metrics:  metrics,
	}, nil
}

// Close flushes pending writes and closes the database.
func (a *app) Close() error {
	mgrErr := a.manager.Close()
	dbErr := a.backend.Close()
	if mgrErr != nil {
		return fmt.Errorf("close durability manager: %w", mgrErr)
	}
	if dbErr != nil {
		return fmt.Errorf("close database: %w", dbErr)
	}
	return nil
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// closeLogged closes a and logs a failure instead of returning it.
func (a *app) closeLogged() {
	if err := a.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}
