package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KarthikHK-01/queuectl"
	audithook "github.com/KarthikHK-01/queuectl/audit_hook"
	"github.com/KarthikHK-01/queuectl/engine"
)

// app carries the state shared by every subcommand. It is filled in by
// the root command's PersistentPreRunE.
type app struct {
	configPath string
	backend    string
	dsn        string
	logLevel   string

	cfg    queuectl.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "queuectl",
		Short:        "A CLI-based background job queue",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "queuectl.yaml", "path to the YAML config file")
	flags.StringVar(&a.backend, "backend", "", "store backend: sqlite, postgres, redis, mongo or memory")
	flags.StringVar(&a.dsn, "dsn", "", "store connection string (a file path for sqlite)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		enqueueCmd(a),
		statusCmd(a),
		listCmd(a),
		workerCmd(a),
		dlqCmd(a),
		configCmd(a),
	)
	return root
}

// load reads the config file, applies flag overrides, and builds the logger.
func (a *app) load(logOut io.Writer) error {
	cfg, err := queuectl.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.backend != "" {
		cfg.Store.Backend = a.backend
	}
	if a.dsn != "" {
		cfg.Store.DSN = a.dsn
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log, logOut)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

// withEngine opens and migrates the configured store, builds an engine
// over it, and closes both when fn returns.
func (a *app) withEngine(ctx context.Context, fn func(*engine.Engine) error) error {
	s, err := openStore(ctx, a.cfg.Store, a.logger)
	if err != nil {
		return err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return err
	}

	eng, err := engine.New(s,
		engine.WithLogger(a.logger),
		engine.WithWorkerConfig(a.cfg.Worker),
		engine.WithExtension(audithook.New(audithook.SlogRecorder(a.logger),
			audithook.WithLogger(a.logger),
		)),
	)
	if err != nil {
		_ = s.Close()
		return err
	}

	runErr := fn(eng)
	if err := eng.Close(); err != nil {
		a.logger.Warn("failed to close store", slog.String("error", err.Error()))
	}
	return runErr
}

// newLogger builds a text or JSON slog handler from cfg.
func newLogger(cfg queuectl.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
		return nil, fmt.Errorf("%w: log level %q", queuectl.ErrInvalidConfig, cfg.Level)
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch cfg.Format {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h), nil
}
