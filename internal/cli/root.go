// Package cli implements the rematch command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/rematch/internal/config"
	"github.com/roach88/rematch/internal/engine"
	"github.com/roach88/rematch/internal/matcher"
	"github.com/roach88/rematch/internal/store"
)

// RootOptions holds global flags for all commands, plus the configuration
// and logger built from them before any command runs.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string // overrides database.dsn

	Config *config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the rematch CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rematch",
		Short: "rematch - binary code similarity matching",
		Long: `Match functions and data of one binary against other binaries.

rematch stores instances and their feature vectors, runs matching tasks
over them with a strategy of matcher steps, and records scored matches.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ./"+config.DefaultPath+" if present)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "database DSN, overrides database.dsn")

	// Add subcommands
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewTaskCommand(opts))
	cmd.AddCommand(NewMatchersCommand(opts))
	cmd.AddCommand(NewStrategiesCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// setup loads the configuration, applies flag overrides and builds the
// process logger on w.
func (o *RootOptions) setup(w io.Writer) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.Database != "" {
		cfg.Database.DSN = o.Database
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid log level", err)
	}
	if o.Verbose {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(w, handlerOpts)
	if o.Format == "json" {
		handler = slog.NewJSONHandler(w, handlerOpts)
	}

	o.Config = cfg
	o.Logger = slog.New(handler)
	return nil
}

// formatter returns an OutputFormatter writing results to cmd's stdout.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// openStore opens the configured database.
func (o *RootOptions) openStore() (*store.Store, error) {
	st, err := store.Open(o.Config.Database.Driver, o.Config.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", o.Config.Database.Driver, err)
	}
	o.Logger.Debug("database ready", "driver", o.Config.Database.Driver)
	return st, nil
}

// closeStore closes st and logs a failure.
func (o *RootOptions) closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		o.Logger.Error("error closing database", "error", err)
	}
}

// matchers returns the matcher registry with configured hash scores.
func (o *RootOptions) matchers() *matcher.Registry {
	return matcher.New(matcher.Options{HashScores: o.Config.Engine.HashScores})
}

// newRunner builds a runner over st from the engine configuration.
func (o *RootOptions) newRunner(st engine.Store, extra ...engine.Option) *engine.Runner {
	opts := []engine.Option{
		engine.WithLogger(o.Logger),
		engine.WithMatchers(o.matchers()),
		engine.WithBatchSize(o.Config.Engine.BatchSize),
		engine.WithMinScore(o.Config.Engine.MinScore),
		engine.WithPageSize(o.Config.Engine.PageSize),
	}
	return engine.New(st, append(opts, extra...)...)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
