// Package cmd provides the CLI commands for docrank.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/docrank/internal/config"
	docerrors "github.com/Aman-CERP/docrank/internal/errors"
	"github.com/Aman-CERP/docrank/internal/logging"
	"github.com/Aman-CERP/docrank/internal/profiling"
	"github.com/Aman-CERP/docrank/pkg/version"
)

const (
	formatText       = "text"
	formatJSON       = "json"
	formatPrometheus = "prometheus"
)

// rootOptions holds persistent flags and the state PersistentPreRunE builds
// for subcommands.
type rootOptions struct {
	debug     bool
	format    string
	configDir string
	noColor   bool
	profile   profiling.Options

	cfg            *config.Config
	cfgErr         error
	loggingCleanup func()
	profiler       *profiling.Session
}

// config returns the loaded configuration, or the error that loading hit.
func (o *rootOptions) config() (*config.Config, error) {
	if o.cfgErr != nil {
		return nil, o.cfgErr
	}
	if o.cfg == nil {
		return config.NewConfig(), nil
	}
	return o.cfg, nil
}

func (o *rootOptions) jsonOutput() bool {
	return o.format == formatJSON
}

// NewRootCmd creates the root command for the docrank CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docrank",
		Short: "Hybrid multi-strategy document ranking",
		Long: `docrank ranks documentation with nine retrieval strategies
(lexical, fulltext, bm25, fuzzy, ngram, rule_based, graph, topic,
contextual) and fuses their results with weighted_sum, rank_fusion,
cascade or vote.

Documents come from a YAML/JSON corpus held in memory, or from a SQLite
database filled with 'docrank seed'.`,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.SetVersionTemplate("docrank version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging to ~/.docrank/logs/")
	cmd.PersistentFlags().StringVar(&opts.format, "format", formatText, "Output format: text, json")
	cmd.PersistentFlags().StringVar(&opts.configDir, "config-dir", ".", "Directory to search for .docrank.yaml")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.PersistentFlags().StringVar(&opts.profile.CPU, "profile-cpu", "", "Write a CPU profile to this file")
	cmd.PersistentFlags().StringVar(&opts.profile.Mem, "profile-mem", "", "Write a heap profile to this file on exit")
	cmd.PersistentFlags().StringVar(&opts.profile.Trace, "profile-trace", "", "Write an execution trace to this file")
	_ = cmd.PersistentFlags().MarkHidden("profile-trace")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return opts.setup(cmd.ErrOrStderr())
	}
	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		opts.teardown()
		return nil
	}

	cmd.AddCommand(newSearchCmd(opts))
	cmd.AddCommand(newStrategyCmd(opts))
	cmd.AddCommand(newCompareCmd(opts))
	cmd.AddCommand(newRecommendCmd(opts))
	cmd.AddCommand(newCodeCmd(opts))
	cmd.AddCommand(newStrategiesCmd(opts))
	cmd.AddCommand(newStatsCmd(opts))
	cmd.AddCommand(newSeedCmd(opts))
	cmd.AddCommand(newInitCmd(opts))
	cmd.AddCommand(newLogsCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setup loads configuration and installs the default logger. A config
// error is kept for the commands that need configuration; logging then
// falls back to defaults.
func (o *rootOptions) setup(stderr io.Writer) error {
	root, err := config.FindProjectRoot(o.configDir)
	if err != nil {
		root = o.configDir
	}
	o.cfg, o.cfgErr = config.Load(root)

	logCfg := logging.DefaultConfig()
	if o.cfg != nil {
		logCfg.Level = o.cfg.Logging.Level
		if o.cfg.Logging.File != "" {
			logCfg.FilePath = o.cfg.Logging.File
		}
		logCfg.MaxSizeMB = o.cfg.Logging.MaxSizeMB
		logCfg.MaxFiles = o.cfg.Logging.MaxFiles
	}

	cleanup, err := logging.SetupCLI(logCfg, o.debug, stderr)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	o.loggingCleanup = cleanup

	if o.profile.Enabled() {
		session, err := profiling.Start(o.profile)
		if err != nil {
			return fmt.Errorf("failed to start profiling: %w", err)
		}
		o.profiler = session
	}

	if o.cfgErr != nil {
		slog.Debug("config_load_failed", docerrors.LogAttrs(o.cfgErr)...)
	} else {
		slog.Debug("config_loaded",
			slog.String("root", root),
			slog.String("backend", o.cfg.Store.Backend),
			slog.String("method", o.cfg.Search.Method))
	}
	return nil
}

func (o *rootOptions) teardown() {
	if o.profiler != nil {
		if err := o.profiler.Stop(); err != nil {
			slog.Warn("profile_write_failed", slog.String("error", err.Error()))
		}
		o.profiler = nil
	}
	if o.loggingCleanup != nil {
		o.loggingCleanup()
		o.loggingCleanup = nil
	}
}

// Execute runs the root command and reports a failure on stderr.
func Execute() error {
	opts := &rootOptions{}
	cmd := newRootCmd(opts)
	err := cmd.Execute()
	if err != nil {
		opts.teardown()
		reportError(os.Stderr, err, opts.jsonOutput())
	}
	return err
}

// reportError writes err as JSON or in the CLI's human format.
func reportError(w io.Writer, err error, asJSON bool) {
	if asJSON {
		if data, jerr := docerrors.FormatJSON(err); jerr == nil {
			_, _ = fmt.Fprintln(w, string(data))
			return
		}
	}
	_, _ = fmt.Fprint(w, docerrors.FormatForCLI(err))
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
