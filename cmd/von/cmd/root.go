// Package cmd provides the CLI commands for von.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/von/internal/config"
	vonerrors "github.com/Aman-CERP/von/internal/errors"
	"github.com/Aman-CERP/von/internal/logging"
	"github.com/Aman-CERP/von/internal/profiling"
	"github.com/Aman-CERP/von/pkg/version"
)

// Persistent flags
var (
	basePath   string
	configPath string
	debugMode  bool
	noColor    bool
)

// Profiling flags
var (
	profileOpts profiling.Options
	profiler    *profiling.Session
)

var loggingCleanup func()

// errReported marks a failure whose details were already printed.
var errReported = errors.New("errors reported above")

// NewRootCmd creates the root command for the von CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "von",
		Short: "Index and search an archive of olympiad problems",
		Long: `von keeps an archive of math problems written as plain-text
source files, indexes them by key, source and body, and shows them
with the archive's macros expanded.

Run 'von reindex' after editing the source files.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("von version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&basePath, "base", "", "Archive base path (default: $VON_BASE_PATH or nearest .von.yaml)")
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Explicit config file instead of the layered config")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.von/logs/ and stderr")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return stopProfilingAndLogging()
	}

	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newShowCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newCandidatesCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and reports any error on stderr.
func Execute() error {
	root := NewRootCmd()
	err := root.Execute()
	if err != nil && !errors.Is(err, errReported) {
		slog.Error("command_failed", vonerrors.LogAttrs(err)...)
		writer(root.ErrOrStderr()).Report(err)
	}
	_ = stopProfilingAndLogging()
	return err
}

// startProfilingAndLogging installs the file logger and starts any
// requested profiles. Config problems are not reported here; commands that
// need the config load it again and fail there.
func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if err := startLogging(); err != nil {
		return err
	}
	if profileOpts.Enabled() {
		session, err := profiling.Start(profileOpts)
		if err != nil {
			return err
		}
		profiler = session
	}
	return nil
}

// stopProfilingAndLogging flushes profiles and closes the log file.
func stopProfilingAndLogging() error {
	err := profiler.Stop()
	profiler = nil
	stopLogging()
	return err
}

func startLogging() error {
	cfg := logging.DefaultConfig()
	if debugMode {
		cfg = logging.DebugConfig()
	} else if vc, err := loadConfigQuiet(); err == nil {
		cfg.Level = vc.Logging.Level
		cfg.MaxSizeMB = vc.Logging.MaxSizeMB
		cfg.MaxFiles = vc.Logging.MaxFiles
	}

	cleanup, err := logging.SetupDefault(cfg)
	if err != nil {
		// Commands run without a log file.
		logging.Discard()
		if debugMode {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		return nil
	}
	loggingCleanup = cleanup

	slog.Debug("debug_logging_enabled",
		slog.String("log_file", cfg.FilePath),
		slog.String("version", version.Version))
	return nil
}

func stopLogging() {
	if loggingCleanup != nil {
		logging.Discard()
		loggingCleanup()
		loggingCleanup = nil
	}
}

func loadConfigQuiet() (*config.Config, error) {
	_, cfg, err := loadConfig()
	return cfg, err
}
