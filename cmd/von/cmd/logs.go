package cmd

import (
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	vonerrors "github.com/Aman-CERP/von/internal/errors"
	"github.com/Aman-CERP/von/internal/logging"
)

// logsOptions holds CLI flags for logs.
type logsOptions struct {
	lines   int
	level   string
	filter  string
	logFile string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View von logs",
		Long: `Show recent entries of the von log (~/.von/logs/von.log).

Examples:
  von logs                   # Last 50 lines
  von logs -n 0              # Whole file
  von logs --level warn      # Skipped entries and failures
  von logs --filter reindex  # Lines matching a pattern`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show (0 for all)")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Filter by pattern (regex)")
	cmd.Flags().StringVar(&opts.logFile, "file", "", "Custom log file path")

	return cmd
}

func runLogs(cmd *cobra.Command, opts logsOptions) error {
	path, err := logging.FindLogFile(opts.logFile)
	if err != nil {
		return vonerrors.New(vonerrors.ErrCodeFileNotFound, err.Error(), err).
			WithSuggestion("Run any von command to create the log, or pass --file")
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		pattern, err = regexp.Compile(opts.filter)
		if err != nil {
			return vonerrors.ValidationError(fmt.Sprintf("invalid filter %q", opts.filter), err)
		}
	}

	out := cmd.OutOrStdout()
	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Pattern: pattern,
		NoColor: colorOff(out),
	}, out)

	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return vonerrors.IOError("failed to read log file", err)
	}
	viewer.Print(entries)
	return nil
}
