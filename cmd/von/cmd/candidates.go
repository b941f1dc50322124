package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/von/internal/search"
)

func newCandidatesCmd() *cobra.Command {
	var keysOnly bool

	cmd := &cobra.Command{
		Use:   "candidates [pattern]",
		Short: "List entries for a fuzzy finder",
		Long: `Print one line per entry: key, source, description and a secret
marker, separated by tabs, in key order. With a pattern the list is
fuzzy-filtered and ordered by match quality.

Examples:
  von candidates | fzf | cut -f1 | xargs von show
  von candidates usamo`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := ""
			if len(args) == 1 {
				pattern = args[0]
			}
			return runCandidates(cmd.Context(), cmd, pattern, keysOnly)
		},
	}

	cmd.Flags().BoolVar(&keysOnly, "keys", false, "Print keys only")

	return cmd
}

func runCandidates(ctx context.Context, cmd *cobra.Command, pattern string, keysOnly bool) error {
	a, err := openArchive(nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	var candidates []search.Candidate
	if pattern == "" {
		candidates, err = a.engine.Candidates(ctx)
	} else {
		candidates, err = a.engine.FilterCandidates(ctx, pattern)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, c := range candidates {
		line := c.Display
		if keysOnly {
			line = c.Key
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}
