package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	vonerrors "github.com/Aman-CERP/von/internal/errors"
	"github.com/Aman-CERP/von/internal/picker"
	"github.com/Aman-CERP/von/internal/render"
)

// showOptions holds CLI flags for show.
type showOptions struct {
	brave   bool
	sourced bool
	assets  bool
	where   bool
}

func newShowCmd() *cobra.Command {
	var opts showOptions

	cmd := &cobra.Command{
		Use:   "show [keys...]",
		Short: "Show entries by key",
		Long: `Show each entry with its macros expanded: the source, the statement,
the URL and, after a separator, the solution.

Without keys the configured picker (fzf by default) chooses one.
A missing key is reported with similar keys and the rest are still
shown; the exit status is non-zero if any key failed.

Examples:
  von show USA19P1 ISL17G8
  von show USA19P1 --sourced --assets
  von show`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.brave, "brave", false, "Show secret entries")
	cmd.Flags().BoolVar(&opts.sourced, "sourced", false, "Wrap the statement in a problem environment")
	cmd.Flags().BoolVar(&opts.assets, "assets", false, "List asset files for the entry's PUID")
	cmd.Flags().BoolVar(&opts.where, "where", false, "Print the file and line defining the entry")

	return cmd
}

func runShow(ctx context.Context, cmd *cobra.Command, keys []string, opts showOptions) error {
	a, err := openArchive(nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if len(keys) == 0 {
		candidates, err := a.engine.Candidates(ctx)
		if err != nil {
			return err
		}
		key, err := picker.Choose(ctx, a.cfg.Picker.Command, candidates)
		if err != nil {
			return err
		}
		keys = []string{key}
	}

	out := cmd.OutOrStdout()
	errOut := writer(cmd.ErrOrStderr())
	failed := 0
	shown := 0

	for _, key := range keys {
		e, ok, err := a.engine.Lookup(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			errOut.Report(vonerrors.NotFoundError(key, a.suggest(ctx, key)))
			failed++
			continue
		}

		if shown > 0 {
			_, _ = fmt.Fprintln(out)
		}
		if err := render.Show(out, e, render.Options{
			Brave:   opts.brave,
			Sourced: opts.sourced,
			Where:   opts.where,
		}); err != nil {
			if errors.Is(err, vonerrors.ErrSecretAccess) {
				errOut.Report(err)
				failed++
				continue
			}
			return err
		}
		shown++

		if opts.assets {
			files, err := render.Assets(a.cfg.AssetsPath(a.base), e.PUID)
			if err != nil {
				return err
			}
			for _, f := range files {
				_, _ = fmt.Fprintf(out, "Asset: %s\n", f)
			}
		}
	}

	slog.Info("show_complete",
		slog.Int("requested", len(keys)),
		slog.Int("shown", shown),
		slog.Int("failed", failed))

	if failed > 0 {
		return fmt.Errorf("%d of %d entries not shown: %w", failed, len(keys), errReported)
	}
	return nil
}
