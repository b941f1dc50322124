package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/von/internal/ui"
)

func newReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the index from the source files",
		Long: `Parse every source file, rebuild the index and replace the snapshot.

Malformed entries are skipped and counted. A duplicate key aborts the
rebuild and leaves the previous snapshot in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReindex(cmd.Context(), cmd)
		},
	}
	return cmd
}

func runReindex(ctx context.Context, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	progress := ui.NewProgress(out, ui.Interactive(out), colorOff(out))

	a, err := openArchive(progress.Update)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	start := time.Now()
	idx, err := a.holder.Reindex(ctx)
	if err != nil {
		return err
	}

	slog.Info("reindex_complete",
		slog.Int("entries", idx.Len()),
		slog.Int("skipped", idx.Skipped),
		slog.Uint64("generation", idx.Generation))

	progress.Complete(ui.CompletionStats{
		Entries:    idx.Len(),
		Files:      idx.Files,
		Skipped:    idx.Skipped,
		Generation: idx.Generation,
		Snapshot:   a.holder.Snapshot().Path(),
		Duration:   time.Since(start),
	})
	if idx.Skipped > 0 {
		writer(cmd.ErrOrStderr()).Warningf("%d malformed entries skipped; see 'von logs --level warn'", idx.Skipped)
	}
	return nil
}
