package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/von/internal/store"
	"github.com/Aman-CERP/von/internal/ui"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "status",
		Aliases: []string{"ss"},
		Short:   "Show index health and status",
		Long: `Display information about the archive index including:
  - Number of entries, secret entries and PUIDs
  - Number of source files and skipped entries
  - Build time and generation
  - Snapshot path, backend and size
  - Cache state

Status never builds the index; without a snapshot it says so.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	a, err := openArchive(nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	info, err := collectStatus(ctx, a)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	renderer := ui.NewStatusRenderer(out, colorOff(out))
	if jsonOutput {
		return renderer.RenderJSON(info)
	}
	return renderer.Render(info)
}

func collectStatus(ctx context.Context, a *archive) (ui.StatusInfo, error) {
	info := ui.StatusInfo{
		Base:       a.base,
		SourceRoot: a.holder.Root(),
	}

	if a.holder.Snapshot().Exists() {
		idx, err := a.holder.Get(ctx)
		if err != nil {
			return info, err
		}
		info.Entries = idx.Len()
		info.Secrets = idx.Secrets()
		info.PUIDs = len(idx.ByPUID)
		info.Files = idx.Files
		info.Skipped = idx.Skipped
		info.BuiltAt = idx.BuiltAt
	}

	st, err := a.holder.Status(ctx)
	if err != nil {
		return info, err
	}
	info.Backend = string(st.Backend)
	info.SnapshotPath = st.Path
	info.SnapshotExists = st.Exists
	info.SnapshotSize = st.Size
	info.Generation = st.Generation
	info.Cache = cacheState(st)
	return info, nil
}

// cacheState is "warm" when the cache holds the persisted generation,
// "stale" when it holds an older one and "cold" when empty.
func cacheState(st store.Status) string {
	switch {
	case !st.Cached:
		return "cold"
	case st.Exists && st.CachedGeneration != st.Generation:
		return "stale"
	default:
		return "warm"
	}
}
