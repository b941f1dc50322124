package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/von/internal/search"
	"github.com/Aman-CERP/von/internal/ui"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit    int
	tags     []string
	fulltext bool
	brave    bool
	json     bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query...>",
		Short: "Search entries by key, source and body",
		Long: `Search entries for a case-insensitive substring. Results are grouped
by where they matched: an exact key first, then the configured field
order (key, source, body by default).

With --fulltext the query is analyzed into terms and ranked by BM25
instead. Secret entries match on their bodies only with --brave.

Examples:
  von search euler
  von search "functional equation" --tag algebra
  von search incircle tangent --fulltext --limit 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", -1, "Maximum number of results (default from config)")
	cmd.Flags().StringSliceVarP(&opts.tags, "tag", "t", nil, "Only entries with this tag (repeatable)")
	cmd.Flags().BoolVar(&opts.fulltext, "fulltext", false, "Rank by BM25 over analyzed terms")
	cmd.Flags().BoolVar(&opts.brave, "brave", false, "Let secret entries match on their bodies")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output as JSON")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	a, err := openArchive(nil)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	limit := opts.limit
	if limit < 0 {
		limit = a.cfg.Search.Limit
	}

	var results []search.Result
	if opts.fulltext {
		results, err = a.engine.FullText(ctx, query, limit)
		results = filterTags(results, opts.tags)
	} else {
		results, err = a.engine.Search(ctx, query, search.Options{
			Limit:         limit,
			Tags:          opts.tags,
			IncludeSecret: opts.brave,
		})
	}
	if err != nil {
		return err
	}

	slog.Info("search_complete",
		slog.String("query", query),
		slog.Bool("fulltext", opts.fulltext),
		slog.Int("results", len(results)))

	out := cmd.OutOrStdout()
	renderer := ui.NewResultsRenderer(out, colorOff(out))
	if opts.json {
		return renderer.RenderJSON(results)
	}
	if len(results) == 0 {
		writer(cmd.ErrOrStderr()).Warningf("No entries match %q", query)
		return nil
	}
	return renderer.Render(results, opts.fulltext)
}

// filterTags keeps full-text results carrying every tag.
func filterTags(results []search.Result, tags []string) []search.Result {
	if len(tags) == 0 {
		return results
	}
	kept := results[:0]
	for _, r := range results {
		ok := true
		for _, t := range tags {
			if !r.Entry.HasTag(t) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, r)
		}
	}
	return kept
}
