package search

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"github.com/Aman-CERP/von/internal/entry"
	vonerrors "github.com/Aman-CERP/von/internal/errors"
	"github.com/Aman-CERP/von/internal/index"
)

// Engine runs read-only queries over the index its Source returns. It never
// mutates the index or the source.
type Engine struct {
	src       Source
	config    Config
	haystacks *haystackCache

	mu       sync.Mutex
	fulltext *fullTextIndex
}

// New creates an Engine reading from src.
func New(src Source, config Config) *Engine {
	if len(config.FieldOrder) == 0 {
		config.FieldOrder = DefaultFieldOrder
	}
	if config.SuggestThreshold <= 0 {
		config.SuggestThreshold = DefaultSuggestThreshold
	}
	return &Engine{
		src:       src,
		config:    config,
		haystacks: newHaystackCache(config.CacheSize),
	}
}

// Lookup returns the entry with exactly key. A missing key is ok=false, not
// an error; errors come only from loading the index.
func (e *Engine) Lookup(ctx context.Context, key string) (*entry.Entry, bool, error) {
	idx, err := e.src.Get(ctx)
	if err != nil {
		return nil, false, err
	}
	ent, ok := idx.Get(key)
	return ent, ok, nil
}

// Search returns entries containing query, case-insensitively, ordered by
// tier and then key. Tier 0 is an exact key match; the remaining tiers follow
// Config.FieldOrder. Each entry appears once, at its best tier.
func (e *Engine) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, vonerrors.New(vonerrors.ErrCodeQueryEmpty, "search query is empty", nil).
			WithSuggestion("Pass at least one search term")
	}

	start := time.Now()
	idx, err := e.src.Get(ctx)
	if err != nil {
		return nil, err
	}

	needle := fold(query)
	filters := buildFilters(opts)

	var results []Result
	for _, key := range idx.Keys() {
		ent := idx.Entries[key]
		if !matchesAllFilters(ent, filters) {
			continue
		}
		if r, ok := e.rank(idx.Generation, ent, needle, opts.IncludeSecret); ok {
			results = append(results, r)
		}
	}

	// Keys are already ascending, so a stable sort by tier keeps key order
	// within a tier.
	slices.SortStableFunc(results, func(a, b Result) int {
		return a.Tier - b.Tier
	})
	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	slog.Debug("search_completed",
		slog.String("query", query),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))
	return results, nil
}

// rank finds the best tier at which ent matches needle.
func (e *Engine) rank(gen uint64, ent *entry.Entry, needle string, includeSecret bool) (Result, bool) {
	if fold(ent.Key) == needle {
		return Result{Entry: ent, Field: FieldExactKey, Tier: 0}, true
	}
	for i, f := range e.config.FieldOrder {
		var hay string
		switch f {
		case FieldKey:
			hay = fold(ent.Key)
		case FieldSource:
			hay = fold(ent.Source)
		case FieldBody:
			if ent.Secret && !includeSecret {
				continue
			}
			hay = e.haystacks.body(gen, ent)
		}
		if strings.Contains(hay, needle) {
			return Result{Entry: ent, Field: f, Tier: i + 1}, true
		}
	}
	return Result{}, false
}

// index returns the current index; used by the candidate and full-text paths.
func (e *Engine) index(ctx context.Context) (*index.Index, error) {
	return e.src.Get(ctx)
}

// fold applies Unicode full case folding.
func fold(s string) string {
	return cases.Fold().String(s)
}
