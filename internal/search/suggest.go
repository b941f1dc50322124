package search

import (
	"context"
	"slices"
	"strings"

	"github.com/hbollon/go-edlib"
)

// DefaultSuggestThreshold is the minimum similarity for a suggestion.
const DefaultSuggestThreshold = 0.8

// Suggest returns up to n keys similar to key, most similar first, for
// did-you-mean hints. Keys equal to key are excluded.
func (e *Engine) Suggest(ctx context.Context, key string, n int) ([]string, error) {
	if n <= 0 || key == "" {
		return nil, nil
	}
	idx, err := e.index(ctx)
	if err != nil {
		return nil, err
	}

	type scored struct {
		key   string
		score float32
	}
	var hits []scored
	needle := strings.ToUpper(key)
	for _, k := range idx.Keys() {
		if k == key {
			continue
		}
		sim, err := edlib.StringsSimilarity(needle, strings.ToUpper(k), edlib.JaroWinkler)
		if err != nil {
			continue
		}
		if sim >= e.config.SuggestThreshold {
			hits = append(hits, scored{key: k, score: sim})
		}
	}

	slices.SortStableFunc(hits, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return strings.Compare(a.key, b.key)
	})
	if len(hits) > n {
		hits = hits[:n]
	}

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.key
	}
	return out, nil
}
