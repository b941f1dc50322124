package search

import (
	"context"
	"slices"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/Aman-CERP/von/internal/entry"
)

// secretMarker is appended to the display string of secret entries.
const secretMarker = "(secret)"

// Candidates lists every entry for external fuzzy selection, key ascending.
// Identical indexes produce identical listings.
func (e *Engine) Candidates(ctx context.Context) ([]Candidate, error) {
	idx, err := e.index(ctx)
	if err != nil {
		return nil, err
	}
	keys := idx.Keys()
	out := make([]Candidate, len(keys))
	for i, key := range keys {
		out[i] = Candidate{Display: DisplayString(idx.Entries[key]), Key: key}
	}
	return out, nil
}

// FilterCandidates ranks candidates by fuzzy match of pattern against the
// display string, best score first and key ascending on ties. An empty
// pattern returns every candidate.
func (e *Engine) FilterCandidates(ctx context.Context, pattern string) ([]Candidate, error) {
	all, err := e.Candidates(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(pattern) == "" {
		return all, nil
	}

	matches := fuzzy.FindFrom(pattern, candidateSource(all))
	slices.SortStableFunc(matches, func(a, b fuzzy.Match) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		return strings.Compare(all[a.Index].Key, all[b.Index].Key)
	})

	out := make([]Candidate, len(matches))
	for i, m := range matches {
		out[i] = all[m.Index]
	}
	return out, nil
}

// DisplayString renders key, source, desc and the secret marker separated
// by tabs.
func DisplayString(e *entry.Entry) string {
	parts := []string{e.Key, e.Source}
	if e.Desc != "" {
		parts = append(parts, e.Desc)
	}
	if e.Secret {
		parts = append(parts, secretMarker)
	}
	return strings.Join(parts, "\t")
}

// KeyFromDisplay recovers the key from a display string.
func KeyFromDisplay(display string) string {
	key, _, _ := strings.Cut(strings.TrimRight(display, "\r\n"), "\t")
	return strings.TrimSpace(key)
}

// candidateSource adapts candidates to fuzzy.Source.
type candidateSource []Candidate

func (s candidateSource) String(i int) string { return s[i].Display }

func (s candidateSource) Len() int { return len(s) }
