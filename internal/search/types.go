// Package search answers queries against the current index: exact lookup,
// tiered substring search, BM25 full-text search, and candidate listings
// for fuzzy selection.
package search

import (
	"context"
	"fmt"

	"github.com/Aman-CERP/von/internal/entry"
	vonerrors "github.com/Aman-CERP/von/internal/errors"
	"github.com/Aman-CERP/von/internal/index"
)

// Source supplies the index queries run against. store.Holder implements it.
type Source interface {
	Get(ctx context.Context) (*index.Index, error)
}

// Field names a searchable part of an entry.
type Field string

const (
	// FieldKey matches when the key contains the query.
	FieldKey Field = "key"
	// FieldSource matches when the source citation contains the query.
	FieldSource Field = "source"
	// FieldBody matches when the demacro'd statement or second body contains the query.
	FieldBody Field = "body"
	// FieldExactKey marks results whose key equals the query. It always ranks first.
	FieldExactKey Field = "exact_key"
)

// DefaultFieldOrder is the tier order after an exact key match.
var DefaultFieldOrder = []Field{FieldKey, FieldSource, FieldBody}

// ParseFields validates field names for Config.FieldOrder.
func ParseFields(names []string) ([]Field, error) {
	fields := make([]Field, 0, len(names))
	seen := make(map[Field]bool)
	for _, n := range names {
		f := Field(n)
		switch f {
		case FieldKey, FieldSource, FieldBody:
		default:
			return nil, vonerrors.ConfigError(
				fmt.Sprintf("unknown search field %q (valid: key, source, body)", n), nil)
		}
		if seen[f] {
			return nil, vonerrors.ConfigError(fmt.Sprintf("search field %q listed twice", n), nil)
		}
		seen[f] = true
		fields = append(fields, f)
	}
	return fields, nil
}

// Config configures the engine.
type Config struct {
	// FieldOrder is the tier order after an exact key match.
	FieldOrder []Field

	// CacheSize bounds the normalized haystack cache (entries).
	CacheSize int

	// SuggestThreshold is the minimum Jaro-Winkler similarity for a
	// did-you-mean suggestion, in [0, 1].
	SuggestThreshold float32
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		FieldOrder:       DefaultFieldOrder,
		CacheSize:        DefaultHaystackCacheSize,
		SuggestThreshold: DefaultSuggestThreshold,
	}
}

// Options controls one Search call.
type Options struct {
	// Limit truncates the result list (0 = no limit).
	Limit int

	// Tags keeps only entries carrying every listed tag.
	Tags []string

	// IncludeSecret lets secret entries match on their bodies.
	IncludeSecret bool
}

// Result is one search hit.
type Result struct {
	Entry *entry.Entry `json:"entry"`

	// Field is the field the entry matched on.
	Field Field `json:"field"`

	// Tier is the rank group: 0 for an exact key, then 1.. in field order.
	Tier int `json:"tier"`

	// Score is the BM25 score for full-text results; zero otherwise.
	Score float64 `json:"score,omitempty"`

	// MatchedTerms lists the analyzed terms a full-text hit matched.
	MatchedTerms []string `json:"matched_terms,omitempty"`
}

// Candidate is one line of a fuzzy-selection listing.
type Candidate struct {
	Display string `json:"display"`
	Key     string `json:"key"`
}
