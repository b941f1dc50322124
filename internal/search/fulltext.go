package search

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/porter"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search"
	"github.com/blevesearch/bleve/v2/search/query"

	vonerrors "github.com/Aman-CERP/von/internal/errors"
	"github.com/Aman-CERP/von/internal/index"
)

const (
	// TexTokenizerName is the name of the TeX-aware tokenizer.
	TexTokenizerName = "tex_tokenizer"

	// TexAnalyzerName is the name of the analyzer used for every field.
	TexAnalyzerName = "tex_analyzer"

	// DefaultFullTextLimit is the result count when none is given.
	DefaultFullTextLimit = 20
)

// Field boosts for full-text queries.
const (
	keyBoost    = 3.0
	sourceBoost = 2.0
	bodyBoost   = 1.0
)

func init() {
	_ = registry.RegisterTokenizer(TexTokenizerName, texTokenizerConstructor)
}

// fullTextDocument is what gets indexed per entry.
type fullTextDocument struct {
	Key    string `json:"key"`
	Source string `json:"source"`
	Body   string `json:"body"`
}

// fullTextIndex is an in-memory bleve index of one index generation.
type fullTextIndex struct {
	gen   uint64
	root  string
	index bleve.Index
}

// FullText runs a BM25-ranked query over key, source and demacro'd bodies.
// Secret bodies are not indexed. Results are ordered by score, then key.
func (e *Engine) FullText(ctx context.Context, queryStr string, limit int) ([]Result, error) {
	if strings.TrimSpace(queryStr) == "" {
		return nil, vonerrors.New(vonerrors.ErrCodeQueryEmpty, "search query is empty", nil)
	}
	if limit <= 0 {
		limit = DefaultFullTextLimit
	}

	idx, err := e.index(ctx)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ft, err := e.fullTextFor(idx)
	if err != nil {
		return nil, err
	}

	req := bleve.NewSearchRequest(buildFullTextQuery(queryStr))
	req.Size = limit
	req.IncludeLocations = true

	res, err := ft.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, vonerrors.New(vonerrors.ErrCodeSearchFailed,
			fmt.Sprintf("full-text search failed: %v", err), err)
	}

	results := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ent, ok := idx.Get(hit.ID)
		if !ok {
			continue
		}
		results = append(results, Result{
			Entry:        ent,
			Field:        bestField(hit),
			Score:        hit.Score,
			MatchedTerms: extractMatchedTerms(hit),
		})
	}
	slices.SortStableFunc(results, func(a, b Result) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return strings.Compare(a.Entry.Key, b.Entry.Key)
	})
	return results, nil
}

// Close releases the full-text index.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fulltext == nil {
		return nil
	}
	err := e.fulltext.index.Close()
	e.fulltext = nil
	return err
}

// fullTextFor returns the bleve index for idx, building it on first use or
// when the generation changed. Caller holds e.mu.
func (e *Engine) fullTextFor(idx *index.Index) (*fullTextIndex, error) {
	if e.fulltext != nil && e.fulltext.gen == idx.Generation && e.fulltext.root == idx.Root {
		return e.fulltext, nil
	}

	start := time.Now()
	m, err := createIndexMapping()
	if err != nil {
		return nil, vonerrors.InternalError("failed to create index mapping", err)
	}
	bi, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, vonerrors.New(vonerrors.ErrCodeIndexFailed, "failed to create full-text index", err)
	}

	batch := bi.NewBatch()
	for _, key := range idx.Keys() {
		ent := idx.Entries[key]
		doc := fullTextDocument{Key: ent.Key, Source: ent.Source}
		if !ent.Secret {
			doc.Body = bodyText(ent)
		}
		if err := batch.Index(ent.Key, doc); err != nil {
			_ = bi.Close()
			return nil, vonerrors.New(vonerrors.ErrCodeIndexFailed,
				fmt.Sprintf("failed to index entry %s", ent.Key), err)
		}
	}
	if err := bi.Batch(batch); err != nil {
		_ = bi.Close()
		return nil, vonerrors.New(vonerrors.ErrCodeIndexFailed, "failed to execute batch", err)
	}

	if e.fulltext != nil {
		_ = e.fulltext.index.Close()
	}
	e.fulltext = &fullTextIndex{gen: idx.Generation, root: idx.Root, index: bi}

	slog.Debug("fulltext_index_built",
		slog.Uint64("generation", idx.Generation),
		slog.Int("entries", idx.Len()),
		slog.Duration("duration", time.Since(start)))
	return e.fulltext, nil
}

// createIndexMapping creates the bleve mapping with the TeX analyzer.
func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(TexAnalyzerName, map[string]interface{}{
		"type":      custom.Name,
		"tokenizer": TexTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			porter.Name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add custom analyzer: %w", err)
	}

	indexMapping.DefaultAnalyzer = TexAnalyzerName
	return indexMapping, nil
}

// buildFullTextQuery matches the query against every field, boosted by
// field importance.
func buildFullTextQuery(queryStr string) query.Query {
	fields := []struct {
		name  string
		boost float64
	}{
		{"key", keyBoost},
		{"source", sourceBoost},
		{"body", bodyBoost},
	}
	queries := make([]query.Query, 0, len(fields))
	for _, f := range fields {
		mq := bleve.NewMatchQuery(queryStr)
		mq.SetField(f.name)
		mq.SetBoost(f.boost)
		queries = append(queries, mq)
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// bestField names the highest-priority field with a match location.
func bestField(hit *search.DocumentMatch) Field {
	for _, f := range []Field{FieldKey, FieldSource, FieldBody} {
		if len(hit.Locations[string(f)]) > 0 {
			return f
		}
	}
	return FieldBody
}

// extractMatchedTerms extracts matched terms from search hit.
func extractMatchedTerms(hit *search.DocumentMatch) []string {
	terms := make(map[string]struct{})
	for _, locations := range hit.Locations {
		for term := range locations {
			terms[term] = struct{}{}
		}
	}

	result := make([]string, 0, len(terms))
	for term := range terms {
		result = append(result, term)
	}
	slices.Sort(result)
	return result
}

// texTokenizerConstructor creates a new TeX tokenizer for bleve.
func texTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return &texTokenizer{}, nil
}

// texTokenizer splits text into letter/digit runs and drops TeX control
// words such as \frac, so markup does not pollute term statistics.
type texTokenizer struct{}

// Tokenize implements analysis.Tokenizer.
func (t *texTokenizer) Tokenize(input []byte) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input)/5)
	pos := 1

	for i := 0; i < len(input); {
		r, size := utf8.DecodeRune(input[i:])
		if r == '\\' {
			// Skip the control word or control symbol.
			i += size
			for i < len(input) {
				r, size = utf8.DecodeRune(input[i:])
				if !isASCIILetter(r) {
					break
				}
				i += size
			}
			continue
		}
		if !isWordRune(r) {
			i += size
			continue
		}

		start := i
		for i < len(input) {
			r, size = utf8.DecodeRune(input[i:])
			if !isWordRune(r) {
				break
			}
			i += size
		}
		result = append(result, &analysis.Token{
			Term:     input[start:i],
			Start:    start,
			End:      i,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
	}
	return result
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
