package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/von/internal/entry"
	vonerrors "github.com/Aman-CERP/von/internal/errors"
	"github.com/Aman-CERP/von/internal/index"
)

// staticSource serves a fixed index.
type staticSource struct {
	idx   *index.Index
	err   error
	calls int
}

func (s *staticSource) Get(context.Context) (*index.Index, error) {
	s.calls++
	return s.idx, s.err
}

func buildIndex(t *testing.T, gen uint64, entries ...*entry.Entry) *index.Index {
	t.Helper()
	idx := index.New("/src", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	idx.Generation = gen
	for _, e := range entries {
		if e.PUID == "" {
			e.PUID = "P" + e.Key
		}
		require.NoError(t, idx.Add(e))
	}
	return idx
}

func ent(key, source string, bodies ...string) *entry.Entry {
	return &entry.Entry{Key: key, Source: source, Bodies: bodies}
}

func keysOf(results []Result) []string {
	keys := make([]string, len(results))
	for i, r := range results {
		keys[i] = r.Entry.Key
	}
	return keys
}

func TestSearch_TierOrdering(t *testing.T) {
	// Given: a source match, a partial source match and a body match
	src := &staticSource{idx: buildIndex(t, 1,
		ent("A3", "Some olympiad", "Use Euler's formula."),
		ent("A2", "An euler problem", "Count."),
		ent("A1", "Euler", "Sum."),
		ent("B1", "Unrelated", "Nothing."),
	)}
	e := New(src, DefaultConfig())

	// When: searching case-insensitively
	results, err := e.Search(context.Background(), "euler", Options{})

	// Then: source tier before body tier, key ascending within a tier
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2", "A3"}, keysOf(results))
	assert.Equal(t, FieldSource, results[0].Field)
	assert.Equal(t, FieldBody, results[2].Field)
}

func TestSearch_ExactKeyFirst(t *testing.T) {
	src := &staticSource{idx: buildIndex(t, 1,
		ent("B", "euler", "x"),
		ent("EULERS", "x", "x"),
		ent("EULER", "x", "x"),
	)}
	e := New(src, DefaultConfig())

	results, err := e.Search(context.Background(), "Euler", Options{})

	require.NoError(t, err)
	assert.Equal(t, []string{"EULER", "EULERS", "B"}, keysOf(results))
	assert.Equal(t, []int{0, 1, 2}, []int{results[0].Tier, results[1].Tier, results[2].Tier})
	assert.Equal(t, FieldExactKey, results[0].Field)
}

func TestSearch_ConfiguredFieldOrder(t *testing.T) {
	src := &staticSource{idx: buildIndex(t, 1,
		ent("A", "euler", "x"),
		ent("B", "x", "euler"),
	)}
	cfg := DefaultConfig()
	cfg.FieldOrder = []Field{FieldBody, FieldSource, FieldKey}
	e := New(src, cfg)

	results, err := e.Search(context.Background(), "euler", Options{})

	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, keysOf(results))
}

func TestSearch_SecretBodiesNeedOptIn(t *testing.T) {
	secret := ent("S1", "Secret 2020/4", "The zeta function.")
	secret.Secret = true
	src := &staticSource{idx: buildIndex(t, 1, secret, ent("A", "Open", "nothing"))}
	e := New(src, DefaultConfig())
	ctx := context.Background()

	hidden, err := e.Search(ctx, "zeta", Options{})
	require.NoError(t, err)
	assert.Empty(t, hidden)

	shown, err := e.Search(ctx, "zeta", Options{IncludeSecret: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"S1"}, keysOf(shown))

	// Source matches are not gated.
	bySource, err := e.Search(ctx, "secret", Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"S1"}, keysOf(bySource))
}

func TestSearch_MatchesDemacroedBody(t *testing.T) {
	src := &staticSource{idx: buildIndex(t, 1,
		ent("A", "x", "\\newcommand{\\ints}{\\mathbb{Z}}\nSolve over $\\ints$."),
	)}
	e := New(src, DefaultConfig())

	results, err := e.Search(context.Background(), `\mathbb{z}`, Options{})

	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, keysOf(results))

	none, err := e.Search(context.Background(), "newcommand", Options{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSearch_UnicodeCaseFolding(t *testing.T) {
	src := &staticSource{idx: buildIndex(t, 1, ent("A", "Straße Olympiad", "x"))}
	e := New(src, DefaultConfig())

	results, err := e.Search(context.Background(), "STRASSE", Options{})

	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, keysOf(results))
}

func TestSearch_SecondBodyMatches(t *testing.T) {
	src := &staticSource{idx: buildIndex(t, 1, ent("A", "x", "statement", "answer is 42"))}
	e := New(src, DefaultConfig())

	results, err := e.Search(context.Background(), "42", Options{})

	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, keysOf(results))
}

func TestSearch_LimitAndTags(t *testing.T) {
	a := ent("A", "geo one", "x")
	a.Tags = []string{"geo", "hard"}
	b := ent("B", "geo two", "x")
	b.Tags = []string{"geo"}
	c := ent("C", "geo three", "x")
	src := &staticSource{idx: buildIndex(t, 1, a, b, c)}
	e := New(src, DefaultConfig())
	ctx := context.Background()

	limited, err := e.Search(ctx, "geo", Options{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, keysOf(limited))

	tagged, err := e.Search(ctx, "geo", Options{Tags: []string{"GEO", "hard"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, keysOf(tagged))
}

func TestSearch_EmptyQuery(t *testing.T) {
	src := &staticSource{idx: buildIndex(t, 1)}
	e := New(src, DefaultConfig())

	_, err := e.Search(context.Background(), "   ", Options{})

	assert.True(t, errors.Is(err, vonerrors.ErrQueryEmpty))
	assert.Zero(t, src.calls, "an empty query must not load the index")
}

func TestSearch_SourceError(t *testing.T) {
	boom := vonerrors.PersistenceError("/x/index.json", errors.New("bad"))
	e := New(&staticSource{err: boom}, DefaultConfig())

	_, err := e.Search(context.Background(), "x", Options{})

	assert.True(t, errors.Is(err, vonerrors.ErrCorruptSnapshot))
}

func TestSearch_UsesHaystackCache(t *testing.T) {
	src := &staticSource{idx: buildIndex(t, 1, ent("A", "x", "body one"), ent("B", "y", "body two"))}
	e := New(src, DefaultConfig())

	_, err := e.Search(context.Background(), "zzz", Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, e.haystacks.Len())

	// A new generation is keyed separately.
	src.idx = src.idx.WithGeneration(2)
	_, err = e.Search(context.Background(), "zzz", Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, e.haystacks.Len())
}

func TestLookup(t *testing.T) {
	secret := ent("S1", "Secret", "hidden")
	secret.Secret = true
	src := &staticSource{idx: buildIndex(t, 1, secret)}
	e := New(src, DefaultConfig())
	ctx := context.Background()

	got, ok, err := e.Lookup(ctx, "S1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Secret, "lookup itself is not gated")

	got, ok, err = e.Lookup(ctx, "NOPE")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestSuggest(t *testing.T) {
	src := &staticSource{idx: buildIndex(t, 1,
		ent("USA19P1", "x", "x"),
		ent("USA19P2", "x", "x"),
		ent("ISL17G8", "x", "x"),
	)}
	e := New(src, DefaultConfig())

	got, err := e.Suggest(context.Background(), "usa19p3", 2)

	require.NoError(t, err)
	assert.Equal(t, []string{"USA19P1", "USA19P2"}, got)

	none, err := e.Suggest(context.Background(), "zzzzzz", 3)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestParseFields(t *testing.T) {
	fields, err := ParseFields([]string{"body", "key", "source"})
	require.NoError(t, err)
	assert.Equal(t, []Field{FieldBody, FieldKey, FieldSource}, fields)

	_, err = ParseFields([]string{"title"})
	assert.Error(t, err)
	_, err = ParseFields([]string{"key", "key"})
	assert.Error(t, err)
}
