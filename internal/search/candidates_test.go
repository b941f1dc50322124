package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateIndexSource(t *testing.T) *staticSource {
	t.Helper()
	secret := ent("S1", "Secret 2020/4", "x")
	secret.Secret = true
	described := ent("USA19P1", "USAMO 2019/1", "x")
	described.Desc = "functional equation"
	return &staticSource{idx: buildIndex(t, 1,
		ent("USA19P2", "USAMO 2019/2", "x"),
		described,
		secret,
		ent("ISL17G8", "ISL 2017 G8", "x"),
	)}
}

func TestCandidates_StableKeyOrder(t *testing.T) {
	e := New(candidateIndexSource(t), DefaultConfig())
	ctx := context.Background()

	first, err := e.Candidates(ctx)
	require.NoError(t, err)
	second, err := e.Candidates(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []Candidate{
		{Display: "ISL17G8\tISL 2017 G8", Key: "ISL17G8"},
		{Display: "S1\tSecret 2020/4\t(secret)", Key: "S1"},
		{Display: "USA19P1\tUSAMO 2019/1\tfunctional equation", Key: "USA19P1"},
		{Display: "USA19P2\tUSAMO 2019/2", Key: "USA19P2"},
	}, first)
}

func TestFilterCandidates(t *testing.T) {
	e := New(candidateIndexSource(t), DefaultConfig())
	ctx := context.Background()

	got, err := e.FilterCandidates(ctx, "usamo")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.ElementsMatch(t, []string{"USA19P1", "USA19P2"}, []string{got[0].Key, got[1].Key})

	none, err := e.FilterCandidates(ctx, "qqqq")
	require.NoError(t, err)
	assert.Empty(t, none)

	all, err := e.FilterCandidates(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestKeyFromDisplay(t *testing.T) {
	assert.Equal(t, "USA19P1", KeyFromDisplay("USA19P1\tUSAMO 2019/1\n"))
	assert.Equal(t, "S1", KeyFromDisplay("S1"))
	assert.Equal(t, "", KeyFromDisplay(""))
}
