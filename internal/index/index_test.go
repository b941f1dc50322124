package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/von/internal/entry"
	vonerrors "github.com/Aman-CERP/von/internal/errors"
)

func mkEntry(key, puid string) *entry.Entry {
	return &entry.Entry{Key: key, Source: key, PUID: puid, Bodies: []string{"body"}, Path: "a.tex", Line: 1}
}

func TestIndex_Add_MaintainsPUIDMapping(t *testing.T) {
	x := New("/root", time.Time{})

	require.NoError(t, x.Add(mkEntry("B", "P1")))
	require.NoError(t, x.Add(mkEntry("A", "P1")))
	require.NoError(t, x.Add(mkEntry("C", "P2")))

	assert.Equal(t, []string{"A", "B"}, x.KeysForPUID("P1"))
	assert.Equal(t, []string{"C"}, x.KeysForPUID("P2"))
	assert.Equal(t, []string{"A", "B", "C"}, x.Keys())
	assert.Equal(t, 3, x.Len())
	assert.Equal(t, SnapshotFormat, x.Format)
}

func TestIndex_Add_DuplicateKeyLeavesIndexUnchanged(t *testing.T) {
	x := New("", time.Time{})
	first := mkEntry("A", "P1")
	require.NoError(t, x.Add(first))

	dup := mkEntry("A", "P2")
	dup.Path, dup.Line = "b.tex", 9
	err := x.Add(dup)

	require.Error(t, err)
	assert.Equal(t, vonerrors.ErrCodeDuplicateKey, vonerrors.GetCode(err))
	assert.Equal(t, "a.tex:1", vonerrors.DetailOf(err, "first"))
	assert.Equal(t, "b.tex:9", vonerrors.DetailOf(err, "second"))
	got, _ := x.Get("A")
	assert.Same(t, first, got)
	assert.Empty(t, x.KeysForPUID("P2"))
}

func TestIndex_RebuildPUIDs(t *testing.T) {
	x := New("", time.Time{})
	require.NoError(t, x.Add(mkEntry("B", "P1")))
	require.NoError(t, x.Add(mkEntry("A", "P1")))
	want := x.ByPUID

	x.ByPUID = nil
	x.RebuildPUIDs()

	assert.Equal(t, want, x.ByPUID)
}

func TestIndex_WithGeneration_SharesEntries(t *testing.T) {
	x := New("", time.Time{})
	require.NoError(t, x.Add(mkEntry("A", "P1")))

	y := x.WithGeneration(7)

	assert.Equal(t, uint64(0), x.Generation)
	assert.Equal(t, uint64(7), y.Generation)
	a1, _ := x.Get("A")
	a2, _ := y.Get("A")
	assert.Same(t, a1, a2)
}

func TestIndex_Equal(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	a := New("r", at)
	b := New("r", at)
	require.NoError(t, a.Add(mkEntry("A", "P")))
	require.NoError(t, b.Add(mkEntry("A", "P")))

	assert.True(t, a.Equal(b))

	b.Entries["A"].Bodies = []string{"other"}
	assert.False(t, a.Equal(b))
	assert.False(t, a.Equal(nil))
	assert.True(t, (*Index)(nil).Equal(nil))
}

func TestIndex_Secrets(t *testing.T) {
	x := New("", time.Time{})
	s := mkEntry("S", "P")
	s.Secret = true
	require.NoError(t, x.Add(s))
	require.NoError(t, x.Add(mkEntry("A", "P")))

	assert.Equal(t, 1, x.Secrets())
}
