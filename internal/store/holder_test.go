package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/von/internal/entry"
	vonerrors "github.com/Aman-CERP/von/internal/errors"
	"github.com/Aman-CERP/von/internal/index"
)

// countingBuilder returns a fresh one-entry index per call and counts calls.
type countingBuilder struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (b *countingBuilder) Build(_ context.Context, root string) (*index.Index, error) {
	n := b.calls.Add(1)
	if b.delay > 0 {
		time.Sleep(b.delay)
	}
	if b.err != nil {
		return nil, b.err
	}
	idx := index.New(root, time.Date(2024, 1, 1, 0, 0, int(n), 0, time.UTC))
	if err := idx.Add(&entry.Entry{Key: "K", Source: "Src", PUID: "P", Bodies: []string{"body"}}); err != nil {
		return nil, err
	}
	return idx, nil
}

func newTestHolder(t *testing.T, b Builder) (*Holder, Snapshot) {
	t.Helper()
	dir := t.TempDir()
	snap := NewJSONSnapshot(filepath.Join(dir, "index.json"))
	return NewHolder("/src", snap, b, NewFileLock(dir)), snap
}

func TestHolder_Get_BuildsOnceAndCaches(t *testing.T) {
	// Given: no snapshot on disk
	b := &countingBuilder{}
	h, snap := newTestHolder(t, b)
	ctx := context.Background()

	// When: getting twice
	first, err := h.Get(ctx)
	require.NoError(t, err)
	second, err := h.Get(ctx)
	require.NoError(t, err)

	// Then: one build, persisted as generation 1, same cached value
	assert.Equal(t, int32(1), b.calls.Load())
	assert.Same(t, first, second)
	assert.Equal(t, uint64(1), first.Generation)
	gen, ok, err := snap.Generation(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), gen)
}

func TestHolder_Clear_ReloadsFromSnapshot(t *testing.T) {
	b := &countingBuilder{}
	h, _ := newTestHolder(t, b)
	ctx := context.Background()
	first, err := h.Get(ctx)
	require.NoError(t, err)

	h.Clear()
	assert.Nil(t, h.Cached())

	again, err := h.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), b.calls.Load(), "clear must not trigger a rebuild")
	assert.NotSame(t, first, again)
	assert.True(t, first.Equal(again))
}

func TestHolder_Reindex_BumpsGeneration(t *testing.T) {
	b := &countingBuilder{}
	h, _ := newTestHolder(t, b)
	ctx := context.Background()
	_, err := h.Get(ctx)
	require.NoError(t, err)

	idx, err := h.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), idx.Generation)
	assert.Same(t, idx, h.Cached())

	got, err := h.Get(ctx)
	require.NoError(t, err)
	assert.Same(t, idx, got)
	assert.Equal(t, int32(2), b.calls.Load())
}

func TestHolder_Reindex_FailureLeavesState(t *testing.T) {
	b := &countingBuilder{}
	h, snap := newTestHolder(t, b)
	ctx := context.Background()
	before, err := h.Get(ctx)
	require.NoError(t, err)
	raw, err := os.ReadFile(snap.Path())
	require.NoError(t, err)

	// When: the next build fails
	b.err = vonerrors.DuplicateKeyError("K", "a.tex:1", "b.tex:4")
	_, err = h.Reindex(ctx)

	// Then: snapshot bytes and cache are unchanged
	require.Error(t, err)
	assert.True(t, errors.Is(err, vonerrors.ErrDuplicateKey))
	after, err := os.ReadFile(snap.Path())
	require.NoError(t, err)
	assert.Equal(t, raw, after)
	assert.Same(t, before, h.Cached())
}

func TestHolder_Get_NoticesNewerSnapshot(t *testing.T) {
	// Given: two holders sharing one snapshot, as two processes would
	dir := t.TempDir()
	snap := NewJSONSnapshot(filepath.Join(dir, "index.json"))
	b := &countingBuilder{}
	h1 := NewHolder("/src", snap, b, NewFileLock(dir))
	h2 := NewHolder("/src", snap, b, NewFileLock(dir))
	ctx := context.Background()

	old, err := h1.Get(ctx)
	require.NoError(t, err)

	// When: the other one reindexes
	_, err = h2.Reindex(ctx)
	require.NoError(t, err)

	// Then: the first sees the new generation instead of its stale cache
	got, err := h1.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), old.Generation)
	assert.Equal(t, uint64(2), got.Generation)
}

func TestHolder_Get_CorruptSnapshotIsAnError(t *testing.T) {
	b := &countingBuilder{}
	h, snap := newTestHolder(t, b)
	require.NoError(t, os.WriteFile(snap.Path(), []byte("not a snapshot\n"), 0o644))

	idx, err := h.Get(context.Background())

	assert.Nil(t, idx)
	assert.True(t, errors.Is(err, vonerrors.ErrCorruptSnapshot))
	assert.Zero(t, b.calls.Load(), "a corrupt snapshot must not fall back to a build")
	assert.Nil(t, h.Cached())
}

func TestHolder_Reindex_ReplacesCorruptSnapshot(t *testing.T) {
	b := &countingBuilder{}
	h, snap := newTestHolder(t, b)
	require.NoError(t, os.WriteFile(snap.Path(), []byte("not a snapshot\n"), 0o644))

	idx, err := h.Reindex(context.Background())

	require.NoError(t, err)
	assert.Equal(t, uint64(1), idx.Generation)
	loaded, err := snap.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, idx.Equal(loaded))
}

func TestHolder_Get_ConcurrentMissesBuildOnce(t *testing.T) {
	b := &countingBuilder{delay: 50 * time.Millisecond}
	h, _ := newTestHolder(t, b)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*index.Index, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			idx, err := h.Get(ctx)
			assert.NoError(t, err)
			results[i] = idx
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), b.calls.Load())
	for _, idx := range results {
		require.NotNil(t, idx)
		assert.Equal(t, uint64(1), idx.Generation)
	}
}

// overlapBuilder records the most builds ever running at once.
type overlapBuilder struct {
	countingBuilder
	running atomic.Int32
	peak    atomic.Int32
}

func (b *overlapBuilder) Build(ctx context.Context, root string) (*index.Index, error) {
	n := b.running.Add(1)
	defer b.running.Add(-1)
	for {
		p := b.peak.Load()
		if n <= p || b.peak.CompareAndSwap(p, n) {
			break
		}
	}
	return b.countingBuilder.Build(ctx, root)
}

func TestHolder_GetAndReindex_NeverBuildConcurrently(t *testing.T) {
	// Given: a holder with no snapshot, so Get has to build too
	b := &overlapBuilder{countingBuilder: countingBuilder{delay: 20 * time.Millisecond}}
	h, snap := newTestHolder(t, b)
	ctx := context.Background()

	// When: Get and Reindex race
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := h.Get(ctx)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := h.Reindex(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Then: builds ran one at a time and each got its own generation
	assert.Equal(t, int32(1), b.peak.Load())
	gen, exists, err := snap.Generation(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, uint64(b.calls.Load()), gen)
}

func TestHolder_Reindex_RealBuilderDuplicateKey(t *testing.T) {
	// Given: a valid archive indexed once
	root := t.TempDir()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.tex"),
		[]byte("%% key: A\n%% source: USAMO 2019/1\nstatement\n"), 0o644))
	snap := NewSQLiteSnapshot(filepath.Join(dir, "index.db"))
	h := NewHolder(root, snap, index.NewBuilder(), NewFileLock(dir))
	ctx := context.Background()
	_, err := h.Reindex(ctx)
	require.NoError(t, err)

	// When: a second file reuses the key
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.tex"),
		[]byte("%% key: A\n%% source: USAMO 2019/2\nother\n"), 0o644))
	_, err = h.Reindex(ctx)

	// Then: the build fails and the persisted index still has generation 1
	require.Error(t, err)
	assert.True(t, errors.Is(err, vonerrors.ErrDuplicateKey))
	loaded, err := snap.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), loaded.Generation)
	assert.Equal(t, []string{"A"}, loaded.Keys())
}

func TestHolder_Status(t *testing.T) {
	h, _ := newTestHolder(t, &countingBuilder{})
	ctx := context.Background()

	st, err := h.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Exists)
	assert.False(t, st.Cached)
	assert.Equal(t, BackendJSON, st.Backend)

	_, err = h.Get(ctx)
	require.NoError(t, err)

	st, err = h.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Exists)
	assert.True(t, st.Cached)
	assert.Equal(t, uint64(1), st.Generation)
	assert.Equal(t, uint64(1), st.CachedGeneration)
	assert.Positive(t, st.Size)
}
