package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	vonerrors "github.com/Aman-CERP/von/internal/errors"
	"github.com/Aman-CERP/von/internal/index"
)

// Builder produces a fresh Index from a source root.
type Builder interface {
	Build(ctx context.Context, root string) (*index.Index, error)
}

// Holder owns the in-process index cache. It is the only writer of the
// cache; readers get either the previous or the next Index, never a mix.
type Holder struct {
	root    string
	snap    Snapshot
	builder Builder
	lock    *FileLock

	cache atomic.Pointer[index.Index]
	group singleflight.Group

	// buildMu serializes rebuilds in this process. The file lock only
	// excludes other processes.
	buildMu sync.Mutex
}

// NewHolder creates a Holder that builds from root and persists to snap.
// lock may be nil when snapshot writes need no cross-process exclusion.
func NewHolder(root string, snap Snapshot, builder Builder, lock *FileLock) *Holder {
	return &Holder{
		root:    root,
		snap:    snap,
		builder: builder,
		lock:    lock,
	}
}

// Get returns the current index. The cached index is reused while its
// generation matches the persisted one; otherwise the snapshot is loaded,
// and if there is no snapshot the index is built and persisted first.
// Concurrent misses share one load or build.
func (h *Holder) Get(ctx context.Context) (*index.Index, error) {
	gen, exists, err := h.snap.Generation(ctx)
	if err != nil {
		return nil, err
	}
	if cached := h.cache.Load(); cached != nil && (!exists || cached.Generation == gen) {
		return cached, nil
	}

	v, err, _ := h.group.Do("get", func() (any, error) {
		return h.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*index.Index), nil
}

// Cached returns the cached index or nil.
func (h *Holder) Cached() *index.Index {
	return h.cache.Load()
}

// Clear evicts the cache. The snapshot on disk is untouched.
func (h *Holder) Clear() {
	h.cache.Store(nil)
	slog.Debug("index_cache_cleared")
}

// Reindex rebuilds from the source root, persists with the next generation
// and publishes. On any failure the snapshot and the cache keep their
// previous contents.
func (h *Holder) Reindex(ctx context.Context) (*index.Index, error) {
	v, err, _ := h.group.Do("reindex", func() (any, error) {
		return h.rebuild(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*index.Index), nil
}

// Snapshot returns the backing snapshot.
func (h *Holder) Snapshot() Snapshot {
	return h.snap
}

// Root returns the source root.
func (h *Holder) Root() string {
	return h.root
}

func (h *Holder) load(ctx context.Context) (*index.Index, error) {
	start := time.Now()
	idx, err := h.snap.Load(ctx)
	if errors.Is(err, vonerrors.ErrSnapshotMissing) {
		slog.Info("snapshot_missing_building", slog.String("path", h.snap.Path()))
		return h.rebuild(ctx)
	}
	if err != nil {
		return nil, err
	}

	h.cache.Store(idx)
	slog.Debug("snapshot_loaded",
		slog.String("path", h.snap.Path()),
		slog.Uint64("generation", idx.Generation),
		slog.Int("entries", idx.Len()),
		slog.Duration("duration", time.Since(start)))
	return idx, nil
}

func (h *Holder) rebuild(ctx context.Context) (*index.Index, error) {
	h.buildMu.Lock()
	defer h.buildMu.Unlock()

	if h.lock != nil {
		if err := h.lock.LockContext(ctx); err != nil {
			return nil, err
		}
		defer func() { _ = h.lock.Unlock() }()
	}

	built, err := h.builder.Build(ctx, h.root)
	if err != nil {
		slog.Error("index_build_failed",
			append([]any{slog.String("root", h.root)}, vonerrors.LogAttrs(err)...)...)
		return nil, err
	}

	// Read the persisted generation under the lock so two processes never
	// write the same one.
	prev, _, err := h.snap.Generation(ctx)
	if err != nil {
		if !errors.Is(err, vonerrors.ErrCorruptSnapshot) {
			return nil, err
		}
		// An unreadable snapshot is replaced; numbering restarts.
		slog.Warn("snapshot_replacing_unreadable",
			slog.String("path", h.snap.Path()),
			slog.String("error", err.Error()))
		prev = 0
	}

	idx := built.WithGeneration(prev + 1)
	if err := h.snap.Save(ctx, idx); err != nil {
		slog.Error("snapshot_save_failed",
			slog.String("path", h.snap.Path()),
			slog.String("error", err.Error()))
		return nil, err
	}

	h.cache.Store(idx)
	slog.Info("index_published",
		slog.Uint64("generation", idx.Generation),
		slog.Int("entries", idx.Len()),
		slog.String("snapshot", h.snap.Path()))
	return idx, nil
}

// Status describes the snapshot and cache for reporting.
type Status struct {
	Backend          Backend `json:"backend"`
	Path             string  `json:"path"`
	Exists           bool    `json:"exists"`
	Size             int64   `json:"size"`
	Generation       uint64  `json:"generation"`
	Cached           bool    `json:"cached"`
	CachedGeneration uint64  `json:"cached_generation,omitempty"`
}

// Status reports on the snapshot and the cache without loading entries.
func (h *Holder) Status(ctx context.Context) (Status, error) {
	st := Status{
		Backend: h.snap.Backend(),
		Path:    h.snap.Path(),
	}
	gen, exists, err := h.snap.Generation(ctx)
	if err != nil {
		return st, err
	}
	st.Exists = exists
	st.Generation = gen
	if info, err := os.Stat(h.snap.Path()); err == nil {
		st.Size = info.Size()
	}
	if c := h.cache.Load(); c != nil {
		st.Cached = true
		st.CachedGeneration = c.Generation
	}
	return st, nil
}
