// Package store persists index snapshots and holds the process-wide index
// cache.
//
// A Snapshot is the on-disk form of an index.Index. Two backends exist: a
// self-describing JSON file (default) and a SQLite database. The Holder sits
// in front of a Snapshot and a Builder and decides when to reuse, reload or
// rebuild.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	vonerrors "github.com/Aman-CERP/von/internal/errors"
	"github.com/Aman-CERP/von/internal/index"
)

// Backend names a snapshot encoding.
type Backend string

const (
	// BackendJSON stores the snapshot as index.json (default).
	BackendJSON Backend = "json"

	// BackendSQLite stores the snapshot as index.db via modernc.org/sqlite.
	BackendSQLite Backend = "sqlite"
)

// Snapshot is persisted index state.
type Snapshot interface {
	// Load reads the full index. A missing snapshot is ErrSnapshotMissing;
	// an unreadable one is a PersistenceError.
	Load(ctx context.Context) (*index.Index, error)

	// Save atomically replaces the snapshot with idx.
	Save(ctx context.Context, idx *index.Index) error

	// Generation reads the persisted generation without loading entries.
	// ok is false when no snapshot exists.
	Generation(ctx context.Context) (gen uint64, ok bool, err error)

	// Exists reports whether a snapshot is on disk.
	Exists() bool

	// Path is the snapshot file.
	Path() string

	// Backend names the encoding.
	Backend() Backend
}

// NewSnapshot creates the Snapshot for backend inside dataDir.
//
// backend options:
//   - "json" (default): dataDir/index.json
//   - "sqlite": dataDir/index.db
func NewSnapshot(dataDir string, backend string) (Snapshot, error) {
	switch Backend(backend) {
	case BackendJSON, "":
		return NewJSONSnapshot(filepath.Join(dataDir, "index.json")), nil
	case BackendSQLite:
		return NewSQLiteSnapshot(filepath.Join(dataDir, "index.db")), nil
	default:
		return nil, vonerrors.ConfigError(
			fmt.Sprintf("unknown snapshot backend: %s (valid options: json, sqlite)", backend), nil)
	}
}

// snapshotMissing is the error Load returns when path does not exist.
func snapshotMissing(path string, cause error) error {
	return vonerrors.New(vonerrors.ErrCodeSnapshotMissing,
		fmt.Sprintf("no snapshot at %s", path), cause).
		WithDetail("path", path).
		WithSuggestion("Run 'von reindex' to build one")
}

// snapshotWriteError wraps failures while saving.
func snapshotWriteError(path string, cause error) error {
	return vonerrors.New(vonerrors.ErrCodeSnapshotWrite,
		fmt.Sprintf("failed to write snapshot %s: %v", path, cause), cause).
		WithDetail("path", path)
}

// checkLoaded validates a decoded index before it is handed out.
func checkLoaded(path string, idx *index.Index, wantEntries int) error {
	if idx.Format != index.SnapshotFormat {
		return vonerrors.PersistenceError(path, fmt.Errorf("unsupported snapshot version %d", idx.Format))
	}
	if idx.Entries == nil {
		return vonerrors.PersistenceError(path, fmt.Errorf("snapshot has no entries table"))
	}
	if len(idx.Entries) != wantEntries {
		return vonerrors.PersistenceError(path,
			fmt.Errorf("header counts %d entries, body has %d", wantEntries, len(idx.Entries)))
	}
	for key, e := range idx.Entries {
		if e == nil || e.Key != key {
			return vonerrors.PersistenceError(path, fmt.Errorf("entry %q is keyed inconsistently", key))
		}
		if err := e.Validate(); err != nil {
			return vonerrors.PersistenceError(path, err)
		}
	}
	idx.RebuildPUIDs()
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
