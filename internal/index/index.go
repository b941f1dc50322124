// Package index holds the immutable collection of archive entries and the
// builder that derives it from a source tree.
package index

import (
	"maps"
	"slices"
	"time"

	"github.com/Aman-CERP/von/internal/entry"
	vonerrors "github.com/Aman-CERP/von/internal/errors"
)

// SnapshotFormat is the version stamped into every index and persisted
// snapshot. Loading a snapshot with another version is a PersistenceError.
const SnapshotFormat = 1

// Index is a full build of the archive. It is never mutated once returned
// by a Builder; a rebuild produces a new Index.
type Index struct {
	// Entries maps key to entry.
	Entries map[string]*entry.Entry `json:"entries"`

	// ByPUID maps a PUID to the keys of every entry carrying it, ascending.
	ByPUID map[string][]string `json:"by_puid"`

	// Generation increases by one on every successful reindex.
	Generation uint64 `json:"generation"`

	// BuiltAt is when the builder finished.
	BuiltAt time.Time `json:"built_at"`

	// Root is the source root the index was built from.
	Root string `json:"root"`

	// Format is the snapshot format version.
	Format int `json:"format"`

	// Files is the number of source files read.
	Files int `json:"files"`

	// Skipped is the number of entries dropped for parse errors.
	Skipped int `json:"skipped"`
}

// New returns an empty index for root.
func New(root string, builtAt time.Time) *Index {
	return &Index{
		Entries: make(map[string]*entry.Entry),
		ByPUID:  make(map[string][]string),
		BuiltAt: builtAt,
		Root:    root,
		Format:  SnapshotFormat,
	}
}

// Add inserts e. A key already present is a DuplicateKeyError naming both
// locations; the index is left unchanged.
func (x *Index) Add(e *entry.Entry) error {
	if prev, ok := x.Entries[e.Key]; ok {
		return vonerrors.DuplicateKeyError(e.Key, prev.Location(), e.Location())
	}
	x.Entries[e.Key] = e
	keys := append(x.ByPUID[e.PUID], e.Key)
	slices.Sort(keys)
	x.ByPUID[e.PUID] = keys
	return nil
}

// Get returns the entry for key.
func (x *Index) Get(key string) (*entry.Entry, bool) {
	e, ok := x.Entries[key]
	return e, ok
}

// Len returns the number of entries.
func (x *Index) Len() int {
	return len(x.Entries)
}

// Keys returns every key in ascending order.
func (x *Index) Keys() []string {
	return slices.Sorted(maps.Keys(x.Entries))
}

// KeysForPUID returns the keys of entries sharing puid.
func (x *Index) KeysForPUID(puid string) []string {
	return x.ByPUID[puid]
}

// Secrets returns the number of secret entries.
func (x *Index) Secrets() int {
	n := 0
	for _, e := range x.Entries {
		if e.Secret {
			n++
		}
	}
	return n
}

// WithGeneration returns a shallow copy of x stamped with gen. Entries are
// shared; neither copy may be mutated.
func (x *Index) WithGeneration(gen uint64) *Index {
	c := *x
	c.Generation = gen
	return &c
}

// RebuildPUIDs recomputes ByPUID from Entries. Snapshot loaders call it so
// the derived mapping never disagrees with the entries.
func (x *Index) RebuildPUIDs() {
	x.ByPUID = make(map[string][]string, len(x.Entries))
	for _, key := range x.Keys() {
		e := x.Entries[key]
		x.ByPUID[e.PUID] = append(x.ByPUID[e.PUID], key)
	}
}

// Equal reports whether two indexes hold the same entries and metadata.
func (x *Index) Equal(o *Index) bool {
	if x == nil || o == nil {
		return x == o
	}
	if x.Generation != o.Generation ||
		!x.BuiltAt.Equal(o.BuiltAt) ||
		x.Root != o.Root ||
		x.Format != o.Format ||
		x.Files != o.Files ||
		x.Skipped != o.Skipped {
		return false
	}
	if !maps.EqualFunc(x.Entries, o.Entries, (*entry.Entry).Equal) {
		return false
	}
	return maps.EqualFunc(x.ByPUID, o.ByPUID, slices.Equal[[]string])
}
