package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/Aman-CERP/von/internal/entry"
	vonerrors "github.com/Aman-CERP/von/internal/errors"
	"github.com/Aman-CERP/von/internal/index"
)

// Meta keys of the sqlite snapshot.
const (
	metaFormat     = "format"
	metaGeneration = "generation"
	metaBuiltAt    = "built_at"
	metaRoot       = "root"
	metaFiles      = "files"
	metaSkipped    = "skipped"
	metaEntries    = "entries"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
	key      TEXT PRIMARY KEY,
	source   TEXT NOT NULL,
	url      TEXT NOT NULL DEFAULT '',
	secret   INTEGER NOT NULL DEFAULT 0,
	bodies   TEXT NOT NULL,
	puid     TEXT NOT NULL,
	author   TEXT NOT NULL DEFAULT '',
	descr    TEXT NOT NULL DEFAULT '',
	tags     TEXT NOT NULL DEFAULT 'null',
	hardness INTEGER NOT NULL DEFAULT 0,
	path     TEXT NOT NULL DEFAULT '',
	line     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS puids (
	puid TEXT NOT NULL,
	key  TEXT NOT NULL,
	PRIMARY KEY (puid, key)
);
`

// SQLiteSnapshot stores an index in a SQLite database. Every Save replaces
// all rows inside one transaction.
type SQLiteSnapshot struct {
	path string
}

// Verify interface implementation at compile time
var _ Snapshot = (*SQLiteSnapshot)(nil)

// NewSQLiteSnapshot creates a SQLiteSnapshot at path.
func NewSQLiteSnapshot(path string) *SQLiteSnapshot {
	return &SQLiteSnapshot{path: path}
}

// Path returns the database file.
func (s *SQLiteSnapshot) Path() string { return s.path }

// Backend returns BackendSQLite.
func (s *SQLiteSnapshot) Backend() Backend { return BackendSQLite }

// Exists reports whether the database file exists.
func (s *SQLiteSnapshot) Exists() bool { return fileExists(s.path) }

// openDB opens the snapshot database with the pragmas every connection
// needs. readOnly databases are never created.
func openDB(path string, readOnly bool) (*sql.DB, error) {
	dsn := path
	if readOnly {
		dsn = path + "?mode=ro"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single connection; snapshots are written by one process at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	return db, nil
}

// Generation reads the generation row of meta.
func (s *SQLiteSnapshot) Generation(ctx context.Context) (uint64, bool, error) {
	if !s.Exists() {
		return 0, false, nil
	}
	db, err := openDB(s.path, true)
	if err != nil {
		return 0, false, vonerrors.PersistenceError(s.path, err)
	}
	defer func() { _ = db.Close() }()

	meta, err := readMeta(ctx, db)
	if err != nil {
		return 0, false, vonerrors.PersistenceError(s.path, err)
	}
	gen, err := strconv.ParseUint(meta[metaGeneration], 10, 64)
	if err != nil {
		return 0, false, vonerrors.PersistenceError(s.path, fmt.Errorf("bad generation: %w", err))
	}
	return gen, true, nil
}

// Load reads every table back into an Index.
func (s *SQLiteSnapshot) Load(ctx context.Context) (*index.Index, error) {
	if !s.Exists() {
		return nil, snapshotMissing(s.path, os.ErrNotExist)
	}
	db, err := openDB(s.path, true)
	if err != nil {
		return nil, vonerrors.PersistenceError(s.path, err)
	}
	defer func() { _ = db.Close() }()

	meta, err := readMeta(ctx, db)
	if err != nil {
		return nil, vonerrors.PersistenceError(s.path, err)
	}
	idx, want, err := indexFromMeta(meta)
	if err != nil {
		return nil, vonerrors.PersistenceError(s.path, err)
	}

	rows, err := db.QueryContext(ctx, `SELECT key, source, url, secret, bodies, puid,
		author, descr, tags, hardness, path, line FROM entries`)
	if err != nil {
		return nil, vonerrors.PersistenceError(s.path, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var e entry.Entry
		var bodies, tags string
		if err := rows.Scan(&e.Key, &e.Source, &e.URL, &e.Secret, &bodies, &e.PUID,
			&e.Author, &e.Desc, &tags, &e.Hardness, &e.Path, &e.Line); err != nil {
			return nil, vonerrors.PersistenceError(s.path, err)
		}
		if err := json.Unmarshal([]byte(bodies), &e.Bodies); err != nil {
			return nil, vonerrors.PersistenceError(s.path, fmt.Errorf("entry %s bodies: %w", e.Key, err))
		}
		if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
			return nil, vonerrors.PersistenceError(s.path, fmt.Errorf("entry %s tags: %w", e.Key, err))
		}
		idx.Entries[e.Key] = &e
	}
	if err := rows.Err(); err != nil {
		return nil, vonerrors.PersistenceError(s.path, err)
	}

	if err := checkLoaded(s.path, idx, want); err != nil {
		return nil, err
	}
	return idx, nil
}

// Save replaces the database contents with idx in one transaction. A
// corrupt database file is removed and recreated.
func (s *SQLiteSnapshot) Save(ctx context.Context, idx *index.Index) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return snapshotWriteError(s.path, err)
	}
	if err := validateSQLiteIntegrity(s.path); err != nil {
		slog.Warn("sqlite_snapshot_corrupted",
			slog.String("path", s.path),
			slog.String("error", err.Error()))
		if rmErr := os.Remove(s.path); rmErr != nil && !os.IsNotExist(rmErr) {
			return snapshotWriteError(s.path, rmErr)
		}
		_ = os.Remove(s.path + "-wal")
		_ = os.Remove(s.path + "-shm")
	}

	db, err := openDB(s.path, false)
	if err != nil {
		return snapshotWriteError(s.path, err)
	}
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return snapshotWriteError(s.path, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return snapshotWriteError(s.path, err)
	}
	if err := writeTx(ctx, tx, idx); err != nil {
		_ = tx.Rollback()
		return snapshotWriteError(s.path, err)
	}
	if err := tx.Commit(); err != nil {
		return snapshotWriteError(s.path, err)
	}
	return nil
}

func writeTx(ctx context.Context, tx *sql.Tx, idx *index.Index) error {
	for _, table := range []string{"meta", "entries", "puids"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	meta := map[string]string{
		metaFormat:     strconv.Itoa(idx.Format),
		metaGeneration: strconv.FormatUint(idx.Generation, 10),
		metaBuiltAt:    idx.BuiltAt.Format(time.RFC3339Nano),
		metaRoot:       idx.Root,
		metaFiles:      strconv.Itoa(idx.Files),
		metaSkipped:    strconv.Itoa(idx.Skipped),
		metaEntries:    strconv.Itoa(idx.Len()),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("failed to write meta %s: %w", k, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries
		(key, source, url, secret, bodies, puid, author, descr, tags, hardness, path, line)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, key := range idx.Keys() {
		e := idx.Entries[key]
		bodies, err := json.Marshal(e.Bodies)
		if err != nil {
			return err
		}
		tags, err := json.Marshal(e.Tags)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, e.Key, e.Source, e.URL, e.Secret, string(bodies), e.PUID,
			e.Author, e.Desc, string(tags), e.Hardness, e.Path, e.Line); err != nil {
			return fmt.Errorf("failed to insert %s: %w", e.Key, err)
		}
	}

	for p, keys := range idx.ByPUID {
		for _, key := range keys {
			if _, err := tx.ExecContext(ctx, "INSERT INTO puids (puid, key) VALUES (?, ?)", p, key); err != nil {
				return fmt.Errorf("failed to insert puid %s: %w", p, err)
			}
		}
	}
	return nil
}

func readMeta(ctx context.Context, db *sql.DB) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if _, ok := meta[metaFormat]; !ok {
		return nil, fmt.Errorf("meta table has no format row")
	}
	return meta, nil
}

// indexFromMeta builds an empty Index from the meta rows and returns the
// recorded entry count.
func indexFromMeta(meta map[string]string) (*index.Index, int, error) {
	format, err := strconv.Atoi(meta[metaFormat])
	if err != nil {
		return nil, 0, fmt.Errorf("bad format: %w", err)
	}
	gen, err := strconv.ParseUint(meta[metaGeneration], 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("bad generation: %w", err)
	}
	builtAt, err := time.Parse(time.RFC3339Nano, meta[metaBuiltAt])
	if err != nil {
		return nil, 0, fmt.Errorf("bad built_at: %w", err)
	}
	files, err := strconv.Atoi(meta[metaFiles])
	if err != nil {
		return nil, 0, fmt.Errorf("bad files: %w", err)
	}
	skipped, err := strconv.Atoi(meta[metaSkipped])
	if err != nil {
		return nil, 0, fmt.Errorf("bad skipped: %w", err)
	}
	entries, err := strconv.Atoi(meta[metaEntries])
	if err != nil {
		return nil, 0, fmt.Errorf("bad entries: %w", err)
	}

	idx := index.New(meta[metaRoot], builtAt)
	idx.Format = format
	idx.Generation = gen
	idx.Files = files
	idx.Skipped = skipped
	return idx, entries, nil
}

// validateSQLiteIntegrity checks an existing snapshot database before it is
// overwritten. A missing file is valid.
func validateSQLiteIntegrity(path string) error {
	if !fileExists(path) {
		return nil
	}
	db, err := openDB(path, true)
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}
	return nil
}
