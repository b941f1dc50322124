package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"

	vonerrors "github.com/Aman-CERP/von/internal/errors"
	"github.com/Aman-CERP/von/internal/index"
)

// jsonFormat identifies von snapshot files.
const jsonFormat = "von-snapshot"

// jsonHeader is the first line of index.json. It is enough to answer
// Generation without decoding the body.
type jsonHeader struct {
	Format     string    `json:"format"`
	Version    int       `json:"version"`
	Generation uint64    `json:"generation"`
	BuiltAt    time.Time `json:"built_at"`
	Checksum   string    `json:"checksum"`
	Entries    int       `json:"entries"`
}

// JSONSnapshot stores an index as one header line followed by the JSON body.
type JSONSnapshot struct {
	path string
}

// Verify interface implementation at compile time
var _ Snapshot = (*JSONSnapshot)(nil)

// NewJSONSnapshot creates a JSONSnapshot at path.
func NewJSONSnapshot(path string) *JSONSnapshot {
	return &JSONSnapshot{path: path}
}

// Path returns the snapshot file.
func (s *JSONSnapshot) Path() string { return s.path }

// Backend returns BackendJSON.
func (s *JSONSnapshot) Backend() Backend { return BackendJSON }

// Exists reports whether the snapshot file exists.
func (s *JSONSnapshot) Exists() bool { return fileExists(s.path) }

// Generation reads the header line only.
func (s *JSONSnapshot) Generation(_ context.Context) (uint64, bool, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, vonerrors.PersistenceError(s.path, err)
	}
	defer func() { _ = f.Close() }()

	hdr, err := readHeader(bufio.NewReader(f))
	if err != nil {
		return 0, false, vonerrors.PersistenceError(s.path, err)
	}
	return hdr.Generation, true, nil
}

// Load reads and verifies the snapshot.
func (s *JSONSnapshot) Load(ctx context.Context) (*index.Index, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, snapshotMissing(s.path, err)
	}
	if err != nil {
		return nil, vonerrors.PersistenceError(s.path, err)
	}
	defer func() { _ = f.Close() }()

	r := bufio.NewReader(f)
	hdr, err := readHeader(r)
	if err != nil {
		return nil, vonerrors.PersistenceError(s.path, err)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, vonerrors.PersistenceError(s.path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sum := checksum(body); sum != hdr.Checksum {
		return nil, vonerrors.PersistenceError(s.path,
			fmt.Errorf("checksum mismatch: header %s, body %s", hdr.Checksum, sum))
	}

	var idx index.Index
	if err := json.Unmarshal(body, &idx); err != nil {
		return nil, vonerrors.PersistenceError(s.path, err)
	}
	idx.Generation = hdr.Generation
	if err := checkLoaded(s.path, &idx, hdr.Entries); err != nil {
		return nil, err
	}
	return &idx, nil
}

// Save writes idx to a temporary file in the same directory and renames it
// over the snapshot, so readers never see a partial file.
func (s *JSONSnapshot) Save(ctx context.Context, idx *index.Index) error {
	body, err := json.Marshal(idx)
	if err != nil {
		return snapshotWriteError(s.path, err)
	}
	hdr, err := json.Marshal(jsonHeader{
		Format:     jsonFormat,
		Version:    index.SnapshotFormat,
		Generation: idx.Generation,
		BuiltAt:    idx.BuiltAt,
		Checksum:   checksum(body),
		Entries:    idx.Len(),
	})
	if err != nil {
		return snapshotWriteError(s.path, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return snapshotWriteError(s.path, err)
	}
	tmp, err := os.CreateTemp(dir, ".index-*.json.tmp")
	if err != nil {
		return snapshotWriteError(s.path, err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	w := bufio.NewWriter(tmp)
	_, _ = w.Write(hdr)
	_ = w.WriteByte('\n')
	_, _ = w.Write(body)
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return snapshotWriteError(s.path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return snapshotWriteError(s.path, err)
	}
	if err := tmp.Close(); err != nil {
		return snapshotWriteError(s.path, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return snapshotWriteError(s.path, err)
	}
	return nil
}

// readHeader decodes and checks the header line.
func readHeader(r *bufio.Reader) (*jsonHeader, error) {
	line, err := r.ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return nil, fmt.Errorf("missing header: %w", err)
	}
	var hdr jsonHeader
	if err := json.Unmarshal(bytes.TrimSpace(line), &hdr); err != nil {
		return nil, fmt.Errorf("bad header: %w", err)
	}
	if hdr.Format != jsonFormat {
		return nil, fmt.Errorf("not a von snapshot (format %q)", hdr.Format)
	}
	if hdr.Version != index.SnapshotFormat {
		return nil, fmt.Errorf("unsupported snapshot version %d", hdr.Version)
	}
	return &hdr, nil
}

// checksum is the xxhash64 of body in hex.
func checksum(body []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(body))
}
