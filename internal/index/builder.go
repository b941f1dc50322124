package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Aman-CERP/von/internal/entry"
	vonerrors "github.com/Aman-CERP/von/internal/errors"
	"github.com/Aman-CERP/von/internal/puid"
	"github.com/Aman-CERP/von/internal/scanner"
)

// ProgressFunc is called after each source file is parsed.
type ProgressFunc func(done, total int, path string)

// Builder derives an Index from a source tree.
type Builder struct {
	include     []string
	exclude     []string
	maxFileSize int64
	now         func() time.Time
	progress    ProgressFunc
}

// Option configures a Builder.
type Option func(*Builder)

// WithClock sets the time source stamped into BuiltAt.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		b.now = now
	}
}

// WithPatterns sets the include and exclude globs for source files.
func WithPatterns(include, exclude []string) Option {
	return func(b *Builder) {
		b.include = include
		b.exclude = exclude
	}
}

// WithMaxFileSize fails the build on a source file larger than n bytes.
func WithMaxFileSize(n int64) Option {
	return func(b *Builder) {
		b.maxFileSize = n
	}
}

// WithProgress registers a per-file progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(b *Builder) {
		b.progress = fn
	}
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build scans root and parses every source file into a new Index.
//
// Malformed entries are logged and counted in Index.Skipped. A duplicate key
// aborts the build with a DuplicateKeyError, and an unreadable or oversized
// source file or directory aborts it too. Build never returns a partial
// index.
func (b *Builder) Build(ctx context.Context, root string) (*Index, error) {
	start := time.Now()

	sc, err := scanner.New(&scanner.ScanOptions{
		RootDir:         root,
		IncludePatterns: b.include,
		ExcludePatterns: b.exclude,
		MaxFileSize:     b.maxFileSize,
	})
	if err != nil {
		return nil, err
	}
	files, err := sc.Collect(ctx)
	if err != nil {
		return nil, err
	}

	idx := New(root, time.Time{})
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := os.ReadFile(f.AbsPath)
		if err != nil {
			return nil, vonerrors.New(vonerrors.ErrCodeFilePermission,
				fmt.Sprintf("failed to read %s", f.Path), err).WithDetail("path", f.Path)
		}

		skipped, err := b.addFile(idx, f.Path, string(data))
		idx.Skipped += skipped
		if err != nil {
			return nil, err
		}
		idx.Files++

		if b.progress != nil {
			b.progress(i+1, len(files), f.Path)
		}
	}

	idx.BuiltAt = b.now().UTC()

	slog.Info("index_built",
		slog.String("root", root),
		slog.Int("files", idx.Files),
		slog.Int("entries", idx.Len()),
		slog.Int("skipped", idx.Skipped),
		slog.Duration("duration", time.Since(start)))

	return idx, nil
}

// addFile parses text into idx and returns the number of skipped entries.
func (b *Builder) addFile(idx *Index, path, text string) (int, error) {
	skipped := 0
	for e, err := range entry.ParseNamed(path, text) {
		if err != nil {
			skipped++
			slog.Warn("entry_parse_failed",
				slog.String("path", path),
				slog.String("line", vonerrors.DetailOf(err, "line")),
				slog.String("error", err.Error()))
			continue
		}
		e.PUID = puid.Infer(e.Source)
		if puid.IsHashed(e.PUID) {
			slog.Debug("puid_hashed",
				slog.String("key", e.Key),
				slog.String("source", e.Source),
				slog.String("puid", e.PUID))
		}
		if err := idx.Add(e); err != nil {
			return skipped, err
		}
	}
	return skipped, nil
}
