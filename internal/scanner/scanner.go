package scanner

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	vonerrors "github.com/Aman-CERP/von/internal/errors"
)

// resultBuffer is the capacity of the result channel.
const resultBuffer = 64

// Scanner discovers archive files in a source tree.
type Scanner struct {
	opts    ScanOptions
	include []string
}

// New creates a Scanner for the patterns in opts.
// Returns error if any glob pattern is malformed.
func New(opts *ScanOptions) (*Scanner, error) {
	if opts == nil {
		opts = &ScanOptions{}
	}
	include := opts.IncludePatterns
	if len(include) == 0 {
		include = DefaultIncludePatterns
	}
	for _, p := range append(append([]string{}, include...), opts.ExcludePatterns...) {
		if !doublestar.ValidatePattern(p) {
			return nil, vonerrors.ConfigError(fmt.Sprintf("invalid glob pattern %q", p), doublestar.ErrBadPattern)
		}
	}
	return &Scanner{
		opts:    *opts,
		include: include,
	}, nil
}

// Scan discovers all matching files under the configured root.
// It returns a channel of ScanResult that streams files in lexical path
// order as they are discovered. The channel is closed when scanning is
// complete or ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context) (<-chan ScanResult, error) {
	opts := &s.opts
	rootDir := opts.RootDir
	if rootDir == "" {
		rootDir = "."
	}

	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, vonerrors.New(vonerrors.ErrCodeSourceRootAbsent,
			fmt.Sprintf("source root %s does not exist", absRoot), err).
			WithDetail("root", absRoot).
			WithSuggestion("Set base_path or pass --base to point at your archive")
	}
	if !info.IsDir() {
		return nil, vonerrors.New(vonerrors.ErrCodeSourceRootAbsent,
			fmt.Sprintf("source root is not a directory: %s", absRoot), nil).
			WithDetail("root", absRoot)
	}

	maxFileSize := opts.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}

	results := make(chan ScanResult, resultBuffer)

	go func() {
		defer close(results)
		s.scan(ctx, absRoot, opts, maxFileSize, results)
	}()

	return results, nil
}

// Collect drains Scan into a slice. The first walk error aborts.
func (s *Scanner) Collect(ctx context.Context) ([]*FileInfo, error) {
	results, err := s.Scan(ctx)
	if err != nil {
		return nil, err
	}
	var files []*FileInfo
	for r := range results {
		if r.Error != nil {
			// Drain so the walker goroutine can exit.
			for range results {
			}
			return nil, r.Error
		}
		files = append(files, r.File)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return files, nil
}

// scan performs the actual directory traversal. filepath.WalkDir visits
// entries in lexical order, which makes the output deterministic.
func (s *Scanner) scan(ctx context.Context, absRoot string, opts *ScanOptions, maxFileSize int64, results chan<- ScanResult) {
	err := filepath.WalkDir(absRoot, s.visit(ctx, absRoot, opts, maxFileSize, results))

	if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		select {
		case results <- ScanResult{Error: err}:
		case <-ctx.Done():
		}
	}
}

// visit returns the WalkDir callback. A path that cannot be read and a
// matching file over maxFileSize both stop the walk: leaving them out would
// index a tree that differs from the one on disk.
func (s *Scanner) visit(ctx context.Context, absRoot string, opts *ScanOptions, maxFileSize int64, results chan<- ScanResult) fs.WalkDirFunc {
	return func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		relPath := path
		if rel, relErr := filepath.Rel(absRoot, path); relErr == nil {
			relPath = filepath.ToSlash(rel)
		}

		if err != nil {
			return vonerrors.New(vonerrors.ErrCodeFilePermission,
				fmt.Sprintf("cannot read %s", relPath), err).
				WithDetail("path", relPath).
				WithSuggestion("Fix its permissions or add it to paths.exclude")
		}
		if relPath == "." {
			return nil
		}

		if d.IsDir() {
			if s.shouldExcludeDir(relPath, d.Name(), opts) {
				return filepath.SkipDir
			}
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 && !opts.FollowSymlinks {
			return nil
		}

		if !opts.IncludeHidden && isHidden(d.Name()) {
			return nil
		}
		if !s.shouldInclude(relPath) {
			return nil
		}

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			return nil
		}

		if info.Size() > maxFileSize {
			return vonerrors.New(vonerrors.ErrCodeFileTooLarge,
				fmt.Sprintf("%s is %d bytes, over the %d byte limit", relPath, info.Size(), maxFileSize), nil).
				WithDetail("path", relPath).
				WithSuggestion("Raise paths.max_file_size or add the file to paths.exclude")
		}

		if s.isBinaryFile(path) {
			return nil
		}

		fileInfo := &FileInfo{
			Path:    relPath,
			AbsPath: path,
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}

		select {
		case results <- ScanResult{File: fileInfo}:
		case <-ctx.Done():
			return ctx.Err()
		}

		return nil
	}
}

// shouldExcludeDir checks if a directory should be pruned.
func (s *Scanner) shouldExcludeDir(relPath, name string, opts *ScanOptions) bool {
	if !opts.IncludeHidden && isHidden(name) {
		return true
	}
	for _, pattern := range s.opts.ExcludePatterns {
		if match(pattern, relPath) {
			return true
		}
	}
	return false
}

// shouldInclude checks a file against the include and exclude globs.
func (s *Scanner) shouldInclude(relPath string) bool {
	for _, pattern := range s.opts.ExcludePatterns {
		if match(pattern, relPath) {
			return false
		}
	}
	for _, pattern := range s.include {
		if match(pattern, relPath) {
			return true
		}
	}
	return false
}

// match reports whether relPath matches pattern. Patterns were validated in
// New, so the error from doublestar is always nil here.
func match(pattern, relPath string) bool {
	ok, _ := doublestar.Match(pattern, relPath)
	return ok
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// isBinaryFile checks if a file is binary by looking for null bytes.
func (s *Scanner) isBinaryFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil {
		return false
	}

	return bytes.Contains(buf[:n], []byte{0})
}
