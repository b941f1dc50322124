// Package scanner discovers archive source files under a source root,
// honoring include/exclude globs and skipping hidden and binary files.
package scanner

import (
	"time"
)

// FileInfo contains metadata about a discovered file.
type FileInfo struct {
	Path    string    // Relative path to the source root, slash separated
	AbsPath string    // Absolute path
	Size    int64     // File size in bytes
	ModTime time.Time // Last modification time
}

// ScanOptions configures the scanner behavior.
type ScanOptions struct {
	// RootDir is the source root to scan.
	RootDir string

	// IncludePatterns are doublestar globs a file must match (empty = DefaultIncludePatterns).
	IncludePatterns []string

	// ExcludePatterns are doublestar globs that prune files and directories.
	ExcludePatterns []string

	// MaxFileSize bounds matching files in bytes (0 = DefaultMaxFileSize).
	// A larger matching file fails the scan.
	MaxFileSize int64

	// IncludeHidden stops the scanner from skipping dot files and dot directories.
	IncludeHidden bool

	// FollowSymlinks enables following symbolic links to files (default: false).
	FollowSymlinks bool
}

// ScanResult is returned from the scanner channel.
type ScanResult struct {
	File  *FileInfo
	Error error
}

// DefaultMaxFileSize is the default maximum file size (4MB).
const DefaultMaxFileSize = 4 * 1024 * 1024

// DefaultIncludePatterns matches archive files anywhere under the root.
var DefaultIncludePatterns = []string{"**/*.tex"}
