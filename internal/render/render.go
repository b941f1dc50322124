// Package render writes entries for display.
package render

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/Aman-CERP/von/internal/demacro"
	"github.com/Aman-CERP/von/internal/entry"
	vonerrors "github.com/Aman-CERP/von/internal/errors"
)

// Separator divides the statement from the second body.
const Separator = "---"

// Options controls Show.
type Options struct {
	// Brave allows secret entries to be shown.
	Brave bool

	// Sourced wraps the statement in a problem environment citing the source,
	// ready to paste into a TeX document.
	Sourced bool

	// Where adds the file and line the entry was parsed from.
	Where bool
}

// Show writes e to w: the source header, the demacro'd statement, the URL if
// any, and the demacro'd second body after a separator. A secret entry
// without Brave returns a SecretAccessError and writes nothing.
func Show(w io.Writer, e *entry.Entry, opts Options) error {
	if e.Secret && !opts.Brave {
		return vonerrors.SecretAccessError(e.Key, e.Source)
	}

	var b strings.Builder
	b.WriteString(header(e))
	b.WriteByte('\n')
	if opts.Where {
		fmt.Fprintf(&b, "%% %s\n", e.Location())
	}

	statement := strings.TrimSpace(demacro.Expand(e.Statement()))
	if opts.Sourced {
		fmt.Fprintf(&b, "\\begin{problem}[%s]\n%s\n\\end{problem}\n", e.Source, statement)
	} else {
		b.WriteString(statement)
		b.WriteByte('\n')
	}
	if e.HasURL() {
		fmt.Fprintf(&b, "URL: %s\n", e.URL)
	}
	if second, ok := e.Solution(); ok {
		b.WriteString(Separator)
		b.WriteByte('\n')
		b.WriteString(strings.TrimSpace(demacro.Expand(second)))
		b.WriteByte('\n')
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return vonerrors.IOError("failed to write entry", err)
	}
	return nil
}

// header is the first line of Show output.
func header(e *entry.Entry) string {
	h := fmt.Sprintf("[%s] %s", e.Key, e.Source)
	if e.Author != "" {
		h += " (" + e.Author + ")"
	}
	return h
}

// Assets returns the files in dir whose names start with puid, sorted. A
// missing dir yields no assets.
func Assets(dir, puid string) ([]string, error) {
	if puid == "" {
		return nil, nil
	}
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, vonerrors.IOError(fmt.Sprintf("failed to read assets dir %s", dir), err)
	}
	if !info.IsDir() {
		return nil, nil
	}

	fsys := os.DirFS(dir)
	names, err := doublestar.Glob(fsys, quoteMeta(puid)+"*")
	if err != nil {
		return nil, vonerrors.IOError(fmt.Sprintf("failed to list assets for %s", puid), err)
	}

	var out []string
	for _, name := range names {
		fi, err := fs.Stat(fsys, name)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	slices.Sort(out)
	return out, nil
}

// quoteMeta escapes glob metacharacters.
func quoteMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[]{}\`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
