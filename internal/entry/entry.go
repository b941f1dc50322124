// Package entry defines the archived problem record and the parser that
// turns archive source text into entries.
package entry

import (
	"fmt"
	"slices"
	"strings"

	vonerrors "github.com/Aman-CERP/von/internal/errors"
)

// MaxBodies is the number of text blocks an entry may carry: the statement
// and an optional second block shown after a separator.
const MaxBodies = 2

// Entry is one archived problem.
type Entry struct {
	Key      string   `json:"key"`
	Source   string   `json:"source"`
	URL      string   `json:"url,omitempty"`
	Secret   bool     `json:"secret,omitempty"`
	Bodies   []string `json:"bodies"`
	PUID     string   `json:"puid"`
	Author   string   `json:"author,omitempty"`
	Desc     string   `json:"desc,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Hardness int      `json:"hardness,omitempty"`

	// Path is the source file relative to the source root; Line is the
	// 1-based line where the entry starts.
	Path string `json:"path,omitempty"`
	Line int    `json:"line,omitempty"`
}

// Statement returns the primary body.
func (e *Entry) Statement() string {
	if len(e.Bodies) == 0 {
		return ""
	}
	return e.Bodies[0]
}

// Solution returns the second body and whether the entry has one.
func (e *Entry) Solution() (string, bool) {
	if len(e.Bodies) < 2 {
		return "", false
	}
	return e.Bodies[1], true
}

// HasURL reports whether the entry links anywhere.
func (e *Entry) HasURL() bool {
	return e.URL != ""
}

// Location formats Path:Line for diagnostics.
func (e *Entry) Location() string {
	if e.Path == "" {
		return fmt.Sprintf("line %d", e.Line)
	}
	return fmt.Sprintf("%s:%d", e.Path, e.Line)
}

// HasTag reports whether the entry carries tag (case-insensitive).
func (e *Entry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Validate checks the invariants every indexed entry must satisfy.
func (e *Entry) Validate() error {
	if strings.TrimSpace(e.Key) == "" {
		return vonerrors.New(vonerrors.ErrCodeInvalidEntry, "entry has no key", nil)
	}
	if strings.ContainsAny(e.Key, " \t\r\n") {
		return vonerrors.New(vonerrors.ErrCodeInvalidEntry,
			fmt.Sprintf("key %q contains whitespace", e.Key), nil)
	}
	if len(e.Bodies) == 0 || len(e.Bodies) > MaxBodies {
		return vonerrors.New(vonerrors.ErrCodeInvalidEntry,
			fmt.Sprintf("entry %s has %d bodies, want 1 or 2", e.Key, len(e.Bodies)), nil)
	}
	if strings.TrimSpace(e.Bodies[0]) == "" {
		return vonerrors.New(vonerrors.ErrCodeInvalidEntry,
			fmt.Sprintf("entry %s has an empty statement", e.Key), nil)
	}
	return nil
}

// Clone returns a deep copy.
func (e *Entry) Clone() *Entry {
	c := *e
	c.Bodies = slices.Clone(e.Bodies)
	c.Tags = slices.Clone(e.Tags)
	return &c
}

// Equal reports whether two entries agree on every field.
func (e *Entry) Equal(o *Entry) bool {
	if e == nil || o == nil {
		return e == o
	}
	return e.Key == o.Key &&
		e.Source == o.Source &&
		e.URL == o.URL &&
		e.Secret == o.Secret &&
		slices.Equal(e.Bodies, o.Bodies) &&
		e.PUID == o.PUID &&
		e.Author == o.Author &&
		e.Desc == o.Desc &&
		slices.Equal(e.Tags, o.Tags) &&
		e.Hardness == o.Hardness &&
		e.Path == o.Path &&
		e.Line == o.Line
}
