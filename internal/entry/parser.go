package entry

import (
	"fmt"
	"iter"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	vonerrors "github.com/Aman-CERP/von/internal/errors"
)

// FormatVersion is the archive grammar version this parser understands.
const FormatVersion = 1

// Markers of the archive grammar. Source files stay valid TeX because every
// structural line is a TeX comment, except the body separator.
const (
	// EntrySeparator alone on a line ends one entry and starts the next.
	EntrySeparator = "%%%"
	// BodySeparator alone on a line splits the statement from the second body.
	BodySeparator = "---"
	// versionField is the header field of the optional first line.
	versionField = "von-archive"
)

var headerPattern = regexp.MustCompile(`^%%\s*([A-Za-z][A-Za-z_-]*)\s*:\s*(.*?)\s*$`)

// Parse splits archive text into entries. See ParseNamed.
func Parse(text string) iter.Seq2[*Entry, error] {
	return ParseNamed("", text)
}

// ParseNamed splits archive text into entries, stamping path into each entry
// and into parse errors. Text that is not valid UTF-8 is read as
// Windows-1252, so every parsed field is valid UTF-8. The sequence is lazy and restartable: every range
// over it re-reads text from the start. A malformed entry yields a
// ParseError in place of that entry and iteration continues with the next.
//
// Grammar:
//
//	%% von-archive: 1          (optional, first non-blank line)
//	%% key: USA19P1
//	%% source: USAMO 2019/1
//	%% url: https://...        (optional)
//	%% secret: false           (optional)
//	%% author, tags, hardness, desc (optional)
//	statement...
//	---
//	second body (optional)
//	%%%
//	next entry...
func ParseNamed(path, text string) iter.Seq2[*Entry, error] {
	return func(yield func(*Entry, error) bool) {
		lines := splitLines(decodeText(text))
		start := 0

		// Version line, if any, must be the first non-blank line.
		for start < len(lines) && strings.TrimSpace(lines[start]) == "" {
			start++
		}
		if start < len(lines) {
			if m := headerPattern.FindStringSubmatch(lines[start]); m != nil && strings.EqualFold(m[1], versionField) {
				v, err := strconv.Atoi(m[2])
				if err != nil || v != FormatVersion {
					yield(nil, vonerrors.ParseError(path, start+1,
						fmt.Sprintf("unsupported archive version %q (want %d)", m[2], FormatVersion)))
					return
				}
				start++
			}
		}

		blockStart := start
		for i := start; i <= len(lines); i++ {
			if i < len(lines) && strings.TrimSpace(lines[i]) != EntrySeparator {
				continue
			}
			e, err := parseBlock(path, lines[blockStart:i], blockStart+1)
			blockStart = i + 1
			if e == nil && err == nil {
				continue
			}
			if !yield(e, err) {
				return
			}
		}
	}
}

// decodeText returns text unchanged when it is valid UTF-8 and otherwise
// decodes it as Windows-1252, the usual encoding of Latin-1 TeX sources.
func decodeText(text string) string {
	if utf8.ValidString(text) {
		return text
	}
	if s, err := charmap.Windows1252.NewDecoder().String(text); err == nil && utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(text, string(utf8.RuneError))
}

// ParseAll collects every entry and every parse error of text.
func ParseAll(path, text string) ([]*Entry, []error) {
	var entries []*Entry
	var errs []error
	for e, err := range ParseNamed(path, text) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, errs
}

// parseBlock parses the lines of one entry. firstLine is the 1-based number
// of block[0]. A block of only blank lines yields (nil, nil).
func parseBlock(path string, block []string, firstLine int) (*Entry, error) {
	i := 0
	for i < len(block) && strings.TrimSpace(block[i]) == "" {
		i++
	}
	if i == len(block) {
		return nil, nil
	}

	e := &Entry{Path: path, Line: firstLine + i}
	fail := func(offset int, reason string) (*Entry, error) {
		return nil, vonerrors.ParseError(path, firstLine+offset, reason)
	}

	seen := make(map[string]bool)
	for ; i < len(block); i++ {
		m := headerPattern.FindStringSubmatch(block[i])
		if m == nil {
			break
		}
		field, value := strings.ToLower(m[1]), m[2]
		if seen[field] {
			return fail(i, fmt.Sprintf("field %q repeated", field))
		}
		seen[field] = true
		if err := setField(e, field, value); err != nil {
			return fail(i, err.Error())
		}
	}

	bodyStart := i
	var bodies []string
	var current []string
	for ; i < len(block); i++ {
		if strings.TrimSpace(block[i]) == BodySeparator {
			bodies = append(bodies, strings.Join(current, "\n"))
			current = nil
			if len(bodies) == MaxBodies {
				return fail(i, fmt.Sprintf("more than %d bodies", MaxBodies))
			}
			continue
		}
		current = append(current, block[i])
	}
	bodies = append(bodies, strings.Join(current, "\n"))
	for j := range bodies {
		bodies[j] = strings.TrimSpace(bodies[j])
	}

	if e.Key == "" {
		return fail(e.Line-firstLine, "missing key")
	}
	if bodies[0] == "" {
		return fail(bodyStart, fmt.Sprintf("entry %s has an empty statement", e.Key))
	}
	if len(bodies) == MaxBodies && bodies[1] == "" {
		return fail(bodyStart, fmt.Sprintf("entry %s has an empty second body", e.Key))
	}
	e.Bodies = bodies

	if err := e.Validate(); err != nil {
		return fail(e.Line-firstLine, reason(err))
	}
	return e, nil
}

// reason is the bare message of err, without a VonError's code prefix.
func reason(err error) string {
	if ve, ok := vonerrors.As(err); ok {
		return ve.Message
	}
	return err.Error()
}

// setField assigns one header field.
func setField(e *Entry, field, value string) error {
	switch field {
	case "key":
		e.Key = value
	case "source":
		e.Source = value
	case "url":
		e.URL = value
	case "secret":
		b, err := parseBool(value)
		if err != nil {
			return err
		}
		e.Secret = b
	case "author":
		e.Author = value
	case "desc":
		e.Desc = value
	case "tags":
		e.Tags = parseTags(value)
	case "hardness":
		if value == "" {
			return nil
		}
		h, err := strconv.Atoi(value)
		if err != nil || h < 0 {
			return fmt.Errorf("hardness %q is not a non-negative integer", value)
		}
		e.Hardness = h
	case versionField:
		return fmt.Errorf("%s may only appear on the first line", versionField)
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "", "false", "no", "0", "n":
		return false, nil
	case "true", "yes", "1", "y":
		return true, nil
	}
	return false, fmt.Errorf("secret %q is not a boolean", value)
}

// parseTags splits a comma-separated list into sorted, de-duplicated tags.
func parseTags(value string) []string {
	var tags []string
	for _, t := range strings.Split(value, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	slices.Sort(tags)
	return slices.Compact(tags)
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
