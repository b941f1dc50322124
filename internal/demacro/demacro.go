// Package demacro expands archive-local TeX macro definitions so that entry
// bodies become self-contained text for search and rendering.
package demacro

import (
	"strings"
)

// maxPasses bounds repeated expansion. Cyclic macros are excluded before
// expansion, so the bound is only reached by pathological input.
const maxPasses = 32

// macro is one zero-or-more argument definition.
type macro struct {
	name  string
	nargs int
	body  string
}

// definers are the commands that introduce a macro.
var definers = []string{"newcommand", "renewcommand", "providecommand", "def"}

// Expand removes macro definitions from text and replaces every use of a
// defined macro with its body. Expand is idempotent: its output contains no
// definitions, so expanding it again changes nothing.
func Expand(text string) string {
	out := text
	for pass := 0; pass < maxPasses; pass++ {
		defs, stripped := extract(out)
		if len(defs) == 0 {
			return out
		}
		out = expandAll(stripped, acyclic(defs))
	}
	// Anything still defined after maxPasses is dropped so the result is
	// stable under another call.
	_, stripped := extract(out)
	return stripped
}

// expandAll repeats single-pass expansion until nothing changes.
func expandAll(text string, defs map[string]macro) string {
	if len(defs) == 0 {
		return text
	}
	for pass := 0; pass < maxPasses; pass++ {
		next := expandOnce(text, defs)
		if next == text {
			return next
		}
		text = next
	}
	return text
}

// expandOnce replaces each macro use in text once.
func expandOnce(text string, defs map[string]macro) string {
	var sb strings.Builder
	sb.Grow(len(text))

	for i := 0; i < len(text); {
		if text[i] != '\\' {
			sb.WriteByte(text[i])
			i++
			continue
		}
		name, end := controlWord(text, i)
		if name == "" {
			// Control symbol such as \\ or \{: copy both bytes.
			end = min(i+2, len(text))
			sb.WriteString(text[i:end])
			i = end
			continue
		}
		m, ok := defs[name]
		if !ok {
			sb.WriteString(text[i:end])
			i = end
			continue
		}
		args, argsEnd, ok := readArgs(text, end, m.nargs)
		if !ok {
			sb.WriteString(text[i:end])
			i = end
			continue
		}
		sb.WriteString(substitute(m.body, args))
		i = argsEnd
	}
	return sb.String()
}

// substitute replaces #1..#9 in body with args; ## becomes #.
func substitute(body string, args []string) string {
	if !strings.Contains(body, "#") {
		return body
	}
	var sb strings.Builder
	for i := 0; i < len(body); i++ {
		if body[i] != '#' || i+1 == len(body) {
			sb.WriteByte(body[i])
			continue
		}
		next := body[i+1]
		switch {
		case next == '#':
			sb.WriteByte('#')
			i++
		case next >= '1' && next <= '9' && int(next-'0') <= len(args):
			sb.WriteString(args[next-'1'])
			i++
		default:
			sb.WriteByte('#')
		}
	}
	return sb.String()
}

// readArgs reads n brace-delimited arguments starting at pos, skipping
// whitespace between them.
func readArgs(text string, pos, n int) ([]string, int, bool) {
	args := make([]string, 0, n)
	for k := 0; k < n; k++ {
		pos = skipSpace(text, pos)
		content, end, ok := braceGroup(text, pos)
		if !ok {
			return nil, 0, false
		}
		args = append(args, content)
		pos = end
	}
	return args, pos, true
}

// acyclic drops macros whose expansion would reference themselves, directly
// or through other macros. Their uses are left untouched.
func acyclic(defs map[string]macro) map[string]macro {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(defs))
	cyclic := make(map[string]bool)

	var visit func(name string) bool
	visit = func(name string) bool {
		switch state[name] {
		case visiting:
			return true
		case done:
			return cyclic[name]
		}
		state[name] = visiting
		found := false
		for _, ref := range references(defs[name].body) {
			if _, ok := defs[ref]; ok && visit(ref) {
				found = true
			}
		}
		state[name] = done
		if found {
			cyclic[name] = true
		}
		return found
	}

	out := make(map[string]macro, len(defs))
	for name, m := range defs {
		if !visit(name) {
			out[name] = m
		}
	}
	return out
}

// references lists the control words used in body.
func references(body string) []string {
	var refs []string
	for i := 0; i < len(body); i++ {
		if body[i] != '\\' {
			continue
		}
		name, end := controlWord(body, i)
		if name == "" {
			i++
			continue
		}
		refs = append(refs, name)
		i = end - 1
	}
	return refs
}
