package demacro

import (
	"strings"
)

// extract finds macro definitions in text and returns them together with
// text minus the definitions. A definition alone on its line is removed
// along with the line break. Later definitions of a name win.
func extract(text string) (map[string]macro, string) {
	var defs map[string]macro
	var sb strings.Builder

	last := 0
	for i := 0; i < len(text); i++ {
		if text[i] != '\\' {
			continue
		}
		word, end := controlWord(text, i)
		if word == "" {
			i++ // skip the escaped character
			continue
		}
		if !isDefiner(word) {
			i = end - 1
			continue
		}
		m, defEnd, ok := parseDefinition(text, end, word == "def")
		if !ok {
			i = end - 1
			continue
		}
		if defs == nil {
			defs = make(map[string]macro)
		}
		defs[m.name] = m

		start, stop := wholeLine(text, i, defEnd)
		sb.WriteString(text[last:start])
		last = stop
		i = stop - 1
	}
	if defs == nil {
		return nil, text
	}
	sb.WriteString(text[last:])
	return defs, sb.String()
}

// parseDefinition parses what follows a definer command at pos.
//
//	\newcommand{\name}[n]{body}   \newcommand*\name{body}
//	\def\name#1#2{body}
func parseDefinition(text string, pos int, isDef bool) (macro, int, bool) {
	var m macro
	if !isDef && pos < len(text) && text[pos] == '*' {
		pos++
	}
	pos = skipSpace(text, pos)

	// Name, optionally braced for the LaTeX forms.
	braced := !isDef && pos < len(text) && text[pos] == '{'
	if braced {
		pos = skipSpace(text, pos+1)
	}
	if pos >= len(text) || text[pos] != '\\' {
		return m, 0, false
	}
	name, end := controlWord(text, pos)
	if name == "" {
		return m, 0, false
	}
	m.name = name
	pos = end
	if braced {
		pos = skipSpace(text, pos)
		if pos >= len(text) || text[pos] != '}' {
			return m, 0, false
		}
		pos++
	}

	if isDef {
		// Parameter text: #1#2... up to the opening brace.
		for pos < len(text) && text[pos] == '#' && pos+1 < len(text) && text[pos+1] >= '1' && text[pos+1] <= '9' {
			m.nargs++
			pos += 2
		}
	} else {
		pos = skipSpace(text, pos)
		if pos < len(text) && text[pos] == '[' {
			closeAt := strings.IndexByte(text[pos:], ']')
			if closeAt < 0 {
				return m, 0, false
			}
			n := strings.TrimSpace(text[pos+1 : pos+closeAt])
			if len(n) != 1 || n[0] < '0' || n[0] > '9' {
				return m, 0, false
			}
			m.nargs = int(n[0] - '0')
			pos += closeAt + 1
			pos = skipSpace(text, pos)
			if pos < len(text) && text[pos] == '[' {
				// Optional-argument defaults are not supported.
				return m, 0, false
			}
		}
	}

	pos = skipSpace(text, pos)
	body, end, ok := braceGroup(text, pos)
	if !ok {
		return m, 0, false
	}
	m.body = body
	return m, end, true
}

// wholeLine widens [start, end) to the full line when the definition is the
// only thing on it.
func wholeLine(text string, start, end int) (int, int) {
	lineStart := strings.LastIndexByte(text[:start], '\n') + 1
	if strings.TrimSpace(text[lineStart:start]) != "" {
		return start, end
	}
	rest := text[end:]
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		if strings.TrimSpace(rest) != "" {
			return start, end
		}
		return lineStart, len(text)
	}
	if strings.TrimSpace(rest[:nl]) != "" {
		return start, end
	}
	return lineStart, end + nl + 1
}

// controlWord reads the letters of a control word starting at the backslash
// at pos. It returns "" for control symbols.
func controlWord(text string, pos int) (string, int) {
	end := pos + 1
	for end < len(text) && isLetter(text[end]) {
		end++
	}
	return text[pos+1 : end], end
}

// braceGroup returns the content of the balanced {...} group at pos.
func braceGroup(text string, pos int) (string, int, bool) {
	if pos >= len(text) || text[pos] != '{' {
		return "", 0, false
	}
	depth := 0
	for i := pos; i < len(text); i++ {
		switch text[i] {
		case '\\':
			i++
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[pos+1 : i], i + 1, true
			}
		}
	}
	return "", 0, false
}

func skipSpace(text string, pos int) int {
	for pos < len(text) && (text[pos] == ' ' || text[pos] == '\t' || text[pos] == '\n' || text[pos] == '\r') {
		pos++
	}
	return pos
}

func isDefiner(word string) bool {
	for _, d := range definers {
		if word == d {
			return true
		}
	}
	return false
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
