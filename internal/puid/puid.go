// Package puid derives persistent unique identifiers for archive entries.
//
// A PUID is a short, filesystem-safe token computed from an entry's source
// citation. Per-problem assets (diagrams) are stored under file names that
// start with the PUID, so the mapping must never change for a given citation.
package puid

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

// Sentinel is returned for empty or whitespace-only citations.
const Sentinel = "NOSOURCE"

// hashPrefix marks PUIDs that fell back to a content hash.
const hashPrefix = "X"

// citationPattern matches "<contest> <year><sep><problem>", e.g.
// "USAMO 2019/1", "ISL 2017 G8", "China TST 2015 Problem 3".
var citationPattern = regexp.MustCompile(
	`^(.*?[A-Za-z].*?)\s+((?:19|20)\d\d)\s*(?:/|#|\s|[Pp]roblem\s*|[Pp]\s*)\s*([A-Za-z]?\d+)$`)

// Canonical normalizes a citation: NFKC, trimmed, runs of whitespace
// collapsed to one space.
func Canonical(source string) string {
	return strings.Join(strings.Fields(norm.NFKC.String(source)), " ")
}

// Infer returns the PUID of a source citation.
func Infer(source string) string {
	canon := Canonical(source)
	if canon == "" {
		return Sentinel
	}
	if p, ok := fromCitation(canon); ok {
		return p
	}
	return Hash(canon)
}

// Hash returns the content-hash form of a PUID for canonical text.
func Hash(canon string) string {
	return fmt.Sprintf("%s%012x", hashPrefix, xxhash.Sum64String(canon)&0xffffffffffff)
}

// IsHashed reports whether p was produced by the hash fallback.
func IsHashed(p string) bool {
	return len(p) == len(hashPrefix)+12 && strings.HasPrefix(p, hashPrefix)
}

// fromCitation builds ABBR + yy + "P" + problem from a recognizable citation.
func fromCitation(canon string) (string, bool) {
	m := citationPattern.FindStringSubmatch(canon)
	if m == nil {
		return "", false
	}
	abbr := abbreviate(m[1])
	if abbr == "" {
		return "", false
	}
	problem := strings.ToUpper(m[3])
	if !unicode.IsDigit(rune(problem[0])) {
		// Shortlist style: "G8" keeps its letter instead of "P".
		return abbr + m[2][2:] + problem, true
	}
	return abbr + m[2][2:] + "P" + problem, true
}

// abbreviate keeps all-uppercase words whole and takes the initial of the
// rest, dropping anything that is not an ASCII letter or digit.
func abbreviate(contest string) string {
	var sb strings.Builder
	for _, word := range strings.Fields(contest) {
		word = asciiAlnum(word)
		if word == "" {
			continue
		}
		if word == strings.ToUpper(word) {
			sb.WriteString(word)
			continue
		}
		sb.WriteString(strings.ToUpper(word[:1]))
	}
	return sb.String()
}

func asciiAlnum(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
