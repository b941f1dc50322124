package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		current, total int
		want           string
	}{
		{0, 10, "░░░░░░░░░░"},
		{5, 10, "█████░░░░░"},
		{10, 10, "██████████"},
		{12, 10, "██████████"},
		{3, 0, "░░░░░░░░░░"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, renderProgressBar(tt.current, tt.total, 10))
	}
}

func TestProgress_NonInteractivePrintsOnlySummary(t *testing.T) {
	// Given: a non-interactive reporter
	var buf bytes.Buffer
	p := NewProgress(&buf, false, true)

	// When: files are parsed and the build completes
	p.Update(1, 2, "a.tex")
	p.Update(2, 2, "b.tex")
	p.Complete(CompletionStats{
		Entries:    7,
		Files:      2,
		Skipped:    1,
		Generation: 3,
		Snapshot:   "/archive/.von/index.json",
		Duration:   1500 * time.Microsecond,
	})

	// Then: no progress lines, just the summary
	want := "Indexed 7 entries from 2 files (1 skipped) in 2ms\n" +
		"Generation 3 → /archive/.von/index.json\n"
	assert.Equal(t, want, buf.String())
}

func TestProgress_InteractiveRedrawsInPlace(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, true, true)

	p.Update(1, 4, "a.tex")
	p.Update(1, 4, "a.tex") // same percentage, skipped
	p.Update(4, 4, "d.tex")
	p.Complete(CompletionStats{Entries: 1, Files: 4})

	out := buf.String()
	assert.Equal(t, 3, strings.Count(out, "\r"), "two draws and one clear")
	assert.Contains(t, out, " 25% a.tex")
	assert.Contains(t, out, "100% d.tex")
	assert.True(t, strings.HasSuffix(out, "Indexed 1 entries from 4 files in 0s\n"))
}
