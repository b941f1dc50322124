package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// barWidth is the width of the progress bar in cells.
const barWidth = 30

// CompletionStats summarizes a finished reindex.
type CompletionStats struct {
	Entries    int
	Files      int
	Skipped    int
	Generation uint64
	Snapshot   string
	Duration   time.Duration
}

// Progress reports reindex progress. Update matches index.ProgressFunc.
// Interactive mode redraws one line in place; otherwise only the summary is
// printed.
type Progress struct {
	mu          sync.Mutex
	out         io.Writer
	interactive bool
	styles      Styles
	drawn       bool
	lastPct     int
}

// NewProgress creates a progress reporter writing to out.
func NewProgress(out io.Writer, interactive, noColor bool) *Progress {
	return &Progress{
		out:         out,
		interactive: interactive,
		styles:      GetStyles(noColor),
		lastPct:     -1,
	}
}

// Update records that done of total files have been parsed.
func (p *Progress) Update(done, total int, path string) {
	if !p.interactive || total <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	pct := done * 100 / total
	if pct == p.lastPct && done != total {
		return
	}
	p.lastPct = pct

	bar := p.styles.Progress.Render(renderProgressBar(done, total, barWidth))
	_, _ = fmt.Fprintf(p.out, "\r\033[K[%s] %3d%% %s", bar, pct, p.styles.Dim.Render(path))
	p.drawn = true
}

// Complete clears the progress line and prints the summary.
func (p *Progress) Complete(stats CompletionStats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.drawn {
		_, _ = fmt.Fprint(p.out, "\r\033[K")
		p.drawn = false
	}

	summary := fmt.Sprintf("Indexed %d entries from %d files", stats.Entries, stats.Files)
	if stats.Skipped > 0 {
		summary += fmt.Sprintf(" (%d skipped)", stats.Skipped)
	}
	summary += fmt.Sprintf(" in %s", stats.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintln(p.out, p.styles.Success.Render(summary))

	if stats.Snapshot != "" {
		_, _ = fmt.Fprintf(p.out, "%s %d %s\n",
			p.styles.Label.Render("Generation"), stats.Generation,
			p.styles.Dim.Render("→ "+stats.Snapshot))
	}
}

// renderProgressBar creates a text progress bar.
func renderProgressBar(current, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}
	filled := current * width / total
	filled = max(0, min(filled, width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
