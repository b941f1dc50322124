package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// StatusInfo describes the archive index for `von status`.
type StatusInfo struct {
	Base       string `json:"base"`
	SourceRoot string `json:"source_root"`

	Entries int       `json:"entries"`
	Secrets int       `json:"secrets"`
	PUIDs   int       `json:"puids"`
	Files   int       `json:"files"`
	Skipped int       `json:"skipped"`
	BuiltAt time.Time `json:"built_at"`

	Backend        string `json:"backend"`
	SnapshotPath   string `json:"snapshot_path"`
	SnapshotExists bool   `json:"snapshot_exists"`
	SnapshotSize   int64  `json:"snapshot_size"`
	Generation     uint64 `json:"generation"`

	// Cache is "warm", "stale" or "cold".
	Cache string `json:"cache"`
}

// StatusRenderer displays index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
	now    func() time.Time
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
		now:    time.Now,
	}
}

// Render displays status info to terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Archive: "+info.Base))

	if !info.SnapshotExists {
		_, _ = fmt.Fprintf(r.out, "  %s\n", r.styles.Warning.Render("No snapshot yet. Run 'von reindex'."))
		_, _ = fmt.Fprintf(r.out, "  Source:     %s\n", info.SourceRoot)
		_, _ = fmt.Fprintf(r.out, "  Snapshot:   %s (%s)\n", info.SnapshotPath, info.Backend)
		return nil
	}

	_, _ = fmt.Fprintf(r.out, "  Entries:    %d (%d secret)\n", info.Entries, info.Secrets)
	_, _ = fmt.Fprintf(r.out, "  PUIDs:      %d\n", info.PUIDs)
	_, _ = fmt.Fprintf(r.out, "  Files:      %d", info.Files)
	if info.Skipped > 0 {
		_, _ = fmt.Fprintf(r.out, " %s", r.styles.Warning.Render(fmt.Sprintf("(%d entries skipped)", info.Skipped)))
	}
	_, _ = fmt.Fprintln(r.out)
	if !info.BuiltAt.IsZero() {
		_, _ = fmt.Fprintf(r.out, "  Built:      %s\n", formatTime(info.BuiltAt, r.now()))
	}
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintf(r.out, "  Source:     %s\n", info.SourceRoot)
	_, _ = fmt.Fprintf(r.out, "  Snapshot:   %s\n", info.SnapshotPath)
	_, _ = fmt.Fprintf(r.out, "  Backend:    %s, %s\n", info.Backend, FormatBytes(info.SnapshotSize))
	_, _ = fmt.Fprintf(r.out, "  Generation: %d\n", info.Generation)
	_, _ = fmt.Fprintf(r.out, "  Cache:      %s\n", r.renderCache(info.Cache))
	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

func (r *StatusRenderer) renderCache(state string) string {
	switch state {
	case "warm":
		return r.styles.Success.Render(state)
	case "stale":
		return r.styles.Warning.Render(state)
	default:
		return r.styles.Dim.Render(state)
	}
}

// formatTime formats t relative to now for display.
func formatTime(t, now time.Time) string {
	diff := now.Sub(t)

	switch {
	case diff < 0:
		return t.Local().Format("2006-01-02 15:04")
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return plural(int(diff.Minutes()), "minute") + " ago"
	case diff < 24*time.Hour:
		return plural(int(diff.Hours()), "hour") + " ago"
	case diff < 7*24*time.Hour:
		return plural(int(diff.Hours()/24), "day") + " ago"
	default:
		return t.Local().Format("2006-01-02 15:04")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
