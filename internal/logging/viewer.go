package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Record is one line of the log file. Lines that are not slog JSON keep
// only Raw and are always shown.
type Record struct {
	Time       time.Time
	Level      string
	Msg        string
	Attrs      map[string]any
	Raw        string
	Structured bool
}

// ViewerConfig selects which records `von logs` prints.
type ViewerConfig struct {
	Level   string         // minimum level shown
	Pattern *regexp.Regexp // matched against the raw line
	NoColor bool
}

// Viewer reads the von log file back for display.
type Viewer struct {
	config ViewerConfig
	out    io.Writer
	colors map[string]lipgloss.Style
}

var levelColors = map[string]string{
	"DEBUG": "245",
	"INFO":  "154",
	"WARN":  "220",
	"ERROR": "196",
}

// NewViewer creates a viewer printing to out.
func NewViewer(cfg ViewerConfig, out io.Writer) *Viewer {
	v := &Viewer{config: cfg, out: out, colors: map[string]lipgloss.Style{}}
	if cfg.NoColor {
		return v
	}
	for level, color := range levelColors {
		v.colors[level] = lipgloss.NewStyle().Foreground(lipgloss.Color(color))
	}
	return v
}

const maxLineSize = 1024 * 1024

// Tail reads the last n lines of path (all of them when n <= 0) and returns
// the records that pass the level and pattern filters, oldest first.
func (v *Viewer) Tail(path string, n int) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var (
		ring  []string
		next  int
		total int
	)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		total++
		if n <= 0 || len(ring) < n {
			ring = append(ring, sc.Text())
			continue
		}
		ring[next] = sc.Text()
		next = (next + 1) % n
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read log %s: %w", path, err)
	}
	if n > 0 && total > n {
		ring = append(ring[next:], ring[:next]...)
	}

	var out []Record
	for _, line := range ring {
		if rec := decodeRecord(line); v.keep(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Format renders one record as "HH:MM:SS.mmm LEVEL msg k=v ...", with
// attributes in key order.
func (v *Viewer) Format(rec Record) string {
	if !rec.Structured {
		return rec.Raw
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s %s", rec.Time.Format("15:04:05.000"), v.level(rec.Level), rec.Msg)
	for _, k := range slices.Sorted(maps.Keys(rec.Attrs)) {
		fmt.Fprintf(&sb, " %s=%v", k, rec.Attrs[k])
	}
	return sb.String()
}

// Print writes each record on its own line.
func (v *Viewer) Print(recs []Record) {
	for _, rec := range recs {
		_, _ = fmt.Fprintln(v.out, v.Format(rec))
	}
}

func decodeRecord(line string) Record {
	rec := Record{Raw: line}

	var fields map[string]any
	if json.Unmarshal([]byte(line), &fields) != nil {
		return rec
	}
	rec.Structured = true

	if s, ok := fields[slogTime].(string); ok {
		rec.Time, _ = time.Parse(time.RFC3339Nano, s)
	}
	rec.Level, _ = fields[slogLevel].(string)
	rec.Msg, _ = fields[slogMsg].(string)
	delete(fields, slogTime)
	delete(fields, slogLevel)
	delete(fields, slogMsg)
	rec.Attrs = fields
	return rec
}

const (
	slogTime  = "time"
	slogLevel = "level"
	slogMsg   = "msg"
)

func (v *Viewer) keep(rec Record) bool {
	if rec.Structured && v.config.Level != "" &&
		LevelFromString(rec.Level) < LevelFromString(v.config.Level) {
		return false
	}
	return v.config.Pattern == nil || v.config.Pattern.MatchString(rec.Raw)
}

// level pads the level name to five columns and colors it.
func (v *Viewer) level(name string) string {
	label := strings.ToUpper(name)
	if len(label) > 5 {
		label = label[:5]
	}
	padded := fmt.Sprintf("%-5s", label)
	if style, ok := v.colors[label]; ok {
		return style.Render(padded)
	}
	return padded
}
