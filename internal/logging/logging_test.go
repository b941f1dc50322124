package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
)

func TestDefaultLogPath(t *testing.T) {
	path := DefaultLogPath()

	if filepath.Base(path) != "von.log" {
		t.Errorf("DefaultLogPath should end with von.log, got: %s", path)
	}
	if !strings.Contains(path, filepath.Join(".von", "logs")) {
		t.Errorf("DefaultLogPath should live under .von/logs, got: %s", path)
	}
}

func TestDefaultAndDebugConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != "info" || cfg.MaxSizeMB != 10 || cfg.MaxFiles != 5 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.WriteToStderr {
		t.Error("default config must not write to stderr")
	}

	debug := DebugConfig()
	if debug.Level != "debug" || !debug.WriteToStderr {
		t.Errorf("unexpected debug config: %+v", debug)
	}
}

func TestSetup_WritesJSONLines(t *testing.T) {
	// Given: a logger writing to a temp file
	logPath := filepath.Join(t.TempDir(), "logs", "test.log")
	logger, cleanup, err := Setup(Config{Level: "info", FilePath: logPath, MaxSizeMB: 1, MaxFiles: 2})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	// When: logging below and at the level
	logger.Debug("hidden_event")
	logger.Info("index_built", slog.Int("entries", 3))
	cleanup()

	// Then: only the info record is written, as JSON
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "hidden_event") {
		t.Error("debug record written at info level")
	}
	if !strings.Contains(content, `"msg":"index_built"`) || !strings.Contains(content, `"entries":3`) {
		t.Errorf("missing info record: %s", content)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := LevelFromString(in); got != want {
			t.Errorf("LevelFromString(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRotatingWriter_Rotates(t *testing.T) {
	// Given: a writer with a 1MB limit and two rotated files
	dir := t.TempDir()
	path := filepath.Join(dir, "von.log")
	w, err := NewRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer func() { _ = w.Close() }()

	// When: writing four chunks just over half the limit each
	chunk := []byte(strings.Repeat("x", 600*1024) + "\n")
	for i := 0; i < 4; i++ {
		if _, err := w.Write(chunk); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	// Then: the current file plus at most two rotated files exist
	for _, name := range []string{"von.log", "von.log.1", "von.log.2"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "von.log.3")); !os.IsNotExist(err) {
		t.Error("von.log.3 should have been removed")
	}
}

func TestRotatingWriter_AppendsToExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "von.log")
	if err := os.WriteFile(path, []byte("first\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewRotatingWriter(path, 1, 1)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	_, _ = w.Write([]byte("second\n"))
	_ = w.Close()

	data, _ := os.ReadFile(path)
	if string(data) != "first\nsecond\n" {
		t.Errorf("got %q", data)
	}
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "von.log")
	w, err := NewRotatingWriter(path, 1, 1)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, _ = w.Write([]byte("line\n"))
			}
		}()
	}
	wg.Wait()
	_ = w.Close()

	data, _ := os.ReadFile(path)
	if got := strings.Count(string(data), "line\n"); got != 400 {
		t.Errorf("expected 400 lines, got %d", got)
	}
}

func TestFindLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.log")
	if _, err := FindLogFile(path); err == nil {
		t.Error("expected error for missing explicit file")
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := FindLogFile(path)
	if err != nil || got != path {
		t.Errorf("FindLogFile = %q, %v", got, err)
	}
}

const sampleLog = `{"time":"2024-05-01T12:00:00.000Z","level":"DEBUG","msg":"search_completed","query":"euler","results":2}
not json at all
{"time":"2024-05-01T12:00:01.000Z","level":"INFO","msg":"index_built","entries":3,"duration":"1ms"}
{"time":"2024-05-01T12:00:02.000Z","level":"WARN","msg":"entry_parse_failed","path":"a.tex","line":7}
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "von.log")
	if err := os.WriteFile(path, []byte(sampleLog), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestViewer_TailAndFormat(t *testing.T) {
	var out strings.Builder
	v := NewViewer(ViewerConfig{NoColor: true}, &out)

	entries, err := v.Tail(writeSample(t), 2)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	v.Print(entries)
	want := "12:00:01.000 INFO  index_built duration=1ms entries=3\n" +
		"12:00:02.000 WARN  entry_parse_failed line=7 path=a.tex\n"
	if out.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestViewer_Filters(t *testing.T) {
	path := writeSample(t)

	byLevel := NewViewer(ViewerConfig{Level: "info", NoColor: true}, nil)
	entries, err := byLevel.Tail(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	// The invalid line is kept; the debug record is dropped.
	if len(entries) != 3 {
		t.Errorf("expected 3 entries, got %d", len(entries))
	}

	byPattern := NewViewer(ViewerConfig{Pattern: regexp.MustCompile(`a\.tex`)}, nil)
	entries, err = byPattern.Tail(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Msg != "entry_parse_failed" {
		t.Errorf("unexpected pattern match: %+v", entries)
	}
}
