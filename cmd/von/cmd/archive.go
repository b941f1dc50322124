package cmd

import (
	"context"
	"io"
	"log/slog"

	"github.com/Aman-CERP/von/internal/config"
	"github.com/Aman-CERP/von/internal/index"
	"github.com/Aman-CERP/von/internal/output"
	"github.com/Aman-CERP/von/internal/search"
	"github.com/Aman-CERP/von/internal/store"
	"github.com/Aman-CERP/von/internal/ui"
)

// archive bundles what the archive commands share.
type archive struct {
	base   string
	cfg    *config.Config
	holder *store.Holder
	engine *search.Engine
}

// loadConfig resolves the base path and loads its configuration. With
// --config the file replaces the layered lookup and may set base_path.
func loadConfig() (string, *config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return "", nil, err
		}
		flag := basePath
		if flag == "" {
			flag = cfg.BasePath
		}
		base, err := config.ResolveBase(flag)
		if err != nil {
			return "", nil, err
		}
		return base, cfg, nil
	}

	base, err := config.ResolveBase(basePath)
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.Load(base)
	if err != nil {
		return "", nil, err
	}
	return base, cfg, nil
}

// openArchive wires config, snapshot, builder, holder and engine. progress
// may be nil.
func openArchive(progress index.ProgressFunc) (*archive, error) {
	base, cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	dataDir := cfg.DataPath(base)
	snap, err := store.NewSnapshot(dataDir, cfg.Snapshot.Backend)
	if err != nil {
		return nil, err
	}

	opts := []index.Option{
		index.WithPatterns(cfg.Paths.Include, cfg.Paths.Exclude),
		index.WithMaxFileSize(cfg.Paths.MaxFileSize),
	}
	if progress != nil {
		opts = append(opts, index.WithProgress(progress))
	}
	builder := index.NewBuilder(opts...)

	holder := store.NewHolder(cfg.SourceRoot(base), snap, builder, store.NewFileLock(dataDir))
	engine := search.New(holder, cfg.SearchEngineConfig())

	slog.Debug("archive_opened",
		slog.String("base", base),
		slog.String("backend", cfg.Snapshot.Backend),
		slog.String("snapshot", snap.Path()))

	return &archive{base: base, cfg: cfg, holder: holder, engine: engine}, nil
}

// Close releases the engine's full-text index.
func (a *archive) Close() error {
	return a.engine.Close()
}

// suggest returns did-you-mean keys for a missing key. Failures yield none.
func (a *archive) suggest(ctx context.Context, key string) []string {
	hints, err := a.engine.Suggest(ctx, key, a.cfg.Search.Suggestions)
	if err != nil {
		slog.Warn("suggest_failed", slog.String("key", key), slog.String("error", err.Error()))
		return nil
	}
	return hints
}

// colorOff reports whether output to w should be unstyled.
func colorOff(w io.Writer) bool {
	return noColor || ui.NoColor(w)
}

// writer returns the message writer for w.
func writer(w io.Writer) *output.Writer {
	return output.NewWithColor(w, !colorOff(w))
}
