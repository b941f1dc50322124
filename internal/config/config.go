package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	vonerrors "github.com/Aman-CERP/von/internal/errors"
	"github.com/Aman-CERP/von/internal/search"
	"github.com/Aman-CERP/von/internal/store"
)

// BaseConfigName is the per-archive configuration file.
const BaseConfigName = ".von.yaml"

// Config represents the complete von configuration.
type Config struct {
	Version  int            `yaml:"version" json:"version"`
	BasePath string         `yaml:"base_path,omitempty" json:"base_path,omitempty"`
	Paths    PathsConfig    `yaml:"paths" json:"paths"`
	Snapshot SnapshotConfig `yaml:"snapshot" json:"snapshot"`
	Search   SearchConfig   `yaml:"search" json:"search"`
	Picker   PickerConfig   `yaml:"picker" json:"picker"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
}

// PathsConfig locates the archive's directories relative to the base path
// and selects which source files are indexed.
type PathsConfig struct {
	SourceDir   string   `yaml:"source_dir" json:"source_dir"`
	DataDir     string   `yaml:"data_dir" json:"data_dir"`
	AssetsDir   string   `yaml:"assets_dir" json:"assets_dir"`
	Include     []string `yaml:"include" json:"include"`
	Exclude     []string `yaml:"exclude" json:"exclude"`
	MaxFileSize int64    `yaml:"max_file_size" json:"max_file_size"`
}

// SnapshotConfig selects the snapshot backend.
type SnapshotConfig struct {
	// Backend is "json" (default) or "sqlite".
	Backend string `yaml:"backend" json:"backend"`
}

// SearchConfig configures query behavior.
type SearchConfig struct {
	// FieldOrder is the tier order after an exact key match.
	FieldOrder []string `yaml:"field_order" json:"field_order"`

	// Limit caps search output (0 = unlimited).
	Limit int `yaml:"limit" json:"limit"`

	// CacheSize bounds the normalized body cache.
	CacheSize int `yaml:"cache_size" json:"cache_size"`

	// SuggestThreshold is the minimum similarity for did-you-mean hints.
	SuggestThreshold float64 `yaml:"suggest_threshold" json:"suggest_threshold"`

	// Suggestions is how many hints to offer for a missing key.
	Suggestions int `yaml:"suggestions" json:"suggestions"`
}

// PickerConfig configures the external fuzzy finder.
type PickerConfig struct {
	Command string `yaml:"command" json:"command"`
}

// LoggingConfig configures the log file.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Paths: PathsConfig{
			SourceDir:   "src",
			DataDir:     ".von",
			AssetsDir:   "tikz",
			Include:     []string{"**/*.tex"},
			Exclude:     []string{},
			MaxFileSize: 4 * 1024 * 1024,
		},
		Snapshot: SnapshotConfig{
			Backend: string(store.BackendJSON),
		},
		Search: SearchConfig{
			FieldOrder:       []string{"key", "source", "body"},
			Limit:            0,
			CacheSize:        search.DefaultHaystackCacheSize,
			SuggestThreshold: search.DefaultSuggestThreshold,
			Suggestions:      3,
		},
		Picker: PickerConfig{
			Command: "fzf",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/von/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/von/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "von", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "von", "config.yaml")
	}
	return filepath.Join(home, ".config", "von", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	var parsed Config
	if err := readYAML(configPath, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// LoadUserConfig loads the user configuration file.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// ResolveBase picks the archive base path: flag, then VON_BASE_PATH, then
// base_path from the user config, then the nearest ancestor of the working
// directory holding a .von.yaml or data directory.
func ResolveBase(flag string) (string, error) {
	candidate := flag
	if candidate == "" {
		candidate = os.Getenv("VON_BASE_PATH")
	}
	if candidate == "" {
		userCfg, err := loadUserConfig()
		if err != nil {
			return "", err
		}
		if userCfg != nil {
			candidate = userCfg.BasePath
		}
	}
	if candidate != "" {
		abs, err := filepath.Abs(expandHome(candidate))
		if err != nil {
			return "", vonerrors.ConfigError(fmt.Sprintf("invalid base path %q", candidate), err)
		}
		return abs, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", vonerrors.IOError("failed to get working directory", err)
	}
	return FindBase(cwd)
}

// Load loads configuration for the archive at base.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/von/config.yaml)
//  3. Archive config (.von.yaml in the base path)
//  4. Environment variables (VON_*)
func Load(base string) (*Config, error) {
	cfg := NewConfig()

	userCfg, err := loadUserConfig()
	if err != nil {
		return nil, err
	}
	if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(base); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads defaults overlaid with an explicit config file, then
// environment overrides. Used for --config.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if !fileExists(path) {
		return nil, vonerrors.New(vonerrors.ErrCodeConfigNotFound,
			fmt.Sprintf("config file %s not found", path), nil)
	}
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile loads .von.yaml or .von.yml from dir if present.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, BaseConfigName)
	if fileExists(yamlPath) {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".von.yml")
	if fileExists(ymlPath) {
		return c.loadYAML(ymlPath)
	}

	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	var parsed Config
	if err := readYAML(path, &parsed); err != nil {
		return err
	}
	c.mergeWith(&parsed)
	return nil
}

func readYAML(path string, into *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return vonerrors.IOError(fmt.Sprintf("failed to read config file %s", path), err)
	}
	if err := yaml.Unmarshal(data, into); err != nil {
		return vonerrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path)
	}
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.BasePath != "" {
		c.BasePath = other.BasePath
	}

	if other.Paths.SourceDir != "" {
		c.Paths.SourceDir = other.Paths.SourceDir
	}
	if other.Paths.DataDir != "" {
		c.Paths.DataDir = other.Paths.DataDir
	}
	if other.Paths.AssetsDir != "" {
		c.Paths.AssetsDir = other.Paths.AssetsDir
	}
	if len(other.Paths.Include) > 0 {
		c.Paths.Include = other.Paths.Include
	}
	if len(other.Paths.Exclude) > 0 {
		// Exclusions accumulate across layers.
		c.Paths.Exclude = append(c.Paths.Exclude, other.Paths.Exclude...)
	}
	if other.Paths.MaxFileSize != 0 {
		c.Paths.MaxFileSize = other.Paths.MaxFileSize
	}

	if other.Snapshot.Backend != "" {
		c.Snapshot.Backend = other.Snapshot.Backend
	}

	if len(other.Search.FieldOrder) > 0 {
		c.Search.FieldOrder = other.Search.FieldOrder
	}
	if other.Search.Limit != 0 {
		c.Search.Limit = other.Search.Limit
	}
	if other.Search.CacheSize != 0 {
		c.Search.CacheSize = other.Search.CacheSize
	}
	if other.Search.SuggestThreshold != 0 {
		c.Search.SuggestThreshold = other.Search.SuggestThreshold
	}
	if other.Search.Suggestions != 0 {
		c.Search.Suggestions = other.Search.Suggestions
	}

	if other.Picker.Command != "" {
		c.Picker.Command = other.Picker.Command
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies VON_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("VON_BASE_PATH"); v != "" {
		c.BasePath = v
	}
	if v := os.Getenv("VON_SNAPSHOT_BACKEND"); v != "" {
		c.Snapshot.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("VON_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("VON_PICKER"); v != "" {
		c.Picker.Command = v
	}
	if v := os.Getenv("VON_SEARCH_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Search.Limit = n
		}
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	switch store.Backend(c.Snapshot.Backend) {
	case store.BackendJSON, store.BackendSQLite:
	default:
		return vonerrors.ConfigError(
			fmt.Sprintf("snapshot.backend must be 'json' or 'sqlite', got %q", c.Snapshot.Backend), nil)
	}

	if _, err := search.ParseFields(c.Search.FieldOrder); err != nil {
		return err
	}
	if len(c.Search.FieldOrder) == 0 {
		return vonerrors.ConfigError("search.field_order must list at least one field", nil)
	}
	if c.Search.Limit < 0 {
		return vonerrors.ConfigError(fmt.Sprintf("search.limit must be non-negative, got %d", c.Search.Limit), nil)
	}
	if c.Search.SuggestThreshold < 0 || c.Search.SuggestThreshold > 1 {
		return vonerrors.ConfigError(
			fmt.Sprintf("search.suggest_threshold must be between 0 and 1, got %f", c.Search.SuggestThreshold), nil)
	}

	if len(c.Paths.Include) == 0 {
		return vonerrors.ConfigError("paths.include must list at least one pattern", nil)
	}
	for name, dir := range map[string]string{
		"source_dir": c.Paths.SourceDir,
		"data_dir":   c.Paths.DataDir,
	} {
		if strings.TrimSpace(dir) == "" {
			return vonerrors.ConfigError(fmt.Sprintf("paths.%s must not be empty", name), nil)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return vonerrors.ConfigError(
			fmt.Sprintf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level), nil)
	}

	return nil
}

// SearchEngineConfig converts the search section for the engine. Validate must
// have succeeded.
func (c *Config) SearchEngineConfig() search.Config {
	fields, _ := search.ParseFields(c.Search.FieldOrder)
	return search.Config{
		FieldOrder:       fields,
		CacheSize:        c.Search.CacheSize,
		SuggestThreshold: float32(c.Search.SuggestThreshold),
	}
}

// SourceRoot returns the absolute source directory under base.
func (c *Config) SourceRoot(base string) string {
	return resolveUnder(base, c.Paths.SourceDir)
}

// DataPath returns the absolute data directory under base.
func (c *Config) DataPath(base string) string {
	return resolveUnder(base, c.Paths.DataDir)
}

// AssetsPath returns the absolute assets directory under base.
func (c *Config) AssetsPath(base string) string {
	return resolveUnder(base, c.Paths.AssetsDir)
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return vonerrors.InternalError("failed to marshal config", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return vonerrors.IOError("failed to create config directory", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return vonerrors.IOError("failed to write config file", err)
	}
	return nil
}

// FindBase finds the archive base path by walking up from startDir looking
// for a .von.yaml file or a .von directory. Without either, startDir itself
// is the base.
func FindBase(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", vonerrors.IOError("failed to get absolute path", err)
	}

	currentDir := absDir
	for {
		if fileExists(filepath.Join(currentDir, BaseConfigName)) ||
			fileExists(filepath.Join(currentDir, ".von.yml")) ||
			dirExists(filepath.Join(currentDir, ".von")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// resolveUnder joins rel to base unless rel is absolute.
func resolveUnder(base, rel string) string {
	rel = expandHome(rel)
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(base, rel)
}

// expandHome replaces a leading ~ with the home directory.
func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
