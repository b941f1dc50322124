package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	vonerrors "github.com/Aman-CERP/von/internal/errors"
)

const (
	// MaxBackups is the number of user config backups kept.
	MaxBackups = 3

	// BackupSuffix precedes the timestamp in backup file names.
	BackupSuffix = ".bak"
)

// now is replaced in tests.
var now = time.Now

// InitUserConfig writes cfg as the user config. An existing file is kept
// unless force is set, in which case it is backed up first. It returns the
// backup path, or "" when nothing was backed up.
func InitUserConfig(cfg *Config, force bool) (string, error) {
	path := GetUserConfigPath()
	if UserConfigExists() && !force {
		return "", vonerrors.ConfigError(fmt.Sprintf("user config %s already exists", path), nil).
			WithSuggestion("Pass --force to overwrite it; the old file is backed up")
	}

	backup, err := BackupUserConfig()
	if err != nil {
		return "", err
	}
	if err := cfg.WriteYAML(path); err != nil {
		return backup, err
	}
	return backup, nil
}

// BackupUserConfig copies the user config to a timestamped backup and prunes
// all but the newest MaxBackups. With no user config it returns "".
func BackupUserConfig() (string, error) {
	configPath := GetUserConfigPath()
	if !UserConfigExists() {
		return "", nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", vonerrors.IOError("failed to read config for backup", err)
	}

	backupPath := fmt.Sprintf("%s%s.%s", configPath, BackupSuffix, now().Format("20060102-150405.000"))
	if err := os.WriteFile(backupPath, data, 0o644); err != nil {
		return "", vonerrors.IOError("failed to write config backup", err)
	}

	_ = pruneBackups()
	return backupPath, nil
}

// ListUserConfigBackups returns user config backups, newest first.
func ListUserConfigBackups() ([]string, error) {
	configPath := GetUserConfigPath()
	configDir := filepath.Dir(configPath)
	prefix := filepath.Base(configPath) + BackupSuffix + "."

	entries, err := os.ReadDir(configDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, vonerrors.IOError("failed to list config directory", err)
	}

	var backups []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			backups = append(backups, filepath.Join(configDir, e.Name()))
		}
	}
	// Timestamps sort lexically.
	slices.Sort(backups)
	slices.Reverse(backups)
	return backups, nil
}

// pruneBackups removes backups beyond MaxBackups, keeping the newest.
func pruneBackups() error {
	backups, err := ListUserConfigBackups()
	if err != nil || len(backups) <= MaxBackups {
		return err
	}
	for _, b := range backups[MaxBackups:] {
		_ = os.Remove(b)
	}
	return nil
}
