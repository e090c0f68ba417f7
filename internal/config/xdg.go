package config

import (
	"log/slog"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/afero"
)

// AppName is the directory name used under every XDG base directory
const AppName = "mixdeck"

// XDGDirs provides XDG Base Directory compliant paths for mixdeck
type XDGDirs struct {
	fs afero.Fs
}

// NewXDGDirs creates a new XDG directory manager on the OS filesystem
func NewXDGDirs() *XDGDirs {
	return NewXDGDirsWithFilesystem(afero.NewOsFs())
}

// NewXDGDirsWithFilesystem creates an XDG directory manager that creates
// directories on fs
func NewXDGDirsWithFilesystem(fs afero.Fs) *XDGDirs {
	slog.Debug("creating new XDG directory manager")
	return &XDGDirs{fs: fs}
}

// GetSoundpackPaths returns prioritized paths where soundpacks can be found
// Returns paths in search order: user data dir, then system data dirs
func (x *XDGDirs) GetSoundpackPaths(soundpackID string) []string {
	var paths []string

	baseDir := filepath.Join(AppName, "soundpacks")
	if soundpackID != "" {
		baseDir = filepath.Join(baseDir, filepath.Base(soundpackID))
	}

	userPath := filepath.Join(xdg.DataHome, baseDir)
	paths = append(paths, userPath)

	for _, dataDir := range xdg.DataDirs {
		paths = append(paths, filepath.Join(dataDir, baseDir))
	}

	slog.Debug("generated soundpack paths",
		"soundpack_id", soundpackID,
		"total_paths", len(paths),
		"user_path", userPath,
		"system_paths", len(xdg.DataDirs))

	return paths
}

// GetCachePath returns the cache directory path for a specific purpose
func (x *XDGDirs) GetCachePath(purpose string) string {
	baseDir := AppName
	if purpose != "" {
		baseDir = filepath.Join(baseDir, purpose)
	}

	cachePath := filepath.Join(xdg.CacheHome, baseDir)

	slog.Debug("generated cache path",
		"purpose", purpose,
		"cache_path", cachePath)

	return cachePath
}

// GetConfigPaths returns prioritized paths where config files can be found
// Returns paths in search order: user config dir, then system config dirs
func (x *XDGDirs) GetConfigPaths(filename string) []string {
	var paths []string

	userConfigPath := filepath.Join(xdg.ConfigHome, AppName)
	if filename != "" {
		userConfigPath = filepath.Join(userConfigPath, filename)
	}
	paths = append(paths, userConfigPath)

	for _, configDir := range xdg.ConfigDirs {
		systemConfigPath := filepath.Join(configDir, AppName)
		if filename != "" {
			systemConfigPath = filepath.Join(systemConfigPath, filename)
		}
		paths = append(paths, systemConfigPath)
	}

	slog.Debug("generated config paths",
		"filename", filename,
		"total_paths", len(paths),
		"user_path", userConfigPath,
		"system_paths", len(xdg.ConfigDirs))

	return paths
}

// CreateCacheDir creates the cache directory for a specific purpose and
// returns its path
func (x *XDGDirs) CreateCacheDir(purpose string) (string, error) {
	cachePath := x.GetCachePath(purpose)

	slog.Debug("creating cache directory", "path", cachePath)

	if err := x.fs.MkdirAll(cachePath, 0755); err != nil {
		slog.Error("failed to create cache directory", "path", cachePath, "error", err)
		return "", err
	}

	return cachePath, nil
}
