package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
)

// TrackingDatabaseFile is the journal file name inside the XDG cache dir
const TrackingDatabaseFile = "plays.db"

// TrackingConfig controls the playback journal
type TrackingConfig struct {
	Enabled      bool   `json:"enabled"`
	DatabasePath string `json:"database_path,omitempty"` // empty = XDG cache path
}

// GetDefaultTrackingConfig returns the default journal configuration
func GetDefaultTrackingConfig() *TrackingConfig {
	return &TrackingConfig{
		Enabled:      false,
		DatabasePath: "",
	}
}

// ApplyTrackingEnvironmentOverrides applies MIXDECK_TRACKING and
// MIXDECK_TRACKING_DB to a copy of config
func ApplyTrackingEnvironmentOverrides(config *TrackingConfig) *TrackingConfig {
	result := *config

	if trackingStr := os.Getenv("MIXDECK_TRACKING"); trackingStr != "" {
		if enabled, err := strconv.ParseBool(trackingStr); err == nil {
			result.Enabled = enabled
			slog.Debug("applied tracking override from environment", "value", enabled)
		} else {
			slog.Warn("invalid MIXDECK_TRACKING environment variable", "value", trackingStr, "error", err)
		}
	}

	if dbPath := os.Getenv("MIXDECK_TRACKING_DB"); dbPath != "" {
		result.DatabasePath = dbPath
		slog.Debug("applied tracking database override from environment", "value", dbPath)
	}

	return &result
}

// ResolveDatabasePath returns the configured journal path, or the default
// file under the XDG cache dir
func (t *TrackingConfig) ResolveDatabasePath(xdgDirs XDGInterface) string {
	if t.DatabasePath != "" {
		return t.DatabasePath
	}
	return filepath.Join(xdgDirs.GetCachePath(""), TrackingDatabaseFile)
}
