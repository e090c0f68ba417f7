package config

import (
	"path/filepath"
	"testing"
)

func TestTrackingConfig_DefaultValues(t *testing.T) {
	config := GetDefaultTrackingConfig()

	if config.Enabled {
		t.Error("Expected tracking to be disabled by default")
	}
	if config.DatabasePath != "" {
		t.Errorf("Expected default database path to be empty (XDG cache), got %s", config.DatabasePath)
	}
}

func TestApplyTrackingEnvironmentOverrides(t *testing.T) {
	testCases := []struct {
		name     string
		enabled  string
		dbPath   string
		start    bool
		expected bool
		wantPath string
	}{
		{"enable", "true", "", false, true, ""},
		{"disable", "false", "", true, false, ""},
		{"numeric", "1", "", false, true, ""},
		{"invalid keeps value", "maybe", "", true, true, ""},
		{"unset keeps value", "", "", true, true, ""},
		{"database path", "", "/tmp/plays.db", false, false, "/tmp/plays.db"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("MIXDECK_TRACKING", tc.enabled)
			t.Setenv("MIXDECK_TRACKING_DB", tc.dbPath)

			config := &TrackingConfig{Enabled: tc.start}
			result := ApplyTrackingEnvironmentOverrides(config)

			if result.Enabled != tc.expected {
				t.Errorf("Expected enabled=%v, got %v", tc.expected, result.Enabled)
			}
			if result.DatabasePath != tc.wantPath {
				t.Errorf("Expected path %q, got %q", tc.wantPath, result.DatabasePath)
			}
			if config.Enabled != tc.start {
				t.Error("Original config must not be modified")
			}
		})
	}
}

func TestTrackingConfig_ResolveDatabasePath(t *testing.T) {
	xdg := &fakeXDG{cacheHome: "/cache/mixdeck"}

	config := &TrackingConfig{}
	if got, want := config.ResolveDatabasePath(xdg), filepath.Join("/cache/mixdeck", TrackingDatabaseFile); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}

	config.DatabasePath = "/custom/plays.db"
	if got := config.ResolveDatabasePath(xdg); got != "/custom/plays.db" {
		t.Errorf("Expected custom path, got %s", got)
	}
}
