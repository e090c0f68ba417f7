package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func TestXDGSoundpackPaths(t *testing.T) {
	xdg := NewXDGDirsWithFilesystem(afero.NewMemMapFs())

	testCases := []struct {
		name        string
		soundpackID string
		suffix      string
	}{
		{"default soundpack", "default", filepath.Join("mixdeck", "soundpacks", "default")},
		{"custom soundpack", "retro-arcade", filepath.Join("mixdeck", "soundpacks", "retro-arcade")},
		{"empty soundpack id", "", filepath.Join("mixdeck", "soundpacks")},
		{"traversal is flattened", "../../etc", filepath.Join("mixdeck", "soundpacks", "etc")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			paths := xdg.GetSoundpackPaths(tc.soundpackID)
			if len(paths) == 0 {
				t.Fatal("GetSoundpackPaths returned empty slice")
			}
			for _, p := range paths {
				if !filepath.IsAbs(p) {
					t.Errorf("Expected absolute path, got %s", p)
				}
				if !strings.HasSuffix(p, tc.suffix) {
					t.Errorf("Expected %s to end with %s", p, tc.suffix)
				}
			}
		})
	}
}

func TestXDGConfigPaths(t *testing.T) {
	xdg := NewXDGDirsWithFilesystem(afero.NewMemMapFs())

	paths := xdg.GetConfigPaths(ConfigFileName)
	if len(paths) == 0 {
		t.Fatal("GetConfigPaths returned empty slice")
	}
	for _, p := range paths {
		if !strings.HasSuffix(p, filepath.Join("mixdeck", "config.json")) {
			t.Errorf("Unexpected config path %s", p)
		}
	}

	for _, p := range xdg.GetConfigPaths("") {
		if filepath.Base(p) != "mixdeck" {
			t.Errorf("Expected directory path without filename, got %s", p)
		}
	}
}

func TestXDGCreateCacheDir(t *testing.T) {
	memFS := afero.NewMemMapFs()
	xdg := NewXDGDirsWithFilesystem(memFS)

	path, err := xdg.CreateCacheDir("logs")
	if err != nil {
		t.Fatalf("CreateCacheDir failed: %v", err)
	}
	if path != xdg.GetCachePath("logs") {
		t.Errorf("Expected %s, got %s", xdg.GetCachePath("logs"), path)
	}
	if !strings.HasSuffix(path, filepath.Join("mixdeck", "logs")) {
		t.Errorf("Unexpected cache path %s", path)
	}

	if ok, _ := afero.DirExists(memFS, path); !ok {
		t.Errorf("Expected cache dir %s to exist", path)
	}
}
