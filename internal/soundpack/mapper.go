package soundpack

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// NewMapper picks a mapper for a configured soundpack. A ".json" value is
// loaded as a JSON soundpack; an existing directory is searched before
// searchPaths; anything else is treated as a soundpack id whose directories
// are searchPaths.
func NewMapper(fs afero.Fs, soundpack string, searchPaths []string) (PathMapper, error) {
	slog.Debug("creating soundpack mapper",
		"soundpack", soundpack,
		"search_paths", searchPaths)

	if strings.EqualFold(filepath.Ext(soundpack), ".json") {
		return LoadJSONSoundpack(fs, soundpack)
	}

	if soundpack != "" {
		if info, err := fs.Stat(soundpack); err == nil && info.IsDir() {
			paths := append([]string{soundpack}, searchPaths...)
			return NewDirectoryMapper(filepath.Base(soundpack), paths), nil
		}
	}

	name := soundpack
	if name == "" {
		name = "default"
	}
	return NewDirectoryMapper(name, searchPaths), nil
}
