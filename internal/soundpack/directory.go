package soundpack

import (
	"fmt"
	"log/slog"
	"path/filepath"
)

// SoundsDir is the folder inside a soundpack holding effect files
const SoundsDir = "sounds"

// DirectoryMapper looks for a name under a list of soundpack directories.
// Each directory is tried as <dir>/sounds/<name> and then <dir>/<name>.
type DirectoryMapper struct {
	name      string
	basePaths []string
}

// NewDirectoryMapper creates a directory mapper searching basePaths in order
func NewDirectoryMapper(name string, basePaths []string) *DirectoryMapper {
	slog.Debug("creating directory mapper",
		"name", name,
		"base_paths", basePaths)

	return &DirectoryMapper{
		name:      name,
		basePaths: basePaths,
	}
}

func (d *DirectoryMapper) MapPath(name string) ([]string, error) {
	if name == "" {
		return []string{}, nil
	}
	local := filepath.FromSlash(name)
	if !filepath.IsLocal(local) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidName, name)
	}

	candidates := make([]string, 0, 2*len(d.basePaths))
	for _, base := range d.basePaths {
		candidates = append(candidates,
			filepath.Join(base, SoundsDir, local),
			filepath.Join(base, local))
	}
	return candidates, nil
}

// BasePaths returns the searched directories
func (d *DirectoryMapper) BasePaths() []string {
	return d.basePaths
}

func (d *DirectoryMapper) Name() string { return d.name }
func (d *DirectoryMapper) Type() string { return "directory" }
