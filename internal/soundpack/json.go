package soundpack

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// JSONSoundpackFile is the on-disk format of a JSON soundpack
type JSONSoundpackFile struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Version     string            `json:"version,omitempty"`
	Mappings    map[string]string `json:"mappings"`
}

// JSONMapper maps names to the files listed in a JSON soundpack
type JSONMapper struct {
	name    string
	mapping map[string]string
}

// NewJSONMapper creates a mapper from an explicit name to path table
func NewJSONMapper(name string, mapping map[string]string) *JSONMapper {
	slog.Debug("creating JSON mapper",
		"name", name,
		"mapping_keys_count", len(mapping))

	return &JSONMapper{
		name:    name,
		mapping: mapping,
	}
}

// LoadJSONSoundpack reads a JSON soundpack. Relative mapping paths are taken
// relative to the file's directory.
func LoadJSONSoundpack(fs afero.Fs, path string) (*JSONMapper, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read soundpack %s: %w", path, err)
	}

	var file JSONSoundpackFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse soundpack %s: %w", path, err)
	}
	if len(file.Mappings) == 0 {
		return nil, fmt.Errorf("soundpack %s has no mappings", path)
	}

	name := file.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	dir := filepath.Dir(path)
	mapping := make(map[string]string, len(file.Mappings))
	for key, target := range file.Mappings {
		if target == "" {
			slog.Debug("skipping empty soundpack mapping", "key", key, "soundpack", name)
			continue
		}
		target = filepath.FromSlash(target)
		if !filepath.IsAbs(target) {
			target = filepath.Join(dir, target)
		}
		mapping[key] = target
	}

	slog.Info("JSON soundpack loaded",
		"path", path,
		"name", name,
		"mappings", len(mapping))
	return NewJSONMapper(name, mapping), nil
}

// MapPath returns the mapped file for name. A name given with an extension
// also matches a key without one.
func (j *JSONMapper) MapPath(name string) ([]string, error) {
	if name == "" {
		return []string{}, nil
	}
	if target, ok := j.mapping[name]; ok {
		return []string{target}, nil
	}
	if ext := filepath.Ext(name); ext != "" {
		if target, ok := j.mapping[strings.TrimSuffix(name, ext)]; ok {
			return []string{target}, nil
		}
	}
	return []string{}, nil
}

// Len returns how many names the soundpack maps
func (j *JSONMapper) Len() int {
	return len(j.mapping)
}

func (j *JSONMapper) Name() string { return j.name }
func (j *JSONMapper) Type() string { return "json" }
