package soundpack

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/afero"
)

// FileResolver finds an existing file for a path, trying supported
// extensions in priority order
type FileResolver struct {
	fs         afero.Fs
	extensions []string
}

// NewFileResolver creates a resolver over fs. Extensions may be given with
// or without the leading dot.
func NewFileResolver(fs afero.Fs, extensions []string) *FileResolver {
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, strings.ToLower(ext))
	}
	return &FileResolver{fs: fs, extensions: normalized}
}

// Extensions returns the probed extensions in priority order
func (f *FileResolver) Extensions() []string {
	return f.extensions
}

// Resolve returns candidate itself when it is an existing file, otherwise
// the first candidate+extension that exists
func (f *FileResolver) Resolve(candidate string) (string, bool) {
	if candidate == "" {
		return "", false
	}
	if f.isFile(candidate) {
		return candidate, true
	}
	path, err := f.ResolveWithExtensions(candidate)
	return path, err == nil
}

// ResolveWithExtensions tries basePath with each extension in order
func (f *FileResolver) ResolveWithExtensions(basePath string) (string, error) {
	if basePath == "" {
		return "", fmt.Errorf("base path cannot be empty")
	}

	for _, ext := range f.extensions {
		candidate := basePath + ext
		if f.isFile(candidate) {
			return candidate, nil
		}
		slog.Debug("candidate not found", "candidate", candidate)
	}

	return "", fmt.Errorf("no file found for base path %s with extensions %v", basePath, f.extensions)
}

func (f *FileResolver) isFile(path string) bool {
	info, err := f.fs.Stat(path)
	return err == nil && !info.IsDir()
}
