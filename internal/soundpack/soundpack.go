// Package soundpack maps logical sound names to asset files.
package soundpack

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/spf13/afero"
)

// Resolver errors
var (
	ErrEmptyName   = errors.New("sound name cannot be empty")
	ErrInvalidName = errors.New("sound name must be a relative path inside the soundpack")
	ErrNoNames     = errors.New("no fallback names provided")
)

// DefaultExtensions are probed in this order when a candidate has no file
// of its own
var DefaultExtensions = []string{".wav", ".ogg", ".mp3", ".flac", ".aiff"}

// DefaultMemoTTL is how long a resolved path is reused without probing
const DefaultMemoTTL = 5 * time.Minute

// PathMapper turns a logical sound name into candidate file paths
type PathMapper interface {
	// MapPath returns candidates in priority order. A candidate without an
	// existing file is probed with the resolver's extensions.
	MapPath(name string) ([]string, error)
	Name() string
	Type() string
}

// Resolver resolves sound names through a PathMapper, checking candidates
// against a filesystem. Successful lookups are memoized.
type Resolver struct {
	mapper PathMapper
	files  *FileResolver
	memo   *cache.Cache
}

// Option configures a Resolver
type Option func(*resolverOptions)

type resolverOptions struct {
	fs         afero.Fs
	extensions []string
	ttl        time.Duration
}

// WithFilesystem sets where candidates are looked up
func WithFilesystem(fs afero.Fs) Option {
	return func(o *resolverOptions) {
		o.fs = fs
	}
}

// WithExtensions replaces DefaultExtensions
func WithExtensions(extensions []string) Option {
	return func(o *resolverOptions) {
		o.extensions = extensions
	}
}

// WithMemoTTL sets how long resolved paths are kept. Non-positive values
// keep them until Flush.
func WithMemoTTL(ttl time.Duration) Option {
	return func(o *resolverOptions) {
		o.ttl = ttl
	}
}

// NewResolver creates a resolver for mapper
func NewResolver(mapper PathMapper, opts ...Option) *Resolver {
	o := resolverOptions{
		fs:         afero.NewOsFs(),
		extensions: DefaultExtensions,
		ttl:        DefaultMemoTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}

	ttl := o.ttl
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	cleanup := ttl * 2
	if ttl == cache.NoExpiration {
		cleanup = 0
	}

	slog.Debug("creating soundpack resolver",
		"mapper_name", mapper.Name(),
		"mapper_type", mapper.Type(),
		"extensions", o.extensions,
		"memo_ttl", o.ttl)

	return &Resolver{
		mapper: mapper,
		files:  NewFileResolver(o.fs, o.extensions),
		memo:   cache.New(ttl, cleanup),
	}
}

// ResolveSound returns the file for a logical sound name
func (r *Resolver) ResolveSound(name string) (string, error) {
	if name == "" {
		slog.Error("resolve sound failed", "error", ErrEmptyName)
		return "", ErrEmptyName
	}

	if cached, ok := r.memo.Get(name); ok {
		slog.Debug("sound path memo hit", "name", name, "path", cached)
		return cached.(string), nil
	}

	candidates, err := r.mapper.MapPath(name)
	if err != nil {
		slog.Error("path mapping failed", "name", name, "error", err)
		return "", fmt.Errorf("path mapping failed: %w", err)
	}

	slog.Debug("path mapping completed",
		"name", name,
		"mapper_type", r.mapper.Type(),
		"candidates", candidates)

	for i, candidate := range candidates {
		if path, ok := r.files.Resolve(candidate); ok {
			r.memo.SetDefault(name, path)
			slog.Debug("sound path resolved",
				"name", name,
				"path", path,
				"candidate_index", i)
			return path, nil
		}
	}

	slog.Warn("sound path not resolved",
		"name", name,
		"candidates_checked", len(candidates),
		"mapper_name", r.mapper.Name())

	return "", &FileNotFoundError{Name: name, Paths: candidates}
}

// ResolveSoundWithFallback tries names in order and returns the first hit
func (r *Resolver) ResolveSoundWithFallback(names []string) (string, error) {
	if len(names) == 0 {
		return "", ErrNoNames
	}

	var lastErr error
	for i, name := range names {
		path, err := r.ResolveSound(name)
		if err == nil {
			if i > 0 {
				slog.Debug("fallback resolution used", "name", name, "fallback_index", i)
			}
			return path, nil
		}
		lastErr = err
	}
	return "", lastErr
}

// Flush forgets every memoized path
func (r *Resolver) Flush() {
	r.memo.Flush()
}

// Memoized returns how many names are currently memoized
func (r *Resolver) Memoized() int {
	return r.memo.ItemCount()
}

func (r *Resolver) Name() string { return r.mapper.Name() }
func (r *Resolver) Type() string { return r.mapper.Type() }

// FileNotFoundError reports a name none of whose candidates exist
type FileNotFoundError struct {
	Name  string
	Paths []string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("sound file not found: %s (searched in: %s)", e.Name, strings.Join(e.Paths, ", "))
}

// IsFileNotFoundError checks if err is or wraps a FileNotFoundError
func IsFileNotFoundError(err error) bool {
	var notFound *FileNotFoundError
	return errors.As(err, &notFound)
}
