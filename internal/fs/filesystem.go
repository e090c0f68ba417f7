// Package fs hands out the afero filesystems the rest of mixdeck reads
// assets and config through.
package fs

import (
	"github.com/spf13/afero"
)

// Factory provides filesystem instances for production and testing
type Factory interface {
	// Production returns a filesystem that operates on the real OS filesystem
	Production() afero.Fs
	// Assets returns a read-only view used for sound files and soundpacks
	Assets() afero.Fs
	// Memory returns an in-memory filesystem for testing
	Memory() afero.Fs
}

// DefaultFactory provides the standard filesystem factory implementation
type DefaultFactory struct{}

// NewDefaultFactory creates a new filesystem factory
func NewDefaultFactory() Factory {
	return &DefaultFactory{}
}

func (f *DefaultFactory) Production() afero.Fs {
	return afero.NewOsFs()
}

func (f *DefaultFactory) Assets() afero.Fs {
	return afero.NewReadOnlyFs(afero.NewOsFs())
}

func (f *DefaultFactory) Memory() afero.Fs {
	return afero.NewMemMapFs()
}

// MemoryFactory serves one shared in-memory filesystem for every role, so
// tests can seed files that both config and asset readers see. Assets is
// still read-only.
type MemoryFactory struct {
	fs afero.Fs
}

// NewMemoryFactory creates a factory over a fresh MemMapFs
func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{fs: afero.NewMemMapFs()}
}

func (f *MemoryFactory) Production() afero.Fs { return f.fs }
func (f *MemoryFactory) Assets() afero.Fs     { return afero.NewReadOnlyFs(f.fs) }
func (f *MemoryFactory) Memory() afero.Fs     { return afero.NewMemMapFs() }
