package config

import (
	"log/slog"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"
)

// Locker guards a config file against concurrent writers
type Locker interface {
	Lock() error
	Unlock() error
}

// FileLock wraps github.com/gofrs/flock with logging
type FileLock struct {
	filePath string
	flock    *flock.Flock
}

// NewFileLock creates a lock backed by the file at filePath
func NewFileLock(filePath string) *FileLock {
	slog.Debug("creating new file lock", "file_path", filePath)

	return &FileLock{
		filePath: filePath,
		flock:    flock.New(filePath),
	}
}

// Lock acquires an exclusive lock on the file (blocking)
func (fl *FileLock) Lock() error {
	if err := fl.flock.Lock(); err != nil {
		slog.Error("failed to acquire file lock",
			"file_path", fl.filePath,
			"error", err)
		return err
	}

	slog.Debug("file lock acquired", "file_path", fl.filePath)
	return nil
}

// TryLock attempts to acquire the lock without blocking
func (fl *FileLock) TryLock() (bool, error) {
	ok, err := fl.flock.TryLock()
	if err != nil {
		slog.Error("error during try-lock attempt",
			"file_path", fl.filePath,
			"error", err)
		return false, err
	}
	return ok, nil
}

// Unlock releases the file lock
func (fl *FileLock) Unlock() error {
	if err := fl.flock.Unlock(); err != nil {
		slog.Error("failed to release file lock",
			"file_path", fl.filePath,
			"error", err)
		return err
	}

	slog.Debug("file lock released", "file_path", fl.filePath)
	return nil
}

type noopLock struct{}

func (noopLock) Lock() error   { return nil }
func (noopLock) Unlock() error { return nil }

// lockFor returns a flock-backed lock next to path when fs is the real
// filesystem. In-memory filesystems have no other writers to exclude.
func lockFor(fs afero.Fs, path string) Locker {
	if _, ok := fs.(*afero.OsFs); ok {
		return NewFileLock(path + ".lock")
	}
	return noopLock{}
}
