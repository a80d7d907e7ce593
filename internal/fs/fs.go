// Package fs defines the filesystem abstraction used by camrelay.
// It provides the FS interface and the FileInfo type shared across the system.
package fs

import (
	"context"
	"os"
	"time"
)

type FileInfo struct {
	Path  string
	Size  int64
	MTime time.Time
	IsDir bool
}

type FS interface {
	Stat(path string) (FileInfo, error)
	ReadDir(path string) ([]os.DirEntry, error)
	// MkdirAll is idempotent: existing directories are left untouched.
	MkdirAll(path string) error
	// WriteFile replaces path atomically (temp file + rename).
	WriteFile(ctx context.Context, path string, data []byte) error
	// Remove deletes a file. A file that is already gone is not an error.
	Remove(ctx context.Context, path string) error
	// RemoveEmptyDir deletes path only if it has no entries.
	RemoveEmptyDir(path string) (bool, error)
}
