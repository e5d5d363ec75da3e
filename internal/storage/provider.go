// Package storage defines read-only access to the content directories.
package storage

import "io/fs"

// Provider reads files below a fixed root. All paths are relative to it.
type Provider interface {
	// Root returns the absolute path of the root directory.
	Root() string
	// ListDirs returns the names of the immediate subdirectories of dir, sorted.
	ListDirs(dir string) ([]string, error)
	// ReadDir returns the entries of dir sorted by filename.
	ReadDir(dir string) ([]fs.DirEntry, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Exists reports whether path exists.
	Exists(path string) (bool, error)
}
