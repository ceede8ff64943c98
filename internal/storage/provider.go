// Package storage defines read access to the content directory.
package storage

import "time"

// Entry describes a file or directory relative to the content root.
type Entry struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	IsDir   bool      `json:"isDir"`
	ModTime time.Time `json:"modTime"`
}

// Provider is the interface for content file operations. Paths are
// slash-separated and relative to the content root. Missing files yield an
// error matching fs.ErrNotExist.
type Provider interface {
	// ReadDir lists the direct children of dir, sorted by name.
	ReadDir(dir string) ([]Entry, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Stat describes path.
	Stat(path string) (Entry, error)
	// Root returns the absolute content directory.
	Root() string
}
