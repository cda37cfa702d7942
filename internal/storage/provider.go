// Package storage defines the posts tree file-system abstraction.
package storage

// Provider is the interface for posts tree file operations. All paths are
// relative to the provider root.
type Provider interface {
	// Root returns the absolute path of the posts tree.
	Root() string
	// ListDirs returns the names of the immediate subdirectories of dir, sorted by name.
	ListDirs(dir string) ([]string, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent directories.
	Write(path string, content []byte) error
	// Exists reports whether anything exists at path.
	Exists(path string) (bool, error)
	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string) error
}
