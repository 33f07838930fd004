package ports

import "io"

// FileSystem abstracts the file operations used by sources and sinks.
type FileSystem interface {
	// ReadFile reads the entire contents of a file.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to a file, creating parent directories.
	WriteFile(path string, data []byte) error

	// Open opens a file for streaming reads.
	Open(path string) (io.ReadCloser, error)

	// Create truncates or creates a file for streaming writes, creating
	// parent directories.
	Create(path string) (io.WriteCloser, error)

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string) error

	// Exists checks if a file or directory exists.
	Exists(path string) (bool, error)
}
