package files

import "errors"

// Typed failures for file operations. Each is a local, recoverable condition
// reported to the caller; none should crash the process.
var (
	ErrNotFound      = errors.New("path not found")
	ErrNotAFile      = errors.New("path is not a file")
	ErrNotADirectory = errors.New("path is not a directory")
	ErrAlreadyExists = errors.New("path already exists")
	ErrNotEmpty      = errors.New("directory is not empty")
	ErrTooLarge      = errors.New("file exceeds maximum size")
	ErrReadOnly      = errors.New("operation not allowed in read-only mode")
)
