// Package storage provides the filesystem primitives behind logical paths.
// A logical path like "alice/public/notes.txt" is only ever resolved to a
// real location here, never in the protocol core.
package storage

import "context"

// FileStore abstracts the sandboxed data root. Implementations must reject
// logical paths that would resolve outside the root; the path authorizer
// upstream is a prefix policy and does not catch ".." traversal.
type FileStore interface {
	// Exists reports whether the logical path names a file or directory.
	Exists(ctx context.Context, path string) (bool, error)

	// IsDirectory reports whether the logical path names a directory.
	IsDirectory(ctx context.Context, path string) (bool, error)

	// ListChildren returns the names of plain files and subdirectories
	// directly under path. A path that exists but is not a directory
	// yields two empty lists.
	ListChildren(ctx context.Context, path string) (files, dirs []string, err error)

	// CreateFile creates an empty file called name under path. The path
	// itself must already exist.
	CreateFile(ctx context.Context, path, name string) error

	// CreateDirectory creates a directory called name under path.
	CreateDirectory(ctx context.Context, path, name string) error

	// RemoveRecursive deletes path and everything below it, returning how
	// many entries were removed. Removing a nonexistent path is not an
	// error; it reports zero.
	RemoveRecursive(ctx context.Context, path string) (int, error)

	// Size returns the byte size of the file at path.
	Size(ctx context.Context, path string) (int64, error)

	// ReadChunk reads up to n bytes starting at offset. eof is true when
	// the returned data reaches the end of the file.
	ReadChunk(ctx context.Context, path string, offset int64, n int) (data []byte, eof bool, err error)

	// Append appends data to the file at path, creating it if absent.
	Append(ctx context.Context, path string, data []byte) error

	// Rename moves the file at oldPath to newPath.
	Rename(ctx context.Context, oldPath, newPath string) error
}
