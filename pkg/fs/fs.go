// Package fs abstracts the filesystem calls dsd makes so that tests can
// swap in failures.
//
//   - [FS]: the operations, mirroring package os
//   - [File]: an open file, satisfied by [os.File]
//   - [Real]: passthrough to package os
//   - [Faulty]: wraps another FS and fails chosen operations on chosen paths
//
// [WriteFileAtomic] replaces a file in one step on any FS.
package fs

import (
	"io"
	"os"
)

// File is an open file. Implementations must behave like [os.File].
type File interface {
	io.ReadWriteCloser
	io.Seeker

	// Fd returns the file descriptor. See [os.File.Fd].
	Fd() uintptr

	// Stat returns the [os.FileInfo] for this file. See [os.File.Stat].
	Stat() (os.FileInfo, error)

	// Sync commits the file's contents to disk. See [os.File.Sync].
	Sync() error

	// Chmod changes the mode of the file. See [os.File.Chmod].
	Chmod(mode os.FileMode) error
}

// FS defines the filesystem operations used by the store and the CLI.
//
// Paths use OS semantics (like package os and path/filepath), not the
// slash-separated paths of io/fs.
type FS interface {
	// Open opens a file for reading. See [os.Open].
	Open(path string) (File, error)

	// Create creates or truncates a file. See [os.Create].
	Create(path string) (File, error)

	// OpenFile opens a file with flags and permissions. See [os.OpenFile].
	OpenFile(path string, flag int, perm os.FileMode) (File, error)

	// ReadFile reads a whole file. See [os.ReadFile].
	ReadFile(path string) ([]byte, error)

	// WriteFile writes a whole file in place. See [os.WriteFile].
	// Not atomic; use [WriteFileAtomic] for records.
	WriteFile(path string, data []byte, perm os.FileMode) error

	// ReadDir lists a directory, sorted by name. See [os.ReadDir].
	ReadDir(path string) ([]os.DirEntry, error)

	// MkdirAll creates a directory and its parents. See [os.MkdirAll].
	MkdirAll(path string, perm os.FileMode) error

	// Mkdir creates one directory and fails if it exists. See [os.Mkdir].
	Mkdir(path string, perm os.FileMode) error

	// Stat returns file info. See [os.Stat].
	Stat(path string) (os.FileInfo, error)

	// Exists reports whether a file or directory exists.
	// Returns (false, nil) if not found, (false, err) on other errors.
	Exists(path string) (bool, error)

	// Chmod changes the mode of a path. See [os.Chmod].
	Chmod(path string, mode os.FileMode) error

	// Remove deletes a file or empty directory. See [os.Remove].
	Remove(path string) error

	// RemoveAll deletes a path and any children. See [os.RemoveAll].
	RemoveAll(path string) error

	// Rename moves a file or directory. See [os.Rename].
	Rename(oldpath, newpath string) error
}

var _ File = (*os.File)(nil)
