package tinyfs

import (
	"errors"
	"fmt"
)

// Package-specific error variables that can be used with errors.Is() for
// error handling (spec.md §7.1, reportable conditions).
var (
	// ErrInvalidSuper is returned when a superblock's magic does not match.
	ErrInvalidSuper = errors.New("tinyfs: invalid superblock")

	// ErrNotDirectory names the condition of a directory operation on a
	// non-directory inode. Reserved for callers; the core does not return
	// it: namex reports a non-directory path component as ErrNotFound, and
	// Dirlookup/Readdir panic on a non-directory.
	ErrNotDirectory = errors.New("tinyfs: not a directory")

	// ErrNotFound is returned when a path component or directory entry
	// does not exist.
	ErrNotFound = errors.New("tinyfs: no such file or directory")

	// ErrExists is returned by dirlink when the name already exists in
	// the directory.
	ErrExists = errors.New("tinyfs: directory entry already exists")

	// ErrTooManySymlinks is returned when symlink resolution exceeds the
	// maximum depth. This prevents infinite loops in symlink resolution.
	// Reserved for callers layering symlink support on top of namex; the
	// core resolver never follows symlinks itself.
	ErrTooManySymlinks = errors.New("tinyfs: too many levels of symbolic links")

	// ErrFileTooLarge is returned by writei when a write would grow a
	// file beyond MAXFILE blocks.
	ErrFileTooLarge = errors.New("tinyfs: file too large")

	// ErrBadOffset is returned by writei for a malformed offset/length pair.
	ErrBadOffset = errors.New("tinyfs: bad offset")
)

// FSError is a fatal structural-invariant violation (spec.md §7.2):
// unlocked access where a lock was required, eviction of a non-existent
// buffer, bitmap double-free, log overflow, no free inode slot, no free
// cache entry, corrupt superblock magic, unallocated type after ilock.
// These signal a kernel bug or disk corruption, so they panic instead of
// returning: a caller cannot meaningfully recover from them.
type FSError struct {
	Op  string
	Msg string
}

func (e *FSError) Error() string {
	return fmt.Sprintf("tinyfs: fatal: %s: %s", e.Op, e.Msg)
}

func fatalf(op, format string, args ...any) {
	panic(&FSError{Op: op, Msg: fmt.Sprintf(format, args...)})
}
