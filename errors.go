package qres

import "errors"

// Package-specific error variables that can be used with errors.Is() for error handling.
var (
	// ErrNotAContainer is returned when the source does not start with the "qres" magic.
	ErrNotAContainer = errors.New("qres: not a resource container")

	// ErrUnsupportedVersion is returned when the container's format version is outside {1,2,3}.
	ErrUnsupportedVersion = errors.New("qres: unsupported container version")

	// ErrTruncatedSection is returned when an offset or length would read past the end of the source.
	ErrTruncatedSection = errors.New("qres: truncated section")

	// ErrCodec is returned when zlib or zstd encoding/decoding fails.
	ErrCodec = errors.New("qres: codec error")

	// ErrEntryNotFound is returned when path resolution fails at some segment.
	ErrEntryNotFound = errors.New("qres: entry not found")

	// ErrGotFileInsteadOfDir is returned when traversal expected a directory but found a file.
	ErrGotFileInsteadOfDir = errors.New("qres: got file instead of directory")

	// ErrGotDirInsteadOfFile is returned when an operation expected a file but found a directory.
	ErrGotDirInsteadOfFile = errors.New("qres: got directory instead of file")
)
