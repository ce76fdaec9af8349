// Package store talks to the remote object store that holds genome inputs
// and annotation outputs. Paths are slash-separated and rooted at the
// bucket, like workspace paths ("/flu-2026/genome42.gb").
package store

import (
	"context"
	"errors"
	gopath "path"
	"strings"
	"time"
)

// ErrNotFound reports that a path definitely does not exist in the store.
// Transient failures (network, auth, throttling) are returned as ordinary
// errors and must not be confused with absence.
var ErrNotFound = errors.New("path not found")

// ErrConflict reports that a save without Overwrite hit an existing object.
var ErrConflict = errors.New("path already exists")

// StatInfo describes a remote path. Directory-like paths report Size 0.
type StatInfo struct {
	Size    int64
	ModTime time.Time
}

// SaveOptions controls how Save writes an object.
type SaveOptions struct {
	// ContentType tags the object (e.g. "contigs")
	ContentType string

	// Metadata is attached to the object as user metadata
	Metadata map[string]string

	// Overwrite replaces an existing object instead of rejecting with
	// ErrConflict
	Overwrite bool
}

// Store is the remote artifact client used by the dispatcher.
type Store interface {
	// Stat returns metadata for a remote path. It returns an error
	// wrapping ErrNotFound when the path does not exist, and any other
	// error when existence could not be determined.
	Stat(ctx context.Context, remotePath string) (StatInfo, error)

	// Save uploads the local file's content to the remote path.
	// Without opts.Overwrite an existing object yields an error
	// wrapping ErrConflict.
	Save(ctx context.Context, localPath, remotePath string, opts SaveOptions) error

	// DownloadString fetches a remote object's content as a string.
	DownloadString(ctx context.Context, remotePath string) (string, error)
}

// normalizePath canonicalizes a remote path to a rooted, slash-cleaned form.
func normalizePath(remotePath string) string {
	return gopath.Clean("/" + strings.TrimSpace(remotePath))
}

// objectKey converts a remote path to a bucket key (no leading slash).
func objectKey(remotePath string) string {
	return strings.TrimPrefix(normalizePath(remotePath), "/")
}
