// Package transport moves raw sidecar bytes between this tool and wherever
// the device's book tree lives: a locally mounted reader, or an S3/MinIO
// bucket the device tree is mirrored to.
//
// A missing sidecar is a normal condition (the book was never opened on the
// device) and is reported through ErrNotExist so callers can tell it apart
// from an unreadable or undecodable one.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"
)

// ErrNotExist reports that the requested file does not exist on the device.
var ErrNotExist = errors.New("transport: file does not exist")

// DirectoryError reports a failure to create a destination directory on the
// reverse sync path. The underlying system error is preserved.
type DirectoryError struct {
	Path string
	Err  error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("transport: cannot create directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

// Transport supplies raw bytes for device paths and persists bytes back.
type Transport interface {
	// Name identifies the transport in logs ("local", "s3").
	Name() string

	// Get returns the file contents and its modification time. The time is
	// zero when the transport cannot read file metadata (common over
	// wireless transports). Missing files return ErrNotExist.
	Get(ctx context.Context, path string) ([]byte, time.Time, error)

	// Put writes the file, creating parent directories as needed. A failed
	// directory creation returns a DirectoryError.
	Put(ctx context.Context, path string, data []byte) error

	// Exists reports whether the file exists without reading it.
	Exists(ctx context.Context, path string) (bool, error)

	// Open opens a file for sampled reads, used for fingerprinting book
	// payloads. Missing files return ErrNotExist.
	Open(ctx context.Context, path string) (io.ReadSeekCloser, error)
}

// sidecarPathRe captures the extension of a book path.
var sidecarPathRe = regexp.MustCompile(`\.(\w+)$`)

// SidecarPath derives the sidecar location for a book path the way KOReader
// lays it out: "books/axis.epub" becomes "books/axis.sdr/metadata.epub.lua".
// A path without an extension is returned with ok=false.
func SidecarPath(bookPath string) (string, bool) {
	if !sidecarPathRe.MatchString(bookPath) {
		return "", false
	}
	return sidecarPathRe.ReplaceAllString(bookPath, ".sdr/metadata.$1.lua"), true
}
