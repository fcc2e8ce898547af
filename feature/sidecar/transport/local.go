package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Local is a Transport over a locally mounted device tree.
type Local struct {
	root string
}

// NewLocal creates a local transport rooted at the device mount point.
func NewLocal(root string) *Local {
	return &Local{root: root}
}

// Name implements Transport.
func (l *Local) Name() string { return "local" }

func (l *Local) abs(path string) string {
	if l.root == "" {
		return path
	}
	return filepath.Join(l.root, path)
}

// Get implements Transport. The returned time is the file's mtime.
func (l *Local) Get(ctx context.Context, path string) ([]byte, time.Time, error) {
	full := l.abs(path)
	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, time.Time{}, ErrNotExist
		}
		return nil, time.Time{}, fmt.Errorf("transport: stat %s: %w", path, err)
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("transport: read %s: %w", path, err)
	}
	return data, info.ModTime(), nil
}

// Put implements Transport.
func (l *Local) Put(ctx context.Context, path string, data []byte) error {
	full := l.abs(path)
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &DirectoryError{Path: dir, Err: err}
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("transport: write %s: %w", path, err)
	}
	return nil
}

// Exists implements Transport.
func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(l.abs(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("transport: stat %s: %w", path, err)
}

// Open implements Transport.
func (l *Local) Open(ctx context.Context, path string) (io.ReadSeekCloser, error) {
	f, err := os.Open(l.abs(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("transport: open %s: %w", path, err)
	}
	return f, nil
}
