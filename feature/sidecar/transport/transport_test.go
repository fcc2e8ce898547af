package transport_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"sidecar-sync/feature/sidecar/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSidecarPath(t *testing.T) {
	cases := []struct {
		book string
		want string
		ok   bool
	}{
		{"books/axis.epub", "books/axis.sdr/metadata.epub.lua", true},
		{"axis.epub", "axis.sdr/metadata.epub.lua", true},
		{"deep/tree/novel.pdf", "deep/tree/novel.sdr/metadata.pdf.lua", true},
		{"archive.v2.cbz", "archive.v2.sdr/metadata.cbz.lua", true},
		{"noextension", "", false},
		{"trailingdot.", "", false},
	}
	for _, tc := range cases {
		got, ok := transport.SidecarPath(tc.book)
		assert.Equal(t, tc.ok, ok, tc.book)
		assert.Equal(t, tc.want, got, tc.book)
	}
}

func TestLocalGet(t *testing.T) {
	root := t.TempDir()
	path := "books/axis.sdr/metadata.epub.lua"
	require.NoError(t, os.MkdirAll(filepath.Join(root, "books/axis.sdr"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, path), []byte("return {}"), 0o644))

	trans := transport.NewLocal(root)
	ctx := context.Background()

	data, mtime, err := trans.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "return {}", string(data))
	assert.False(t, mtime.IsZero(), "local transport reads mtime")

	_, _, err = trans.Get(ctx, "books/other.sdr/metadata.epub.lua")
	assert.ErrorIs(t, err, transport.ErrNotExist)
}

func TestLocalPutCreatesDirectories(t *testing.T) {
	root := t.TempDir()
	trans := transport.NewLocal(root)
	ctx := context.Background()

	path := "books/new.sdr/metadata.epub.lua"
	require.NoError(t, trans.Put(ctx, path, []byte("return {}")))

	data, err := os.ReadFile(filepath.Join(root, path))
	require.NoError(t, err)
	assert.Equal(t, "return {}", string(data))
}

func TestLocalPutDirectoryError(t *testing.T) {
	root := t.TempDir()
	// A file where the .sdr directory should go makes MkdirAll fail.
	require.NoError(t, os.WriteFile(filepath.Join(root, "axis.sdr"), []byte("in the way"), 0o644))

	trans := transport.NewLocal(root)
	err := trans.Put(context.Background(), "axis.sdr/metadata.epub.lua", []byte("return {}"))
	require.Error(t, err)

	var dirErr *transport.DirectoryError
	assert.ErrorAs(t, err, &dirErr)
}

func TestLocalExists(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.lua"), nil, 0o644))

	trans := transport.NewLocal(root)
	ctx := context.Background()

	ok, err := trans.Exists(ctx, "a.lua")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = trans.Exists(ctx, "b.lua")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLocalOpen(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "book.epub"), []byte("payload"), 0o644))

	trans := transport.NewLocal(root)
	ctx := context.Background()

	r, err := trans.Open(ctx, "book.epub")
	require.NoError(t, err)
	defer r.Close()

	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = r.Seek(0, io.SeekStart)
	assert.NoError(t, err)

	_, err = trans.Open(ctx, "missing.epub")
	assert.ErrorIs(t, err, transport.ErrNotExist)
}

func TestNewSelectsKind(t *testing.T) {
	trans, err := transport.New(transport.Config{Kind: "local", Root: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "local", trans.Name())

	_, err = transport.New(transport.Config{Kind: "carrier-pigeon"})
	assert.Error(t, err)
}
