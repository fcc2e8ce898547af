package library_test

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"sidecar-sync/core/database"
	"sidecar-sync/feature/sidecar/fields"
	"sidecar-sync/feature/sidecar/library"
	"sidecar-sync/feature/sidecar/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*library.Store, func(v any) error) {
	t.Helper()
	db, err := database.Connect(database.Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)

	store := library.NewStore(db, zap.NewNop())
	require.NoError(t, store.Migrate())

	seed := func(v any) error { return db.Create(v).Error }
	return store, seed
}

func TestResolve(t *testing.T) {
	store, seed := newTestStore(t)
	require.NoError(t, seed(&library.Book{
		UUID: "11111111-1111-4111-8111-111111111111", Title: "Dispossessed",
		Path: "/books/dispossessed.epub", LPath: "books/dispossessed.epub",
	}))

	ctx := context.Background()
	record, err := store.Resolve(ctx, "11111111-1111-4111-8111-111111111111")
	require.NoError(t, err)
	assert.Equal(t, "Dispossessed", record.Title)
	assert.Empty(t, record.Values)

	_, err = store.Resolve(ctx, "99999999-9999-4999-8999-999999999999")
	assert.ErrorIs(t, err, reconcile.ErrBookNotFound)
}

func TestUpdateAndReadBack(t *testing.T) {
	store, seed := newTestStore(t)
	require.NoError(t, seed(&library.Book{
		UUID: "11111111-1111-4111-8111-111111111111", LPath: "books/a.epub",
	}))

	ctx := context.Background()
	record, err := store.Resolve(ctx, "11111111-1111-4111-8111-111111111111")
	require.NoError(t, err)

	when := time.Date(2024, 3, 10, 8, 2, 51, 0, time.UTC)
	changes := map[string]fields.TypedValue{
		"#percent_read": fields.Float(0.73),
		"#rating":       fields.Rating(8),
		"#status":       fields.Text("reading"),
		"#finished":     fields.Bool(false),
		"#last_read":    fields.Timestamp(when),
	}
	require.NoError(t, store.Update(ctx, record.ID, changes))

	record, err = store.Resolve(ctx, "11111111-1111-4111-8111-111111111111")
	require.NoError(t, err)
	for column, want := range changes {
		got, ok := record.Values[column]
		require.True(t, ok, "column %s missing", column)
		assert.True(t, want.Equal(got), "column %s: want %v, got %v", column, want, got)
	}
}

func TestUpdateUpserts(t *testing.T) {
	store, seed := newTestStore(t)
	require.NoError(t, seed(&library.Book{
		UUID: "11111111-1111-4111-8111-111111111111", LPath: "books/a.epub",
	}))

	ctx := context.Background()
	record, err := store.Resolve(ctx, "11111111-1111-4111-8111-111111111111")
	require.NoError(t, err)

	require.NoError(t, store.Update(ctx, record.ID, map[string]fields.TypedValue{
		"#percent_read": fields.Float(0.25),
	}))
	require.NoError(t, store.Update(ctx, record.ID, map[string]fields.TypedValue{
		"#percent_read": fields.Float(0.50),
	}))

	record, err = store.Resolve(ctx, "11111111-1111-4111-8111-111111111111")
	require.NoError(t, err)
	assert.True(t, fields.Float(0.50).Equal(record.Values["#percent_read"]))
}

func TestListDeviceBooks(t *testing.T) {
	store, seed := newTestStore(t)
	require.NoError(t, seed(&library.Book{UUID: "11111111-1111-4111-8111-111111111111", LPath: "books/a.epub"}))
	require.NoError(t, seed(&library.Book{UUID: "22222222-2222-4222-8222-222222222222", LPath: ""}))
	require.NoError(t, seed(&library.Book{UUID: "33333333-3333-4333-8333-333333333333", LPath: "books/c.epub"}))

	books, err := store.ListDeviceBooks(context.Background())
	require.NoError(t, err)
	require.Len(t, books, 2, "books never sent to the device are excluded")
	assert.Equal(t, "11111111-1111-4111-8111-111111111111", books[0].UUID)
	assert.Equal(t, "33333333-3333-4333-8333-333333333333", books[1].UUID)
}

func TestDeviceBook(t *testing.T) {
	store, seed := newTestStore(t)
	require.NoError(t, seed(&library.Book{UUID: "11111111-1111-4111-8111-111111111111", LPath: ""}))

	// On the device list the lpath filter applies even when the book exists.
	_, err := store.DeviceBook(context.Background(), "11111111-1111-4111-8111-111111111111")
	assert.ErrorIs(t, err, reconcile.ErrBookNotFound)
}

func TestRawSidecar(t *testing.T) {
	store, seed := newTestStore(t)
	require.NoError(t, seed(&library.Book{UUID: "11111111-1111-4111-8111-111111111111", LPath: "books/a.epub"}))

	ctx := context.Background()
	record, err := store.Resolve(ctx, "11111111-1111-4111-8111-111111111111")
	require.NoError(t, err)

	_, ok, err := store.RawSidecar(ctx, "11111111-1111-4111-8111-111111111111", "#raw")
	require.NoError(t, err)
	assert.False(t, ok, "unpopulated column reads as absent")

	require.NoError(t, store.Update(ctx, record.ID, map[string]fields.TypedValue{
		"#raw": fields.LongText(`{"percent_finished": 0.5}`),
	}))

	raw, ok, err := store.RawSidecar(ctx, "11111111-1111-4111-8111-111111111111", "#raw")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `{"percent_finished": 0.5}`, raw)
}
