package sqlite

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/homepage/pkg/types"
)

func openBackend(t *testing.T, dir string) *Backend {
	t.Helper()
	b := NewBackend(types.Config{Backend: types.BackendSQLite, DataDir: dir},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, b.Open(context.Background()))
	t.Cleanup(func() { b.Close() })
	return b
}

func bookmarkRecord(id, folder string, order int) types.Record {
	return types.Record{
		Key:   id,
		Value: []byte(`{"id":"` + id + `","title":"` + id + `","url":"https://` + id + `.example","folderId":"` + folder + `","order":` + strconv.Itoa(order) + `}`),
	}
}

func TestBackend_Open(t *testing.T) {
	dir := t.TempDir()
	b := openBackend(t, dir)

	_, err := os.Stat(filepath.Join(dir, DatabaseFile))
	require.NoError(t, err, "database file should exist")

	// A second Open is a no-op.
	require.NoError(t, b.Open(context.Background()))

	require.NoError(t, b.Close())
	require.NoError(t, b.Close(), "Close is idempotent")
}

func TestBackend_OpenFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	b := NewBackend(types.Config{DataDir: filepath.Join(blocker, "data")})
	err := b.Open(context.Background())
	assert.ErrorIs(t, err, types.ErrStorageUnavailable)
}

func TestBackend_NotOpen(t *testing.T) {
	b := NewBackend(types.Config{DataDir: t.TempDir()})
	ctx := context.Background()

	_, err := b.ReadAll(ctx, types.BookmarksCollection)
	assert.ErrorIs(t, err, types.ErrStorageUnavailable)

	err = b.WriteAll(ctx, types.BookmarksCollection, nil)
	assert.ErrorIs(t, err, types.ErrStorageUnavailable)
}

func TestBackend_UnknownCollection(t *testing.T) {
	b := openBackend(t, t.TempDir())
	ctx := context.Background()

	_, err := b.ReadAll(ctx, "widgets")
	assert.ErrorIs(t, err, types.ErrUnknownCollection)
	_, _, err = b.ReadOne(ctx, "widgets", "a")
	assert.ErrorIs(t, err, types.ErrUnknownCollection)
	err = b.WriteAll(ctx, "widgets", nil)
	assert.ErrorIs(t, err, types.ErrUnknownCollection)
}

func TestBackend_ReadAll(t *testing.T) {
	tests := []struct {
		name    string
		records []types.Record
		want    []string
	}{
		{
			name:    "empty collection",
			records: nil,
			want:    []string{},
		},
		{
			name: "insertion order preserved",
			records: []types.Record{
				bookmarkRecord("c", "main", 0),
				bookmarkRecord("a", "main", 1),
				bookmarkRecord("b", "work", 0),
			},
			want: []string{"c", "a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := openBackend(t, t.TempDir())
			ctx := context.Background()

			require.NoError(t, b.WriteAll(ctx, types.BookmarksCollection, tt.records))

			got, err := b.ReadAll(ctx, types.BookmarksCollection)
			require.NoError(t, err)
			require.NotNil(t, got)

			keys := make([]string, 0, len(got))
			for _, rec := range got {
				keys = append(keys, rec.Key)
			}
			assert.Equal(t, tt.want, keys)
		})
	}
}

func TestBackend_WriteAllReplaces(t *testing.T) {
	b := openBackend(t, t.TempDir())
	ctx := context.Background()

	require.NoError(t, b.WriteAll(ctx, types.BookmarksCollection, []types.Record{
		bookmarkRecord("a", "main", 0),
		bookmarkRecord("b", "main", 1),
	}))
	require.NoError(t, b.WriteAll(ctx, types.BookmarksCollection, []types.Record{
		bookmarkRecord("c", "main", 0),
	}))

	got, err := b.ReadAll(ctx, types.BookmarksCollection)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "c", got[0].Key)
	assert.JSONEq(t, string(bookmarkRecord("c", "main", 0).Value), string(got[0].Value))
}

func TestBackend_WriteAllAtomic(t *testing.T) {
	tests := []struct {
		name    string
		records []types.Record
	}{
		{
			name: "duplicate key",
			records: []types.Record{
				bookmarkRecord("x", "main", 0),
				bookmarkRecord("x", "main", 1),
			},
		},
		{
			name:    "empty key",
			records: []types.Record{{Key: "", Value: []byte(`{}`)}},
		},
		{
			name: "invalid JSON",
			records: []types.Record{
				bookmarkRecord("y", "main", 0),
				{Key: "z", Value: []byte(`{not json`)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := openBackend(t, t.TempDir())
			ctx := context.Background()

			original := []types.Record{bookmarkRecord("a", "main", 0)}
			require.NoError(t, b.WriteAll(ctx, types.BookmarksCollection, original))

			err := b.WriteAll(ctx, types.BookmarksCollection, tt.records)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrStorageWriteFailed)

			got, err := b.ReadAll(ctx, types.BookmarksCollection)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "a", got[0].Key)
		})
	}
}

func TestBackend_KeyedRecords(t *testing.T) {
	b := openBackend(t, t.TempDir())
	ctx := context.Background()

	_, ok, err := b.ReadOne(ctx, types.MetadataCollection, types.MigrationKey)
	require.NoError(t, err)
	assert.False(t, ok, "absent key is not an error")

	rec := types.Record{Key: types.MigrationKey, Value: []byte(`{"state":"backed_up"}`)}
	require.NoError(t, b.WriteOne(ctx, types.MetadataCollection, rec))

	rec.Value = []byte(`{"state":"complete","completed":true}`)
	require.NoError(t, b.WriteOne(ctx, types.MetadataCollection, rec))

	got, ok, err := b.ReadOne(ctx, types.MetadataCollection, types.MigrationKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"state":"complete","completed":true}`, string(got.Value))

	require.NoError(t, b.DeleteOne(ctx, types.MetadataCollection, types.MigrationKey))
	require.NoError(t, b.DeleteOne(ctx, types.MetadataCollection, types.MigrationKey), "deleting an absent key succeeds")

	_, ok, err = b.ReadOne(ctx, types.MetadataCollection, types.MigrationKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBackend_Images(t *testing.T) {
	b := openBackend(t, t.TempDir())
	ctx := context.Background()

	payload := []byte{0x89, 'P', 'N', 'G', 0x00, 0xff, 0x10}
	require.NoError(t, b.WriteOne(ctx, types.ImagesCollection, types.Record{Key: "bg-main", Value: payload}))

	got, ok, err := b.ReadOne(ctx, types.ImagesCollection, "bg-main")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload, got.Value)

	// Image bytes need not be JSON.
	err = b.WriteAll(ctx, types.ImagesCollection, []types.Record{{Key: "raw", Value: []byte("not json")}})
	require.NoError(t, err)
}

func TestBackend_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first := openBackend(t, dir)
	require.NoError(t, first.WriteAll(ctx, types.FoldersCollection, []types.Record{
		{Key: "main", Value: []byte(`{"id":"main","name":"Main","order":0,"isDefault":true}`)},
	}))
	require.NoError(t, first.Close())

	second := openBackend(t, dir)
	got, err := second.ReadAll(ctx, types.FoldersCollection)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "main", got[0].Key)

	var versions int
	require.NoError(t, second.db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 1, versions, "schema versions are applied once")
}

func TestBackend_IndexColumns(t *testing.T) {
	b := openBackend(t, t.TempDir())
	ctx := context.Background()

	require.NoError(t, b.WriteAll(ctx, types.BookmarksCollection, []types.Record{
		bookmarkRecord("a", "work", 3),
	}))

	var folder string
	var position int
	require.NoError(t, b.db.QueryRow("SELECT folder_id, position FROM bookmarks WHERE id = 'a'").Scan(&folder, &position))
	assert.Equal(t, "work", folder)
	assert.Equal(t, 3, position)
}

func TestBackend_Size(t *testing.T) {
	b := openBackend(t, t.TempDir())

	size, err := b.Size(context.Background())
	require.NoError(t, err)
	assert.Positive(t, size)
}
