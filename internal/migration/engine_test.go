package migration

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/mesh-intelligence/homepage/internal/migration/mocks"
	"github.com/mesh-intelligence/homepage/pkg/types"
)

var (
	fixedNow   = time.UnixMilli(1700000000000)
	pngPayload = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d}
	errBoom    = errors.New("boom")
)

// memTarget is an in-memory Target that counts writes.
type memTarget struct {
	keyed       map[string]json.RawMessage
	collections map[string][]types.Record
	images      map[string][]byte
	writes      map[string]int
	failReplace string
}

func newMemTarget() *memTarget {
	return &memTarget{
		keyed:       map[string]json.RawMessage{},
		collections: map[string][]types.Record{},
		images:      map[string][]byte{},
		writes:      map[string]int{},
	}
}

func (t *memTarget) Keyed(_ context.Context, name, key string) (json.RawMessage, error) {
	return t.keyed[name+":"+key], nil
}

func (t *memTarget) PutKeyed(_ context.Context, name, key string, value json.RawMessage) error {
	t.writes[name]++
	t.keyed[name+":"+key] = value
	return nil
}

func (t *memTarget) ReplaceCollection(_ context.Context, name string, records []types.Record) error {
	if name == t.failReplace {
		return types.WriteFailed("replace", name, "", errBoom)
	}
	t.writes[name]++
	t.collections[name] = records
	return nil
}

func (t *memTarget) SaveImage(_ context.Context, id string, data []byte) error {
	t.writes[types.ImagesCollection]++
	t.images[id] = data
	return nil
}

func (t *memTarget) migrationRecord(tb testing.TB) types.MigrationRecord {
	tb.Helper()
	var rec types.MigrationRecord
	require.NoError(tb, json.Unmarshal(t.keyed["metadata:migration"], &rec))
	return rec
}

func (t *memTarget) folders(tb testing.TB) []types.Folder {
	tb.Helper()
	var out []types.Folder
	for _, rec := range t.collections[types.FoldersCollection] {
		var f types.Folder
		require.NoError(tb, json.Unmarshal(rec.Value, &f))
		out = append(out, f)
	}
	return out
}

func (t *memTarget) bookmarks(tb testing.TB) []types.Bookmark {
	tb.Helper()
	var out []types.Bookmark
	for _, rec := range t.collections[types.BookmarksCollection] {
		var b types.Bookmark
		require.NoError(tb, json.Unmarshal(rec.Value, &b))
		out = append(out, b)
	}
	return out
}

func newEngine(target Target, legacy LegacyStore) *Engine {
	return New(target, legacy,
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func legacyValues(t *testing.T, kv map[string]any) map[string]json.RawMessage {
	t.Helper()
	out := make(map[string]json.RawMessage, len(kv))
	for k, v := range kv {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		out[k] = data
	}
	return out
}

// expectCleanup expects the legacy store to be cleared and given the marker.
func expectCleanup(t *testing.T, legacy *mocks.MockLegacyStore) {
	t.Helper()
	cleared := legacy.EXPECT().Clear(gomock.Any()).Return(nil)
	legacy.EXPECT().WriteAll(gomock.Any(), gomock.Any()).After(cleared).DoAndReturn(
		func(_ context.Context, values map[string]json.RawMessage) error {
			assert.JSONEq(t, `"pre-migration-backup"`, string(values["migrationBackup"]))
			assert.JSONEq(t, `1700000000000`, string(values["migrationDate"]))
			assert.Len(t, values, 2)
			return nil
		})
}

func TestRun_BookmarksWithoutFolders(t *testing.T) {
	ctrl := gomock.NewController(t)
	legacy := mocks.NewMockLegacyStore(ctrl)
	legacy.EXPECT().ReadAll(gomock.Any()).Return(legacyValues(t, map[string]any{
		"bookmarks": []map[string]any{{"url": "https://a.com", "title": "A"}},
		"folders":   []any{},
	}), nil)
	expectCleanup(t, legacy)

	target := newMemTarget()
	require.NoError(t, newEngine(target, legacy).Run(context.Background()))

	folders := target.folders(t)
	require.Len(t, folders, 1)
	assert.Equal(t, types.DefaultFolderID, folders[0].ID)
	assert.True(t, folders[0].IsDefault)

	bookmarks := target.bookmarks(t)
	require.Len(t, bookmarks, 1)
	assert.Equal(t, folders[0].ID, bookmarks[0].FolderID)
	assert.Equal(t, "migrated-1700000000000-0", bookmarks[0].ID)
	assert.Equal(t, "https://a.com", bookmarks[0].URL)

	rec := target.migrationRecord(t)
	assert.True(t, rec.Completed)
	assert.Equal(t, types.MigrationComplete, rec.State)
	assert.Equal(t, types.MigrationVersion, rec.Version)
	assert.Equal(t, fixedNow.UnixMilli(), rec.Timestamp)

	var backup types.MigrationBackup
	require.NoError(t, json.Unmarshal(target.keyed["metadata:pre-migration-backup"], &backup))
	assert.Equal(t, types.BackupVersion, backup.Version)
	assert.Contains(t, backup.Data, "bookmarks")
}

func TestRun_BookmarkFieldsKeptVerbatim(t *testing.T) {
	ctrl := gomock.NewController(t)
	legacy := mocks.NewMockLegacyStore(ctrl)
	legacy.EXPECT().ReadAll(gomock.Any()).Return(legacyValues(t, map[string]any{
		"bookmarks": []map[string]any{
			{"id": "b1", "url": "https://a.com", "title": "A", "folderId": "gone", "addedAt": 123},
		},
	}), nil)
	expectCleanup(t, legacy)

	target := newMemTarget()
	require.NoError(t, newEngine(target, legacy).Run(context.Background()))

	records := target.collections[types.BookmarksCollection]
	require.Len(t, records, 1)
	assert.Equal(t, "b1", records[0].Key)

	var stored map[string]any
	require.NoError(t, json.Unmarshal(records[0].Value, &stored))
	assert.Equal(t, float64(123), stored["addedAt"])
	assert.Equal(t, "https://a.com", stored["url"])
	assert.Equal(t, types.DefaultFolderID, stored["folderId"], "reconciled fields win over legacy ones")
}

func TestRun_InlineFolderBackground(t *testing.T) {
	ctrl := gomock.NewController(t)
	legacy := mocks.NewMockLegacyStore(ctrl)
	dataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngPayload)
	legacy.EXPECT().ReadAll(gomock.Any()).Return(legacyValues(t, map[string]any{
		"folders": []map[string]any{
			{"id": "main", "name": "Main", "order": 0, "isDefault": true},
			{"id": "work", "name": "Work", "order": 1, "backgroundFile": dataURI, "backgroundFilename": "bg.png"},
		},
	}), nil)
	expectCleanup(t, legacy)

	target := newMemTarget()
	require.NoError(t, newEngine(target, legacy).Run(context.Background()))

	folders := target.folders(t)
	require.Len(t, folders, 2)
	work := folders[1]
	assert.Nil(t, work.BackgroundFile)
	assert.Nil(t, work.BackgroundFilename)
	require.NotNil(t, work.BackgroundImageID)
	assert.Equal(t, "bg-work", *work.BackgroundImageID)
	assert.Equal(t, pngPayload, target.images["bg-work"])

	raw := target.collections[types.FoldersCollection][1].Value
	assert.NotContains(t, string(raw), "backgroundFile")
}

func TestRun_AlreadyComplete(t *testing.T) {
	ctrl := gomock.NewController(t)
	legacy := mocks.NewMockLegacyStore(ctrl) // no calls expected

	target := newMemTarget()
	target.keyed["metadata:migration"] = json.RawMessage(`{"completed":true,"timestamp":1,"version":"2.0"}`)

	require.NoError(t, newEngine(target, legacy).Run(context.Background()))
	assert.Empty(t, target.writes)
}

func TestRun_Twice(t *testing.T) {
	ctrl := gomock.NewController(t)
	legacy := mocks.NewMockLegacyStore(ctrl)
	legacy.EXPECT().ReadAll(gomock.Any()).Return(legacyValues(t, map[string]any{
		"bookmarks": []map[string]any{{"id": "b1", "url": "https://a.com", "title": "A", "folderId": "main"}},
		"settings":  map[string]any{"iconSize": 48},
	}), nil).Times(1)
	expectCleanup(t, legacy)

	target := newMemTarget()
	engine := newEngine(target, legacy)
	require.NoError(t, engine.Run(context.Background()))

	before := map[string]int{}
	for k, v := range target.writes {
		before[k] = v
	}
	bookmarks := target.bookmarks(t)

	require.NoError(t, engine.Run(context.Background()))
	assert.Equal(t, before, target.writes, "second run performs no writes")
	assert.Equal(t, bookmarks, target.bookmarks(t))

	state, err := engine.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.MigrationComplete, state)
}

func TestRun_EmptyLegacy(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]json.RawMessage
	}{
		{name: "no keys", values: map[string]json.RawMessage{}},
		{name: "marker only", values: map[string]json.RawMessage{
			"migrationBackup": json.RawMessage(`"pre-migration-backup"`),
			"migrationDate":   json.RawMessage(`1690000000000`),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			legacy := mocks.NewMockLegacyStore(ctrl)
			legacy.EXPECT().ReadAll(gomock.Any()).Return(tt.values, nil)

			target := newMemTarget()
			require.NoError(t, newEngine(target, legacy).Run(context.Background()))

			assert.True(t, target.migrationRecord(t).Completed)
			assert.Equal(t, map[string]int{types.MetadataCollection: 1}, target.writes)
		})
	}
}

func TestRun_NilLegacy(t *testing.T) {
	target := newMemTarget()
	require.NoError(t, newEngine(target, nil).Run(context.Background()))
	assert.True(t, target.migrationRecord(t).Completed)
}

func TestRun_FailureLeavesLegacyIntact(t *testing.T) {
	ctrl := gomock.NewController(t)
	legacy := mocks.NewMockLegacyStore(ctrl)
	values := legacyValues(t, map[string]any{
		"bookmarks": []map[string]any{{"id": "b1", "url": "https://a.com", "title": "A"}},
	})
	legacy.EXPECT().ReadAll(gomock.Any()).Return(values, nil).Times(2)

	target := newMemTarget()
	target.failReplace = types.FoldersCollection
	engine := newEngine(target, legacy)

	err := engine.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrMigrationFailed)
	assert.ErrorIs(t, err, types.ErrStorageWriteFailed)

	rec := target.migrationRecord(t)
	assert.False(t, rec.Completed)
	assert.Equal(t, types.MigrationTransforming, rec.State)

	// The next run resumes and finishes; only now is the legacy store cleared.
	target.failReplace = ""
	expectCleanup(t, legacy)
	require.NoError(t, engine.Run(context.Background()))
	assert.True(t, target.migrationRecord(t).Completed)
	assert.Equal(t, 1, target.writes[types.FoldersCollection])
}

func TestRun_LegacyReadError(t *testing.T) {
	ctrl := gomock.NewController(t)
	legacy := mocks.NewMockLegacyStore(ctrl)
	legacy.EXPECT().ReadAll(gomock.Any()).Return(nil, errBoom)

	target := newMemTarget()
	err := newEngine(target, legacy).Run(context.Background())
	assert.ErrorIs(t, err, types.ErrMigrationFailed)
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, target.writes)
}

func TestRun_ResumeKeepsBackup(t *testing.T) {
	ctrl := gomock.NewController(t)
	legacy := mocks.NewMockLegacyStore(ctrl)
	legacy.EXPECT().ReadAll(gomock.Any()).Return(legacyValues(t, map[string]any{
		"settings": map[string]any{"iconSize": 32},
	}), nil)
	expectCleanup(t, legacy)

	target := newMemTarget()
	target.keyed["metadata:migration"] = json.RawMessage(`{"state":"backed_up","completed":false,"timestamp":5}`)
	original := json.RawMessage(`{"timestamp":"2023-01-01T00:00:00Z","version":"1.0","data":{}}`)
	target.keyed["metadata:pre-migration-backup"] = original

	require.NoError(t, newEngine(target, legacy).Run(context.Background()))
	assert.Equal(t, original, target.keyed["metadata:pre-migration-backup"])
	assert.True(t, target.migrationRecord(t).Completed)
}

func TestRun_Settings(t *testing.T) {
	ctrl := gomock.NewController(t)
	legacy := mocks.NewMockLegacyStore(ctrl)
	dataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngPayload)
	legacy.EXPECT().ReadAll(gomock.Any()).Return(legacyValues(t, map[string]any{
		"settings": map[string]any{
			"iconSize":           80,
			"titleColor":         "#000000",
			"backgroundFile":     dataURI,
			"backgroundFilename": "bg.png",
			"backgroundUrl":      "",
		},
	}), nil)
	expectCleanup(t, legacy)

	target := newMemTarget()
	require.NoError(t, newEngine(target, legacy).Run(context.Background()))

	assert.JSONEq(t, `{"iconSize":80,"titleColor":"#000000"}`, string(target.keyed["settings:main"]))

	folders := target.folders(t)
	require.Len(t, folders, 1)
	require.NotNil(t, folders[0].BackgroundImageID)
	assert.Equal(t, "bg-main", *folders[0].BackgroundImageID)
	assert.Equal(t, pngPayload, target.images["bg-main"])
}

func TestRun_UndecodableBackgroundKept(t *testing.T) {
	ctrl := gomock.NewController(t)
	legacy := mocks.NewMockLegacyStore(ctrl)
	legacy.EXPECT().ReadAll(gomock.Any()).Return(legacyValues(t, map[string]any{
		"folders": []map[string]any{
			{"id": "main", "name": "Main", "isDefault": true, "backgroundFile": "data:image/png;base64,!!!"},
		},
	}), nil)
	expectCleanup(t, legacy)

	target := newMemTarget()
	require.NoError(t, newEngine(target, legacy).Run(context.Background()))

	folders := target.folders(t)
	require.Len(t, folders, 1)
	assert.Equal(t, "data:image/png;base64,!!!", types.StringValue(folders[0].BackgroundFile))
	assert.Nil(t, folders[0].BackgroundImageID)
	assert.Empty(t, target.images)
}

func TestRun_DefaultFolderInvariant(t *testing.T) {
	ctrl := gomock.NewController(t)
	legacy := mocks.NewMockLegacyStore(ctrl)
	legacy.EXPECT().ReadAll(gomock.Any()).Return(legacyValues(t, map[string]any{
		"folders": []map[string]any{
			{"id": "a", "name": "A", "order": 1},
			{"id": "b", "name": "B", "order": 0},
		},
		"bookmarks": []map[string]any{
			{"id": "x", "url": "https://x.com", "title": "X", "folderId": "gone"},
			{"id": "y", "url": "https://y.com", "title": "Y", "folderId": "a"},
		},
	}), nil)
	expectCleanup(t, legacy)

	target := newMemTarget()
	require.NoError(t, newEngine(target, legacy).Run(context.Background()))

	folders := target.folders(t)
	defaults := 0
	ids := map[string]bool{}
	for _, f := range folders {
		ids[f.ID] = true
		if f.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
	for _, b := range target.bookmarks(t) {
		assert.True(t, ids[b.FolderID], "bookmark %s references %s", b.ID, b.FolderID)
	}
}
