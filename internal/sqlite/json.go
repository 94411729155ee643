package sqlite

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mesh-intelligence/homepage/pkg/types"
)

// bookmarkIndex holds the bookmark fields lifted into columns.
type bookmarkIndex struct {
	FolderID string  `json:"folderId"`
	Order    float64 `json:"order"`
}

// folderIndex holds the folder fields lifted into columns.
type folderIndex struct {
	Order float64 `json:"order"`
}

// collectionSpec maps a collection to its table and row layout.
type collectionSpec struct {
	table   string
	columns []string
	row     func(rec types.Record) ([]any, error)
}

var collections = map[string]collectionSpec{
	types.BookmarksCollection: {
		table:   "bookmarks",
		columns: []string{"id", "folder_id", "position", "data"},
		row:     bookmarkRow,
	},
	types.FoldersCollection: {
		table:   "folders",
		columns: []string{"id", "ord", "data"},
		row:     folderRow,
	},
	types.SettingsCollection: {
		table:   "settings",
		columns: []string{"id", "data"},
		row:     documentRow,
	},
	types.MetadataCollection: {
		table:   "metadata",
		columns: []string{"id", "data"},
		row:     documentRow,
	},
	types.ImagesCollection: {
		table:   "images",
		columns: []string{"id", "data", "size", "updated_at"},
		row:     imageRow,
	},
}

func lookup(collection string) (collectionSpec, error) {
	cs, ok := collections[collection]
	if !ok {
		return collectionSpec{}, fmt.Errorf("%w: %q", types.ErrUnknownCollection, collection)
	}
	return cs, nil
}

func (s collectionSpec) insertSQL() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", s.table, strings.Join(s.columns, ", "), placeholders(len(s.columns)))
}

func (s collectionSpec) upsertSQL() string {
	return fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)", s.table, strings.Join(s.columns, ", "), placeholders(len(s.columns)))
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func checkKey(rec types.Record) error {
	if rec.Key == "" {
		return fmt.Errorf("%w: empty key", types.ErrInvalidRecord)
	}
	return nil
}

func checkDocument(rec types.Record) error {
	if err := checkKey(rec); err != nil {
		return err
	}
	if !json.Valid(rec.Value) {
		return fmt.Errorf("%w: value is not valid JSON", types.ErrInvalidRecord)
	}
	return nil
}

func documentRow(rec types.Record) ([]any, error) {
	if err := checkDocument(rec); err != nil {
		return nil, err
	}
	return []any{rec.Key, string(rec.Value)}, nil
}

func bookmarkRow(rec types.Record) ([]any, error) {
	if err := checkDocument(rec); err != nil {
		return nil, err
	}
	var idx bookmarkIndex
	if err := json.Unmarshal(rec.Value, &idx); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidRecord, err)
	}
	return []any{rec.Key, idx.FolderID, int64(idx.Order), string(rec.Value)}, nil
}

func folderRow(rec types.Record) ([]any, error) {
	if err := checkDocument(rec); err != nil {
		return nil, err
	}
	var idx folderIndex
	if err := json.Unmarshal(rec.Value, &idx); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidRecord, err)
	}
	return []any{rec.Key, int64(idx.Order), string(rec.Value)}, nil
}

func imageRow(rec types.Record) ([]any, error) {
	if err := checkKey(rec); err != nil {
		return nil, err
	}
	data := rec.Value
	if data == nil {
		data = []byte{}
	}
	return []any{rec.Key, data, int64(len(data)), time.Now().UTC().Format(time.RFC3339)}, nil
}
