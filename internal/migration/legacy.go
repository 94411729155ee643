package migration

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_legacy_store.go -package=mocks github.com/mesh-intelligence/homepage/internal/migration LegacyStore

import (
	"context"
	"encoding/json"
)

// LegacyStore is the small key-value store that predates the Binary Store.
// Values are raw JSON.
type LegacyStore interface {
	ReadAll(ctx context.Context) (map[string]json.RawMessage, error)
	WriteAll(ctx context.Context, values map[string]json.RawMessage) error
	Clear(ctx context.Context) error
}

// Keys of the legacy store.
const (
	legacyBookmarks = "bookmarks"
	legacyFolders   = "folders"
	legacySettings  = "settings"

	markerBackup = "migrationBackup"
	markerDate   = "migrationDate"
)

// Legacy settings fields that moved onto folders.
var legacyBackgroundFields = []string{"backgroundFile", "backgroundFilename", "backgroundUrl"}

// isMarkerOnly reports whether values holds nothing but the marker left
// behind by a completed migration.
func isMarkerOnly(values map[string]json.RawMessage) bool {
	if len(values) == 0 {
		return false
	}
	for k := range values {
		if k != markerBackup && k != markerDate {
			return false
		}
	}
	return true
}

func marker(date int64) (map[string]json.RawMessage, error) {
	backup, err := json.Marshal(backupKey)
	if err != nil {
		return nil, err
	}
	stamp, err := json.Marshal(date)
	if err != nil {
		return nil, err
	}
	return map[string]json.RawMessage{
		markerBackup: backup,
		markerDate:   stamp,
	}, nil
}
