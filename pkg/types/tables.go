package types

import (
	"encoding/json"
	"fmt"
)

// Collection names in the Binary Store.
const (
	BookmarksCollection = "bookmarks"
	FoldersCollection   = "folders"
	SettingsCollection  = "settings"
	ImagesCollection    = "images"
	MetadataCollection  = "metadata"
)

// StandardCollections lists every collection for enumeration.
var StandardCollections = []string{
	BookmarksCollection,
	FoldersCollection,
	SettingsCollection,
	ImagesCollection,
	MetadataCollection,
}

// Keys used inside the keyed collections.
const (
	SettingsKey           = "main"
	MigrationKey          = "migration"
	LastUpdatedKey        = "lastUpdated"
	PreMigrationBackupKey = "pre-migration-backup"
)

// IsCollection reports whether name is one of the standard collections.
func IsCollection(name string) bool {
	for _, c := range StandardCollections {
		if c == name {
			return true
		}
	}
	return false
}

// IsRecordCollection reports whether name holds whole-collection records
// keyed by their own id (bookmarks, folders) rather than explicit keys.
func IsRecordCollection(name string) bool {
	return name == BookmarksCollection || name == FoldersCollection
}

// Record is one stored value and the key it lives under. Value holds the
// JSON encoding for record collections and raw bytes for images.
type Record struct {
	Key   string
	Value []byte
}

// Keyed is implemented by records that carry their own key.
type Keyed interface {
	RecordKey() string
}

// EncodeRecords encodes items as JSON records keyed by RecordKey.
func EncodeRecords[T Keyed](items []T) ([]Record, error) {
	records := make([]Record, 0, len(items))
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", item.RecordKey(), err)
		}
		records = append(records, Record{Key: item.RecordKey(), Value: data})
	}
	return records, nil
}
