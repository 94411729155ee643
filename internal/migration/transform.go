package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/mesh-intelligence/homepage/pkg/types"
)

// imageID returns the blob id for a migrated folder background.
func imageID(folderID string) string {
	return "bg-" + folderID
}

// transform writes bookmarks, folders, images and settings from the legacy
// values.
func (e *Engine) transform(ctx context.Context, values map[string]json.RawMessage) error {
	var bookmarks []types.Bookmark
	var rawBookmarks []map[string]json.RawMessage
	if raw, ok := values[legacyBookmarks]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &bookmarks); err != nil {
			return failed("decoding legacy bookmarks", err)
		}
		if err := json.Unmarshal(raw, &rawBookmarks); err != nil {
			return failed("decoding legacy bookmarks", err)
		}
	}

	var folders []types.Folder
	if raw, ok := values[legacyFolders]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &folders); err != nil {
			return failed("decoding legacy folders", err)
		}
	}

	var settings map[string]json.RawMessage
	if raw, ok := values[legacySettings]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &settings); err != nil {
			return failed("decoding legacy settings", err)
		}
	}
	globalFile, globalURL := globalBackground(settings)

	if len(bookmarks) > 0 || len(folders) > 0 || globalFile != "" || globalURL != "" {
		folders, bookmarks, _ = types.Reconcile(folders, bookmarks, e.now())

		if globalFile != "" || globalURL != "" {
			adoptGlobalBackground(folders, globalFile, globalURL)
		}
		for i := range folders {
			if err := e.convertBackground(ctx, &folders[i]); err != nil {
				return err
			}
		}

		records, err := bookmarkRecords(rawBookmarks, bookmarks)
		if err != nil {
			return failed("encoding "+types.BookmarksCollection, err)
		}
		if err := e.write(ctx, types.BookmarksCollection, records); err != nil {
			return err
		}
		if err := replace(ctx, e, types.FoldersCollection, folders); err != nil {
			return err
		}
	}

	if settings != nil {
		for _, field := range legacyBackgroundFields {
			delete(settings, field)
		}
		data, err := json.Marshal(settings)
		if err != nil {
			return failed("encoding settings", err)
		}
		if err := e.target.PutKeyed(ctx, types.SettingsCollection, types.SettingsKey, data); err != nil {
			return failed("writing settings", err)
		}
	}
	return nil
}

func replace[T types.Keyed](ctx context.Context, e *Engine, collection string, items []T) error {
	records, err := types.EncodeRecords(items)
	if err != nil {
		return failed("encoding "+collection, err)
	}
	return e.write(ctx, collection, records)
}

func (e *Engine) write(ctx context.Context, collection string, records []types.Record) error {
	if err := e.target.ReplaceCollection(ctx, collection, records); err != nil {
		return failed("writing "+collection, err)
	}
	e.logger.Debug("migrated collection", "collection", collection, "records", len(records))
	return nil
}

// bookmarkRecords encodes the reconciled bookmarks over their legacy
// objects, so fields the bookmark type does not model are carried over
// verbatim. Reconcile keeps bookmarks in input order, so raw[i] is the source
// of bookmarks[i].
func bookmarkRecords(raw []map[string]json.RawMessage, bookmarks []types.Bookmark) ([]types.Record, error) {
	records := make([]types.Record, 0, len(bookmarks))
	for i, b := range bookmarks {
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", b.ID, err)
		}
		if i < len(raw) && len(raw[i]) > 0 {
			var known map[string]json.RawMessage
			if err := json.Unmarshal(data, &known); err != nil {
				return nil, fmt.Errorf("encoding %s: %w", b.ID, err)
			}
			merged := make(map[string]json.RawMessage, len(raw[i])+len(known))
			maps.Copy(merged, raw[i])
			maps.Copy(merged, known)
			if data, err = json.Marshal(merged); err != nil {
				return nil, fmt.Errorf("encoding %s: %w", b.ID, err)
			}
		}
		records = append(records, types.Record{Key: b.ID, Value: data})
	}
	return records, nil
}

// convertBackground moves an inline folder image into the images
// collection. Folders without inline data are left alone, so a rerun over
// already converted folders does nothing. An image that cannot be decoded
// stays inline.
func (e *Engine) convertBackground(ctx context.Context, f *types.Folder) error {
	inline := types.StringValue(f.BackgroundFile)
	if inline == "" {
		return nil
	}

	data, err := decodeImage(inline)
	if err != nil {
		e.logger.Warn("keeping inline background", "folder", f.ID, "name", f.Name, "error", err)
		return nil
	}

	id := imageID(f.ID)
	if err := e.target.SaveImage(ctx, id, data); err != nil {
		return failed(fmt.Sprintf("saving background for folder %s", f.ID), err)
	}
	f.BackgroundImageID = &id
	f.BackgroundFile = nil
	f.BackgroundFilename = nil
	return nil
}

// globalBackground returns the legacy settings background, which predates
// per-folder backgrounds.
func globalBackground(settings map[string]json.RawMessage) (file, url string) {
	if settings == nil {
		return "", ""
	}
	if raw, ok := settings["backgroundFile"]; ok {
		_ = json.Unmarshal(raw, &file)
	}
	if raw, ok := settings["backgroundUrl"]; ok {
		_ = json.Unmarshal(raw, &url)
	}
	return file, url
}

// adoptGlobalBackground gives the default folder the legacy global
// background unless it already has its own.
func adoptGlobalBackground(folders []types.Folder, file, url string) {
	for i := range folders {
		f := &folders[i]
		if !f.IsDefault {
			continue
		}
		if f.HasOwnBackground() || types.StringValue(f.BackgroundFile) != "" {
			return
		}
		if file != "" {
			f.BackgroundFile = &file
			return
		}
		f.BackgroundURL = &url
		return
	}
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}
