package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Default folder identity. The synthesized default folder always uses these.
const (
	DefaultFolderID   = "main"
	DefaultFolderName = "Main"
)

// NewDefaultFolder returns the folder created when none exist.
func NewDefaultFolder() Folder {
	return Folder{
		ID:        DefaultFolderID,
		Name:      DefaultFolderName,
		Order:     0,
		IsDefault: true,
	}
}

// DefaultFolder returns the folder flagged as default, if any.
func DefaultFolder(folders []Folder) (Folder, bool) {
	for _, f := range folders {
		if f.IsDefault {
			return f, true
		}
	}
	return Folder{}, false
}

// Reconcile enforces the folder invariants on a loaded or migrated dataset:
// at least one folder exists, exactly one folder is the default, every
// bookmark has an id, and every bookmark references an existing folder.
// Bookmarks pointing nowhere are moved to the default folder. The inputs are
// not modified; changed reports whether the returned slices differ.
func Reconcile(folders []Folder, bookmarks []Bookmark, now time.Time) ([]Folder, []Bookmark, bool) {
	fs := append([]Folder(nil), folders...)
	bs := append([]Bookmark(nil), bookmarks...)
	changed := false

	if len(fs) == 0 {
		fs = []Folder{NewDefaultFolder()}
		changed = true
	}

	defaultIdx := -1
	for i := range fs {
		if !fs[i].IsDefault {
			continue
		}
		if defaultIdx == -1 {
			defaultIdx = i
			continue
		}
		// Prefer the canonical id when several claim the flag.
		if fs[i].ID == DefaultFolderID && fs[defaultIdx].ID != DefaultFolderID {
			fs[defaultIdx].IsDefault = false
			defaultIdx = i
		} else {
			fs[i].IsDefault = false
		}
		changed = true
	}
	if defaultIdx == -1 {
		defaultIdx = 0
		for i := range fs {
			if fs[i].ID == DefaultFolderID {
				defaultIdx = i
				break
			}
			if fs[i].Order < fs[defaultIdx].Order {
				defaultIdx = i
			}
		}
		fs[defaultIdx].IsDefault = true
		changed = true
	}
	defaultID := fs[defaultIdx].ID

	known := make(map[string]bool, len(fs))
	for _, f := range fs {
		known[f.ID] = true
	}
	for i := range bs {
		if bs[i].ID == "" {
			bs[i].ID = fmt.Sprintf("migrated-%d-%d", now.UnixMilli(), i)
			changed = true
		}
		if !known[bs[i].FolderID] {
			bs[i].FolderID = defaultID
			changed = true
		}
	}
	return fs, bs, changed
}

// FolderBookmarks returns the bookmarks of folderID in display order.
func FolderBookmarks(bookmarks []Bookmark, folderID string) []Bookmark {
	var out []Bookmark
	for _, b := range bookmarks {
		if b.FolderID == folderID {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// Resequence rewrites the order of folderID's bookmarks to 0..n-1, keeping
// their current relative display order.
func Resequence(bookmarks []Bookmark, folderID string) {
	applyOrder(bookmarks, FolderBookmarks(bookmarks, folderID))
}

// MoveBookmark moves bookmark id to position to within its folder's display
// order and re-sequences the folder. Lookups are by id.
func MoveBookmark(bookmarks []Bookmark, id string, to int) error {
	var folderID string
	found := false
	for _, b := range bookmarks {
		if b.ID == id {
			folderID = b.FolderID
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("bookmark %s: %w", id, ErrNotFound)
	}

	view := FolderBookmarks(bookmarks, folderID)
	if to < 0 || to >= len(view) {
		return fmt.Errorf("%w: %d not in 0..%d", ErrInvalidPosition, to, len(view)-1)
	}
	from := 0
	for i, b := range view {
		if b.ID == id {
			from = i
			break
		}
	}
	moved := view[from]
	view = append(view[:from], view[from+1:]...)
	view = append(view[:to], append([]Bookmark{moved}, view[to:]...)...)
	applyOrder(bookmarks, view)
	return nil
}

// SortFolderBookmarks orders folderID's bookmarks alphabetically by title and
// moves them to the end of the slice, matching the saved layout of the
// original dashboard. Other bookmarks keep their relative positions.
func SortFolderBookmarks(bookmarks []Bookmark, folderID string) []Bookmark {
	var inFolder, others []Bookmark
	for _, b := range bookmarks {
		if b.FolderID == folderID {
			inFolder = append(inFolder, b)
		} else {
			others = append(others, b)
		}
	}
	sort.SliceStable(inFolder, func(i, j int) bool {
		a, b := strings.ToLower(inFolder[i].Title), strings.ToLower(inFolder[j].Title)
		if a != b {
			return a < b
		}
		return inFolder[i].Title < inFolder[j].Title
	})
	for i := range inFolder {
		inFolder[i].Order = i
	}
	return append(others, inFolder...)
}

// MoveFolder moves the folder at display position from to position to and
// rewrites every folder's order to 0..n-1. The returned slice is in display
// order.
func MoveFolder(folders []Folder, from, to int) ([]Folder, error) {
	fs := SortedFolders(folders)
	if from < 0 || from >= len(fs) || to < 0 || to >= len(fs) {
		return nil, fmt.Errorf("%w: move %d to %d with %d folders", ErrInvalidPosition, from, to, len(fs))
	}
	moved := fs[from]
	fs = append(fs[:from], fs[from+1:]...)
	fs = append(fs[:to], append([]Folder{moved}, fs[to:]...)...)
	for i := range fs {
		fs[i].Order = i
	}
	return fs, nil
}

// SortedFolders returns a copy of folders in display order.
func SortedFolders(folders []Folder) []Folder {
	fs := append([]Folder(nil), folders...)
	sort.SliceStable(fs, func(i, j int) bool { return fs[i].Order < fs[j].Order })
	return fs
}

// FolderNameTaken reports whether name collides case-insensitively with a
// folder other than exceptID.
func FolderNameTaken(folders []Folder, name, exceptID string) bool {
	for _, f := range folders {
		if f.ID != exceptID && strings.EqualFold(f.Name, name) {
			return true
		}
	}
	return false
}

// applyOrder assigns positions from view back into the matching bookmarks.
func applyOrder(bookmarks []Bookmark, view []Bookmark) {
	pos := make(map[string]int, len(view))
	for i, b := range view {
		pos[b.ID] = i
	}
	for i := range bookmarks {
		if p, ok := pos[bookmarks[i].ID]; ok {
			bookmarks[i].Order = p
		}
	}
}
