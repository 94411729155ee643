package homepage

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/homepage/pkg/types"
)

// FallbackIcon is shown for bookmarks whose URL has no usable host.
const FallbackIcon = `data:image/svg+xml,<svg xmlns="http://www.w3.org/2000/svg" width="64" height="64" viewBox="0 0 24 24" fill="none" stroke="currentColor" stroke-width="2" stroke-linecap="round" stroke-linejoin="round"><circle cx="12" cy="12" r="10"/><path d="M12 2a14.5 14.5 0 0 0 0 20 14.5 14.5 0 0 0 0-20"/><path d="M2 12h20"/></svg>`

// FaviconURL returns the favicon service URL for rawURL's host.
func FaviconURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return FallbackIcon
	}
	return "https://www.google.com/s2/favicons?domain=" + url.QueryEscape(u.Hostname()) + "&sz=64"
}

// iconDataURI encodes an uploaded icon as a data URI.
func iconDataURI(data []byte, filename string) string {
	contentType := ""
	if ext := filepath.Ext(filename); ext != "" {
		contentType = mime.TypeByExtension(ext)
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// NewBookmark describes a bookmark to add.
type NewBookmark struct {
	Title    string
	URL      string
	FolderID string // empty means the default folder

	// Icon is an uploaded image; without it the favicon service is used.
	Icon         []byte
	IconFilename string

	// RejectDuplicate refuses a URL that is already bookmarked.
	RejectDuplicate bool
}

func checkBookmark(title, rawURL string) error {
	if title == "" {
		return fmt.Errorf("%w: title is required", types.ErrInvalidName)
	}
	if rawURL == "" {
		return fmt.Errorf("%w: url is required", types.ErrInvalidURL)
	}
	return nil
}

// AddBookmark appends a bookmark to the end of its folder.
func (s *Service) AddBookmark(ctx context.Context, nb NewBookmark) (types.Bookmark, error) {
	title, rawURL := strings.TrimSpace(nb.Title), strings.TrimSpace(nb.URL)
	if err := checkBookmark(title, rawURL); err != nil {
		return types.Bookmark{}, err
	}
	id, err := s.newID()
	if err != nil {
		return types.Bookmark{}, fmt.Errorf("generating bookmark id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	folderID := nb.FolderID
	if folderID == "" {
		def, _ := types.DefaultFolder(s.folders)
		folderID = def.ID
	} else if folderIndex(s.folders, folderID) < 0 {
		return types.Bookmark{}, fmt.Errorf("folder %s: %w", folderID, types.ErrNotFound)
	}

	if nb.RejectDuplicate {
		for _, b := range s.bookmarks {
			if b.URL == rawURL {
				return types.Bookmark{}, fmt.Errorf("%s: %w", rawURL, types.ErrDuplicateURL)
			}
		}
	}

	b := types.Bookmark{
		ID:       id,
		Title:    title,
		URL:      rawURL,
		Icon:     FaviconURL(rawURL),
		FolderID: folderID,
		Order:    len(types.FolderBookmarks(s.bookmarks, folderID)),
	}
	if len(nb.Icon) > 0 {
		b.Icon = iconDataURI(nb.Icon, nb.IconFilename)
		b.CustomIcon = true
		b.IconFilename = types.StringPtr(nb.IconFilename)
	}

	bookmarks, folders := s.copyState()
	bookmarks = append(bookmarks, b)
	if err := s.commit(ctx, bookmarks, folders); err != nil {
		return types.Bookmark{}, err
	}
	s.logger.Debug("added bookmark", "id", b.ID, "folder", folderID)
	return b, nil
}

// BookmarkEdit carries the new title and URL of a bookmark, and optionally
// a new icon.
type BookmarkEdit struct {
	Title        string
	URL          string
	Icon         []byte
	IconFilename string
}

// EditBookmark updates a bookmark. Without a new icon, a bookmark that uses
// the favicon service follows its URL; a custom icon is kept.
func (s *Service) EditBookmark(ctx context.Context, id string, edit BookmarkEdit) (types.Bookmark, error) {
	title, rawURL := strings.TrimSpace(edit.Title), strings.TrimSpace(edit.URL)
	if err := checkBookmark(title, rawURL); err != nil {
		return types.Bookmark{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks, folders := s.copyState()
	i := bookmarkIndex(bookmarks, id)
	if i < 0 {
		return types.Bookmark{}, fmt.Errorf("bookmark %s: %w", id, types.ErrNotFound)
	}
	b := &bookmarks[i]
	b.Title = title
	b.URL = rawURL
	switch {
	case len(edit.Icon) > 0:
		b.Icon = iconDataURI(edit.Icon, edit.IconFilename)
		b.CustomIcon = true
		b.IconFilename = types.StringPtr(edit.IconFilename)
	case !b.CustomIcon:
		b.Icon = FaviconURL(rawURL)
	}

	if err := s.commit(ctx, bookmarks, folders); err != nil {
		return types.Bookmark{}, err
	}
	return bookmarks[i], nil
}

// DeleteBookmark removes a bookmark and closes the gap in its folder.
func (s *Service) DeleteBookmark(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks, folders := s.copyState()
	i := bookmarkIndex(bookmarks, id)
	if i < 0 {
		return fmt.Errorf("bookmark %s: %w", id, types.ErrNotFound)
	}
	folderID := bookmarks[i].FolderID
	bookmarks = append(bookmarks[:i], bookmarks[i+1:]...)
	types.Resequence(bookmarks, folderID)
	return s.commit(ctx, bookmarks, folders)
}

// MoveBookmark moves bookmark id to position to within folderID. The
// folder's bookmarks are re-sequenced to 0..n-1.
func (s *Service) MoveBookmark(ctx context.Context, folderID, id string, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks, folders := s.copyState()
	i := bookmarkIndex(bookmarks, id)
	if i < 0 || bookmarks[i].FolderID != folderID {
		return fmt.Errorf("bookmark %s in folder %s: %w", id, folderID, types.ErrNotFound)
	}
	if err := types.MoveBookmark(bookmarks, id, to); err != nil {
		return err
	}
	return s.commit(ctx, bookmarks, folders)
}

// MoveBookmarkToFolder moves a bookmark to the end of another folder.
func (s *Service) MoveBookmarkToFolder(ctx context.Context, id, folderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks, folders := s.copyState()
	i := bookmarkIndex(bookmarks, id)
	if i < 0 {
		return fmt.Errorf("bookmark %s: %w", id, types.ErrNotFound)
	}
	if folderIndex(folders, folderID) < 0 {
		return fmt.Errorf("folder %s: %w", folderID, types.ErrNotFound)
	}
	from := bookmarks[i].FolderID
	if from == folderID {
		return nil
	}
	bookmarks[i].FolderID = folderID
	bookmarks[i].Order = len(types.FolderBookmarks(bookmarks, folderID))
	types.Resequence(bookmarks, from)
	types.Resequence(bookmarks, folderID)
	return s.commit(ctx, bookmarks, folders)
}

// SortFolderBookmarks orders folderID's bookmarks by title.
func (s *Service) SortFolderBookmarks(ctx context.Context, folderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if folderIndex(s.folders, folderID) < 0 {
		return fmt.Errorf("folder %s: %w", folderID, types.ErrNotFound)
	}
	bookmarks, folders := s.copyState()
	return s.commit(ctx, types.SortFolderBookmarks(bookmarks, folderID), folders)
}
