// Package homepage implements the dashboard operations on top of the
// storage manager: bookmarks, folders, per-folder backgrounds and display
// settings. The service keeps the full bookmark and folder lists in memory
// and writes them back whole after every change.
package homepage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/homepage/internal/storage"
	"github.com/mesh-intelligence/homepage/pkg/types"
)

// Service is the dashboard state. All methods are safe for concurrent use.
type Service struct {
	mu        sync.Mutex
	store     *storage.Manager
	bookmarks []types.Bookmark
	folders   []types.Folder
	settings  types.Settings

	now    func() time.Time
	newID  func() (string, error)
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock sets the time source used for image ids and update stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator sets the generator for bookmark and folder ids.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Service) {
		s.newID = gen
	}
}

func uuidV7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// New creates a Service over an initialized storage manager. Call Load
// before anything else.
func New(store *storage.Manager, opts ...Option) *Service {
	s := &Service{
		store:    store,
		settings: types.DefaultSettings(),
		now:      time.Now,
		newID:    uuidV7,
		logger:   slog.Default().With("component", "homepage"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads bookmarks, folders and settings from storage. Stored settings
// are laid over the defaults. If the data breaks a folder invariant (no
// folders, no default folder, bookmarks pointing at missing folders) it is
// repaired and saved.
func (s *Service) Load(ctx context.Context) error {
	bookmarks, err := storage.Load[types.Bookmark](ctx, s.store, types.BookmarksCollection)
	if err != nil {
		return fmt.Errorf("loading bookmarks: %w", err)
	}
	folders, err := storage.Load[types.Folder](ctx, s.store, types.FoldersCollection)
	if err != nil {
		return fmt.Errorf("loading folders: %w", err)
	}

	settings := types.DefaultSettings()
	raw, err := s.store.Keyed(ctx, types.SettingsCollection, types.SettingsKey)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if raw != nil {
		if err := json.Unmarshal(raw, &settings); err != nil {
			return fmt.Errorf("decoding settings: %w", err)
		}
	}

	folders, bookmarks, changed := types.Reconcile(folders, bookmarks, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	if !changed {
		s.bookmarks, s.folders = bookmarks, folders
		return nil
	}
	s.logger.Info("repairing folder layout", "folders", len(folders), "bookmarks", len(bookmarks))
	return s.commit(ctx, bookmarks, folders)
}

// commit saves bookmarks and folders and, on success, makes them current.
// The two collections are written in separate transactions. If the folders
// write fails the saved bookmarks are already new while memory keeps the old
// state; the next Load reconciles the pair. The caller holds s.mu.
func (s *Service) commit(ctx context.Context, bookmarks []types.Bookmark, folders []types.Folder) error {
	if err := storage.Replace(ctx, s.store, types.BookmarksCollection, bookmarks); err != nil {
		return err
	}
	if err := storage.Replace(ctx, s.store, types.FoldersCollection, folders); err != nil {
		return err
	}
	s.bookmarks, s.folders = bookmarks, folders
	s.touch(ctx)
	return nil
}

// touch records the time of the last change. A failed stamp is logged.
func (s *Service) touch(ctx context.Context) {
	stamp := types.LastUpdated{Timestamp: s.now().UnixMilli()}
	if err := storage.Put(ctx, s.store, types.MetadataCollection, types.LastUpdatedKey, stamp); err != nil {
		s.logger.Warn("recording last update", "error", err)
	}
}

func (s *Service) copyState() ([]types.Bookmark, []types.Folder) {
	return append([]types.Bookmark(nil), s.bookmarks...), append([]types.Folder(nil), s.folders...)
}

// Bookmarks returns folderID's bookmarks in display order.
func (s *Service) Bookmarks(folderID string) []types.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.FolderBookmarks(s.bookmarks, folderID)
}

// AllBookmarks returns every bookmark in stored order.
func (s *Service) AllBookmarks() []types.Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Bookmark(nil), s.bookmarks...)
}

// Bookmark returns the bookmark with id.
func (s *Service) Bookmark(id string) (types.Bookmark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := bookmarkIndex(s.bookmarks, id)
	if i < 0 {
		return types.Bookmark{}, fmt.Errorf("bookmark %s: %w", id, types.ErrNotFound)
	}
	return s.bookmarks[i], nil
}

// Folders returns every folder in display order.
func (s *Service) Folders() []types.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return types.SortedFolders(s.folders)
}

// Folder returns the folder with id.
func (s *Service) Folder(id string) (types.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := folderIndex(s.folders, id)
	if i < 0 {
		return types.Folder{}, fmt.Errorf("folder %s: %w", id, types.ErrNotFound)
	}
	return s.folders[i], nil
}

// DefaultFolder returns the default folder.
func (s *Service) DefaultFolder() types.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, _ := types.DefaultFolder(s.folders)
	return f
}

func bookmarkIndex(bookmarks []types.Bookmark, id string) int {
	for i := range bookmarks {
		if bookmarks[i].ID == id {
			return i
		}
	}
	return -1
}

func folderIndex(folders []types.Folder, id string) int {
	for i := range folders {
		if folders[i].ID == id {
			return i
		}
	}
	return -1
}
