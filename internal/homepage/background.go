package homepage

import (
	"context"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/homepage/internal/storage"
	"github.com/mesh-intelligence/homepage/pkg/types"
)

// Background is what a folder shows behind its bookmarks. Exactly one of
// Image and URL is set.
type Background struct {
	// SourceFolderID is the folder the background comes from; it differs
	// from the requested folder when the background is inherited.
	SourceFolderID string               `json:"sourceFolderId"`
	Image          *storage.ImageHandle `json:"image,omitempty"`
	URL            string               `json:"url,omitempty"`
}

func (s *Service) imageID(f types.Folder) string {
	scope := f.ID
	if f.IsDefault {
		scope = types.DefaultFolderID
	}
	return fmt.Sprintf("bg-%s-%d", scope, s.now().UnixMilli())
}

// dropImage deletes a replaced image. A failure leaves an orphaned blob,
// which is logged and otherwise ignored.
func (s *Service) dropImage(ctx context.Context, id *string) {
	if types.StringValue(id) == "" {
		return
	}
	if err := s.store.DeleteImage(ctx, *id); err != nil {
		s.logger.Warn("orphaned background image", "id", *id, "error", err)
	}
}

// SetFolderBackground stores data as the folder's background image. The new
// image is saved and the folder updated before the old image is deleted, so
// a crash can orphan the old blob but never leaves the folder pointing at a
// missing one.
func (s *Service) SetFolderBackground(ctx context.Context, folderID string, data []byte) (types.Folder, error) {
	if len(data) == 0 {
		return types.Folder{}, fmt.Errorf("%w: empty image", types.ErrInvalidRecord)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks, folders := s.copyState()
	i := folderIndex(folders, folderID)
	if i < 0 {
		return types.Folder{}, fmt.Errorf("folder %s: %w", folderID, types.ErrNotFound)
	}
	old := folders[i].BackgroundImageID

	id := s.imageID(folders[i])
	if err := s.store.SaveImage(ctx, id, data); err != nil {
		return types.Folder{}, err
	}
	folders[i].BackgroundImageID = &id
	folders[i].BackgroundURL = nil
	folders[i].InheritBackground = false
	if err := s.commit(ctx, bookmarks, folders); err != nil {
		s.dropImage(ctx, &id)
		return types.Folder{}, err
	}
	s.dropImage(ctx, old)
	return folders[i], nil
}

// SetFolderBackgroundURL points the folder's background at a remote image.
func (s *Service) SetFolderBackgroundURL(ctx context.Context, folderID, rawURL string) (types.Folder, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return types.Folder{}, fmt.Errorf("%w: background url is required", types.ErrInvalidURL)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks, folders := s.copyState()
	i := folderIndex(folders, folderID)
	if i < 0 {
		return types.Folder{}, fmt.Errorf("folder %s: %w", folderID, types.ErrNotFound)
	}
	old := folders[i].BackgroundImageID
	folders[i].BackgroundURL = &rawURL
	folders[i].BackgroundImageID = nil
	folders[i].InheritBackground = false
	if err := s.commit(ctx, bookmarks, folders); err != nil {
		return types.Folder{}, err
	}
	s.dropImage(ctx, old)
	return folders[i], nil
}

// ClearFolderBackground removes the folder's own background. Non-default
// folders go back to inheriting from the default folder.
func (s *Service) ClearFolderBackground(ctx context.Context, folderID string) (types.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks, folders := s.copyState()
	i := folderIndex(folders, folderID)
	if i < 0 {
		return types.Folder{}, fmt.Errorf("folder %s: %w", folderID, types.ErrNotFound)
	}
	old := folders[i].BackgroundImageID
	folders[i].BackgroundImageID = nil
	folders[i].BackgroundURL = nil
	folders[i].InheritBackground = !folders[i].IsDefault
	if err := s.commit(ctx, bookmarks, folders); err != nil {
		return types.Folder{}, err
	}
	s.dropImage(ctx, old)
	return folders[i], nil
}

// Background resolves what folderID shows. It returns nil when the built-in
// background applies. A stored image that has gone missing falls back to
// the folder's URL, if any.
func (s *Service) Background(ctx context.Context, folderID string) (*Background, error) {
	s.mu.Lock()
	if folderIndex(s.folders, folderID) < 0 {
		s.mu.Unlock()
		return nil, fmt.Errorf("folder %s: %w", folderID, types.ErrNotFound)
	}
	src, ok := types.BackgroundSource(s.folders, folderID)
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}

	bg := &Background{SourceFolderID: src.ID}
	if id := types.StringValue(src.BackgroundImageID); id != "" {
		handle, err := s.store.GetImage(ctx, id)
		if err != nil {
			return nil, err
		}
		if handle != nil {
			bg.Image = handle
			return bg, nil
		}
		s.logger.Warn("background image missing", "folder", src.ID, "id", id)
	}
	if u := types.StringValue(src.BackgroundURL); u != "" {
		bg.URL = u
		return bg, nil
	}
	return nil, nil
}
