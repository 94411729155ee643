package homepage

import (
	"context"
	"fmt"
	"strings"

	"github.com/mesh-intelligence/homepage/pkg/types"
)

func (s *Service) checkFolderName(folders []types.Folder, name, exceptID string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: folder name is required", types.ErrInvalidName)
	}
	if types.FolderNameTaken(folders, name, exceptID) {
		return "", fmt.Errorf("%q: %w", name, types.ErrDuplicateName)
	}
	return name, nil
}

// CreateFolder adds a folder after the existing ones. New folders inherit
// the default folder's background.
func (s *Service) CreateFolder(ctx context.Context, name string) (types.Folder, error) {
	id, err := s.newID()
	if err != nil {
		return types.Folder{}, fmt.Errorf("generating folder id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks, folders := s.copyState()
	name, err = s.checkFolderName(folders, name, "")
	if err != nil {
		return types.Folder{}, err
	}

	f := types.Folder{
		ID:                id,
		Name:              name,
		Order:             len(folders),
		InheritBackground: true,
	}
	folders = append(folders, f)
	if err := s.commit(ctx, bookmarks, folders); err != nil {
		return types.Folder{}, err
	}
	s.logger.Debug("created folder", "id", f.ID, "name", f.Name)
	return f, nil
}

// RenameFolder changes a folder's name.
func (s *Service) RenameFolder(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks, folders := s.copyState()
	i := folderIndex(folders, id)
	if i < 0 {
		return fmt.Errorf("folder %s: %w", id, types.ErrNotFound)
	}
	name, err := s.checkFolderName(folders, name, id)
	if err != nil {
		return err
	}
	folders[i].Name = name
	return s.commit(ctx, bookmarks, folders)
}

// ReorderFolders moves the folder at display position from to position to.
func (s *Service) ReorderFolders(ctx context.Context, from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks, folders := s.copyState()
	folders, err := types.MoveFolder(folders, from, to)
	if err != nil {
		return err
	}
	return s.commit(ctx, bookmarks, folders)
}

// DeleteFolder removes a folder. Its bookmarks move to the end of the
// default folder and its background image is deleted. The default folder
// cannot be deleted.
func (s *Service) DeleteFolder(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookmarks, folders := s.copyState()
	i := folderIndex(folders, id)
	if i < 0 {
		return fmt.Errorf("folder %s: %w", id, types.ErrNotFound)
	}
	doomed := folders[i]
	if doomed.IsDefault {
		return fmt.Errorf("folder %s: %w", id, types.ErrDefaultFolder)
	}
	def, _ := types.DefaultFolder(folders)

	next := len(types.FolderBookmarks(bookmarks, def.ID))
	for _, b := range types.FolderBookmarks(bookmarks, id) {
		j := bookmarkIndex(bookmarks, b.ID)
		bookmarks[j].FolderID = def.ID
		bookmarks[j].Order = next
		next++
	}

	folders = append(folders[:i], folders[i+1:]...)
	for j, f := range types.SortedFolders(folders) {
		folders[folderIndex(folders, f.ID)].Order = j
	}

	if err := s.commit(ctx, bookmarks, folders); err != nil {
		return err
	}
	s.dropImage(ctx, doomed.BackgroundImageID)
	s.logger.Debug("deleted folder", "id", id, "moved_to", def.ID)
	return nil
}
