package homepage

import (
	"context"
	"time"

	"github.com/mesh-intelligence/homepage/internal/migration"
	"github.com/mesh-intelligence/homepage/internal/storage"
	"github.com/mesh-intelligence/homepage/pkg/types"
)

// Settings returns the display settings.
func (s *Service) Settings() types.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UpdateSettings applies fn to a copy of the settings, validates the
// result and saves it.
func (s *Service) UpdateSettings(ctx context.Context, fn func(*types.Settings)) (types.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.settings
	fn(&next)
	if err := next.Validate(); err != nil {
		return s.settings, err
	}
	if err := storage.Put(ctx, s.store, types.SettingsCollection, types.SettingsKey, next); err != nil {
		return s.settings, err
	}
	s.settings = next
	s.touch(ctx)
	return next, nil
}

// Stats summarizes the stored data.
type Stats struct {
	Bookmarks   int                  `json:"bookmarks"`
	Folders     int                  `json:"folders"`
	LastUpdated *time.Time           `json:"lastUpdated,omitempty"`
	Usage       *types.Usage         `json:"usage,omitempty"`
	Migration   types.MigrationState `json:"migration"`
}

// Stats reports counts, the last change, storage usage and migration state.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	st := Stats{Bookmarks: len(s.bookmarks), Folders: len(s.folders)}
	s.mu.Unlock()

	stamp, err := storage.LoadKeyed[types.LastUpdated](ctx, s.store, types.MetadataCollection, types.LastUpdatedKey)
	if err != nil {
		return Stats{}, err
	}
	if stamp != nil {
		t := stamp.Time()
		st.LastUpdated = &t
	}

	st.Usage, err = s.store.StorageUsage(ctx)
	if err != nil {
		return Stats{}, err
	}

	st.Migration, err = migration.New(s.store, nil).State(ctx)
	if err != nil {
		return Stats{}, err
	}
	return st, nil
}
