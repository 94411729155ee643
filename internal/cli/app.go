package cli

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/homepage/internal/config"
	"github.com/mesh-intelligence/homepage/internal/homepage"
	"github.com/mesh-intelligence/homepage/internal/legacy"
	"github.com/mesh-intelligence/homepage/internal/migration"
	"github.com/mesh-intelligence/homepage/internal/paths"
	"github.com/mesh-intelligence/homepage/internal/sqlite"
	"github.com/mesh-intelligence/homepage/internal/storage"
	"github.com/mesh-intelligence/homepage/pkg/types"
)

// envFile is read from the working directory before config.yaml.
const envFile = ".env"

// app carries the resolved configuration and the storage stack, which is
// opened on first use and closed after the command finishes.
type app struct {
	flags     rootFlags
	cfg       *config.Config
	configDir string
	dataDir   string
	logger    *slog.Logger

	legacy *legacy.Store
	store  *storage.Manager
	svc    *homepage.Service
}

func (a *app) configure(cmd *cobra.Command) error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return systemError("resolve config dir: %w", err)
	}
	cfg, err := config.Load(configDir, envFile)
	if err != nil {
		if errors.Is(err, config.ErrInvalidConfig) {
			return err
		}
		return systemError("load config: %w", err)
	}
	dataDir, err := paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir)
	if err != nil {
		return systemError("resolve data dir: %w", err)
	}

	a.cfg = cfg
	a.configDir = configDir
	a.dataDir = dataDir
	a.logger = cfg.Logger(cmd.ErrOrStderr(), a.flags.verbose)
	return nil
}

func (a *app) storeConfig() types.Config {
	return a.cfg.Store(a.dataDir)
}

// open initializes storage, migrating legacy data if present, and loads
// the service.
func (a *app) open(ctx context.Context) (*homepage.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	cfg := a.storeConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var legacyStore migration.LegacyStore
	if _, err := os.Stat(cfg.LegacyPath); err == nil {
		ls := legacy.New(legacy.WithLogger(a.logger.With("component", "legacy")))
		if err := ls.Open(cfg.LegacyPath); err != nil {
			return nil, systemError("open legacy store: %w", err)
		}
		a.legacy = ls
		legacyStore = ls
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, systemError("stat legacy store: %w", err)
	}

	host := storage.DirHost{Dir: cfg.DataDir, Quota: cfg.QuotaBytes}
	backend := sqlite.NewBackend(cfg, sqlite.WithLogger(a.logger.With("component", "sqlite")))
	a.store = storage.New(backend, legacyStore,
		storage.WithLogger(a.logger.With("component", "storage")),
		storage.WithMigrationOptions(migration.WithLogger(a.logger.With("component", "migration"))),
		storage.WithPersister(host),
		storage.WithQuotaEstimator(host),
	)
	persisted, err := a.store.Initialize(ctx)
	if err != nil {
		return nil, err
	}
	if !persisted {
		a.logger.Debug("persistent storage not granted", "dir", cfg.DataDir)
	}

	svc := homepage.New(a.store, homepage.WithLogger(a.logger.With("component", "homepage")))
	if err := svc.Load(ctx); err != nil {
		return nil, err
	}
	a.svc = svc
	return svc, nil
}

func (a *app) close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.legacy != nil {
		errs = append(errs, a.legacy.Close())
		a.legacy = nil
	}
	a.svc = nil
	return errors.Join(errs...)
}
