// Package storage is the facade over the Binary Store. It owns the store
// handle and the read-through cache, runs the legacy migration on
// Initialize, and issues session handles for stored images.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/homepage/internal/cache"
	"github.com/mesh-intelligence/homepage/internal/migration"
	"github.com/mesh-intelligence/homepage/pkg/types"
)

// BinaryStore is the durable collection store the manager sits on.
type BinaryStore interface {
	Open(ctx context.Context) error
	Close() error
	ReadAll(ctx context.Context, collection string) ([]types.Record, error)
	ReadOne(ctx context.Context, collection, key string) (types.Record, bool, error)
	WriteAll(ctx context.Context, collection string, records []types.Record) error
	WriteOne(ctx context.Context, collection string, rec types.Record) error
	DeleteOne(ctx context.Context, collection, key string) error
}

// Manager is the Storage Manager. Construct one per process with New and
// pass it to whatever needs persisted state.
type Manager struct {
	store   BinaryStore
	legacy  migration.LegacyStore
	cache   *cache.Cache[[]byte]
	handles *handleRegistry

	persister     Persister
	quota         QuotaEstimator
	migrationOpts []migration.Option
	logger        *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithPersister sets the host persistence capability.
func WithPersister(p Persister) Option {
	return func(m *Manager) {
		m.persister = p
	}
}

// WithQuotaEstimator sets the host quota capability.
func WithQuotaEstimator(q QuotaEstimator) Option {
	return func(m *Manager) {
		m.quota = q
	}
}

// WithMigrationOptions passes options to the migration engine run by
// Initialize. The engine logs through its own WithLogger option, not the
// manager's logger.
func WithMigrationOptions(opts ...migration.Option) Option {
	return func(m *Manager) {
		m.migrationOpts = append(m.migrationOpts, opts...)
	}
}

// New creates a Manager over store. legacy may be nil when there is no
// legacy data to migrate.
func New(store BinaryStore, legacy migration.LegacyStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		legacy:  legacy,
		cache:   cache.New[[]byte](),
		handles: newHandleRegistry(),
		logger:  slog.Default().With("component", "storage"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize requests persistence from the host, opens the store and runs
// the migration engine. The returned flag reports whether persistence was
// granted; false is advisory, not a failure. Initialize may be called more
// than once.
func (m *Manager) Initialize(ctx context.Context) (bool, error) {
	persisted := false
	if m.persister != nil {
		granted, err := m.persister.Persist(ctx)
		if err != nil {
			m.logger.Warn("persistence request failed", "error", err)
		}
		persisted = granted && err == nil
	}

	if err := m.store.Open(ctx); err != nil {
		return persisted, err
	}

	if err := migration.New(m, m.legacy, m.migrationOpts...).Run(ctx); err != nil {
		return persisted, err
	}
	return persisted, nil
}

// Close releases the store and revokes every outstanding image handle.
func (m *Manager) Close() error {
	m.handles.revokeAll()
	return m.store.Close()
}

// ClearCache drops every cached value. The next read goes to the store.
func (m *Manager) ClearCache() {
	m.cache.Clear()
}

func checkDocumentCollection(name string) error {
	if name == types.ImagesCollection {
		return fmt.Errorf("%w: %s holds blobs, use the image operations", types.ErrUnknownCollection, name)
	}
	if !types.IsCollection(name) {
		return fmt.Errorf("%w: %q", types.ErrUnknownCollection, name)
	}
	return nil
}

// Collection returns every value in name. An empty collection yields an
// empty slice.
func (m *Manager) Collection(ctx context.Context, name string) ([]json.RawMessage, error) {
	if err := checkDocumentCollection(name); err != nil {
		return nil, err
	}

	key := cache.Key(name, "")
	if cached, ok := m.cache.Get(key); ok {
		return decodeList(cached)
	}

	records, err := m.store.ReadAll(ctx, name)
	if err != nil {
		return nil, err
	}
	encoded, err := encodeList(records)
	if err != nil {
		return nil, err
	}
	m.cache.Set(key, encoded)
	return decodeList(encoded)
}

// Keyed returns the value stored under key in name, or nil when absent.
func (m *Manager) Keyed(ctx context.Context, name, key string) (json.RawMessage, error) {
	if err := checkDocumentCollection(name); err != nil {
		return nil, err
	}

	ck := cache.Key(name, key)
	if cached, ok := m.cache.Get(ck); ok {
		return clone(cached), nil
	}

	rec, ok, err := m.store.ReadOne(ctx, name, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	m.cache.Set(ck, clone(rec.Value))
	return clone(rec.Value), nil
}

// ReplaceCollection replaces the whole content of name with records. The
// cache reflects records before the write is issued; if the write fails
// the entry is dropped so the next read goes back to the store.
func (m *Manager) ReplaceCollection(ctx context.Context, name string, records []types.Record) error {
	if err := checkDocumentCollection(name); err != nil {
		return err
	}

	encoded, err := encodeList(records)
	if err != nil {
		return types.WriteFailed("replace", name, "", err)
	}

	key := cache.Key(name, "")
	m.cache.Set(key, encoded)
	m.cache.DeletePrefix(name + ":")

	if err := m.store.WriteAll(ctx, name, records); err != nil {
		m.cache.Delete(key)
		m.logger.Error("replace failed", "collection", name, "error", err)
		return err
	}
	return nil
}

// PutKeyed upserts value under key in name.
func (m *Manager) PutKeyed(ctx context.Context, name, key string, value json.RawMessage) error {
	if err := checkDocumentCollection(name); err != nil {
		return err
	}
	if !json.Valid(value) {
		return types.WriteFailed("put", name, key, types.ErrInvalidRecord)
	}

	ck := cache.Key(name, key)
	m.cache.Set(ck, clone(value))
	m.cache.Delete(cache.Key(name, ""))

	if err := m.store.WriteOne(ctx, name, types.Record{Key: key, Value: clone(value)}); err != nil {
		m.cache.Delete(ck)
		m.logger.Error("put failed", "collection", name, "key", key, "error", err)
		return err
	}
	return nil
}

// Delete removes key from name.
func (m *Manager) Delete(ctx context.Context, name, key string) error {
	if err := checkDocumentCollection(name); err != nil {
		return err
	}

	m.cache.Delete(cache.Key(name, key))
	m.cache.Delete(cache.Key(name, ""))
	return m.store.DeleteOne(ctx, name, key)
}

// StorageUsage reports storage consumption, or nil when the host exposes no
// quota.
func (m *Manager) StorageUsage(ctx context.Context) (*types.Usage, error) {
	if m.quota == nil {
		return nil, nil
	}
	usage, ok, err := m.quota.Estimate(ctx)
	if err != nil {
		m.logger.Warn("quota estimate failed", "error", err)
		return nil, nil
	}
	if !ok {
		return nil, nil
	}
	return &usage, nil
}

func encodeList(records []types.Record) ([]byte, error) {
	values := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		if !json.Valid(rec.Value) {
			return nil, fmt.Errorf("%w: %s is not valid JSON", types.ErrInvalidRecord, rec.Key)
		}
		values = append(values, rec.Value)
	}
	return json.Marshal(values)
}

func decodeList(encoded []byte) ([]json.RawMessage, error) {
	values := []json.RawMessage{}
	if err := json.Unmarshal(encoded, &values); err != nil {
		return nil, fmt.Errorf("decoding cached collection: %w", err)
	}
	return values, nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
