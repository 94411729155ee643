// Package sqlite implements the Binary Store: named record collections and
// an image blob collection held in an embedded SQLite database. Every write
// runs in one transaction, so readers never observe a partial rewrite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/homepage/pkg/types"
)

// DatabaseFile is the file name of the database inside the data directory.
const DatabaseFile = "homepage.db"

var errNotOpen = errors.New("database is not open")

// Backend is the SQLite Binary Store. It owns the only database handle.
type Backend struct {
	mu     sync.RWMutex
	path   string
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// WithPath overrides the database file location.
func WithPath(path string) Option {
	return func(b *Backend) {
		b.path = path
	}
}

// NewBackend creates a backend for the database in cfg.DataDir. The
// database is not opened; call Open.
func NewBackend(cfg types.Config, opts ...Option) *Backend {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	b := &Backend{
		path:   filepath.Join(dataDir, DatabaseFile),
		logger: slog.Default().With("component", "sqlite"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Path returns the database file path.
func (b *Backend) Path() string {
	return b.path
}

// Open creates the database if needed and applies pending schema versions.
// Calling Open on an open backend is a no-op. Any failure is reported as
// ErrStorageUnavailable.
func (b *Backend) Open(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return types.Unavailable("open", fmt.Errorf("creating data directory: %w", err))
	}

	db, err := sql.Open("sqlite", b.path)
	if err != nil {
		return types.Unavailable("open", err)
	}
	// One connection: SQLite serializes writers anyway and the handle is
	// shared by every caller of the store.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return types.Unavailable("open", fmt.Errorf("%s: %w", p, err))
		}
	}

	if err := newSchemaRunner(db).Run(ctx); err != nil {
		db.Close()
		return types.Unavailable("open", err)
	}

	b.db = db
	b.logger.Debug("opened binary store", "path", b.path)
	return nil
}

// Close releases the database handle. Close is idempotent.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

// handle returns the open database or an ErrStorageUnavailable error.
// The caller must hold b.mu.
func (b *Backend) handle(op string) (*sql.DB, error) {
	if b.db == nil {
		return nil, types.Unavailable(op, errNotOpen)
	}
	return b.db, nil
}

// ReadAll returns every record of collection in insertion order. An empty
// collection yields an empty, non-nil slice.
func (b *Backend) ReadAll(ctx context.Context, collection string) ([]types.Record, error) {
	cs, err := lookup(collection)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.handle("read")
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT id, data FROM %s ORDER BY rowid", cs.table))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", collection, err)
	}
	defer rows.Close()

	records := []types.Record{}
	for rows.Next() {
		var rec types.Record
		if err := rows.Scan(&rec.Key, &rec.Value); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", collection, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", collection, err)
	}
	return records, nil
}

// ReadOne returns the record stored under key. ok is false when the key is
// absent; absence is not an error.
func (b *Backend) ReadOne(ctx context.Context, collection, key string) (types.Record, bool, error) {
	cs, err := lookup(collection)
	if err != nil {
		return types.Record{}, false, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.handle("read")
	if err != nil {
		return types.Record{}, false, err
	}

	rec := types.Record{Key: key}
	err = db.QueryRowContext(ctx, fmt.Sprintf("SELECT data FROM %s WHERE id = ?", cs.table), key).Scan(&rec.Value)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Record{}, false, nil
	}
	if err != nil {
		return types.Record{}, false, fmt.Errorf("reading %s[%s]: %w", collection, key, err)
	}
	return rec, true, nil
}

// WriteAll replaces the whole content of collection with records. The clear
// and every insert share one transaction; on failure the previous content
// is left intact and an ErrStorageWriteFailed error is returned.
func (b *Backend) WriteAll(ctx context.Context, collection string, records []types.Record) error {
	cs, err := lookup(collection)
	if err != nil {
		return err
	}

	rows := make([][]any, 0, len(records))
	for _, rec := range records {
		args, err := cs.row(rec)
		if err != nil {
			return types.WriteFailed("replace", collection, rec.Key, err)
		}
		rows = append(rows, args)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	db, err := b.handle("replace")
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return types.WriteFailed("replace", collection, "", fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", cs.table)); err != nil {
		return types.WriteFailed("replace", collection, "", fmt.Errorf("clearing: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, cs.insertSQL())
	if err != nil {
		return types.WriteFailed("replace", collection, "", fmt.Errorf("preparing insert: %w", err))
	}
	defer stmt.Close()

	for i, args := range rows {
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return types.WriteFailed("replace", collection, records[i].Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return types.WriteFailed("replace", collection, "", fmt.Errorf("commit: %w", err))
	}
	return nil
}

// WriteOne upserts a single record.
func (b *Backend) WriteOne(ctx context.Context, collection string, rec types.Record) error {
	cs, err := lookup(collection)
	if err != nil {
		return err
	}
	args, err := cs.row(rec)
	if err != nil {
		return types.WriteFailed("put", collection, rec.Key, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	db, err := b.handle("put")
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, cs.upsertSQL(), args...); err != nil {
		return types.WriteFailed("put", collection, rec.Key, err)
	}
	return nil
}

// DeleteOne removes key from collection. Deleting an absent key succeeds.
func (b *Backend) DeleteOne(ctx context.Context, collection, key string) error {
	cs, err := lookup(collection)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	db, err := b.handle("delete")
	if err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", cs.table), key); err != nil {
		return types.WriteFailed("delete", collection, key, err)
	}
	return nil
}

// Size returns the number of bytes occupied by the database pages.
func (b *Backend) Size(ctx context.Context) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	db, err := b.handle("size")
	if err != nil {
		return 0, err
	}

	var pages, pageSize int64
	if err := db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pages); err != nil {
		return 0, fmt.Errorf("page count: %w", err)
	}
	if err := db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("page size: %w", err)
	}
	return pages * pageSize, nil
}
