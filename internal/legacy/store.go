// Package legacy is the key-value store that held homepage data before the
// Binary Store existed. It keeps one bbolt bucket of raw JSON values, the
// shape of an exported chrome.storage.local area.
package legacy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// DatabaseFile is the default file name inside the data directory.
const DatabaseFile = "legacy.db"

var bucketLocal = []byte("local")

// ErrNotOpen is returned by operations on a closed store.
var ErrNotOpen = errors.New("legacy store is not open")

// Store implements migration.LegacyStore over bbolt.
type Store struct {
	db     *bbolt.DB
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a Store. Call Open before use.
func New(opts ...Option) *Store {
	s := &Store{
		logger: slog.Default().With("component", "legacy"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens or creates the store file at path.
func (s *Store) Open(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating legacy directory: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return fmt.Errorf("opening legacy store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketLocal)
		return err
	})
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("creating bucket %s: %w", bucketLocal, err)
	}
	s.db = db
	s.logger.Debug("opened legacy store", "path", path)
	return nil
}

// Close closes the store.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// ReadAll returns every key and its value.
func (s *Store) ReadAll(_ context.Context) (map[string]json.RawMessage, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	values := map[string]json.RawMessage{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketLocal).ForEach(func(k, v []byte) error {
			data := make([]byte, len(v))
			copy(data, v)
			values[string(k)] = data
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("reading legacy store: %w", err)
	}
	return values, nil
}

// WriteAll stores every entry of values, keeping keys not named in values.
func (s *Store) WriteAll(_ context.Context, values map[string]json.RawMessage) error {
	if s.db == nil {
		return ErrNotOpen
	}
	for k, v := range values {
		if !json.Valid(v) {
			return fmt.Errorf("value for %q is not valid JSON", k)
		}
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketLocal)
		for k, v := range values {
			if err := bucket.Put([]byte(k), v); err != nil {
				return fmt.Errorf("writing %q: %w", k, err)
			}
		}
		return nil
	})
}

// Clear removes every key.
func (s *Store) Clear(_ context.Context) error {
	if s.db == nil {
		return ErrNotOpen
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketLocal) != nil {
			if err := tx.DeleteBucket(bucketLocal); err != nil {
				return err
			}
		}
		_, err := tx.CreateBucket(bucketLocal)
		return err
	})
}

// ImportFile loads a JSON object dump into the store. Top-level keys
// become store keys.
func (s *Store) ImportFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	var values map[string]json.RawMessage
	if err := json.Unmarshal(data, &values); err != nil {
		return 0, fmt.Errorf("parsing %s: expected a JSON object: %w", path, err)
	}
	if err := s.WriteAll(ctx, values); err != nil {
		return 0, err
	}
	s.logger.Info("imported legacy data", "path", path, "keys", len(values))
	return len(values), nil
}
