// Package migration moves data out of the legacy key-value store into the
// Binary Store. Progress is a state machine persisted in
// metadata["migration"]:
//
//	not_started -> backed_up -> transforming -> complete
//
// The legacy store is left untouched until the complete state is written,
// so a failed or interrupted run is retried from the start by the next
// Initialize without data loss.
package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mesh-intelligence/homepage/pkg/types"
)

const backupKey = types.PreMigrationBackupKey

// Target is where migrated data is written. The storage manager
// implements it.
type Target interface {
	Keyed(ctx context.Context, name, key string) (json.RawMessage, error)
	PutKeyed(ctx context.Context, name, key string, value json.RawMessage) error
	ReplaceCollection(ctx context.Context, name string, records []types.Record) error
	SaveImage(ctx context.Context, id string, data []byte) error
}

// Engine runs the legacy migration.
type Engine struct {
	target Target
	legacy LegacyStore
	now    func() time.Time
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock sets the time source used for stamps and synthesized ids.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine. A nil legacy store is treated as empty.
func New(target Target, legacy LegacyStore, opts ...Option) *Engine {
	e := &Engine{
		target: target,
		legacy: legacy,
		now:    time.Now,
		logger: slog.Default().With("component", "migration"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the persisted migration state.
func (e *Engine) State(ctx context.Context) (types.MigrationState, error) {
	rec, err := e.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.CurrentState(), nil
}

// Run advances the migration to complete. Once complete, Run performs no
// writes.
func (e *Engine) Run(ctx context.Context) error {
	rec, err := e.record(ctx)
	if err != nil {
		return failed("reading migration state", err)
	}
	state := rec.CurrentState()
	if state == types.MigrationComplete {
		e.logger.Debug("migration already complete")
		return nil
	}

	values := map[string]json.RawMessage{}
	if e.legacy != nil {
		values, err = e.legacy.ReadAll(ctx)
		if err != nil {
			return failed("reading legacy store", err)
		}
	}
	if len(values) == 0 || isMarkerOnly(values) {
		e.logger.Info("no legacy data to migrate")
		return e.complete(ctx)
	}

	e.logger.Info("migrating legacy data", "state", state, "keys", len(values))

	if err := e.backup(ctx, state, values); err != nil {
		return err
	}
	if err := e.setState(ctx, types.MigrationTransforming); err != nil {
		return failed("recording transforming state", err)
	}
	if err := e.transform(ctx, values); err != nil {
		return err
	}
	if err := e.complete(ctx); err != nil {
		return err
	}

	e.cleanup(ctx)
	return nil
}

func (e *Engine) record(ctx context.Context) (*types.MigrationRecord, error) {
	raw, err := e.target.Keyed(ctx, types.MetadataCollection, types.MigrationKey)
	if err != nil || raw == nil {
		return nil, err
	}
	var rec types.MigrationRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decoding migration record: %w", err)
	}
	return &rec, nil
}

func (e *Engine) putMetadata(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return e.target.PutKeyed(ctx, types.MetadataCollection, key, data)
}

func (e *Engine) setState(ctx context.Context, state types.MigrationState) error {
	return e.putMetadata(ctx, types.MigrationKey, types.MigrationRecord{
		State:     state,
		Timestamp: e.now().UnixMilli(),
	})
}

// backup writes the raw legacy data to metadata. A run resumed after the
// backup was taken keeps the existing copy.
func (e *Engine) backup(ctx context.Context, state types.MigrationState, values map[string]json.RawMessage) error {
	if state != types.MigrationNotStarted {
		existing, err := e.target.Keyed(ctx, types.MetadataCollection, backupKey)
		if err != nil {
			return failed("reading backup", err)
		}
		if existing != nil {
			return nil
		}
	}

	b := types.MigrationBackup{
		Timestamp: e.now().UTC().Format(time.RFC3339Nano),
		Version:   types.BackupVersion,
		Data:      values,
	}
	if err := e.putMetadata(ctx, backupKey, b); err != nil {
		return failed("writing backup", err)
	}
	if err := e.setState(ctx, types.MigrationBackedUp); err != nil {
		return failed("recording backed_up state", err)
	}
	return nil
}

func (e *Engine) complete(ctx context.Context) error {
	err := e.putMetadata(ctx, types.MigrationKey, types.MigrationRecord{
		State:     types.MigrationComplete,
		Completed: true,
		Timestamp: e.now().UnixMilli(),
		Version:   types.MigrationVersion,
	})
	if err != nil {
		return failed("recording completion", err)
	}
	e.logger.Info("migration complete")
	return nil
}

// cleanup empties the legacy store and leaves the marker. The migration is
// already complete, so failures are only logged.
func (e *Engine) cleanup(ctx context.Context) {
	if e.legacy == nil {
		return
	}
	m, err := marker(e.now().UnixMilli())
	if err != nil {
		e.logger.Warn("encoding legacy marker", "error", err)
		return
	}
	if err := e.legacy.Clear(ctx); err != nil {
		e.logger.Warn("clearing legacy store", "error", err)
		return
	}
	if err := e.legacy.WriteAll(ctx, m); err != nil {
		e.logger.Warn("writing legacy marker", "error", err)
	}
}

func failed(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", types.ErrMigrationFailed, step, err)
}
