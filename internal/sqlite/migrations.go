package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaVersion is one step of the database layout history.
type schemaVersion struct {
	Version int
	Name    string
	Apply   func(ctx context.Context, tx *sql.Tx) error
}

// schemaRunner applies pending schema versions, recording each one in the
// schema_migrations table.
type schemaRunner struct {
	db       *sql.DB
	versions []schemaVersion
}

func newSchemaRunner(db *sql.DB) *schemaRunner {
	return &schemaRunner{
		db: db,
		versions: []schemaVersion{
			{Version: 1, Name: "collections", Apply: applyCollections},
		},
	}
}

// Run applies every version not yet recorded, in order.
func (r *schemaRunner) Run(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	for _, v := range r.versions {
		applied, err := r.isApplied(ctx, v.Version)
		if err != nil {
			return fmt.Errorf("check schema version %d: %w", v.Version, err)
		}
		if applied {
			continue
		}
		if err := r.apply(ctx, v); err != nil {
			return fmt.Errorf("apply schema version %d (%s): %w", v.Version, v.Name, err)
		}
	}
	return nil
}

func (r *schemaRunner) isApplied(ctx context.Context, version int) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// apply executes a version inside a transaction and records it.
func (r *schemaRunner) apply(ctx context.Context, v schemaVersion) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := v.Apply(ctx, tx); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		v.Version, v.Name,
	); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

func applyCollections(ctx context.Context, tx *sql.Tx) error {
	for _, ddl := range schemaDDL {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("creating table: %w", err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}
