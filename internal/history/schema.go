package history

import (
	"context"
	_ "embed"
	"fmt"

	"linksort/internal/errors"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes shape.
const schemaVersion = 1

// ErrSchemaMismatch indicates the journal was written by another version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return errors.NewDatabaseError("check schema_version table", err).WithOperation("init")
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	err = s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return errors.NewDatabaseError("read schema version", err).WithOperation("init")
	}
	if version != schemaVersion {
		return errors.NewDatabaseError(
			fmt.Sprintf("journal has version %d, expected %d (delete %s to start a new one)", version, schemaVersion, s.path),
			ErrSchemaMismatch,
		).WithOperation("init")
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewDatabaseError("begin schema tx", err).WithOperation("init")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return errors.NewDatabaseError("create schema", err).WithOperation("init")
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return errors.NewDatabaseError("record schema version", err).WithOperation("init")
	}
	if err := tx.Commit(); err != nil {
		return errors.NewDatabaseError("commit schema", err).WithOperation("init")
	}
	return nil
}
