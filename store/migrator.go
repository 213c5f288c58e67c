package store

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pkg/errors"
)

// The engine owns only its own tables, so the migration system is a
// single embedded LATEST.sql per driver applied to fresh databases.
// Attempt ingestion and the syllabus catalog may also be populated by
// the wider platform; the schema here is the engine's contract with it.

//go:embed migration
var migrationFS embed.FS

// LatestSchemaFileName is the name of the latest schema file.
const LatestSchemaFileName = "LATEST.sql"

// Migrate initializes the database schema if it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check database initialization")
	}
	if initialized {
		return nil
	}

	schemaPath := fmt.Sprintf("migration/%s/%s", s.profile.Driver, LatestSchemaFileName)
	buf, err := migrationFS.ReadFile(schemaPath)
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema file %q", schemaPath)
	}

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(buf)); err != nil {
		return errors.Wrapf(err, "failed to apply latest schema")
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit schema")
	}

	slog.Info("database initialized", slog.String("driver", s.profile.Driver))
	return nil
}
