package store

import (
	"context"
	"embed"
	"log/slog"

	"github.com/pkg/errors"
)

// The schema is applied in one shot from LATEST.sql on a fresh database.
// Incremental migrations are not kept: the cache and the full-text index
// are both derived state and survive a schema reset by rebuild.

//go:embed migration
var migrationFS embed.FS

const (
	latestSchemaFileName = "migration/sqlite/LATEST.sql"
	seedFileName         = "migration/sqlite/SEED.sql"
)

// Migrate initializes the database schema on a fresh installation. Demo
// installations also get an initial author: the read paths only show
// posts by active users, so an empty user table would hide everything.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	if initialized {
		return nil
	}

	buf, err := migrationFS.ReadFile(latestSchemaFileName)
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema file %q", latestSchemaFileName)
	}

	if _, err := s.driver.GetDB().ExecContext(ctx, string(buf)); err != nil {
		return errors.Wrap(err, "failed to apply latest schema")
	}
	slog.Info("database initialized", slog.String("driver", s.profile.Driver))

	if s.profile.Mode == "demo" {
		seed, err := migrationFS.ReadFile(seedFileName)
		if err != nil {
			return errors.Wrapf(err, "failed to read seed file %q", seedFileName)
		}
		if _, err := s.driver.GetDB().ExecContext(ctx, string(seed)); err != nil {
			return errors.Wrap(err, "failed to seed demo data")
		}
		slog.Info("demo data seeded")
	}
	return nil
}
