package db

import (
	"context"
	"database/sql"
	"embed"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/ngmigrate/errors"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

const migrationsDir = "sqlite/migrations"

// migration is one embedded schema file; version is the numeric prefix.
type migration struct {
	version string
	file    string
}

func listMigrations() ([]migration, error) {
	entries, err := migrations.ReadDir(migrationsDir)
	if err != nil {
		return nil, errors.Wrap(err, "read migrations")
	}
	var out []migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		version, _, _ := strings.Cut(name, "_")
		out = append(out, migration{version: version, file: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].file < out[j].file })
	return out, nil
}

// Migrate applies pending migrations: the legacy entity table read by the SQL
// store and the mapping ledger written by runs. A nil logger is silent.
func Migrate(db *sql.DB, logger *zap.SugaredLogger) error {
	return MigrateContext(context.Background(), db, logger)
}

// MigrateContext is Migrate bounded by ctx.
func MigrateContext(ctx context.Context, db *sql.DB, logger *zap.SugaredLogger) error {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	pending, err := listMigrations()
	if err != nil {
		return err
	}

	applied := 0
	for _, m := range pending {
		done, err := isApplied(ctx, db, m)
		if err != nil {
			return err
		}
		if done {
			logger.Debugw("Migration already applied", "migration", m.file, "version", m.version)
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return err
		}
		logger.Infow("Applied migration", "migration", m.file, "version", m.version)
		applied++
	}

	logger.Debugw("Schema up to date", "total_migrations", len(pending), "applied", applied)
	return nil
}

// isApplied consults schema_migrations, which only 000 may run without.
func isApplied(ctx context.Context, db *sql.DB, m migration) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = ?)", m.version).Scan(&exists)
	if err == nil {
		return exists, nil
	}
	if m.version != "000" {
		return false, errors.Wrapf(err, "schema_migrations unavailable before %s", m.file)
	}
	return false, nil
}

// apply runs one file and records its version in the same transaction.
func apply(ctx context.Context, db *sql.DB, m migration) error {
	body, err := migrations.ReadFile(path.Join(migrationsDir, m.file))
	if err != nil {
		return errors.Wrapf(err, "read %s", m.file)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrapf(err, "begin tx for %s", m.file)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return errors.Wrapf(err, "execute %s", m.file)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", m.version); err != nil {
		return errors.Wrapf(err, "record %s", m.file)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrapf(err, "commit %s", m.file)
	}
	return nil
}
