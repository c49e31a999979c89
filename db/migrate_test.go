package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/ngmigrate/errors"
)

func TestMigrateOpenWithMigrations(t *testing.T) {
	t.Run("creates ledger and entity tables", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "test.db")

		db, err := OpenWithMigrations(dbPath, zaptest.NewLogger(t).Sugar())
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		for _, table := range []string{"schema_migrations", "cg_entities", "migration_runs", "migrated_entities"} {
			var n int
			err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n)
			require.NoError(t, err)
			assert.Equal(t, 1, n, "table %s should exist after migrations", table)
		}
	})

	t.Run("open failures carry stack traces", func(t *testing.T) {
		tmpDir := t.TempDir()
		dbPath := filepath.Join(tmpDir, "test.db")

		first, err := Open(dbPath, nil)
		require.NoError(t, err)
		first.Close()

		// Read-only directory makes WAL setup fail
		require.NoError(t, os.Chmod(tmpDir, 0555))
		defer os.Chmod(tmpDir, 0755)
		if os.Geteuid() == 0 {
			t.Skip("root ignores directory permissions")
		}

		db, err := OpenWithMigrations(dbPath, nil)
		require.Error(t, err)
		assert.Nil(t, db)
		assert.NotNil(t, errors.GetStack(err))

		detailed := fmt.Sprintf("%+v", err)
		assert.Contains(t, detailed, "connection.go")
	})
}

func TestMigrate(t *testing.T) {
	t.Run("records every migration", func(t *testing.T) {
		db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, Migrate(db, nil))

		var versions []string
		rows, err := db.Query("SELECT version FROM schema_migrations ORDER BY version")
		require.NoError(t, err)
		defer rows.Close()
		for rows.Next() {
			var v string
			require.NoError(t, rows.Scan(&v))
			versions = append(versions, v)
		}
		require.NoError(t, rows.Err())
		assert.Equal(t, []string{"000", "001", "002"}, versions)
	})

	t.Run("is idempotent", func(t *testing.T) {
		db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
		require.NoError(t, err)
		defer db.Close()

		require.NoError(t, Migrate(db, nil))
		require.NoError(t, Migrate(db, nil), "running migrations multiple times should be safe")
	})

	t.Run("ledger rejects duplicate mappings", func(t *testing.T) {
		db, err := OpenWithMigrations(filepath.Join(t.TempDir(), "test.db"), nil)
		require.NoError(t, err)
		defer db.Close()

		_, err = db.Exec(`INSERT INTO migration_runs (run_id, account_id, root_type, root_id, started_at)
			VALUES ('r1', 'acc', 'SERVICE', 's1', CURRENT_TIMESTAMP)`)
		require.NoError(t, err)

		insert := `INSERT INTO migrated_entities
			(account_id, cg_type, cg_id, ng_type, identifier, scope_level, fqn, run_id)
			VALUES ('acc', 'SERVICE', 's1', 'service', 'web', 'project', 'web', 'r1')`
		_, err = db.Exec(insert)
		require.NoError(t, err)
		_, err = db.Exec(insert)
		assert.Error(t, err)
	})

	t.Run("fails on closed database", func(t *testing.T) {
		db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
		require.NoError(t, err)
		db.Close()

		assert.Error(t, Migrate(db, nil))
	})
}

func TestMigrateContextCanceled(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, MigrateContext(ctx, db, nil))

	// nothing was recorded, so a later run starts from scratch
	require.NoError(t, MigrateContext(context.Background(), db, zaptest.NewLogger(t).Sugar()))
}
