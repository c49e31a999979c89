// Package sqlstore reads legacy entities from the cg_entities table of a
// SQLite or Postgres database. Each row holds one entity as a JSON payload.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"go.uber.org/zap"

	"github.com/teranos/ngmigrate/cg"
	"github.com/teranos/ngmigrate/db"
	"github.com/teranos/ngmigrate/errors"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS cg_entities (
    entity_type TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    app_id TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL DEFAULT '',
    payload TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (entity_type, entity_id)
);
CREATE INDEX IF NOT EXISTS idx_cg_entities_app ON cg_entities(entity_type, app_id);
`

// Store implements cg.Store over database/sql.
type Store struct {
	db     *sql.DB
	driver string
}

// New wraps an open database whose cg_entities table already exists.
func New(conn *sql.DB, driver string) *Store {
	return &Store{db: conn, driver: driver}
}

// Open connects with driver and makes sure the entity table exists.
func Open(ctx context.Context, driver, dsn string, logger *zap.SugaredLogger) (*Store, error) {
	switch driver {
	case DriverSQLite:
		conn, err := db.OpenWithMigrations(dsn, logger)
		if err != nil {
			return nil, errors.Wrap(err, "open legacy sqlite store")
		}
		return New(conn, driver), nil
	case DriverPostgres:
		conn, err := sql.Open(DriverPostgres, dsn)
		if err != nil {
			return nil, errors.Wrap(err, "open legacy postgres store")
		}
		if err := conn.PingContext(ctx); err != nil {
			conn.Close()
			return nil, errors.Wrap(err, "ping legacy postgres store")
		}
		if _, err := conn.ExecContext(ctx, postgresSchema); err != nil {
			conn.Close()
			return nil, errors.Wrap(err, "create cg_entities")
		}
		if logger != nil {
			logger.Infow("Legacy store opened", "driver", driver)
		}
		return New(conn, driver), nil
	}
	return nil, errors.NewInvalidRequestError("unsupported legacy store driver %q", driver)
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Put inserts or replaces one entity.
func (s *Store) Put(ctx context.Context, e cg.Entity) error {
	ref := e.EntityRef()
	if ref.ID == "" {
		return errors.NewInvalidRequestError("%s entity has no id", ref.Type)
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return errors.Wrapf(err, "encode %s", ref)
	}

	query := s.rebind(`
		INSERT INTO cg_entities (entity_type, entity_id, app_id, name, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (entity_type, entity_id) DO UPDATE SET
			app_id = excluded.app_id,
			name = excluded.name,
			payload = excluded.payload
	`)
	if _, err := s.db.ExecContext(ctx, query, string(ref.Type), ref.ID, e.OwnerAppID(), e.DisplayName(), string(payload)); err != nil {
		return errors.Wrapf(err, "failed to store %s", ref)
	}
	return nil
}

func (s *Store) GetByAppAndID(ctx context.Context, t cg.EntityType, appID, id string) (cg.Entity, error) {
	query := s.rebind(`SELECT payload FROM cg_entities WHERE entity_type = ? AND entity_id = ?`)

	var payload string
	err := s.db.QueryRowContext(ctx, query, string(t), id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "%s %s in app %s", t, id, appID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s %s", t, id)
	}

	e, err := cg.DecodeJSON(t, []byte(payload))
	if err != nil {
		return nil, err
	}
	if !cg.Visible(e, appID) {
		return nil, errors.Wrapf(errors.ErrNotFound, "%s %s in app %s", t, id, appID)
	}
	return e, nil
}

func (s *Store) GetByName(ctx context.Context, t cg.EntityType, appID, name string) (cg.Entity, error) {
	query := s.rebind(`
		SELECT payload FROM cg_entities
		WHERE entity_type = ? AND lower(name) = lower(?)
		  AND (? = '' OR app_id = ? OR app_id = '' OR app_id = ?)
		ORDER BY entity_id
		LIMIT 1
	`)

	var payload string
	err := s.db.QueryRowContext(ctx, query, string(t), name, appID, appID, cg.GlobalAppID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrNotFound, "%s named %q in app %s", t, name, appID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to look up %s %q", t, name)
	}
	return cg.DecodeJSON(t, []byte(payload))
}

// ListByApp returns matches ordered by id.
func (s *Store) ListByApp(ctx context.Context, t cg.EntityType, appID string) ([]cg.Entity, error) {
	query := s.rebind(`
		SELECT payload FROM cg_entities
		WHERE entity_type = ?
		  AND (? = '' OR app_id = ? OR app_id = '' OR app_id = ?)
		ORDER BY entity_id
	`)

	rows, err := s.db.QueryContext(ctx, query, string(t), appID, appID, cg.GlobalAppID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list %s for app %s", t, appID)
	}
	defer rows.Close()

	var out []cg.Entity
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrapf(err, "failed to scan %s", t)
		}
		e, err := cg.DecodeJSON(t, []byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to list %s for app %s", t, appID)
	}
	return out, nil
}

var _ cg.Store = (*Store)(nil)
