package migrate

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/teranos/ngmigrate/errors"
	"github.com/teranos/ngmigrate/identifier"
)

// Ledger persists mapping records and run reports across runs. It uses the
// migration_runs and migrated_entities tables created by db.Migrate.
type Ledger struct {
	db *sql.DB
}

// NewLedger wraps a migrated database.
func NewLedger(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Mappings returns every recorded mapping of accountID ordered by legacy ref.
func (l *Ledger) Mappings(ctx context.Context, accountID string) ([]MappingRecord, error) {
	query := `SELECT cg_type, cg_id, app_id, ng_type, identifier, scope_level, org_id, project_id, fqn
	          FROM migrated_entities WHERE account_id = ? ORDER BY cg_type, cg_id, scope_level, org_id, project_id`

	rows, err := l.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list mappings for account %s", accountID)
	}
	defer rows.Close()

	var out []MappingRecord
	for rows.Next() {
		rec := MappingRecord{AccountID: accountID}
		var level string
		if err := rows.Scan(&rec.CGType, &rec.CGID, &rec.AppID, &rec.NGType,
			&rec.Identifier, &level, &rec.OrgID, &rec.ProjectID, &rec.FQN); err != nil {
			return nil, errors.Wrap(err, "failed to scan mapping")
		}
		rec.Level = identifier.Level(level)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate mappings")
	}
	return out, nil
}

// StartRun inserts the run row that mappings reference.
func (l *Ledger) StartRun(ctx context.Context, r *Report, accountID string) error {
	query := `INSERT INTO migration_runs (run_id, account_id, root_type, root_id, dry_run, started_at)
	          VALUES (?, ?, ?, ?, ?, ?)`

	_, err := l.db.ExecContext(ctx, query,
		r.RunID, accountID, string(r.Root.Type), r.Root.ID, r.DryRun,
		r.StartedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return errors.Wrapf(err, "failed to start run %s", r.RunID)
	}
	return nil
}

// Record stores one mapping. A mapping already present for the legacy ref in
// the same target scope is kept; the return value reports whether rec was
// inserted.
func (l *Ledger) Record(ctx context.Context, runID string, rec MappingRecord) (bool, error) {
	query := `INSERT INTO migrated_entities
	          (account_id, cg_type, cg_id, app_id, ng_type, identifier, scope_level, org_id, project_id, fqn, run_id)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	          ON CONFLICT(account_id, scope_level, org_id, project_id, cg_type, cg_id) DO NOTHING`

	res, err := l.db.ExecContext(ctx, query,
		rec.AccountID, string(rec.CGType), rec.CGID, rec.AppID, string(rec.NGType),
		rec.Identifier, string(rec.Level), rec.OrgID, rec.ProjectID, rec.FQN, runID)
	if err != nil {
		return false, errors.Wrapf(err, "failed to record mapping for %s", rec.Ref())
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "failed to read affected rows")
	}
	return n == 1, nil
}

// FinishRun stores the final report.
func (l *Ledger) FinishRun(ctx context.Context, r *Report) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "failed to encode report")
	}
	query := `UPDATE migration_runs SET success = ?, aborted = ?, report = ?, finished_at = ?
	          WHERE run_id = ?`

	res, err := l.db.ExecContext(ctx, query,
		r.Success, r.Aborted, string(payload),
		r.FinishedAt.UTC().Format(time.RFC3339Nano), r.RunID)
	if err != nil {
		return errors.Wrapf(err, "failed to finish run %s", r.RunID)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFoundError("run %s was never started", r.RunID)
	}
	return nil
}

// Report loads a stored run report.
func (l *Ledger) Report(ctx context.Context, runID string) (*Report, error) {
	var payload sql.NullString
	err := l.db.QueryRowContext(ctx, `SELECT report FROM migration_runs WHERE run_id = ?`, runID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("run %s not found", runID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load run %s", runID)
	}
	if !payload.Valid {
		return nil, errors.NewNotFoundError("run %s has no report", runID)
	}
	var r Report
	if err := json.Unmarshal([]byte(payload.String), &r); err != nil {
		return nil, errors.Wrapf(err, "failed to decode report of run %s", runID)
	}
	return &r, nil
}
