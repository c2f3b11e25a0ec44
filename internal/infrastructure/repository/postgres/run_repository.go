package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/antonvlasov/metapilot/internal/core/domain"
)

// RunRepository is the system of record for batch runs and their per-file
// outcomes. The API process creates runs and sets the cancel flag; the
// worker writes status transitions and outcomes.
type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS batch_runs (
	id TEXT PRIMARY KEY,
	files JSONB NOT NULL,
	mode TEXT NOT NULL,
	template_id TEXT,
	prompt TEXT,
	ai_model TEXT,
	options JSONB NOT NULL DEFAULT '{}'::jsonb,
	status TEXT NOT NULL,
	error_message TEXT,
	cancel_requested BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS batch_outcomes (
	run_id TEXT NOT NULL REFERENCES batch_runs(id) ON DELETE CASCADE,
	file_id TEXT NOT NULL,
	file_name TEXT,
	success BOOLEAN NOT NULL,
	error_message TEXT,
	applied JSONB,
	updated BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, file_id)
);

CREATE INDEX IF NOT EXISTS idx_batch_runs_status ON batch_runs(status);
CREATE INDEX IF NOT EXISTS idx_batch_runs_created_at ON batch_runs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RunRepository) CreateRun(ctx context.Context, run *domain.BatchRun) error {
	filesJSON, err := json.Marshal(run.Files)
	if err != nil {
		return fmt.Errorf("marshal files: %w", err)
	}
	optionsJSON, err := json.Marshal(run.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO batch_runs (
	id, files, mode, template_id, prompt, ai_model, options, status, error_message, cancel_requested, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
		run.ID, filesJSON, string(run.Mode), run.TemplateID, run.Prompt, run.AIModel, optionsJSON,
		string(run.Status), run.Error, run.CancelRequested, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert batch run: %w", err)
	}
	return nil
}

func (r *RunRepository) GetRun(ctx context.Context, id string) (*domain.BatchRun, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, files, mode, template_id, prompt, ai_model, options, status, error_message, cancel_requested, created_at, updated_at
FROM batch_runs
WHERE id = $1
`, id)

	var run domain.BatchRun
	var filesRaw, optionsRaw []byte
	var mode, status string

	err := row.Scan(
		&run.ID, &filesRaw, &mode, &run.TemplateID, &run.Prompt, &run.AIModel,
		&optionsRaw, &status, &run.Error, &run.CancelRequested, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get batch run", fmt.Errorf("run not found: %s", id))
		}
		return nil, fmt.Errorf("scan batch run: %w", err)
	}

	if err := json.Unmarshal(filesRaw, &run.Files); err != nil {
		return nil, fmt.Errorf("unmarshal files: %w", err)
	}
	if err := json.Unmarshal(optionsRaw, &run.Options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	run.Mode = domain.ExtractionMode(mode)
	run.Status = domain.RunStatus(status)
	return &run, nil
}

func (r *RunRepository) UpdateRunStatus(ctx context.Context, id string, status domain.RunStatus, errMessage string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE batch_runs
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update run status: %w", err)
	}
	return nil
}

func (r *RunRepository) RequestCancel(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE batch_runs
SET cancel_requested = TRUE, updated_at = $2
WHERE id = $1
`, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("request cancel: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("request cancel rows: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "request cancel", fmt.Errorf("run not found: %s", id))
	}
	return nil
}

func (r *RunRepository) CancelRequested(ctx context.Context, id string) (bool, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT cancel_requested FROM batch_runs WHERE id = $1
`, id)

	var requested bool
	if err := row.Scan(&requested); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.WrapError(domain.ErrNotFound, "cancel requested", fmt.Errorf("run not found: %s", id))
		}
		return false, fmt.Errorf("scan cancel flag: %w", err)
	}
	return requested, nil
}

func (r *RunRepository) SaveOutcome(ctx context.Context, runID string, outcome domain.ApplyOutcome) error {
	var appliedJSON []byte
	if outcome.Applied != nil {
		encoded, err := json.Marshal(outcome.Applied)
		if err != nil {
			return fmt.Errorf("marshal applied fields: %w", err)
		}
		appliedJSON = encoded
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO batch_outcomes (run_id, file_id, file_name, success, error_message, applied, updated, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (run_id, file_id) DO UPDATE
SET success = EXCLUDED.success,
    error_message = EXCLUDED.error_message,
    applied = EXCLUDED.applied,
    updated = EXCLUDED.updated
`,
		runID, outcome.FileID, outcome.FileName, outcome.Success, outcome.Error, appliedJSON, outcome.Updated, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

func (r *RunRepository) ListOutcomes(ctx context.Context, runID string) ([]domain.ApplyOutcome, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT file_id, file_name, success, error_message, applied, updated
FROM batch_outcomes
WHERE run_id = $1
ORDER BY created_at ASC
`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []domain.ApplyOutcome
	for rows.Next() {
		var outcome domain.ApplyOutcome
		var appliedRaw []byte
		if err := rows.Scan(&outcome.FileID, &outcome.FileName, &outcome.Success, &outcome.Error, &appliedRaw, &outcome.Updated); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		if len(appliedRaw) > 0 {
			if err := json.Unmarshal(appliedRaw, &outcome.Applied); err != nil {
				return nil, fmt.Errorf("unmarshal applied fields: %w", err)
			}
		}
		outcomes = append(outcomes, outcome)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}
