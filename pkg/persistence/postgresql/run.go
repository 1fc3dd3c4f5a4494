package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pressforge/pressforge/pkg/models"
	"github.com/pressforge/pressforge/pkg/persistence"
)

// RunRepository handles workflow-run database operations.
type RunRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const runColumns = `
	id
  , name
  , status
  , current_stage
  , paused_at
  , error_log
  , created_at
  , updated_at
  , completed_at
`

func (r *RunRepository) Create(ctx context.Context, run *models.WorkflowRun) error {
	errorLog, err := json.Marshal(run.ErrorLog)
	if err != nil {
		return fmt.Errorf("failed to encode error log: %w", err)
	}

	query := `
		INSERT INTO workflow_runs (id, name, status, current_stage, paused_at, error_log, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.db.ExecContext(ctx, query,
		run.ID, run.Name, run.Status, run.CurrentStage, run.PausedAt, errorLog,
		run.CreatedAt, run.UpdatedAt, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", run.ID, err)
	}

	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.WorkflowRun, error) {
	query := `SELECT ` + runColumns + ` FROM workflow_runs WHERE id = $1`

	run, err := r.scanRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrRunNotFound
		}

		return nil, fmt.Errorf("failed to query run %s: %w", id, err)
	}

	return run, nil
}

func (r *RunRepository) List(ctx context.Context) ([]*models.WorkflowRun, error) {
	query := `SELECT ` + runColumns + ` FROM workflow_runs ORDER BY created_at DESC`

	return r.queryRuns(ctx, query)
}

func (r *RunRepository) ListByStatus(ctx context.Context, status models.WorkflowRunStatus) ([]*models.WorkflowRun, error) {
	query := `SELECT ` + runColumns + ` FROM workflow_runs WHERE status = $1 ORDER BY created_at DESC`

	return r.queryRuns(ctx, query, status)
}

func (r *RunRepository) Update(ctx context.Context, run *models.WorkflowRun) error {
	errorLog, err := json.Marshal(run.ErrorLog)
	if err != nil {
		return fmt.Errorf("failed to encode error log: %w", err)
	}

	query := `
		UPDATE workflow_runs
		SET name = $2
		  , status = $3
		  , current_stage = $4
		  , paused_at = $5
		  , error_log = $6
		  , updated_at = $7
		  , completed_at = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		run.ID, run.Name, run.Status, run.CurrentStage, run.PausedAt, errorLog,
		run.UpdatedAt, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", run.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of run %s: %w", run.ID, err)
	}

	if affected == 0 {
		return persistence.ErrRunNotFound
	}

	return nil
}

// UpdateIfStatus locks the row, re-checks the expected status, applies the
// mutation, and writes back in one transaction.
func (r *RunRepository) UpdateIfStatus(ctx context.Context, id string, expected models.WorkflowRunStatus, apply func(*models.WorkflowRun)) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction for run %s: %w", id, err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	query := `SELECT ` + runColumns + ` FROM workflow_runs WHERE id = $1 FOR UPDATE`

	run, err := r.scanRun(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, persistence.ErrRunNotFound
		}

		return false, fmt.Errorf("failed to lock run %s: %w", id, err)
	}

	if run.Status != expected {
		return false, nil
	}

	apply(run)
	run.UpdatedAt = time.Now().UTC()

	errorLog, err := json.Marshal(run.ErrorLog)
	if err != nil {
		return false, fmt.Errorf("failed to encode error log: %w", err)
	}

	updateQuery := `
		UPDATE workflow_runs
		SET status = $2
		  , current_stage = $3
		  , paused_at = $4
		  , error_log = $5
		  , updated_at = $6
		  , completed_at = $7
		WHERE id = $1
	`

	_, err = tx.ExecContext(ctx, updateQuery,
		run.ID, run.Status, run.CurrentStage, run.PausedAt, errorLog,
		run.UpdatedAt, run.CompletedAt)
	if err != nil {
		return false, fmt.Errorf("failed to update run %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit update of run %s: %w", id, err)
	}

	return true, nil
}

func (r *RunRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflow_runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete of run %s: %w", id, err)
	}

	if affected == 0 {
		return persistence.ErrRunNotFound
	}

	return nil
}

func (r *RunRepository) queryRuns(ctx context.Context, query string, args ...any) ([]*models.WorkflowRun, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	runs := make([]*models.WorkflowRun, 0)

	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *RunRepository) scanRun(row rowScanner) (*models.WorkflowRun, error) {
	var (
		run      models.WorkflowRun
		errorLog []byte
	)

	err := row.Scan(
		&run.ID, &run.Name, &run.Status, &run.CurrentStage, &run.PausedAt,
		&errorLog, &run.CreatedAt, &run.UpdatedAt, &run.CompletedAt)
	if err != nil {
		return nil, err
	}

	if len(errorLog) > 0 {
		if err := json.Unmarshal(errorLog, &run.ErrorLog); err != nil {
			return nil, fmt.Errorf("failed to decode error log: %w", err)
		}
	}

	return &run, nil
}
