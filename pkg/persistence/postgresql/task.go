package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pressforge/pressforge/pkg/models"
	"github.com/pressforge/pressforge/pkg/persistence"
)

// TaskRepository handles workflow-task database operations.
type TaskRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

const taskColumns = `
	id
  , workflow_run_id
  , stage
  , name
  , status
  , attempt
  , max_attempts
  , payload
  , started_at
  , error_message
  , created_at
  , updated_at
`

func (r *TaskRepository) Create(ctx context.Context, task *models.WorkflowTask) error {
	query := `
		INSERT INTO workflow_tasks (id, workflow_run_id, stage, name, status, attempt, max_attempts, payload, started_at, error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		task.ID, task.WorkflowRunID, task.Stage, task.Name, task.Status,
		task.Attempt, task.MaxAttempts, nullableJSON(task.Payload), task.StartedAt,
		task.ErrorMessage, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert task %s: %w", task.ID, err)
	}

	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*models.WorkflowTask, error) {
	query := `SELECT ` + taskColumns + ` FROM workflow_tasks WHERE id = $1`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrTaskNotFound
		}

		return nil, fmt.Errorf("failed to query task %s: %w", id, err)
	}

	return task, nil
}

func (r *TaskRepository) ListByRun(ctx context.Context, runID string) ([]*models.WorkflowTask, error) {
	query := `SELECT ` + taskColumns + ` FROM workflow_tasks WHERE workflow_run_id = $1 ORDER BY created_at`

	return r.queryTasks(ctx, query, runID)
}

func (r *TaskRepository) ListByRunAndStatus(ctx context.Context, runID string, status models.WorkflowTaskStatus) ([]*models.WorkflowTask, error) {
	query := `SELECT ` + taskColumns + ` FROM workflow_tasks WHERE workflow_run_id = $1 AND status = $2 ORDER BY created_at`

	return r.queryTasks(ctx, query, runID, status)
}

func (r *TaskRepository) ListRunningStartedBefore(ctx context.Context, runID string, cutoff time.Time) ([]*models.WorkflowTask, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM workflow_tasks
		WHERE workflow_run_id = $1
		  AND status = $2
		  AND started_at IS NOT NULL
		  AND started_at < $3
		ORDER BY created_at
	`

	return r.queryTasks(ctx, query, runID, models.TaskStatusRunning, cutoff)
}

func (r *TaskRepository) Update(ctx context.Context, task *models.WorkflowTask) error {
	query := `
		UPDATE workflow_tasks
		SET status = $2
		  , attempt = $3
		  , started_at = $4
		  , error_message = $5
		  , updated_at = $6
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		task.ID, task.Status, task.Attempt, task.StartedAt, task.ErrorMessage, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", task.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update of task %s: %w", task.ID, err)
	}

	if affected == 0 {
		return persistence.ErrTaskNotFound
	}

	return nil
}

// UpdateIfStatus locks the row, re-checks the expected status, applies the
// mutation, and writes back in one transaction.
func (r *TaskRepository) UpdateIfStatus(ctx context.Context, id string, expected models.WorkflowTaskStatus, apply func(*models.WorkflowTask)) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction for task %s: %w", id, err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	query := `SELECT ` + taskColumns + ` FROM workflow_tasks WHERE id = $1 FOR UPDATE`

	task, err := scanTask(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, persistence.ErrTaskNotFound
		}

		return false, fmt.Errorf("failed to lock task %s: %w", id, err)
	}

	if task.Status != expected {
		return false, nil
	}

	apply(task)
	task.UpdatedAt = time.Now().UTC()

	updateQuery := `
		UPDATE workflow_tasks
		SET status = $2
		  , attempt = $3
		  , started_at = $4
		  , error_message = $5
		  , updated_at = $6
		WHERE id = $1
	`

	_, err = tx.ExecContext(ctx, updateQuery,
		task.ID, task.Status, task.Attempt, task.StartedAt, task.ErrorMessage, task.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to update task %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit update of task %s: %w", id, err)
	}

	return true, nil
}

func (r *TaskRepository) queryTasks(ctx context.Context, query string, args ...any) ([]*models.WorkflowTask, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	tasks := make([]*models.WorkflowTask, 0)

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}

		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

func scanTask(row rowScanner) (*models.WorkflowTask, error) {
	var (
		task    models.WorkflowTask
		payload []byte
	)

	err := row.Scan(
		&task.ID, &task.WorkflowRunID, &task.Stage, &task.Name, &task.Status,
		&task.Attempt, &task.MaxAttempts, &payload, &task.StartedAt,
		&task.ErrorMessage, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}

	task.Payload = payload

	return &task, nil
}

func nullableJSON(data []byte) any {
	if len(data) == 0 {
		return nil
	}

	return data
}
