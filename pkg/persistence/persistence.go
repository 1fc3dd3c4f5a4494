// Package persistence provides the data storage abstraction for workflow runs
// and their tasks.
package persistence

import (
	"context"
	"time"

	"github.com/pressforge/pressforge/pkg/models"
)

// WorkflowRunRepository stores and queries workflow runs.
type WorkflowRunRepository interface {
	Create(ctx context.Context, run *models.WorkflowRun) error
	GetByID(ctx context.Context, id string) (*models.WorkflowRun, error)
	List(ctx context.Context) ([]*models.WorkflowRun, error)
	// ListByStatus supports the recovery sweep's "all running runs" query.
	ListByStatus(ctx context.Context, status models.WorkflowRunStatus) ([]*models.WorkflowRun, error)
	Update(ctx context.Context, run *models.WorkflowRun) error
	// UpdateIfStatus applies the mutation only when the run is currently in
	// the expected status, as a single-row conditional update. It reports
	// whether the swap happened. Lifecycle transitions racing on the same run
	// are safe: the loser observes false instead of overwriting.
	UpdateIfStatus(ctx context.Context, id string, expected models.WorkflowRunStatus, apply func(*models.WorkflowRun)) (bool, error)
	Delete(ctx context.Context, id string) error
}

// WorkflowTaskRepository stores and queries the tasks owned by runs.
type WorkflowTaskRepository interface {
	Create(ctx context.Context, task *models.WorkflowTask) error
	GetByID(ctx context.Context, id string) (*models.WorkflowTask, error)
	ListByRun(ctx context.Context, runID string) ([]*models.WorkflowTask, error)
	ListByRunAndStatus(ctx context.Context, runID string, status models.WorkflowTaskStatus) ([]*models.WorkflowTask, error)
	// ListRunningStartedBefore returns the run's running tasks whose start
	// time is older than the cutoff, i.e. the staleness predicate.
	ListRunningStartedBefore(ctx context.Context, runID string, cutoff time.Time) ([]*models.WorkflowTask, error)
	Update(ctx context.Context, task *models.WorkflowTask) error
	// UpdateIfStatus applies the mutation only when the task is currently in
	// the expected status, as a single-row conditional update. It reports
	// whether the swap happened. Concurrent sweeps racing on the same task
	// are safe: the loser simply observes false.
	UpdateIfStatus(ctx context.Context, id string, expected models.WorkflowTaskStatus, apply func(*models.WorkflowTask)) (bool, error)
}

type Persistence interface {
	WorkflowRunRepository() WorkflowRunRepository
	WorkflowTaskRepository() WorkflowTaskRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}
