package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pressforge/pressforge/pkg/models"
	"github.com/pressforge/pressforge/pkg/persistence"
)

// TaskRepository handles workflow-task file operations under <root>/tasks.
type TaskRepository struct {
	persistence *Persistence
}

func (r *TaskRepository) dir() string {
	return filepath.Join(r.persistence.root, "tasks")
}

func (r *TaskRepository) path(id string) string {
	return filepath.Join(r.dir(), id+".json")
}

func (r *TaskRepository) Create(_ context.Context, task *models.WorkflowTask) error {
	return r.write(task)
}

func (r *TaskRepository) GetByID(_ context.Context, id string) (*models.WorkflowTask, error) {
	return r.read(id)
}

func (r *TaskRepository) ListByRun(ctx context.Context, runID string) ([]*models.WorkflowTask, error) {
	all, err := r.list(ctx)
	if err != nil {
		return nil, err
	}

	tasks := make([]*models.WorkflowTask, 0, len(all))

	for _, task := range all {
		if task.WorkflowRunID == runID {
			tasks = append(tasks, task)
		}
	}

	return tasks, nil
}

func (r *TaskRepository) ListByRunAndStatus(ctx context.Context, runID string, status models.WorkflowTaskStatus) ([]*models.WorkflowTask, error) {
	tasks, err := r.ListByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	matched := make([]*models.WorkflowTask, 0, len(tasks))

	for _, task := range tasks {
		if task.Status == status {
			matched = append(matched, task)
		}
	}

	return matched, nil
}

func (r *TaskRepository) ListRunningStartedBefore(ctx context.Context, runID string, cutoff time.Time) ([]*models.WorkflowTask, error) {
	tasks, err := r.ListByRun(ctx, runID)
	if err != nil {
		return nil, err
	}

	stale := make([]*models.WorkflowTask, 0, len(tasks))

	for _, task := range tasks {
		if task.Stale(cutoff) {
			stale = append(stale, task)
		}
	}

	return stale, nil
}

func (r *TaskRepository) Update(_ context.Context, task *models.WorkflowTask) error {
	if _, err := os.Stat(r.path(task.ID)); err != nil {
		return persistence.ErrTaskNotFound
	}

	return r.write(task)
}

// UpdateIfStatus performs the compare-and-set under the persistence mutex so
// concurrent in-process sweeps cannot double-apply the mutation.
func (r *TaskRepository) UpdateIfStatus(_ context.Context, id string, expected models.WorkflowTaskStatus, apply func(*models.WorkflowTask)) (bool, error) {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	task, err := r.read(id)
	if err != nil {
		return false, err
	}

	if task.Status != expected {
		return false, nil
	}

	apply(task)
	task.UpdatedAt = time.Now().UTC()

	if err := r.write(task); err != nil {
		return false, err
	}

	return true, nil
}

func (r *TaskRepository) list(ctx context.Context) ([]*models.WorkflowTask, error) {
	entries, err := fs.Glob(os.DirFS(r.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list task files: %w", err)
	}

	tasks := make([]*models.WorkflowTask, 0, len(entries))

	for _, entry := range entries {
		task, err := r.read(entry[:len(entry)-5])
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, task)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})

	return tasks, nil
}

func (r *TaskRepository) read(id string) (*models.WorkflowTask, error) {
	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.ErrTaskNotFound
		}

		return nil, fmt.Errorf("failed to read task %s: %w", id, err)
	}

	var task models.WorkflowTask
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to decode task %s: %w", id, err)
	}

	return &task, nil
}

func (r *TaskRepository) write(task *models.WorkflowTask) error {
	if err := os.MkdirAll(r.dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create tasks directory: %w", err)
	}

	data, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode task %s: %w", task.ID, err)
	}

	if err := os.WriteFile(r.path(task.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write task %s: %w", task.ID, err)
	}

	return nil
}
