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

// RunRepository handles workflow-run file operations under <root>/runs.
type RunRepository struct {
	persistence *Persistence
}

func (r *RunRepository) dir() string {
	return filepath.Join(r.persistence.root, "runs")
}

func (r *RunRepository) path(id string) string {
	return filepath.Join(r.dir(), id+".json")
}

func (r *RunRepository) Create(_ context.Context, run *models.WorkflowRun) error {
	if _, err := os.Stat(r.path(run.ID)); err == nil {
		return persistence.ErrRunAlreadyExists
	}

	return r.write(run)
}

func (r *RunRepository) GetByID(_ context.Context, id string) (*models.WorkflowRun, error) {
	data, err := os.ReadFile(r.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, persistence.ErrRunNotFound
		}

		return nil, fmt.Errorf("failed to read run %s: %w", id, err)
	}

	var run models.WorkflowRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", id, err)
	}

	return &run, nil
}

func (r *RunRepository) List(ctx context.Context) ([]*models.WorkflowRun, error) {
	entries, err := fs.Glob(os.DirFS(r.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list run files: %w", err)
	}

	runs := make([]*models.WorkflowRun, 0, len(entries))

	for _, entry := range entries {
		run, err := r.GetByID(ctx, entry[:len(entry)-5])
		if err != nil {
			return nil, err
		}

		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})

	return runs, nil
}

func (r *RunRepository) ListByStatus(ctx context.Context, status models.WorkflowRunStatus) ([]*models.WorkflowRun, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	runs := make([]*models.WorkflowRun, 0, len(all))

	for _, run := range all {
		if run.Status == status {
			runs = append(runs, run)
		}
	}

	return runs, nil
}

func (r *RunRepository) Update(_ context.Context, run *models.WorkflowRun) error {
	if _, err := os.Stat(r.path(run.ID)); err != nil {
		return persistence.ErrRunNotFound
	}

	return r.write(run)
}

// UpdateIfStatus performs the compare-and-set under the persistence mutex so
// concurrent lifecycle transitions cannot overwrite each other.
func (r *RunRepository) UpdateIfStatus(ctx context.Context, id string, expected models.WorkflowRunStatus, apply func(*models.WorkflowRun)) (bool, error) {
	r.persistence.mu.Lock()
	defer r.persistence.mu.Unlock()

	run, err := r.GetByID(ctx, id)
	if err != nil {
		return false, err
	}

	if run.Status != expected {
		return false, nil
	}

	apply(run)
	run.UpdatedAt = time.Now().UTC()

	if err := r.write(run); err != nil {
		return false, err
	}

	return true, nil
}

func (r *RunRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(r.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.ErrRunNotFound
	}

	return err
}

func (r *RunRepository) write(run *models.WorkflowRun) error {
	if err := os.MkdirAll(r.dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create runs directory: %w", err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", run.ID, err)
	}

	if err := os.WriteFile(r.path(run.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write run %s: %w", run.ID, err)
	}

	return nil
}
