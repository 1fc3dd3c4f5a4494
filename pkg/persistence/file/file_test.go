package file

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pressforge/pressforge/pkg/models"
	"github.com/pressforge/pressforge/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRun(status models.WorkflowRunStatus) *models.WorkflowRun {
	now := time.Now().UTC()

	return &models.WorkflowRun{
		ID:        uuid.NewString(),
		Name:      "multi-page batch",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newTask(runID string, status models.WorkflowTaskStatus) *models.WorkflowTask {
	now := time.Now().UTC()

	return &models.WorkflowTask{
		ID:            uuid.NewString(),
		WorkflowRunID: runID,
		Stage:         "generate",
		Name:          "page task",
		Status:        status,
		MaxAttempts:   models.DefaultMaxAttempts,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestRunRepository_CreateAndGet(t *testing.T) {
	p := NewPersistence(t.TempDir())
	run := newRun(models.RunStatusRunning)

	require.NoError(t, p.WorkflowRunRepository().Create(t.Context(), run))

	loaded, err := p.WorkflowRunRepository().GetByID(t.Context(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, loaded.ID)
	assert.Equal(t, models.RunStatusRunning, loaded.Status)

	err = p.WorkflowRunRepository().Create(t.Context(), run)
	assert.ErrorIs(t, err, persistence.ErrRunAlreadyExists)
}

func TestRunRepository_GetMissing(t *testing.T) {
	p := NewPersistence(t.TempDir())

	_, err := p.WorkflowRunRepository().GetByID(t.Context(), "nope")
	assert.ErrorIs(t, err, persistence.ErrRunNotFound)
}

func TestRunRepository_ListByStatus(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.WorkflowRunRepository()

	running := newRun(models.RunStatusRunning)
	paused := newRun(models.RunStatusPaused)

	require.NoError(t, repo.Create(t.Context(), running))
	require.NoError(t, repo.Create(t.Context(), paused))

	runs, err := repo.ListByStatus(t.Context(), models.RunStatusRunning)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, running.ID, runs[0].ID)
}

func TestRunRepository_UpdateIfStatus(t *testing.T) {
	p := NewPersistence(t.TempDir())
	run := newRun(models.RunStatusPaused)

	require.NoError(t, p.WorkflowRunRepository().Create(t.Context(), run))

	// Matching expectation applies the change.
	swapped, err := p.WorkflowRunRepository().UpdateIfStatus(t.Context(), run.ID, models.RunStatusPaused, func(r *models.WorkflowRun) {
		r.Status = models.RunStatusFailed
		now := time.Now().UTC()
		r.CompletedAt = &now
	})
	require.NoError(t, err)
	assert.True(t, swapped)

	// A transition from a status the run already left observes false.
	swapped, err = p.WorkflowRunRepository().UpdateIfStatus(t.Context(), run.ID, models.RunStatusPaused, func(r *models.WorkflowRun) {
		r.Status = models.RunStatusRunning
	})
	require.NoError(t, err)
	assert.False(t, swapped)

	loaded, err := p.WorkflowRunRepository().GetByID(t.Context(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, loaded.Status)
	assert.NotNil(t, loaded.CompletedAt)

	_, err = p.WorkflowRunRepository().UpdateIfStatus(t.Context(), "nope", models.RunStatusRunning, func(*models.WorkflowRun) {})
	assert.ErrorIs(t, err, persistence.ErrRunNotFound)
}

func TestTaskRepository_QueriesByRunAndStatus(t *testing.T) {
	p := NewPersistence(t.TempDir())
	run := newRun(models.RunStatusRunning)
	other := newRun(models.RunStatusRunning)

	queued := newTask(run.ID, models.TaskStatusQueued)
	completed := newTask(run.ID, models.TaskStatusCompleted)
	foreign := newTask(other.ID, models.TaskStatusQueued)

	for _, task := range []*models.WorkflowTask{queued, completed, foreign} {
		require.NoError(t, p.WorkflowTaskRepository().Create(t.Context(), task))
	}

	tasks, err := p.WorkflowTaskRepository().ListByRun(t.Context(), run.ID)
	require.NoError(t, err)
	assert.Len(t, tasks, 2)

	queuedTasks, err := p.WorkflowTaskRepository().ListByRunAndStatus(t.Context(), run.ID, models.TaskStatusQueued)
	require.NoError(t, err)
	require.Len(t, queuedTasks, 1)
	assert.Equal(t, queued.ID, queuedTasks[0].ID)
}

func TestTaskRepository_ListRunningStartedBefore(t *testing.T) {
	p := NewPersistence(t.TempDir())
	runID := uuid.NewString()

	staleStart := time.Now().UTC().Add(-10 * time.Minute)
	freshStart := time.Now().UTC().Add(-1 * time.Minute)

	stale := newTask(runID, models.TaskStatusRunning)
	stale.StartedAt = &staleStart

	fresh := newTask(runID, models.TaskStatusRunning)
	fresh.StartedAt = &freshStart

	queued := newTask(runID, models.TaskStatusQueued)

	for _, task := range []*models.WorkflowTask{stale, fresh, queued} {
		require.NoError(t, p.WorkflowTaskRepository().Create(t.Context(), task))
	}

	cutoff := time.Now().UTC().Add(-5 * time.Minute)

	found, err := p.WorkflowTaskRepository().ListRunningStartedBefore(t.Context(), runID, cutoff)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stale.ID, found[0].ID)
}

func TestTaskRepository_UpdateIfStatus(t *testing.T) {
	p := NewPersistence(t.TempDir())
	task := newTask(uuid.NewString(), models.TaskStatusQueued)

	require.NoError(t, p.WorkflowTaskRepository().Create(t.Context(), task))

	// Matching expectation applies the change.
	swapped, err := p.WorkflowTaskRepository().UpdateIfStatus(t.Context(), task.ID, models.TaskStatusQueued, func(t *models.WorkflowTask) {
		t.Status = models.TaskStatusRunning
		now := time.Now().UTC()
		t.StartedAt = &now
	})
	require.NoError(t, err)
	assert.True(t, swapped)

	// A second claim against the old status observes false.
	swapped, err = p.WorkflowTaskRepository().UpdateIfStatus(t.Context(), task.ID, models.TaskStatusQueued, func(t *models.WorkflowTask) {
		t.Status = models.TaskStatusRunning
	})
	require.NoError(t, err)
	assert.False(t, swapped)

	loaded, err := p.WorkflowTaskRepository().GetByID(t.Context(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusRunning, loaded.Status)
	assert.NotNil(t, loaded.StartedAt)
}
