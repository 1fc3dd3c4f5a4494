package workflow

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressforge/pressforge/pkg/models"
	"github.com/pressforge/pressforge/pkg/persistence"
	"github.com/pressforge/pressforge/pkg/persistence/file"
)

type recordingQueue struct {
	enqueued []string
}

func (q *recordingQueue) Enqueue(_ context.Context, taskID string) error {
	q.enqueued = append(q.enqueued, taskID)

	return nil
}

func newTestManager(t *testing.T) (*Manager, persistence.Persistence, *recordingQueue) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	queue := &recordingQueue{}
	manager := NewManager(p, nil, queue, slog.Default())

	return manager, p, queue
}

func sampleRequests(n int) []models.GenerationRequest {
	requests := make([]models.GenerationRequest, 0, n)
	for i := 0; i < n; i++ {
		requests = append(requests, models.GenerationRequest{
			Topic:          "Landscape Lighting",
			Location:       "Austin",
			PrimaryKeyword: "landscape lighting",
		})
	}

	return requests
}

func TestManager_StartRun(t *testing.T) {
	manager, p, queue := newTestManager(t)
	ctx := t.Context()

	run, err := manager.StartRun(ctx, "spring batch", sampleRequests(3))
	require.NoError(t, err)

	assert.Equal(t, models.RunStatusRunning, run.Status)
	assert.Empty(t, run.ErrorLog)
	assert.Nil(t, run.PausedAt)

	tasks, err := p.WorkflowTaskRepository().ListByRun(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 3)

	for _, task := range tasks {
		assert.Equal(t, models.TaskStatusQueued, task.Status)
		assert.Equal(t, 0, task.Attempt)
		assert.Equal(t, models.DefaultMaxAttempts, task.MaxAttempts)
	}

	assert.Len(t, queue.enqueued, 3)
}

func TestManager_StartRun_EmptyRequests(t *testing.T) {
	manager, _, _ := newTestManager(t)

	_, err := manager.StartRun(t.Context(), "empty", nil)
	require.Error(t, err)
}

func TestManager_PauseResume(t *testing.T) {
	manager, _, _ := newTestManager(t)
	ctx := t.Context()

	run, err := manager.StartRun(ctx, "pausable", sampleRequests(1))
	require.NoError(t, err)

	paused, err := manager.PauseRun(ctx, run.ID, "manual review")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusPaused, paused.Status)
	require.NotNil(t, paused.PausedAt)
	require.Len(t, paused.ErrorLog, 1)
	assert.Contains(t, paused.ErrorLog[0].Error, "manual review")

	// Pausing twice is rejected.
	_, err = manager.PauseRun(ctx, run.ID, "again")
	assert.ErrorIs(t, err, ErrRunNotActive)

	resumed, err := manager.ResumeRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, resumed.Status)
	assert.Nil(t, resumed.PausedAt)

	_, err = manager.ResumeRun(ctx, run.ID)
	assert.ErrorIs(t, err, ErrRunNotPaused)
}

func TestManager_CancelRun_IsAbsorbing(t *testing.T) {
	manager, p, _ := newTestManager(t)
	ctx := t.Context()

	run, err := manager.StartRun(ctx, "doomed", sampleRequests(2))
	require.NoError(t, err)

	tasks, err := p.WorkflowTaskRepository().ListByRun(ctx, run.ID)
	require.NoError(t, err)

	_, claimed, err := manager.ClaimTask(ctx, tasks[0].ID)
	require.NoError(t, err)
	require.True(t, claimed)

	cancelled, err := manager.CancelRun(ctx, run.ID, "operator abort")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, cancelled.Status)
	require.NotNil(t, cancelled.CompletedAt)

	tasks, err = p.WorkflowTaskRepository().ListByRun(ctx, run.ID)
	require.NoError(t, err)

	for _, task := range tasks {
		assert.Equal(t, models.TaskStatusFailed, task.Status)
		assert.Contains(t, task.ErrorMessage, "operator abort")
	}

	// No lifecycle operation revives a cancelled run.
	_, err = manager.CancelRun(ctx, run.ID, "again")
	assert.ErrorIs(t, err, ErrRunTerminal)

	_, err = manager.PauseRun(ctx, run.ID, "too late")
	assert.ErrorIs(t, err, ErrRunNotActive)

	_, err = manager.ResumeRun(ctx, run.ID)
	assert.ErrorIs(t, err, ErrRunNotPaused)
}

// interceptedRunRepository runs a hook once before the next conditional swap,
// standing in for another process mutating the run at the worst moment.
type interceptedRunRepository struct {
	persistence.WorkflowRunRepository
	beforeSwap func()
}

func (r *interceptedRunRepository) UpdateIfStatus(ctx context.Context, id string, expected models.WorkflowRunStatus, apply func(*models.WorkflowRun)) (bool, error) {
	if r.beforeSwap != nil {
		hook := r.beforeSwap
		r.beforeSwap = nil
		hook()
	}

	return r.WorkflowRunRepository.UpdateIfStatus(ctx, id, expected, apply)
}

type interceptedPersistence struct {
	persistence.Persistence
	runs *interceptedRunRepository
}

func (p *interceptedPersistence) WorkflowRunRepository() persistence.WorkflowRunRepository {
	return p.runs
}

func TestManager_ResumeRun_LosesRaceWithCancel(t *testing.T) {
	base := file.NewPersistence(t.TempDir())
	intercepted := &interceptedPersistence{
		Persistence: base,
		runs:        &interceptedRunRepository{WorkflowRunRepository: base.WorkflowRunRepository()},
	}
	manager := NewManager(intercepted, nil, &recordingQueue{}, slog.Default())
	rival := NewManager(base, nil, &recordingQueue{}, slog.Default())
	ctx := t.Context()

	run, err := manager.StartRun(ctx, "contested", sampleRequests(1))
	require.NoError(t, err)

	_, err = manager.PauseRun(ctx, run.ID, "maintenance")
	require.NoError(t, err)

	// Another operator cancels the run right before resume's swap lands.
	intercepted.runs.beforeSwap = func() {
		_, err := rival.CancelRun(ctx, run.ID, "operator abort")
		require.NoError(t, err)
	}

	_, err = manager.ResumeRun(ctx, run.ID)
	assert.ErrorIs(t, err, ErrRunNotPaused)

	current, err := base.WorkflowRunRepository().GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, current.Status)
	require.NotNil(t, current.CompletedAt)
}

func TestManager_ClaimTask(t *testing.T) {
	manager, p, _ := newTestManager(t)
	ctx := t.Context()

	run, err := manager.StartRun(ctx, "claims", sampleRequests(1))
	require.NoError(t, err)

	tasks, err := p.WorkflowTaskRepository().ListByRun(ctx, run.ID)
	require.NoError(t, err)

	task, claimed, err := manager.ClaimTask(ctx, tasks[0].ID)
	require.NoError(t, err)
	require.True(t, claimed)
	assert.Equal(t, models.TaskStatusRunning, task.Status)
	require.NotNil(t, task.StartedAt)

	// Second claim loses the race.
	_, claimed, err = manager.ClaimTask(ctx, tasks[0].ID)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestManager_CompleteTask_FinishesRun(t *testing.T) {
	manager, p, _ := newTestManager(t)
	ctx := t.Context()

	run, err := manager.StartRun(ctx, "finishes", sampleRequests(2))
	require.NoError(t, err)

	tasks, err := p.WorkflowTaskRepository().ListByRun(ctx, run.ID)
	require.NoError(t, err)

	for _, task := range tasks {
		_, claimed, err := manager.ClaimTask(ctx, task.ID)
		require.NoError(t, err)
		require.True(t, claimed)

		require.NoError(t, manager.CompleteTask(ctx, task.ID))
	}

	finished, err := p.WorkflowRunRepository().GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, finished.Status)
	require.NotNil(t, finished.CompletedAt)
}

func TestManager_FailTask_FailsRun(t *testing.T) {
	manager, p, _ := newTestManager(t)
	ctx := t.Context()

	run, err := manager.StartRun(ctx, "partial failure", sampleRequests(2))
	require.NoError(t, err)

	tasks, err := p.WorkflowTaskRepository().ListByRun(ctx, run.ID)
	require.NoError(t, err)

	_, claimed, err := manager.ClaimTask(ctx, tasks[0].ID)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, manager.CompleteTask(ctx, tasks[0].ID))

	_, claimed, err = manager.ClaimTask(ctx, tasks[1].ID)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, manager.FailTask(ctx, tasks[1].ID, "model refused"))

	finished, err := p.WorkflowRunRepository().GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, finished.Status)
}

func TestManager_BlockTask(t *testing.T) {
	manager, p, _ := newTestManager(t)
	ctx := t.Context()

	run, err := manager.StartRun(ctx, "blocked", sampleRequests(1))
	require.NoError(t, err)

	tasks, err := p.WorkflowTaskRepository().ListByRun(ctx, run.ID)
	require.NoError(t, err)

	_, claimed, err := manager.ClaimTask(ctx, tasks[0].ID)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, manager.BlockTask(ctx, tasks[0].ID, "need approved images"))

	task, err := p.WorkflowTaskRepository().GetByID(ctx, tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusBlockedUser, task.Status)

	// A blocked task keeps the run open.
	current, err := p.WorkflowRunRepository().GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, current.Status)
}

func makeStale(t *testing.T, p persistence.Persistence, taskID string, age time.Duration) {
	t.Helper()

	ctx := t.Context()

	task, err := p.WorkflowTaskRepository().GetByID(ctx, taskID)
	require.NoError(t, err)

	startedAt := time.Now().UTC().Add(-age)
	task.Status = models.TaskStatusRunning
	task.StartedAt = &startedAt
	require.NoError(t, p.WorkflowTaskRepository().Update(ctx, task))
}

func TestManager_RecoverStaleTasks(t *testing.T) {
	manager, p, queue := newTestManager(t)
	ctx := t.Context()

	run, err := manager.StartRun(ctx, "recovery", sampleRequests(3))
	require.NoError(t, err)

	tasks, err := p.WorkflowTaskRepository().ListByRun(ctx, run.ID)
	require.NoError(t, err)
	queue.enqueued = nil

	// One task crashed ten minutes ago, one is freshly running, one queued.
	makeStale(t, p, tasks[0].ID, 10*time.Minute)
	makeStale(t, p, tasks[1].ID, time.Minute)

	report, err := manager.RecoverStaleTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.RunsScanned)
	assert.Equal(t, 1, report.TasksRecovered)
	assert.Equal(t, 0, report.TasksFailed)

	recovered, err := p.WorkflowTaskRepository().GetByID(ctx, tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusQueued, recovered.Status)
	assert.Equal(t, 1, recovered.Attempt)
	assert.Nil(t, recovered.StartedAt)
	assert.Equal(t, []string{tasks[0].ID}, queue.enqueued)

	// Fresh running task untouched.
	fresh, err := p.WorkflowTaskRepository().GetByID(ctx, tasks[1].ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusRunning, fresh.Status)
}

func TestManager_RecoverStaleTasks_ExhaustsAttempts(t *testing.T) {
	manager, p, _ := newTestManager(t)
	ctx := t.Context()

	run, err := manager.StartRun(ctx, "exhausted", sampleRequests(1))
	require.NoError(t, err)

	tasks, err := p.WorkflowTaskRepository().ListByRun(ctx, run.ID)
	require.NoError(t, err)

	task := tasks[0]
	task.Attempt = models.DefaultMaxAttempts
	require.NoError(t, p.WorkflowTaskRepository().Update(ctx, task))
	makeStale(t, p, task.ID, 10*time.Minute)

	report, err := manager.RecoverStaleTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.TasksRecovered)
	assert.Equal(t, 1, report.TasksFailed)

	failed, err := p.WorkflowTaskRepository().GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusFailed, failed.Status)
	assert.Contains(t, failed.ErrorMessage, "gave up")

	// The only task failed, so the run is done.
	finished, err := p.WorkflowRunRepository().GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, finished.Status)
}

func TestManager_RecoverStaleTasks_SkipsPausedRuns(t *testing.T) {
	manager, p, _ := newTestManager(t)
	ctx := t.Context()

	run, err := manager.StartRun(ctx, "paused run", sampleRequests(1))
	require.NoError(t, err)

	tasks, err := p.WorkflowTaskRepository().ListByRun(ctx, run.ID)
	require.NoError(t, err)
	makeStale(t, p, tasks[0].ID, 10*time.Minute)

	_, err = manager.PauseRun(ctx, run.ID, "maintenance")
	require.NoError(t, err)

	report, err := manager.RecoverStaleTasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.RunsScanned)
	assert.Equal(t, 0, report.TasksRecovered)
}

func TestManager_RunHealth(t *testing.T) {
	manager, p, _ := newTestManager(t)
	ctx := t.Context()

	run, err := manager.StartRun(ctx, "health", sampleRequests(6))
	require.NoError(t, err)

	report, err := manager.RunHealth(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, HealthHealthy, report.Verdict)
	assert.Equal(t, 6, report.Queued)

	tasks, err := p.WorkflowTaskRepository().ListByRun(ctx, run.ID)
	require.NoError(t, err)

	// One stale task downgrades to warning.
	makeStale(t, p, tasks[0].ID, 10*time.Minute)

	report, err = manager.RunHealth(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, HealthWarning, report.Verdict)
	assert.Equal(t, 1, report.Stale)
	assert.NotEmpty(t, report.Issues)

	// More than three stale tasks is critical.
	for _, task := range tasks[1:4] {
		makeStale(t, p, task.ID, 10*time.Minute)
	}

	report, err = manager.RunHealth(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, HealthCritical, report.Verdict)
	assert.Equal(t, 4, report.Stale)
}
