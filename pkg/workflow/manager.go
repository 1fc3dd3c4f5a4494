// Package workflow implements the persisted state machine for multi-page
// batch generation runs: lifecycle operations, task claiming, and stale-task
// crash recovery.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pressforge/pressforge/pkg/eventbus"
	"github.com/pressforge/pressforge/pkg/events"
	"github.com/pressforge/pressforge/pkg/models"
	"github.com/pressforge/pressforge/pkg/persistence"
)

var (
	// ErrRunNotActive is returned when an operation requires a running run.
	ErrRunNotActive = errors.New("workflow run is not running")

	// ErrRunNotPaused is returned when resume is called on a non-paused run.
	ErrRunNotPaused = errors.New("workflow run is not paused")

	// ErrRunTerminal is returned when a completed or failed run is mutated.
	ErrRunTerminal = errors.New("workflow run is in a terminal state")
)

// TaskQueue hands queued task IDs to whatever executes tasks. A nil queue is
// a supported configuration; recovery then relies on workers polling.
type TaskQueue interface {
	Enqueue(ctx context.Context, taskID string) error
}

// Manager owns all mutation of WorkflowRun and WorkflowTask records.
type Manager struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	queue       TaskQueue
	logger      *slog.Logger
}

// NewManager creates a workflow manager. The event bus and queue may be nil.
func NewManager(p persistence.Persistence, bus eventbus.EventBus, queue TaskQueue, logger *slog.Logger) *Manager {
	return &Manager{
		persistence: p,
		eventBus:    bus,
		queue:       queue,
		logger:      logger,
	}
}

// StartRun creates a run with one queued page task per generation request and
// makes the tasks available for pickup.
func (m *Manager) StartRun(ctx context.Context, name string, requests []models.GenerationRequest) (*models.WorkflowRun, error) {
	if len(requests) == 0 {
		return nil, errors.New("a run needs at least one generation request")
	}

	now := time.Now().UTC()

	run := &models.WorkflowRun{
		ID:           uuid.NewString(),
		Name:         name,
		Status:       models.RunStatusRunning,
		CurrentStage: "generate",
		ErrorLog:     []models.RunErrorEntry{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := m.persistence.WorkflowRunRepository().Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	for i, request := range requests {
		payload, err := json.Marshal(request)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request %d: %w", i, err)
		}

		task := &models.WorkflowTask{
			ID:            uuid.NewString(),
			WorkflowRunID: run.ID,
			Stage:         "generate",
			Name:          request.Topic,
			Status:        models.TaskStatusQueued,
			MaxAttempts:   models.DefaultMaxAttempts,
			Payload:       payload,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		if err := m.persistence.WorkflowTaskRepository().Create(ctx, task); err != nil {
			return nil, fmt.Errorf("failed to create task for %q: %w", request.Topic, err)
		}

		m.enqueue(ctx, task.ID)
	}

	m.publish(ctx, run.ID, events.RunStarted{
		BaseEvent: m.baseEvent(events.RunStartedEvent, run.ID),
		Name:      name,
		TaskCount: len(requests),
	})

	return run, nil
}

// PauseRun stamps pausedAt and records the reason in the run's error log.
// The transition is a conditional swap from running, so it cannot clobber a
// concurrent cancel or completion.
func (m *Manager) PauseRun(ctx context.Context, id, reason string) (*models.WorkflowRun, error) {
	var paused *models.WorkflowRun

	swapped, err := m.persistence.WorkflowRunRepository().UpdateIfStatus(ctx, id, models.RunStatusRunning, func(run *models.WorkflowRun) {
		now := time.Now().UTC()
		run.Status = models.RunStatusPaused
		run.PausedAt = &now
		run.ErrorLog = append(run.ErrorLog, models.RunErrorEntry{
			Stage:     run.CurrentStage,
			Error:     "paused: " + reason,
			Timestamp: now,
		})
		paused = run
	})
	if err != nil {
		return nil, err
	}

	if !swapped {
		return nil, ErrRunNotActive
	}

	m.publish(ctx, paused.ID, events.RunPaused{
		BaseEvent: m.baseEvent(events.RunPausedEvent, paused.ID),
		Reason:    reason,
	})

	return paused, nil
}

// ResumeRun clears pausedAt and returns the run to running. Only a paused run
// can be resumed; a run cancelled in the meantime stays failed.
func (m *Manager) ResumeRun(ctx context.Context, id string) (*models.WorkflowRun, error) {
	var resumed *models.WorkflowRun

	swapped, err := m.persistence.WorkflowRunRepository().UpdateIfStatus(ctx, id, models.RunStatusPaused, func(run *models.WorkflowRun) {
		run.Status = models.RunStatusRunning
		run.PausedAt = nil
		resumed = run
	})
	if err != nil {
		return nil, err
	}

	if !swapped {
		return nil, ErrRunNotPaused
	}

	m.publish(ctx, resumed.ID, events.RunResumed{
		BaseEvent: m.baseEvent(events.RunResumedEvent, resumed.ID),
	})

	return resumed, nil
}

// CancelRun force-fails every queued and running task of the run and marks
// the run failed with a completion timestamp. Irreversible.
func (m *Manager) CancelRun(ctx context.Context, id, reason string) (*models.WorkflowRun, error) {
	run, err := m.persistence.WorkflowRunRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if run.Terminal() {
		return nil, ErrRunTerminal
	}

	for _, status := range []models.WorkflowTaskStatus{models.TaskStatusQueued, models.TaskStatusRunning} {
		tasks, err := m.persistence.WorkflowTaskRepository().ListByRunAndStatus(ctx, id, status)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s tasks of run %s: %w", status, id, err)
		}

		for _, task := range tasks {
			_, err := m.persistence.WorkflowTaskRepository().UpdateIfStatus(ctx, task.ID, status, func(t *models.WorkflowTask) {
				t.Status = models.TaskStatusFailed
				t.ErrorMessage = "cancelled: " + reason
			})
			if err != nil {
				return nil, fmt.Errorf("failed to cancel task %s: %w", task.ID, err)
			}
		}
	}

	var cancelled *models.WorkflowRun

	apply := func(run *models.WorkflowRun) {
		now := time.Now().UTC()
		run.Status = models.RunStatusFailed
		run.CompletedAt = &now
		run.ErrorLog = append(run.ErrorLog, models.RunErrorEntry{
			Stage:     run.CurrentStage,
			Error:     "cancelled: " + reason,
			Timestamp: now,
		})
		cancelled = run
	}

	for _, from := range []models.WorkflowRunStatus{models.RunStatusRunning, models.RunStatusPaused} {
		swapped, err := m.persistence.WorkflowRunRepository().UpdateIfStatus(ctx, id, from, apply)
		if err != nil {
			return nil, fmt.Errorf("failed to cancel run %s: %w", id, err)
		}

		if swapped {
			m.publish(ctx, cancelled.ID, events.RunCancelled{
				BaseEvent: m.baseEvent(events.RunCancelledEvent, cancelled.ID),
				Reason:    reason,
			})

			return cancelled, nil
		}
	}

	// The run reached a terminal state between the check and the swap.
	return nil, ErrRunTerminal
}

// GetRun returns one run by ID.
func (m *Manager) GetRun(ctx context.Context, id string) (*models.WorkflowRun, error) {
	return m.persistence.WorkflowRunRepository().GetByID(ctx, id)
}

// ListRuns returns every run.
func (m *Manager) ListRuns(ctx context.Context) ([]*models.WorkflowRun, error) {
	return m.persistence.WorkflowRunRepository().List(ctx)
}

// ListRunsByStatus returns the runs in the given status.
func (m *Manager) ListRunsByStatus(ctx context.Context, status models.WorkflowRunStatus) ([]*models.WorkflowRun, error) {
	return m.persistence.WorkflowRunRepository().ListByStatus(ctx, status)
}

// ListTasks returns every task of a run.
func (m *Manager) ListTasks(ctx context.Context, runID string) ([]*models.WorkflowTask, error) {
	if _, err := m.persistence.WorkflowRunRepository().GetByID(ctx, runID); err != nil {
		return nil, err
	}

	return m.persistence.WorkflowTaskRepository().ListByRun(ctx, runID)
}

// ClaimTask attempts to move a queued task to running on behalf of a worker.
// False without error means another worker won the claim.
func (m *Manager) ClaimTask(ctx context.Context, id string) (*models.WorkflowTask, bool, error) {
	claimed, err := m.persistence.WorkflowTaskRepository().UpdateIfStatus(ctx, id, models.TaskStatusQueued, func(t *models.WorkflowTask) {
		now := time.Now().UTC()
		t.Status = models.TaskStatusRunning
		t.StartedAt = &now
		t.ErrorMessage = ""
	})
	if err != nil {
		return nil, false, err
	}

	if !claimed {
		return nil, false, nil
	}

	task, err := m.persistence.WorkflowTaskRepository().GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}

	return task, true, nil
}

// CompleteTask marks a running task completed and finishes the run when no
// active tasks remain.
func (m *Manager) CompleteTask(ctx context.Context, id string) error {
	task, err := m.persistence.WorkflowTaskRepository().GetByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = m.persistence.WorkflowTaskRepository().UpdateIfStatus(ctx, id, models.TaskStatusRunning, func(t *models.WorkflowTask) {
		t.Status = models.TaskStatusCompleted
	})
	if err != nil {
		return err
	}

	return m.finishRunIfDone(ctx, task.WorkflowRunID)
}

// FailTask records a task failure. The attempt budget still applies through
// recovery; an explicit failure here is terminal for the task.
func (m *Manager) FailTask(ctx context.Context, id, message string) error {
	task, err := m.persistence.WorkflowTaskRepository().GetByID(ctx, id)
	if err != nil {
		return err
	}

	_, err = m.persistence.WorkflowTaskRepository().UpdateIfStatus(ctx, id, models.TaskStatusRunning, func(t *models.WorkflowTask) {
		t.Status = models.TaskStatusFailed
		t.ErrorMessage = message
	})
	if err != nil {
		return err
	}

	m.publish(ctx, task.WorkflowRunID, events.TaskFailed{
		BaseEvent: m.baseEvent(events.TaskFailedEvent, task.WorkflowRunID),
		TaskID:    id,
		Error:     message,
	})

	return m.finishRunIfDone(ctx, task.WorkflowRunID)
}

// BlockTask parks a running task until external input arrives.
func (m *Manager) BlockTask(ctx context.Context, id, message string) error {
	_, err := m.persistence.WorkflowTaskRepository().UpdateIfStatus(ctx, id, models.TaskStatusRunning, func(t *models.WorkflowTask) {
		t.Status = models.TaskStatusBlockedUser
		t.ErrorMessage = message
	})

	return err
}

// finishRunIfDone completes the run once every task is terminal. A run with
// any failed task finishes as failed. The final transition is a conditional
// swap, so a run that turned terminal concurrently is left untouched.
func (m *Manager) finishRunIfDone(ctx context.Context, runID string) error {
	tasks, err := m.persistence.WorkflowTaskRepository().ListByRun(ctx, runID)
	if err != nil {
		return err
	}

	failed := 0

	for _, task := range tasks {
		if !task.Terminal() {
			return nil
		}

		if task.Status == models.TaskStatusFailed {
			failed++
		}
	}

	final := models.RunStatusCompleted
	if failed > 0 {
		final = models.RunStatusFailed
	}

	var finished *models.WorkflowRun

	apply := func(run *models.WorkflowRun) {
		now := time.Now().UTC()
		run.Status = final
		run.CompletedAt = &now
		finished = run
	}

	for _, from := range []models.WorkflowRunStatus{models.RunStatusRunning, models.RunStatusPaused} {
		swapped, err := m.persistence.WorkflowRunRepository().UpdateIfStatus(ctx, runID, from, apply)
		if err != nil {
			return fmt.Errorf("failed to finish run %s: %w", runID, err)
		}

		if swapped {
			m.publish(ctx, finished.ID, events.RunCompleted{
				BaseEvent: m.baseEvent(events.RunCompletedEvent, finished.ID),
				Duration:  finished.CompletedAt.Sub(finished.CreatedAt),
			})

			return nil
		}
	}

	return nil
}

func (m *Manager) enqueue(ctx context.Context, taskID string) {
	if m.queue == nil {
		return
	}

	if err := m.queue.Enqueue(ctx, taskID); err != nil {
		m.logger.ErrorContext(ctx, "Failed to enqueue task", "task_id", taskID, "error", err)
	}
}

func (m *Manager) publish(ctx context.Context, key string, event eventbus.Event) {
	if m.eventBus == nil {
		return
	}

	if err := m.eventBus.Publish(ctx, key, event); err != nil {
		m.logger.ErrorContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func (m *Manager) baseEvent(eventType events.EventType, runID string) events.BaseEvent {
	id := uuid.NewString()
	if m.eventBus != nil {
		id = m.eventBus.GenerateID()
	}

	return events.BaseEvent{
		ID:        id,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RunID:     runID,
	}
}
