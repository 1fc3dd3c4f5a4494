package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/pressforge/pressforge/pkg/events"
	"github.com/pressforge/pressforge/pkg/models"
)

const (
	// StaleThreshold is how long a task may sit in running before the
	// recovery sweep presumes its worker crashed.
	StaleThreshold = 5 * time.Minute

	// LongPauseWarning flags runs paused longer than a day. Warn only; a
	// paused run never expires on its own.
	LongPauseWarning = 24 * time.Hour
)

// RecoveryReport summarizes one sweep.
type RecoveryReport struct {
	RunsScanned    int
	TasksRecovered int
	TasksFailed    int
}

// RecoverStaleTasks scans every running run for tasks stuck in running past
// the stale threshold. Each stale task gets its attempt incremented and is
// requeued, or failed terminally once the attempt budget is spent. The reset
// is a conditional update, so two concurrent sweeps never double-recover.
func (m *Manager) RecoverStaleTasks(ctx context.Context) (*RecoveryReport, error) {
	report := &RecoveryReport{}
	cutoff := time.Now().UTC().Add(-StaleThreshold)

	runs, err := m.persistence.WorkflowRunRepository().ListByStatus(ctx, models.RunStatusRunning)
	if err != nil {
		return nil, fmt.Errorf("failed to list running runs: %w", err)
	}

	for _, run := range runs {
		report.RunsScanned++

		if err := m.recoverRun(ctx, run, cutoff, report); err != nil {
			return report, err
		}
	}

	m.warnLongPauses(ctx)

	return report, nil
}

func (m *Manager) recoverRun(ctx context.Context, run *models.WorkflowRun, cutoff time.Time, report *RecoveryReport) error {
	tasks, err := m.persistence.WorkflowTaskRepository().ListRunningStartedBefore(ctx, run.ID, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list stale tasks of run %s: %w", run.ID, err)
	}

	for _, task := range tasks {
		attempt := task.Attempt + 1

		if attempt > task.MaxAttempts {
			if err := m.failStaleTask(ctx, run, task, attempt); err != nil {
				return err
			}

			report.TasksFailed++

			continue
		}

		reset, err := m.persistence.WorkflowTaskRepository().UpdateIfStatus(ctx, task.ID, models.TaskStatusRunning, func(t *models.WorkflowTask) {
			t.Status = models.TaskStatusQueued
			t.Attempt = attempt
			t.StartedAt = nil
		})
		if err != nil {
			return fmt.Errorf("failed to reset stale task %s: %w", task.ID, err)
		}

		if !reset {
			continue
		}

		report.TasksRecovered++

		m.logger.InfoContext(ctx, "Recovered stale task",
			"run_id", run.ID, "task_id", task.ID, "attempt", attempt)

		m.publish(ctx, run.ID, events.TaskRecovered{
			BaseEvent: m.baseEvent(events.TaskRecoveredEvent, run.ID),
			TaskID:    task.ID,
			Attempt:   attempt,
		})

		m.enqueue(ctx, task.ID)
	}

	return nil
}

func (m *Manager) failStaleTask(ctx context.Context, run *models.WorkflowRun, task *models.WorkflowTask, attempt int) error {
	message := fmt.Sprintf("gave up after %d attempts", task.MaxAttempts)

	failed, err := m.persistence.WorkflowTaskRepository().UpdateIfStatus(ctx, task.ID, models.TaskStatusRunning, func(t *models.WorkflowTask) {
		t.Status = models.TaskStatusFailed
		t.Attempt = attempt
		t.ErrorMessage = message
	})
	if err != nil {
		return fmt.Errorf("failed to fail stale task %s: %w", task.ID, err)
	}

	if !failed {
		return nil
	}

	m.logger.WarnContext(ctx, "Stale task exhausted its attempts",
		"run_id", run.ID, "task_id", task.ID, "max_attempts", task.MaxAttempts)

	m.publish(ctx, run.ID, events.TaskFailed{
		BaseEvent: m.baseEvent(events.TaskFailedEvent, run.ID),
		TaskID:    task.ID,
		Error:     message,
	})

	return m.finishRunIfDone(ctx, run.ID)
}

func (m *Manager) warnLongPauses(ctx context.Context) {
	runs, err := m.persistence.WorkflowRunRepository().ListByStatus(ctx, models.RunStatusPaused)
	if err != nil {
		m.logger.ErrorContext(ctx, "Failed to list paused runs", "error", err)

		return
	}

	threshold := time.Now().UTC().Add(-LongPauseWarning)

	for _, run := range runs {
		if run.PausedAt != nil && run.PausedAt.Before(threshold) {
			m.logger.WarnContext(ctx, "Run has been paused for over a day",
				"run_id", run.ID, "paused_at", run.PausedAt)
		}
	}
}
