package workflow

import (
	"context"
	"time"

	"github.com/pressforge/pressforge/pkg/models"
)

// HealthVerdict grades a run's current condition.
type HealthVerdict string

const (
	HealthHealthy  HealthVerdict = "healthy"
	HealthWarning  HealthVerdict = "warning"
	HealthCritical HealthVerdict = "critical"
)

// RunHealthReport diagnoses a single run without mutating it.
type RunHealthReport struct {
	RunID     string                   `json:"run_id"`
	Status    models.WorkflowRunStatus `json:"status"`
	Verdict   HealthVerdict            `json:"verdict"`
	Total     int                      `json:"total_tasks"`
	Queued    int                      `json:"queued"`
	Running   int                      `json:"running"`
	Blocked   int                      `json:"blocked"`
	Failed    int                      `json:"failed"`
	Completed int                      `json:"completed"`
	Stale     int                      `json:"stale"`
	Issues    []string                 `json:"issues,omitempty"`
}

// RunHealth inspects a run's tasks and renders a verdict: critical when more
// than three tasks are stale or more than five have failed, warning when any
// task is stale, failed, or blocked, healthy otherwise.
func (m *Manager) RunHealth(ctx context.Context, id string) (*RunHealthReport, error) {
	run, err := m.persistence.WorkflowRunRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tasks, err := m.persistence.WorkflowTaskRepository().ListByRun(ctx, id)
	if err != nil {
		return nil, err
	}

	report := &RunHealthReport{
		RunID:  run.ID,
		Status: run.Status,
		Total:  len(tasks),
	}

	cutoff := time.Now().UTC().Add(-StaleThreshold)

	for _, task := range tasks {
		switch task.Status {
		case models.TaskStatusQueued:
			report.Queued++
		case models.TaskStatusRunning:
			report.Running++
		case models.TaskStatusBlockedUser:
			report.Blocked++
		case models.TaskStatusFailed:
			report.Failed++
		case models.TaskStatusCompleted:
			report.Completed++
		}

		if task.Stale(cutoff) {
			report.Stale++
		}
	}

	report.Verdict = verdict(report)

	if report.Stale > 0 {
		report.Issues = append(report.Issues, "tasks stuck in running past the stale threshold")
	}

	if report.Failed > 0 {
		report.Issues = append(report.Issues, "tasks have failed")
	}

	if report.Blocked > 0 {
		report.Issues = append(report.Issues, "tasks are blocked waiting on user input")
	}

	return report, nil
}

func verdict(r *RunHealthReport) HealthVerdict {
	switch {
	case r.Stale > 3 || r.Failed > 5:
		return HealthCritical
	case r.Stale > 0 || r.Failed > 0 || r.Blocked > 0:
		return HealthWarning
	default:
		return HealthHealthy
	}
}
