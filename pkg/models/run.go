package models

import "time"

// WorkflowRunStatus represents the lifecycle state of a workflow run.
type WorkflowRunStatus string

const (
	RunStatusRunning   WorkflowRunStatus = "running"
	RunStatusPaused    WorkflowRunStatus = "paused"
	RunStatusFailed    WorkflowRunStatus = "failed"    // terminal; cancel forces this
	RunStatusCompleted WorkflowRunStatus = "completed" // terminal
)

// RunErrorEntry is one structured entry of a run's error log.
type RunErrorEntry struct {
	Stage     string    `json:"stage"`
	Task      string    `json:"task,omitempty"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// WorkflowRun is one persisted multi-task generation job. A run exclusively
// owns its WorkflowTasks.
type WorkflowRun struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"          validate:"required,min=3"`
	Status       WorkflowRunStatus `json:"status"        validate:"required"`
	CurrentStage string            `json:"current_stage"`
	PausedAt     *time.Time        `json:"paused_at,omitempty"`
	ErrorLog     []RunErrorEntry   `json:"error_log"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
}

// Terminal reports whether the run can no longer change state.
func (r *WorkflowRun) Terminal() bool {
	return r.Status == RunStatusFailed || r.Status == RunStatusCompleted
}
