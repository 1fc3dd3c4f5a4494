package models

import (
	"encoding/json"
	"time"
)

// WorkflowTaskStatus represents the lifecycle state of one task within a run.
type WorkflowTaskStatus string

const (
	TaskStatusQueued      WorkflowTaskStatus = "queued"
	TaskStatusRunning     WorkflowTaskStatus = "running"
	TaskStatusBlockedUser WorkflowTaskStatus = "blocked_user" // awaiting external input
	TaskStatusFailed      WorkflowTaskStatus = "failed"       // terminal
	TaskStatusCompleted   WorkflowTaskStatus = "completed"    // terminal
)

// DefaultMaxAttempts bounds stale-task recovery per task.
const DefaultMaxAttempts = 3

// WorkflowTask is one unit of work within a run. Attempt increments each time
// recovery resets a stale task; the task fails terminally once Attempt would
// exceed MaxAttempts.
type WorkflowTask struct {
	ID            string             `json:"id"`
	WorkflowRunID string             `json:"workflow_run_id" validate:"required"`
	Stage         string             `json:"stage"`
	Name          string             `json:"name"            validate:"required"`
	Status        WorkflowTaskStatus `json:"status"          validate:"required"`
	Attempt       int                `json:"attempt"`
	MaxAttempts   int                `json:"max_attempts"`
	Payload       json.RawMessage    `json:"payload,omitempty"` // GenerationRequest for page tasks
	StartedAt     *time.Time         `json:"started_at,omitempty"`
	ErrorMessage  string             `json:"error_message,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// Terminal reports whether the task can no longer change state.
func (t *WorkflowTask) Terminal() bool {
	return t.Status == TaskStatusFailed || t.Status == TaskStatusCompleted
}

// Stale reports whether a running task started before the cutoff and is
// presumed to belong to a crashed process.
func (t *WorkflowTask) Stale(cutoff time.Time) bool {
	return t.Status == TaskStatusRunning && t.StartedAt != nil && t.StartedAt.Before(cutoff)
}
