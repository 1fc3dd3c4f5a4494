// Package events defines event types and structures for generation progress
// and workflow lifecycle notifications.
package events

import (
	"time"

	"github.com/pressforge/pressforge/pkg/models"
)

type EventType string

// Topic carries every pressforge event; consumers filter by event type.
const Topic = "pressforge.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Generation progress channel. An error event is terminal for its
	// request; a complete event never follows one.
	GenerationProgressEvent  EventType = "generation.progress"
	GenerationFailedEvent    EventType = "generation.failed"
	GenerationCompletedEvent EventType = "generation.completed"

	// Workflow run lifecycle events.
	RunStartedEvent   EventType = "run.started"
	RunPausedEvent    EventType = "run.paused"
	RunResumedEvent   EventType = "run.resumed"
	RunCancelledEvent EventType = "run.cancelled"
	RunCompletedEvent EventType = "run.completed"

	// Task recovery events.
	TaskRecoveredEvent EventType = "task.recovered"
	TaskFailedEvent    EventType = "task.failed"
)

// Step names the orchestrator stages in their fixed order.
type Step string

const (
	StepOutline  Step = "outline"
	StepImages   Step = "images"
	StepContent  Step = "content"
	StepSEO      Step = "seo"
	StepFormat   Step = "format"
	StepUpload   Step = "upload"
	StepComplete Step = "complete"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RequestID string         `json:"request_id,omitempty"`
	RunID     string         `json:"run_id,omitempty"`
	WorkerID  string         `json:"worker_id,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// GenerationProgress reports one stage transition of a generation request.
// Events for a request are strictly ordered; no gaps or reordering.
type GenerationProgress struct {
	BaseEvent

	Step    Step   `json:"step"`
	Message string `json:"message"`
}

func (e GenerationProgress) GetType() EventType {
	return GenerationProgressEvent
}

// GenerationFailed is the single terminal error event of a failed request.
type GenerationFailed struct {
	BaseEvent

	Error string `json:"error"`
}

func (e GenerationFailed) GetType() EventType {
	return GenerationFailedEvent
}

// GenerationCompleted carries the final payload, including the achieved SEO
// score even when the passing threshold was never reached.
type GenerationCompleted struct {
	BaseEvent

	Result *models.GenerationResult `json:"result"`
}

func (e GenerationCompleted) GetType() EventType {
	return GenerationCompletedEvent
}

type RunStarted struct {
	BaseEvent

	Name      string `json:"name"`
	TaskCount int    `json:"task_count"`
}

func (e RunStarted) GetType() EventType {
	return RunStartedEvent
}

type RunPaused struct {
	BaseEvent

	Reason string `json:"reason"`
}

func (e RunPaused) GetType() EventType {
	return RunPausedEvent
}

type RunResumed struct {
	BaseEvent
}

func (e RunResumed) GetType() EventType {
	return RunResumedEvent
}

type RunCancelled struct {
	BaseEvent

	Reason string `json:"reason"`
}

func (e RunCancelled) GetType() EventType {
	return RunCancelledEvent
}

type RunCompleted struct {
	BaseEvent

	Duration time.Duration `json:"duration"`
}

func (e RunCompleted) GetType() EventType {
	return RunCompletedEvent
}

// TaskRecovered reports a stale running task reset to queued by the recovery
// sweep.
type TaskRecovered struct {
	BaseEvent

	TaskID  string `json:"task_id"`
	Attempt int    `json:"attempt"`
}

func (e TaskRecovered) GetType() EventType {
	return TaskRecoveredEvent
}

// TaskFailed reports a task that exhausted its attempt budget.
type TaskFailed struct {
	BaseEvent

	TaskID string `json:"task_id"`
	Error  string `json:"error"`
}

func (e TaskFailed) GetType() EventType {
	return TaskFailedEvent
}
