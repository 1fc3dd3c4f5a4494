// Package main provides the Pressforge worker: it claims queued page tasks,
// runs the generation pipeline for each, and sweeps stale tasks on a schedule.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/pressforge/pressforge/pkg/eventbus"
	"github.com/pressforge/pressforge/pkg/events"
	"github.com/pressforge/pressforge/pkg/generator"
	"github.com/pressforge/pressforge/pkg/models"
	"github.com/pressforge/pressforge/pkg/otelhelper"
	"github.com/pressforge/pressforge/pkg/queue"
	"github.com/pressforge/pressforge/pkg/workflow"
)

// recoverySchedule runs the stale-task sweep every minute.
const recoverySchedule = "* * * * *"

type Worker struct {
	id           string
	manager      *workflow.Manager
	orchestrator *generator.Orchestrator
	queue        *queue.RedisQueue
	eventBus     eventbus.EventBus
	logger       *slog.Logger
	cron         *cron.Cron
	tracer       trace.Tracer
}

func NewWorker(
	id string,
	manager *workflow.Manager,
	orchestrator *generator.Orchestrator,
	taskQueue *queue.RedisQueue,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
) *Worker {
	tracer, err := otelhelper.NewTracer(context.Background(), "pressforge-worker")
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)

		tracer = noop.NewTracerProvider().Tracer("pressforge-worker")
	}

	return &Worker{
		id:           id,
		manager:      manager,
		orchestrator: orchestrator,
		queue:        taskQueue,
		eventBus:     eventBus,
		logger:       logger.With("worker_id", id),
		cron:         cron.New(),
		tracer:       tracer,
	}
}

// Start consumes the task queue and schedules the recovery sweep, then blocks
// until a termination signal arrives.
func (w *Worker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if _, err := w.cron.AddFunc(recoverySchedule, func() {
		report, err := w.manager.RecoverStaleTasks(ctx)
		if err != nil {
			w.logger.ErrorContext(ctx, "Recovery sweep failed", "error", err)

			return
		}

		if report.TasksRecovered > 0 || report.TasksFailed > 0 {
			w.logger.InfoContext(ctx, "Recovery sweep finished",
				"runs_scanned", report.RunsScanned,
				"tasks_recovered", report.TasksRecovered,
				"tasks_failed", report.TasksFailed)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule recovery sweep: %w", err)
	}

	w.cron.Start()
	w.queue.Consume(ctx, w.processTask)

	w.logger.InfoContext(ctx, "Worker started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker")

	cronCtx := w.cron.Stop()
	<-cronCtx.Done()

	return nil
}

// processTask claims the task, runs the pipeline on its payload, and records
// the outcome. Losing the claim race is not an error.
func (w *Worker) processTask(ctx context.Context, taskID string) error {
	task, claimed, err := w.manager.ClaimTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("failed to claim task %s: %w", taskID, err)
	}

	if !claimed {
		w.logger.DebugContext(ctx, "Task already claimed elsewhere", "task_id", taskID)

		return nil
	}

	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "generate_page",
		attribute.String(otelhelper.TaskIDKey, task.ID),
		attribute.String(otelhelper.RunIDKey, task.WorkflowRunID),
		attribute.String(otelhelper.WorkerIDKey, w.id),
	)
	defer span.End()

	var request models.GenerationRequest
	if err := json.Unmarshal(task.Payload, &request); err != nil {
		otelhelper.SetError(span, err)

		return w.manager.FailTask(ctx, task.ID, "invalid task payload: "+err.Error())
	}

	span.SetAttributes(
		attribute.String(otelhelper.TopicKey, request.Topic),
		attribute.String(otelhelper.KeywordKey, request.PrimaryKeyword),
	)

	w.logger.InfoContext(ctx, "Generating page",
		"task_id", task.ID, "run_id", task.WorkflowRunID, "topic", request.Topic)

	progress := func(step events.Step, message string) {
		w.publish(ctx, task, events.GenerationProgress{
			BaseEvent: w.baseEvent(events.GenerationProgressEvent, task),
			Step:      step,
			Message:   message,
		})
	}

	result, err := w.orchestrator.Generate(ctx, request, progress)
	if err != nil {
		otelhelper.SetError(span, err)
		w.publish(ctx, task, events.GenerationFailed{
			BaseEvent: w.baseEvent(events.GenerationFailedEvent, task),
			Error:     err.Error(),
		})

		return w.manager.FailTask(ctx, task.ID, err.Error())
	}

	span.SetAttributes(attribute.Int(otelhelper.SEOScoreKey, result.SEOScore.Overall))
	w.publish(ctx, task, events.GenerationCompleted{
		BaseEvent: w.baseEvent(events.GenerationCompletedEvent, task),
		Result:    result,
	})

	w.logger.InfoContext(ctx, "Page generated",
		"task_id", task.ID, "seo_score", result.SEOScore.Overall, "rewrites", result.RewriteAttempts)

	return w.manager.CompleteTask(ctx, task.ID)
}

func (w *Worker) publish(ctx context.Context, task *models.WorkflowTask, event eventbus.Event) {
	if w.eventBus == nil {
		return
	}

	if err := w.eventBus.Publish(ctx, task.WorkflowRunID, event); err != nil {
		w.logger.ErrorContext(ctx, "Failed to publish event",
			"event_type", event.GetType(), "error", err)
	}
}

func (w *Worker) baseEvent(eventType events.EventType, task *models.WorkflowTask) events.BaseEvent {
	id := ""
	if w.eventBus != nil {
		id = w.eventBus.GenerateID()
	}

	return events.BaseEvent{
		ID:        id,
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		RequestID: task.ID,
		RunID:     task.WorkflowRunID,
		WorkerID:  w.id,
	}
}
