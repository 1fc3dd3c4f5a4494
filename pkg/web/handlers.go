package web

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/pressforge/pressforge/pkg/events"
	"github.com/pressforge/pressforge/pkg/generator"
	"github.com/pressforge/pressforge/pkg/models"
	"github.com/pressforge/pressforge/pkg/seo"
	"github.com/pressforge/pressforge/pkg/workflow"
)

type APIHandlers struct {
	orchestrator *generator.Orchestrator
	scorer       *seo.Scorer
	checklist    *seo.Checklist
	manager      *workflow.Manager
	validator    *validator.Validate
	healthCheck  func(ctx fiber.Ctx) error
}

func NewAPIHandlers(
	orchestrator *generator.Orchestrator,
	scorer *seo.Scorer,
	manager *workflow.Manager,
	validate *validator.Validate,
	healthCheck func(ctx fiber.Ctx) error,
) *APIHandlers {
	return &APIHandlers{
		orchestrator: orchestrator,
		scorer:       scorer,
		checklist:    seo.NewChecklist(),
		manager:      manager,
		validator:    validate,
		healthCheck:  healthCheck,
	}
}

// Generate runs one generation request and streams progress as server-sent
// events. The stream is observe-only: progress events in stage order, then a
// single terminal complete or error event.
func (h *APIHandlers) Generate(c fiber.Ctx) error {
	var request models.GenerationRequest
	if err := c.Bind().JSON(&request); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(request); err != nil {
		return badRequest(c, err.Error())
	}

	ctx := c.Context()

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	return c.SendStreamWriter(func(w *bufio.Writer) {
		progress := func(step events.Step, message string) {
			writeSSE(w, "progress", map[string]any{
				"step":      step,
				"message":   message,
				"timestamp": time.Now().UTC(),
			})
		}

		result, err := h.orchestrator.Generate(ctx, request, progress)
		if err != nil {
			writeSSE(w, "error", map[string]any{"error": err.Error()})

			return
		}

		writeSSE(w, "complete", result)
	})
}

func writeSSE(w *bufio.Writer, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}

	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	w.Flush()
}

// ScoreContent scores a draft without generating anything.
func (h *APIHandlers) ScoreContent(c fiber.Ctx) error {
	var request ScoreRequest
	if err := c.Bind().JSON(&request); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(request); err != nil {
		return badRequest(c, err.Error())
	}

	result := h.scorer.Score(seo.ScoreInput{
		Content:           request.Content,
		PrimaryKeyword:    request.PrimaryKeyword,
		SecondaryKeywords: request.SecondaryKeywords,
		TargetWordCount:   request.TargetWordCount,
		MetaTitle:         request.MetaTitle,
		MetaDescription:   request.MetaDescription,
	})

	return c.JSON(result)
}

// CheckContent runs the granular diagnostic checklist over a draft. Unlike
// ScoreContent it returns per-check pass/warning/fail detail rather than the
// five-metric gate.
func (h *APIHandlers) CheckContent(c fiber.Ctx) error {
	var request ScoreRequest
	if err := c.Bind().JSON(&request); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(request); err != nil {
		return badRequest(c, err.Error())
	}

	results := h.checklist.Run(seo.ScoreInput{
		Content:           request.Content,
		PrimaryKeyword:    request.PrimaryKeyword,
		SecondaryKeywords: request.SecondaryKeywords,
		TargetWordCount:   request.TargetWordCount,
		MetaTitle:         request.MetaTitle,
		MetaDescription:   request.MetaDescription,
	})

	return c.JSON(fiber.Map{"checks": results})
}

func (h *APIHandlers) CreateRun(c fiber.Ctx) error {
	var req CreateRunRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	run, err := h.manager.StartRun(c.Context(), req.Name, req.Requests)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(run)
}

func (h *APIHandlers) GetRuns(c fiber.Ctx) error {
	if statusStr := c.Query("status"); statusStr != "" {
		runs, err := h.manager.ListRunsByStatus(c.Context(), models.WorkflowRunStatus(statusStr))
		if err != nil {
			return handleWorkflowError(c, err)
		}

		return c.JSON(runs)
	}

	runs, err := h.manager.ListRuns(c.Context())
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.JSON(runs)
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	run, err := h.manager.GetRun(c.Context(), id)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.JSON(run)
}

func (h *APIHandlers) GetRunTasks(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	tasks, err := h.manager.ListTasks(c.Context(), id)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.JSON(tasks)
}

func (h *APIHandlers) PauseRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	var req RunActionRequest
	_ = c.Bind().JSON(&req)

	run, err := h.manager.PauseRun(c.Context(), id, req.Reason)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.JSON(run)
}

func (h *APIHandlers) ResumeRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	run, err := h.manager.ResumeRun(c.Context(), id)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.JSON(run)
}

func (h *APIHandlers) CancelRun(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	var req RunActionRequest
	_ = c.Bind().JSON(&req)

	run, err := h.manager.CancelRun(c.Context(), id, req.Reason)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.JSON(run)
}

func (h *APIHandlers) GetRunHealth(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Run ID is required")
	}

	report, err := h.manager.RunHealth(c.Context(), id)
	if err != nil {
		return handleWorkflowError(c, err)
	}

	return c.JSON(report)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "Pressforge API is healthy"
	httpStatus := http.StatusOK

	if err := h.healthCheck(c); err != nil {
		status = "unhealthy"
		message = "Pressforge API is unhealthy: " + err.Error()
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}
