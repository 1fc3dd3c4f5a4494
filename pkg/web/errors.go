package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/pressforge/pressforge/pkg/persistence"
	"github.com/pressforge/pressforge/pkg/workflow"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleWorkflowError maps workflow and persistence errors to problem
// responses.
func handleWorkflowError(c fiber.Ctx, err error) error {
	switch {
	case persistence.IsRunNotFound(err):
		return notFound(c, "workflow run not found")

	case persistence.IsTaskNotFound(err):
		return notFound(c, "workflow task not found")

	case errors.Is(err, workflow.ErrRunNotActive),
		errors.Is(err, workflow.ErrRunNotPaused),
		errors.Is(err, workflow.ErrRunTerminal):
		return conflict(c, err.Error())

	default:
		return internalError(c, err)
	}
}
