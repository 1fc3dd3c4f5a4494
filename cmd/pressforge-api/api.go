// Package main provides the Pressforge API server implementation.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/pressforge/pressforge/pkg/eventbus"
	"github.com/pressforge/pressforge/pkg/generator"
	"github.com/pressforge/pressforge/pkg/persistence"
	"github.com/pressforge/pressforge/pkg/seo"
	"github.com/pressforge/pressforge/pkg/web"
	"github.com/pressforge/pressforge/pkg/workflow"
)

type API struct {
	logger       *slog.Logger
	persistence  persistence.Persistence
	eventBus     eventbus.EventBus
	orchestrator *generator.Orchestrator
	queue        workflow.TaskQueue
	validate     *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	eventBus eventbus.EventBus,
	orchestrator *generator.Orchestrator,
	queue workflow.TaskQueue,
) *API {
	return &API{
		logger:       logger,
		persistence:  persistence,
		eventBus:     eventBus,
		orchestrator: orchestrator,
		queue:        queue,
		validate:     validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	scorer := seo.NewScorer()
	manager := workflow.NewManager(a.persistence, a.eventBus, a.queue, a.logger)

	handlers := web.NewAPIHandlers(a.orchestrator, scorer, manager, a.validate, func(c fiber.Ctx) error {
		return a.persistence.HealthCheck(c.Context())
	})

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Pressforge API")
	})

	app.Post("/generate", handlers.Generate)
	app.Post("/seo/score", handlers.ScoreContent)
	app.Post("/seo/checks", handlers.CheckContent)

	r := app.Group("/runs")
	r.Post("/", handlers.CreateRun)
	r.Get("/", handlers.GetRuns)
	r.Get("/:id", handlers.GetRun)
	r.Get("/:id/tasks", handlers.GetRunTasks)
	r.Get("/:id/health", handlers.GetRunHealth)
	r.Post("/:id/pause", handlers.PauseRun)
	r.Post("/:id/resume", handlers.ResumeRun)
	r.Post("/:id/cancel", handlers.CancelRun)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
