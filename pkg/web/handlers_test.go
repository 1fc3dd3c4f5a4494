package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pressforge/pressforge/pkg/generator"
	"github.com/pressforge/pressforge/pkg/models"
	"github.com/pressforge/pressforge/pkg/persistence/file"
	"github.com/pressforge/pressforge/pkg/seo"
	"github.com/pressforge/pressforge/pkg/web"
	"github.com/pressforge/pressforge/pkg/workflow"
)

type staticTextService struct {
	content string
}

func (s *staticTextService) GenerateOutline(_ context.Context, request models.GenerationRequest) (*models.BlogOutline, error) {
	return generator.FallbackOutline(request), nil
}

func (s *staticTextService) GenerateContent(_ context.Context, _ *models.BlogOutline, _ models.GenerationRequest) (string, error) {
	return s.content, nil
}

func (s *staticTextService) ImproveContentForSEO(_ context.Context, _ string) (string, error) {
	return s.content, nil
}

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())
	scorer := seo.NewScorer()
	manager := workflow.NewManager(persistence, nil, nil, slog.Default())
	orchestrator := generator.NewOrchestrator(
		&staticTextService{content: "<h1>Post</h1><p>Body text here.</p>"},
		scorer, generator.Options{}, slog.Default())

	handlers := web.NewAPIHandlers(
		orchestrator, scorer, manager,
		validator.New(validator.WithRequiredStructEnabled()),
		func(fiber.Ctx) error { return nil },
	)

	app := fiber.New()

	app.Post("/generate", handlers.Generate)
	app.Post("/seo/score", handlers.ScoreContent)
	app.Post("/seo/checks", handlers.CheckContent)
	app.Get("/health", handlers.HealthCheck)

	r := app.Group("/runs")
	r.Post("/", handlers.CreateRun)
	r.Get("/", handlers.GetRuns)
	r.Get("/:id", handlers.GetRun)
	r.Get("/:id/tasks", handlers.GetRunTasks)
	r.Get("/:id/health", handlers.GetRunHealth)
	r.Post("/:id/pause", handlers.PauseRun)
	r.Post("/:id/resume", handlers.ResumeRun)
	r.Post("/:id/cancel", handlers.CancelRun)

	return app
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")

	return req
}

func createRun(t *testing.T, app *fiber.App) models.WorkflowRun {
	t.Helper()

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/runs/", web.CreateRunRequest{
		Name: "batch one",
		Requests: []models.GenerationRequest{
			{Topic: "Landscape Lighting", PrimaryKeyword: "landscape lighting"},
		},
	}))
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var run models.WorkflowRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))

	return run
}

func TestAPIHandlers_ScoreContent(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/seo/score", web.ScoreRequest{
		Content:        "<h1>Landscape Lighting</h1><p>Landscape lighting makes gardens glow.</p>",
		PrimaryKeyword: "landscape lighting",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var result models.SEOScoreResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.NotEmpty(t, result.LetterGrade)
	assert.Greater(t, result.Overall, 0)
}

func TestAPIHandlers_CheckContent(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/seo/checks", web.ScoreRequest{
		Content:        "<h1>Landscape Lighting</h1><p>Landscape lighting makes gardens glow.</p>",
		PrimaryKeyword: "landscape lighting",
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Checks []models.CheckResult `json:"checks"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.NotEmpty(t, payload.Checks)
}

func TestAPIHandlers_ScoreContent_MissingContent(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/seo/score", web.ScoreRequest{}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_CreateRun(t *testing.T) {
	app := setupTestApp(t)

	run := createRun(t, app)
	assert.Equal(t, models.RunStatusRunning, run.Status)
	assert.NotEmpty(t, run.ID)
}

func TestAPIHandlers_CreateRun_Validation(t *testing.T) {
	app := setupTestApp(t)

	// No requests at all.
	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/runs/", web.CreateRunRequest{Name: "empty run"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_RunLifecycle(t *testing.T) {
	app := setupTestApp(t)
	run := createRun(t, app)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/runs/"+run.ID+"/pause", web.RunActionRequest{Reason: "review"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var paused models.WorkflowRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&paused))
	assert.Equal(t, models.RunStatusPaused, paused.Status)

	// Pausing a paused run conflicts.
	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/runs/"+run.ID+"/pause", web.RunActionRequest{Reason: "again"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/runs/"+run.ID+"/resume", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(jsonRequest(t, http.MethodPost, "/runs/"+run.ID+"/cancel", web.RunActionRequest{Reason: "abort"}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var cancelled models.WorkflowRun
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cancelled))
	assert.Equal(t, models.RunStatusFailed, cancelled.Status)
}

func TestAPIHandlers_GetRun_NotFound(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/runs/does-not-exist", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_GetRunTasks(t *testing.T) {
	app := setupTestApp(t)
	run := createRun(t, app)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/runs/"+run.ID+"/tasks", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var tasks []models.WorkflowTask
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, models.TaskStatusQueued, tasks[0].Status)
}

func TestAPIHandlers_GetRunHealth(t *testing.T) {
	app := setupTestApp(t)
	run := createRun(t, app)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/runs/"+run.ID+"/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var report workflow.RunHealthReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, workflow.HealthHealthy, report.Verdict)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	app := setupTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
