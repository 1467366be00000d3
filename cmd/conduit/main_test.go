package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dukex/conduit/pkg/activity"
	"github.com/dukex/conduit/pkg/models"
	"github.com/dukex/conduit/pkg/persistence/file"
	"github.com/dukex/conduit/pkg/services"
	"github.com/dukex/conduit/pkg/testutil"
	"github.com/dukex/conduit/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
connections:
  - id: sql-db
    name: Orders DB
    actions:
      - id: sql-start
        descriptor:
          propertyDefinitionSteps:
            - name: Query
              properties:
                query:
                  type: string
                  displayName: SQL statement
                  required: true
                password:
                  type: string
                  secret: true
`

func startSandbox(t *testing.T) string {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	persistence := file.NewPersistence(t.TempDir())

	catalog, err := services.ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)

	handlers := web.NewAPIHandlers(
		services.NewIntegration(persistence, nil, logger),
		services.NewDeployment(persistence, nil, logger),
		services.NewActivity(persistence, nil, logger),
		services.NewSupport(persistence, logger),
		catalog,
		validator.New(validator.WithRequiredStructEnabled()),
	)

	app := fiber.New()
	handlers.Register(app)

	server := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(server.Close)

	return server.URL
}

func run(t *testing.T, ctx context.Context, apiURL string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	app := newApp()
	app.Writer = &out

	err := app.Run(ctx, append([]string{"conduit", "--api-url", apiURL}, args...))

	return out.String(), err
}

func mustRun(t *testing.T, apiURL string, args ...string) string {
	t.Helper()

	out, err := run(t, t.Context(), apiURL, args...)
	require.NoError(t, err, strings.Join(args, " "))

	return out
}

func writeTestDocument(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "integration.json")
	require.NoError(t, writeDocument(path, testutil.CreateTestIntegration(testutil.WithID(""))))

	return path
}

func TestParseHeaders(t *testing.T) {
	headers, err := parseHeaders([]string{"X-Tenant: acme", "Accept:application/json"})
	require.NoError(t, err)
	assert.Equal(t, "acme", headers.Get("X-Tenant"))
	assert.Equal(t, "application/json", headers.Get("Accept"))

	_, err = parseHeaders([]string{"no separator"})
	require.ErrorIs(t, err, errUsage)

	_, err = parseHeaders([]string{": value"})
	require.ErrorIs(t, err, errUsage)
}

func TestParseProps(t *testing.T) {
	props, err := parseProps([]string{"query=SELECT a=b", "empty="})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"query": "SELECT a=b", "empty": ""}, props)

	_, err = parseProps([]string{"novalue"})
	require.ErrorIs(t, err, errUsage)
}

func TestStepPosition(t *testing.T) {
	doc := testutil.CreateTestIntegration()

	assert.Equal(t, 2, stepPosition(doc, "flow-1", appendPosition))
	assert.Equal(t, 1, stepPosition(doc, "flow-1", 1))
	assert.Equal(t, 0, stepPosition(doc, "missing", appendPosition))
}

func TestPrintDeployment(t *testing.T) {
	now := time.Date(2024, 5, 2, 14, 0, 0, 0, time.UTC)

	var out bytes.Buffer
	printDeployment(&out, &models.Deployment{
		Version:      3,
		TargetState:  models.DeploymentStatePublished,
		CurrentState: models.DeploymentStatePending,
		CreatedAt:    now.Add(-2*time.Hour - 5*time.Minute),
	}, now)

	assert.Contains(t, out.String(), "Version        3")
	assert.Contains(t, out.String(), "Current state  Pending")
	assert.Contains(t, out.String(), "Deployed       2 hours 5 minutes\n")
}

func TestPrintActivity(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printActivity(&out, nil, false))
	assert.Equal(t, "no activity\n", out.String())

	a := testutil.CreateTestActivity(1_700_000_000_000)
	a.Steps[1].Failure = "boom\ntrace"

	out.Reset()
	require.NoError(t, printActivity(&out, activity.SummarizeAll([]*models.Activity{a}, time.UTC), true))
	assert.Contains(t, out.String(), a.ID)
	assert.Contains(t, out.String(), "Read orders")
	assert.Contains(t, out.String(), "boom")
	assert.NotContains(t, out.String(), "trace")
}

func TestDocumentCommands(t *testing.T) {
	apiURL := startSandbox(t)
	path := writeTestDocument(t)

	mustRun(t, apiURL, "doc", "add-connection", "--file", path, "--flow", "flow-1",
		"--connection", "sql-db", "--action", "sql-start", "--prop", "query=SELECT 1")

	doc, err := readDocument(path)
	require.NoError(t, err)
	require.Len(t, doc.Flows[0].Steps, 3)

	added := doc.Flows[0].Steps[2]
	assert.Equal(t, models.StepKindEndpoint, added.StepKind)
	require.NotNil(t, added.Action.Descriptor)
	assert.Equal(t, "SELECT 1", added.Action.Descriptor.PropertyDefinitionSteps[0].Properties["query"].Value)
	assert.Contains(t, doc.Tags, "sql-db")

	mustRun(t, apiURL, "doc", "add-step", "--file", path, "--flow", "flow-1", "--position", "0",
		"--kind", "log", "--name", "Audit", "--prop", "level=INFO")
	mustRun(t, apiURL, "doc", "update-step", "--file", path, "--flow", "flow-1", "--position", "0",
		"--kind", "log", "--name", "Audit trail")
	mustRun(t, apiURL, "doc", "upsert-connection", "--file", path, "--flow", "flow-1", "--position", "3",
		"--connection", "sql-db", "--action", "sql-start")

	doc, err = readDocument(path)
	require.NoError(t, err)
	require.Len(t, doc.Flows[0].Steps, 4)
	assert.Equal(t, "Audit trail", doc.Flows[0].Steps[0].Name)
	upserted := doc.Flows[0].Steps[3]
	assert.Empty(t, upserted.ConfiguredProperties)
	require.NotNil(t, upserted.Action.Descriptor)
	assert.Empty(t, upserted.Action.Descriptor.PropertyDefinitionSteps[0].Properties["query"].Value)

	_, err = run(t, t.Context(), apiURL, "doc", "update-step", "--file", path, "--flow", "flow-1",
		"--position", "9", "--kind", "log")
	require.Error(t, err)

	_, err = run(t, t.Context(), apiURL, "doc", "add-step", "--file", path, "--flow", "nope", "--kind", "log")
	require.Error(t, err)

	_, err = run(t, t.Context(), apiURL, "doc", "add-connection", "--file", path, "--flow", "flow-1",
		"--connection", "sql-db", "--action", "missing")
	require.Error(t, err)
}

func TestRemoteCommands(t *testing.T) {
	apiURL := startSandbox(t)
	path := writeTestDocument(t)

	id := strings.TrimSpace(mustRun(t, apiURL, "save", "--file", path))
	require.NotEmpty(t, id)

	doc, err := readDocument(path)
	require.NoError(t, err)
	assert.Equal(t, id, doc.ID)

	doc.Name = "Renamed"
	require.NoError(t, writeDocument(path, doc))
	assert.Equal(t, id+"\n", mustRun(t, apiURL, "save", "--file", path))

	var fetched models.Integration
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, apiURL, "get", id)), &fetched))
	assert.Equal(t, "Renamed", fetched.Name)

	mustRun(t, apiURL, "deploy", id)
	assert.Contains(t, mustRun(t, apiURL, "deployment", id, "1"), "Target state   Published")

	mustRun(t, apiURL, "undeploy", "--version", "1", id)
	assert.Contains(t, mustRun(t, apiURL, "deployment", id, "1"), "Unpublished")

	mustRun(t, apiURL, "deploy", "--version", "1", "--as-deployment", id)
	mustRun(t, apiURL, "revert", "--version", "1", id)
	mustRun(t, apiURL, "tag", id, "dev", "prod")

	assert.Equal(t, "no activity\n", mustRun(t, apiURL, "activity", id))

	payload, err := json.Marshal(testutil.CreateTestActivity(1_700_000_000_000))
	require.NoError(t, err)

	resp, err := http.Post(apiURL+"/activity/integrations/"+id, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Contains(t, mustRun(t, apiURL, "activity", "--steps", id), "Read orders")

	assert.Contains(t, mustRun(t, apiURL, "connections"), "sql-start")

	descriptor := mustRun(t, apiURL, "descriptor", "--prop", "query=SELECT 1", "--prop", "password=hunter2", "sql-db", "sql-start")
	assert.Contains(t, descriptor, "Query (complete)")
	assert.Contains(t, descriptor, "SQL statement")
	assert.NotContains(t, descriptor, "hunter2")

	assert.Contains(t, mustRun(t, apiURL, "descriptor", "sql-db", "sql-start"), "nothing to resolve")

	archive := filepath.Join(t.TempDir(), "export.zip")
	assert.Equal(t, archive+"\n", mustRun(t, apiURL, "export", "--output", archive, id))

	mustRun(t, apiURL, "delete", id)

	_, err = run(t, t.Context(), apiURL, "get", id)
	require.EqualError(t, err, "Not Found")

	mustRun(t, apiURL, "import", archive)

	require.NoError(t, json.Unmarshal([]byte(mustRun(t, apiURL, "get", id)), &fetched))
	assert.Equal(t, []string{"dev", "prod"}, fetched.Environments)
}

func TestRemoteCommandErrors(t *testing.T) {
	apiURL := startSandbox(t)

	_, err := run(t, t.Context(), apiURL, "get")
	require.ErrorIs(t, err, errUsage)

	_, err = run(t, t.Context(), apiURL, "deploy", "--as-deployment", "some-id")
	require.ErrorIs(t, err, errUsage)

	_, err = run(t, t.Context(), apiURL, "deployment", "some-id", "latest")
	require.ErrorIs(t, err, errUsage)

	_, err = run(t, t.Context(), apiURL, "--header", "broken", "connections")
	require.ErrorIs(t, err, errUsage)

	_, err = run(t, t.Context(), apiURL, "monitor", "--version", "1", "--schedule", "not a schedule", "some-id")
	require.Error(t, err)
}

func TestMonitor(t *testing.T) {
	apiURL := startSandbox(t)
	path := writeTestDocument(t)

	id := strings.TrimSpace(mustRun(t, apiURL, "save", "--file", path))
	mustRun(t, apiURL, "deploy", id)

	ctx, cancel := context.WithTimeout(t.Context(), 300*time.Millisecond)
	defer cancel()

	out, err := run(t, ctx, apiURL, "monitor", "--version", "1", "--schedule", "@every 1h", id)
	require.NoError(t, err)
	assert.Contains(t, out, "version 1 Pending/Published exchanges=0 failed=0")
}
