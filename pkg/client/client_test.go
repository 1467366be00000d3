package client

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dukex/conduit/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method      string
	Path        string
	RawQuery    string
	ContentType string
	Auth        string
	Body        []byte
}

type backend struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	response []byte
}

func newBackend(t *testing.T, status int, response any) (*backend, *httptest.Server) {
	t.Helper()

	b := &backend{status: status}

	switch r := response.(type) {
	case nil:
	case []byte:
		b.response = r
	default:
		payload, err := json.Marshal(r)
		require.NoError(t, err)

		b.response = payload
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		b.mu.Lock()
		b.requests = append(b.requests, recordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			RawQuery:    r.URL.RawQuery,
			ContentType: r.Header.Get("Content-Type"),
			Auth:        r.Header.Get("Authorization"),
			Body:        body,
		})
		b.mu.Unlock()

		w.WriteHeader(b.status)
		_, _ = w.Write(b.response)
	}))
	t.Cleanup(server.Close)

	return b, server
}

func (b *backend) only(t *testing.T) recordedRequest {
	t.Helper()

	b.mu.Lock()
	defer b.mu.Unlock()

	require.Len(t, b.requests, 1)

	return b.requests[0]
}

func newTestClient(server *httptest.Server) *Client {
	return New(server.URL+"/api/v1/", WithHeader("Authorization", "Bearer token"), WithHTTPClient(server.Client()))
}

func TestClient_GetActionDescriptor_EmptyPropertiesMakesNoCall(t *testing.T) {
	b, server := newBackend(t, http.StatusOK, models.ActionDescriptor{})
	client := newTestClient(server)

	for _, props := range []map[string]any{nil, {}} {
		descriptor, err := client.GetActionDescriptor(t.Context(), "conn1", "act1", props)
		require.NoError(t, err)
		assert.Nil(t, descriptor)
	}

	assert.Empty(t, b.requests)
}

func TestClient_GetActionDescriptor(t *testing.T) {
	b, server := newBackend(t, http.StatusOK, models.ActionDescriptor{
		OutputDataShape: &models.DataShape{Kind: "json-schema"},
	})

	descriptor, err := newTestClient(server).GetActionDescriptor(t.Context(), "conn1", "act1", map[string]any{"topic": "orders"})
	require.NoError(t, err)
	require.NotNil(t, descriptor)
	assert.Equal(t, "json-schema", descriptor.OutputDataShape.Kind)

	req := b.only(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/v1/connections/conn1/actions/act1", req.Path)
	assert.Equal(t, "application/json", req.ContentType)
	assert.Equal(t, "Bearer token", req.Auth)
	assert.JSONEq(t, `{"topic":"orders"}`, string(req.Body))
}

func TestClient_GetActionDescriptor_Failure(t *testing.T) {
	_, server := newBackend(t, http.StatusInternalServerError, nil)

	descriptor, err := newTestClient(server).GetActionDescriptor(t.Context(), "conn1", "act1", map[string]any{"topic": "orders"})
	require.Error(t, err)
	assert.Nil(t, descriptor)

	assert.True(t, IsNetworkError(err))
	assert.Equal(t, "Internal Server Error", err.Error())

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "GetActionDescriptor", netErr.Op)
	assert.Equal(t, http.StatusInternalServerError, netErr.StatusCode)
}

func TestClient_SaveIntegration_Create(t *testing.T) {
	b, server := newBackend(t, http.StatusCreated, models.Integration{ID: "generated", Name: "orders"})

	input := &models.Integration{Name: "orders", Flows: []*models.Flow{{ID: "f1"}}}

	saved, err := newTestClient(server).SaveIntegration(t.Context(), input)
	require.NoError(t, err)

	assert.Equal(t, "generated", saved.ID)
	assert.Empty(t, input.ID)

	req := b.only(t)
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "/api/v1/integrations", req.Path)
}

func TestClient_SaveIntegration_UpdateReturnsInput(t *testing.T) {
	b, server := newBackend(t, http.StatusOK, models.Integration{ID: "i1", Name: "server side"})

	input := &models.Integration{ID: "i1", Name: "client side"}

	saved, err := newTestClient(server).SaveIntegration(t.Context(), input)
	require.NoError(t, err)

	assert.Same(t, input, saved)
	assert.Equal(t, "client side", saved.Name)

	req := b.only(t)
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/api/v1/integrations/i1", req.Path)

	var sent models.Integration
	require.NoError(t, json.Unmarshal(req.Body, &sent))
	assert.Equal(t, "client side", sent.Name)
}

func TestClient_SaveIntegration_Failure(t *testing.T) {
	_, server := newBackend(t, http.StatusBadRequest, nil)

	saved, err := newTestClient(server).SaveIntegration(t.Context(), &models.Integration{})
	assert.Nil(t, saved)
	assert.EqualError(t, err, "Bad Request")
}

func TestClient_Endpoints(t *testing.T) {
	tests := []struct {
		name        string
		call        func(c *Client) error
		method      string
		path        string
		query       string
		contentType string
		body        string
	}{
		{
			name:   "patch attributes",
			call:   func(c *Client) error { return c.SetAttributes(t.Context(), "i1", map[string]any{"name": "x"}) },
			method: http.MethodPatch,
			path:   "/api/v1/integrations/i1",
			body:   `{"name":"x"}`,
		},
		{
			name:   "delete",
			call:   func(c *Client) error { return c.DeleteIntegration(t.Context(), "i1") },
			method: http.MethodDelete,
			path:   "/api/v1/integrations/i1",
		},
		{
			name:   "deploy as deployment",
			call:   func(c *Client) error { return c.DeployIntegration(t.Context(), "i1", 3, true) },
			method: http.MethodPost,
			path:   "/api/v1/integrations/i1/deployments/3/targetState",
			body:   `{"targetState":"Published"}`,
		},
		{
			name:   "deploy direct",
			call:   func(c *Client) error { return c.DeployIntegration(t.Context(), "i1", 3, false) },
			method: http.MethodPut,
			path:   "/api/v1/integrations/i1/deployments",
			body:   `{}`,
		},
		{
			name:   "undeploy",
			call:   func(c *Client) error { return c.UndeployIntegration(t.Context(), "i1", 2) },
			method: http.MethodPost,
			path:   "/api/v1/integrations/i1/deployments/2/targetState",
			body:   `{"targetState":"Unpublished"}`,
		},
		{
			name:   "tag",
			call:   func(c *Client) error { return c.TagIntegration(t.Context(), "i1", []string{"dev", "prod"}) },
			method: http.MethodPut,
			path:   "/api/v1/public/integrations/i1/tags",
			body:   `["dev","prod"]`,
		},
		{
			name:   "tag with no environments",
			call:   func(c *Client) error { return c.TagIntegration(t.Context(), "i1", nil) },
			method: http.MethodPut,
			path:   "/api/v1/public/integrations/i1/tags",
			body:   `[]`,
		},
		{
			name:        "import",
			call:        func(c *Client) error { return c.ImportIntegration(t.Context(), bytes.NewReader([]byte("PK\x03\x04"))) },
			method:      http.MethodPost,
			path:        "/api/v1/integration-support/import",
			contentType: "application/zip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, server := newBackend(t, http.StatusNoContent, nil)

			require.NoError(t, tt.call(newTestClient(server)))

			req := b.only(t)
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.path, req.Path)
			assert.Equal(t, "Bearer token", req.Auth)

			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, req.ContentType)
			}

			if tt.body != "" {
				assert.JSONEq(t, tt.body, string(req.Body))
			}
		})
	}
}

func TestClient_Endpoints_Failure(t *testing.T) {
	_, server := newBackend(t, http.StatusNotFound, nil)
	client := newTestClient(server)

	calls := map[string]func() error{
		"SetAttributes":       func() error { return client.SetAttributes(t.Context(), "i1", map[string]any{}) },
		"DeleteIntegration":   func() error { return client.DeleteIntegration(t.Context(), "i1") },
		"DeployIntegration":   func() error { return client.DeployIntegration(t.Context(), "i1", 1, false) },
		"UndeployIntegration": func() error { return client.UndeployIntegration(t.Context(), "i1", 1) },
		"TagIntegration":      func() error { return client.TagIntegration(t.Context(), "i1", []string{"dev"}) },
		"ImportIntegration":   func() error { return client.ImportIntegration(t.Context(), bytes.NewReader(nil)) },
		"ReplaceDraft":        func() error { return client.ReplaceDraft(t.Context(), "i1", 1) },
	}

	for op, call := range calls {
		t.Run(op, func(t *testing.T) {
			err := call()
			require.Error(t, err)
			assert.True(t, IsNetworkError(err))
			assert.True(t, IsNotFound(err))
			assert.Equal(t, "Not Found", err.Error())
		})
	}
}

func TestClient_GetDeployment(t *testing.T) {
	b, server := newBackend(t, http.StatusOK, models.Deployment{
		IntegrationID: "i1",
		Version:       4,
		TargetState:   models.DeploymentStatePublished,
		Spec:          &models.Integration{Flows: []*models.Flow{{ID: "f1"}}},
	})

	deployment, err := newTestClient(server).GetDeployment(t.Context(), "i1", 4)
	require.NoError(t, err)

	assert.Equal(t, 4, deployment.Version)
	assert.Equal(t, models.DeploymentStatePublished, deployment.TargetState)
	assert.Equal(t, "/api/v1/integrations/i1/deployments/4", b.only(t).Path)
}

func TestClient_ReplaceDraft(t *testing.T) {
	var (
		mu    sync.Mutex
		patch []byte
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/integrations/i1/deployments/2":
			_ = json.NewEncoder(w).Encode(models.Deployment{
				Version: 2,
				Spec: &models.Integration{Flows: []*models.Flow{{
					ID:    "f1",
					Steps: []*models.Step{{StepKind: "log"}},
				}}},
			})
		case r.Method == http.MethodPatch && r.URL.Path == "/integrations/i1":
			mu.Lock()
			patch, _ = io.ReadAll(r.Body)
			mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer server.Close()

	err := New(server.URL).ReplaceDraft(t.Context(), "i1", 2)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()

	var attrs struct {
		Flows []*models.Flow `json:"flows"`
	}

	require.NoError(t, json.Unmarshal(patch, &attrs))
	require.Len(t, attrs.Flows, 1)
	assert.Equal(t, "f1", attrs.Flows[0].ID)
	assert.Equal(t, "log", attrs.Flows[0].Steps[0].StepKind)
}

func TestClient_ExportIntegrationToFile(t *testing.T) {
	archive := []byte("PK\x03\x04archive")
	b, server := newBackend(t, http.StatusOK, archive)

	target := filepath.Join(t.TempDir(), "orders-export.zip")

	err := newTestClient(server).ExportIntegrationToFile(t.Context(), "i1", target)
	require.NoError(t, err)

	written, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, archive, written)

	req := b.only(t)
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/api/v1/integration-support/export.zip", req.Path)
	assert.Equal(t, "id=i1", req.RawQuery)
}

func TestClient_ExportIntegrationToFile_FailureRemovesFile(t *testing.T) {
	_, server := newBackend(t, http.StatusForbidden, nil)

	target := filepath.Join(t.TempDir(), "orders-export.zip")

	err := newTestClient(server).ExportIntegrationToFile(t.Context(), "i1", target)
	assert.EqualError(t, err, "Forbidden")

	_, statErr := os.Stat(target)
	assert.True(t, os.IsNotExist(statErr))
}

func TestClient_GetActivityAndConnections(t *testing.T) {
	_, server := newBackend(t, http.StatusOK, []models.Activity{{ID: "x1", Failed: true}})

	activities, err := newTestClient(server).GetActivity(t.Context(), "i1")
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.True(t, activities[0].Failed)

	_, server = newBackend(t, http.StatusOK, []models.Connection{{ID: "conn1", Name: "Kafka"}})

	connections, err := newTestClient(server).ListConnections(t.Context())
	require.NoError(t, err)
	require.Len(t, connections, 1)
	assert.Equal(t, "Kafka", connections[0].Name)
}

func TestClient_TransportFailureIsNotNetworkError(t *testing.T) {
	_, server := newBackend(t, http.StatusOK, nil)
	client := newTestClient(server)
	server.Close()

	err := client.DeleteIntegration(t.Context(), "i1")
	require.Error(t, err)
	assert.False(t, IsNetworkError(err))
}

func TestClient_BaseURLTrimmed(t *testing.T) {
	assert.Equal(t, "http://localhost:8080/api/v1", New("http://localhost:8080/api/v1/").BaseURL())
}
