package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/dukex/conduit/pkg/models"
	"github.com/dukex/conduit/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

func integrationAttr(id string) attribute.KeyValue {
	return attribute.String(otelhelper.IntegrationIDKey, id)
}

// GetIntegration fetches an integration document.
func (c *Client) GetIntegration(ctx context.Context, id string) (*models.Integration, error) {
	var integration models.Integration

	err := c.call(ctx, request{
		op:     "GetIntegration",
		method: http.MethodGet,
		path:   "/integrations/" + escape(id),
		attrs:  []attribute.KeyValue{integrationAttr(id)},
	}, nil, &integration)
	if err != nil {
		return nil, err
	}

	return &integration, nil
}

// SaveIntegration creates the integration when it has no id and returns the
// backend's copy (with the generated id). Otherwise it updates the
// integration and returns the input unchanged: the update response is not
// used, so server-computed fields are not refreshed.
func (c *Client) SaveIntegration(ctx context.Context, integration *models.Integration) (*models.Integration, error) {
	if integration.ID == "" {
		var created models.Integration

		err := c.call(ctx, request{
			op:     "SaveIntegration",
			method: http.MethodPost,
			path:   "/integrations",
		}, integration, &created)
		if err != nil {
			return nil, err
		}

		return &created, nil
	}

	err := c.call(ctx, request{
		op:     "SaveIntegration",
		method: http.MethodPut,
		path:   "/integrations/" + escape(integration.ID),
		attrs:  []attribute.KeyValue{integrationAttr(integration.ID)},
	}, integration, nil)
	if err != nil {
		return nil, err
	}

	return integration, nil
}

// SetAttributes patches the integration with the supplied attributes.
func (c *Client) SetAttributes(ctx context.Context, id string, attributes map[string]any) error {
	return c.call(ctx, request{
		op:     "SetAttributes",
		method: http.MethodPatch,
		path:   "/integrations/" + escape(id),
		attrs:  []attribute.KeyValue{integrationAttr(id)},
	}, attributes, nil)
}

// ReplaceDraft reverts the integration's flows to those of the deployment at version.
func (c *Client) ReplaceDraft(ctx context.Context, id string, version int) error {
	deployment, err := c.GetDeployment(ctx, id, version)
	if err != nil {
		return err
	}

	var flows []*models.Flow
	if deployment.Spec != nil {
		flows = deployment.Spec.Flows
	}

	return c.SetAttributes(ctx, id, map[string]any{"flows": flows})
}

// DeleteIntegration deletes the integration.
func (c *Client) DeleteIntegration(ctx context.Context, id string) error {
	return c.call(ctx, request{
		op:     "DeleteIntegration",
		method: http.MethodDelete,
		path:   "/integrations/" + escape(id),
		attrs:  []attribute.KeyValue{integrationAttr(id)},
	}, nil, nil)
}

// ImportIntegration uploads a zip archive to be imported as new integrations.
func (c *Client) ImportIntegration(ctx context.Context, archive io.Reader) error {
	resp, err := c.do(ctx, request{
		op:          "ImportIntegration",
		method:      http.MethodPost,
		path:        "/integration-support/import",
		body:        archive,
		contentType: contentTypeZip,
	})
	if err != nil {
		return err
	}

	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.Body.Close()
}

// ImportIntegrationFile imports the zip archive at path.
func (c *Client) ImportIntegrationFile(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}

	defer func() { _ = file.Close() }()

	return c.ImportIntegration(ctx, file)
}

// ExportIntegration streams the integration's zip archive into w.
func (c *Client) ExportIntegration(ctx context.Context, id string, w io.Writer) (int64, error) {
	resp, err := c.do(ctx, request{
		op:     "ExportIntegration",
		method: http.MethodGet,
		path:   "/integration-support/export.zip",
		query:  url.Values{"id": []string{id}},
		attrs:  []attribute.KeyValue{integrationAttr(id)},
	})
	if err != nil {
		return 0, err
	}

	defer func() { _ = resp.Body.Close() }()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to read export archive: %w", err)
	}

	return n, nil
}

// ExportIntegrationToFile saves the integration's zip archive as fileName.
// A partially written file is removed on failure.
func (c *Client) ExportIntegrationToFile(ctx context.Context, id, fileName string) error {
	file, err := os.Create(fileName)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", fileName, err)
	}

	_, err = c.ExportIntegration(ctx, id, file)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		_ = os.Remove(fileName)

		return err
	}

	return nil
}

// TagIntegration tags the integration with the given CI/CD environments.
func (c *Client) TagIntegration(ctx context.Context, id string, environments []string) error {
	if environments == nil {
		environments = []string{}
	}

	return c.call(ctx, request{
		op:     "TagIntegration",
		method: http.MethodPut,
		path:   "/public/integrations/" + escape(id) + "/tags",
		attrs:  []attribute.KeyValue{integrationAttr(id)},
	}, environments, nil)
}

// GetActivity fetches the recent exchanges processed by the integration.
func (c *Client) GetActivity(ctx context.Context, id string) ([]*models.Activity, error) {
	var activities []*models.Activity

	err := c.call(ctx, request{
		op:     "GetActivity",
		method: http.MethodGet,
		path:   "/activity/integrations/" + escape(id),
		attrs:  []attribute.KeyValue{integrationAttr(id)},
	}, nil, &activities)
	if err != nil {
		return nil, err
	}

	return activities, nil
}
