package client

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dukex/conduit/pkg/models"
	"github.com/dukex/conduit/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

func deploymentPath(id string, version int) string {
	return "/integrations/" + escape(id) + "/deployments/" + strconv.Itoa(version)
}

func deploymentAttrs(id string, version int) []attribute.KeyValue {
	return []attribute.KeyValue{
		integrationAttr(id),
		attribute.Int(otelhelper.DeploymentKey, version),
	}
}

// GetDeployment fetches the deployment of the integration at version.
func (c *Client) GetDeployment(ctx context.Context, id string, version int) (*models.Deployment, error) {
	var deployment models.Deployment

	err := c.call(ctx, request{
		op:     "GetDeployment",
		method: http.MethodGet,
		path:   deploymentPath(id, version),
		attrs:  deploymentAttrs(id, version),
	}, nil, &deployment)
	if err != nil {
		return nil, err
	}

	return &deployment, nil
}

// DeployIntegration publishes the integration. With asDeployment it
// republishes the existing deployment at version; otherwise it asks the
// backend to deploy the current draft as a new deployment.
func (c *Client) DeployIntegration(ctx context.Context, id string, version int, asDeployment bool) error {
	if asDeployment {
		return c.setTargetState(ctx, "DeployIntegration", id, version, models.DeploymentStatePublished)
	}

	return c.call(ctx, request{
		op:     "DeployIntegration",
		method: http.MethodPut,
		path:   "/integrations/" + escape(id) + "/deployments",
		attrs:  []attribute.KeyValue{integrationAttr(id)},
	}, struct{}{}, nil)
}

// UndeployIntegration requests that the deployment at version be deactivated.
func (c *Client) UndeployIntegration(ctx context.Context, id string, version int) error {
	return c.setTargetState(ctx, "UndeployIntegration", id, version, models.DeploymentStateUnpublished)
}

func (c *Client) setTargetState(ctx context.Context, op, id string, version int, state models.DeploymentState) error {
	return c.call(ctx, request{
		op:     op,
		method: http.MethodPost,
		path:   deploymentPath(id, version) + "/targetState",
		attrs:  deploymentAttrs(id, version),
	}, models.TargetStateRequest{TargetState: state}, nil)
}
