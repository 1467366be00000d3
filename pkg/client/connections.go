package client

import (
	"context"
	"net/http"

	"github.com/dukex/conduit/pkg/models"
	"github.com/dukex/conduit/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

// GetActionDescriptor fetches the descriptor of an action given the properties
// configured so far. With no configured properties it returns nil without
// calling the backend.
func (c *Client) GetActionDescriptor(
	ctx context.Context,
	connectionID, actionID string,
	configuredProperties map[string]any,
) (*models.ActionDescriptor, error) {
	if len(configuredProperties) == 0 {
		return nil, nil
	}

	var descriptor models.ActionDescriptor

	err := c.call(ctx, request{
		op:     "GetActionDescriptor",
		method: http.MethodPost,
		path:   "/connections/" + escape(connectionID) + "/actions/" + escape(actionID),
		attrs: []attribute.KeyValue{
			attribute.String(otelhelper.ConnectionIDKey, connectionID),
			attribute.String(otelhelper.ActionIDKey, actionID),
		},
	}, configuredProperties, &descriptor)
	if err != nil {
		return nil, err
	}

	return &descriptor, nil
}

// ListConnections fetches the configured connections.
func (c *Client) ListConnections(ctx context.Context) ([]*models.Connection, error) {
	var connections []*models.Connection

	err := c.call(ctx, request{
		op:     "ListConnections",
		method: http.MethodGet,
		path:   "/connections",
	}, nil, &connections)
	if err != nil {
		return nil, err
	}

	return connections, nil
}
