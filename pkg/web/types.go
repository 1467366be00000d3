// Package web provides the sandbox REST API over integrations, deployments,
// connections and activity.
package web

import "github.com/dukex/conduit/pkg/models"

// DeploymentParams identifies a deployment in the request path.
type DeploymentParams struct {
	ID      string `validate:"required"`
	Version int    `validate:"min=1"`
}

// ActionParams identifies a connection action in the request path.
type ActionParams struct {
	ConnectionID string `validate:"required"`
	ActionID     string `validate:"required"`
}

// ExportRequest holds the query of an export.
type ExportRequest struct {
	ID string `query:"id" validate:"required"`
}

// TagsRequest is the list of environments an integration is tagged for.
type TagsRequest struct {
	Environments []string `validate:"dive,max=63"`
}

// ImportResponse lists the integrations stored by an import.
type ImportResponse struct {
	Integrations []*models.Integration `json:"integrations"`
}
