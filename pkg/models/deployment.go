package models

import "time"

// DeploymentState is the published/unpublished lifecycle of a deployment.
type DeploymentState string

const (
	DeploymentStatePublished   DeploymentState = "Published"
	DeploymentStateUnpublished DeploymentState = "Unpublished"
	DeploymentStatePending     DeploymentState = "Pending"
	DeploymentStateError       DeploymentState = "Error"
)

// Valid reports whether s is a state a client may request.
func (s DeploymentState) Valid() bool {
	return s == DeploymentStatePublished || s == DeploymentStateUnpublished
}

// Deployment is a versioned snapshot of an integration with its own
// published/unpublished state.
type Deployment struct {
	ID            string          `json:"id"`
	IntegrationID string          `json:"integrationId"`
	Version       int             `json:"version"`
	TargetState   DeploymentState `json:"targetState"`
	CurrentState  DeploymentState `json:"currentState"`
	Spec          *Integration    `json:"spec"`
	CreatedAt     time.Time       `json:"createdAt,omitzero"`
	UpdatedAt     time.Time       `json:"updatedAt,omitzero"`
}

// TargetStateRequest is the body of a deployment target state change.
type TargetStateRequest struct {
	TargetState DeploymentState `json:"targetState" validate:"required,oneof=Published Unpublished"`
}
