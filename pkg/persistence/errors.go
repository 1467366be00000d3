package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence errors shared by every backend.
var (
	// ErrIntegrationNotFound indicates no integration exists for the identifier.
	ErrIntegrationNotFound = errors.New("integration not found")

	// ErrDeploymentNotFound indicates no deployment exists for the integration and version.
	ErrDeploymentNotFound = errors.New("deployment not found")

	// ErrInvalidIdentifier indicates an identifier that cannot be used as a storage key.
	ErrInvalidIdentifier = errors.New("invalid identifier")
)

// IntegrationError wraps integration-related errors with additional context.
type IntegrationError struct {
	Op            string // Operation being performed (e.g., "Save", "Delete")
	IntegrationID string
	Err           error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("%s operation failed for integration %s: %v", e.Op, e.IntegrationID, e.Err)
}

func (e *IntegrationError) Unwrap() error {
	return e.Err
}

func (e *IntegrationError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewIntegrationError creates a new integration error with context.
func NewIntegrationError(op, integrationID string, err error) *IntegrationError {
	return &IntegrationError{
		Op:            op,
		IntegrationID: integrationID,
		Err:           err,
	}
}

// DeploymentError wraps deployment-related errors with additional context.
type DeploymentError struct {
	Op            string
	IntegrationID string
	Version       int
	Err           error
}

func (e *DeploymentError) Error() string {
	return fmt.Sprintf("%s operation failed for deployment %d of integration %s: %v", e.Op, e.Version, e.IntegrationID, e.Err)
}

func (e *DeploymentError) Unwrap() error {
	return e.Err
}

func (e *DeploymentError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDeploymentError creates a new deployment error with context.
func NewDeploymentError(op, integrationID string, version int, err error) *DeploymentError {
	return &DeploymentError{
		Op:            op,
		IntegrationID: integrationID,
		Version:       version,
		Err:           err,
	}
}

// IsIntegrationNotFound checks if an error indicates an integration was not found.
func IsIntegrationNotFound(err error) bool {
	return errors.Is(err, ErrIntegrationNotFound)
}

// IsDeploymentNotFound checks if an error indicates a deployment was not found.
func IsDeploymentNotFound(err error) bool {
	return errors.Is(err, ErrDeploymentNotFound)
}

// IsInvalidIdentifier checks if an error indicates an unusable identifier.
func IsInvalidIdentifier(err error) bool {
	return errors.Is(err, ErrInvalidIdentifier)
}
