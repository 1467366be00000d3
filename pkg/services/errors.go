// Package services holds the sandbox backend's business logic.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/conduit/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest     = errors.New("invalid request")
	ErrInvalidTargetState = errors.New("invalid target state")
	ErrInvalidArchive     = errors.New("invalid integration archive")
	ErrInvalidProperties  = errors.New("invalid configured properties")

	// Not Found Errors (404 Not Found).
	ErrIntegrationNotFound = persistence.ErrIntegrationNotFound
	ErrDeploymentNotFound  = persistence.ErrDeploymentNotFound
	ErrConnectionNotFound  = errors.New("connection not found")
	ErrActionNotFound      = errors.New("action not found")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidTargetState) ||
		errors.Is(err, ErrInvalidArchive) ||
		errors.Is(err, ErrInvalidProperties) ||
		persistence.IsInvalidIdentifier(err)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrIntegrationNotFound) ||
		errors.Is(err, ErrDeploymentNotFound) ||
		errors.Is(err, ErrConnectionNotFound) ||
		errors.Is(err, ErrActionNotFound)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ErrorCode returns the API error code carried by err, if any.
func ErrorCode(err error) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Code
	}

	return ""
}
