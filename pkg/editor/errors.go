// Package editor provides copy-on-write edits over integration documents.
package editor

import (
	"errors"
	"fmt"
)

var (
	// ErrFlowNotFound indicates that no flow in the document has the requested id.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrPositionOutOfRange indicates a replace targeted a slot that holds no step.
	ErrPositionOutOfRange = errors.New("step position out of range")

	// ErrInvalidStep indicates the connection, action or template given to an edit is unusable.
	ErrInvalidStep = errors.New("invalid step")

	// ErrNoFetcher indicates helpers were asked to resolve a descriptor without a fetcher.
	ErrNoFetcher = errors.New("no descriptor fetcher configured")
)

// EditError wraps editor errors with the edit that produced them.
type EditError struct {
	Op       string // Edit being performed (e.g., "InsertConnectionStep")
	FlowID   string
	Position int
	Err      error
}

func (e *EditError) Error() string {
	return fmt.Sprintf("%s on flow %q at position %d: %v", e.Op, e.FlowID, e.Position, e.Err)
}

func (e *EditError) Unwrap() error {
	return e.Err
}

func (e *EditError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func newEditError(op, flowID string, position int, err error) *EditError {
	return &EditError{Op: op, FlowID: flowID, Position: position, Err: err}
}

// IsFlowNotFound checks if an error indicates the flow id matched nothing.
func IsFlowNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound)
}

// IsPositionOutOfRange checks if an error indicates an invalid replace position.
func IsPositionOutOfRange(err error) bool {
	return errors.Is(err, ErrPositionOutOfRange)
}
