// Package models defines the integration document and the backend resources around it.
package models

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"
)

// StepKindEndpoint marks a step backed by a connection and an action.
const StepKindEndpoint = "endpoint"

var (
	ErrDuplicateFlowID = errors.New("duplicate flow id")
	ErrInvalidStepKind = errors.New("invalid step kind")
)

// Integration is the root of the document edited by the console: an ordered
// list of flows plus the set of connection ids used by its steps.
// An empty ID means the integration was never persisted.
type Integration struct {
	ID           string    `json:"id,omitempty"`
	Name         string    `json:"name,omitempty"`
	Description  string    `json:"description,omitempty"`
	Flows        []*Flow   `json:"flows"                  validate:"dive"`
	Tags         []string  `json:"tags"`
	Environments []string  `json:"environments,omitempty"`
	Version      int       `json:"version,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
	UpdatedAt    time.Time `json:"updatedAt,omitzero"`
}

// Flow is an ordered pipeline of steps. Position in Steps is the execution order.
type Flow struct {
	ID    string  `json:"id"             validate:"required"`
	Name  string  `json:"name,omitempty"`
	Steps []*Step `json:"steps"          validate:"dive"`
}

// Step is either a connection step (StepKind == StepKindEndpoint, with
// Connection and Action set) or a generic step defined by a StepKindTemplate.
type Step struct {
	ID                   string            `json:"id,omitempty"`
	StepKind             string            `json:"stepKind"                       validate:"required"`
	Name                 string            `json:"name,omitempty"`
	Connection           *Connection       `json:"connection,omitempty"           validate:"required_if=StepKind endpoint"`
	Action               *Action           `json:"action,omitempty"               validate:"required_if=StepKind endpoint"`
	ConfiguredProperties map[string]any    `json:"configuredProperties"`
	Metadata             map[string]string `json:"metadata,omitempty"`
}

// StepKindTemplate describes a generic (non connection) step type.
type StepKindTemplate struct {
	ID                   string                            `json:"id,omitempty"`
	StepKind             string                            `json:"stepKind"                       validate:"required,ne=endpoint"`
	Name                 string                            `json:"name,omitempty"`
	Description          string                            `json:"description,omitempty"`
	Properties           map[string]*ConfigurationProperty `json:"properties,omitempty"`
	ConfiguredProperties map[string]any                    `json:"configuredProperties,omitempty"`
	Metadata             map[string]string                 `json:"metadata,omitempty"`
}

// NewConnectionStep builds an endpoint step. The action is copied so that a
// descriptor can be attached without touching the caller's value.
func NewConnectionStep(connection *Connection, action *Action, descriptor *ActionDescriptor, props map[string]any) *Step {
	act := action.Clone()
	if descriptor != nil {
		act.Descriptor = descriptor
	}

	return &Step{
		StepKind:             StepKindEndpoint,
		Connection:           connection,
		Action:               act,
		ConfiguredProperties: maps.Clone(props),
	}
}

// IsConnection reports whether the step is backed by a connection.
func (s *Step) IsConnection() bool {
	return s.StepKind == StepKindEndpoint
}

// Validate checks the kind invariant in both directions.
func (s *Step) Validate() error {
	if s.StepKind == "" {
		return fmt.Errorf("%w: empty step kind", ErrInvalidStepKind)
	}

	if s.IsConnection() && (s.Connection == nil || s.Action == nil) {
		return fmt.Errorf("%w: endpoint step without connection or action", ErrInvalidStepKind)
	}

	if !s.IsConnection() && s.Connection != nil {
		return fmt.Errorf("%w: %s step carries a connection", ErrInvalidStepKind, s.StepKind)
	}

	return nil
}

// Clone returns a shallow copy of the step with its own property maps.
func (s *Step) Clone() *Step {
	if s == nil {
		return nil
	}

	c := *s
	c.ConfiguredProperties = maps.Clone(s.ConfiguredProperties)
	c.Metadata = maps.Clone(s.Metadata)

	return &c
}

// Clone returns a copy of the flow with a fresh step slice. Steps are shared.
func (f *Flow) Clone() *Flow {
	if f == nil {
		return nil
	}

	c := *f
	c.Steps = slices.Clone(f.Steps)

	return &c
}

// Clone returns a copy of the integration with fresh flow and tag slices.
// Flows themselves are shared; callers clone the flow they edit.
func (i *Integration) Clone() *Integration {
	if i == nil {
		return nil
	}

	c := *i
	c.Flows = slices.Clone(i.Flows)
	c.Tags = slices.Clone(i.Tags)
	c.Environments = slices.Clone(i.Environments)

	return &c
}

// FlowIndex returns the position of the flow with the given id, or -1.
func (i *Integration) FlowIndex(flowID string) int {
	return slices.IndexFunc(i.Flows, func(f *Flow) bool {
		return f != nil && f.ID == flowID
	})
}

// Flow returns the flow with the given id.
func (i *Integration) Flow(flowID string) (*Flow, bool) {
	idx := i.FlowIndex(flowID)
	if idx < 0 {
		return nil, false
	}

	return i.Flows[idx], true
}

// HasTag reports whether tag is in the integration's tag set.
func (i *Integration) HasTag(tag string) bool {
	return slices.Contains(i.Tags, tag)
}

// Validate checks the document invariants that struct tags cannot express.
func (i *Integration) Validate() error {
	seen := make(map[string]struct{}, len(i.Flows))

	for _, flow := range i.Flows {
		if flow == nil {
			continue
		}

		if _, dup := seen[flow.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateFlowID, flow.ID)
		}

		seen[flow.ID] = struct{}{}

		for pos, step := range flow.Steps {
			if step == nil {
				return fmt.Errorf("%w: flow %s has an empty slot at %d", ErrInvalidStepKind, flow.ID, pos)
			}

			if err := step.Validate(); err != nil {
				return fmt.Errorf("flow %s step %d: %w", flow.ID, pos, err)
			}
		}
	}

	return nil
}

// AddTag returns tags with tag appended unless it is already present.
func AddTag(tags []string, tag string) []string {
	if tag == "" || slices.Contains(tags, tag) {
		return slices.Clone(tags)
	}

	out := make([]string, 0, len(tags)+1)
	out = append(out, tags...)

	return append(out, tag)
}

// UniqueStrings deduplicates values keeping first occurrences in order.
func UniqueStrings(values []string) []string {
	out := make([]string, 0, len(values))

	for _, v := range values {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}

	return out
}
