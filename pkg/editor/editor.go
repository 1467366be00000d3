package editor

import (
	"maps"
	"slices"

	"github.com/dukex/conduit/pkg/models"
	"github.com/google/uuid"
)

// newStepID generates identifiers for freshly scaffolded steps.
var newStepID = uuid.NewString

// All edits below are pure: the input document is never modified. On success
// the returned document shares every flow except the edited one, which is a
// fresh copy along with its step slice and the tag slice. On failure the input
// document is returned unchanged together with an *EditError.

// InsertConnectionStep inserts an endpoint step at position in the flow,
// shifting later steps right, and adds the connection id to the tag set.
// Positions outside the step list are clamped to its bounds.
func InsertConnectionStep(
	doc *models.Integration,
	connection *models.Connection,
	action *models.Action,
	descriptor *models.ActionDescriptor,
	flowID string,
	position int,
	configuredProperties map[string]any,
) (*models.Integration, error) {
	const op = "InsertConnectionStep"

	if err := checkConnection(connection, action); err != nil {
		return doc, newEditError(op, flowID, position, err)
	}

	step := models.NewConnectionStep(connection, action, descriptor, configuredProperties)

	next, err := editFlow(doc, op, flowID, position, func(steps []*models.Step) ([]*models.Step, error) {
		return insertAt(steps, position, step), nil
	})
	if err != nil {
		return doc, err
	}

	next.Tags = models.AddTag(next.Tags, connection.ID)

	return next, nil
}

// InsertGenericStep inserts a step built from a step kind template. The step
// starts from fresh scaffolding (a generated id), is overlaid with the
// template's fields and then with the configured properties. Tags are untouched.
func InsertGenericStep(
	doc *models.Integration,
	template *models.StepKindTemplate,
	flowID string,
	position int,
	configuredProperties map[string]any,
) (*models.Integration, error) {
	const op = "InsertGenericStep"

	if err := checkTemplate(template); err != nil {
		return doc, newEditError(op, flowID, position, err)
	}

	step := overlayTemplate(&models.Step{ID: newStepID()}, template, configuredProperties)

	return editFlow(doc, op, flowID, position, func(steps []*models.Step) ([]*models.Step, error) {
		return insertAt(steps, position, step), nil
	})
}

// ReplaceConnectionStep overwrites the step at position with an endpoint step.
// Tags are untouched. A position with no step yields ErrPositionOutOfRange.
func ReplaceConnectionStep(
	doc *models.Integration,
	connection *models.Connection,
	action *models.Action,
	descriptor *models.ActionDescriptor,
	flowID string,
	position int,
	configuredProperties map[string]any,
) (*models.Integration, error) {
	const op = "ReplaceConnectionStep"

	if err := checkConnection(connection, action); err != nil {
		return doc, newEditError(op, flowID, position, err)
	}

	step := models.NewConnectionStep(connection, action, descriptor, configuredProperties)

	return editFlow(doc, op, flowID, position, func(steps []*models.Step) ([]*models.Step, error) {
		return replaceAt(steps, position, step)
	})
}

// ReplaceGenericStep overwrites the step at position with the template
// overlaid by the configured properties. No scaffolding is generated.
func ReplaceGenericStep(
	doc *models.Integration,
	template *models.StepKindTemplate,
	flowID string,
	position int,
	configuredProperties map[string]any,
) (*models.Integration, error) {
	const op = "ReplaceGenericStep"

	if err := checkTemplate(template); err != nil {
		return doc, newEditError(op, flowID, position, err)
	}

	step := overlayTemplate(&models.Step{}, template, configuredProperties)

	return editFlow(doc, op, flowID, position, func(steps []*models.Step) ([]*models.Step, error) {
		return replaceAt(steps, position, step)
	})
}

// UpsertConnectionStep replaces the step at position when one exists there,
// leaving tags alone, and otherwise inserts (appends) the step and tags the
// document with the connection id.
func UpsertConnectionStep(
	doc *models.Integration,
	connection *models.Connection,
	action *models.Action,
	descriptor *models.ActionDescriptor,
	flowID string,
	position int,
	configuredProperties map[string]any,
) (*models.Integration, error) {
	const op = "UpsertConnectionStep"

	if err := checkConnection(connection, action); err != nil {
		return doc, newEditError(op, flowID, position, err)
	}

	step := models.NewConnectionStep(connection, action, descriptor, configuredProperties)
	inserted := false

	next, err := editFlow(doc, op, flowID, position, func(steps []*models.Step) ([]*models.Step, error) {
		if position >= 0 && position < len(steps) {
			return replaceAt(steps, position, step)
		}

		inserted = true

		return insertAt(steps, position, step), nil
	})
	if err != nil {
		return doc, err
	}

	if inserted {
		next.Tags = models.AddTag(next.Tags, connection.ID)
	}

	return next, nil
}

// editFlow copies the path from the root to the flow with flowID and applies
// fn to a private copy of its step slice.
func editFlow(
	doc *models.Integration,
	op, flowID string,
	position int,
	fn func(steps []*models.Step) ([]*models.Step, error),
) (*models.Integration, error) {
	if doc == nil {
		return doc, newEditError(op, flowID, position, ErrFlowNotFound)
	}

	idx := doc.FlowIndex(flowID)
	if idx < 0 {
		return doc, newEditError(op, flowID, position, ErrFlowNotFound)
	}

	flow := doc.Flows[idx].Clone()

	steps, err := fn(flow.Steps)
	if err != nil {
		return doc, newEditError(op, flowID, position, err)
	}

	flow.Steps = steps

	next := doc.Clone()
	next.Flows[idx] = flow

	return next, nil
}

// insertAt expects steps to be a private copy.
func insertAt(steps []*models.Step, position int, step *models.Step) []*models.Step {
	position = max(0, min(position, len(steps)))

	return slices.Insert(steps, position, step)
}

// replaceAt expects steps to be a private copy.
func replaceAt(steps []*models.Step, position int, step *models.Step) ([]*models.Step, error) {
	if position < 0 || position >= len(steps) {
		return nil, ErrPositionOutOfRange
	}

	steps[position] = step

	return steps, nil
}

func overlayTemplate(step *models.Step, template *models.StepKindTemplate, configuredProperties map[string]any) *models.Step {
	if template.ID != "" {
		step.ID = template.ID
	}

	step.StepKind = template.StepKind
	step.Name = template.Name
	step.Metadata = maps.Clone(template.Metadata)
	step.ConfiguredProperties = maps.Clone(template.ConfiguredProperties)

	if configuredProperties != nil {
		step.ConfiguredProperties = maps.Clone(configuredProperties)
	}

	return step
}

func checkConnection(connection *models.Connection, action *models.Action) error {
	if connection == nil || connection.ID == "" {
		return ErrInvalidStep
	}

	if action == nil || action.ID == "" {
		return ErrInvalidStep
	}

	return nil
}

func checkTemplate(template *models.StepKindTemplate) error {
	if template == nil || template.StepKind == "" || template.StepKind == models.StepKindEndpoint {
		return ErrInvalidStep
	}

	return nil
}
