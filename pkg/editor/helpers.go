package editor

import (
	"context"
	"fmt"

	"github.com/dukex/conduit/pkg/models"
)

// DescriptorFetcher resolves action descriptors. It returns nil, nil when no
// configured properties are given.
type DescriptorFetcher interface {
	GetActionDescriptor(
		ctx context.Context,
		connectionID, actionID string,
		configuredProperties map[string]any,
	) (*models.ActionDescriptor, error)
}

// Helpers resolves descriptors first and then applies the pure edit, so a
// failed fetch never produces a document.
type Helpers struct {
	fetcher DescriptorFetcher
}

// NewHelpers creates helpers backed by the given descriptor fetcher.
func NewHelpers(fetcher DescriptorFetcher) *Helpers {
	return &Helpers{fetcher: fetcher}
}

// AddConnection inserts a connection step. See InsertConnectionStep.
func (h *Helpers) AddConnection(
	ctx context.Context,
	doc *models.Integration,
	connection *models.Connection,
	action *models.Action,
	flowID string,
	position int,
	configuredProperties map[string]any,
) (*models.Integration, error) {
	descriptor, err := h.descriptor(ctx, connection, action, configuredProperties)
	if err != nil {
		return nil, err
	}

	return InsertConnectionStep(doc, connection, action, descriptor, flowID, position, configuredProperties)
}

// AddStep inserts a generic step. No network call is made.
func (h *Helpers) AddStep(
	_ context.Context,
	doc *models.Integration,
	template *models.StepKindTemplate,
	flowID string,
	position int,
	configuredProperties map[string]any,
) (*models.Integration, error) {
	return InsertGenericStep(doc, template, flowID, position, configuredProperties)
}

// UpdateConnection replaces a connection step. See ReplaceConnectionStep.
func (h *Helpers) UpdateConnection(
	ctx context.Context,
	doc *models.Integration,
	connection *models.Connection,
	action *models.Action,
	flowID string,
	position int,
	configuredProperties map[string]any,
) (*models.Integration, error) {
	descriptor, err := h.descriptor(ctx, connection, action, configuredProperties)
	if err != nil {
		return nil, err
	}

	return ReplaceConnectionStep(doc, connection, action, descriptor, flowID, position, configuredProperties)
}

// UpdateStep replaces a generic step. No network call is made.
func (h *Helpers) UpdateStep(
	_ context.Context,
	doc *models.Integration,
	template *models.StepKindTemplate,
	flowID string,
	position int,
	configuredProperties map[string]any,
) (*models.Integration, error) {
	return ReplaceGenericStep(doc, template, flowID, position, configuredProperties)
}

// UpdateOrAddConnection replaces the step at position or appends a new one.
// See UpsertConnectionStep.
func (h *Helpers) UpdateOrAddConnection(
	ctx context.Context,
	doc *models.Integration,
	connection *models.Connection,
	action *models.Action,
	flowID string,
	position int,
	configuredProperties map[string]any,
) (*models.Integration, error) {
	descriptor, err := h.descriptor(ctx, connection, action, configuredProperties)
	if err != nil {
		return nil, err
	}

	return UpsertConnectionStep(doc, connection, action, descriptor, flowID, position, configuredProperties)
}

func (h *Helpers) descriptor(
	ctx context.Context,
	connection *models.Connection,
	action *models.Action,
	configuredProperties map[string]any,
) (*models.ActionDescriptor, error) {
	// an invalid connection or action is reported by the edit itself
	if checkConnection(connection, action) != nil || len(configuredProperties) == 0 {
		return nil, nil
	}

	if h.fetcher == nil {
		return nil, ErrNoFetcher
	}

	descriptor, err := h.fetcher.GetActionDescriptor(ctx, connection.ID, action.ID, configuredProperties)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve descriptor for %s/%s: %w", connection.ID, action.ID, err)
	}

	return descriptor, nil
}
