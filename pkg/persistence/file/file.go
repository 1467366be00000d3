// Package file provides file-based persistence for integrations.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/dukex/conduit/pkg/models"
	"github.com/dukex/conduit/pkg/persistence"
)

const (
	integrationsDir = "integrations"
	deploymentsDir  = "deployments"
	activitiesDir   = "activities"
)

// Persistence implements persistence.Persistence as JSON files under a root
// directory.
type Persistence struct {
	root string
	mu   sync.RWMutex
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	return &Persistence{root: strings.Replace(root, "file://", "", 1)}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Integrations returns every stored integration ordered by creation time.
func (p *Persistence) Integrations(_ context.Context) ([]*models.Integration, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	integrations, err := readAll[models.Integration](filepath.Join(p.root, integrationsDir))
	if err != nil {
		return nil, fmt.Errorf("failed to list integrations: %w", err)
	}

	sort.SliceStable(integrations, func(i, j int) bool {
		return integrations[i].CreatedAt.Before(integrations[j].CreatedAt)
	})

	return integrations, nil
}

// IntegrationByID retrieves an integration by its ID from the file system.
func (p *Persistence) IntegrationByID(_ context.Context, id string) (*models.Integration, error) {
	if err := persistence.ValidateID(id); err != nil {
		return nil, persistence.NewIntegrationError("IntegrationByID", id, err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	var integration models.Integration

	found, err := readJSON(filepath.Join(p.root, integrationsDir, id+".json"), &integration)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch integration %s: %w", id, err)
	}

	if !found {
		return nil, nil
	}

	return &integration, nil
}

// SaveIntegration writes an integration to the file system.
func (p *Persistence) SaveIntegration(_ context.Context, integration *models.Integration) error {
	if err := persistence.ValidateID(integration.ID); err != nil {
		return persistence.NewIntegrationError("SaveIntegration", integration.ID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return writeJSON(filepath.Join(p.root, integrationsDir), integration.ID+".json", integration)
}

// DeleteIntegration removes an integration with its deployments and activity.
func (p *Persistence) DeleteIntegration(_ context.Context, id string) error {
	if err := persistence.ValidateID(id); err != nil {
		return persistence.NewIntegrationError("DeleteIntegration", id, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err := os.Remove(filepath.Join(p.root, integrationsDir, id+".json"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete integration %s: %w", id, err)
	}

	for _, dir := range []string{deploymentsDir, activitiesDir} {
		if err := os.RemoveAll(filepath.Join(p.root, dir, id)); err != nil {
			return fmt.Errorf("failed to delete %s of integration %s: %w", dir, id, err)
		}
	}

	return nil
}

// Deployments returns the deployments of an integration ordered by version.
func (p *Persistence) Deployments(_ context.Context, integrationID string) ([]*models.Deployment, error) {
	if err := persistence.ValidateID(integrationID); err != nil {
		return nil, persistence.NewIntegrationError("Deployments", integrationID, err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	deployments, err := readAll[models.Deployment](filepath.Join(p.root, deploymentsDir, integrationID))
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments of integration %s: %w", integrationID, err)
	}

	sort.Slice(deployments, func(i, j int) bool {
		return deployments[i].Version < deployments[j].Version
	})

	return deployments, nil
}

// DeploymentByVersion retrieves a single deployment.
func (p *Persistence) DeploymentByVersion(_ context.Context, integrationID string, version int) (*models.Deployment, error) {
	if err := persistence.ValidateID(integrationID); err != nil {
		return nil, persistence.NewDeploymentError("DeploymentByVersion", integrationID, version, err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	var deployment models.Deployment

	found, err := readJSON(filepath.Join(p.root, deploymentsDir, integrationID, fmt.Sprintf("%d.json", version)), &deployment)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch deployment %d of integration %s: %w", version, integrationID, err)
	}

	if !found {
		return nil, nil
	}

	return &deployment, nil
}

// SaveDeployment writes a deployment, replacing any deployment with the same version.
func (p *Persistence) SaveDeployment(_ context.Context, deployment *models.Deployment) error {
	if err := persistence.ValidateID(deployment.IntegrationID); err != nil {
		return persistence.NewDeploymentError("SaveDeployment", deployment.IntegrationID, deployment.Version, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return writeJSON(
		filepath.Join(p.root, deploymentsDir, deployment.IntegrationID),
		fmt.Sprintf("%d.json", deployment.Version),
		deployment,
	)
}

// Activities returns the recorded exchanges of an integration, newest first.
func (p *Persistence) Activities(_ context.Context, integrationID string) ([]*models.Activity, error) {
	if err := persistence.ValidateID(integrationID); err != nil {
		return nil, persistence.NewIntegrationError("Activities", integrationID, err)
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	activities, err := readAll[models.Activity](filepath.Join(p.root, activitiesDir, integrationID))
	if err != nil {
		return nil, fmt.Errorf("failed to list activity of integration %s: %w", integrationID, err)
	}

	sort.SliceStable(activities, func(i, j int) bool {
		return activities[i].At > activities[j].At
	})

	return activities, nil
}

// SaveActivity records an exchange of an integration.
func (p *Persistence) SaveActivity(_ context.Context, integrationID string, activity *models.Activity) error {
	if err := persistence.ValidateID(integrationID); err != nil {
		return persistence.NewIntegrationError("SaveActivity", integrationID, err)
	}

	if err := persistence.ValidateID(activity.ID); err != nil {
		return persistence.NewIntegrationError("SaveActivity", integrationID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	return writeJSON(filepath.Join(p.root, activitiesDir, integrationID), activity.ID+".json", activity)
}

func readJSON(filePath string, v any) (bool, error) {
	body, err := os.ReadFile(filepath.Clean(filePath))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, err
	}

	if err := json.Unmarshal(body, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", filepath.Base(filePath), err)
	}

	return true, nil
}

func readAll[T any](dir string) ([]*T, error) {
	files, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, err
	}

	items := make([]*T, 0, len(files))

	for _, file := range files {
		var item T

		found, err := readJSON(filepath.Join(dir, file), &item)
		if err != nil {
			return nil, err
		}

		if found {
			items = append(items, &item)
		}
	}

	return items, nil
}

func writeJSON(dir, name string, v any) error {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	return os.WriteFile(filepath.Join(dir, name), data, 0600)
}

var _ persistence.Persistence = (*Persistence)(nil)
