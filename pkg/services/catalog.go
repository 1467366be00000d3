package services

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/dukex/conduit/pkg/forms"
	"github.com/dukex/conduit/pkg/models"
	"gopkg.in/yaml.v3"
)

// Catalog serves the connections known to the sandbox and the descriptors of
// their actions.
type Catalog struct {
	connections []*models.Connection
}

type catalogFile struct {
	Connections []any `yaml:"connections"`
}

// NewCatalog creates a catalog over the given connections.
func NewCatalog(connections []*models.Connection) *Catalog {
	if connections == nil {
		connections = []*models.Connection{}
	}

	return &Catalog{connections: connections}
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog document of the form
//
//	connections:
//	  - id: sql-db
//	    actions:
//	      - id: sql-start
//	        descriptor: {...}
//
// Field names follow the JSON wire format.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	// Models only carry json tags, so the YAML tree is re-encoded as JSON.
	raw, err := json.Marshal(file.Connections)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	var connections []*models.Connection
	if err := json.Unmarshal(raw, &connections); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	for i, connection := range connections {
		if connection == nil || connection.ID == "" {
			return nil, fmt.Errorf("failed to parse catalog: connection %d has no id", i)
		}
	}

	return NewCatalog(connections), nil
}

// Connections returns every connection of the catalog.
func (c *Catalog) Connections() []*models.Connection {
	return c.connections
}

// Connection returns a connection by id.
func (c *Catalog) Connection(id string) (*models.Connection, error) {
	for _, connection := range c.connections {
		if connection.ID == id {
			return connection, nil
		}
	}

	return nil, fmt.Errorf("connection %s: %w", id, ErrConnectionNotFound)
}

// Descriptor returns the descriptor of an action with its property values
// filled from props. Values that do not fit their property type are rejected;
// missing required values are not, as configuration may be partial.
func (c *Catalog) Descriptor(connectionID, actionID string, props map[string]any) (*models.ActionDescriptor, error) {
	connection, err := c.Connection(connectionID)
	if err != nil {
		return nil, err
	}

	action, ok := connection.Action(actionID)
	if !ok {
		return nil, fmt.Errorf("action %s of connection %s: %w", actionID, connectionID, ErrActionNotFound)
	}

	descriptor := action.Descriptor.Clone()
	if descriptor == nil {
		descriptor = &models.ActionDescriptor{}
	}

	for _, step := range descriptor.PropertyDefinitionSteps {
		if err := checkValues(step.Properties, props); err != nil {
			return nil, err
		}

		for key, property := range step.Properties {
			if value, ok := props[key]; ok && value != nil {
				property.Value = fmt.Sprint(value)
			}
		}
	}

	configured := maps.Clone(descriptor.ConfiguredProperties)
	if configured == nil {
		configured = make(map[string]any, len(props))
	}

	maps.Copy(configured, props)
	descriptor.ConfiguredProperties = configured

	return descriptor, nil
}

func checkValues(properties map[string]*models.ConfigurationProperty, props map[string]any) error {
	optional := make(map[string]*models.ConfigurationProperty, len(properties))

	for key, property := range properties {
		p := *property
		p.Required = false
		optional[key] = &p
	}

	violations, err := forms.Validate(optional, props)
	if err != nil {
		return fmt.Errorf("failed to validate configured properties: %w", err)
	}

	if len(violations) > 0 {
		v := violations[0]

		return NewValidationError("Descriptor", "INVALID_PROPERTY",
			fmt.Sprintf("%s: %s", v.Field, v.Description), ErrInvalidProperties)
	}

	return nil
}
