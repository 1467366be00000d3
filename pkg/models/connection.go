package models

import "maps"

// Connection describes a configured external system steps can talk to.
type Connection struct {
	ID                   string         `json:"id"                             validate:"required"`
	Name                 string         `json:"name,omitempty"`
	Description          string         `json:"description,omitempty"`
	ConnectorID          string         `json:"connectorId,omitempty"`
	Icon                 string         `json:"icon,omitempty"`
	ConfiguredProperties map[string]any `json:"configuredProperties,omitempty"`
	Actions              []*Action      `json:"actions,omitempty"`
}

// Action is an operation offered by a connection.
type Action struct {
	ID          string            `json:"id"                    validate:"required"`
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	Pattern     string            `json:"pattern,omitempty"`
	Descriptor  *ActionDescriptor `json:"descriptor,omitempty"`
}

// Clone returns a shallow copy of the action.
func (a *Action) Clone() *Action {
	if a == nil {
		return nil
	}

	c := *a

	return &c
}

// Action returns the action with the given id.
func (c *Connection) Action(actionID string) (*Action, bool) {
	for _, a := range c.Actions {
		if a != nil && a.ID == actionID {
			return a, true
		}
	}

	return nil, false
}

// DataShape describes the payload an action consumes or produces.
type DataShape struct {
	Kind          string `json:"kind"`
	Name          string `json:"name,omitempty"`
	Type          string `json:"type,omitempty"`
	Description   string `json:"description,omitempty"`
	Specification string `json:"specification,omitempty"`
}

// PropertyDefinitionStep groups the properties configured on one page of an action.
type PropertyDefinitionStep struct {
	Name        string                            `json:"name"`
	Description string                            `json:"description,omitempty"`
	Properties  map[string]*ConfigurationProperty `json:"properties"`
}

// ActionDescriptor is the backend metadata describing how an action is
// configured. It may depend on the properties already chosen.
type ActionDescriptor struct {
	InputDataShape          *DataShape                `json:"inputDataShape,omitempty"`
	OutputDataShape         *DataShape                `json:"outputDataShape,omitempty"`
	PropertyDefinitionSteps []*PropertyDefinitionStep `json:"propertyDefinitionSteps,omitempty"`
	ConfiguredProperties    map[string]any            `json:"configuredProperties,omitempty"`
}

// Clone deep-copies the descriptor's property definitions.
func (d *ActionDescriptor) Clone() *ActionDescriptor {
	if d == nil {
		return nil
	}

	c := *d
	c.ConfiguredProperties = maps.Clone(d.ConfiguredProperties)
	c.PropertyDefinitionSteps = make([]*PropertyDefinitionStep, 0, len(d.PropertyDefinitionSteps))

	for _, step := range d.PropertyDefinitionSteps {
		if step == nil {
			continue
		}

		s := *step
		s.Properties = make(map[string]*ConfigurationProperty, len(step.Properties))

		for k, p := range step.Properties {
			if p == nil {
				continue
			}

			prop := *p
			s.Properties[k] = &prop
		}

		c.PropertyDefinitionSteps = append(c.PropertyDefinitionSteps, &s)
	}

	return &c
}

// ConfigurationProperty is the backend schema of a single configurable value.
type ConfigurationProperty struct {
	Kind           string           `json:"kind,omitempty"`
	Type           string           `json:"type,omitempty"`
	JavaType       string           `json:"javaType,omitempty"`
	DisplayName    string           `json:"displayName,omitempty"`
	Description    string           `json:"description,omitempty"`
	Required       bool             `json:"required,omitempty"`
	Secret         bool             `json:"secret,omitempty"`
	Deprecated     bool             `json:"deprecated,omitempty"`
	DefaultValue   string           `json:"defaultValue,omitempty"`
	Value          string           `json:"value,omitempty"`
	Placeholder    string           `json:"placeholder,omitempty"`
	Order          int              `json:"order,omitempty"`
	Enum           []PropertyOption `json:"enum,omitempty"`
	ControlHint    string           `json:"controlHint,omitempty"`
	ControlTooltip string           `json:"controlTooltip,omitempty"`
	LabelHint      string           `json:"labelHint,omitempty"`
	LabelTooltip   string           `json:"labelTooltip,omitempty"`
	Cols           *int             `json:"cols,omitempty"`
	Rows           *int             `json:"rows,omitempty"`
	Min            *float64         `json:"min,omitempty"`
	Max            *float64         `json:"max,omitempty"`
	Multiple       bool             `json:"multiple,omitempty"`
}

// PropertyOption is one choice of an enumerated property.
type PropertyOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}
