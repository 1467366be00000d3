// Package forms maps backend configuration properties to form definitions
// and checks configured values against them.
package forms

import (
	"errors"
	"maps"
	"slices"

	"github.com/dukex/conduit/pkg/models"
)

// ErrNoProperties is returned when a nil property map is converted.
var ErrNoProperties = errors.New("undefined value passed to form definition converter")

// FieldAttributes carries the layout hints of a form field.
type FieldAttributes struct {
	Cols     *int     `json:"cols,omitempty"`
	Rows     *int     `json:"rows,omitempty"`
	Min      *float64 `json:"min,omitempty"`
	Max      *float64 `json:"max,omitempty"`
	Multiple bool     `json:"multiple,omitempty"`
}

// FormDefinitionProperty is a single field of a generated form.
type FormDefinitionProperty struct {
	Type            string                  `json:"type,omitempty"`
	DisplayName     string                  `json:"displayName,omitempty"`
	Description     string                  `json:"description,omitempty"`
	Required        bool                    `json:"required,omitempty"`
	Secret          bool                    `json:"secret,omitempty"`
	DefaultValue    string                  `json:"defaultValue,omitempty"`
	Value           string                  `json:"value,omitempty"`
	Placeholder     string                  `json:"placeholder,omitempty"`
	Order           int                     `json:"order,omitempty"`
	Enum            []models.PropertyOption `json:"enum,omitempty"`
	ControlHint     string                  `json:"controlHint,omitempty"`
	LabelHint       string                  `json:"labelHint,omitempty"`
	FieldAttributes FieldAttributes         `json:"fieldAttributes"`
}

// FormDefinition maps property names to form fields.
type FormDefinition map[string]FormDefinitionProperty

// ToFormDefinition converts a backend property map to a form definition.
func ToFormDefinition(properties map[string]*models.ConfigurationProperty) (FormDefinition, error) {
	if properties == nil {
		return nil, ErrNoProperties
	}

	definition := make(FormDefinition, len(properties))

	for key, property := range properties {
		if property == nil {
			continue
		}

		definition[key] = ToFormDefinitionProperty(property)
	}

	return definition, nil
}

// ToFormDefinitionProperty converts a single property. Hints fall back to the
// matching tooltip; layout values move under FieldAttributes.
func ToFormDefinitionProperty(property *models.ConfigurationProperty) FormDefinitionProperty {
	return FormDefinitionProperty{
		Type:         property.Type,
		DisplayName:  property.DisplayName,
		Description:  property.Description,
		Required:     property.Required,
		Secret:       property.Secret,
		DefaultValue: property.DefaultValue,
		Value:        property.Value,
		Placeholder:  property.Placeholder,
		Order:        property.Order,
		Enum:         slices.Clone(property.Enum),
		ControlHint:  firstNonEmpty(property.ControlHint, property.ControlTooltip),
		LabelHint:    firstNonEmpty(property.LabelHint, property.LabelTooltip),
		FieldAttributes: FieldAttributes{
			Cols:     property.Cols,
			Rows:     property.Rows,
			Min:      property.Min,
			Max:      property.Max,
			Multiple: property.Multiple,
		},
	}
}

// InitialValues returns each property's value, or its default value, skipping
// properties that have neither.
func InitialValues(properties map[string]*models.ConfigurationProperty) map[string]any {
	values := make(map[string]any)

	for key, property := range properties {
		if property == nil {
			continue
		}

		if v := firstNonEmpty(property.Value, property.DefaultValue); v != "" {
			values[key] = v
		}
	}

	return values
}

// RequiredSet reports whether every required property has a value. A nil
// values map is never complete.
func RequiredSet(properties map[string]*models.ConfigurationProperty, values map[string]any) bool {
	if values == nil {
		return false
	}

	for key, property := range properties {
		if property == nil || !property.Required {
			continue
		}

		if _, ok := values[key]; !ok {
			return false
		}
	}

	return true
}

// SortedKeys returns property names ordered by Order, then name.
func SortedKeys(properties map[string]*models.ConfigurationProperty) []string {
	keys := slices.Collect(maps.Keys(properties))

	slices.SortFunc(keys, func(a, b string) int {
		oa, ob := order(properties[a]), order(properties[b])
		if oa != ob {
			return oa - ob
		}

		if a < b {
			return -1
		}

		if a > b {
			return 1
		}

		return 0
	})

	return keys
}

func order(p *models.ConfigurationProperty) int {
	if p == nil {
		return 0
	}

	return p.Order
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
