package forms

import (
	"fmt"
	"slices"

	"github.com/dukex/conduit/pkg/models"
	"github.com/xeipuuv/gojsonschema"
)

// Violation is a configured value that does not satisfy its property.
type Violation struct {
	Field       string `json:"field"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Schema builds a JSON schema document for the properties. Numeric and boolean
// properties also accept their string form, since the backend stores
// configured values as strings.
func Schema(properties map[string]*models.ConfigurationProperty) map[string]any {
	schemaProperties := make(map[string]any, len(properties))
	required := make([]string, 0)

	for _, key := range SortedKeys(properties) {
		property := properties[key]
		if property == nil {
			continue
		}

		schemaProperties[key] = propertySchema(property)

		if property.Required {
			required = append(required, key)
		}
	}

	schema := map[string]any{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"type":       "object",
		"properties": schemaProperties,
	}

	if len(required) > 0 {
		schema["required"] = required
	}

	return schema
}

func propertySchema(property *models.ConfigurationProperty) map[string]any {
	var schema map[string]any

	switch property.Type {
	case "int", "integer", "long":
		schema = numeric("integer", `^-?[0-9]+$`, property)
	case "number", "double", "float":
		schema = numeric("number", `^-?[0-9]+(\.[0-9]+)?$`, property)
	case "boolean", "checkbox":
		schema = map[string]any{
			"anyOf": []any{
				map[string]any{"type": "boolean"},
				map[string]any{"type": "string", "enum": []any{"true", "false"}},
			},
		}
	default:
		schema = map[string]any{"type": "string"}
	}

	if len(property.Enum) > 0 {
		values := make([]any, 0, len(property.Enum))
		for _, option := range property.Enum {
			values = append(values, option.Value)
		}

		schema = map[string]any{"type": "string", "enum": values}
	}

	if property.Multiple {
		schema = map[string]any{
			"anyOf": []any{schema, map[string]any{"type": "array", "items": schema}},
		}
	}

	if property.DisplayName != "" {
		schema["title"] = property.DisplayName
	}

	return schema
}

func numeric(kind, pattern string, property *models.ConfigurationProperty) map[string]any {
	native := map[string]any{"type": kind}
	if property.Min != nil {
		native["minimum"] = *property.Min
	}

	if property.Max != nil {
		native["maximum"] = *property.Max
	}

	return map[string]any{
		"anyOf": []any{
			native,
			map[string]any{"type": "string", "pattern": pattern},
		},
	}
}

// Validate checks values against the schema generated for properties.
func Validate(properties map[string]*models.ConfigurationProperty, values map[string]any) ([]Violation, error) {
	if values == nil {
		values = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(Schema(properties)),
		gojsonschema.NewGoLoader(values),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to validate configured properties: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	violations := make([]Violation, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		violations = append(violations, Violation{
			Field:       resultErr.Field(),
			Type:        resultErr.Type(),
			Description: resultErr.Description(),
		})
	}

	slices.SortFunc(violations, func(a, b Violation) int {
		switch {
		case a.Field < b.Field:
			return -1
		case a.Field > b.Field:
			return 1
		default:
			return 0
		}
	})

	return violations, nil
}
