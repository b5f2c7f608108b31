package schema

import (
	"encoding/json"
	"fmt"

	hosterrors "github.com/modelhost/mcp-host-go/pkg/errors"
)

// ValidateArgs checks a set of call arguments against the normalized
// specs. Required parameters must be present; present parameters must
// pass their validator. Extra arguments not covered by any spec are
// passed through untouched.
func ValidateArgs(specs []ParamSpec, args map[string]interface{}) error {
	for _, spec := range specs {
		value, present := args[spec.Name]
		if !present {
			if spec.Required {
				return hosterrors.MissingParameter(spec.Name)
			}
			continue
		}
		if err := spec.Validate(value); err != nil {
			return hosterrors.InvalidParameter(spec.Name, err.Error())
		}
	}
	return nil
}

// jsonSchemaType maps a kind to its JSON Schema type name. Custom and
// permissive parameters have no expressible type and are omitted.
func jsonSchemaType(kind Kind) string {
	switch kind {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return ""
	}
}

// InputSchema builds the JSON Schema advertised for a capability's
// parameters in tools/list responses.
func InputSchema(specs []ParamSpec) (json.RawMessage, error) {
	properties := make(map[string]interface{}, len(specs))
	required := []string{}

	for _, spec := range specs {
		prop := make(map[string]interface{})
		if t := jsonSchemaType(spec.Kind); t != "" {
			prop["type"] = t
		}
		if spec.Description != "" {
			prop["description"] = spec.Description
		}
		properties[spec.Name] = prop

		if spec.Required {
			required = append(required, spec.Name)
		}
	}

	doc := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		doc["required"] = required
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input schema: %w", err)
	}
	return data, nil
}
