package schema

import (
	"strings"

	"github.com/modelhost/mcp-host-go/pkg/logging"
)

// Definition is the long-form parameter declaration. Type is either a
// primitive type name string or a Validator used verbatim.
type Definition struct {
	Type        interface{}
	Optional    bool
	Description string
}

// primitiveKinds are the type names accepted in string declarations
var primitiveKinds = map[string]Kind{
	"string":  KindString,
	"number":  KindNumber,
	"boolean": KindBoolean,
	"array":   KindArray,
	"object":  KindObject,
}

// Normalize converts one parameter declaration into a ParamSpec.
//
// Accepted shapes, tried in order:
//  1. a primitive type name ("string", "number", ...) giving a required
//     parameter of that kind
//  2. the same name suffixed with "?" giving an optional parameter
//  3. a Definition (by value or pointer), whose Type is resolved by the
//     same rules; a Validator Type bypasses the primitive mapping
//  4. a Validator used directly as a required custom validator
//  5. anything else, mapped to a permissive accept-anything spec with a
//     logged warning
//
// Normalize never fails: a malformed declaration must not prevent the
// server from starting.
func Normalize(name string, decl interface{}, logger logging.Logger) ParamSpec {
	if logger == nil {
		logger = logging.NewNop()
	}

	switch d := decl.(type) {
	case string:
		return normalizeTypeName(name, d, false, "", logger)

	case Definition:
		return normalizeDefinition(name, d, logger)

	case *Definition:
		if d != nil {
			return normalizeDefinition(name, *d, logger)
		}

	case Validator:
		return ParamSpec{
			Name:      name,
			Kind:      KindCustom,
			Required:  true,
			validator: d,
		}
	}

	logger.Warn("unrecognized parameter declaration, accepting any value",
		logging.String("parameter", name),
		logging.Any("declaration", decl),
	)
	return ParamSpec{
		Name:      name,
		Kind:      KindAny,
		Required:  true,
		validator: anyValidator{},
	}
}

func normalizeDefinition(name string, def Definition, logger logging.Logger) ParamSpec {
	// A Validator type wins over the primitive mapping.
	if v, ok := def.Type.(Validator); ok && v != nil {
		return ParamSpec{
			Name:        name,
			Kind:        KindCustom,
			Required:    !def.Optional,
			Description: def.Description,
			validator:   v,
		}
	}

	if typeName, ok := def.Type.(string); ok {
		return normalizeTypeName(name, typeName, def.Optional, def.Description, logger)
	}

	logger.Warn("unrecognized parameter type in definition, accepting any value",
		logging.String("parameter", name),
		logging.Any("type", def.Type),
	)
	return ParamSpec{
		Name:        name,
		Kind:        KindAny,
		Required:    !def.Optional,
		Description: def.Description,
		validator:   anyValidator{},
	}
}

func normalizeTypeName(name, typeName string, optional bool, description string, logger logging.Logger) ParamSpec {
	base := typeName
	if strings.HasSuffix(base, "?") {
		base = strings.TrimSuffix(base, "?")
		optional = true
	}

	kind, ok := primitiveKinds[base]
	if !ok {
		logger.Warn("unknown parameter type name, accepting any value",
			logging.String("parameter", name),
			logging.String("type", typeName),
		)
		return ParamSpec{
			Name:        name,
			Kind:        KindAny,
			Required:    !optional,
			Description: description,
			validator:   anyValidator{},
		}
	}

	return ParamSpec{
		Name:        name,
		Kind:        kind,
		Required:    !optional,
		Description: description,
		validator:   validatorForKind(kind),
	}
}
