package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hosterrors "github.com/modelhost/mcp-host-go/pkg/errors"
	"github.com/modelhost/mcp-host-go/pkg/logging"
)

func TestNormalizeOptionalStringAllShapes(t *testing.T) {
	// Every accepted shape describing "an optional string parameter"
	// must normalize to the same spec.
	declarations := map[string]interface{}{
		"suffixed name":        "string?",
		"definition":           Definition{Type: "string", Optional: true},
		"definition pointer":   &Definition{Type: "string", Optional: true},
		"suffix in definition": Definition{Type: "string?"},
	}

	for shape, decl := range declarations {
		t.Run(shape, func(t *testing.T) {
			spec := Normalize("title", decl, nil)
			assert.Equal(t, KindString, spec.Kind)
			assert.False(t, spec.Required)
			assert.NoError(t, spec.Validate("hello"))
			assert.Error(t, spec.Validate(42))
		})
	}
}

func TestNormalizeBarePrimitives(t *testing.T) {
	tests := []struct {
		decl   string
		kind   Kind
		accept interface{}
		reject interface{}
	}{
		{"string", KindString, "x", 1},
		{"number", KindNumber, 3.14, "x"},
		{"boolean", KindBoolean, true, "true"},
		{"array", KindArray, []interface{}{1, 2}, "not a list"},
		{"object", KindObject, map[string]interface{}{"k": "v"}, []interface{}{}},
	}

	for _, tt := range tests {
		t.Run(tt.decl, func(t *testing.T) {
			spec := Normalize("p", tt.decl, nil)
			assert.Equal(t, tt.kind, spec.Kind)
			assert.True(t, spec.Required)
			assert.NoError(t, spec.Validate(tt.accept))
			assert.Error(t, spec.Validate(tt.reject))
		})
	}
}

func TestNormalizeCustomValidator(t *testing.T) {
	evenOnly := ValidatorFunc(func(value interface{}) error {
		n, ok := value.(int)
		if !ok || n%2 != 0 {
			return fmt.Errorf("expected even int")
		}
		return nil
	})

	direct := Normalize("count", evenOnly, nil)
	assert.Equal(t, KindCustom, direct.Kind)
	assert.True(t, direct.Required)
	assert.NoError(t, direct.Validate(4))
	assert.Error(t, direct.Validate(3))

	// A validator inside a definition bypasses the primitive mapping
	// and picks up optionality from the definition.
	inDef := Normalize("count", Definition{Type: evenOnly, Optional: true}, nil)
	assert.Equal(t, KindCustom, inDef.Kind)
	assert.False(t, inDef.Required)
	assert.NoError(t, inDef.Validate(2))
}

func TestNormalizeUnknownShapeNeverFails(t *testing.T) {
	var buf bytes.Buffer
	formatter := logging.NewTextFormatter()
	formatter.DisableColors = true
	logger := logging.New(&buf, formatter)

	for _, decl := range []interface{}{42, nil, 3.14, []string{"a"}, struct{}{}, "uuid"} {
		spec := Normalize("mystery", decl, logger)
		assert.Equal(t, KindAny, spec.Kind)
		assert.NoError(t, spec.Validate("anything"))
		assert.NoError(t, spec.Validate(nil))
	}

	assert.Contains(t, buf.String(), "mystery")
	assert.Contains(t, buf.String(), "WARN")
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []interface{}{"x", 1.5, true, []interface{}{}, map[string]interface{}{}, nil}

	for _, decl := range []interface{}{"number?", Definition{Type: "array"}, 42} {
		first := Normalize("p", decl, nil)
		second := Normalize("p", decl, nil)

		for _, in := range inputs {
			assert.Equal(t,
				first.Validate(in) == nil,
				second.Validate(in) == nil,
				"specs disagree on %#v for declaration %#v", in, decl,
			)
		}
	}
}

func TestValidateArgs(t *testing.T) {
	specs := []ParamSpec{
		Normalize("a", "number", nil),
		Normalize("b", "number", nil),
		Normalize("label", "string?", nil),
	}

	assert.NoError(t, ValidateArgs(specs, map[string]interface{}{"a": 2.0, "b": 3.0}))
	assert.NoError(t, ValidateArgs(specs, map[string]interface{}{"a": 2, "b": 3, "label": "sum"}))

	err := ValidateArgs(specs, map[string]interface{}{"a": 2.0})
	require.Error(t, err)
	assert.True(t, hosterrors.IsCode(err, hosterrors.CodeMissingParameter))

	err = ValidateArgs(specs, map[string]interface{}{"a": 2.0, "b": "three"})
	require.Error(t, err)
	assert.True(t, hosterrors.IsCode(err, hosterrors.CodeInvalidParameter))

	// Extra args pass through
	assert.NoError(t, ValidateArgs(specs, map[string]interface{}{"a": 1, "b": 2, "extra": true}))
}

func TestInputSchema(t *testing.T) {
	specs := []ParamSpec{
		Normalize("a", Definition{Type: "number", Description: "first addend"}, nil),
		Normalize("b", "number", nil),
		Normalize("label", "string?", nil),
	}

	raw, err := InputSchema(specs)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "object", doc["type"])

	props := doc["properties"].(map[string]interface{})
	a := props["a"].(map[string]interface{})
	assert.Equal(t, "number", a["type"])
	assert.Equal(t, "first addend", a["description"])

	required := doc["required"].([]interface{})
	assert.ElementsMatch(t, []interface{}{"a", "b"}, required)
}
