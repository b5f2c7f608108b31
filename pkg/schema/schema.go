// Package schema normalizes capability parameter declarations. A
// declaration may take several shapes (a bare type name, an optional
// type name, a full definition, or a custom validator); normalization
// collapses all of them into a uniform ParamSpec that carries exactly
// one validator.
package schema

import (
	"fmt"
	"reflect"
)

// Kind identifies the value type a parameter accepts
type Kind string

const (
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBoolean Kind = "boolean"
	KindArray   Kind = "array"
	KindObject  Kind = "object"
	// KindCustom marks a parameter validated by a caller-supplied Validator
	KindCustom Kind = "custom"
	// KindAny marks the permissive fallback that accepts any value
	KindAny Kind = "any"
)

// Validator checks a single decoded argument value
type Validator interface {
	Validate(value interface{}) error
}

// ValidatorFunc adapts a function to the Validator interface
type ValidatorFunc func(value interface{}) error

// Validate implements Validator
func (f ValidatorFunc) Validate(value interface{}) error {
	return f(value)
}

// ParamSpec is the normalized form of one declared parameter. It is
// built once at registration time and immutable afterwards.
type ParamSpec struct {
	Name        string
	Kind        Kind
	Required    bool
	Description string

	validator Validator
}

// Validate checks a value against the spec's validator
func (s ParamSpec) Validate(value interface{}) error {
	if s.validator == nil {
		return nil
	}
	return s.validator.Validate(value)
}

// validatorForKind maps a primitive kind to its validator
func validatorForKind(kind Kind) Validator {
	switch kind {
	case KindString:
		return stringValidator{}
	case KindNumber:
		return numberValidator{}
	case KindBoolean:
		return booleanValidator{}
	case KindArray:
		return arrayValidator{}
	case KindObject:
		return objectValidator{}
	default:
		return anyValidator{}
	}
}

type stringValidator struct{}

func (stringValidator) Validate(value interface{}) error {
	if _, ok := value.(string); !ok {
		return fmt.Errorf("expected string, got %T", value)
	}
	return nil
}

type numberValidator struct{}

// Validate accepts any numeric type. JSON decoding produces float64
// but handlers invoked in-process may pass native ints.
func (numberValidator) Validate(value interface{}) error {
	switch value.(type) {
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return nil
	}
	return fmt.Errorf("expected number, got %T", value)
}

type booleanValidator struct{}

func (booleanValidator) Validate(value interface{}) error {
	if _, ok := value.(bool); !ok {
		return fmt.Errorf("expected boolean, got %T", value)
	}
	return nil
}

type arrayValidator struct{}

func (arrayValidator) Validate(value interface{}) error {
	if value == nil {
		return fmt.Errorf("expected array, got nil")
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("expected array, got %T", value)
	}
	return nil
}

type objectValidator struct{}

func (objectValidator) Validate(value interface{}) error {
	if value == nil {
		return fmt.Errorf("expected object, got nil")
	}
	if _, ok := value.(map[string]interface{}); ok {
		return nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Map && rv.Type().Key().Kind() == reflect.String {
		return nil
	}
	return fmt.Errorf("expected object, got %T", value)
}

type anyValidator struct{}

func (anyValidator) Validate(interface{}) error {
	return nil
}
