package forms

import (
	"fmt"
	"strings"

	pkgerrors "github.com/craftora/backoffice/pkg/errors"
)

// CoerceValues converts the draft's raw scalar strings to their typed
// persistence form: trimmed strings, float64 numbers, booleans, and
// calendar-date strings. Image fields are excluded, their URLs are resolved
// during submission. Call only on a draft that passed Validate.
func CoerceValues(schema *Schema, draft *FormDraft) (map[string]any, error) {
	out := make(map[string]any, len(schema.Fields))
	for _, field := range schema.Fields {
		if field.Kind == FieldImage {
			continue
		}
		value, err := coerceScalar(field, draft.Values[field.Name])
		if err != nil {
			return nil, err
		}
		if value != nil {
			out[field.Name] = value
		}
	}
	return out, nil
}

// CoerceVariantValues does the same for one variant row.
func CoerceVariantValues(spec *VariantSpec, variant *Variant) (map[string]any, error) {
	out := make(map[string]any, len(spec.Fields))
	for _, field := range spec.Fields {
		if field.Kind == FieldImage {
			continue
		}
		value, err := coerceScalar(field, variant.Values[field.Name])
		if err != nil {
			return nil, err
		}
		if value != nil {
			out[field.Name] = value
		}
	}
	return out, nil
}

func coerceScalar(field FieldSpec, raw string) (any, error) {
	value := strings.TrimSpace(raw)

	switch field.Kind {
	case FieldString, FieldText, FieldSelect:
		return value, nil
	case FieldBoolean:
		return value == "true", nil
	case FieldDate:
		if value == "" {
			return nil, nil
		}
		if _, ok := parseDate(value); !ok {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("field %q failed date coercion after validation", field.Name))
		}
		return value, nil
	case FieldNumber:
		if value == "" {
			return nil, nil
		}
		number, ok := parseDecimal(value)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("field %q failed numeric coercion after validation", field.Name))
		}
		return number.InexactFloat64(), nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("field %q has unknown kind %q", field.Name, field.Kind))
	}
}
