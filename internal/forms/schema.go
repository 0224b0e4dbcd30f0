package forms

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FieldKind is the scalar type a form field coerces to.
type FieldKind string

const (
	FieldString  FieldKind = "string"
	FieldText    FieldKind = "text"
	FieldNumber  FieldKind = "number"
	FieldBoolean FieldKind = "boolean"
	FieldDate    FieldKind = "date"
	FieldSelect  FieldKind = "select"
	FieldImage   FieldKind = "image"
)

// FieldSpec declares a single field of an entity form.
type FieldSpec struct {
	Name     string
	Label    string
	Kind     FieldKind
	Required bool

	// Numeric bounds, inclusive unless ExclusiveMin is set.
	Min          *decimal.Decimal
	Max          *decimal.Decimal
	ExclusiveMin bool

	// Options enumerates the legal values of a select field.
	Options []string
}

// CrossRuleKind names a relation between two fields, or between a field and
// a constant gated on another field's value.
type CrossRuleKind string

const (
	// CrossRuleNumericNotAbove requires Field <= OtherField when both parse.
	CrossRuleNumericNotAbove CrossRuleKind = "numeric_not_above"
	// CrossRuleDateNotBefore requires Field >= OtherField as calendar dates.
	CrossRuleDateNotBefore CrossRuleKind = "date_not_before"
	// CrossRuleMaxWhenEquals caps Field at Limit when WhenField equals Equals.
	CrossRuleMaxWhenEquals CrossRuleKind = "max_when_equals"
)

// CrossRule declares a cross-field validation. The error lands on Field.
type CrossRule struct {
	Kind       CrossRuleKind
	Field      string
	OtherField string
	WhenField  string
	Equals     string
	Limit      decimal.Decimal
	Message    string
}

// VariantSpec declares the reduced field set each variant row carries.
type VariantSpec struct {
	Fields []FieldSpec
	// IdentityField is the SKU-like code that must be unique within the
	// collection and against the store at submission time.
	IdentityField string
}

// Schema is the full declarative description of one entity form: its
// fields, cross-field rules, optional variant collection, and where its
// documents live.
type Schema struct {
	Entity     string
	Collection string

	// IdentityField, when set, is checked against the store for conflicts
	// before persisting.
	IdentityField string

	Fields     []FieldSpec
	CrossRules []CrossRule

	// VariantToggleField is the boolean that switches the form between
	// scalar mode and variant mode. Empty for entities without variants.
	VariantToggleField string
	// ScalarOnlyFields lists fields required only while the toggle is off.
	ScalarOnlyFields []string
	Variant          *VariantSpec

	// Privileged schemas are reachable only by superadmin sessions.
	Privileged bool
}

// Field looks up a field spec by name.
func (s *Schema) Field(name string) (FieldSpec, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldSpec{}, false
}

// ImageFields returns the names of the schema's top-level image slots.
func (s *Schema) ImageFields() []string {
	var names []string
	for _, field := range s.Fields {
		if field.Kind == FieldImage {
			names = append(names, field.Name)
		}
	}
	return names
}

// HasVariants reports whether the schema declares a variant collection.
func (s *Schema) HasVariants() bool {
	return s.VariantToggleField != "" && s.Variant != nil
}

func (s *Schema) scalarOnly(name string) bool {
	for _, candidate := range s.ScalarOnlyFields {
		if candidate == name {
			return true
		}
	}
	return false
}

// Validate checks the schema itself for authoring mistakes. Called once at
// registration, not per request.
func (s *Schema) Validate() error {
	if strings.TrimSpace(s.Entity) == "" {
		return fmt.Errorf("schema entity name is required")
	}
	if strings.TrimSpace(s.Collection) == "" {
		return fmt.Errorf("schema %s: collection is required", s.Entity)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema %s: at least one field is required", s.Entity)
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for _, field := range s.Fields {
		if strings.TrimSpace(field.Name) == "" {
			return fmt.Errorf("schema %s: field name is required", s.Entity)
		}
		if _, dup := seen[field.Name]; dup {
			return fmt.Errorf("schema %s: duplicate field %q", s.Entity, field.Name)
		}
		seen[field.Name] = struct{}{}
	}
	if s.IdentityField != "" {
		if _, ok := s.Field(s.IdentityField); !ok && !s.variantIdentity(s.IdentityField) {
			return fmt.Errorf("schema %s: identity field %q is not declared", s.Entity, s.IdentityField)
		}
	}
	if s.VariantToggleField != "" {
		if s.Variant == nil || len(s.Variant.Fields) == 0 {
			return fmt.Errorf("schema %s: variant toggle without variant fields", s.Entity)
		}
		if field, ok := s.Field(s.VariantToggleField); !ok || field.Kind != FieldBoolean {
			return fmt.Errorf("schema %s: variant toggle %q must be a boolean field", s.Entity, s.VariantToggleField)
		}
		if s.Variant.IdentityField != "" {
			if _, ok := s.Variant.Field(s.Variant.IdentityField); !ok {
				return fmt.Errorf("schema %s: variant identity field %q is not declared", s.Entity, s.Variant.IdentityField)
			}
		}
	}
	return nil
}

func (s *Schema) variantIdentity(name string) bool {
	return s.Variant != nil && s.Variant.IdentityField == name
}

// Field looks up a variant field spec by name.
func (v *VariantSpec) Field(name string) (FieldSpec, bool) {
	for _, field := range v.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldSpec{}, false
}

// ImageFields returns the names of the variant row's image slots.
func (v *VariantSpec) ImageFields() []string {
	var names []string
	for _, field := range v.Fields {
		if field.Kind == FieldImage {
			names = append(names, field.Name)
		}
	}
	return names
}
