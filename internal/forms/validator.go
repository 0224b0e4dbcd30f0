package forms

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format form fields carry.
const DateLayout = "2006-01-02"

// ValidationResult maps field paths to error messages. An absent key means
// the field is valid. The result is recomputed wholesale on every pass,
// never patched incrementally, so bulk changes like toggling variants can
// never leave stale errors behind.
type ValidationResult map[string]string

// Valid reports whether the draft passed every rule.
func (r ValidationResult) Valid() bool {
	return len(r) == 0
}

// Validate runs every field and cross-field rule of the schema against the
// draft. It is pure: no network, no store lookups, no mutation of the draft.
func Validate(schema *Schema, draft *FormDraft) ValidationResult {
	result := make(ValidationResult)
	variantsOn := schema.HasVariants() && parseBoolValue(draft.Values[schema.VariantToggleField])

	for _, field := range schema.Fields {
		required := field.Required
		if variantsOn && schema.scalarOnly(field.Name) {
			required = false
		}
		if field.Kind == FieldImage {
			slot := draft.Slots[field.Name]
			if required && slot.State() == SlotEmpty {
				result[field.Name] = fmt.Sprintf("%s is required", fieldLabel(field))
			}
			continue
		}
		validateScalar(result, field.Name, field, required, draft.Values[field.Name])
	}

	for _, rule := range schema.CrossRules {
		applyCrossRule(result, rule, draft.Values)
	}

	if variantsOn {
		validateVariants(result, schema.Variant, draft.Variants)
	}

	return result
}

func validateScalar(result ValidationResult, path string, field FieldSpec, required bool, raw string) {
	value := strings.TrimSpace(raw)

	switch field.Kind {
	case FieldString, FieldText:
		if required && value == "" {
			result[path] = fmt.Sprintf("%s is required", fieldLabel(field))
		}
	case FieldSelect:
		if value == "" {
			if required {
				result[path] = fmt.Sprintf("%s is required", fieldLabel(field))
			}
			return
		}
		for _, option := range field.Options {
			if option == value {
				return
			}
		}
		result[path] = fmt.Sprintf("%s must be one of %s", fieldLabel(field), strings.Join(field.Options, ", "))
	case FieldBoolean:
		if value == "" || value == "true" || value == "false" {
			return
		}
		result[path] = fmt.Sprintf("%s must be true or false", fieldLabel(field))
	case FieldDate:
		if value == "" {
			if required {
				result[path] = fmt.Sprintf("%s is required", fieldLabel(field))
			}
			return
		}
		if _, ok := parseDate(value); !ok {
			result[path] = fmt.Sprintf("%s must be a valid date (YYYY-MM-DD)", fieldLabel(field))
		}
	case FieldNumber:
		if value == "" {
			if required {
				result[path] = fmt.Sprintf("%s is required", fieldLabel(field))
			}
			return
		}
		number, ok := parseDecimal(value)
		if !ok {
			result[path] = fmt.Sprintf("%s must be a number", fieldLabel(field))
			return
		}
		if field.Min != nil {
			if field.ExclusiveMin && !number.GreaterThan(*field.Min) {
				result[path] = fmt.Sprintf("%s must be greater than %s", fieldLabel(field), field.Min)
				return
			}
			if !field.ExclusiveMin && number.LessThan(*field.Min) {
				result[path] = fmt.Sprintf("%s must be at least %s", fieldLabel(field), field.Min)
				return
			}
		}
		if field.Max != nil && number.GreaterThan(*field.Max) {
			result[path] = fmt.Sprintf("%s must not exceed %s", fieldLabel(field), field.Max)
		}
	}
}

// applyCrossRule evaluates one cross-field relation. Rules only fire when
// the involved fields parse cleanly and carry no error of their own, so the
// user sees the field-level problem first.
func applyCrossRule(result ValidationResult, rule CrossRule, values map[string]string) {
	if _, taken := result[rule.Field]; taken {
		return
	}

	switch rule.Kind {
	case CrossRuleNumericNotAbove:
		left, leftOK := parseDecimal(strings.TrimSpace(values[rule.Field]))
		right, rightOK := parseDecimal(strings.TrimSpace(values[rule.OtherField]))
		if leftOK && rightOK && left.GreaterThan(right) {
			result[rule.Field] = rule.Message
		}
	case CrossRuleDateNotBefore:
		left, leftOK := parseDate(strings.TrimSpace(values[rule.Field]))
		right, rightOK := parseDate(strings.TrimSpace(values[rule.OtherField]))
		if leftOK && rightOK && left.Before(right) {
			result[rule.Field] = rule.Message
		}
	case CrossRuleMaxWhenEquals:
		if strings.TrimSpace(values[rule.WhenField]) != rule.Equals {
			return
		}
		left, ok := parseDecimal(strings.TrimSpace(values[rule.Field]))
		if ok && left.GreaterThan(rule.Limit) {
			result[rule.Field] = rule.Message
		}
	}
}

func validateVariants(result ValidationResult, spec *VariantSpec, variants []*Variant) {
	if len(variants) == 0 {
		result["variants"] = "at least one variant is required"
		return
	}

	seenCodes := make(map[string]struct{}, len(variants))
	for i, variant := range variants {
		for _, field := range spec.Fields {
			path := fmt.Sprintf("variants[%d].%s", i, field.Name)
			if field.Kind == FieldImage {
				if field.Required && variant.Slots[field.Name].State() == SlotEmpty {
					result[path] = fmt.Sprintf("%s is required", fieldLabel(field))
				}
				continue
			}
			validateScalar(result, path, field, field.Required, variant.Values[field.Name])
		}

		if spec.IdentityField == "" {
			continue
		}
		code := strings.ToLower(strings.TrimSpace(variant.Values[spec.IdentityField]))
		if code == "" {
			continue
		}
		path := fmt.Sprintf("variants[%d].%s", i, spec.IdentityField)
		if _, dup := seenCodes[code]; dup {
			if _, taken := result[path]; !taken {
				result[path] = fmt.Sprintf("duplicate code %q in variant list", variant.Values[spec.IdentityField])
			}
			continue
		}
		seenCodes[code] = struct{}{}
	}
}

func fieldLabel(field FieldSpec) string {
	if field.Label != "" {
		return field.Label
	}
	return field.Name
}

func parseDecimal(raw string) (decimal.Decimal, bool) {
	if raw == "" {
		return decimal.Decimal{}, false
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return value, true
}

func parseDate(raw string) (time.Time, bool) {
	value, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, false
	}
	return value, true
}

func parseBoolValue(raw string) bool {
	return strings.TrimSpace(raw) == "true"
}
