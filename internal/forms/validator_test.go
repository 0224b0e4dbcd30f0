package forms

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decPtr(value string) *decimal.Decimal {
	parsed := decimal.RequireFromString(value)
	return &parsed
}

func productSchema() *Schema {
	return &Schema{
		Entity:        "product",
		Collection:    "products",
		IdentityField: "sku",
		Fields: []FieldSpec{
			{Name: "name", Label: "Product name", Kind: FieldString, Required: true},
			{Name: "description", Kind: FieldText},
			{Name: "category", Kind: FieldSelect, Required: true, Options: []string{"apparel", "accessories"}},
			{Name: "list_price", Label: "List price", Kind: FieldNumber, Required: true, Min: decPtr("0"), ExclusiveMin: true},
			{Name: "sale_price", Label: "Sale price", Kind: FieldNumber, Min: decPtr("0")},
			{Name: "quantity", Kind: FieldNumber, Required: true, Min: decPtr("0")},
			{Name: "has_variants", Kind: FieldBoolean},
			{Name: "image", Label: "Product image", Kind: FieldImage, Required: true},
		},
		CrossRules: []CrossRule{
			{
				Kind:       CrossRuleNumericNotAbove,
				Field:      "sale_price",
				OtherField: "list_price",
				Message:    "Sale price must not exceed list price",
			},
		},
		VariantToggleField: "has_variants",
		ScalarOnlyFields:   []string{"list_price", "sale_price", "quantity", "image"},
		Variant: &VariantSpec{
			IdentityField: "sku",
			Fields: []FieldSpec{
				{Name: "name", Label: "Variant name", Kind: FieldString, Required: true},
				{Name: "sku", Label: "SKU", Kind: FieldString, Required: true},
				{Name: "price", Kind: FieldNumber, Required: true, Min: decPtr("0"), ExclusiveMin: true},
				{Name: "stock", Kind: FieldNumber, Min: decPtr("0")},
				{Name: "image", Label: "Variant image", Kind: FieldImage, Required: true},
			},
		},
	}
}

func couponSchema() *Schema {
	return &Schema{
		Entity:        "coupon",
		Collection:    "coupons",
		IdentityField: "code",
		Fields: []FieldSpec{
			{Name: "code", Label: "Coupon code", Kind: FieldString, Required: true},
			{Name: "discount_type", Kind: FieldSelect, Required: true, Options: []string{"percentage", "fixed"}},
			{Name: "discount_value", Label: "Discount value", Kind: FieldNumber, Required: true, Min: decPtr("0"), ExclusiveMin: true},
			{Name: "start_date", Label: "Start date", Kind: FieldDate, Required: true},
			{Name: "end_date", Label: "End date", Kind: FieldDate, Required: true},
		},
		CrossRules: []CrossRule{
			{
				Kind:       CrossRuleDateNotBefore,
				Field:      "end_date",
				OtherField: "start_date",
				Message:    "End date must not be before start date",
			},
			{
				Kind:      CrossRuleMaxWhenEquals,
				Field:     "discount_value",
				WhenField: "discount_type",
				Equals:    "percentage",
				Limit:     decimal.RequireFromString("100"),
				Message:   "Percentage discount must not exceed 100",
			},
		},
	}
}

func validProductDraft(t *testing.T, schema *Schema) (*FormDraft, *PreviewRegistry) {
	t.Helper()
	registry := NewPreviewRegistry()
	draft := NewDraft(schema, ModeCreate, "")
	require.NoError(t, draft.SetValues(schema, map[string]string{
		"name":       "Canvas Tote",
		"category":   "accessories",
		"list_price": "49.99",
		"sale_price": "39.99",
		"quantity":   "12",
	}))
	_, err := draft.Slots["image"].Stage(registry, stagedImage("tote.png"))
	require.NoError(t, err)
	return draft, registry
}

func TestValidateAcceptsCompleteDraft(t *testing.T) {
	schema := productSchema()
	draft, _ := validProductDraft(t, schema)

	result := Validate(schema, draft)
	assert.True(t, result.Valid(), "unexpected errors: %v", result)
}

func TestValidateRequiredStringTrimsWhitespace(t *testing.T) {
	schema := productSchema()
	draft, _ := validProductDraft(t, schema)
	draft.Values["name"] = "   "

	result := Validate(schema, draft)
	assert.Equal(t, "Product name is required", result["name"])
}

func TestValidateNumericParsingAndBounds(t *testing.T) {
	schema := productSchema()

	draft, _ := validProductDraft(t, schema)
	draft.Values["list_price"] = "not-a-number"
	result := Validate(schema, draft)
	assert.Equal(t, "List price must be a number", result["list_price"])

	draft, _ = validProductDraft(t, schema)
	draft.Values["list_price"] = "0"
	result = Validate(schema, draft)
	assert.Contains(t, result["list_price"], "greater than 0")

	draft, _ = validProductDraft(t, schema)
	draft.Values["quantity"] = "-1"
	result = Validate(schema, draft)
	assert.Contains(t, result["quantity"], "at least 0")
}

func TestValidateSalePriceMustNotExceedListPrice(t *testing.T) {
	schema := productSchema()

	draft, _ := validProductDraft(t, schema)
	draft.Values["sale_price"] = "59.99"
	result := Validate(schema, draft)
	assert.Equal(t, "Sale price must not exceed list price", result["sale_price"])

	// Equal prices are allowed.
	draft, _ = validProductDraft(t, schema)
	draft.Values["sale_price"] = "49.99"
	result = Validate(schema, draft)
	assert.True(t, result.Valid(), "unexpected errors: %v", result)
}

func TestValidateCrossRuleSkippedWhenFieldAlreadyInvalid(t *testing.T) {
	schema := productSchema()
	draft, _ := validProductDraft(t, schema)
	draft.Values["sale_price"] = "abc"

	result := Validate(schema, draft)
	assert.Equal(t, "Sale price must be a number", result["sale_price"])
}

func TestValidatePercentageDiscountCap(t *testing.T) {
	schema := couponSchema()
	draft := NewDraft(schema, ModeCreate, "")
	require.NoError(t, draft.SetValues(schema, map[string]string{
		"code":           "SUMMER",
		"discount_type":  "percentage",
		"discount_value": "150",
		"start_date":     "2026-06-01",
		"end_date":       "2026-06-30",
	}))

	result := Validate(schema, draft)
	assert.Equal(t, "Percentage discount must not exceed 100", result["discount_value"])

	// Fixed-amount discounts are not capped at 100.
	draft.Values["discount_type"] = "fixed"
	result = Validate(schema, draft)
	assert.True(t, result.Valid(), "unexpected errors: %v", result)
}

func TestValidateDateOrderingUsesCalendarDates(t *testing.T) {
	schema := couponSchema()
	draft := NewDraft(schema, ModeCreate, "")
	require.NoError(t, draft.SetValues(schema, map[string]string{
		"code":           "WINTER",
		"discount_type":  "fixed",
		"discount_value": "10",
		"start_date":     "2026-11-09",
		"end_date":       "2026-02-01",
	}))

	result := Validate(schema, draft)
	assert.Equal(t, "End date must not be before start date", result["end_date"])

	draft.Values["end_date"] = "2026-11-09"
	result = Validate(schema, draft)
	assert.True(t, result.Valid(), "unexpected errors: %v", result)
}

func TestValidateRejectsMalformedDate(t *testing.T) {
	schema := couponSchema()
	draft := NewDraft(schema, ModeCreate, "")
	require.NoError(t, draft.SetValues(schema, map[string]string{
		"code":           "SPRING",
		"discount_type":  "fixed",
		"discount_value": "5",
		"start_date":     "03/15/2026",
		"end_date":       "2026-04-01",
	}))

	result := Validate(schema, draft)
	assert.Contains(t, result["start_date"], "valid date")
}

func TestValidateImageRequirement(t *testing.T) {
	schema := productSchema()

	draft, registry := validProductDraft(t, schema)
	require.NoError(t, draft.Slots["image"].Clear(registry))
	result := Validate(schema, draft)
	assert.Equal(t, "Product image is required", result["image"])

	// A persisted image satisfies the requirement without re-upload.
	draft.Slots["image"] = NewPersistedSlot("https://img.example.com/tote.jpg")
	result = Validate(schema, draft)
	assert.True(t, result.Valid(), "unexpected errors: %v", result)
}

func TestValidateVariantModeSwapsRequirements(t *testing.T) {
	schema := productSchema()
	registry := NewPreviewRegistry()

	draft := NewDraft(schema, ModeCreate, "")
	require.NoError(t, draft.SetValues(schema, map[string]string{
		"name":         "Hoodie",
		"category":     "apparel",
		"has_variants": "true",
	}))

	// Scalar price and image errors must not appear, the variant
	// collection error must.
	result := Validate(schema, draft)
	assert.NotContains(t, result, "list_price")
	assert.NotContains(t, result, "quantity")
	assert.NotContains(t, result, "image")
	assert.Equal(t, "at least one variant is required", result["variants"])

	variant, err := draft.AddVariant(schema)
	require.NoError(t, err)
	require.NoError(t, variant.SetValues(schema.Variant, map[string]string{
		"name":  "Hoodie / Red / M",
		"sku":   "HOOD-RED-M",
		"price": "59.00",
	}))
	_, err = variant.Slots["image"].Stage(registry, stagedImage("red-m.png"))
	require.NoError(t, err)

	result = Validate(schema, draft)
	assert.True(t, result.Valid(), "unexpected errors: %v", result)
}

func TestValidateVariantFieldErrorsAreKeyedByRow(t *testing.T) {
	schema := productSchema()
	draft := NewDraft(schema, ModeCreate, "")
	require.NoError(t, draft.SetValues(schema, map[string]string{
		"name":         "Hoodie",
		"category":     "apparel",
		"has_variants": "true",
	}))
	variant, err := draft.AddVariant(schema)
	require.NoError(t, err)
	require.NoError(t, variant.SetValues(schema.Variant, map[string]string{
		"sku":   "HOOD-1",
		"price": "0",
	}))

	result := Validate(schema, draft)
	assert.Equal(t, "Variant name is required", result["variants[0].name"])
	assert.Contains(t, result["variants[0].price"], "greater than 0")
	assert.Equal(t, "Variant image is required", result["variants[0].image"])
}

func TestValidateVariantCodesUniqueCaseInsensitive(t *testing.T) {
	schema := productSchema()
	registry := NewPreviewRegistry()
	draft := NewDraft(schema, ModeCreate, "")
	require.NoError(t, draft.SetValues(schema, map[string]string{
		"name":         "Hoodie",
		"category":     "apparel",
		"has_variants": "true",
	}))

	for _, sku := range []string{"HOOD-RED-M", "hood-red-m"} {
		variant, err := draft.AddVariant(schema)
		require.NoError(t, err)
		require.NoError(t, variant.SetValues(schema.Variant, map[string]string{
			"name":  "Row",
			"sku":   sku,
			"price": "10",
		}))
		_, err = variant.Slots["image"].Stage(registry, stagedImage("row.png"))
		require.NoError(t, err)
	}

	result := Validate(schema, draft)
	assert.NotContains(t, result, "variants[0].sku")
	assert.Contains(t, result["variants[1].sku"], "duplicate code")
}

func TestValidateRecomputesWholesaleOnToggle(t *testing.T) {
	schema := productSchema()
	draft := NewDraft(schema, ModeCreate, "")
	require.NoError(t, draft.SetValues(schema, map[string]string{
		"name":     "Hoodie",
		"category": "apparel",
	}))

	withScalars := Validate(schema, draft)
	assert.Contains(t, withScalars, "list_price")
	assert.Contains(t, withScalars, "image")

	draft.Values["has_variants"] = "true"
	withVariants := Validate(schema, draft)
	assert.NotContains(t, withVariants, "list_price")
	assert.NotContains(t, withVariants, "image")
	assert.Contains(t, withVariants, "variants")
}

func TestSchemaValidateCatchesAuthoringMistakes(t *testing.T) {
	schema := productSchema()
	require.NoError(t, schema.Validate())
	require.NoError(t, couponSchema().Validate())

	broken := productSchema()
	broken.Fields = append(broken.Fields, FieldSpec{Name: "name", Kind: FieldString})
	assert.Error(t, broken.Validate())

	broken = productSchema()
	broken.VariantToggleField = "name"
	assert.Error(t, broken.Validate())

	broken = productSchema()
	broken.Collection = ""
	assert.Error(t, broken.Validate())
}
