package catalog

import (
	"fmt"
	"sort"

	"github.com/craftora/backoffice/internal/forms"
	"github.com/craftora/backoffice/pkg/auth"
	pkgerrors "github.com/craftora/backoffice/pkg/errors"
	"github.com/shopspring/decimal"
)

// Registry holds the declarative form schemas for every entity the back
// office manages. Schemas are authored here, validated once at construction,
// and shared read-only afterwards.
type Registry struct {
	schemas map[string]*forms.Schema
}

// NewRegistry builds and validates the full schema set.
func NewRegistry() (*Registry, error) {
	all := []*forms.Schema{
		productSchema(),
		categorySchema(),
		brandSchema(),
		bannerSchema(),
		couponSchema(),
		postSchema(),
		gallerySchema(),
		adminUserSchema(),
	}

	schemas := make(map[string]*forms.Schema, len(all))
	for _, schema := range all {
		if err := schema.Validate(); err != nil {
			return nil, fmt.Errorf("catalog schema: %w", err)
		}
		if _, dup := schemas[schema.Entity]; dup {
			return nil, fmt.Errorf("catalog schema: duplicate entity %q", schema.Entity)
		}
		schemas[schema.Entity] = schema
	}
	return &Registry{schemas: schemas}, nil
}

// SchemaFor returns the schema for an entity, enforcing the privileged gate.
func (r *Registry) SchemaFor(entity string, capability auth.Capability) (*forms.Schema, error) {
	schema, ok := r.schemas[entity]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("unknown entity %q", entity))
	}
	if schema.Privileged && !capability.Privileged {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("entity %q requires a superadmin session", entity))
	}
	return schema, nil
}

// Entities lists the entity names visible to the capability, sorted.
func (r *Registry) Entities(capability auth.Capability) []string {
	names := make([]string, 0, len(r.schemas))
	for name, schema := range r.schemas {
		if schema.Privileged && !capability.Privileged {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func decMin(value string) *decimal.Decimal {
	parsed := decimal.RequireFromString(value)
	return &parsed
}

func productSchema() *forms.Schema {
	return &forms.Schema{
		Entity:        "product",
		Collection:    "products",
		IdentityField: "sku",
		Fields: []forms.FieldSpec{
			{Name: "name", Label: "Product name", Kind: forms.FieldString, Required: true},
			{Name: "description", Label: "Description", Kind: forms.FieldText},
			{Name: "category", Label: "Category", Kind: forms.FieldString, Required: true},
			{Name: "brand", Label: "Brand", Kind: forms.FieldString},
			{Name: "sku", Label: "SKU", Kind: forms.FieldString, Required: true},
			{Name: "list_price", Label: "List price", Kind: forms.FieldNumber, Required: true, Min: decMin("0"), ExclusiveMin: true},
			{Name: "sale_price", Label: "Sale price", Kind: forms.FieldNumber, Min: decMin("0")},
			{Name: "quantity", Label: "Quantity", Kind: forms.FieldNumber, Required: true, Min: decMin("0")},
			{Name: "featured", Label: "Featured", Kind: forms.FieldBoolean},
			{Name: "has_variants", Label: "Has variants", Kind: forms.FieldBoolean},
			{Name: "image", Label: "Product image", Kind: forms.FieldImage, Required: true},
		},
		CrossRules: []forms.CrossRule{
			{
				Kind:       forms.CrossRuleNumericNotAbove,
				Field:      "sale_price",
				OtherField: "list_price",
				Message:    "Sale price must not exceed list price",
			},
		},
		VariantToggleField: "has_variants",
		ScalarOnlyFields:   []string{"sku", "list_price", "sale_price", "quantity", "image"},
		Variant: &forms.VariantSpec{
			IdentityField: "sku",
			Fields: []forms.FieldSpec{
				{Name: "name", Label: "Variant name", Kind: forms.FieldString, Required: true},
				{Name: "sku", Label: "Variant SKU", Kind: forms.FieldString, Required: true},
				{Name: "color", Label: "Color", Kind: forms.FieldString},
				{Name: "size", Label: "Size", Kind: forms.FieldString},
				{Name: "price", Label: "Price", Kind: forms.FieldNumber, Required: true, Min: decMin("0"), ExclusiveMin: true},
				{Name: "stock", Label: "Stock", Kind: forms.FieldNumber, Min: decMin("0")},
				{Name: "image", Label: "Variant image", Kind: forms.FieldImage, Required: true},
			},
		},
	}
}

func categorySchema() *forms.Schema {
	return &forms.Schema{
		Entity:     "category",
		Collection: "categories",
		Fields: []forms.FieldSpec{
			{Name: "name", Label: "Category name", Kind: forms.FieldString, Required: true},
			{Name: "description", Label: "Description", Kind: forms.FieldText},
			{Name: "image", Label: "Category image", Kind: forms.FieldImage, Required: true},
		},
	}
}

func brandSchema() *forms.Schema {
	return &forms.Schema{
		Entity:     "brand",
		Collection: "brands",
		Fields: []forms.FieldSpec{
			{Name: "name", Label: "Brand name", Kind: forms.FieldString, Required: true},
			{Name: "website", Label: "Website", Kind: forms.FieldString},
			{Name: "image", Label: "Brand logo", Kind: forms.FieldImage, Required: true},
		},
	}
}

func bannerSchema() *forms.Schema {
	return &forms.Schema{
		Entity:     "banner",
		Collection: "banners",
		Fields: []forms.FieldSpec{
			{Name: "title", Label: "Title", Kind: forms.FieldString, Required: true},
			{Name: "subtitle", Label: "Subtitle", Kind: forms.FieldString},
			{Name: "link", Label: "Target link", Kind: forms.FieldString},
			{Name: "placement", Label: "Placement", Kind: forms.FieldSelect, Required: true, Options: []string{"hero", "strip", "sidebar"}},
			{Name: "active", Label: "Active", Kind: forms.FieldBoolean},
			{Name: "image", Label: "Banner image", Kind: forms.FieldImage, Required: true},
		},
	}
}

func couponSchema() *forms.Schema {
	return &forms.Schema{
		Entity:        "coupon",
		Collection:    "coupons",
		IdentityField: "code",
		Fields: []forms.FieldSpec{
			{Name: "code", Label: "Coupon code", Kind: forms.FieldString, Required: true},
			{Name: "discount_type", Label: "Discount type", Kind: forms.FieldSelect, Required: true, Options: []string{"percentage", "fixed"}},
			{Name: "discount_value", Label: "Discount value", Kind: forms.FieldNumber, Required: true, Min: decMin("0"), ExclusiveMin: true},
			{Name: "min_purchase", Label: "Minimum purchase", Kind: forms.FieldNumber, Min: decMin("0")},
			{Name: "start_date", Label: "Start date", Kind: forms.FieldDate, Required: true},
			{Name: "end_date", Label: "End date", Kind: forms.FieldDate, Required: true},
			{Name: "active", Label: "Active", Kind: forms.FieldBoolean},
		},
		CrossRules: []forms.CrossRule{
			{
				Kind:       forms.CrossRuleDateNotBefore,
				Field:      "end_date",
				OtherField: "start_date",
				Message:    "End date must not be before start date",
			},
			{
				Kind:      forms.CrossRuleMaxWhenEquals,
				Field:     "discount_value",
				WhenField: "discount_type",
				Equals:    "percentage",
				Limit:     decimal.RequireFromString("100"),
				Message:   "Percentage discount must not exceed 100",
			},
		},
	}
}

func postSchema() *forms.Schema {
	return &forms.Schema{
		Entity:     "post",
		Collection: "posts",
		Fields: []forms.FieldSpec{
			{Name: "title", Label: "Title", Kind: forms.FieldString, Required: true},
			{Name: "author", Label: "Author", Kind: forms.FieldString, Required: true},
			{Name: "content", Label: "Content", Kind: forms.FieldText, Required: true},
			{Name: "tags", Label: "Tags", Kind: forms.FieldString},
			{Name: "published", Label: "Published", Kind: forms.FieldBoolean},
			{Name: "image", Label: "Cover image", Kind: forms.FieldImage, Required: true},
		},
	}
}

func gallerySchema() *forms.Schema {
	return &forms.Schema{
		Entity:     "gallery",
		Collection: "gallery",
		Fields: []forms.FieldSpec{
			{Name: "title", Label: "Title", Kind: forms.FieldString, Required: true},
			{Name: "caption", Label: "Caption", Kind: forms.FieldText},
			{Name: "image", Label: "Image", Kind: forms.FieldImage, Required: true},
		},
	}
}

func adminUserSchema() *forms.Schema {
	return &forms.Schema{
		Entity:        "admin_user",
		Collection:    "admin_users",
		IdentityField: "email",
		Privileged:    true,
		Fields: []forms.FieldSpec{
			{Name: "name", Label: "Name", Kind: forms.FieldString, Required: true},
			{Name: "email", Label: "Email", Kind: forms.FieldString, Required: true},
			{Name: "role", Label: "Role", Kind: forms.FieldSelect, Required: true, Options: []string{"admin", "superadmin"}},
			{Name: "active", Label: "Active", Kind: forms.FieldBoolean},
		},
	}
}
