package forms

import (
	"fmt"
	"strconv"
	"time"

	pkgerrors "github.com/craftora/backoffice/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// Mode distinguishes a draft creating a new document from one editing an
// existing document.
type Mode string

const (
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// FormDraft is the per-session working copy of one entity form. It is owned
// exclusively by its draft session and discarded on navigation away or reset
// after a successful create.
type FormDraft struct {
	Entity     string
	Mode       Mode
	DocumentID string
	Values     map[string]string
	Slots      map[string]*ImageSlot
	Variants   []*Variant

	// CreatedAt is the stored document's creation timestamp, captured when
	// an edit draft is seeded so a full-replacement update writes it back.
	CreatedAt time.Time
}

// Variant is one row of a product's color/size collection. It mirrors a
// reduced FormDraft: its own scalar values plus its own image slots.
type Variant struct {
	ID     uuid.UUID
	Values map[string]string
	Slots  map[string]*ImageSlot
}

// SlotRef addresses one image slot anywhere in the draft, top-level or
// inside a variant row.
type SlotRef struct {
	FieldPath string
	Slot      *ImageSlot
}

// NewDraft builds an empty draft for the schema with every image slot in
// the empty state.
func NewDraft(schema *Schema, mode Mode, documentID string) *FormDraft {
	draft := &FormDraft{
		Entity:     schema.Entity,
		Mode:       mode,
		DocumentID: documentID,
		Values:     make(map[string]string),
		Slots:      make(map[string]*ImageSlot),
	}
	for _, name := range schema.ImageFields() {
		draft.Slots[name] = NewEmptySlot()
	}
	return draft
}

// SeedFromDocument fills an edit draft from a stored document: scalar fields
// become raw string values, image fields become persisted slots.
func (d *FormDraft) SeedFromDocument(schema *Schema, fields map[string]any) error {
	if created, ok := fields["created_at"].(time.Time); ok {
		d.CreatedAt = created
	}
	for _, field := range schema.Fields {
		value, ok := fields[field.Name]
		if !ok || value == nil {
			continue
		}
		if field.Kind == FieldImage {
			url, isString := value.(string)
			if !isString {
				return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("stored image field %q is not a url", field.Name))
			}
			d.Slots[field.Name] = NewPersistedSlot(url)
			continue
		}
		d.Values[field.Name] = stringifyStoredValue(value)
	}

	if schema.HasVariants() {
		rows, ok := fields["variants"].([]any)
		if !ok {
			return nil
		}
		for _, raw := range rows {
			row, isMap := raw.(map[string]any)
			if !isMap {
				continue
			}
			variant := newVariant(schema.Variant)
			for _, field := range schema.Variant.Fields {
				value, present := row[field.Name]
				if !present || value == nil {
					continue
				}
				if field.Kind == FieldImage {
					if url, isString := value.(string); isString {
						variant.Slots[field.Name] = NewPersistedSlot(url)
					}
					continue
				}
				variant.Values[field.Name] = stringifyStoredValue(value)
			}
			d.Variants = append(d.Variants, variant)
		}
	}
	return nil
}

// SetValues applies scalar updates, rejecting unknown or image fields.
func (d *FormDraft) SetValues(schema *Schema, updates map[string]string) error {
	for name, value := range updates {
		field, ok := schema.Field(name)
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown field %q", name))
		}
		if field.Kind == FieldImage {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("field %q is an image, stage it through the image endpoint", name))
		}
		d.Values[name] = value
	}
	return nil
}

// Slot returns the top-level slot for an image field.
func (d *FormDraft) Slot(name string) (*ImageSlot, error) {
	slot, ok := d.Slots[name]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown image field %q", name))
	}
	return slot, nil
}

// AddVariant appends an empty variant row and returns it.
func (d *FormDraft) AddVariant(schema *Schema) (*Variant, error) {
	if !schema.HasVariants() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("entity %q does not support variants", d.Entity))
	}
	variant := newVariant(schema.Variant)
	d.Variants = append(d.Variants, variant)
	return variant, nil
}

// VariantByID finds a variant row.
func (d *FormDraft) VariantByID(id uuid.UUID) (*Variant, error) {
	for _, variant := range d.Variants {
		if variant.ID == id {
			return variant, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("variant %s not found", id))
}

// RemoveVariant deletes a variant row, releasing any staged previews it held.
func (d *FormDraft) RemoveVariant(registry *PreviewRegistry, id uuid.UUID) error {
	for i, variant := range d.Variants {
		if variant.ID != id {
			continue
		}
		var released error
		for _, slot := range variant.Slots {
			if slot.State() == SlotPending {
				released = multierr.Append(released, slot.Clear(registry))
			}
		}
		d.Variants = append(d.Variants[:i], d.Variants[i+1:]...)
		return released
	}
	return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("variant %s not found", id))
}

// SetValues applies scalar updates to a variant row.
func (v *Variant) SetValues(spec *VariantSpec, updates map[string]string) error {
	for name, value := range updates {
		field, ok := spec.Field(name)
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown variant field %q", name))
		}
		if field.Kind == FieldImage {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("variant field %q is an image, stage it through the image endpoint", name))
		}
		v.Values[name] = value
	}
	return nil
}

// Slot returns the slot for a variant image field.
func (v *Variant) Slot(name string) (*ImageSlot, error) {
	slot, ok := v.Slots[name]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown variant image field %q", name))
	}
	return slot, nil
}

// AllSlots walks every image slot in the draft, top-level first, then
// variant rows in order.
func (d *FormDraft) AllSlots() []SlotRef {
	var refs []SlotRef
	for name, slot := range d.Slots {
		refs = append(refs, SlotRef{FieldPath: name, Slot: slot})
	}
	for i, variant := range d.Variants {
		for name, slot := range variant.Slots {
			refs = append(refs, SlotRef{
				FieldPath: fmt.Sprintf("variants[%d].%s", i, name),
				Slot:      slot,
			})
		}
	}
	return refs
}

// ReleaseAll releases every staged preview in the draft. Used on discard,
// expiry, and the post-create reset.
func (d *FormDraft) ReleaseAll(registry *PreviewRegistry) error {
	var released error
	for _, ref := range d.AllSlots() {
		if ref.Slot.State() == SlotPending {
			released = multierr.Append(released, ref.Slot.Clear(registry))
		}
	}
	return released
}

// Reset returns the draft to its empty defaults after a successful create,
// releasing all staged previews.
func (d *FormDraft) Reset(schema *Schema, registry *PreviewRegistry) error {
	err := d.ReleaseAll(registry)
	d.Values = make(map[string]string)
	d.Slots = make(map[string]*ImageSlot)
	for _, name := range schema.ImageFields() {
		d.Slots[name] = NewEmptySlot()
	}
	d.Variants = nil
	d.DocumentID = ""
	return err
}

func newVariant(spec *VariantSpec) *Variant {
	variant := &Variant{
		ID:     uuid.New(),
		Values: make(map[string]string),
		Slots:  make(map[string]*ImageSlot),
	}
	for _, name := range spec.ImageFields() {
		variant.Slots[name] = NewEmptySlot()
	}
	return variant
}

func stringifyStoredValue(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case bool:
		if typed {
			return "true"
		}
		return "false"
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(typed, 10)
	default:
		return fmt.Sprintf("%v", typed)
	}
}
