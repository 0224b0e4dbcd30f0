package submit

import (
	"context"
	"fmt"

	"github.com/craftora/backoffice/internal/catalog"
	"github.com/craftora/backoffice/internal/forms"
	"github.com/craftora/backoffice/internal/imaging"
	"github.com/craftora/backoffice/pkg/auth"
	"github.com/craftora/backoffice/pkg/docstore"
	pkgerrors "github.com/craftora/backoffice/pkg/errors"
	"github.com/craftora/backoffice/pkg/logger"
	"github.com/craftora/backoffice/pkg/metrics"
	"github.com/google/uuid"
)

// Service is the draft-session facade the HTTP layer talks to: open and
// mutate drafts, stage images, and hand completed drafts to the
// orchestrator.
type Service struct {
	registry     *catalog.Registry
	store        *forms.Store
	normalizer   *imaging.Normalizer
	orchestrator *Orchestrator
	gateway      docstore.Gateway
	logg         *logger.Logger
	metrics      *metrics.SubmissionMetrics
}

// ServiceParams configure the draft service.
type ServiceParams struct {
	Registry     *catalog.Registry
	Store        *forms.Store
	Normalizer   *imaging.Normalizer
	Orchestrator *Orchestrator
	Gateway      docstore.Gateway
	Logger       *logger.Logger
	Metrics      *metrics.SubmissionMetrics
}

// NewService builds the draft service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Registry == nil {
		return nil, fmt.Errorf("schema registry required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("draft store required")
	}
	if params.Normalizer == nil {
		return nil, fmt.Errorf("image normalizer required")
	}
	if params.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("document gateway required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		registry:     params.Registry,
		store:        params.Store,
		normalizer:   params.Normalizer,
		orchestrator: params.Orchestrator,
		gateway:      params.Gateway,
		logg:         params.Logger,
		metrics:      params.Metrics,
	}, nil
}

// ImageView is the frontend-facing state of one image slot.
type ImageView struct {
	State forms.SlotState `json:"state"`
	// Source is what the frontend renders: the stored URL for persisted
	// slots, the preview handle for staged ones.
	Source string `json:"source,omitempty"`
}

// VariantView is one variant row of a session view.
type VariantView struct {
	ID     uuid.UUID            `json:"id"`
	Values map[string]string    `json:"values"`
	Images map[string]ImageView `json:"images"`
}

// SessionView is the full state of a draft session returned to the admin
// frontend, validation errors included.
type SessionView struct {
	DraftID    uuid.UUID              `json:"draft_id"`
	Entity     string                 `json:"entity"`
	Mode       forms.Mode             `json:"mode"`
	DocumentID string                 `json:"document_id,omitempty"`
	Values     map[string]string      `json:"values"`
	Images     map[string]ImageView   `json:"images"`
	Variants   []VariantView          `json:"variants,omitempty"`
	Errors     forms.ValidationResult `json:"errors,omitempty"`
}

// SubmitView is the outcome of a submission run returned to the frontend.
type SubmitView struct {
	State       State                  `json:"state"`
	DocumentID  string                 `json:"document_id,omitempty"`
	Errors      forms.ValidationResult `json:"errors,omitempty"`
	FailedField string                 `json:"failed_field,omitempty"`
	Message     string                 `json:"message,omitempty"`
}

// Open starts a draft session. An empty documentID opens a create draft; a
// non-empty one loads the stored document and opens an edit draft over it.
func (s *Service) Open(ctx context.Context, capability auth.Capability, entity, documentID string) (*SessionView, error) {
	schema, err := s.registry.SchemaFor(entity, capability)
	if err != nil {
		return nil, err
	}

	mode := forms.ModeCreate
	draft := forms.NewDraft(schema, mode, "")
	if documentID != "" {
		mode = forms.ModeEdit
		doc, getErr := s.gateway.GetDocument(ctx, schema.Collection, documentID)
		if getErr != nil {
			return nil, getErr
		}
		draft = forms.NewDraft(schema, mode, documentID)
		if seedErr := draft.SeedFromDocument(schema, doc.Fields); seedErr != nil {
			return nil, seedErr
		}
	}

	session := s.store.Open(capability.UserID, draft)
	s.metrics.SetOpenDrafts(s.store.Len())

	opened := s.logg.WithDraftID(ctx, session.ID.String())
	opened = s.logg.WithEntity(opened, entity)
	s.logg.Info(opened, "draft opened")

	session.LockDraft()
	defer session.UnlockDraft()
	return s.view(schema, session), nil
}

// View returns the current state of a session, revalidated wholesale.
func (s *Service) View(ctx context.Context, capability auth.Capability, draftID uuid.UUID) (*SessionView, error) {
	schema, session, err := s.resolve(capability, draftID)
	if err != nil {
		return nil, err
	}
	defer session.UnlockDraft()
	return s.view(schema, session), nil
}

// UpdateFields applies scalar field changes to the draft.
func (s *Service) UpdateFields(ctx context.Context, capability auth.Capability, draftID uuid.UUID, values map[string]string) (*SessionView, error) {
	schema, session, err := s.resolveMutable(capability, draftID)
	if err != nil {
		return nil, err
	}
	defer session.UnlockDraft()
	if err := session.Draft.SetValues(schema, values); err != nil {
		return nil, err
	}
	return s.view(schema, session), nil
}

// StageImage normalizes an uploaded file and stages it on a top-level slot,
// replacing (and releasing) any previously staged preview.
func (s *Service) StageImage(ctx context.Context, capability auth.Capability, draftID uuid.UUID, field, fileName string, data []byte) (*SessionView, error) {
	schema, session, err := s.resolveMutable(capability, draftID)
	if err != nil {
		return nil, err
	}
	defer session.UnlockDraft()
	slot, err := session.Draft.Slot(field)
	if err != nil {
		return nil, err
	}
	if err := s.stage(ctx, session, slot, fileName, data); err != nil {
		return nil, err
	}
	return s.view(schema, session), nil
}

// RemoveImage empties a top-level slot.
func (s *Service) RemoveImage(ctx context.Context, capability auth.Capability, draftID uuid.UUID, field string) (*SessionView, error) {
	schema, session, err := s.resolveMutable(capability, draftID)
	if err != nil {
		return nil, err
	}
	defer session.UnlockDraft()
	slot, err := session.Draft.Slot(field)
	if err != nil {
		return nil, err
	}
	if err := slot.Clear(session.Previews); err != nil {
		return nil, err
	}
	return s.view(schema, session), nil
}

// AddVariant appends an empty variant row.
func (s *Service) AddVariant(ctx context.Context, capability auth.Capability, draftID uuid.UUID) (*SessionView, error) {
	schema, session, err := s.resolveMutable(capability, draftID)
	if err != nil {
		return nil, err
	}
	defer session.UnlockDraft()
	if _, err := session.Draft.AddVariant(schema); err != nil {
		return nil, err
	}
	return s.view(schema, session), nil
}

// UpdateVariant applies scalar changes to one variant row.
func (s *Service) UpdateVariant(ctx context.Context, capability auth.Capability, draftID, variantID uuid.UUID, values map[string]string) (*SessionView, error) {
	schema, session, err := s.resolveMutable(capability, draftID)
	if err != nil {
		return nil, err
	}
	defer session.UnlockDraft()
	if !schema.HasVariants() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("entity %q does not support variants", schema.Entity))
	}
	variant, err := session.Draft.VariantByID(variantID)
	if err != nil {
		return nil, err
	}
	if err := variant.SetValues(schema.Variant, values); err != nil {
		return nil, err
	}
	return s.view(schema, session), nil
}

// StageVariantImage stages an image on a variant row's slot.
func (s *Service) StageVariantImage(ctx context.Context, capability auth.Capability, draftID, variantID uuid.UUID, field, fileName string, data []byte) (*SessionView, error) {
	schema, session, err := s.resolveMutable(capability, draftID)
	if err != nil {
		return nil, err
	}
	defer session.UnlockDraft()
	variant, err := session.Draft.VariantByID(variantID)
	if err != nil {
		return nil, err
	}
	slot, err := variant.Slot(field)
	if err != nil {
		return nil, err
	}
	if err := s.stage(ctx, session, slot, fileName, data); err != nil {
		return nil, err
	}
	return s.view(schema, session), nil
}

// RemoveVariantImage empties a variant row's slot.
func (s *Service) RemoveVariantImage(ctx context.Context, capability auth.Capability, draftID, variantID uuid.UUID, field string) (*SessionView, error) {
	schema, session, err := s.resolveMutable(capability, draftID)
	if err != nil {
		return nil, err
	}
	defer session.UnlockDraft()
	variant, err := session.Draft.VariantByID(variantID)
	if err != nil {
		return nil, err
	}
	slot, err := variant.Slot(field)
	if err != nil {
		return nil, err
	}
	if err := slot.Clear(session.Previews); err != nil {
		return nil, err
	}
	return s.view(schema, session), nil
}

// RemoveVariant deletes a variant row and releases its staged previews.
func (s *Service) RemoveVariant(ctx context.Context, capability auth.Capability, draftID, variantID uuid.UUID) (*SessionView, error) {
	schema, session, err := s.resolveMutable(capability, draftID)
	if err != nil {
		return nil, err
	}
	defer session.UnlockDraft()
	if err := session.Draft.RemoveVariant(session.Previews, variantID); err != nil {
		return nil, err
	}
	return s.view(schema, session), nil
}

// Preview returns the staged bytes behind a live preview handle. The
// registry has its own lock, so the draft lock is not needed here.
func (s *Service) Preview(ctx context.Context, capability auth.Capability, draftID uuid.UUID, handle forms.PreviewHandle) ([]byte, string, error) {
	_, session, err := s.lookup(capability, draftID)
	if err != nil {
		return nil, "", err
	}
	data, mimeType, ok := session.Previews.Get(handle)
	if !ok {
		return nil, "", pkgerrors.New(pkgerrors.CodeNotFound, "preview not found")
	}
	return data, mimeType, nil
}

// Submit runs the submission pipeline on the draft. The orchestrator takes
// the draft lock itself, so the session is handed over unlocked.
func (s *Service) Submit(ctx context.Context, capability auth.Capability, draftID uuid.UUID) (*SubmitView, error) {
	schema, session, err := s.lookup(capability, draftID)
	if err != nil {
		return nil, err
	}

	result, err := s.orchestrator.Submit(ctx, schema, session)
	if err != nil {
		return nil, err
	}

	view := &SubmitView{
		State:       result.State,
		DocumentID:  result.DocumentID,
		Errors:      result.FieldErrors,
		FailedField: result.FailurePath,
	}
	if result.Err != nil {
		if typed := pkgerrors.As(result.Err); typed != nil {
			view.Message = typed.Message()
		} else {
			view.Message = result.Err.Error()
		}
	}
	return view, nil
}

// Discard closes a session and releases everything it staged.
func (s *Service) Discard(ctx context.Context, capability auth.Capability, draftID uuid.UUID) error {
	session, err := s.store.Get(draftID, capability.UserID)
	if err != nil {
		return err
	}
	if session.Submitting() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "draft is mid-submission")
	}
	err = s.store.Discard(draftID, capability.UserID)
	s.metrics.SetOpenDrafts(s.store.Len())
	return err
}

func (s *Service) stage(ctx context.Context, session *forms.Session, slot *forms.ImageSlot, fileName string, data []byte) error {
	normalized, err := s.normalizer.Normalize(fileName, data)
	if err != nil {
		return err
	}
	_, err = slot.Stage(session.Previews, normalized)
	return err
}

// lookup loads a session and re-checks the schema gate for the caller. It
// does not lock the draft.
func (s *Service) lookup(capability auth.Capability, draftID uuid.UUID) (*forms.Schema, *forms.Session, error) {
	session, err := s.store.Get(draftID, capability.UserID)
	if err != nil {
		return nil, nil, err
	}
	schema, err := s.registry.SchemaFor(session.Draft.Entity, capability)
	if err != nil {
		return nil, nil, err
	}
	return schema, session, nil
}

// resolve loads a session and returns it with the draft lock held. Callers
// must UnlockDraft when done; concurrent requests for the same draft
// serialize here instead of racing over the draft's maps.
func (s *Service) resolve(capability auth.Capability, draftID uuid.UUID) (*forms.Schema, *forms.Session, error) {
	schema, session, err := s.lookup(capability, draftID)
	if err != nil {
		return nil, nil, err
	}
	session.LockDraft()
	return schema, session, nil
}

// resolveMutable additionally refuses edits while a submission is running.
// The check runs under the draft lock, so a submission that acquires its
// guard first holds the lock and this either waits it out or conflicts.
func (s *Service) resolveMutable(capability auth.Capability, draftID uuid.UUID) (*forms.Schema, *forms.Session, error) {
	schema, session, err := s.resolve(capability, draftID)
	if err != nil {
		return nil, nil, err
	}
	if session.Submitting() {
		session.UnlockDraft()
		return nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "draft is mid-submission")
	}
	return schema, session, nil
}

func (s *Service) view(schema *forms.Schema, session *forms.Session) *SessionView {
	draft := session.Draft

	images := make(map[string]ImageView, len(draft.Slots))
	for name, slot := range draft.Slots {
		images[name] = ImageView{State: slot.State(), Source: slot.DisplaySource()}
	}

	var variants []VariantView
	for _, variant := range draft.Variants {
		rowImages := make(map[string]ImageView, len(variant.Slots))
		for name, slot := range variant.Slots {
			rowImages[name] = ImageView{State: slot.State(), Source: slot.DisplaySource()}
		}
		variants = append(variants, VariantView{
			ID:     variant.ID,
			Values: variant.Values,
			Images: rowImages,
		})
	}

	view := &SessionView{
		DraftID:    session.ID,
		Entity:     draft.Entity,
		Mode:       draft.Mode,
		DocumentID: draft.DocumentID,
		Values:     draft.Values,
		Images:     images,
		Variants:   variants,
	}
	if errs := forms.Validate(schema, draft); !errs.Valid() {
		view.Errors = errs
	}
	return view
}
