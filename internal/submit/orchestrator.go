package submit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/craftora/backoffice/internal/forms"
	"github.com/craftora/backoffice/pkg/docstore"
	pkgerrors "github.com/craftora/backoffice/pkg/errors"
	"github.com/craftora/backoffice/pkg/imagehost"
	"github.com/craftora/backoffice/pkg/logger"
	"github.com/craftora/backoffice/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// State names a phase of the submission pipeline.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateUploading  State = "uploading"
	StatePersisting State = "persisting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

const defaultMaxConcurrentUploads = 4

// Result is the terminal outcome of one submission run.
type Result struct {
	State      State
	DocumentID string

	// FieldErrors is set when validation stopped the run before any
	// network work. The draft returns to idle with these surfaced.
	FieldErrors forms.ValidationResult

	// FailurePath names the slot whose upload failed, when one did.
	FailurePath string

	// Err carries the typed cause of a failed run.
	Err error
}

// Params configure the orchestrator.
type Params struct {
	Gateway              docstore.Gateway
	Uploader             imagehost.Uploader
	Logger               *logger.Logger
	Metrics              *metrics.SubmissionMetrics
	MaxConcurrentUploads int
}

// Orchestrator drives a draft through validation, image upload, and
// persistence. One orchestrator serves all entity types; the schema tells it
// what the draft means.
type Orchestrator struct {
	gateway    docstore.Gateway
	uploader   imagehost.Uploader
	logg       *logger.Logger
	metrics    *metrics.SubmissionMetrics
	maxUploads int
	now        func() time.Time
	newDocID   func() string
}

// NewOrchestrator builds the submission pipeline.
func NewOrchestrator(params Params) (*Orchestrator, error) {
	if params.Gateway == nil {
		return nil, fmt.Errorf("document gateway required")
	}
	if params.Uploader == nil {
		return nil, fmt.Errorf("image uploader required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	maxUploads := params.MaxConcurrentUploads
	if maxUploads <= 0 {
		maxUploads = defaultMaxConcurrentUploads
	}
	return &Orchestrator{
		gateway:    params.Gateway,
		uploader:   params.Uploader,
		logg:       params.Logger,
		metrics:    params.Metrics,
		maxUploads: maxUploads,
		now:        time.Now,
		newDocID:   docstore.NewDocumentID,
	}, nil
}

// Submit runs the pipeline for one draft session. A session accepts only one
// run at a time; a second call while one is in flight is refused with a
// state conflict.
//
// Uploads that succeeded before a later failure are not rolled back: the
// remote host keeps the created objects and the affected slots are marked
// persisted, so a retry does not upload them again.
func (o *Orchestrator) Submit(ctx context.Context, schema *forms.Schema, session *forms.Session) (*Result, error) {
	if schema == nil || session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "schema and session are required")
	}
	if !session.TryAcquireSubmit() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "a submission is already running for this draft")
	}
	defer session.ReleaseSubmit()

	// The run reads and mutates the draft throughout; holding the draft
	// lock keeps concurrent field or image requests from racing it.
	session.LockDraft()
	defer session.UnlockDraft()

	start := o.now()
	draft := session.Draft
	ctx = o.logg.WithDraftID(ctx, session.ID.String())
	ctx = o.logg.WithEntity(ctx, draft.Entity)

	result := o.run(ctx, schema, session)

	elapsed := o.now().Sub(start)
	o.metrics.ObserveSubmission(draft.Entity, string(result.State), elapsed)
	switch result.State {
	case StateSucceeded:
		done := o.logg.WithDocumentID(ctx, result.DocumentID)
		o.logg.Info(done, "submission succeeded")
	case StateIdle:
		o.logg.Info(ctx, "submission stopped on validation errors")
	default:
		o.logg.Error(ctx, "submission failed", result.Err)
	}
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, schema *forms.Schema, session *forms.Session) *Result {
	draft := session.Draft

	o.logg.Debug(ctx, "validating draft")
	if fieldErrors := forms.Validate(schema, draft); !fieldErrors.Valid() {
		return &Result{State: StateIdle, FieldErrors: fieldErrors}
	}

	if err := o.checkIdentityConflict(ctx, schema, draft); err != nil {
		return &Result{State: StateFailed, Err: err}
	}

	o.logg.Debug(ctx, "uploading staged images")
	if path, err := o.uploadPending(ctx, schema, session); err != nil {
		return &Result{State: StateFailed, FailurePath: path, Err: err}
	}

	o.logg.Debug(ctx, "persisting document")
	documentID, err := o.persist(ctx, schema, draft)
	if err != nil {
		return &Result{State: StateFailed, Err: err}
	}

	if draft.Mode == forms.ModeCreate {
		if err := draft.Reset(schema, session.Previews); err != nil {
			// The document is saved; a stale preview handle is worth a
			// warning but not a failed submission.
			o.logg.Warn(o.logg.WithField(ctx, "release_error", err.Error()), "post-create reset left previews behind")
		}
	}
	return &Result{State: StateSucceeded, DocumentID: documentID}
}

// checkIdentityConflict refuses to persist a record whose identifying code
// already belongs to a different document. Codes compare case-insensitively
// through the normalized sibling field persisted alongside the original.
func (o *Orchestrator) checkIdentityConflict(ctx context.Context, schema *forms.Schema, draft *forms.FormDraft) error {
	identity := scalarIdentityValue(schema, draft)
	if identity == "" {
		return nil
	}

	matches, err := o.gateway.QueryByField(ctx, schema.Collection, normalizedFieldName(schema.IdentityField), identity)
	if err != nil {
		return err
	}
	for _, match := range matches {
		if match.ID != draft.DocumentID {
			return pkgerrors.New(
				pkgerrors.CodeDuplicateIdentifier,
				fmt.Sprintf("%s %q is already in use", schema.IdentityField, draft.Values[schema.IdentityField]),
			)
		}
	}
	return nil
}

// uploadPending pushes every staged slot to the image host, persisted slots
// are reused as-is. Independent slots upload concurrently; the first failure
// cancels the rest and fails the run. Slots whose upload completed are
// flipped to persisted immediately so their preview handles are released
// and a retry skips them.
func (o *Orchestrator) uploadPending(ctx context.Context, schema *forms.Schema, session *forms.Session) (string, error) {
	draft := session.Draft
	variantsOn := schema.HasVariants() && parseToggle(draft.Values[schema.VariantToggleField])

	var pending []forms.SlotRef
	for _, ref := range draft.AllSlots() {
		if ref.Slot.State() != forms.SlotPending {
			continue
		}
		// Variant rows left behind while the toggle is off never reach
		// the payload, so their images are not uploaded either.
		if !variantsOn && strings.HasPrefix(ref.FieldPath, "variants[") {
			continue
		}
		pending = append(pending, ref)
	}
	if len(pending) == 0 {
		return "", nil
	}

	var (
		mu          sync.Mutex
		failurePath string
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(o.maxUploads)
	for _, ref := range pending {
		group.Go(func() error {
			staged := ref.Slot.Pending()
			outcome, err := o.uploader.Upload(groupCtx, imagehost.Payload{
				Bytes:    staged.Image.Bytes,
				FileName: staged.Image.FileName,
				MimeType: staged.Image.MimeType,
			})
			if err != nil {
				o.metrics.IncUpload("error")
				mu.Lock()
				if failurePath == "" {
					failurePath = ref.FieldPath
				}
				mu.Unlock()
				return pkgerrors.Wrap(pkgerrors.CodeUploadFailed, err, fmt.Sprintf("upload failed for %s", ref.FieldPath))
			}
			o.metrics.IncUpload("ok")

			mu.Lock()
			defer mu.Unlock()
			return ref.Slot.Persist(session.Previews, outcome.URL)
		})
	}

	if err := group.Wait(); err != nil {
		mu.Lock()
		path := failurePath
		mu.Unlock()
		return path, err
	}
	return "", nil
}

// persist assembles the final typed payload and performs exactly one create
// or update against the document store.
func (o *Orchestrator) persist(ctx context.Context, schema *forms.Schema, draft *forms.FormDraft) (string, error) {
	payload, err := forms.CoerceValues(schema, draft)
	if err != nil {
		return "", err
	}

	for _, name := range schema.ImageFields() {
		slot := draft.Slots[name]
		if slot.State() == forms.SlotPersisted {
			payload[name] = slot.URL()
		}
	}

	if identity := scalarIdentityValue(schema, draft); identity != "" {
		payload[normalizedFieldName(schema.IdentityField)] = identity
	}

	if schema.HasVariants() && parseToggle(draft.Values[schema.VariantToggleField]) {
		rows := make([]any, 0, len(draft.Variants))
		for _, variant := range draft.Variants {
			row, rowErr := forms.CoerceVariantValues(schema.Variant, variant)
			if rowErr != nil {
				return "", rowErr
			}
			for _, name := range schema.Variant.ImageFields() {
				slot := variant.Slots[name]
				if slot.State() == forms.SlotPersisted {
					row[name] = slot.URL()
				}
			}
			rows = append(rows, row)
		}
		payload["variants"] = rows
	}

	now := o.now().UTC()
	payload["updated_at"] = now

	if draft.Mode == forms.ModeCreate {
		documentID := o.newDocID()
		payload["created_at"] = now
		if err := o.gateway.CreateDocument(ctx, schema.Collection, documentID, payload); err != nil {
			return "", err
		}
		return documentID, nil
	}

	if draft.DocumentID == "" {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "edit draft has no document id")
	}
	// Updates replace the whole document, so the seeded creation timestamp
	// has to be written back or the edit would erase it.
	if !draft.CreatedAt.IsZero() {
		payload["created_at"] = draft.CreatedAt
	}
	if err := o.gateway.UpdateDocument(ctx, schema.Collection, draft.DocumentID, payload); err != nil {
		return "", err
	}
	return draft.DocumentID, nil
}

// scalarIdentityValue returns the normalized identifying code of the draft,
// or "" when the schema has none or the draft is in variant mode (variant
// codes are validated for in-collection uniqueness instead).
func scalarIdentityValue(schema *forms.Schema, draft *forms.FormDraft) string {
	if schema.IdentityField == "" {
		return ""
	}
	if _, ok := schema.Field(schema.IdentityField); !ok {
		return ""
	}
	if schema.HasVariants() && parseToggle(draft.Values[schema.VariantToggleField]) {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(draft.Values[schema.IdentityField]))
}

func normalizedFieldName(field string) string {
	return field + "_normalized"
}

func parseToggle(raw string) bool {
	return strings.TrimSpace(raw) == "true"
}
