package controllers

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/craftora/backoffice/api/middleware"
	"github.com/craftora/backoffice/api/responses"
	"github.com/craftora/backoffice/api/validators"
	"github.com/craftora/backoffice/internal/forms"
	"github.com/craftora/backoffice/internal/submit"
	pkgerrors "github.com/craftora/backoffice/pkg/errors"
	"github.com/craftora/backoffice/pkg/logger"
)

// maxImageFormBytes caps the multipart body read for image staging. The
// normalizer enforces its own per-image budget after decoding.
const maxImageFormBytes = 32 << 20

type openDraftRequest struct {
	Entity     string `json:"entity" validate:"required"`
	DocumentID string `json:"document_id,omitempty"`
}

type updateFieldsRequest struct {
	Values map[string]string `json:"values" validate:"required"`
}

// OpenDraft starts a create or edit session for an entity.
func OpenDraft(svc *submit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload openDraftRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		capability := middleware.CapabilityFromContext(r.Context())
		view, err := svc.Open(r.Context(), capability, strings.TrimSpace(payload.Entity), strings.TrimSpace(payload.DocumentID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// ViewDraft returns the current state of a draft session.
func ViewDraft(svc *submit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draftID, err := draftIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		capability := middleware.CapabilityFromContext(r.Context())
		view, err := svc.View(r.Context(), capability, draftID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// UpdateDraftFields applies scalar field changes to a draft.
func UpdateDraftFields(svc *submit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draftID, err := draftIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateFieldsRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		capability := middleware.CapabilityFromContext(r.Context())
		view, err := svc.UpdateFields(r.Context(), capability, draftID, payload.Values)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// StageDraftImage normalizes an uploaded file into a top-level image slot.
func StageDraftImage(svc *submit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draftID, err := draftIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		field := chi.URLParam(r, "field")

		fileName, data, err := readImageUpload(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		capability := middleware.CapabilityFromContext(r.Context())
		view, err := svc.StageImage(r.Context(), capability, draftID, field, fileName, data)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// RemoveDraftImage empties a top-level image slot.
func RemoveDraftImage(svc *submit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draftID, err := draftIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		field := chi.URLParam(r, "field")

		capability := middleware.CapabilityFromContext(r.Context())
		view, err := svc.RemoveImage(r.Context(), capability, draftID, field)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// DraftPreview streams the staged bytes behind a live preview handle.
func DraftPreview(svc *submit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draftID, err := draftIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		handle := chi.URLParam(r, "handle")
		if _, err := uuid.Parse(handle); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid preview handle"))
			return
		}

		capability := middleware.CapabilityFromContext(r.Context())
		data, mimeType, err := svc.Preview(r.Context(), capability, draftID, forms.PreviewHandle(handle))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", mimeType)
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

// AddDraftVariant appends an empty variant row.
func AddDraftVariant(svc *submit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draftID, err := draftIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		capability := middleware.CapabilityFromContext(r.Context())
		view, err := svc.AddVariant(r.Context(), capability, draftID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// UpdateDraftVariant applies scalar changes to one variant row.
func UpdateDraftVariant(svc *submit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draftID, variantID, err := variantParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateFieldsRequest
		if err := validators.DecodeJSONBody(w, r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		capability := middleware.CapabilityFromContext(r.Context())
		view, err := svc.UpdateVariant(r.Context(), capability, draftID, variantID, payload.Values)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// StageDraftVariantImage normalizes an uploaded file into a variant slot.
func StageDraftVariantImage(svc *submit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draftID, variantID, err := variantParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		field := chi.URLParam(r, "field")

		fileName, data, err := readImageUpload(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		capability := middleware.CapabilityFromContext(r.Context())
		view, err := svc.StageVariantImage(r.Context(), capability, draftID, variantID, field, fileName, data)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// RemoveDraftVariantImage empties a variant image slot.
func RemoveDraftVariantImage(svc *submit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draftID, variantID, err := variantParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		field := chi.URLParam(r, "field")

		capability := middleware.CapabilityFromContext(r.Context())
		view, err := svc.RemoveVariantImage(r.Context(), capability, draftID, variantID, field)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// RemoveDraftVariant deletes a variant row.
func RemoveDraftVariant(svc *submit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draftID, variantID, err := variantParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		capability := middleware.CapabilityFromContext(r.Context())
		view, err := svc.RemoveVariant(r.Context(), capability, draftID, variantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// SubmitDraft runs the submission pipeline for a draft.
func SubmitDraft(svc *submit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draftID, err := draftIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		capability := middleware.CapabilityFromContext(r.Context())
		view, err := svc.Submit(r.Context(), capability, draftID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}

// DiscardDraft tears down a session and releases its previews.
func DiscardDraft(svc *submit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		draftID, err := draftIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		capability := middleware.CapabilityFromContext(r.Context())
		if err := svc.Discard(r.Context(), capability, draftID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "discarded"})
	}
}

func draftIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "draftID"))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid draft id")
	}
	return id, nil
}

func variantParams(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	draftID, err := draftIDParam(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	variantID, err := uuid.Parse(chi.URLParam(r, "variantID"))
	if err != nil {
		return uuid.Nil, uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid variant id")
	}
	return draftID, variantID, nil
}

func readImageUpload(r *http.Request) (string, []byte, error) {
	if err := r.ParseMultipartForm(maxImageFormBytes); err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart body")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "file part required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageFormBytes))
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read file part")
	}
	return header.Filename, data, nil
}
