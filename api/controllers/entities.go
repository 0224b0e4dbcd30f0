package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/craftora/backoffice/api/middleware"
	"github.com/craftora/backoffice/api/responses"
	"github.com/craftora/backoffice/api/validators"
	"github.com/craftora/backoffice/internal/catalog"
	"github.com/craftora/backoffice/pkg/logger"
)

const defaultListLimit = 50

// ListEntities returns the entity names the caller may open drafts for.
func ListEntities(svc *catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		capability := middleware.CapabilityFromContext(r.Context())
		responses.WriteSuccess(w, map[string]any{"entities": svc.Entities(capability)})
	}
}

// ListDocuments returns stored documents for one entity.
func ListDocuments(svc *catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity := chi.URLParam(r, "entity")
		limit := validators.ParseLimit(r, defaultListLimit)

		capability := middleware.CapabilityFromContext(r.Context())
		docs, err := svc.List(r.Context(), capability, entity, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"documents": docs})
	}
}

// GetDocument returns one stored document.
func GetDocument(svc *catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity := chi.URLParam(r, "entity")
		documentID := chi.URLParam(r, "documentID")

		capability := middleware.CapabilityFromContext(r.Context())
		doc, err := svc.Get(r.Context(), capability, entity, documentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, doc)
	}
}

// DeleteDocument removes a stored document.
func DeleteDocument(svc *catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entity := chi.URLParam(r, "entity")
		documentID := chi.URLParam(r, "documentID")

		capability := middleware.CapabilityFromContext(r.Context())
		if err := svc.Delete(r.Context(), capability, entity, documentID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
