package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftora/backoffice/api/middleware"
	"github.com/craftora/backoffice/internal/catalog"
	"github.com/craftora/backoffice/internal/forms"
	"github.com/craftora/backoffice/internal/imaging"
	"github.com/craftora/backoffice/internal/submit"
	"github.com/craftora/backoffice/pkg/auth"
	"github.com/craftora/backoffice/pkg/config"
	"github.com/craftora/backoffice/pkg/docstore"
	"github.com/craftora/backoffice/pkg/enums"
	"github.com/craftora/backoffice/pkg/imagehost"
	"github.com/craftora/backoffice/pkg/logger"
)

type fakeUploader struct {
	calls int
}

func (f *fakeUploader) Upload(_ context.Context, payload imagehost.Payload) (*imagehost.Outcome, error) {
	f.calls++
	return &imagehost.Outcome{URL: fmt.Sprintf("https://cdn.test/%s", payload.FileName)}, nil
}

type testHarness struct {
	drafts  *submit.Service
	entries *catalog.Service
	gateway docstore.Gateway
	logg    *logger.Logger
	router  chi.Router
	cap     auth.Capability
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	gateway := docstore.NewMemoryGateway()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	registry, err := catalog.NewRegistry()
	require.NoError(t, err)
	store, err := forms.NewStore(config.DraftsConfig{TTL: time.Hour, SweepInterval: time.Minute})
	require.NoError(t, err)
	normalizer, err := imaging.NewNormalizer(config.MediaConfig{MaxUploadBytes: 1 << 20, MaxDimension: 1920, JPEGQuality: 80})
	require.NoError(t, err)
	orchestrator, err := submit.NewOrchestrator(submit.Params{
		Gateway:  gateway,
		Uploader: &fakeUploader{},
		Logger:   logg,
	})
	require.NoError(t, err)
	drafts, err := submit.NewService(submit.ServiceParams{
		Registry:     registry,
		Store:        store,
		Normalizer:   normalizer,
		Orchestrator: orchestrator,
		Gateway:      gateway,
		Logger:       logg,
	})
	require.NoError(t, err)
	entries, err := catalog.NewService(registry, gateway, logg)
	require.NoError(t, err)

	h := &testHarness{
		drafts:  drafts,
		entries: entries,
		gateway: gateway,
		logg:    logg,
		cap:     auth.Capability{UserID: uuid.New(), Role: enums.AdminRoleAdmin},
	}
	h.router = h.buildRouter()
	return h
}

func (h *testHarness) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/drafts", func(r chi.Router) {
			r.Post("/", OpenDraft(h.drafts, h.logg))
			r.Route("/{draftID}", func(r chi.Router) {
				r.Get("/", ViewDraft(h.drafts, h.logg))
				r.Patch("/", UpdateDraftFields(h.drafts, h.logg))
				r.Delete("/", DiscardDraft(h.drafts, h.logg))
				r.Post("/submit", SubmitDraft(h.drafts, h.logg))
				r.Post("/images/{field}", StageDraftImage(h.drafts, h.logg))
				r.Delete("/images/{field}", RemoveDraftImage(h.drafts, h.logg))
				r.Get("/previews/{handle}", DraftPreview(h.drafts, h.logg))
				r.Post("/variants", AddDraftVariant(h.drafts, h.logg))
				r.Route("/variants/{variantID}", func(r chi.Router) {
					r.Patch("/", UpdateDraftVariant(h.drafts, h.logg))
					r.Delete("/", RemoveDraftVariant(h.drafts, h.logg))
					r.Post("/images/{field}", StageDraftVariantImage(h.drafts, h.logg))
					r.Delete("/images/{field}", RemoveDraftVariantImage(h.drafts, h.logg))
				})
			})
		})
		r.Route("/entities", func(r chi.Router) {
			r.Get("/", ListEntities(h.entries, h.logg))
			r.Get("/{entity}", ListDocuments(h.entries, h.logg))
			r.Get("/{entity}/{documentID}", GetDocument(h.entries, h.logg))
			r.Delete("/{entity}/{documentID}", DeleteDocument(h.entries, h.logg))
		})
	})
	return r
}

func (h *testHarness) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req = req.WithContext(middleware.WithCapability(req.Context(), h.cap))
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, req)
	return resp
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func (h *testHarness) openDraft(t *testing.T, entity string) submit.SessionView {
	t.Helper()
	resp := h.do(t, http.MethodPost, "/api/v1/drafts", map[string]string{"entity": entity})
	require.Equal(t, http.StatusCreated, resp.Code)
	var view submit.SessionView
	decodeData(t, resp, &view)
	return view
}

func pngUpload(t *testing.T, fieldFile string) (*bytes.Buffer, string) {
	t.Helper()
	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 16, 16))))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fieldFile)
	require.NoError(t, err)
	_, err = part.Write(img.Bytes())
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func (h *testHarness) stageImage(t *testing.T, base, field, fileName string) submit.SessionView {
	t.Helper()
	body, contentType := pngUpload(t, fileName)
	req := httptest.NewRequest(http.MethodPost, base+"/images/"+field, body)
	req.Header.Set("Content-Type", contentType)
	req = req.WithContext(middleware.WithCapability(req.Context(), h.cap))
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	var view submit.SessionView
	decodeData(t, resp, &view)
	return view
}

func TestOpenDraftRejectsUnknownEntity(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodPost, "/api/v1/drafts", map[string]string{"entity": "widget"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestOpenDraftRequiresEntity(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodPost, "/api/v1/drafts", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestDraftLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)
	view := h.openDraft(t, "brand")
	require.NotEqual(t, uuid.Nil, view.DraftID)
	base := "/api/v1/drafts/" + view.DraftID.String()

	resp := h.do(t, http.MethodPatch, base, map[string]any{
		"values": map[string]string{"name": "Acme", "website": "https://acme.example"},
	})
	require.Equal(t, http.StatusOK, resp.Code)
	var updated submit.SessionView
	decodeData(t, resp, &updated)
	assert.Equal(t, "Acme", updated.Values["name"])
	assert.NotContains(t, updated.Errors, "name")

	h.stageImage(t, base, "image", "logo.png")

	resp = h.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var outcome submit.SubmitView
	decodeData(t, resp, &outcome)
	assert.Equal(t, submit.StateSucceeded, outcome.State)
	assert.NotEmpty(t, outcome.DocumentID)

	doc, err := h.gateway.GetDocument(context.Background(), "brands", outcome.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", doc.Fields["name"])
}

func TestStageImageAndPreviewOverHTTP(t *testing.T) {
	h := newHarness(t)
	view := h.openDraft(t, "gallery")
	base := "/api/v1/drafts/" + view.DraftID.String()

	staged := h.stageImage(t, base, "image", "shot.png")
	slot := staged.Images["image"]
	require.Equal(t, forms.SlotPending, slot.State)
	require.NotEmpty(t, slot.Source)
	_, err := uuid.Parse(slot.Source)
	require.NoError(t, err, "pending source should be a preview handle")

	preview := h.do(t, http.MethodGet, base+"/previews/"+slot.Source, nil)
	require.Equal(t, http.StatusOK, preview.Code)
	assert.Equal(t, "image/png", preview.Header().Get("Content-Type"))
	assert.NotEmpty(t, preview.Body.Bytes())

	removed := h.do(t, http.MethodDelete, base+"/images/image", nil)
	require.Equal(t, http.StatusOK, removed.Code)
	var cleared submit.SessionView
	decodeData(t, removed, &cleared)
	assert.Equal(t, forms.SlotEmpty, cleared.Images["image"].State)
}

func TestStageImageRejectsMissingFilePart(t *testing.T) {
	h := newHarness(t)
	view := h.openDraft(t, "gallery")

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("note", "no file here"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/drafts/"+view.DraftID.String()+"/images/image", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req = req.WithContext(middleware.WithCapability(req.Context(), h.cap))
	resp := httptest.NewRecorder()
	h.router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestVariantRoutes(t *testing.T) {
	h := newHarness(t)
	view := h.openDraft(t, "product")
	base := "/api/v1/drafts/" + view.DraftID.String()

	resp := h.do(t, http.MethodPatch, base, map[string]any{
		"values": map[string]string{"has_variants": "true"},
	})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = h.do(t, http.MethodPost, base+"/variants", nil)
	require.Equal(t, http.StatusCreated, resp.Code)
	var withVariant submit.SessionView
	decodeData(t, resp, &withVariant)
	require.Len(t, withVariant.Variants, 1)
	variantID := withVariant.Variants[0].ID

	resp = h.do(t, http.MethodPatch, base+"/variants/"+variantID.String(), map[string]any{
		"values": map[string]string{"name": "Small / Red", "sku": "SKU-1"},
	})
	require.Equal(t, http.StatusOK, resp.Code)
	var updated submit.SessionView
	decodeData(t, resp, &updated)
	assert.Equal(t, "Small / Red", updated.Variants[0].Values["name"])

	resp = h.do(t, http.MethodDelete, base+"/variants/"+variantID.String(), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var removed submit.SessionView
	decodeData(t, resp, &removed)
	assert.Empty(t, removed.Variants)
}

func TestDraftRoutesRejectMalformedIDs(t *testing.T) {
	h := newHarness(t)
	resp := h.do(t, http.MethodGet, "/api/v1/drafts/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	view := h.openDraft(t, "brand")
	resp = h.do(t, http.MethodPatch, "/api/v1/drafts/"+view.DraftID.String()+"/variants/nope", map[string]any{"values": map[string]string{}})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestDiscardDraftOverHTTP(t *testing.T) {
	h := newHarness(t)
	view := h.openDraft(t, "brand")
	base := "/api/v1/drafts/" + view.DraftID.String()

	resp := h.do(t, http.MethodDelete, base, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = h.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
