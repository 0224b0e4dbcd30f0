package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/craftora/backoffice/api/controllers"
	"github.com/craftora/backoffice/api/middleware"
	"github.com/craftora/backoffice/internal/catalog"
	"github.com/craftora/backoffice/internal/submit"
	"github.com/craftora/backoffice/pkg/config"
	"github.com/craftora/backoffice/pkg/logger"
	"github.com/craftora/backoffice/pkg/redis"
)

// RouterParams carry everything the HTTP surface depends on.
type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	Redis          *redis.Client
	DocStorePinger controllers.Pinger
	Drafts         *submit.Service
	Catalog        *catalog.Service
	// Gatherer serves /metrics; nil falls back to the default registry.
	Gatherer prometheus.Gatherer
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"document store": params.DocStorePinger,
			"redis":          params.Redis,
		}))
	})

	gatherer := params.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(params.Redis, cfg.Drafts.IdempotencyTTL, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/drafts", func(r chi.Router) {
			r.Post("/", controllers.OpenDraft(params.Drafts, logg))
			r.Route("/{draftID}", func(r chi.Router) {
				r.Get("/", controllers.ViewDraft(params.Drafts, logg))
				r.Patch("/", controllers.UpdateDraftFields(params.Drafts, logg))
				r.Delete("/", controllers.DiscardDraft(params.Drafts, logg))
				r.Post("/submit", controllers.SubmitDraft(params.Drafts, logg))

				r.Route("/images/{field}", func(r chi.Router) {
					r.Post("/", controllers.StageDraftImage(params.Drafts, logg))
					r.Delete("/", controllers.RemoveDraftImage(params.Drafts, logg))
				})
				r.Get("/previews/{handle}", controllers.DraftPreview(params.Drafts, logg))

				r.Route("/variants", func(r chi.Router) {
					r.Post("/", controllers.AddDraftVariant(params.Drafts, logg))
					r.Route("/{variantID}", func(r chi.Router) {
						r.Patch("/", controllers.UpdateDraftVariant(params.Drafts, logg))
						r.Delete("/", controllers.RemoveDraftVariant(params.Drafts, logg))
						r.Route("/images/{field}", func(r chi.Router) {
							r.Post("/", controllers.StageDraftVariantImage(params.Drafts, logg))
							r.Delete("/", controllers.RemoveDraftVariantImage(params.Drafts, logg))
						})
					})
				})
			})
		})

		r.Route("/entities", func(r chi.Router) {
			r.Get("/", controllers.ListEntities(params.Catalog, logg))
			r.Route("/{entity}", func(r chi.Router) {
				r.Get("/", controllers.ListDocuments(params.Catalog, logg))
				r.Get("/{documentID}", controllers.GetDocument(params.Catalog, logg))
				r.With(middleware.RequireSuperadmin(logg)).Delete("/{documentID}", controllers.DeleteDocument(params.Catalog, logg))
			})
		})
	})

	return r
}
