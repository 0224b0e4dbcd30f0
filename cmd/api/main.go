package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/craftora/backoffice/api/routes"
	"github.com/craftora/backoffice/internal/catalog"
	"github.com/craftora/backoffice/internal/forms"
	"github.com/craftora/backoffice/internal/imaging"
	"github.com/craftora/backoffice/internal/submit"
	"github.com/craftora/backoffice/pkg/config"
	"github.com/craftora/backoffice/pkg/docstore"
	"github.com/craftora/backoffice/pkg/imagehost"
	"github.com/craftora/backoffice/pkg/logger"
	"github.com/craftora/backoffice/pkg/metrics"
	"github.com/craftora/backoffice/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	gateway, err := docstore.NewFirestoreGateway(context.Background(), cfg.Firestore)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap firestore", err)
		os.Exit(1)
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			logg.Error(context.Background(), "error closing firestore", err)
		}
	}()

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	uploader, err := imagehost.New(cfg.ImageHost)
	if err != nil {
		logg.Error(context.Background(), "failed to create image host client", err)
		os.Exit(1)
	}

	normalizer, err := imaging.NewNormalizer(cfg.Media)
	if err != nil {
		logg.Error(context.Background(), "failed to create image normalizer", err)
		os.Exit(1)
	}

	registry, err := catalog.NewRegistry()
	if err != nil {
		logg.Error(context.Background(), "failed to build schema registry", err)
		os.Exit(1)
	}

	draftStore, err := forms.NewStore(cfg.Drafts)
	if err != nil {
		logg.Error(context.Background(), "failed to create draft store", err)
		os.Exit(1)
	}

	submissionMetrics := metrics.NewSubmissionMetrics(prometheus.DefaultRegisterer)

	orchestrator, err := submit.NewOrchestrator(submit.Params{
		Gateway:  gateway,
		Uploader: uploader,
		Logger:   logg,
		Metrics:  submissionMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create submission orchestrator", err)
		os.Exit(1)
	}

	draftService, err := submit.NewService(submit.ServiceParams{
		Registry:     registry,
		Store:        draftStore,
		Normalizer:   normalizer,
		Orchestrator: orchestrator,
		Gateway:      gateway,
		Logger:       logg,
		Metrics:      submissionMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create draft service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(registry, gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	go draftStore.RunSweeper(ctx, logg)

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:         cfg,
			Logger:         logg,
			Redis:          redisClient,
			DocStorePinger: gateway,
			Drafts:         draftService,
			Catalog:        catalogService,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	logg.Info(ctx, "starting api server")

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
			os.Exit(1)
		}
	}

	logg.Info(ctx, "api server shut down gracefully")
}
