package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"stockwatch/internal/api"
	"stockwatch/internal/catalog"
	"stockwatch/internal/config"
	"stockwatch/internal/database"
	"stockwatch/internal/engine"
	"stockwatch/internal/logging"
	"stockwatch/internal/pipeline"
	"stockwatch/internal/schedule"
	"stockwatch/internal/service"
	"stockwatch/internal/sink"
	"stockwatch/internal/store"
	"stockwatch/internal/watcher"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Environment)

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	interestStore := store.NewInterestStore(db)
	releaseStore := store.NewReleaseStore(db)
	tagRouteStore := store.NewTagRouteStore(db)

	eng := engine.New()
	interest := service.NewInterestService(interestStore, eng)
	if err := interest.Load(); err != nil {
		logger.Fatal().Err(err).Msg("failed to load interest list")
	}
	logger.Info().Int("entries", eng.Size()).Msg("interest list loaded")

	router := sink.NewRouter(tagRouteStore)
	if err := router.Reload(); err != nil {
		logger.Fatal().Err(err).Msg("failed to load tag routes")
	}

	sched := schedule.New(releaseStore)
	cat := catalog.NewClient(cfg.CatalogURL, logger)

	hub := sink.NewHub(logger)
	out := sink.Multi{sink.NewLogSink(logger, router), hub}

	watchers := buildWatchers(cfg, logger)
	if len(watchers) == 0 {
		logger.Warn().Msg("no watchers configured; only calendar alerts will fire")
	}

	pipe := pipeline.New(watchers, eng, sched, cat, out, pipeline.Options{
		QueueSize:        cfg.QueueSize,
		SyncInterval:     time.Duration(cfg.CatalogSyncMinutes) * time.Minute,
		DigestHourUTC:    cfg.DigestHourUTC,
		DigestMinuteUTC:  cfg.DigestMinuteUTC,
		DigestWindowDays: cfg.DigestWindowDays,
		ShutdownGrace:    time.Duration(cfg.ShutdownGraceSecond) * time.Second,
	}, logger)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	apiGroup := r.Group("/api/v1")
	api.SetupRoutes(apiGroup, interest, router, sched, hub, out, eng, logger)

	server := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("command server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("command server failed")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		cancel()
	}()

	err = pipe.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownGraceSecond)*time.Second)
	defer shutdownCancel()
	if serr := server.Shutdown(shutdownCtx); serr != nil {
		logger.Warn().Err(serr).Msg("command server shutdown")
	}

	if err != nil {
		logger.Error().Err(err).Msg("pipeline shutdown")
		os.Exit(1)
	}
	logger.Info().Msg("goodbye")
}

func buildWatchers(cfg *config.Config, logger zerolog.Logger) []watcher.Watcher {
	var watchers []watcher.Watcher
	if cfg.MarketplacePublicKey != "" && cfg.MarketplacePrivateKey != "" && len(cfg.MarketplaceSKUs) > 0 {
		watchers = append(watchers, watcher.NewMarketplaceWatcher(
			cfg.MarketplaceAPIURL, cfg.MarketplacePublicKey, cfg.MarketplacePrivateKey, cfg.MarketplaceSKUs, logger))
	}
	if len(cfg.ProductPageURLs) > 0 {
		watchers = append(watchers, watcher.NewPageWatcher(cfg.ProductPageURLs, logger))
	}
	if len(cfg.PartnerFeedURLs) > 0 {
		watchers = append(watchers, watcher.NewFeedWatcher(cfg.PartnerFeedURLs, logger))
	}
	return watchers
}
