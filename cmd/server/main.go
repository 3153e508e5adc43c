package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Brownie44l1/medscan-api/internal/config"
	"github.com/Brownie44l1/medscan-api/internal/download"
	"github.com/Brownie44l1/medscan-api/internal/handlers"
	"github.com/Brownie44l1/medscan-api/internal/logger"
	"github.com/Brownie44l1/medscan-api/internal/metric"
	"github.com/Brownie44l1/medscan-api/internal/model"
	"github.com/Brownie44l1/medscan-api/internal/routes"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Init(cfg.AppName, cfg.LogLevel)
	metric.Init(cfg.MetricAddress, cfg.AppName, cfg.AppEnv, cfg.MetricSamplingRate)
	defer metric.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DownloadModelsOnStart {
		downloader := download.New(nil, cfg.ModelMinBytes, os.Stdout)
		if err := downloader.EnsureAll(ctx, download.ModelTargets(cfg)); err != nil {
			log.Fatal().Err(err).Msg("Failed to download models")
		}
	}

	registry, err := model.LoadRegistry(model.RegistryConfig{
		BrainModelPath: cfg.BrainModelPath,
		LungModelPath:  cfg.LungModelPath,
		OnnxRuntimeLib: cfg.OnnxRuntimeLib,
		Session:        model.SessionConfig{IntraOpThreads: cfg.IntraOpThreads},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load models")
	}
	defer registry.Close()

	handler := handlers.NewHandler(registry.Brain, registry.Lung)
	router := routes.SetupRoutes(handler, cfg.StaticDir, cfg.IsProduction())

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	go func() {
		log.Info().Msgf("Server starting on %s", cfg.Addr())
		log.Info().Msgf("Brain model: %s %v", cfg.BrainModelPath, model.BrainLabels)
		log.Info().Msgf("Lung model: %s %v", cfg.LungModelPath, model.LungLabels)
		log.Info().Msgf("Static files: %s", cfg.StaticDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
