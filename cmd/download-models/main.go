package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Brownie44l1/medscan-api/internal/config"
	"github.com/Brownie44l1/medscan-api/internal/download"
	"github.com/Brownie44l1/medscan-api/internal/logger"
	"github.com/rs/zerolog/log"
)

// download-models fetches the brain and lung artifacts to the paths the server
// loads them from. Files already larger than MODEL_MIN_BYTES are left alone.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logger.Init(cfg.AppName+"-download", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	downloader := download.New(nil, cfg.ModelMinBytes, os.Stdout)
	if err := downloader.EnsureAll(ctx, download.ModelTargets(cfg)); err != nil {
		log.Fatal().Err(err).Msg("Model download failed")
	}
	log.Info().Msg("Models ready")
}
