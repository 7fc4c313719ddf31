// Package main provides the entry point for the YouTube Downloader service.
// @title YouTube Downloader API
// @version 1.0
// @description Resolves YouTube links, reports video metadata and streams video or audio downloads.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:5000
// @BasePath /

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	_ "github.com/denisAlshanov/ytgrab/docs" // Import for swagger docs
	"github.com/denisAlshanov/ytgrab/internal/api/handlers"
	"github.com/denisAlshanov/ytgrab/internal/api/router"
	"github.com/denisAlshanov/ytgrab/internal/config"
	"github.com/denisAlshanov/ytgrab/internal/metrics"
	"github.com/denisAlshanov/ytgrab/internal/services/streamer"
	"github.com/denisAlshanov/ytgrab/internal/services/youtube"
	"github.com/denisAlshanov/ytgrab/internal/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	utils.ConfigureLogger(cfg.Log.Level, cfg.Log.Format)
	logger := utils.GetLogger()
	logger.Info("Starting YouTube Downloader service")

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.Metrics.Prefix)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The extractor initializes in the background; requests made before it
	// is ready are answered with 503.
	youtubeClient := youtube.NewClient(&cfg.YouTube, nil, m)
	youtubeClient.Start(ctx)
	go func() {
		if err := youtubeClient.WaitReady(ctx); err != nil {
			if !errors.Is(err, context.Canceled) {
				logger.Errorf("YouTube client failed to initialize: %v", err)
			}
			return
		}
		logger.Info("YouTube client ready")
	}()

	videoHandler := handlers.NewVideoHandler(youtubeClient, streamer.New(cfg.Download.BufferSize, m))
	healthHandler := handlers.NewHealthHandler(youtubeClient)

	r := router.NewRouter(cfg, videoHandler, healthHandler, m)
	srv := r.Server()

	go func() {
		logger.Infof("Starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown did not finish: %v", err)
		_ = srv.Close()
	}

	logger.Info("Server shutdown complete")
}
