package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"go-redflag-detector/internal/config"
	"go-redflag-detector/internal/container"
	"go-redflag-detector/internal/logger"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(cfg.LogLevel)

	c, err := container.NewContainer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SessionTTL > 0 {
		go c.Sessions().Run(ctx, cfg.SessionTTL/2)
	}

	// WriteTimeout leaves room for the reveal delay on top of the request budget
	server := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      c.Handler(),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout + cfg.Pipeline.RevealDelay + 5*time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"address":         cfg.ServerAddress(),
			"timeout":         cfg.RequestTimeout,
			"scoring_webhook": cfg.Scoring.WebhookURL != "",
			"ocr_engine":      cfg.OCR.Engine,
			"azure_images":    cfg.AzureEnabled(),
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}
	c.Publisher().Wait()

	logger.Info("Server exited")
}
