package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sketchgen/capprep/internal/config"
	"github.com/sketchgen/capprep/internal/logger"
	"github.com/sketchgen/capprep/internal/service"
	"github.com/sketchgen/capprep/internal/storage"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "capprep-publish",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	trainDir := flag.String("train", "", "Training directory to upload (defaults to paths.train_dir)")
	manifestPath := flag.String("manifest", "", "Manifest CSV uploaded last (defaults to paths.manifest)")
	prefix := flag.String("prefix", "", "Object key prefix (defaults to storage.prefix)")
	force := flag.Bool("force", false, "Re-upload keys that already exist")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	if *trainDir == "" {
		*trainDir = cfg.Paths.TrainDir
	}
	if *manifestPath == "" {
		*manifestPath = cfg.Paths.Manifest
	}
	if *prefix == "" {
		*prefix = cfg.Storage.Prefix
	}

	appLogger.WithFields(logger.Fields{
		"train":  *trainDir,
		"bucket": cfg.Storage.Bucket,
		"prefix": *prefix,
		"force":  *force,
	}).Info("Starting publish")

	// Initialize S3-compatible storage (supports R2, S3, MinIO)
	objectStorage, err := storage.NewStorage(&storage.S3Config{
		Type:      storage.StorageType(cfg.Storage.Type),
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ensure bucket exists
	if err := objectStorage.EnsureBucket(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
	}

	publishService := service.NewPublishService(objectStorage, appLogger, *prefix)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	stats, err := publishService.Run(ctx, *trainDir, *manifestPath, &service.PublishOptions{
		Force: *force,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Publish failed")
	}
	appLogger.WithFields(logger.Fields{
		"uploaded":     stats.Uploaded,
		"skipped":      stats.Skipped,
		"failed":       stats.Failed,
		"bytes":        stats.Bytes,
		"manifest_url": stats.ManifestURL,
	}).Info("Publish completed")
}
