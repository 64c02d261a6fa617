package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sketchgen/capprep/internal/config"
	"github.com/sketchgen/capprep/internal/logger"
	"github.com/sketchgen/capprep/internal/repository"
	"github.com/sketchgen/capprep/internal/service"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "capprep-prepare",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	captionsDir := flag.String("captions", "", "Caption .txt directory (defaults to paths.captions_dir)")
	imagesDir := flag.String("images", "", "Image directory (defaults to paths.images_dir)")
	trainDir := flag.String("train", "", "Training output directory (defaults to paths.train_dir)")
	manifestPath := flag.String("manifest", "", "Manifest CSV path (defaults to paths.manifest)")
	limit := flag.Int("limit", 0, "Maximum caption files to process, 0 means all")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	if *captionsDir == "" {
		*captionsDir = cfg.Paths.CaptionsDir
	}
	if *imagesDir == "" {
		*imagesDir = cfg.Paths.ImagesDir
	}
	if *trainDir == "" {
		*trainDir = cfg.Paths.TrainDir
	}
	if *manifestPath == "" {
		*manifestPath = cfg.Paths.Manifest
	}

	appLogger.WithFields(logger.Fields{
		"captions": *captionsDir,
		"images":   *imagesDir,
		"train":    *trainDir,
		"limit":    *limit,
	}).Info("Starting preparation")

	// Initialize the catalog. Catalog writes are best-effort: when the
	// database is unavailable the filesystem outputs still land.
	var (
		pairRepo   *repository.PairRepository
		runRepo    *repository.RunRepository
		sourceRepo *repository.SourceRepository
	)
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Warn("Catalog database unavailable, continuing without it")
	} else {
		pairRepo = repository.NewPairRepository(db)
		runRepo = repository.NewRunRepository(db)
		sourceRepo = repository.NewSourceRepository(db)
	}

	prepareService := service.NewPrepareService(
		pairRepo,
		runRepo,
		sourceRepo,
		appLogger,
		service.PrepareConfig{
			CaptionsDir:  *captionsDir,
			ImagesDir:    *imagesDir,
			TrainDir:     *trainDir,
			ManifestPath: *manifestPath,
			MinChars:     cfg.Clean.MinChars,
			MaxWords:     cfg.Clean.MaxWords,
		},
	)

	// Handle graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	stats, err := prepareService.Run(ctx, &service.PrepareOptions{Limit: *limit})
	if err != nil {
		appLogger.WithError(err).Fatal("Preparation failed")
	}
	appLogger.WithFields(logger.Fields{
		"total":    stats.TotalCaptions,
		"prepared": stats.Prepared,
		"skipped":  stats.Skipped,
		"failed":   stats.Failed,
		"linked":   stats.Linked,
		"manifest": stats.ManifestPath,
	}).Info("Preparation completed")
}
