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
	"github.com/sketchgen/capprep/internal/source"
	"github.com/sketchgen/capprep/internal/source/directory"
	"github.com/sketchgen/capprep/internal/source/manifestsrc"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "capprep-generate",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	sourceType := flag.String("source", "directory", "Image source: directory or manifest")
	imagesDir := flag.String("images", "", "Image directory to caption (defaults to paths.images_dir)")
	manifestPath := flag.String("manifest", "", "Manifest CSV listing images, for -source=manifest (defaults to paths.manifest)")
	attrFile := flag.String("attr", "", "CelebA attribute CSV (defaults to paths.attr_file)")
	outputCSV := flag.String("output", "", "Output CSV path (defaults to paths.generated_file)")
	limit := flag.Int("limit", 0, "Maximum images to caption, 0 means all")
	force := flag.Bool("force", false, "Ignore cached VLM captions and re-query the model")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	if *imagesDir == "" {
		*imagesDir = cfg.Paths.ImagesDir
	}
	if *manifestPath == "" {
		*manifestPath = cfg.Paths.Manifest
	}
	if *attrFile == "" {
		*attrFile = cfg.Paths.AttrFile
	}
	if *outputCSV == "" {
		*outputCSV = cfg.Paths.GeneratedFile
	}
	if *limit == 0 {
		*limit = cfg.Generate.Limit
	}

	appLogger.WithFields(logger.Fields{
		"source": *sourceType,
		"images": *imagesDir,
		"model":  cfg.VLM.Model,
		"limit":  *limit,
		"force":  *force,
	}).Info("Starting caption generation")

	// Initialize the catalog. Catalog writes are best-effort: when the
	// database is unavailable the CSV output still lands.
	var (
		genRepo    *repository.GeneratedCaptionRepository
		vlmCapRepo *repository.VLMCaptionRepository
		runRepo    *repository.RunRepository
		sourceRepo *repository.SourceRepository
	)
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Warn("Catalog database unavailable, continuing without it")
	} else {
		genRepo = repository.NewGeneratedCaptionRepository(db)
		vlmCapRepo = repository.NewVLMCaptionRepository(db)
		runRepo = repository.NewRunRepository(db)
		sourceRepo = repository.NewSourceRepository(db)
	}

	// Initialize services
	vlmService := service.NewVLMService(&service.VLMConfig{
		Provider:      cfg.VLM.Provider,
		Model:         cfg.VLM.Model,
		FallbackModel: cfg.VLM.FallbackModel,
		APIKey:        cfg.VLM.APIKey,
		BaseURL:       cfg.VLM.BaseURL,
		MaxTokens:     cfg.VLM.MaxTokens,
		TimeoutSecs:   cfg.VLM.TimeoutSecs,
	})

	generateService := service.NewGenerateService(
		vlmService,
		genRepo,
		vlmCapRepo,
		runRepo,
		sourceRepo,
		appLogger,
		service.GenerateConfig{
			AttrFile:  *attrFile,
			OutputCSV: *outputCSV,
			MaxWords:  cfg.Clean.MaxWords,
		},
	)

	// Get image source
	var src source.Source
	switch *sourceType {
	case "directory":
		src = directory.NewAdapter(*imagesDir)
	case "manifest":
		src = manifestsrc.NewAdapter(*manifestPath, *imagesDir)
	default:
		appLogger.WithField("source", *sourceType).Fatal("Unknown source type")
	}

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

	stats, err := generateService.Run(ctx, src, *limit, &service.GenerateOptions{
		Force: *force,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Caption generation failed")
	}
	appLogger.WithFields(logger.Fields{
		"total":      stats.TotalImages,
		"generated":  stats.Generated,
		"styled":     stats.Styled,
		"fallback":   stats.Fallback,
		"cache_hits": stats.CacheHits,
		"failed":     stats.Failed,
		"manifest":   stats.ManifestPath,
	}).Info("Caption generation completed")
}
