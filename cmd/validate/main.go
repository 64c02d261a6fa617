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
	// Report tables render on stdout, so logs go to stderr as text
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		Output:      os.Stderr,
		ServiceName: "capprep-validate",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	manifestPath := flag.String("manifest", "", "Manifest CSV to validate (defaults to paths.manifest)")
	trainDir := flag.String("train", "", "Training directory to cross-check (defaults to paths.train_dir)")
	samples := flag.Int("samples", 0, "Number of random captions to print, 0 uses config")
	seed := flag.Int64("seed", 0, "Sampling seed, 0 uses config")
	nearDup := flag.Bool("neardup", false, "Force near-duplicate detection on")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	if *manifestPath == "" {
		*manifestPath = cfg.Paths.Manifest
	}
	if *trainDir == "" {
		*trainDir = cfg.Paths.TrainDir
	}
	if *samples == 0 {
		*samples = cfg.Validate.SampleSize
	}
	if *seed == 0 {
		*seed = cfg.Validate.Seed
	}
	nearDupEnabled := *nearDup || cfg.Validate.NearDup.Enabled

	// Near-duplicate detection needs the embedding API and Qdrant. Both are
	// optional; failures here degrade to warnings and validation still runs.
	var (
		embeddingService *service.EmbeddingService
		qdrantRepo       *repository.QdrantRepository
		vectorRepo       *repository.CaptionVectorRepository
	)
	if nearDupEnabled {
		embeddingService = service.NewEmbeddingService(&service.EmbeddingConfig{
			Provider:   cfg.Embedding.Provider,
			Model:      cfg.Embedding.Model,
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Dimensions: cfg.Embedding.Dimensions,
		})

		qdrantRepo, err = repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
			Host:            cfg.Qdrant.Host,
			Port:            cfg.Qdrant.Port,
			Collection:      cfg.Qdrant.Collection,
			APIKey:          cfg.Qdrant.APIKey,
			UseTLS:          cfg.Qdrant.UseTLS,
			VectorDimension: cfg.Embedding.Dimensions,
		})
		if err != nil {
			appLogger.WithError(err).Warn("Qdrant unavailable, near-duplicate detection will be skipped")
			qdrantRepo = nil
		} else {
			defer qdrantRepo.Close()
		}

		if db, dbErr := repository.InitDB(&cfg.Database); dbErr != nil {
			appLogger.WithError(dbErr).Warn("Catalog database unavailable, vector bookkeeping disabled")
		} else {
			vectorRepo = repository.NewCaptionVectorRepository(db)
		}
	}

	validateService := service.NewValidateService(
		embeddingService,
		qdrantRepo,
		vectorRepo,
		appLogger,
		os.Stdout,
		service.ValidateConfig{
			SampleSize:       *samples,
			Seed:             *seed,
			IdealMinWords:    cfg.Validate.IdealMinWords,
			IdealMaxWords:    cfg.Validate.IdealMaxWords,
			TrainDir:         *trainDir,
			Collection:       cfg.Qdrant.Collection,
			NearDupEnabled:   nearDupEnabled,
			NearDupThreshold: cfg.Validate.NearDup.Threshold,
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

	report, err := validateService.Run(ctx, *manifestPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Validation failed")
	}
	appLogger.WithFields(logger.Fields{
		"captions":         report.Stats.Count,
		"missing_captions": len(report.MissingCaptions),
		"missing_images":   len(report.MissingImages),
		"near_dups":        len(report.NearDups),
	}).Info("Validation completed")
}
