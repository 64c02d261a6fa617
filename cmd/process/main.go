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
)

func main() {
	// Prompts and progress share stdout, so logs go to stderr as text
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		Output:      os.Stderr,
		ServiceName: "capprep-process",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	trainDir := flag.String("train", "", "Training output directory (defaults to paths.train_dir)")
	manifestPath := flag.String("manifest", "./data/processed/processed_captions.csv", "Output CSV path")
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

	processService := service.NewProcessService(os.Stdin, os.Stdout, appLogger, service.ProcessConfig{
		ImagesDir:    cfg.Paths.ImagesDir,
		TrainDir:     *trainDir,
		ManifestPath: *manifestPath,
	})

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

	stats, err := processService.Run(ctx)
	if err != nil {
		appLogger.WithError(err).Fatal("Processing failed")
	}
	appLogger.WithFields(logger.Fields{
		"total":    stats.TotalCaptions,
		"success":  stats.Success,
		"failed":   stats.Failed,
		"manifest": stats.ManifestPath,
	}).Info("Processing completed")
}
