package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sketchgen/capprep/internal/dataset"
	"github.com/sketchgen/capprep/internal/logger"
)

func newProcessConfig(root string, searchPaths ...string) ProcessConfig {
	return ProcessConfig{
		SearchPaths:  searchPaths,
		ImagesDir:    filepath.Join(root, "images"),
		TrainDir:     filepath.Join(root, "train"),
		ManifestPath: filepath.Join(root, "captions", "all_captions.csv"),
	}
}

func TestProcessService_Run(t *testing.T) {
	root := t.TempDir()
	capDir := filepath.Join(root, "text")
	cfg := newProcessConfig(root, filepath.Join(root, "does-not-exist"), capDir)

	// One caption sits in a subdirectory, the scan is recursive
	writeTestFile(t, filepath.Join(capDir, "nested", "000001.txt"), "  A woman   with a BIG\n\nsmile and puffy hair  ")
	writeTestFile(t, filepath.Join(capDir, "000002.txt"), "A man in a gray suit.")
	writeTestFile(t, filepath.Join(cfg.ImagesDir, "000001.jpg"), "img1")
	writeTestFile(t, filepath.Join(cfg.ImagesDir, "000002.png"), "img2")
	writeTestFile(t, filepath.Join(cfg.ImagesDir, "000009.png"), "img9")

	var out bytes.Buffer
	svc := NewProcessService(strings.NewReader("\n"), &out, logger.NewDefault(), cfg)

	stats, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.TotalCaptions != 2 {
		t.Errorf("expected 2 caption files, got %d", stats.TotalCaptions)
	}
	if stats.Success != 2 {
		t.Errorf("expected 2 processed, got %d", stats.Success)
	}
	if stats.Failed != 0 {
		t.Errorf("expected 0 failed, got %d", stats.Failed)
	}

	m, err := dataset.ReadManifest(cfg.ManifestPath)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	if len(m.Rows) != 2 {
		t.Fatalf("expected 2 manifest rows, got %d", len(m.Rows))
	}
	if m.Columns[0] != "image_id" || m.Columns[1] != "caption" {
		t.Errorf("unexpected manifest columns: %v", m.Columns)
	}
	// Caption paths sort lexically, so 000002.txt precedes nested/000001.txt
	if m.Rows[0][0] != "000002.png" {
		t.Errorf("expected first row image 000002.png, got %s", m.Rows[0][0])
	}
	if m.Rows[1][1] != "A woman with a BIG smile and puffy hair" {
		t.Errorf("whitespace not normalized: %q", m.Rows[1][1])
	}

	console := out.String()
	if !strings.Contains(console, "Found caption directory: "+capDir) {
		t.Errorf("expected auto-search announcement, got:\n%s", console)
	}
	if !strings.Contains(console, "First 3 processed captions:") {
		t.Errorf("expected sample listing, got:\n%s", console)
	}
	if !strings.Contains(console, "Processing complete: 2 captions processed, 0 failed") {
		t.Errorf("expected completion summary, got:\n%s", console)
	}
	if !strings.Contains(console, "Saved to: "+cfg.ManifestPath) {
		t.Errorf("expected manifest location, got:\n%s", console)
	}
}

func TestProcessService_ExplicitCaptionPath(t *testing.T) {
	root := t.TempDir()
	capDir := filepath.Join(root, "elsewhere")
	cfg := newProcessConfig(root, filepath.Join(root, "unused"))

	writeTestFile(t, filepath.Join(capDir, "000001.txt"), "A person with curly brown hair.")
	writeTestFile(t, filepath.Join(cfg.ImagesDir, "000001.jpg"), "img")

	var out bytes.Buffer
	svc := NewProcessService(strings.NewReader(capDir+"\n"), &out, logger.NewDefault(), cfg)

	stats, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Success != 1 {
		t.Errorf("expected 1 processed, got %d", stats.Success)
	}
}

func TestProcessService_MissingCaptionPath(t *testing.T) {
	root := t.TempDir()
	cfg := newProcessConfig(root, filepath.Join(root, "unused"))

	var out bytes.Buffer
	svc := NewProcessService(strings.NewReader("/definitely/not/a/dir\n"), &out, logger.NewDefault(), cfg)

	_, err := svc.Run(context.Background())
	if err == nil {
		t.Fatal("expected error for a nonexistent caption path")
	}
	if !strings.Contains(err.Error(), "does not exist") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestProcessService_PromptsForImageDir(t *testing.T) {
	root := t.TempDir()
	capDir := filepath.Join(root, "text")
	imgDir := filepath.Join(root, "pics")
	cfg := newProcessConfig(root, capDir)
	cfg.ImagesDir = filepath.Join(root, "missing-images")

	writeTestFile(t, filepath.Join(capDir, "000001.txt"), "A man with a thin mustache.")
	writeTestFile(t, filepath.Join(imgDir, "000001.jpg"), "img")

	var out bytes.Buffer
	in := strings.NewReader("\n" + imgDir + "\n")
	svc := NewProcessService(in, &out, logger.NewDefault(), cfg)

	stats, err := svc.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Success != 1 {
		t.Errorf("expected 1 processed, got %d", stats.Success)
	}
	if !strings.Contains(out.String(), "Enter image directory path: ") {
		t.Error("expected image directory prompt")
	}
}

func TestProcessService_NothingProcessed(t *testing.T) {
	root := t.TempDir()
	capDir := filepath.Join(root, "text")
	cfg := newProcessConfig(root, capDir)

	// Whitespace-only captions normalize to nothing
	writeTestFile(t, filepath.Join(capDir, "000001.txt"), "   \n\t  ")
	writeTestFile(t, filepath.Join(cfg.ImagesDir, "000001.jpg"), "img")

	var out bytes.Buffer
	svc := NewProcessService(strings.NewReader("\n"), &out, logger.NewDefault(), cfg)

	stats, err := svc.Run(context.Background())
	if !errors.Is(err, ErrNothingProcessed) {
		t.Fatalf("expected ErrNothingProcessed, got %v", err)
	}
	if stats == nil || stats.Failed != 1 {
		t.Errorf("expected stats with 1 failed, got %+v", stats)
	}
	if _, err := os.Stat(cfg.ManifestPath); !os.IsNotExist(err) {
		t.Error("manifest should not be written when nothing was processed")
	}
}

func TestProcessService_NoMatchingImages(t *testing.T) {
	root := t.TempDir()
	capDir := filepath.Join(root, "text")
	cfg := newProcessConfig(root, capDir)

	writeTestFile(t, filepath.Join(capDir, "000001.txt"), "A woman in a red dress.")
	if err := os.MkdirAll(cfg.ImagesDir, 0o755); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	svc := NewProcessService(strings.NewReader("\n"), &out, logger.NewDefault(), cfg)

	_, err := svc.Run(context.Background())
	if err == nil {
		t.Fatal("expected error when no caption matches an image")
	}
	if !strings.Contains(err.Error(), "no captions matched") {
		t.Errorf("unexpected error: %v", err)
	}
}
