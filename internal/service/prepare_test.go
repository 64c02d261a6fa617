package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sketchgen/capprep/internal/dataset"
	"github.com/sketchgen/capprep/internal/logger"
)

// writeTestFile creates a file with parent dirs, used as fixture setup
// across the service tests.
func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newPrepareConfig(root string) PrepareConfig {
	return PrepareConfig{
		CaptionsDir:  filepath.Join(root, "text"),
		ImagesDir:    filepath.Join(root, "images"),
		TrainDir:     filepath.Join(root, "train"),
		ManifestPath: filepath.Join(root, "captions", "final_captions.csv"),
	}
}

func TestPrepareService_Run(t *testing.T) {
	root := t.TempDir()
	cfg := newPrepareConfig(root)

	writeTestFile(t, filepath.Join(cfg.CaptionsDir, "000001.txt"), "This person has black hair. She is smiling.")
	writeTestFile(t, filepath.Join(cfg.CaptionsDir, "000002.txt"), "Hi")
	writeTestFile(t, filepath.Join(cfg.CaptionsDir, "000003.txt"), "The man has a big nose.")
	writeTestFile(t, filepath.Join(cfg.ImagesDir, "000001.jpg"), "jpeg-bytes")
	writeTestFile(t, filepath.Join(cfg.ImagesDir, "000002.png"), "png-bytes")

	svc := NewPrepareService(nil, nil, nil, logger.NewDefault(), cfg)

	stats, err := svc.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.TotalCaptions != 3 {
		t.Errorf("expected 3 caption files, got %d", stats.TotalCaptions)
	}
	// 000002 is under the minimum length, 000003 has no image
	if stats.Prepared != 1 {
		t.Errorf("expected 1 prepared pair, got %d", stats.Prepared)
	}
	if stats.Skipped != 2 {
		t.Errorf("expected 2 skipped, got %d", stats.Skipped)
	}
	if stats.Failed != 0 {
		t.Errorf("expected 0 failed, got %d", stats.Failed)
	}
	if stats.CleanedStats.Count != 1 {
		t.Errorf("expected cleaned stats over 1 caption, got %d", stats.CleanedStats.Count)
	}

	m, err := dataset.ReadManifest(cfg.ManifestPath)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	if len(m.Rows) != 1 {
		t.Fatalf("expected 1 manifest row, got %d", len(m.Rows))
	}
	row := m.Rows[0]
	if row[0] != "000001.jpg" {
		t.Errorf("expected image_id 000001.jpg, got %s", row[0])
	}
	if row[1] != "This person has black hair. She is smiling." {
		t.Errorf("original caption changed: %q", row[1])
	}
	if row[2] != "Black hair, smiling." {
		t.Errorf("unexpected cleaned caption: %q", row[2])
	}

	if _, err := os.Lstat(filepath.Join(cfg.TrainDir, "000001.jpg")); err != nil {
		t.Errorf("expected image in train dir: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(cfg.TrainDir, "000001.txt"))
	if err != nil {
		t.Fatalf("expected caption in train dir: %v", err)
	}
	if string(data) != row[2] {
		t.Errorf("train caption %q does not match manifest %q", data, row[2])
	}
}

func TestPrepareService_SkipsInvalidUTF8(t *testing.T) {
	root := t.TempDir()
	cfg := newPrepareConfig(root)

	if err := os.MkdirAll(cfg.CaptionsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.CaptionsDir, "000001.txt"), []byte{0xff, 0xfe, 'A', 'B', 'C', 'D', 'E'}, 0o644); err != nil {
		t.Fatal(err)
	}
	writeTestFile(t, filepath.Join(cfg.CaptionsDir, "000002.txt"), "A woman with blond hair and a wide smile.")
	writeTestFile(t, filepath.Join(cfg.ImagesDir, "000001.jpg"), "img1")
	writeTestFile(t, filepath.Join(cfg.ImagesDir, "000002.jpg"), "img2")

	svc := NewPrepareService(nil, nil, nil, logger.NewDefault(), cfg)

	stats, err := svc.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Prepared != 1 {
		t.Errorf("expected 1 prepared, got %d", stats.Prepared)
	}
	if stats.Skipped != 1 {
		t.Errorf("expected the undecodable caption skipped, got %d skipped", stats.Skipped)
	}
}

func TestPrepareService_NoCaptionFiles(t *testing.T) {
	root := t.TempDir()
	cfg := newPrepareConfig(root)
	if err := os.MkdirAll(cfg.CaptionsDir, 0o755); err != nil {
		t.Fatal(err)
	}

	svc := NewPrepareService(nil, nil, nil, logger.NewDefault(), cfg)

	_, err := svc.Run(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error when the caption dir is empty")
	}
	if !strings.Contains(err.Error(), "no caption files") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPrepareService_NoMatchingImages(t *testing.T) {
	root := t.TempDir()
	cfg := newPrepareConfig(root)

	writeTestFile(t, filepath.Join(cfg.CaptionsDir, "000001.txt"), "A man wearing a dark hat and eyeglasses.")
	if err := os.MkdirAll(cfg.ImagesDir, 0o755); err != nil {
		t.Fatal(err)
	}

	svc := NewPrepareService(nil, nil, nil, logger.NewDefault(), cfg)

	_, err := svc.Run(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error when nothing matches")
	}
	if !strings.Contains(err.Error(), "no image-caption pairs matched") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestPrepareService_Limit(t *testing.T) {
	root := t.TempDir()
	cfg := newPrepareConfig(root)

	for _, stem := range []string{"000001", "000002", "000003"} {
		writeTestFile(t, filepath.Join(cfg.CaptionsDir, stem+".txt"), "This woman has wavy hair and high cheekbones.")
		writeTestFile(t, filepath.Join(cfg.ImagesDir, stem+".jpg"), "img")
	}

	svc := NewPrepareService(nil, nil, nil, logger.NewDefault(), cfg)

	stats, err := svc.Run(context.Background(), &PrepareOptions{Limit: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalCaptions != 2 {
		t.Errorf("expected limit to cap considered captions at 2, got %d", stats.TotalCaptions)
	}
	if stats.Prepared != 2 {
		t.Errorf("expected 2 prepared, got %d", stats.Prepared)
	}
}
