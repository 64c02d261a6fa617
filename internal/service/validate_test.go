package service

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sketchgen/capprep/internal/dataset"
	"github.com/sketchgen/capprep/internal/logger"
)

func TestValidateService_Run(t *testing.T) {
	root := t.TempDir()
	manifest := filepath.Join(root, "final_captions.csv")
	rows := [][]string{
		{"000001.jpg", "orig one", "A woman with long black hair, a pointy nose, and a warm smile on display."},
		{"000002.jpg", "orig two", "A man with a square jaw and short gray hair wearing thin glasses today."},
		{"000003.jpg", "orig three", "Short."},
	}
	if err := dataset.WriteManifest(manifest, dataset.ColumnsPrepared, rows); err != nil {
		t.Fatal(err)
	}

	trainDir := filepath.Join(root, "train")
	writeTestFile(t, filepath.Join(trainDir, "000001.jpg"), "img")
	writeTestFile(t, filepath.Join(trainDir, "000001.txt"), "caption")
	writeTestFile(t, filepath.Join(trainDir, "000002.jpg"), "img")
	writeTestFile(t, filepath.Join(trainDir, "000004.txt"), "caption")

	var out bytes.Buffer
	svc := NewValidateService(nil, nil, nil, logger.NewDefault(), &out, ValidateConfig{
		SampleSize: 2,
		Seed:       42,
		TrainDir:   trainDir,
	})

	report, err := svc.Run(context.Background(), manifest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.CaptionColumn != "cleaned_caption" {
		t.Errorf("expected cleaned_caption column, got %s", report.CaptionColumn)
	}
	if report.Stats.Count != 3 {
		t.Errorf("expected stats over 3 captions, got %d", report.Stats.Count)
	}
	// Two captions fall inside the default 10-30 word band
	if report.Stats.IdealCount != 2 {
		t.Errorf("expected 2 captions in the ideal band, got %d", report.Stats.IdealCount)
	}
	if len(report.Samples) != 2 {
		t.Errorf("expected 2 samples, got %d", len(report.Samples))
	}
	if !reflect.DeepEqual(report.MissingCaptions, []string{"000002"}) {
		t.Errorf("unexpected missing captions: %v", report.MissingCaptions)
	}
	if !reflect.DeepEqual(report.MissingImages, []string{"000004"}) {
		t.Errorf("unexpected missing images: %v", report.MissingImages)
	}
	if report.NearDupRan {
		t.Error("near-duplicate detection should not run when disabled")
	}

	console := out.String()
	for _, want := range []string{
		"CAPTION SAMPLES",
		"STATISTICS",
		"Good - very few duplicates!",
		"Image without caption: 000002",
		"Caption without image: 000004",
		"Found 2 pairing or duplication issues, review before training.",
	} {
		if !strings.Contains(console, want) {
			t.Errorf("expected console output to contain %q, got:\n%s", want, console)
		}
	}
}

func TestValidateService_ReadyForTraining(t *testing.T) {
	root := t.TempDir()
	manifest := filepath.Join(root, "final_captions.csv")
	rows := [][]string{
		{"000001.jpg", "orig", "A woman with long wavy brown hair and a bright, confident smile today."},
	}
	if err := dataset.WriteManifest(manifest, dataset.ColumnsPrepared, rows); err != nil {
		t.Fatal(err)
	}

	trainDir := filepath.Join(root, "train")
	writeTestFile(t, filepath.Join(trainDir, "000001.jpg"), "img")
	writeTestFile(t, filepath.Join(trainDir, "000001.txt"), "caption")

	var out bytes.Buffer
	svc := NewValidateService(nil, nil, nil, logger.NewDefault(), &out, ValidateConfig{
		TrainDir: trainDir,
	})

	report, err := svc.Run(context.Background(), manifest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.MissingCaptions) != 0 || len(report.MissingImages) != 0 {
		t.Errorf("expected clean pairing, got %v / %v", report.MissingCaptions, report.MissingImages)
	}

	console := out.String()
	if !strings.Contains(console, "Train dir pairing OK: 1 images, 1 captions") {
		t.Errorf("expected pairing summary, got:\n%s", console)
	}
	if !strings.Contains(console, "Captions look ready for training!") {
		t.Errorf("expected positive recommendation, got:\n%s", console)
	}
	if !strings.Contains(console, "Data is in: "+trainDir) {
		t.Errorf("expected train dir pointer, got:\n%s", console)
	}
}

func TestValidateService_DeterministicSampling(t *testing.T) {
	root := t.TempDir()
	manifest := filepath.Join(root, "captions.csv")
	rows := make([][]string, 30)
	for i := range rows {
		rows[i] = []string{
			fmt.Sprintf("%06d.jpg", i+1),
			fmt.Sprintf("A person with feature number %d in the frame.", i+1),
		}
	}
	if err := dataset.WriteManifest(manifest, dataset.ColumnsSimple, rows); err != nil {
		t.Fatal(err)
	}

	run := func() []CaptionSample {
		var out bytes.Buffer
		svc := NewValidateService(nil, nil, nil, logger.NewDefault(), &out, ValidateConfig{Seed: 42})
		report, err := svc.Run(context.Background(), manifest)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return report.Samples
	}

	first := run()
	second := run()

	if len(first) != 15 {
		t.Errorf("expected default sample size 15, got %d", len(first))
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("sampling should be deterministic for the same seed")
	}
}

func TestValidateService_NoCaptionColumn(t *testing.T) {
	root := t.TempDir()
	manifest := filepath.Join(root, "odd.csv")
	if err := dataset.WriteManifest(manifest, []string{"image", "text"}, [][]string{{"a.jpg", "hello"}}); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	svc := NewValidateService(nil, nil, nil, logger.NewDefault(), &out, ValidateConfig{})

	_, err := svc.Run(context.Background(), manifest)
	if err == nil {
		t.Fatal("expected error for manifest without a caption column")
	}
	if !strings.Contains(err.Error(), "no caption column") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateService_MissingManifest(t *testing.T) {
	var out bytes.Buffer
	svc := NewValidateService(nil, nil, nil, logger.NewDefault(), &out, ValidateConfig{})

	_, err := svc.Run(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	if err == nil {
		t.Fatal("expected error for a missing manifest")
	}
	if !strings.Contains(err.Error(), "failed to read manifest") {
		t.Errorf("unexpected error: %v", err)
	}
}
