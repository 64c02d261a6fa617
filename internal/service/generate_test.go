package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sketchgen/capprep/internal/dataset"
	"github.com/sketchgen/capprep/internal/logger"
	"github.com/sketchgen/capprep/internal/source/directory"
)

func newVLMTestServer(t *testing.T, captionText string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"` + captionText + `"}}]}`))
	}))
}

func TestGenerateService_Run(t *testing.T) {
	root := t.TempDir()
	imgDir := filepath.Join(root, "images")
	writeTestFile(t, filepath.Join(imgDir, "000001.jpg"), "img1")
	writeTestFile(t, filepath.Join(imgDir, "000002.jpg"), "img2")

	// Only 000001 has an attribute row, 000002 keeps the VLM caption
	attrFile := filepath.Join(root, "list_attr_celeba.csv")
	writeTestFile(t, attrFile, "image_id,Male,Smiling,Black_Hair,Beard\n000001.jpg,1,1,1,-1\n")

	server := newVLMTestServer(t, "A young man with short dark hair.")
	defer server.Close()

	vlm := NewVLMService(&VLMConfig{Model: "vlm-test", APIKey: "k", BaseURL: server.URL})
	outCSV := filepath.Join(root, "generated_captions.csv")

	svc := NewGenerateService(vlm, nil, nil, nil, nil, logger.NewDefault(), GenerateConfig{
		AttrFile:  attrFile,
		OutputCSV: outCSV,
	})

	stats, err := svc.Run(context.Background(), directory.NewAdapter(imgDir), 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if stats.TotalImages != 2 {
		t.Errorf("expected 2 images, got %d", stats.TotalImages)
	}
	if stats.Generated != 2 {
		t.Errorf("expected 2 generated, got %d", stats.Generated)
	}
	if stats.Styled != 1 {
		t.Errorf("expected 1 styled caption, got %d", stats.Styled)
	}
	if stats.Fallback != 1 {
		t.Errorf("expected 1 VLM fallback caption, got %d", stats.Fallback)
	}

	m, err := dataset.ReadManifest(outCSV)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}
	if m.Columns[0] != "image" || m.Columns[1] != "caption" {
		t.Errorf("unexpected manifest columns: %v", m.Columns)
	}
	if len(m.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(m.Rows))
	}
	if m.Rows[0][0] != "000001.jpg" {
		t.Errorf("expected first row 000001.jpg, got %s", m.Rows[0][0])
	}
	if m.Rows[0][1] != "A male suspect with black hair, no beard, and a smiling expression." {
		t.Errorf("unexpected styled caption: %q", m.Rows[0][1])
	}
	if m.Rows[1][1] != "A young man with short dark hair." {
		t.Errorf("unexpected fallback caption: %q", m.Rows[1][1])
	}
}

func TestGenerateService_NoAttributeTable(t *testing.T) {
	root := t.TempDir()
	imgDir := filepath.Join(root, "images")
	writeTestFile(t, filepath.Join(imgDir, "000001.png"), "img")

	server := newVLMTestServer(t, "A woman with wavy red hair and green eyes.")
	defer server.Close()

	vlm := NewVLMService(&VLMConfig{Model: "vlm-test", APIKey: "k", BaseURL: server.URL})

	svc := NewGenerateService(vlm, nil, nil, nil, nil, logger.NewDefault(), GenerateConfig{
		OutputCSV: filepath.Join(root, "generated.csv"),
	})

	stats, err := svc.Run(context.Background(), directory.NewAdapter(imgDir), 0, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Styled != 0 {
		t.Errorf("expected no styled captions without a table, got %d", stats.Styled)
	}
	if stats.Fallback != 1 {
		t.Errorf("expected 1 fallback caption, got %d", stats.Fallback)
	}
}

func TestGenerateService_EmptySource(t *testing.T) {
	root := t.TempDir()
	imgDir := filepath.Join(root, "images")
	writeTestFile(t, filepath.Join(imgDir, "notes.md"), "not an image")

	server := newVLMTestServer(t, "unused")
	defer server.Close()

	vlm := NewVLMService(&VLMConfig{Model: "m", APIKey: "k", BaseURL: server.URL})
	svc := NewGenerateService(vlm, nil, nil, nil, nil, logger.NewDefault(), GenerateConfig{
		OutputCSV: filepath.Join(root, "generated.csv"),
	})

	_, err := svc.Run(context.Background(), directory.NewAdapter(imgDir), 0, nil)
	if err == nil {
		t.Fatal("expected error for a source without images")
	}
	if !strings.Contains(err.Error(), "no image files found") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestGenerateService_Limit(t *testing.T) {
	root := t.TempDir()
	imgDir := filepath.Join(root, "images")
	for _, name := range []string{"000001.jpg", "000002.jpg", "000003.jpg"} {
		writeTestFile(t, filepath.Join(imgDir, name), "img")
	}

	server := newVLMTestServer(t, "A man with a square jaw.")
	defer server.Close()

	vlm := NewVLMService(&VLMConfig{Model: "m", APIKey: "k", BaseURL: server.URL})
	svc := NewGenerateService(vlm, nil, nil, nil, nil, logger.NewDefault(), GenerateConfig{
		OutputCSV: filepath.Join(root, "generated.csv"),
	})

	stats, err := svc.Run(context.Background(), directory.NewAdapter(imgDir), 2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TotalImages != 2 {
		t.Errorf("expected limit to stop at 2 images, got %d", stats.TotalImages)
	}
}

func TestGenerateService_AllCaptionsFail(t *testing.T) {
	root := t.TempDir()
	imgDir := filepath.Join(root, "images")
	writeTestFile(t, filepath.Join(imgDir, "000001.jpg"), "img1")
	writeTestFile(t, filepath.Join(imgDir, "000002.jpg"), "img2")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	vlm := NewVLMService(&VLMConfig{Model: "m", APIKey: "k", BaseURL: server.URL})
	outCSV := filepath.Join(root, "generated.csv")
	svc := NewGenerateService(vlm, nil, nil, nil, nil, logger.NewDefault(), GenerateConfig{
		OutputCSV: outCSV,
	})

	stats, err := svc.Run(context.Background(), directory.NewAdapter(imgDir), 0, nil)
	if err != nil {
		t.Fatalf("per-image failures should not abort the run: %v", err)
	}
	if stats.Failed != 2 {
		t.Errorf("expected 2 failed, got %d", stats.Failed)
	}
	if stats.Generated != 0 {
		t.Errorf("expected 0 generated, got %d", stats.Generated)
	}

	m, err := dataset.ReadManifest(outCSV)
	if err != nil {
		t.Fatalf("manifest should still be written: %v", err)
	}
	if len(m.Rows) != 0 {
		t.Errorf("expected empty manifest, got %d rows", len(m.Rows))
	}
}
