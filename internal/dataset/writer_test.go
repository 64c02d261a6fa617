package dataset

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriterPlace(t *testing.T) {
	srcDir := t.TempDir()
	trainDir := filepath.Join(t.TempDir(), "train")

	imgPath := filepath.Join(srcDir, "000001.jpg")
	if err := os.WriteFile(imgPath, []byte("jpegdata"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWriter(trainDir)
	if err != nil {
		t.Fatal(err)
	}

	res, err := w.Place(imgPath, "000001.jpg", "A young woman with long hair.")
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if res.Existed {
		t.Error("image reported as existing on first placement")
	}

	// Image lands either as a symlink or a copy, depending on the platform.
	if _, err := os.Stat(res.ImagePath); err != nil {
		t.Fatalf("placed image missing: %v", err)
	}

	caption, err := os.ReadFile(filepath.Join(trainDir, "000001.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(caption) != "A young woman with long hair." {
		t.Errorf("caption = %q", caption)
	}
}

func TestWriterPlaceKeepsExistingImage(t *testing.T) {
	srcDir := t.TempDir()
	trainDir := filepath.Join(t.TempDir(), "train")

	imgPath := filepath.Join(srcDir, "000002.jpg")
	if err := os.WriteFile(imgPath, []byte("new"), 0644); err != nil {
		t.Fatal(err)
	}

	w, err := NewWriter(trainDir)
	if err != nil {
		t.Fatal(err)
	}

	// Pre-place a different image under the same name.
	existing := filepath.Join(trainDir, "000002.jpg")
	if err := os.WriteFile(existing, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}

	res, err := w.Place(imgPath, "000002.jpg", "caption one")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Existed {
		t.Error("expected Existed for pre-placed image")
	}

	data, err := os.ReadFile(existing)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "old" {
		t.Errorf("existing image was overwritten: %q", data)
	}

	// The caption is rewritten on every placement.
	res, err = w.Place(imgPath, "000002.jpg", "caption two")
	if err != nil {
		t.Fatal(err)
	}
	caption, err := os.ReadFile(res.CaptionPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(caption) != "caption two" {
		t.Errorf("caption = %q, want caption two", caption)
	}
}

func TestWriterPlaceMissingSource(t *testing.T) {
	trainDir := filepath.Join(t.TempDir(), "train")
	w, err := NewWriter(trainDir)
	if err != nil {
		t.Fatal(err)
	}

	// Symlink creation may succeed for a missing source; the link then
	// dangles and reading it fails. Either way the pair must not count as
	// cleanly placed with content.
	res, err := w.Place(filepath.Join(t.TempDir(), "missing.jpg"), "missing.jpg", "caption")
	if err == nil {
		if _, statErr := os.Stat(res.ImagePath); statErr == nil {
			t.Error("expected missing source to produce no readable image")
		}
	}
}
