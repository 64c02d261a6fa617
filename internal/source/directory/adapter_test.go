package directory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestFetchBatchPaging(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "c.png", "a.jpg", "b.JPG", "notes.txt", ".hidden.jpg")

	adapter := NewAdapter(dir)

	total, err := adapter.GetTotalCount()
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Fatalf("GetTotalCount = %d, want 3", total)
	}

	batch, cursor, err := adapter.FetchBatch(context.Background(), "", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 2 {
		t.Fatalf("first batch = %d items, want 2", len(batch))
	}
	if batch[0].Name != "a.jpg" || batch[1].Name != "b.JPG" {
		t.Errorf("first batch order: %q, %q", batch[0].Name, batch[1].Name)
	}
	if cursor != "2" {
		t.Errorf("cursor = %q, want 2", cursor)
	}

	batch, cursor, err = adapter.FetchBatch(context.Background(), cursor, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 1 || batch[0].Name != "c.png" {
		t.Errorf("second batch = %v", batch)
	}
	if cursor != "" {
		t.Errorf("cursor = %q, want empty at end", cursor)
	}

	batch, _, err = adapter.FetchBatch(context.Background(), "99", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 0 {
		t.Errorf("out-of-range batch = %v, want empty", batch)
	}
}

func TestFetchBatchInvalidCursor(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg")

	adapter := NewAdapter(dir)
	if _, _, err := adapter.FetchBatch(context.Background(), "not-a-number", 5); err == nil {
		t.Fatal("expected error for invalid cursor")
	}
}

func TestLoadItemsFormats(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.jpg", "b.jpeg", "c.png", "d.gif", "e.webp")

	adapter := NewAdapter(dir)
	batch, _, err := adapter.FetchBatch(context.Background(), "", 10)
	if err != nil {
		t.Fatal(err)
	}

	if len(batch) != 3 {
		t.Fatalf("got %d items, want 3 (gif and webp excluded)", len(batch))
	}
	if batch[0].Format != "jpeg" || batch[1].Format != "jpeg" || batch[2].Format != "png" {
		t.Errorf("formats: %s %s %s", batch[0].Format, batch[1].Format, batch[2].Format)
	}
}

func TestMissingDirectory(t *testing.T) {
	adapter := NewAdapter(filepath.Join(t.TempDir(), "missing"))
	if _, err := adapter.GetTotalCount(); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
