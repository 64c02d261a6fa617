package dataset

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestManifestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "captions", "final_captions.csv")

	rows := [][]string{
		{"000001.jpg", "This person is smiling.", "Smiling."},
		{"000002.jpg", `caption with "quotes", commas`, "Cleaned, with commas."},
		{"000003.jpg", "multi\nline caption", "Multi line."},
	}

	if err := WriteManifest(path, ColumnsPrepared, rows); err != nil {
		t.Fatalf("WriteManifest: %v", err)
	}

	m, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}

	if !reflect.DeepEqual(m.Columns, ColumnsPrepared) {
		t.Errorf("Columns = %v, want %v", m.Columns, ColumnsPrepared)
	}
	if !reflect.DeepEqual(m.Rows, rows) {
		t.Errorf("Rows = %v, want %v", m.Rows, rows)
	}
}

func TestCaptionColumnPreference(t *testing.T) {
	m := &Manifest{Columns: []string{"image_id", "caption", "cleaned_caption"}}
	i, name, err := m.CaptionColumn()
	if err != nil {
		t.Fatal(err)
	}
	if name != "cleaned_caption" || i != 2 {
		t.Errorf("got %q at %d, want cleaned_caption at 2", name, i)
	}

	m = &Manifest{Columns: []string{"image_id", "caption"}}
	i, name, err = m.CaptionColumn()
	if err != nil {
		t.Fatal(err)
	}
	if name != "caption" || i != 1 {
		t.Errorf("got %q at %d, want caption at 1", name, i)
	}

	m = &Manifest{Columns: []string{"image_id", "text"}}
	if _, _, err := m.CaptionColumn(); err == nil {
		t.Fatal("expected error for missing caption column")
	}
}

func TestImageColumn(t *testing.T) {
	m := &Manifest{Columns: []string{"image", "caption"}}
	i, ok := m.ImageColumn()
	if !ok || i != 0 {
		t.Errorf("ImageColumn = %d,%v, want 0,true", i, ok)
	}

	m = &Manifest{Columns: []string{"image", "image_id", "caption"}}
	i, ok = m.ImageColumn()
	if !ok || i != 1 {
		t.Errorf("ImageColumn = %d,%v, want image_id preferred at 1", i, ok)
	}
}

func TestReadManifestPadsShortRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "m.csv")
	content := "image_id,original_caption,cleaned_caption\n000001.jpg,only original\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := ReadManifest(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Rows) != 1 || len(m.Rows[0]) != 3 {
		t.Fatalf("Rows = %v", m.Rows)
	}
	if m.Rows[0][2] != "" {
		t.Errorf("padded cell = %q, want empty", m.Rows[0][2])
	}
}

func TestReadManifestEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(path, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := ReadManifest(path); err == nil {
		t.Fatal("expected error for empty manifest")
	}
}

func TestCaptionValues(t *testing.T) {
	m := &Manifest{
		Columns: ColumnsSimple,
		Rows: [][]string{
			{"a.jpg", "first"},
			{"b.jpg", "second"},
		},
	}
	got := m.CaptionValues(1)
	if !reflect.DeepEqual(got, []string{"first", "second"}) {
		t.Errorf("CaptionValues = %v", got)
	}
}
