package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// Column layouts written by the commands.
var (
	ColumnsPrepared  = []string{"image_id", "original_caption", "cleaned_caption"}
	ColumnsSimple    = []string{"image_id", "caption"}
	ColumnsGenerated = []string{"image", "caption"}
)

// Manifest is a caption CSV held in memory: a header and its rows.
type Manifest struct {
	Columns []string
	Rows    [][]string
}

// WriteManifest writes a caption CSV, creating parent directories as
// needed. Quoting is handled by the csv writer, so captions may contain
// commas, quotes, and newlines.
func WriteManifest(path string, columns []string, rows [][]string) error {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create manifest directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("failed to write manifest header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write manifest row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush manifest: %w", err)
	}
	return f.Close()
}

// ReadManifest loads a caption CSV. The reader is tolerant: quotes are lazy,
// leading spaces are trimmed, and short rows are padded to the header width.
func ReadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("manifest %s is empty", path)
	}

	header := records[0]
	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		rows = append(rows, rec[:len(header)])
	}

	return &Manifest{Columns: header, Rows: rows}, nil
}

// Column returns the index of a named column.
func (m *Manifest) Column(name string) (int, bool) {
	for i, c := range m.Columns {
		if c == name {
			return i, true
		}
	}
	return 0, false
}

// CaptionColumn picks the caption column, preferring cleaned_caption over
// caption. The error lists the columns that were found instead.
func (m *Manifest) CaptionColumn() (int, string, error) {
	if i, ok := m.Column("cleaned_caption"); ok {
		return i, "cleaned_caption", nil
	}
	if i, ok := m.Column("caption"); ok {
		return i, "caption", nil
	}
	return 0, "", fmt.Errorf("no caption column found, expected one of caption or cleaned_caption, got %v", m.Columns)
}

// ImageColumn picks the image identifier column, preferring image_id over
// image. Manifests from the generator use the short name.
func (m *Manifest) ImageColumn() (int, bool) {
	if i, ok := m.Column("image_id"); ok {
		return i, true
	}
	return m.Column("image")
}

// CaptionValues extracts one column as a string slice.
func (m *Manifest) CaptionValues(col int) []string {
	values := make([]string, len(m.Rows))
	for i, row := range m.Rows {
		values[i] = row[col]
	}
	return values
}
