package attributes

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// Table holds per-image attribute annotations loaded from a CelebA-style
// CSV file. Only positive flags (value 1) are kept.
type Table struct {
	names    map[string][]string
	columns  []string
	rowCount int
}

// Load reads an attribute CSV whose header is image_id followed by one
// column per attribute. A value of 1 marks the attribute as present;
// 0 and -1 mark it absent.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open attribute file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read attribute header: %w", err)
	}

	idCol := -1
	for i, name := range header {
		if strings.TrimSpace(name) == "image_id" {
			idCol = i
			break
		}
	}
	if idCol == -1 {
		return nil, fmt.Errorf("attribute file %s has no image_id column", path)
	}

	var columns []string
	for i, name := range header {
		if i != idCol {
			columns = append(columns, strings.TrimSpace(name))
		}
	}

	t := &Table{
		names:   make(map[string][]string),
		columns: columns,
	}

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read attribute rows: %w", err)
	}

	for _, rec := range records {
		imageID := strings.TrimSpace(rec[idCol])
		if imageID == "" {
			continue
		}
		var positive []string
		for i, val := range rec {
			if i == idCol {
				continue
			}
			if strings.TrimSpace(val) == "1" {
				name := strings.TrimSpace(header[i])
				positive = append(positive, name)
			}
		}
		t.names[imageID] = positive
		t.rowCount++
	}

	return t, nil
}

// Positive returns the positive attribute names for an image, and whether
// the image has a row in the table.
func (t *Table) Positive(imageID string) ([]string, bool) {
	attrs, ok := t.names[imageID]
	return attrs, ok
}

// Columns returns the attribute column names in file order.
func (t *Table) Columns() []string {
	return t.columns
}

// Len returns the number of annotated images.
func (t *Table) Len() int {
	return t.rowCount
}
