package directory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sketchgen/capprep/internal/source"
)

const (
	SourceID   = "images-dir"
	SourceName = "Image Directory"
)

// Adapter implements the Source interface over a flat directory of images.
type Adapter struct {
	dir    string
	items  []source.Item // Cached items
	loaded bool
}

// NewAdapter creates a new directory adapter.
func NewAdapter(dir string) *Adapter {
	return &Adapter{
		dir: dir,
	}
}

// GetSourceID returns the unique identifier for this source
func (a *Adapter) GetSourceID() string {
	return SourceID
}

// GetDisplayName returns a human-readable name for this source
func (a *Adapter) GetDisplayName() string {
	return SourceName
}

// FetchBatch fetches a batch of image items
func (a *Adapter) FetchBatch(ctx context.Context, cursor string, limit int) ([]source.Item, string, error) {
	// Load all items on first call
	if !a.loaded {
		if err := a.loadItems(); err != nil {
			return nil, "", fmt.Errorf("failed to load items: %w", err)
		}
		a.loaded = true
	}

	// Parse cursor (index)
	startIndex := 0
	if cursor != "" {
		var err error
		startIndex, err = strconv.Atoi(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", err)
		}
	}

	// Check bounds
	if startIndex >= len(a.items) {
		return []source.Item{}, "", nil // No more items
	}

	// Calculate end index
	endIndex := startIndex + limit
	if endIndex > len(a.items) {
		endIndex = len(a.items)
	}

	batch := a.items[startIndex:endIndex]

	nextCursor := ""
	if endIndex < len(a.items) {
		nextCursor = strconv.Itoa(endIndex)
	}

	return batch, nextCursor, nil
}

// loadItems scans the directory and loads all image items. The extension
// check is case-insensitive here, unlike the stem pairing probe.
func (a *Adapter) loadItems() error {
	if _, err := os.Stat(a.dir); os.IsNotExist(err) {
		return fmt.Errorf("image directory does not exist: %s", a.dir)
	}

	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return fmt.Errorf("failed to read image directory: %w", err)
	}

	a.items = []source.Item{}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		format := ""
		switch strings.ToLower(filepath.Ext(name)) {
		case ".jpg", ".jpeg":
			format = "jpeg"
		case ".png":
			format = "png"
		default:
			continue // Skip non-image files
		}

		a.items = append(a.items, source.Item{
			SourceID:  name,
			Name:      name,
			LocalPath: filepath.Join(a.dir, name),
			Format:    format,
		})
	}

	// Sort items by name for consistent ordering
	sort.Slice(a.items, func(i, j int) bool {
		return a.items[i].Name < a.items[j].Name
	})

	return nil
}

// GetTotalCount returns the total number of items
func (a *Adapter) GetTotalCount() (int, error) {
	if !a.loaded {
		if err := a.loadItems(); err != nil {
			return 0, err
		}
		a.loaded = true
	}
	return len(a.items), nil
}
