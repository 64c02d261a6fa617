package manifestsrc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sketchgen/capprep/internal/dataset"
	"github.com/sketchgen/capprep/internal/source"
)

// Adapter implements the Source interface over the images listed in an
// existing manifest CSV. Rows whose image file is missing on disk are
// skipped, so regeneration only touches images that are still present.
type Adapter struct {
	manifestPath string
	imageDir     string
	items        []source.Item
	loaded       bool
}

// NewAdapter creates a manifest-backed adapter. imageDir is where the
// listed image files live.
func NewAdapter(manifestPath, imageDir string) *Adapter {
	return &Adapter{
		manifestPath: manifestPath,
		imageDir:     imageDir,
	}
}

// GetSourceID returns the unique identifier for this source.
func (a *Adapter) GetSourceID() string {
	return "manifest:" + filepath.Base(a.manifestPath)
}

// GetDisplayName returns a human-readable name for this source.
func (a *Adapter) GetDisplayName() string {
	return fmt.Sprintf("Manifest (%s)", filepath.Base(a.manifestPath))
}

// FetchBatch fetches a batch of image items listed in the manifest.
func (a *Adapter) FetchBatch(ctx context.Context, cursor string, limit int) ([]source.Item, string, error) {
	if !a.loaded {
		if err := a.loadItems(); err != nil {
			return nil, "", fmt.Errorf("failed to load manifest items: %w", err)
		}
		a.loaded = true
	}

	startIndex := 0
	if cursor != "" {
		var err error
		startIndex, err = strconv.Atoi(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", err)
		}
	}

	if startIndex >= len(a.items) {
		return []source.Item{}, "", nil
	}

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

// loadItems reads the manifest and keeps rows whose image file exists.
func (a *Adapter) loadItems() error {
	m, err := dataset.ReadManifest(a.manifestPath)
	if err != nil {
		return err
	}

	imgCol, ok := m.ImageColumn()
	if !ok {
		return fmt.Errorf("manifest %s has no image column", a.manifestPath)
	}

	a.items = []source.Item{}

	for _, row := range m.Rows {
		name := strings.TrimSpace(row[imgCol])
		if name == "" {
			continue
		}

		localPath := filepath.Join(a.imageDir, name)
		if _, err := os.Stat(localPath); os.IsNotExist(err) {
			// Skip if image file doesn't exist
			continue
		}

		format := ""
		switch strings.ToLower(filepath.Ext(name)) {
		case ".jpg", ".jpeg":
			format = "jpeg"
		case ".png":
			format = "png"
		default:
			continue
		}

		a.items = append(a.items, source.Item{
			SourceID:  name,
			Name:      name,
			LocalPath: localPath,
			Format:    format,
		})
	}

	// Sort items by name for consistent ordering
	sort.Slice(a.items, func(i, j int) bool {
		return a.items[i].Name < a.items[j].Name
	})

	return nil
}

// GetTotalCount returns the total number of items in the manifest.
func (a *Adapter) GetTotalCount() (int, error) {
	if !a.loaded {
		if err := a.loadItems(); err != nil {
			return 0, err
		}
		a.loaded = true
	}
	return len(a.items), nil
}
