package source

import "context"

// Item represents one image available for caption generation.
type Item struct {
	SourceID  string // Unique ID within the source
	Name      string // File name including extension
	LocalPath string // Local file path
	Format    string // File format (jpeg, png)
}

// Source defines the interface for image sources feeding the caption
// generator.
type Source interface {
	// GetSourceID returns the unique identifier for this source.
	GetSourceID() string

	// GetDisplayName returns a human-readable name for this source.
	GetDisplayName() string

	// FetchBatch fetches a batch of items starting from the given cursor.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - cursor: pagination cursor or empty for first page.
	//   - limit: maximum number of items to fetch.
	// Returns:
	//   - items: batch of image items.
	//   - nextCursor: cursor for the next batch or empty if done.
	//   - err: non-nil if fetching fails.
	FetchBatch(ctx context.Context, cursor string, limit int) (items []Item, nextCursor string, err error)

	// GetTotalCount returns the total number of items in the source.
	GetTotalCount() (int, error)
}
