package handler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sketchgen/capprep/internal/domain"
)

// PairStore is the slice of the pair repository the review API reads from.
type PairStore interface {
	GetByImageID(ctx context.Context, imageID string) (*domain.CaptionPair, error)
	List(ctx context.Context, status domain.PairStatus, source string, limit, offset int) ([]domain.CaptionPair, error)
	Sample(ctx context.Context, limit int) ([]domain.CaptionPair, error)
	GetSources(ctx context.Context) ([]string, error)
	CountByStatus(ctx context.Context, status domain.PairStatus) (int64, error)
}

// PairHandler handles caption pair review endpoints.
type PairHandler struct {
	pairs    PairStore
	trainDir string
}

// NewPairHandler creates a new pair handler.
// Parameters:
//   - pairs: pair store to read from.
//   - trainDir: directory holding the prepared dataset files.
// Returns:
//   - *PairHandler: initialized handler.
func NewPairHandler(pairs PairStore, trainDir string) *PairHandler {
	return &PairHandler{
		pairs:    pairs,
		trainDir: trainDir,
	}
}

// ListPairs handles GET /api/v1/pairs.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *PairHandler) ListPairs(c *gin.Context) {
	source := c.Query("source")
	status := domain.PairStatus(c.Query("status"))

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = 20
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	pairs, err := h.pairs.List(c.Request.Context(), status, source, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list pairs: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pairs":  pairs,
		"count":  len(pairs),
		"limit":  limit,
		"offset": offset,
	})
}

// GetPair handles GET /api/v1/pairs/:image_id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *PairHandler) GetPair(c *gin.Context) {
	imageID := c.Param("image_id")
	if imageID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Image ID is required",
		})
		return
	}

	pair, err := h.pairs.GetByImageID(c.Request.Context(), imageID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Pair not found",
		})
		return
	}

	c.JSON(http.StatusOK, pair)
}

// GetPairImage handles GET /api/v1/pairs/:image_id/image and serves the
// image file from the train dir so captions can be reviewed next to their
// picture.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes the image file or a JSON error).
func (h *PairHandler) GetPairImage(c *gin.Context) {
	imageID := c.Param("image_id")

	pair, err := h.pairs.GetByImageID(c.Request.Context(), imageID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Pair not found",
		})
		return
	}

	path := pair.DatasetPath
	if path == "" {
		path = filepath.Join(h.trainDir, pair.ImageID)
	}
	if _, err := os.Stat(path); err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Image file not found",
		})
		return
	}

	c.File(path)
}

// SamplePairs handles GET /api/v1/sample.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *PairHandler) SamplePairs(c *gin.Context) {
	n, _ := strconv.Atoi(c.DefaultQuery("n", "15"))
	if n <= 0 {
		n = 15
	}
	if n > 100 {
		n = 100
	}

	pairs, err := h.pairs.Sample(c.Request.Context(), n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to sample pairs: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pairs": pairs,
		"count": len(pairs),
	})
}

// GetStats handles GET /api/v1/stats.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *PairHandler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()

	total, err := h.pairs.CountByStatus(ctx, "")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get stats: " + err.Error(),
		})
		return
	}
	prepared, err := h.pairs.CountByStatus(ctx, domain.PairStatusPrepared)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get stats: " + err.Error(),
		})
		return
	}
	sources, err := h.pairs.GetSources(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get stats: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_pairs":    total,
		"prepared_pairs": prepared,
		"sources":        sources,
	})
}
