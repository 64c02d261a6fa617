package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sketchgen/capprep/internal/domain"
)

// RunStore is the slice of the run repository the review API reads from.
type RunStore interface {
	List(ctx context.Context, kind string, limit, offset int) ([]domain.PrepRun, error)
}

// RunHandler handles preparation run history endpoints.
type RunHandler struct {
	runs RunStore
}

// NewRunHandler creates a new run handler.
// Parameters:
//   - runs: run store to read from.
// Returns:
//   - *RunHandler: initialized handler.
func NewRunHandler(runs RunStore) *RunHandler {
	return &RunHandler{runs: runs}
}

// ListRuns handles GET /api/v1/runs.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RunHandler) ListRuns(c *gin.Context) {
	kind := c.Query("kind")

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

	runs, err := h.runs.List(c.Request.Context(), kind, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list runs: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":   runs,
		"count":  len(runs),
		"limit":  limit,
		"offset": offset,
	})
}
