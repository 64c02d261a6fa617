package api

import (
	"github.com/gin-gonic/gin"

	"github.com/sketchgen/capprep/internal/api/handler"
	"github.com/sketchgen/capprep/internal/api/middleware"
	"github.com/sketchgen/capprep/internal/config"
)

// SetupRouter configures the Gin router with all review API routes.
// The API is read-only: it serves the pair catalog, run history, and the
// prepared image files for caption review.
func SetupRouter(
	pairs handler.PairStore,
	runs handler.RunStore,
	trainDir string,
	cfg *config.ServerConfig,
) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler()
	pairHandler := handler.NewPairHandler(pairs, trainDir)
	runHandler := handler.NewRunHandler(runs)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Pairs
		v1.GET("/pairs", pairHandler.ListPairs)
		v1.GET("/pairs/:image_id", pairHandler.GetPair)
		v1.GET("/pairs/:image_id/image", pairHandler.GetPairImage)

		// Review sample
		v1.GET("/sample", pairHandler.SamplePairs)

		// Stats
		v1.GET("/stats", pairHandler.GetStats)

		// Run history
		v1.GET("/runs", runHandler.ListRuns)
	}

	return r
}
