package routes

import (
	"github.com/Brownie44l1/medscan-api/internal/handlers"
	"github.com/Brownie44l1/medscan-api/internal/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// SetupRoutes builds the engine: CORS for every origin, access logging,
// panic recovery, the API routes, and static files for everything else.
func SetupRoutes(h *handlers.Handler, staticDir string, production bool) *gin.Engine {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}

	r := gin.New()
	r.Use(cors.New(corsConfig), middleware.HTTPLogger(), middleware.HTTPRecovery())

	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.POST("/brain/predict", h.PredictBrain)
	api.POST("/lung/predict", h.PredictLung)

	static := handlers.Static(staticDir)
	r.GET("/", static)
	r.NoRoute(static)

	return r
}
