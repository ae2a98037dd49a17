package statsapi

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/hydradns/aresgo/internal/statsapi/handlers"
	"github.com/hydradns/aresgo/internal/statsapi/middleware"

	_ "github.com/hydradns/aresgo/internal/statsapi/docs" // swagger docs
)

// RegisterRoutes mounts the introspection API under /api/v1, plus a
// swagger UI at /swagger/*. The API is read-only: no endpoint mutates
// channel or store state.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, apiKey string) {
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api/v1")
	if apiKey != "" {
		api.Use(middleware.RequireAPIKey(apiKey))
	}

	api.GET("/health", h.Health)
	api.GET("/stats", h.Stats)
	api.GET("/diagnostics/queries", h.RecentQueries)
}
