package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hydradns/aresgo/internal/statsapi/models"
)

// Health godoc
// @Summary Health check
// @Description Returns liveness plus a resource usage sample
// @Tags system
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Security ApiKeyAuth
// @Router /health [get]
func (h *Handler) Health(c *gin.Context) {
	resp := models.HealthResponse{Status: "ok"}

	if h.sampler != nil {
		sample := h.sampler.Sample()
		resp.Goroutines = sample.Goroutines
		resp.RSSBytes = sample.RSSBytes
		resp.OpenFDs = sample.OpenFDs
		resp.CPUPercent = sample.CPUPercent
		resp.MemPercent = sample.MemPercent
	}

	if h.store != nil {
		resp.StoreHealth = h.store.Health() == nil
	}

	c.JSON(http.StatusOK, resp)
}
