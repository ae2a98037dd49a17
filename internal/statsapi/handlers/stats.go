package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hydradns/aresgo/internal/statsapi/models"
)

// Stats godoc
// @Summary Channel statistics
// @Description Returns the resolver channel's current live state (server table, in-flight query count)
// @Tags system
// @Produce json
// @Success 200 {object} models.StatsResponse
// @Security ApiKeyAuth
// @Router /stats [get]
func (h *Handler) Stats(c *gin.Context) {
	uptime := time.Since(h.startTime)

	snap := h.snapshots.Load()
	servers := make([]models.ServerInfo, 0, len(snap.Servers))
	for _, s := range snap.Servers {
		servers = append(servers, models.ServerInfo{
			Index:         s.Index,
			UDP:           s.UDP.String(),
			TCP:           s.TCP.String(),
			TCPGeneration: s.TCPGeneration,
			Connections:   s.Connections,
		})
	}

	c.JSON(http.StatusOK, models.StatsResponse{
		Uptime:        uptime.Round(time.Second).String(),
		UptimeSeconds: int64(uptime.Seconds()),
		StartTime:     h.startTime,
		LiveQueries:   snap.LiveQueries,
		EDNSEnabled:   snap.EDNSEnabled,
		Servers:       servers,
	})
}
