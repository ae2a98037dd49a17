package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/hydradns/aresgo/internal/statsapi/models"
)

const defaultDiagnosticsLimit = 50

// RecentQueries godoc
// @Summary Recent query diagnostics
// @Description Returns the most recently finished queries' outcomes (status, try count, timeouts, server used)
// @Tags diagnostics
// @Produce json
// @Param limit query int false "max rows to return"
// @Success 200 {array} models.QueryDiagnosticResponse
// @Security ApiKeyAuth
// @Router /diagnostics/queries [get]
func (h *Handler) RecentQueries(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusOK, []models.QueryDiagnosticResponse{})
		return
	}

	limit := defaultDiagnosticsLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	diags, err := h.store.RecentQueries(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
		return
	}

	out := make([]models.QueryDiagnosticResponse, 0, len(diags))
	for _, d := range diags {
		out = append(out, models.QueryDiagnosticResponse{
			Status:     d.Status,
			TryCount:   d.TryCount,
			Timeouts:   d.Timeouts,
			Server:     d.Server,
			UsedTCP:    d.UsedTCP,
			RecordedAt: d.RecordedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}
