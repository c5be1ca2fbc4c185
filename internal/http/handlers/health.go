package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/xai-decision-backend/internal/services"
)

type HealthHandler struct {
	health services.HealthService
}

func NewHealthHandler(health services.HealthService) *HealthHandler {
	return &HealthHandler{health: health}
}

// GET /healthcheck
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	rep := h.health.Check(c.Request.Context())
	status := http.StatusOK
	if rep.Status == services.HealthUnhealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, rep)
}
