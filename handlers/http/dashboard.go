package httpHandler

import (
	"net/http"
	"time"

	"iot-hub/usecases"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	useCase *usecases.DeviceUseCase
	timeout time.Duration
}

func NewDashboardHandler(useCase *usecases.DeviceUseCase, timeout time.Duration) *DashboardHandler {
	return &DashboardHandler{useCase: useCase, timeout: timeout}
}

// Show handles GET /api/v1/dashboard: liveness-corrected devices with
// their latest telemetry, online first, then by name.
func (h *DashboardHandler) Show(c *gin.Context) {
	entries, err := h.useCase.Dashboard()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build dashboard"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"devices":         entries,
		"count":           len(entries),
		"timeout_minutes": int(h.timeout.Minutes()),
	})
}
