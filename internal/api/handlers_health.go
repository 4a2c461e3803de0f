// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	sim     UploadService
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, sim UploadService) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		sim:     sim,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	}
	if h.sim != nil {
		resp["virtualClockMs"] = h.sim.Now().Milliseconds()
		resp["records"] = len(h.sim.Snapshot())
	}
	return c.JSON(http.StatusOK, resp)
}
