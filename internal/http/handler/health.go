package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/forma22-agency/gh-dispatch-relay/internal/http/dto"
)

const serviceName = "gh-dispatch-relay"

type HealthHandler struct {
	ready bool
}

// NewHealthHandler reports ready when configuration allows relaying at all.
// The answer is fixed at startup; configuration never changes at runtime.
func NewHealthHandler(ready bool) *HealthHandler {
	return &HealthHandler{ready: ready}
}

func (h *HealthHandler) Healthz(c *gin.Context) {
	status := "ok"
	if !h.ready {
		status = "degraded"
	}
	c.JSON(http.StatusOK, dto.HealthResponse{Status: status})
}

func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, dto.ServiceResponse{Service: serviceName, Status: "ok"})
}
