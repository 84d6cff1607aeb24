package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/johnbean393/openrouter-inference-stats/internal/handler/dto"
	"github.com/johnbean393/openrouter-inference-stats/internal/pkg/response"
	"github.com/johnbean393/openrouter-inference-stats/internal/service"
)

// SystemHandler serves health and ops status.
type SystemHandler struct {
	system    *service.SystemService
	collector *service.CollectorService
	pricing   *service.PricingService
}

func NewSystemHandler(system *service.SystemService, collector *service.CollectorService, pricing *service.PricingService) *SystemHandler {
	return &SystemHandler{system: system, collector: collector, pricing: pricing}
}

// Health is the liveness probe.
func (h *SystemHandler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}

// Status reports collector run state, pricing freshness and host metrics.
func (h *SystemHandler) Status(c *gin.Context) {
	response.Success(c, gin.H{
		"collector": h.collector.State(),
		"pricing": dto.PricingStatus{
			ModelCount:  h.pricing.ModelCount(),
			RefreshedAt: h.pricing.RefreshedAt(),
		},
		"system": h.system.Status(c.Request.Context()),
	})
}
