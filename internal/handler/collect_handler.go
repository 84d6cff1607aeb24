package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/johnbean393/openrouter-inference-stats/internal/handler/dto"
	"github.com/johnbean393/openrouter-inference-stats/internal/pkg/response"
	"github.com/johnbean393/openrouter-inference-stats/internal/service"
)

// CollectHandler exposes the admin-triggered collection operations.
type CollectHandler struct {
	collector *service.CollectorService
	pricing   *service.PricingService
}

func NewCollectHandler(collector *service.CollectorService, pricing *service.PricingService) *CollectHandler {
	return &CollectHandler{collector: collector, pricing: pricing}
}

// Collect runs a collection for the current window. force=true bypasses the
// recent-snapshot dedupe.
func (h *CollectHandler) Collect(c *gin.Context) {
	force, _ := strconv.ParseBool(c.DefaultQuery("force", "false"))

	snapshot, err := h.collector.RunCurrent(c.Request.Context(), force)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRunInProgress):
			response.Error(c, http.StatusConflict, err.Error())
		case errors.Is(err, service.ErrRecentSnapshot):
			response.Error(c, http.StatusConflict, "a snapshot was collected recently; use force=true to rerun")
		default:
			response.InternalError(c, "collection run failed: "+err.Error())
		}
		return
	}
	response.Success(c, dto.FromSnapshotSummary(snapshot))
}

// Backfill rebuilds snapshots for past weeks from chart history. A weeks
// value of 0 backfills everything available.
func (h *CollectHandler) Backfill(c *gin.Context) {
	var req dto.BackfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if req.Weeks < 0 {
		response.BadRequest(c, "weeks must not be negative")
		return
	}

	snapshots, err := h.collector.RunBackfill(c.Request.Context(), req.Weeks)
	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			response.Error(c, http.StatusConflict, err.Error())
			return
		}
		response.InternalError(c, "backfill failed: "+err.Error())
		return
	}

	result := dto.BackfillResult{Count: len(snapshots)}
	for _, snapshot := range snapshots {
		result.Snapshots = append(result.Snapshots, dto.FromSnapshotSummary(snapshot))
	}
	response.Success(c, result)
}

// RefreshPricing forces a catalog refresh outside the periodic schedule.
func (h *CollectHandler) RefreshPricing(c *gin.Context) {
	if err := h.pricing.Refresh(c.Request.Context()); err != nil {
		response.InternalError(c, "pricing refresh failed: "+err.Error())
		return
	}
	response.Success(c, dto.PricingStatus{
		ModelCount:  h.pricing.ModelCount(),
		RefreshedAt: h.pricing.RefreshedAt(),
	})
}
