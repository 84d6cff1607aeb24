// Package handler contains the gin handlers for the stats API.
package handler

import (
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/johnbean393/openrouter-inference-stats/internal/handler/dto"
	"github.com/johnbean393/openrouter-inference-stats/internal/pkg/response"
	"github.com/johnbean393/openrouter-inference-stats/internal/service"
)

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// StatsHandler serves read-only snapshot and history queries.
type StatsHandler struct {
	store service.SnapshotStore
}

func NewStatsHandler(store service.SnapshotStore) *StatsHandler {
	return &StatsHandler{store: store}
}

// Summary returns the latest snapshot totals without the model table.
func (h *StatsHandler) Summary(c *gin.Context) {
	snapshot, err := h.store.LatestSnapshot(c.Request.Context())
	if err != nil {
		response.InternalError(c, "failed to load latest snapshot")
		return
	}
	if snapshot == nil {
		response.NotFound(c, "no snapshots collected yet")
		return
	}
	response.Success(c, dto.FromSummary(snapshot))
}

// Models returns the ranked model table from the latest snapshot.
func (h *StatsHandler) Models(c *gin.Context) {
	snapshot, err := h.store.LatestSnapshot(c.Request.Context())
	if err != nil {
		response.InternalError(c, "failed to load latest snapshot")
		return
	}
	if snapshot == nil {
		response.NotFound(c, "no snapshots collected yet")
		return
	}
	response.Success(c, dto.FromModelTable(snapshot))
}

// Latest returns the most recent full snapshot.
func (h *StatsHandler) Latest(c *gin.Context) {
	snapshot, err := h.store.LatestSnapshot(c.Request.Context())
	if err != nil {
		response.InternalError(c, "failed to load latest snapshot")
		return
	}
	if snapshot == nil {
		response.NotFound(c, "no snapshots collected yet")
		return
	}
	response.Success(c, dto.FromSnapshot(snapshot))
}

// Snapshot returns the full snapshot for one week-ending date.
func (h *StatsHandler) Snapshot(c *gin.Context) {
	date := c.Param("date")
	if !datePattern.MatchString(date) {
		response.BadRequest(c, "date must be YYYY-MM-DD")
		return
	}

	snapshot, err := h.store.SnapshotByWeekEnd(c.Request.Context(), date)
	if err != nil {
		response.InternalError(c, "failed to load snapshot")
		return
	}
	if snapshot == nil {
		response.NotFound(c, "no snapshot for week ending "+date)
		return
	}
	response.Success(c, dto.FromSnapshot(snapshot))
}

// History returns the weekly trend, oldest first. weeks keeps the most
// recent N weeks; 0 or absent returns everything.
func (h *StatsHandler) History(c *gin.Context) {
	weeks, ok := parseWeeks(c)
	if !ok {
		response.BadRequest(c, "weeks must be a non-negative integer")
		return
	}

	points, err := h.store.ListHistory(c.Request.Context(), weeks)
	if err != nil {
		response.InternalError(c, "failed to load history")
		return
	}
	response.Success(c, dto.FromHistory(points))
}
