package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handlers bundles every handler group for router wiring.
type Handlers struct {
	Stats   *StatsHandler
	Collect *CollectHandler
	System  *SystemHandler
}

func NewHandlers(stats *StatsHandler, collect *CollectHandler, system *SystemHandler) *Handlers {
	return &Handlers{Stats: stats, Collect: collect, System: system}
}

func parseWeeks(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("weeks", "0")
	weeks, err := strconv.Atoi(raw)
	if err != nil || weeks < 0 {
		return 0, false
	}
	return weeks, true
}
