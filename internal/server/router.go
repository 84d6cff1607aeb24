// Package server builds the gin engine and route tree.
package server

import (
	"github.com/gin-gonic/gin"

	"github.com/johnbean393/openrouter-inference-stats/internal/config"
	"github.com/johnbean393/openrouter-inference-stats/internal/handler"
	"github.com/johnbean393/openrouter-inference-stats/internal/server/middleware"
)

func NewRouter(cfg *config.Config, handlers *handler.Handlers) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORS(cfg.CORS))

	router.GET("/health", handlers.System.Health)

	api := router.Group("/api/v1")
	{
		stats := api.Group("/stats")
		{
			stats.GET("/summary", handlers.Stats.Summary)
			stats.GET("/models", handlers.Stats.Models)
			stats.GET("/latest", handlers.Stats.Latest)
			stats.GET("/snapshots/:date", handlers.Stats.Snapshot)
			stats.GET("/history", handlers.Stats.History)
		}

		admin := api.Group("/admin", middleware.AdminAuth(cfg.Admin.Token))
		{
			admin.POST("/collect", handlers.Collect.Collect)
			admin.POST("/backfill", handlers.Collect.Backfill)
			admin.POST("/pricing/refresh", handlers.Collect.RefreshPricing)
			admin.GET("/ops", handlers.System.Status)
		}
	}

	return router
}
