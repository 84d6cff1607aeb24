package main

import (
	"database/sql"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/johnbean393/openrouter-inference-stats/internal/config"
	"github.com/johnbean393/openrouter-inference-stats/internal/repository"
	"github.com/johnbean393/openrouter-inference-stats/internal/service"
)

// Application bundles the wired object graph and its teardown.
type Application struct {
	Router    *gin.Engine
	Collector *service.CollectorService
	Pricing   *service.PricingService
	Cleanup   func()
}

func provideDatabase(cfg *config.Config) (*sql.DB, error) {
	return repository.OpenDatabase(cfg.Database.Path)
}

func providePricingService(cfg *config.Config, source service.PricingSource) (*service.PricingService, error) {
	return service.NewPricingService(source, cfg.Pricing.RefreshInterval, cfg.Pricing.CacheSize)
}

func provideCollectorOptions(cfg *config.Config) service.CollectorOptions {
	return service.CollectorOptions{
		Enabled:          cfg.Collector.Enabled,
		CronSpec:         cfg.Collector.CronSpec,
		DedupeWindowDays: cfg.Collector.DedupeWindowDays,
		WindowDays:       cfg.Collector.WindowDays,
		TopN:             cfg.Scrape.TopN,
		Concurrency:      cfg.Scrape.Concurrency,
		RequestDelay:     cfg.Scrape.RequestDelay,
		Location:         cfg.Location(),
	}
}

func provideSystemService(cfg *config.Config) *service.SystemService {
	return service.NewSystemService(cfg.Database.Path)
}

func newApplication(
	cfg *config.Config,
	router *gin.Engine,
	collector *service.CollectorService,
	pricing *service.PricingService,
	db *sql.DB,
) *Application {
	cleanup := func() {
		// Stop producers before closing what they write to.
		collector.Stop()
		pricing.Stop()
		if err := db.Close(); err != nil {
			log.Printf("[Shutdown] close database: %v", err)
		}
	}
	return &Application{
		Router:    router,
		Collector: collector,
		Pricing:   pricing,
		Cleanup:   cleanup,
	}
}
