//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/johnbean393/openrouter-inference-stats/internal/config"
	"github.com/johnbean393/openrouter-inference-stats/internal/handler"
	"github.com/johnbean393/openrouter-inference-stats/internal/repository"
	"github.com/johnbean393/openrouter-inference-stats/internal/server"
	"github.com/johnbean393/openrouter-inference-stats/internal/service"
)

func initApplication(cfg *config.Config) (*Application, error) {
	wire.Build(
		provideDatabase,
		repository.NewSnapshotRepository,
		wire.Bind(new(service.SnapshotStore), new(*repository.SnapshotRepository)),
		repository.NewOpenRouterPricingClient,
		wire.Bind(new(service.PricingSource), new(*repository.OpenRouterPricingClient)),
		repository.NewOpenRouterRankingsClient,
		wire.Bind(new(service.RankingsSource), new(*repository.OpenRouterRankingsClient)),
		repository.NewOpenRouterActivityClient,
		wire.Bind(new(service.ActivitySource), new(*repository.OpenRouterActivityClient)),

		providePricingService,
		provideCollectorOptions,
		service.NewCollectorService,
		provideSystemService,

		handler.NewStatsHandler,
		handler.NewCollectHandler,
		handler.NewSystemHandler,
		handler.NewHandlers,
		server.NewRouter,

		newApplication,
	)
	return nil, nil
}
