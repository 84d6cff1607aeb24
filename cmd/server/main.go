package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/johnbean393/openrouter-inference-stats/internal/config"
	"github.com/johnbean393/openrouter-inference-stats/internal/pkg/logger"
)

func main() {
	logger.InitBootstrap()

	cfg, err := config.Load()
	if err != nil {
		logger.L().Fatal("load config", zap.Error(err))
	}
	if err := logger.Init(logger.OptionsFromConfig(cfg)); err != nil {
		logger.L().Fatal("init logger", zap.Error(err))
	}
	defer logger.Sync()

	app, err := initApplication(cfg)
	if err != nil {
		logger.L().Fatal("init application", zap.Error(err))
	}
	defer app.Cleanup()

	app.Pricing.Start()
	if err := app.Collector.Start(); err != nil {
		logger.L().Fatal("start collector", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[Server] listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal("http server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("[Server] shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.L().Error("graceful shutdown", zap.Error(err))
	}
}
