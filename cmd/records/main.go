package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"healthcare-services/internal/app"
	"healthcare-services/internal/config"
	"healthcare-services/internal/handler"
	"healthcare-services/internal/metrics"
	"healthcare-services/internal/middleware"
	"healthcare-services/internal/userclient"
	"healthcare-services/pkg/logging"
)

func main() {
	cfg := config.Load("5002")
	logger := logging.New(cfg.LogLevel).With("service", "records")
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, st, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("store", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer rl.Close()

	router := handler.NewRouter(handler.RouterConfig{
		Logger:         logger,
		Secret:         cfg.JWTSecret,
		Records:        handler.NewRecordHandler(st, logger),
		UserOracle:     userclient.New(cfg.UserServiceURL, cfg.UserServiceTimeout),
		Limiter:        rl,
		Metrics:        metrics.New(nil),
		MetricsHandler: promhttp.Handler(),
	})

	if err := app.Serve(ctx, cfg, "records", router, pool, rl, logger); err != nil {
		logger.Error("exit", "error", err)
		os.Exit(1)
	}
}
