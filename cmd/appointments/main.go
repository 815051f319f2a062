package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"healthcare-services/internal/app"
	"healthcare-services/internal/booking"
	"healthcare-services/internal/config"
	"healthcare-services/internal/handler"
	"healthcare-services/internal/metrics"
	"healthcare-services/internal/middleware"
	"healthcare-services/internal/notify"
	"healthcare-services/internal/reminder"
	"healthcare-services/internal/userclient"
	"healthcare-services/pkg/logging"
)

func main() {
	cfg := config.Load("5001")
	logger := logging.New(cfg.LogLevel).With("service", "appointments")
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

	m := metrics.New(nil)
	users := userclient.New(cfg.UserServiceURL, cfg.UserServiceTimeout)
	svc := booking.NewService(st, users, logger, m)

	email, err := notify.NewEmailSenderFromConfig(ctx, cfg, logger)
	if err != nil {
		logger.Error("email provider", "error", err)
		os.Exit(1)
	}
	dispatcher := notify.NewDispatcher(email, notify.NewSMSSenderFromConfig(cfg, logger), cfg.DispatchTimeout, logger, m)

	var opts []reminder.Option
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, sweeps fall back to the in-process lock until it returns", "addr", cfg.RedisAddr, "error", err)
		}
		opts = append(opts, reminder.WithLocker(reminder.NewRedisLocker(rdb, "", 0)))
	}
	sched := reminder.NewScheduler(st, dispatcher, reminder.Config{
		Interval:  cfg.ReminderInterval,
		Lookahead: cfg.ReminderLookahead,
		Location:  cfg.Location(),
	}, logger, m, opts...)
	go sched.Run(ctx)

	rl := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer rl.Close()

	router := handler.NewRouter(handler.RouterConfig{
		Logger:         logger,
		Secret:         cfg.JWTSecret,
		Appointments:   handler.NewAppointmentHandler(svc, logger),
		Limiter:        rl,
		Metrics:        m,
		MetricsHandler: promhttp.Handler(),
	})

	if err := app.Serve(ctx, cfg, "appointments", router, pool, rl, logger); err != nil {
		logger.Error("exit", "error", err)
		os.Exit(1)
	}
}
