package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/asala-storefront/api/routes"
	"github.com/angelmondragon/asala-storefront/internal/catalog"
	"github.com/angelmondragon/asala-storefront/internal/cron"
	"github.com/angelmondragon/asala-storefront/internal/orders"
	"github.com/angelmondragon/asala-storefront/internal/storefront"
	"github.com/angelmondragon/asala-storefront/pkg/config"
	"github.com/angelmondragon/asala-storefront/pkg/env"
	"github.com/angelmondragon/asala-storefront/pkg/instance"
	"github.com/angelmondragon/asala-storefront/pkg/logger"
	"github.com/angelmondragon/asala-storefront/pkg/metrics"
	"github.com/angelmondragon/asala-storefront/pkg/redis"
	"github.com/angelmondragon/asala-storefront/pkg/telegram"
)

const (
	serviceName     = "storefront-api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "storefront api stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	orderMetrics := metrics.NewOrderMetrics(reg)
	jobMetrics := metrics.NewJobMetrics(reg)

	products, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	client, err := telegram.NewClient(
		cfg.Telegram.BotToken,
		telegram.WithBaseURL(cfg.Telegram.BaseURL),
		telegram.WithTimeout(cfg.Telegram.Timeout),
	)
	if err != nil {
		return err
	}
	sender, err := orders.NewTelegramSender(
		client,
		cfg.Telegram.ChatID,
		orders.WithLogger(logg),
		orders.WithMetrics(orderMetrics),
		orders.WithBreaker(orders.BreakerSettings{
			Failures:    cfg.Telegram.BreakerFailures,
			CoolDown:    cfg.Telegram.BreakerCoolDown,
			HalfOpenMax: cfg.Telegram.BreakerHalfOpen,
		}),
	)
	if err != nil {
		return err
	}

	sessions := storefront.NewRegistry(
		orders.Composer{StoreName: cfg.App.StoreName},
		sender,
		storefront.WithSessionMetrics(orderMetrics),
	)

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := redisClient.Close(); closeErr != nil {
				err = multierr.Append(err, closeErr)
			}
		}()
	} else {
		logg.Warn(ctx, "redis not configured, checkout rate limiting and idempotent replay disabled")
	}

	sweepJob, err := cron.NewSessionSweepJob(cron.SessionSweepJobParams{
		Logger:   logg,
		Sessions: sessions,
		IdleTTL:  cfg.Session.IdleTTL,
	})
	if err != nil {
		return err
	}
	housekeeping, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(sweepJob),
		Metrics:  jobMetrics,
		Interval: cfg.Session.SweepInterval,
	})
	if err != nil {
		return err
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"products": products.Len(),
		"redis":    redisClient != nil,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, products, sessions, redisClient, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	housekeepingDone := make(chan error, 1)
	go func() {
		housekeepingDone <- housekeeping.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting storefront api")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logg.Info(logCtx, "shutdown signal received")
	case serveFailure := <-serveErr:
		if !errors.Is(serveFailure, http.ErrServerClosed) {
			err = multierr.Append(err, serveFailure)
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		err = multierr.Append(err, shutdownErr)
	}
	if runErr := <-housekeepingDone; runErr != nil && !errors.Is(runErr, context.Canceled) {
		err = multierr.Append(err, runErr)
	}

	logg.Info(logCtx, "storefront api shut down")
	return err
}
