package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vincentbui21/SmartJuiceSystem/api/routes"
	"github.com/vincentbui21/SmartJuiceSystem/internal/activity"
	"github.com/vincentbui21/SmartJuiceSystem/internal/assignment"
	"github.com/vincentbui21/SmartJuiceSystem/internal/containers"
	"github.com/vincentbui21/SmartJuiceSystem/internal/customers"
	"github.com/vincentbui21/SmartJuiceSystem/internal/dashboard"
	"github.com/vincentbui21/SmartJuiceSystem/internal/dispatch"
	"github.com/vincentbui21/SmartJuiceSystem/internal/orders"
	"github.com/vincentbui21/SmartJuiceSystem/internal/settings"
	"github.com/vincentbui21/SmartJuiceSystem/internal/staffauth"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/config"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/db"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/logger"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/metrics"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/migrate"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/printer"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/realtime"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/redis"
	"github.com/vincentbui21/SmartJuiceSystem/pkg/sms"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	deps, err := buildDeps(cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-stopCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "server shutdown failed", err)
		}
	}()

	logg.Info(ctx, "starting api server")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

func buildDeps(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (routes.Deps, error) {
	gormDB := dbClient.DB()
	hub := realtime.NewHub()
	engineMetrics := metrics.NewEngineMetrics(prometheus.DefaultRegisterer)
	feed := activity.NewRepository(gormDB)

	authService, err := staffauth.NewService(staffauth.NewRepository(gormDB), cfg.JWT, cfg.Password)
	if err != nil {
		return routes.Deps{}, err
	}

	settingsService, err := settings.NewService(settings.NewRepository(gormDB), cfg.Password)
	if err != nil {
		return routes.Deps{}, err
	}

	customerService, err := customers.NewService(dbClient, customers.NewRepository(gormDB), feed, hub)
	if err != nil {
		return routes.Deps{}, err
	}

	orderService, err := orders.NewService(dbClient, orders.NewRepository(gormDB), settingsService, feed, hub, engineMetrics)
	if err != nil {
		return routes.Deps{}, err
	}

	containerService, err := containers.NewService(dbClient, containers.NewRepository(gormDB), hub)
	if err != nil {
		return routes.Deps{}, err
	}

	smsClient, err := sms.NewClient(cfg.SMS, logg)
	if err != nil {
		return routes.Deps{}, err
	}

	dispatchService, err := dispatch.NewService(cfg.Dispatch, dispatch.NewRepository(gormDB), smsClient, redisClient, feed, logg, engineMetrics)
	if err != nil {
		return routes.Deps{}, err
	}

	assignmentService, err := assignment.NewService(dbClient, containers.NewRepository(gormDB), containerService, orderService, dispatchService, feed, hub, engineMetrics)
	if err != nil {
		return routes.Deps{}, err
	}

	dashboardService, err := dashboard.NewService(dashboard.NewRepository(gormDB), feed)
	if err != nil {
		return routes.Deps{}, err
	}

	return routes.Deps{
		Config:      cfg,
		Logger:      logg,
		DBPinger:    dbClient,
		RedisClient: redisClient,
		Hub:         hub,
		Auth:        authService,
		Customers:   customerService,
		Orders:      orderService,
		Containers:  containerService,
		Assignment:  assignmentService,
		Dispatch:    dispatchService,
		Settings:    settingsService,
		Dashboard:   dashboardService,
		Printer:     printer.NewClient(cfg.Printer, logg),
	}, nil
}
