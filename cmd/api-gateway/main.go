package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/fleet-mx-api/api/swagger"
	"github.com/noah-isme/fleet-mx-api/internal/app"
	"github.com/noah-isme/fleet-mx-api/internal/handler"
	"github.com/noah-isme/fleet-mx-api/internal/middleware"
	"github.com/noah-isme/fleet-mx-api/pkg/config"
	"github.com/noah-isme/fleet-mx-api/pkg/jobs"
	"github.com/noah-isme/fleet-mx-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/fleet-mx-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/fleet-mx-api/pkg/middleware/requestid"
)

const (
	shutdownTimeout  = 15 * time.Second
	refreshQueueSize = 32
)

// @title Fleet Maintenance Scheduler API
// @version 1.0.0
// @description Plans Daily, Weekly, A, C and D checks around the flight schedule.
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(cfg, logr)
	if err != nil {
		logr.Fatal("failed to initialise application", zap.Error(err))
	}
	defer func() {
		if err := application.Close(); err != nil {
			logr.Warn("close application", zap.Error(err))
		}
	}()

	queue := jobs.NewQueue("fleet-refresh", application.FleetRefreshJob, jobs.QueueConfig{
		Workers:    cfg.Scheduler.AsyncWorkers,
		BufferSize: refreshQueueSize,
		MaxRetries: cfg.Scheduler.AsyncRetries,
		RetryDelay: 5 * time.Second,
		Logger:     logr.Named("jobs"),
	})
	queue.Start(ctx)
	defer queue.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, application, queue, logr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func newRouter(cfg *config.Config, application *app.App, queue *jobs.Queue, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(application.Metrics, "/metrics", "/health", "/ready"))

	metricsHandler := handler.NewMetricsHandler(application.Metrics, map[string]handler.ReadinessCheck{
		"postgres": application.Ping,
		"redis":    application.PingCache,
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if !cfg.Scheduler.Enabled {
		logr.Info("scheduler API disabled")
		return r
	}

	mx := handler.NewMaintenanceHandler(application.Scheduler, application.Exporter, queue)
	api := r.Group(cfg.APIPrefix)
	aircraft := api.Group("/aircraft/:id/maintenance")
	aircraft.GET("", mx.ListSchedule)
	aircraft.GET("/busy", mx.BusyView)
	aircraft.GET("/export", mx.Export)
	aircraft.POST("/refresh", mx.Refresh)
	aircraft.POST("/complete", mx.CompleteCheck)
	aircraft.POST("/flight-conflicts", mx.ResolveFlightConflict)
	aircraft.PUT("/tiers/:tier", mx.EnableTier)
	api.POST("/fleets/:id/maintenance/refresh", mx.RefreshFleet)
	api.GET("/maintenance/jobs/:jobId", mx.JobStatus)

	return r
}
