package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/fleet-mx-api/internal/dto"
	"github.com/noah-isme/fleet-mx-api/internal/repository"
	"github.com/noah-isme/fleet-mx-api/internal/service"
	"github.com/noah-isme/fleet-mx-api/pkg/cache"
	"github.com/noah-isme/fleet-mx-api/pkg/config"
	"github.com/noah-isme/fleet-mx-api/pkg/database"
	"github.com/noah-isme/fleet-mx-api/pkg/export"
	"github.com/noah-isme/fleet-mx-api/pkg/jobs"
)

const cachePrefix = "fleet-mx"

// App holds the long-lived dependencies shared by the API server and mxctl.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	DB        *sqlx.DB
	Redis     *redis.Client
	Metrics   *service.MetricsService
	Scheduler *service.MaintenanceSchedulerService
	Exporter  *service.ExportService

	cacheRepo *repository.CacheRepository
}

// SchedulerConfig maps environment settings onto the planner configuration.
func SchedulerConfig(cfg config.SchedulerConfig) service.MaintenanceSchedulerConfig {
	return service.MaintenanceSchedulerConfig{
		HorizonDays:           cfg.HorizonDays,
		DailyDays:             cfg.DailyDays,
		MaxIterations:         cfg.MaxIterations,
		FleetBatchSize:        cfg.FleetBatchSize,
		DedupFraction:         cfg.DedupFraction,
		SlotStepMinutes:       cfg.SlotStepMinutes,
		ForcedLead:            cfg.ForcedLead,
		SearchRadiusDays:      cfg.SearchRadiusDays,
		WidenRadiusDays:       cfg.WidenRadiusDays,
		CacheTTL:              cfg.CacheTTL,
		FlightLookbackDays:    cfg.FlightLookbackDays,
		MaxConflictSearchDays: cfg.MaxConflictSearchDays,
	}
}

// New connects to PostgreSQL and Redis and builds the services.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The schedule cache is optional; planning always reads PostgreSQL.
		logger.Warn("redis unavailable, schedule cache disabled", zap.Error(err))
	}

	metrics := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, cachePrefix, logger)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Scheduler.CacheTTL, logger, redisClient != nil)

	aircraftRepo := repository.NewAircraftRepository(db)
	flightRepo := repository.NewFlightRepository(db)
	maintenanceRepo := repository.NewMaintenanceRepository(db)

	scheduler := service.NewMaintenanceSchedulerService(
		aircraftRepo,
		flightRepo,
		maintenanceRepo,
		db,
		cacheSvc,
		metrics,
		service.ConstantUtilization(cfg.Scheduler.AvgDailyFlightHours),
		validator.New(),
		logger.Named("scheduler"),
		SchedulerConfig(cfg.Scheduler),
	)
	exporter := service.NewExportService(scheduler, aircraftRepo, logger.Named("export"), export.NewCSVExporter(), export.NewPDFExporter())

	return &App{
		Config:    cfg,
		Logger:    logger,
		DB:        db,
		Redis:     redisClient,
		Metrics:   metrics,
		Scheduler: scheduler,
		Exporter:  exporter,
		cacheRepo: cacheRepo,
	}, nil
}

// FleetRefreshJob runs a queued fleet refresh.
func (a *App) FleetRefreshJob(ctx context.Context, job jobs.Job) error {
	payload, err := jobs.Decode[dto.FleetRefreshPayload](job)
	if err != nil {
		return err
	}
	if payload.FleetID == "" {
		return fmt.Errorf("job %s: fleet id missing", job.ID)
	}
	result, err := a.Scheduler.RefreshFleet(ctx, payload.FleetID, dto.RefreshRequest{Now: payload.Now})
	if err != nil {
		return err
	}
	a.Logger.Info("fleet refresh finished",
		zap.String("job_id", job.ID),
		zap.String("fleet_id", payload.FleetID),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return nil
}

// Ping checks PostgreSQL.
func (a *App) Ping(ctx context.Context) error {
	return a.DB.PingContext(ctx)
}

// PingCache checks Redis when it is configured.
func (a *App) PingCache(ctx context.Context) error {
	if a.Redis == nil {
		return nil
	}
	return a.Redis.Ping(ctx).Err()
}

// Close releases database and cache connections.
func (a *App) Close() error {
	return errors.Join(a.cacheRepo.Close(), a.DB.Close())
}
