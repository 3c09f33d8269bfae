package main

import (
	"context"
	"fmt"

	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/app"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/config"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/guard"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/repository"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/scheduling"
	"github.com/explosiverdx/fullStackBonebuddy-sub000/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// runtime holds the wired services shared by serve and bot.
type runtime struct {
	cfg       *config.Config
	logger    *zap.Logger
	pool      *pgxpool.Pool
	rdb       *redis.Client
	credits   *service.CreditService
	scheduler *service.SchedulingService
	directory *service.DirectoryService
}

// bootstrap loads config, connects to postgres (and redis when configured),
// applies migrations and wires the services.
func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.RequireDB(); err != nil {
		return nil, err
	}

	logger, err := app.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("✅ Connected to database")

	if err := migrate(ctx, pool, cfg.MigrationsDir, logger); err != nil {
		pool.Close()
		return nil, err
	}

	rt := &runtime{cfg: cfg, logger: logger, pool: pool}

	var submitGuard service.SubmitGuard = guard.Noop{}
	if cfg.RedisURL != "" {
		rdb, err := guard.Connect(ctx, cfg.RedisURL)
		if err != nil {
			pool.Close()
			return nil, err
		}
		rt.rdb = rdb
		submitGuard = guard.NewRedisGuard(rdb, cfg.SubmitGuardTTL)
		logger.Info("✅ Submit guard backed by redis", zap.Duration("ttl", cfg.SubmitGuardTTL))
	} else {
		logger.Warn("REDIS_URL not set, double-submit guard disabled")
	}

	paymentRepo := repository.NewPaymentRepository(pool)
	appointmentRepo := repository.NewAppointmentRepository(pool)
	directoryRepo := repository.NewDirectoryRepository(pool)

	validator := scheduling.NewValidator(scheduling.NewGenerator(cfg.Location))

	rt.credits = service.NewCreditService(paymentRepo, logger)
	rt.scheduler = service.NewSchedulingService(rt.credits, validator, appointmentRepo, submitGuard, logger)
	rt.directory = service.NewDirectoryService(directoryRepo)

	logger.Info("Scheduler configured",
		zap.String("environment", cfg.Environment),
		zap.String("timezone", cfg.Location.String()),
	)

	return rt, nil
}

func (rt *runtime) Close() {
	if rt.rdb != nil {
		rt.rdb.Close()
	}
	rt.pool.Close()
	rt.logger.Sync()
}

func migrate(ctx context.Context, pool *pgxpool.Pool, dir string, logger *zap.Logger) error {
	migrator, err := app.NewMigrator(pool, dir, logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	return migrator.Run(ctx)
}
