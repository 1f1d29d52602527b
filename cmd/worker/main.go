package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/tallybooks/tallybooks/internal/app"
	"github.com/tallybooks/tallybooks/internal/ledger/accounts"
	"github.com/tallybooks/tallybooks/internal/ledger/reports"
	"github.com/tallybooks/tallybooks/internal/observability"
	"github.com/tallybooks/tallybooks/internal/platform/db"
	"github.com/tallybooks/tallybooks/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	once := flag.String("once", "", "run a single task inline and exit (ledger:integrity_scan or ledger:report_warmup)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	metrics := observability.NewMetrics()

	reportCache := reports.NewCache(redisClient, cfg.CacheTTL)
	accountsRepo := accounts.NewRepository(pool)
	reportsRepo := reports.NewRepository(pool)
	reportsService := reports.NewService(reportsRepo, accountsRepo, reportCache)

	scanner := jobs.NewIntegrityScanner(pool, logger, metrics)
	warmer := jobs.NewReportWarmer(reportsService, logger, metrics)

	if *once != "" {
		if err := runOnce(ctx, *once, scanner, warmer); err != nil {
			logger.Error("run once", slog.String("task", *once), slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	scanTask, err := jobs.NewIntegrityScanTask(time.Now())
	if err != nil {
		logger.Error("build integrity scan task", slog.Any("error", err))
		os.Exit(1)
	}
	warmupTask, err := jobs.NewReportWarmupTask(time.Now(), 30*24*time.Hour)
	if err != nil {
		logger.Error("build report warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskIntegrityScan, Handler: scanner.Handle},
			{Type: jobs.TaskReportWarmup, Handler: warmer.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "0 * * * *", Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func runOnce(ctx context.Context, taskType string, scanner *jobs.IntegrityScanner, warmer *jobs.ReportWarmer) error {
	switch taskType {
	case jobs.TaskIntegrityScan:
		task, err := jobs.NewIntegrityScanTask(time.Now())
		if err != nil {
			return err
		}
		return scanner.Handle(ctx, task)
	case jobs.TaskReportWarmup:
		task, err := jobs.NewReportWarmupTask(time.Now(), 30*24*time.Hour)
		if err != nil {
			return err
		}
		return warmer.Handle(ctx, task)
	default:
		return flag.ErrHelp
	}
}
