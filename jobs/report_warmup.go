package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/tallybooks/tallybooks/internal/observability"
)

// ReportWarmer pre-builds report caches so the first morning request
// for each active client hits Redis instead of Postgres.
type ReportWarmer struct {
	reports ReportWarmupService
	logger  *slog.Logger
	metrics *observability.Metrics
}

// ReportWarmupService is the slice of the reporting service the job needs.
type ReportWarmupService interface {
	WarmTrialBalances(ctx context.Context, since time.Time) (int, error)
}

func NewReportWarmer(reports ReportWarmupService, logger *slog.Logger, metrics *observability.Metrics) *ReportWarmer {
	return &ReportWarmer{reports: reports, logger: logger, metrics: metrics}
}

// Handle processes TaskReportWarmup tasks.
func (w *ReportWarmer) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ReportWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	window := payload.Window
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	warmed, err := w.reports.WarmTrialBalances(ctx, time.Now().Add(-window))
	if err != nil {
		w.metrics.ObserveJob(TaskReportWarmup, "error")
		return err
	}
	w.metrics.ObserveJob(TaskReportWarmup, "ok")
	w.logger.Info("report warmup finished", slog.Int("clients", warmed))
	return nil
}
