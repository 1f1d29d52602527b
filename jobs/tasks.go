package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskIntegrityScan recomputes entry balances and account links.
	TaskIntegrityScan = "ledger:integrity_scan"
	// TaskReportWarmup pre-builds report caches for active clients.
	TaskReportWarmup = "ledger:report_warmup"
)

// IntegrityScanPayload carries scheduling metadata for the scan.
type IntegrityScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewIntegrityScanTask constructs an Asynq task for the integrity scan.
func NewIntegrityScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(IntegrityScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIntegrityScan, body, asynq.Queue(QueueDefault)), nil
}

// ReportWarmupPayload bounds which clients get their caches warmed.
type ReportWarmupPayload struct {
	ScheduledFor time.Time     `json:"scheduled_for"`
	Window       time.Duration `json:"window"`
}

// NewReportWarmupTask constructs an Asynq task for the report warmup.
func NewReportWarmupTask(at time.Time, window time.Duration) (*asynq.Task, error) {
	body, err := json.Marshal(ReportWarmupPayload{ScheduledFor: at, Window: window})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, body, asynq.Queue(QueueDefault)), nil
}
