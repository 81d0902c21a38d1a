package batch

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const defaultReconciliationTimeout = 10 * time.Minute

// StartScheduler registers the reconciliation job under schedule (standard
// five-field cron syntax) and starts the scheduler.
func StartScheduler(schedule string, timeout time.Duration, job *ReconciliationJob, logger *slog.Logger) (*cron.Cron, error) {
	if timeout <= 0 {
		timeout = defaultReconciliationTimeout
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := job.Run(ctx); err != nil {
			logger.Error("Scheduled ledger reconciliation failed", "error", err)
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	logger.Info("Batch scheduler started", "job", "LedgerReconciliation", "schedule", schedule, "timeout", timeout)
	return c, nil
}
