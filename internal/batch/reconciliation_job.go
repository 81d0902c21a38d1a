package batch

import (
	"context"
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/infrastructure/monitoring"
	"fmt"
	"log/slog"
	"time"
)

// LedgerReader is the read side the reconciliation job needs.
type LedgerReader interface {
	ListLedgerEntries(ctx context.Context) ([]loan.LedgerEntry, error)
}

// Mismatch is one loan whose stored state disagrees with its payment history.
type Mismatch struct {
	LoanID     int64
	CustomerID int64
	Problems   []string
}

// ReconciliationJob recomputes every loan balance from completed allocations and
// reports loans that drifted. It never writes to the ledger.
type ReconciliationJob struct {
	ledger LedgerReader
	logger *slog.Logger
	now    func() time.Time
}

func NewReconciliationJob(ledger LedgerReader, logger *slog.Logger) *ReconciliationJob {
	if ledger == nil || logger == nil {
		panic("ReconciliationJob dependencies cannot be nil")
	}
	return &ReconciliationJob{
		ledger: ledger,
		logger: logger.With("job", "LedgerReconciliation"),
		now:    time.Now,
	}
}

func (j *ReconciliationJob) Run(ctx context.Context) ([]Mismatch, error) {
	startTime := j.now()
	j.logger.InfoContext(ctx, "Starting ledger reconciliation job.")

	entries, err := j.ledger.ListLedgerEntries(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to load ledger entries, aborting job.", slog.Any("error", err))
		return nil, fmt.Errorf("cannot run reconciliation, failed to load ledger: %w", err)
	}

	customers := make(map[int64]struct{})
	var mismatches []Mismatch
	for _, e := range entries {
		customers[e.Loan.CustomerID] = struct{}{}
		problems := e.Discrepancies()
		if len(problems) == 0 {
			continue
		}
		mismatches = append(mismatches, Mismatch{LoanID: e.Loan.ID, CustomerID: e.Loan.CustomerID, Problems: problems})
		monitoring.RecordInvariantViolation("reconciliation")
		j.logger.ErrorContext(ctx, "Ledger invariant violation found",
			slog.Int64("loanID", e.Loan.ID),
			slog.Int64("customerID", e.Loan.CustomerID),
			slog.String("status", string(e.Loan.Status)),
			slog.String("outstanding", e.Loan.Outstanding.String()),
			slog.String("expected", e.ExpectedOutstanding().String()),
			slog.Any("problems", problems),
		)
	}

	finishedAt := j.now()
	monitoring.RecordReconciliation(len(mismatches), finishedAt)

	summaryLog := j.logger.With(
		slog.Duration("duration", finishedAt.Sub(startTime)),
		slog.Int("loans_checked", len(entries)),
		slog.Int("customers_checked", len(customers)),
		slog.Int("mismatches", len(mismatches)),
	)
	if len(mismatches) > 0 {
		summaryLog.WarnContext(ctx, "Ledger reconciliation finished with mismatches.")
	} else {
		summaryLog.InfoContext(ctx, "Ledger reconciliation finished, ledger is consistent.")
	}
	return mismatches, nil
}
