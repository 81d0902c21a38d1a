package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type LedgerMetrics struct {
	PaymentsTotal           *prometheus.CounterVec
	ReversalsTotal          *prometheus.CounterVec
	LoanIssuanceTotal       *prometheus.CounterVec
	InvariantViolations     *prometheus.CounterVec
	ReconciliationMismatch  prometheus.Gauge
	ReconciliationLastRunAt prometheus.Gauge
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "credit_ledger_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Ledger = LedgerMetrics{
		PaymentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_ledger_payments_total",
				Help: "Payment applications by outcome.",
			},
			[]string{"status"},
		),
		ReversalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_ledger_payment_reversals_total",
				Help: "Payment reversals by outcome.",
			},
			[]string{"status"},
		),
		LoanIssuanceTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_ledger_loan_issuance_total",
				Help: "Loan creation attempts by outcome.",
			},
			[]string{"status"},
		),
		InvariantViolations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "credit_ledger_invariant_violations_total",
				Help: "Ledger invariant violations detected, by operation.",
			},
			[]string{"operation"},
		),
		ReconciliationMismatch: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "credit_ledger_reconciliation_mismatches",
				Help: "Loans whose stored outstanding disagreed with their allocations on the last reconciliation run.",
			},
		),
		ReconciliationLastRunAt: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "credit_ledger_reconciliation_last_run_timestamp_seconds",
				Help: "Unix time of the last completed reconciliation run.",
			},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordPayment(status string) {
	Ledger.PaymentsTotal.WithLabelValues(status).Inc()
}

func RecordReversal(status string) {
	Ledger.ReversalsTotal.WithLabelValues(status).Inc()
}

func RecordLoanIssuance(status string) {
	Ledger.LoanIssuanceTotal.WithLabelValues(status).Inc()
}

func RecordInvariantViolation(operation string) {
	Ledger.InvariantViolations.WithLabelValues(operation).Inc()
}

func RecordReconciliation(mismatches int, finishedAt time.Time) {
	Ledger.ReconciliationMismatch.Set(float64(mismatches))
	Ledger.ReconciliationLastRunAt.Set(float64(finishedAt.Unix()))
}
