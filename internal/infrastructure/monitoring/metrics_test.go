package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordPayment(t *testing.T) {
	Ledger.PaymentsTotal.Reset()

	RecordPayment("success")
	RecordPayment("success")
	RecordPayment("failure_amount_mismatch")

	assert.Equal(t, float64(2), testutil.ToFloat64(Ledger.PaymentsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(Ledger.PaymentsTotal.WithLabelValues("failure_amount_mismatch")))
}

func TestRecordInvariantViolation(t *testing.T) {
	Ledger.InvariantViolations.Reset()

	RecordInvariantViolation("apply_payment")

	assert.Equal(t, float64(1), testutil.ToFloat64(Ledger.InvariantViolations.WithLabelValues("apply_payment")))
}

func TestRecordReconciliation(t *testing.T) {
	finished := time.Unix(1_700_000_000, 0)

	RecordReconciliation(3, finished)

	assert.Equal(t, float64(3), testutil.ToFloat64(Ledger.ReconciliationMismatch))
	assert.Equal(t, float64(1_700_000_000), testutil.ToFloat64(Ledger.ReconciliationLastRunAt))
}

func TestRecordDBQuery(t *testing.T) {
	DB.QueryDuration.Reset()

	RecordDBQuery("FindLoansByCustomerForUpdate", "success", 5*time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(DB.QueryDuration))
}
