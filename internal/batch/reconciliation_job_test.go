package batch

import (
	"context"
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/infrastructure/monitoring"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockLedgerReader struct {
	mock.Mock
}

func (m *MockLedgerReader) ListLedgerEntries(ctx context.Context) ([]loan.LedgerEntry, error) {
	args := m.Called(ctx)
	entries, _ := args.Get(0).([]loan.LedgerEntry)
	return entries, args.Error(1)
}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func entry(id, customerID int64, amount, outstanding, allocated string, status loan.LoanStatus) loan.LedgerEntry {
	return loan.LedgerEntry{
		Loan: loan.Loan{
			ID: id, CustomerID: customerID, Status: status,
			Amount: decimal.RequireFromString(amount), Outstanding: decimal.RequireFromString(outstanding),
		},
		Allocated: decimal.RequireFromString(allocated),
	}
}

func TestReconciliationJobFindsDrift(t *testing.T) {
	reader := new(MockLedgerReader)
	reader.On("ListLedgerEntries", mock.Anything).Return([]loan.LedgerEntry{
		entry(1, 1, "1000", "0", "1000", loan.StatusPaid),
		entry(2, 1, "500", "500", "0", loan.StatusPending),
		entry(3, 2, "700", "300", "300", loan.StatusActive),
	}, nil)

	job := NewReconciliationJob(reader, discard)
	fixed := time.Date(2026, 3, 1, 3, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	mismatches, err := job.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, int64(3), mismatches[0].LoanID)
	assert.Equal(t, int64(2), mismatches[0].CustomerID)

	assert.Equal(t, float64(1), testutil.ToFloat64(monitoring.Ledger.ReconciliationMismatch))
	assert.Equal(t, float64(fixed.Unix()), testutil.ToFloat64(monitoring.Ledger.ReconciliationLastRunAt))
	reader.AssertExpectations(t)
}

func TestReconciliationJobConsistentLedger(t *testing.T) {
	reader := new(MockLedgerReader)
	reader.On("ListLedgerEntries", mock.Anything).Return([]loan.LedgerEntry{
		entry(1, 1, "1000", "600", "400", loan.StatusActive),
	}, nil)

	mismatches, err := NewReconciliationJob(reader, discard).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, mismatches)
	assert.Equal(t, float64(0), testutil.ToFloat64(monitoring.Ledger.ReconciliationMismatch))
}

func TestReconciliationJobLoadFailure(t *testing.T) {
	reader := new(MockLedgerReader)
	reader.On("ListLedgerEntries", mock.Anything).Return(nil, errors.New("db down"))

	_, err := NewReconciliationJob(reader, discard).Run(context.Background())
	assert.ErrorContains(t, err, "db down")
}
