package payment

import (
	"context"
	"credit-ledger/internal/domain/customer"
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/event"
	"credit-ledger/internal/pkg/apperrors"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishLoanCreated(ctx context.Context, e event.LoanCreatedEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockPublisher) PublishLoanStatusChanged(ctx context.Context, e event.LoanStatusChangedEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockPublisher) PublishPaymentApplied(ctx context.Context, e event.PaymentAppliedEvent) error {
	return m.Called(ctx, e).Error(0)
}

func (m *MockPublisher) PublishPaymentRejected(ctx context.Context, e event.PaymentRejectedEvent) error {
	return m.Called(ctx, e).Error(0)
}

var fixedNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	ledger *fakeLedger
	pub    *MockPublisher
	svc    PaymentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ledger := newFakeLedger()
	pub := new(MockPublisher)
	pub.On("PublishPaymentApplied", mock.Anything, mock.Anything).Return(nil).Maybe()
	pub.On("PublishPaymentRejected", mock.Anything, mock.Anything).Return(nil).Maybe()

	svc := NewPaymentService(ledger, loanView{ledger}, customerView{ledger}, pub, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.(*paymentServiceImpl).now = func() time.Time { return fixedNow }
	return &fixture{ledger: ledger, pub: pub, svc: svc}
}

func (f *fixture) addCustomer(id int64, ceiling string) {
	f.ledger.customers[id] = customer.Customer{ID: id, ExternalID: "c", Status: customer.StatusActive, CreditCeiling: d(ceiling)}
}

func (f *fixture) addLoan(id, customerID int64, amount, outstanding string, status loan.LoanStatus) {
	f.ledger.loans[id] = loan.Loan{ID: id, CustomerID: customerID, Amount: d(amount), Outstanding: d(outstanding), Status: status}
}

func TestScenarioBAndC(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addCustomer(1, "4000")
	f.addLoan(10, 1, "3500", "3500", loan.StatusActive)

	// B: a payment that retires the loan.
	p, err := f.svc.ApplyPayment(ctx, ApplyInput{
		CustomerID:  1,
		ExternalID:  "pay-1",
		TotalAmount: d("3500"),
		Allocations: []AllocationRequest{alloc(10, "3500")},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, p.Status)
	require.Len(t, p.Allocations, 1)
	assert.Equal(t, p.ID, p.Allocations[0].PaymentID)

	l := f.ledger.loans[10]
	assert.True(t, l.Outstanding.IsZero())
	assert.Equal(t, loan.StatusPaid, l.Status)
	assert.Equal(t, []string{"customer", "loans"}, f.ledger.locked)

	// C: reverse it.
	rejected, err := f.svc.RejectPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, StatusRejected, f.ledger.payments[p.ID].Status)

	l = f.ledger.loans[10]
	assert.True(t, l.Outstanding.Equal(d("3500")))
	assert.Equal(t, loan.StatusActive, l.Status)
	assert.Equal(t, []string{"payment", "customer", "loans"}, f.ledger.locked)

	// Second reversal fails and changes nothing.
	_, err = f.svc.RejectPayment(ctx, p.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyRejected)
	assert.True(t, f.ledger.loans[10].Outstanding.Equal(d("3500")))
	assert.Equal(t, 2, f.ledger.commits)

	f.pub.AssertCalled(t, "PublishPaymentApplied", mock.Anything, mock.MatchedBy(func(e event.PaymentAppliedEvent) bool {
		return e.PaymentID == p.ID && len(e.PaidLoanIDs) == 1 && e.PaidLoanIDs[0] == 10
	}))
	f.pub.AssertNumberOfCalls(t, "PublishPaymentRejected", 1)
}

func TestScenarioDNoOutstandingDebt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addCustomer(1, "4000")
	f.addLoan(10, 1, "100", "0", loan.StatusPaid)

	_, err := f.svc.ApplyPayment(ctx, ApplyInput{
		CustomerID: 1, ExternalID: "pay", TotalAmount: d("10"),
		Allocations: []AllocationRequest{alloc(10, "10")},
	})
	assert.ErrorIs(t, err, apperrors.ErrNoOutstandingDebt)
	assert.Empty(t, f.ledger.payments)
	assert.Equal(t, 1, f.ledger.rollbacks)
	f.pub.AssertNotCalled(t, "PublishPaymentApplied", mock.Anything, mock.Anything)
}

func TestScenarioEAmountMismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addCustomer(1, "4000")
	f.addLoan(10, 1, "100", "100", loan.StatusActive)

	_, err := f.svc.ApplyPayment(ctx, ApplyInput{
		CustomerID: 1, ExternalID: "pay", TotalAmount: d("100"),
		Allocations: []AllocationRequest{alloc(10, "60")},
	})
	assert.ErrorIs(t, err, apperrors.ErrAmountMismatch)
	assert.Empty(t, f.ledger.payments)
	assert.True(t, f.ledger.loans[10].Outstanding.Equal(d("100")))
}

func TestApplyPaymentIsAtomic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addCustomer(1, "4000")
	f.addLoan(10, 1, "100", "100", loan.StatusActive)
	f.addLoan(11, 1, "100", "30", loan.StatusActive)

	_, err := f.svc.ApplyPayment(ctx, ApplyInput{
		CustomerID: 1, ExternalID: "pay", TotalAmount: d("90"),
		Allocations: []AllocationRequest{alloc(10, "50"), alloc(11, "40")},
	})
	assert.ErrorIs(t, err, apperrors.ErrAllocationExceedsOutstanding)
	assert.Empty(t, f.ledger.payments)
	assert.True(t, f.ledger.loans[10].Outstanding.Equal(d("100")))
	assert.True(t, f.ledger.loans[11].Outstanding.Equal(d("30")))
}

func TestApplyPaymentRollsBackOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addCustomer(1, "4000")
	f.addLoan(10, 1, "100", "100", loan.StatusActive)
	f.ledger.failBalanceUpdate = true

	_, err := f.svc.ApplyPayment(ctx, ApplyInput{
		CustomerID: 1, ExternalID: "pay", TotalAmount: d("40"),
		Allocations: []AllocationRequest{alloc(10, "40")},
	})
	assert.ErrorIs(t, err, apperrors.ErrDatabase)
	assert.Empty(t, f.ledger.payments, "payment insert must be rolled back")
	assert.Equal(t, 0, f.ledger.commits)
}

func TestApplyPaymentRejectsLoanOfOtherCustomer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addCustomer(1, "4000")
	f.addCustomer(2, "4000")
	f.addLoan(10, 1, "100", "100", loan.StatusActive)
	f.addLoan(20, 2, "100", "100", loan.StatusActive)

	_, err := f.svc.ApplyPayment(ctx, ApplyInput{
		CustomerID: 1, ExternalID: "pay", TotalAmount: d("50"),
		Allocations: []AllocationRequest{alloc(20, "50")},
	})
	assert.ErrorIs(t, err, apperrors.ErrUnknownOrClosedLoan)
}

func TestApplyPaymentUnknownCustomer(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ApplyPayment(context.Background(), ApplyInput{
		CustomerID: 5, ExternalID: "pay", TotalAmount: d("1"),
		Allocations: []AllocationRequest{alloc(1, "1")},
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestApplyPaymentValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ApplyPayment(context.Background(), ApplyInput{
		CustomerID: 1, ExternalID: "pay", TotalAmount: d("1"),
		Allocations: []AllocationRequest{alloc(1, "-1")},
	})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Equal(t, 0, f.ledger.rollbacks)
}

func TestRejectPaymentReactivatesRejectedLoan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addCustomer(1, "4000")
	f.addLoan(10, 1, "100", "100", loan.StatusActive)

	p, err := f.svc.ApplyPayment(ctx, ApplyInput{
		CustomerID: 1, ExternalID: "pay", TotalAmount: d("40"),
		Allocations: []AllocationRequest{alloc(10, "40")},
	})
	require.NoError(t, err)

	l := f.ledger.loans[10]
	l.Status = loan.StatusRejected
	f.ledger.loans[10] = l

	_, err = f.svc.RejectPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.StatusActive, f.ledger.loans[10].Status)
	assert.True(t, f.ledger.loans[10].Outstanding.Equal(d("100")))
}

func TestRejectPaymentNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.RejectPayment(context.Background(), 404)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetAndListPayments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addCustomer(1, "4000")
	f.addLoan(10, 1, "100", "100", loan.StatusActive)

	p, err := f.svc.ApplyPayment(ctx, ApplyInput{
		CustomerID: 1, ExternalID: "pay", TotalAmount: d("10"),
		Allocations: []AllocationRequest{alloc(10, "10")},
	})
	require.NoError(t, err)

	got, err := f.svc.GetPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, got.Allocations, 1)

	list, err := f.svc.ListCustomerPayments(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.ListCustomerPayments(ctx, 9)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.svc.GetPayment(ctx, 999)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
