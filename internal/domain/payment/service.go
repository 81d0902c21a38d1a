package payment

import (
	"context"
	"credit-ledger/internal/domain/customer"
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/event"
	"credit-ledger/internal/infrastructure/monitoring"
	"credit-ledger/internal/pkg/apperrors"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

type PaymentService interface {
	ApplyPayment(ctx context.Context, in ApplyInput) (*Payment, error)

	RejectPayment(ctx context.Context, paymentID int64) (*Payment, error)

	GetPayment(ctx context.Context, paymentID int64) (*Payment, error)

	ListCustomerPayments(ctx context.Context, customerID int64) ([]*Payment, error)
}

type paymentServiceImpl struct {
	repo      Repository
	loans     loan.Repository
	customers customer.CustomerRepository
	pub       event.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewPaymentService(repo Repository, loans loan.Repository, customers customer.CustomerRepository, pub event.EventPublisher, logger *slog.Logger) PaymentService {
	if pub == nil {
		pub = event.NoopPublisher{}
	}
	return &paymentServiceImpl{
		repo:      repo,
		loans:     loans,
		customers: customers,
		pub:       pub,
		logger:    logger.With("component", "PaymentService"),
		now:       time.Now,
	}
}

// ApplyPayment validates and applies a payment in one transaction. The customer
// row and then all of the customer's loans are locked before any check runs, so
// the debt read and the balance writes see the same state.
func (s *paymentServiceImpl) ApplyPayment(ctx context.Context, in ApplyInput) (created *Payment, err error) {
	logger := s.logger.With("customerID", in.CustomerID, "externalID", in.ExternalID)
	logger.InfoContext(ctx, "Applying payment", "totalAmount", in.TotalAmount.String(), "allocations", len(in.Allocations))

	if err = in.validate(); err != nil {
		logger.WarnContext(ctx, "Payment request rejected", "error", err)
		monitoring.RecordPayment(paymentStatus(err))
		return nil, err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}

	defer func() {
		if p := recover(); p != nil {
			logger.ErrorContext(ctx, "Panic occurred during payment processing", "error", p)
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		}
		monitoring.RecordPayment(paymentStatus(err))
		if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	cust, err := s.customers.FindByIDForUpdate(ctx, tx, in.CustomerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, "Customer not found")
			return nil, fmt.Errorf("%w: customer %d", apperrors.ErrNotFound, in.CustomerID)
		}
		return nil, fmt.Errorf("failed to load customer %d: %w", in.CustomerID, err)
	}

	loans, err := s.loans.FindByCustomerForUpdate(ctx, tx, cust.ID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to lock customer loans", "error", err)
		return nil, fmt.Errorf("failed to load loans of customer %d: %w", cust.ID, err)
	}

	plan, err := PlanAllocation(in.TotalAmount, in.Allocations, loans)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvariantViolation) {
			logger.ErrorContext(ctx, "Ledger invariant violated while planning payment", "error", err)
			monitoring.RecordInvariantViolation("apply_payment")
		} else {
			logger.WarnContext(ctx, "Payment rejected", "error", err)
		}
		return nil, err
	}

	p := &Payment{
		ExternalID:  strings.TrimSpace(in.ExternalID),
		CustomerID:  cust.ID,
		TotalAmount: in.TotalAmount,
		Status:      StatusCompleted,
	}
	for _, a := range in.Allocations {
		p.Allocations = append(p.Allocations, Allocation{LoanID: a.LoanID, Amount: a.Amount})
	}

	created, err = s.repo.CreatePaymentInTx(ctx, tx, p)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to save payment", "error", err)
		return nil, fmt.Errorf("failed to save payment: %w", err)
	}

	if err = s.writeChanges(ctx, tx, plan.Changes); err != nil {
		return nil, err
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		logger.ErrorContext(ctx, "Failed to commit payment", "error", err)
		return nil, err
	}
	logger.InfoContext(ctx, "Payment applied", "paymentID", created.ID, "paidLoans", plan.PaidLoanIDs())

	if pubErr := s.pub.PublishPaymentApplied(ctx, event.PaymentAppliedEvent{
		PaymentID:   created.ID,
		CustomerID:  created.CustomerID,
		ExternalID:  created.ExternalID,
		TotalAmount: created.TotalAmount,
		Allocations: allocationPayloads(created.Allocations),
		PaidLoanIDs: plan.PaidLoanIDs(),
		Timestamp:   s.now(),
	}); pubErr != nil {
		logger.ErrorContext(ctx, "Payment applied, but failed to publish event", "error", pubErr)
	}

	return created, nil
}

// RejectPayment reverses a completed payment. Locks are taken payment first,
// then customer, then the affected loans in id order.
func (s *paymentServiceImpl) RejectPayment(ctx context.Context, paymentID int64) (rejected *Payment, err error) {
	logger := s.logger.With("paymentID", paymentID)
	logger.InfoContext(ctx, "Rejecting payment")

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}

	defer func() {
		if p := recover(); p != nil {
			logger.ErrorContext(ctx, "Panic occurred during payment reversal", "error", p)
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		}
		monitoring.RecordReversal(paymentStatus(err))
		if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	p, err := s.repo.FindByIDForUpdate(ctx, tx, paymentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, "Payment not found")
			return nil, fmt.Errorf("%w: payment %d", apperrors.ErrNotFound, paymentID)
		}
		return nil, fmt.Errorf("failed to load payment %d: %w", paymentID, err)
	}

	if p.Status == StatusRejected {
		logger.WarnContext(ctx, "Payment already rejected")
		return nil, fmt.Errorf("%w: payment %d", apperrors.ErrAlreadyRejected, paymentID)
	}

	if _, err = s.customers.FindByIDForUpdate(ctx, tx, p.CustomerID); err != nil {
		return nil, fmt.Errorf("failed to lock customer %d: %w", p.CustomerID, err)
	}

	loans, err := s.loans.FindByIDsForUpdate(ctx, tx, affectedLoanIDs(p.Allocations))
	if err != nil {
		logger.ErrorContext(ctx, "Failed to lock loans of payment", "error", err)
		return nil, fmt.Errorf("failed to load loans of payment %d: %w", paymentID, err)
	}

	changes, err := PlanReversal(p, loans)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvariantViolation) {
			logger.ErrorContext(ctx, "Ledger invariant violated while planning reversal", "error", err)
			monitoring.RecordInvariantViolation("reject_payment")
		}
		return nil, err
	}

	if err = s.repo.UpdateStatusInTx(ctx, tx, p.ID, StatusRejected); err != nil {
		logger.ErrorContext(ctx, "Failed to mark payment rejected", "error", err)
		return nil, fmt.Errorf("failed to update payment %d: %w", paymentID, err)
	}

	if err = s.writeChanges(ctx, tx, changes); err != nil {
		return nil, err
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		logger.ErrorContext(ctx, "Failed to commit payment reversal", "error", err)
		return nil, err
	}

	p.Status = StatusRejected
	for _, c := range changes {
		if c.OldStatus != loan.StatusActive && c.OldStatus != loan.StatusPaid {
			// Reversal reopens loans that were closed by another path.
			logger.WarnContext(ctx, "Reversal reactivated loan", "loanID", c.LoanID, "previousStatus", c.OldStatus)
		}
	}
	logger.InfoContext(ctx, "Payment rejected", "loans", len(changes))

	if pubErr := s.pub.PublishPaymentRejected(ctx, event.PaymentRejectedEvent{
		PaymentID:   p.ID,
		CustomerID:  p.CustomerID,
		TotalAmount: p.TotalAmount,
		Allocations: allocationPayloads(p.Allocations),
		Timestamp:   s.now(),
	}); pubErr != nil {
		logger.ErrorContext(ctx, "Payment rejected, but failed to publish event", "error", pubErr)
	}

	return p, nil
}

func (s *paymentServiceImpl) writeChanges(ctx context.Context, tx pgx.Tx, changes []LoanChange) error {
	for _, c := range changes {
		if err := s.loans.UpdateBalanceInTx(ctx, tx, c.LoanID, c.NewOutstanding, c.NewStatus); err != nil {
			s.logger.ErrorContext(ctx, "Failed to update loan balance", "loanID", c.LoanID, "error", err)
			return fmt.Errorf("failed to update loan %d: %w", c.LoanID, err)
		}
	}
	return nil
}

func (s *paymentServiceImpl) GetPayment(ctx context.Context, paymentID int64) (*Payment, error) {
	p, err := s.repo.GetPaymentByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: payment %d", apperrors.ErrNotFound, paymentID)
		}
		s.logger.ErrorContext(ctx, "Failed to get payment", "paymentID", paymentID, "error", err)
		return nil, fmt.Errorf("failed to get payment %d: %w", paymentID, err)
	}
	return p, nil
}

func (s *paymentServiceImpl) ListCustomerPayments(ctx context.Context, customerID int64) ([]*Payment, error) {
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: customer %d", apperrors.ErrNotFound, customerID)
		}
		return nil, fmt.Errorf("failed to load customer %d: %w", customerID, err)
	}
	payments, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list payments", "customerID", customerID, "error", err)
		return nil, fmt.Errorf("failed to list payments of customer %d: %w", customerID, err)
	}
	return payments, nil
}

func affectedLoanIDs(allocs []Allocation) []int64 {
	seen := make(map[int64]struct{}, len(allocs))
	ids := make([]int64, 0, len(allocs))
	for _, a := range allocs {
		if _, ok := seen[a.LoanID]; ok {
			continue
		}
		seen[a.LoanID] = struct{}{}
		ids = append(ids, a.LoanID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func allocationPayloads(allocs []Allocation) []event.AllocationPayload {
	out := make([]event.AllocationPayload, 0, len(allocs))
	for _, a := range allocs {
		out = append(out, event.AllocationPayload{LoanID: a.LoanID, Amount: a.Amount})
	}
	return out
}

func paymentStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrAmountMismatch):
		return "failure_amount_mismatch"
	case errors.Is(err, apperrors.ErrNoOutstandingDebt):
		return "failure_no_debt"
	case errors.Is(err, apperrors.ErrAmountExceedsDebt):
		return "failure_exceeds_debt"
	case errors.Is(err, apperrors.ErrUnknownOrClosedLoan), errors.Is(err, apperrors.ErrAllocationExceedsOutstanding):
		return "failure_allocation"
	case errors.Is(err, apperrors.ErrAlreadyRejected):
		return "failure_already_rejected"
	case errors.Is(err, apperrors.ErrNotFound):
		return "failure_not_found"
	case errors.Is(err, apperrors.ErrValidation):
		return "failure_validation"
	case errors.Is(err, apperrors.ErrInvariantViolation):
		return "failure_invariant"
	}
	return "failure_internal"
}
