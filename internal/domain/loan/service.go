package loan

import (
	"context"
	"credit-ledger/internal/domain/customer"
	"credit-ledger/internal/event"
	"credit-ledger/internal/infrastructure/monitoring"
	"credit-ledger/internal/pkg/apperrors"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// DebtSummary is the customer's exposure as reported by the debt endpoint.
type DebtSummary struct {
	CustomerID      int64
	ExternalID      string
	CreditCeiling   decimal.Decimal
	TotalDebt       decimal.Decimal
	AvailableAmount decimal.Decimal
}

type LoanService interface {
	CreateLoan(ctx context.Context, in CreateInput) (*Loan, error)

	UpdateLoan(ctx context.Context, loanID int64, in UpdateInput) (*Loan, error)

	GetLoan(ctx context.Context, loanID int64) (*Loan, error)

	ListLoans(ctx context.Context, filter ListFilter) ([]*Loan, error)

	GetCustomerDebt(ctx context.Context, customerID int64) (*DebtSummary, error)

	DeleteLoan(ctx context.Context, loanID int64) error
}

type loanServiceImpl struct {
	repo      Repository
	customers customer.CustomerRepository
	pub       event.EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewLoanService(r Repository, customers customer.CustomerRepository, pub event.EventPublisher, logger *slog.Logger) LoanService {
	if pub == nil {
		pub = event.NoopPublisher{}
	}
	return &loanServiceImpl{
		repo:      r,
		customers: customers,
		pub:       pub,
		logger:    logger.With("component", "LoanService"),
		now:       time.Now,
	}
}

func (s *loanServiceImpl) CreateLoan(ctx context.Context, in CreateInput) (created *Loan, err error) {
	logger := s.logger.With("customerID", in.CustomerID, "externalID", in.ExternalID)
	logger.InfoContext(ctx, "Creating new loan", "amount", in.Amount.String())

	now := s.now()
	newLoan, err := ApplyCreationDefaults(in, now)
	if err != nil {
		logger.WarnContext(ctx, "Loan creation request rejected", "error", err)
		monitoring.RecordLoanIssuance(issuanceStatus(err))
		return nil, err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}

	defer func() {
		if p := recover(); p != nil {
			logger.ErrorContext(ctx, "Panic occurred during loan creation", "error", p)
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		}
		monitoring.RecordLoanIssuance(issuanceStatus(err))
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
		logger.ErrorContext(ctx, "Failed to lock customer", "error", err)
		return nil, fmt.Errorf("failed to load customer %d: %w", in.CustomerID, err)
	}

	existing, err := s.repo.FindByCustomerForUpdate(ctx, tx, cust.ID)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to lock customer loans", "error", err)
		return nil, fmt.Errorf("failed to load loans of customer %d: %w", cust.ID, err)
	}

	if err = ValidateIssuance(cust, existing, newLoan.Amount); err != nil {
		logger.WarnContext(ctx, "Loan issuance rejected", "error", err)
		return nil, err
	}

	created, err = s.repo.CreateLoanInTx(ctx, tx, newLoan)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to save loan", "error", err)
		return nil, fmt.Errorf("failed to save loan: %w", err)
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		logger.ErrorContext(ctx, "Failed to commit loan creation", "error", err)
		return nil, err
	}
	logger.InfoContext(ctx, "Loan created successfully", "loanID", created.ID, "status", created.Status)

	if pubErr := s.pub.PublishLoanCreated(ctx, event.LoanCreatedEvent{
		LoanID:      created.ID,
		CustomerID:  created.CustomerID,
		ExternalID:  created.ExternalID,
		Amount:      created.Amount,
		Outstanding: created.Outstanding,
		Status:      string(created.Status),
		Timestamp:   now,
	}); pubErr != nil {
		logger.ErrorContext(ctx, "Loan created, but failed to publish creation event", "error", pubErr)
	}

	return created, nil
}

func (s *loanServiceImpl) UpdateLoan(ctx context.Context, loanID int64, in UpdateInput) (updated *Loan, err error) {
	logger := s.logger.With("loanID", loanID)
	logger.InfoContext(ctx, "Updating loan")

	if in.Amount != nil || in.Outstanding != nil {
		logger.InfoContext(ctx, "Ignoring amount/outstanding on loan update")
		in.Amount, in.Outstanding = nil, nil
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf("%w: could not begin transaction: %v", apperrors.ErrInternalServer, err)
	}

	defer func() {
		if p := recover(); p != nil {
			logger.ErrorContext(ctx, "Panic occurred during loan update", "error", p)
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		} else if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	l, err := s.repo.FindByIDForUpdate(ctx, tx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, "Loan not found")
			return nil, fmt.Errorf("%w: loan %d", apperrors.ErrNotFound, loanID)
		}
		return nil, fmt.Errorf("failed to load loan %d: %w", loanID, err)
	}

	now := s.now()
	previous, changed, err := l.ApplyUpdate(in, now)
	if err != nil {
		logger.WarnContext(ctx, "Loan update rejected", "error", err, "status", l.Status)
		return nil, err
	}

	if err = s.repo.UpdateLoanInTx(ctx, tx, l); err != nil {
		logger.ErrorContext(ctx, "Failed to save loan update", "error", err)
		return nil, fmt.Errorf("failed to update loan %d: %w", loanID, err)
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		logger.ErrorContext(ctx, "Failed to commit loan update", "error", err)
		return nil, err
	}
	logger.InfoContext(ctx, "Loan updated", "status", l.Status)

	if changed {
		s.publishStatusChange(ctx, l, previous, now)
	}
	return l, nil
}

func (s *loanServiceImpl) publishStatusChange(ctx context.Context, l *Loan, previous LoanStatus, at time.Time) {
	err := s.pub.PublishLoanStatusChanged(ctx, event.LoanStatusChangedEvent{
		LoanID:     l.ID,
		CustomerID: l.CustomerID,
		OldStatus:  string(previous),
		NewStatus:  string(l.Status),
		Timestamp:  at,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish loan status change", "loanID", l.ID, "error", err)
	}
}

func (s *loanServiceImpl) GetLoan(ctx context.Context, loanID int64) (*Loan, error) {
	l, err := s.repo.GetLoanByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: loan %d", apperrors.ErrNotFound, loanID)
		}
		s.logger.ErrorContext(ctx, "Failed to get loan", "loanID", loanID, "error", err)
		return nil, fmt.Errorf("failed to get loan %d: %w", loanID, err)
	}
	return l, nil
}

func (s *loanServiceImpl) ListLoans(ctx context.Context, filter ListFilter) ([]*Loan, error) {
	if filter.CustomerID != nil {
		if _, err := s.customers.FindByID(ctx, *filter.CustomerID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, fmt.Errorf("%w: customer %d", apperrors.ErrNotFound, *filter.CustomerID)
			}
			return nil, fmt.Errorf("failed to load customer %d: %w", *filter.CustomerID, err)
		}
	}
	loans, err := s.repo.ListLoans(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list loans", "error", err)
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return loans, nil
}

// GetCustomerDebt reads the customer's loans with a single statement so the
// total reflects one snapshot.
func (s *loanServiceImpl) GetCustomerDebt(ctx context.Context, customerID int64) (*DebtSummary, error) {
	cust, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: customer %d", apperrors.ErrNotFound, customerID)
		}
		return nil, fmt.Errorf("failed to load customer %d: %w", customerID, err)
	}

	loans, err := s.repo.ListLoans(ctx, ListFilter{
		CustomerID: &customerID,
		Statuses:   []LoanStatus{StatusPending, StatusActive},
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load loans for debt", "customerID", customerID, "error", err)
		return nil, fmt.Errorf("failed to compute debt of customer %d: %w", customerID, err)
	}

	total := TotalDebt(loans)
	return &DebtSummary{
		CustomerID:      cust.ID,
		ExternalID:      cust.ExternalID,
		CreditCeiling:   cust.CreditCeiling,
		TotalDebt:       total,
		AvailableAmount: cust.CreditCeiling.Sub(total),
	}, nil
}

func (s *loanServiceImpl) DeleteLoan(ctx context.Context, loanID int64) error {
	if err := s.repo.DeleteLoan(ctx, loanID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return fmt.Errorf("%w: loan %d", apperrors.ErrNotFound, loanID)
		}
		s.logger.ErrorContext(ctx, "Failed to delete loan", "loanID", loanID, "error", err)
		return fmt.Errorf("failed to delete loan %d: %w", loanID, err)
	}
	s.logger.InfoContext(ctx, "Loan deleted", "loanID", loanID)
	return nil
}

func issuanceStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrCreditExceeded):
		return "failure_credit_exceeded"
	case errors.Is(err, apperrors.ErrNotFound):
		return "failure_not_found"
	case errors.Is(err, apperrors.ErrInvalidTransition), errors.Is(err, apperrors.ErrDirectPaidNotAllowed):
		return "failure_status"
	case errors.Is(err, apperrors.ErrValidation):
		return "failure_validation"
	}
	return "failure_internal"
}
