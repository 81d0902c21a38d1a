package loan

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type ListFilter struct {
	CustomerID *int64
	Statuses   []LoanStatus
}

type Repository interface {
	CreateLoanInTx(ctx context.Context, tx pgx.Tx, l *Loan) (*Loan, error)

	UpdateLoanInTx(ctx context.Context, tx pgx.Tx, l *Loan) error

	// UpdateBalanceInTx writes a new outstanding balance and status. Only payment
	// application and reversal call it.
	UpdateBalanceInTx(ctx context.Context, tx pgx.Tx, loanID int64, outstanding decimal.Decimal, status LoanStatus) error

	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*Loan, error)

	// FindByCustomerForUpdate locks every loan of the customer, ordered by id.
	FindByCustomerForUpdate(ctx context.Context, tx pgx.Tx, customerID int64) ([]*Loan, error)

	// FindByIDsForUpdate locks the given loans, ordered by id. Missing ids are skipped.
	FindByIDsForUpdate(ctx context.Context, tx pgx.Tx, loanIDs []int64) ([]*Loan, error)

	GetLoanByID(ctx context.Context, loanID int64) (*Loan, error)

	ListLoans(ctx context.Context, filter ListFilter) ([]*Loan, error)

	DeleteLoan(ctx context.Context, loanID int64) error

	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error
}
