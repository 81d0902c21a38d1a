package payment

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type Repository interface {
	// CreatePaymentInTx inserts the payment and its allocations and fills in their ids.
	CreatePaymentInTx(ctx context.Context, tx pgx.Tx, p *Payment) (*Payment, error)

	// FindByIDForUpdate locks the payment row and loads its allocations.
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, paymentID int64) (*Payment, error)

	UpdateStatusInTx(ctx context.Context, tx pgx.Tx, paymentID int64, status Status) error

	GetPaymentByID(ctx context.Context, paymentID int64) (*Payment, error)

	ListByCustomer(ctx context.Context, customerID int64) ([]*Payment, error)

	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error
}
