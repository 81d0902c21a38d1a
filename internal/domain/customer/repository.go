package customer

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type CustomerRepository interface {
	Create(ctx context.Context, customer *Customer) error

	Update(ctx context.Context, customer *Customer) error

	FindByID(ctx context.Context, customerID int64) (*Customer, error)

	// FindByIDForUpdate reads the customer row and holds its lock until tx ends.
	FindByIDForUpdate(ctx context.Context, tx pgx.Tx, customerID int64) (*Customer, error)

	FindAll(ctx context.Context, status *Status) ([]*Customer, error)

	Delete(ctx context.Context, customerID int64) error
}
