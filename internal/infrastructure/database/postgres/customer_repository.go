package postgres

import (
	"context"
	"credit-ledger/internal/domain/customer"
	"credit-ledger/internal/pkg/apperrors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

const customerColumns = `id, external_id, status, credit_ceiling, preapproved_at, created_at, updated_at`

type CustomerRepository struct {
	txManager
}

var _ customer.CustomerRepository = (*CustomerRepository)(nil)

func NewCustomerRepository(db DBPool, logger *slog.Logger) *CustomerRepository {
	if db == nil {
		panic("DBPool cannot be nil for CustomerRepository")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CustomerRepository{txManager{db: db, logger: logger.With("component", "CustomerRepository")}}
}

func scanCustomer(row pgx.Row) (*customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(&c.ID, &c.ExternalID, &c.Status, &c.CreditCeiling, &c.PreapprovedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	start := time.Now()

	query := `
        INSERT INTO customers (external_id, status, credit_ceiling, preapproved_at, created_at, updated_at)
        VALUES ($1, $2, $3, $4, NOW(), NOW())
        RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query, c.ExternalID, c.Status, c.CreditCeiling, c.PreapprovedAt).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	observe("CreateCustomer", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert customer", "externalID", c.ExternalID, "error", err)
		return translateDBError(err, r.logger)
	}
	r.logger.InfoContext(ctx, "Customer created in DB", "customerID", c.ID)
	return nil
}

// Update never writes credit_ceiling.
func (r *CustomerRepository) Update(ctx context.Context, c *customer.Customer) error {
	query := `
        UPDATE customers
        SET external_id = $1, status = $2, preapproved_at = $3, updated_at = NOW()
        WHERE id = $4
        RETURNING updated_at`

	err := r.db.QueryRow(ctx, query, c.ExternalID, c.Status, c.PreapprovedAt, c.ID).Scan(&c.UpdatedAt)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *CustomerRepository) FindByID(ctx context.Context, customerID int64) (*customer.Customer, error) {
	start := time.Now()
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	c, err := scanCustomer(r.db.QueryRow(ctx, query, customerID))
	observe("FindCustomerByID", start, err)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return c, nil
}

func (r *CustomerRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, customerID int64) (*customer.Customer, error) {
	start := time.Now()
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 FOR UPDATE`

	c, err := scanCustomer(tx.QueryRow(ctx, query, customerID))
	observe("FindCustomerByIDForUpdate", start, err)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return c, nil
}

func (r *CustomerRepository) FindAll(ctx context.Context, status *customer.Status) ([]*customer.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers`
	var args []any
	if status != nil {
		query += ` WHERE status = $1`
		args = append(args, *status)
	}
	query += ` ORDER BY id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query customers", "error", err)
		return nil, apperrors.WrapDatabaseError(err, "failed to list customers")
	}
	defer rows.Close()

	customers := make([]*customer.Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, apperrors.WrapDatabaseError(err, "failed scanning customer row")
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapDatabaseError(err, "error iterating customer rows")
	}
	return customers, nil
}

// Delete removes the customer. Loans, payments and allocations go with it through ON DELETE CASCADE.
func (r *CustomerRepository) Delete(ctx context.Context, customerID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, customerID)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
