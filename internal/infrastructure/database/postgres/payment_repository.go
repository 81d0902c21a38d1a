package postgres

import (
	"context"
	"credit-ledger/internal/domain/payment"
	"credit-ledger/internal/pkg/apperrors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

const paymentColumns = `id, external_id, customer_id, total_amount, status, created_at, updated_at`

type PaymentRepository struct {
	txManager
}

var _ payment.Repository = (*PaymentRepository)(nil)

func NewPaymentRepository(db DBPool, logger *slog.Logger) *PaymentRepository {
	return &PaymentRepository{txManager{db: db, logger: logger.With("component", "PaymentRepository")}}
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func scanPayment(row rowScanner) (*payment.Payment, error) {
	var p payment.Payment
	if err := row.Scan(&p.ID, &p.ExternalID, &p.CustomerID, &p.TotalAmount, &p.Status, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) CreatePaymentInTx(ctx context.Context, tx pgx.Tx, p *payment.Payment) (*payment.Payment, error) {
	start := time.Now()
	paymentSQL := `
        INSERT INTO payments (external_id, customer_id, total_amount, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, NOW(), NOW())
        RETURNING id, created_at, updated_at`

	err := tx.QueryRow(ctx, paymentSQL, p.ExternalID, p.CustomerID, p.TotalAmount, p.Status).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	observe("CreatePayment", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert payment", "error", err)
		return nil, translateDBError(err, r.logger)
	}

	if len(p.Allocations) == 0 {
		return p, nil
	}

	allocationSQL := `
        INSERT INTO payment_allocations (payment_id, loan_id, amount, created_at)
        VALUES ($1, $2, $3, NOW())
        RETURNING id`

	batch := &pgx.Batch{}
	for _, a := range p.Allocations {
		batch.Queue(allocationSQL, p.ID, a.LoanID, a.Amount)
	}

	results := tx.SendBatch(ctx, batch)
	for i := range p.Allocations {
		if err := results.QueryRow().Scan(&p.Allocations[i].ID); err != nil {
			results.Close()
			r.logger.ErrorContext(ctx, "Failed executing allocation batch insert", "error", err, "entry_index", i, "payment_id", p.ID)
			return nil, fmt.Errorf("failed inserting allocation %d: %w", i, translateDBError(err, r.logger))
		}
		p.Allocations[i].PaymentID = p.ID
	}
	if err := results.Close(); err != nil {
		r.logger.ErrorContext(ctx, "Failed closing allocation batch results", "error", err, "payment_id", p.ID)
		return nil, apperrors.WrapDatabaseError(err, "closing batch results failed")
	}

	r.logger.InfoContext(ctx, "Payment created in DB", "payment_id", p.ID, "allocations", len(p.Allocations))
	return p, nil
}

func (r *PaymentRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, paymentID int64) (*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`

	p, err := scanPayment(tx.QueryRow(ctx, query, paymentID))
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	if p.Allocations, err = r.loadAllocations(ctx, tx, paymentID); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PaymentRepository) UpdateStatusInTx(ctx context.Context, tx pgx.Tx, paymentID int64, status payment.Status) error {
	tag, err := tx.Exec(ctx, `UPDATE payments SET status = $1, updated_at = NOW() WHERE id = $2`, status, paymentID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update payment status", "payment_id", paymentID, "error", err)
		return translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PaymentRepository) GetPaymentByID(ctx context.Context, paymentID int64) (*payment.Payment, error) {
	start := time.Now()
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	p, err := scanPayment(r.db.QueryRow(ctx, query, paymentID))
	observe("GetPaymentByID", start, err)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	if p.Allocations, err = r.loadAllocations(ctx, r.db, paymentID); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PaymentRepository) ListByCustomer(ctx context.Context, customerID int64) ([]*payment.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE customer_id = $1 ORDER BY id`

	rows, err := r.db.Query(ctx, query, customerID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query payments", "customer_id", customerID, "error", err)
		return nil, translateDBError(err, r.logger)
	}
	defer rows.Close()

	payments := make([]*payment.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, apperrors.WrapDatabaseError(err, "failed scanning payment row")
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapDatabaseError(err, "error iterating payment rows")
	}
	return payments, nil
}

func (r *PaymentRepository) loadAllocations(ctx context.Context, q querier, paymentID int64) ([]payment.Allocation, error) {
	query := `SELECT id, payment_id, loan_id, amount FROM payment_allocations WHERE payment_id = $1 ORDER BY id`

	rows, err := q.Query(ctx, query, paymentID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query allocations", "payment_id", paymentID, "error", err)
		return nil, translateDBError(err, r.logger)
	}
	defer rows.Close()

	allocations := make([]payment.Allocation, 0)
	for rows.Next() {
		var a payment.Allocation
		if err := rows.Scan(&a.ID, &a.PaymentID, &a.LoanID, &a.Amount); err != nil {
			return nil, apperrors.WrapDatabaseError(err, "failed scanning allocation row")
		}
		allocations = append(allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapDatabaseError(err, "error iterating allocation rows")
	}
	return allocations, nil
}
