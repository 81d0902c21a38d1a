package postgres

import (
	"context"
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/pkg/apperrors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const loanColumns = `id, external_id, customer_id, amount, outstanding, status, contract_version,
        taken_at, maximum_payment_date, created_at, updated_at`

type LoanRepository struct {
	txManager
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{txManager{db: db, logger: logger.With("component", "LoanRepository")}}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoan(row rowScanner) (*loan.Loan, error) {
	var l loan.Loan
	err := row.Scan(
		&l.ID, &l.ExternalID, &l.CustomerID, &l.Amount, &l.Outstanding, &l.Status, &l.ContractVersion,
		&l.TakenAt, &l.MaximumPaymentDate, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func collectLoans(rows pgx.Rows) ([]*loan.Loan, error) {
	defer rows.Close()

	loans := make([]*loan.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, apperrors.WrapDatabaseError(err, "failed scanning loan row")
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapDatabaseError(err, "error iterating loan rows")
	}
	return loans, nil
}

func (r *LoanRepository) CreateLoanInTx(ctx context.Context, tx pgx.Tx, l *loan.Loan) (*loan.Loan, error) {
	start := time.Now()
	query := `
        INSERT INTO loans (external_id, customer_id, amount, outstanding, status, contract_version,
                           taken_at, maximum_payment_date, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
        RETURNING ` + loanColumns

	created, err := scanLoan(tx.QueryRow(ctx, query,
		l.ExternalID, l.CustomerID, l.Amount, l.Outstanding, l.Status, l.ContractVersion,
		l.TakenAt, l.MaximumPaymentDate,
	))
	observe("CreateLoan", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", "error", err)
		return nil, translateDBError(err, r.logger)
	}
	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", created.ID)
	return created, nil
}

// UpdateLoanInTx writes the mutable descriptive fields and status. Amount,
// outstanding and customer_id are never touched here.
func (r *LoanRepository) UpdateLoanInTx(ctx context.Context, tx pgx.Tx, l *loan.Loan) error {
	query := `
        UPDATE loans
        SET external_id = $1, contract_version = $2, maximum_payment_date = $3,
            status = $4, taken_at = $5, updated_at = NOW()
        WHERE id = $6
        RETURNING updated_at`

	err := tx.QueryRow(ctx, query,
		l.ExternalID, l.ContractVersion, l.MaximumPaymentDate, l.Status, l.TakenAt, l.ID,
	).Scan(&l.UpdatedAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan", "loan_id", l.ID, "error", err)
		return translateDBError(err, r.logger)
	}
	return nil
}

func (r *LoanRepository) UpdateBalanceInTx(ctx context.Context, tx pgx.Tx, loanID int64, outstanding decimal.Decimal, status loan.LoanStatus) error {
	start := time.Now()
	query := `UPDATE loans SET outstanding = $1, status = $2, updated_at = NOW() WHERE id = $3`

	tag, err := tx.Exec(ctx, query, outstanding, status, loanID)
	observe("UpdateLoanBalance", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update loan balance", "loan_id", loanID, "error", err)
		return translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: loan %d", apperrors.ErrNotFound, loanID)
	}
	return nil
}

func (r *LoanRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, loanID int64) (*loan.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1 FOR UPDATE`

	l, err := scanLoan(tx.QueryRow(ctx, query, loanID))
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return l, nil
}

func (r *LoanRepository) FindByCustomerForUpdate(ctx context.Context, tx pgx.Tx, customerID int64) ([]*loan.Loan, error) {
	start := time.Now()
	query := `SELECT ` + loanColumns + ` FROM loans WHERE customer_id = $1 ORDER BY id FOR UPDATE`

	rows, err := tx.Query(ctx, query, customerID)
	observe("FindLoansByCustomerForUpdate", start, err)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to lock customer loans", "customer_id", customerID, "error", err)
		return nil, translateDBError(err, r.logger)
	}
	return collectLoans(rows)
}

func (r *LoanRepository) FindByIDsForUpdate(ctx context.Context, tx pgx.Tx, loanIDs []int64) ([]*loan.Loan, error) {
	if len(loanIDs) == 0 {
		return []*loan.Loan{}, nil
	}
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := tx.Query(ctx, query, loanIDs)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to lock loans", "error", err)
		return nil, translateDBError(err, r.logger)
	}
	return collectLoans(rows)
}

func (r *LoanRepository) GetLoanByID(ctx context.Context, loanID int64) (*loan.Loan, error) {
	start := time.Now()
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	l, err := scanLoan(r.db.QueryRow(ctx, query, loanID))
	observe("GetLoanByID", start, err)
	if err != nil {
		return nil, translateDBError(err, r.logger)
	}
	return l, nil
}

// ListLoans runs a single statement so the returned set is one consistent snapshot.
func (r *LoanRepository) ListLoans(ctx context.Context, filter loan.ListFilter) ([]*loan.Loan, error) {
	var (
		where []string
		args  []any
	)
	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		where = append(where, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, statuses)
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	query := `SELECT ` + loanColumns + ` FROM loans`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query loans", "error", err)
		return nil, translateDBError(err, r.logger)
	}
	return collectLoans(rows)
}

// DeleteLoan removes the loan and, through ON DELETE CASCADE, its allocations.
func (r *LoanRepository) DeleteLoan(ctx context.Context, loanID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM loans WHERE id = $1`, loanID)
	if err != nil {
		return translateDBError(err, r.logger)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// ListLedgerEntries returns every loan with the total allocated to it by
// completed payments. Used by the reconciliation job.
func (r *LoanRepository) ListLedgerEntries(ctx context.Context) ([]loan.LedgerEntry, error) {
	logCtx := r.logger.With(slog.String("operation", "ListLedgerEntries"))
	start := time.Now()

	query := `
        SELECT l.id, l.external_id, l.customer_id, l.amount, l.outstanding, l.status,
               COALESCE(SUM(pa.amount) FILTER (WHERE p.status = 'COMPLETED'), 0) AS allocated
        FROM loans l
        LEFT JOIN payment_allocations pa ON pa.loan_id = l.id
        LEFT JOIN payments p ON p.id = pa.payment_id
        GROUP BY l.id
        ORDER BY l.id`

	rows, err := r.db.Query(ctx, query)
	observe("ListLedgerEntries", start, err)
	if err != nil {
		logCtx.ErrorContext(ctx, "Failed to query ledger entries", slog.Any("error", err))
		return nil, apperrors.WrapDatabaseError(err, "failed to query ledger entries")
	}
	defer rows.Close()

	entries := make([]loan.LedgerEntry, 0)
	for rows.Next() {
		var e loan.LedgerEntry
		if err := rows.Scan(&e.Loan.ID, &e.Loan.ExternalID, &e.Loan.CustomerID, &e.Loan.Amount,
			&e.Loan.Outstanding, &e.Loan.Status, &e.Allocated); err != nil {
			logCtx.ErrorContext(ctx, "Failed to scan ledger entry", slog.Any("error", err))
			return nil, apperrors.WrapDatabaseError(err, "failed scanning ledger entry")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapDatabaseError(err, "error iterating ledger entries")
	}
	return entries, nil
}
