package loan

import (
	"credit-ledger/internal/pkg/apperrors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	StatusPending  LoanStatus = "PENDING"
	StatusActive   LoanStatus = "ACTIVE"
	StatusRejected LoanStatus = "REJECTED"
	StatusPaid     LoanStatus = "PAID"
)

var allStatuses = []LoanStatus{StatusPending, StatusActive, StatusRejected, StatusPaid}

func ParseStatus(s string) (LoanStatus, error) {
	candidate := LoanStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range allStatuses {
		if st == candidate {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown loan status %q", apperrors.ErrInvalidArgument, s)
}

// IsOpen reports whether loans in this status count toward debt and committed principal.
func (s LoanStatus) IsOpen() bool {
	return s == StatusPending || s == StatusActive
}

func (s LoanStatus) IsTerminal() bool {
	return s == StatusRejected || s == StatusPaid
}

type Loan struct {
	ID                 int64
	ExternalID         string
	CustomerID         int64
	Amount             decimal.Decimal
	Outstanding        decimal.Decimal
	Status             LoanStatus
	ContractVersion    *string
	TakenAt            *time.Time
	MaximumPaymentDate *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// CheckBalance verifies 0 <= outstanding <= amount.
func (l *Loan) CheckBalance() error {
	if l.Outstanding.IsNegative() {
		return fmt.Errorf("%w: loan %d outstanding %s is negative", apperrors.ErrInvariantViolation, l.ID, l.Outstanding)
	}
	if l.Outstanding.GreaterThan(l.Amount) {
		return fmt.Errorf("%w: loan %d outstanding %s exceeds amount %s", apperrors.ErrInvariantViolation, l.ID, l.Outstanding, l.Amount)
	}
	return nil
}
