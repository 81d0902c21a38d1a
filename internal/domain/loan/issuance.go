package loan

import (
	"credit-ledger/internal/domain/customer"
	"credit-ledger/internal/pkg/apperrors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CreateInput struct {
	CustomerID         int64
	ExternalID         string
	Amount             decimal.Decimal
	Outstanding        *decimal.Decimal
	Status             *LoanStatus
	ContractVersion    *string
	MaximumPaymentDate *time.Time
}

// ApplyCreationDefaults turns a creation request into the loan to persist.
// Outstanding always starts equal to amount. Status starts PENDING unless
// ACTIVE is requested, in which case taken_at is stamped with now.
func ApplyCreationDefaults(in CreateInput, now time.Time) (*Loan, error) {
	externalID := strings.TrimSpace(in.ExternalID)
	if externalID == "" {
		return nil, apperrors.NewValidationError("externalId", "must not be empty")
	}
	if in.Amount.IsNegative() {
		return nil, apperrors.NewValidationError("amount", "must not be negative")
	}

	l := &Loan{
		ExternalID:         externalID,
		CustomerID:         in.CustomerID,
		Amount:             in.Amount,
		Outstanding:        in.Amount,
		Status:             StatusPending,
		ContractVersion:    in.ContractVersion,
		MaximumPaymentDate: in.MaximumPaymentDate,
	}

	if in.Status != nil {
		switch *in.Status {
		case StatusPending:
		case StatusActive:
			taken := now
			l.Status = StatusActive
			l.TakenAt = &taken
		case StatusPaid:
			return nil, fmt.Errorf("%w: a new loan cannot start as %s", apperrors.ErrDirectPaidNotAllowed, StatusPaid)
		case StatusRejected:
			return nil, fmt.Errorf("%w: a new loan cannot start as %s", apperrors.ErrInvalidTransition, StatusRejected)
		default:
			return nil, fmt.Errorf("%w: unknown loan status %q", apperrors.ErrInvalidArgument, *in.Status)
		}
	}
	return l, nil
}

// ValidateIssuance rejects the request when the principal already committed to the
// customer's open loans plus the requested amount exceeds the credit ceiling.
// Reaching the ceiling exactly is allowed.
func ValidateIssuance(cust *customer.Customer, existing []*Loan, requested decimal.Decimal) error {
	committed := CommittedPrincipal(existing)
	total := committed.Add(requested)
	if total.GreaterThan(cust.CreditCeiling) {
		return fmt.Errorf("%w: committed %s + requested %s > ceiling %s",
			apperrors.ErrCreditExceeded, committed, requested, cust.CreditCeiling)
	}
	return nil
}
