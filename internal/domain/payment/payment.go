package payment

import (
	"credit-ledger/internal/pkg/apperrors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusRejected  Status = "REJECTED"
)

// Payment is immutable once created apart from the one-way COMPLETED -> REJECTED change.
type Payment struct {
	ID          int64
	ExternalID  string
	CustomerID  int64
	TotalAmount decimal.Decimal
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Allocations []Allocation
}

// Allocation is the part of a payment applied to one loan.
type Allocation struct {
	ID        int64
	PaymentID int64
	LoanID    int64
	Amount    decimal.Decimal
}

type AllocationRequest struct {
	LoanID int64
	Amount decimal.Decimal
}

type ApplyInput struct {
	CustomerID  int64
	ExternalID  string
	TotalAmount decimal.Decimal
	Allocations []AllocationRequest
}

func (in ApplyInput) validate() error {
	if strings.TrimSpace(in.ExternalID) == "" {
		return apperrors.NewValidationError("externalId", "must not be empty")
	}
	if in.TotalAmount.IsNegative() {
		return apperrors.NewValidationError("totalAmount", "must not be negative")
	}
	for i, a := range in.Allocations {
		if a.Amount.IsNegative() {
			return apperrors.NewValidationError(fmt.Sprintf("allocations[%d].amount", i), "must not be negative")
		}
	}
	return nil
}
