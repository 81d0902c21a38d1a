package payment

import (
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/pkg/apperrors"
	"fmt"

	"github.com/shopspring/decimal"
)

// LoanChange is the balance and status a loan moves to when a plan is applied.
type LoanChange struct {
	LoanID         int64
	OldOutstanding decimal.Decimal
	NewOutstanding decimal.Decimal
	OldStatus      loan.LoanStatus
	NewStatus      loan.LoanStatus
}

type AllocationPlan struct {
	TotalDebt decimal.Decimal
	Changes   []LoanChange
}

// PaidLoanIDs lists the loans the plan settles.
func (p *AllocationPlan) PaidLoanIDs() []int64 {
	var ids []int64
	for _, c := range p.Changes {
		if c.NewStatus == loan.StatusPaid && c.OldStatus != loan.StatusPaid {
			ids = append(ids, c.LoanID)
		}
	}
	return ids
}

// ValidateAllocation runs the payment preconditions in order: amounts add up,
// there is debt, the payment does not exceed it, and every entry targets an open
// loan of the customer without exceeding its outstanding balance. The per-entry
// check is exhaustive and reports all failing entries together.
func ValidateAllocation(total decimal.Decimal, reqs []AllocationRequest, loans []*loan.Loan) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, r := range reqs {
		sum = sum.Add(r.Amount)
	}
	if !sum.Equal(total) {
		return decimal.Zero, fmt.Errorf("%w: total %s, allocations sum to %s", apperrors.ErrAmountMismatch, total, sum)
	}

	debt := loan.TotalDebt(loans)
	if !debt.IsPositive() {
		return debt, apperrors.ErrNoOutstandingDebt
	}
	if total.GreaterThan(debt) {
		return debt, fmt.Errorf("%w: payment %s > debt %s", apperrors.ErrAmountExceedsDebt, total, debt)
	}

	open := loan.OpenByID(loans)
	var violations []apperrors.AllocationViolation
	for i, r := range reqs {
		l, ok := open[r.LoanID]
		if !ok {
			violations = append(violations, apperrors.AllocationViolation{
				Index: i, LoanID: r.LoanID, Kind: apperrors.ErrUnknownOrClosedLoan,
			})
			continue
		}
		if r.Amount.GreaterThan(l.Outstanding) {
			violations = append(violations, apperrors.AllocationViolation{
				Index: i, LoanID: r.LoanID, Kind: apperrors.ErrAllocationExceedsOutstanding,
				Detail: fmt.Sprintf("%s > %s", r.Amount, l.Outstanding),
			})
		}
	}
	if len(violations) > 0 {
		return debt, &apperrors.AllocationViolations{Violations: violations}
	}
	return debt, nil
}

// PlanAllocation validates the request and computes the resulting loan balances
// without touching storage. Entries for the same loan accumulate in order.
func PlanAllocation(total decimal.Decimal, reqs []AllocationRequest, loans []*loan.Loan) (*AllocationPlan, error) {
	debt, err := ValidateAllocation(total, reqs, loans)
	if err != nil {
		return nil, err
	}

	open := loan.OpenByID(loans)
	index := make(map[int64]int, len(reqs))
	plan := &AllocationPlan{TotalDebt: debt}

	for _, r := range reqs {
		pos, seen := index[r.LoanID]
		if !seen {
			l := open[r.LoanID]
			plan.Changes = append(plan.Changes, LoanChange{
				LoanID:         l.ID,
				OldOutstanding: l.Outstanding,
				NewOutstanding: l.Outstanding,
				OldStatus:      l.Status,
				NewStatus:      l.Status,
			})
			pos = len(plan.Changes) - 1
			index[r.LoanID] = pos
		}

		c := &plan.Changes[pos]
		c.NewOutstanding = c.NewOutstanding.Sub(r.Amount)
		if c.NewOutstanding.IsNegative() {
			return nil, fmt.Errorf("%w: loan %d outstanding would become %s",
				apperrors.ErrInvariantViolation, c.LoanID, c.NewOutstanding)
		}
		if c.NewOutstanding.IsZero() {
			c.NewStatus = loan.StatusPaid
		}
	}
	return plan, nil
}
