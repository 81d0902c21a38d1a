package payment

import (
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/pkg/apperrors"
	"fmt"
)

// PlanReversal computes the balances restored by rejecting p. Every affected
// loan goes back to ACTIVE whatever its current status, including REJECTED and
// PAID loans.
func PlanReversal(p *Payment, loans []*loan.Loan) ([]LoanChange, error) {
	if p.Status == StatusRejected {
		return nil, fmt.Errorf("%w: payment %d", apperrors.ErrAlreadyRejected, p.ID)
	}

	byID := make(map[int64]*loan.Loan, len(loans))
	for _, l := range loans {
		byID[l.ID] = l
	}

	index := make(map[int64]int, len(p.Allocations))
	var changes []LoanChange
	for _, a := range p.Allocations {
		pos, seen := index[a.LoanID]
		if !seen {
			l, ok := byID[a.LoanID]
			if !ok {
				return nil, fmt.Errorf("%w: payment %d allocates to missing loan %d",
					apperrors.ErrInvariantViolation, p.ID, a.LoanID)
			}
			changes = append(changes, LoanChange{
				LoanID:         l.ID,
				OldOutstanding: l.Outstanding,
				NewOutstanding: l.Outstanding,
				OldStatus:      l.Status,
				NewStatus:      loan.StatusActive,
			})
			pos = len(changes) - 1
			index[a.LoanID] = pos
		}

		c := &changes[pos]
		c.NewOutstanding = c.NewOutstanding.Add(a.Amount)
		if amount := byID[a.LoanID].Amount; c.NewOutstanding.GreaterThan(amount) {
			return nil, fmt.Errorf("%w: reversing payment %d would raise loan %d outstanding to %s above amount %s",
				apperrors.ErrInvariantViolation, p.ID, a.LoanID, c.NewOutstanding, amount)
		}
	}
	return changes, nil
}
