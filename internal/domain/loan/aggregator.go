package loan

import "github.com/shopspring/decimal"

// TotalDebt sums outstanding over the open (PENDING or ACTIVE) loans.
// It returns zero when no loan qualifies.
func TotalDebt(loans []*Loan) decimal.Decimal {
	total := decimal.Zero
	for _, l := range loans {
		if l.Status.IsOpen() {
			total = total.Add(l.Outstanding)
		}
	}
	return total
}

// CommittedPrincipal sums the original amount, not the outstanding balance, over open loans.
func CommittedPrincipal(loans []*Loan) decimal.Decimal {
	total := decimal.Zero
	for _, l := range loans {
		if l.Status.IsOpen() {
			total = total.Add(l.Amount)
		}
	}
	return total
}

// OpenByID indexes the open loans by id.
func OpenByID(loans []*Loan) map[int64]*Loan {
	open := make(map[int64]*Loan, len(loans))
	for _, l := range loans {
		if l.Status.IsOpen() {
			open[l.ID] = l
		}
	}
	return open
}
