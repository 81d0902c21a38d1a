package loan

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LedgerEntry pairs a loan with the sum of its allocations on completed payments.
type LedgerEntry struct {
	Loan      Loan
	Allocated decimal.Decimal
}

// ExpectedOutstanding is what the balance should be if every write went through
// payment application and reversal.
func (e LedgerEntry) ExpectedOutstanding() decimal.Decimal {
	return e.Loan.Amount.Sub(e.Allocated)
}

// Discrepancies lists every way the stored loan disagrees with its payment history.
// Loans that never received an allocation are exempt from the zero-balance rule,
// so a zero-amount PENDING loan is not flagged.
func (e LedgerEntry) Discrepancies() []string {
	var out []string
	l := e.Loan

	if expected := e.ExpectedOutstanding(); !expected.Equal(l.Outstanding) {
		out = append(out, fmt.Sprintf("outstanding %s differs from amount minus completed allocations %s", l.Outstanding, expected))
	}
	if err := l.CheckBalance(); err != nil {
		out = append(out, err.Error())
	}
	if l.Outstanding.IsZero() && e.Allocated.IsPositive() && l.Status != StatusPaid {
		out = append(out, fmt.Sprintf("fully repaid loan has status %s", l.Status))
	}
	if l.Status == StatusPaid && !l.Outstanding.IsZero() {
		out = append(out, fmt.Sprintf("PAID loan still owes %s", l.Outstanding))
	}
	return out
}
