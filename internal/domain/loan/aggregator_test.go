package loan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTotalDebt(t *testing.T) {
	loans := []*Loan{
		{ID: 1, Amount: d("1000"), Outstanding: d("400.50"), Status: StatusActive},
		{ID: 2, Amount: d("500"), Outstanding: d("500"), Status: StatusPending},
		{ID: 3, Amount: d("800"), Outstanding: d("800"), Status: StatusRejected},
		{ID: 4, Amount: d("300"), Outstanding: d("0"), Status: StatusPaid},
		// Paid with a balance restored by some other path still never counts.
		{ID: 5, Amount: d("300"), Outstanding: d("120"), Status: StatusPaid},
	}

	assert.True(t, TotalDebt(loans).Equal(d("900.50")))
	assert.True(t, CommittedPrincipal(loans).Equal(d("1500")))
}

func TestTotalDebtEmpty(t *testing.T) {
	assert.True(t, TotalDebt(nil).IsZero())
	assert.True(t, TotalDebt([]*Loan{{Status: StatusRejected, Outstanding: d("10")}}).IsZero())
	assert.True(t, CommittedPrincipal(nil).IsZero())
}

func TestTotalDebtIsExact(t *testing.T) {
	loans := []*Loan{
		{Outstanding: d("0.1"), Status: StatusActive},
		{Outstanding: d("0.2"), Status: StatusActive},
	}
	assert.Equal(t, "0.3", TotalDebt(loans).String())
}

func TestOpenByID(t *testing.T) {
	open := OpenByID([]*Loan{
		{ID: 1, Status: StatusActive},
		{ID: 2, Status: StatusPaid},
		{ID: 3, Status: StatusPending},
	})
	assert.Len(t, open, 2)
	assert.Contains(t, open, int64(1))
	assert.Contains(t, open, int64(3))
	assert.NotContains(t, open, int64(2))
}
