package loan

import (
	"credit-ledger/internal/pkg/apperrors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseStatus(t *testing.T) {
	for _, in := range []string{"pending", "ACTIVE", " Rejected ", "paid"} {
		_, err := ParseStatus(in)
		assert.NoError(t, err, in)
	}
	_, err := ParseStatus("PAID_OFF")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusPending.IsOpen())
	assert.True(t, StatusActive.IsOpen())
	assert.False(t, StatusRejected.IsOpen())
	assert.False(t, StatusPaid.IsOpen())
	assert.True(t, StatusPaid.IsTerminal())
	assert.False(t, StatusActive.IsTerminal())
}

func TestCheckBalance(t *testing.T) {
	require.NoError(t, (&Loan{Amount: d("100"), Outstanding: d("100")}).CheckBalance())
	require.NoError(t, (&Loan{Amount: d("100"), Outstanding: d("0")}).CheckBalance())
	assert.ErrorIs(t, (&Loan{Amount: d("100"), Outstanding: d("-0.01")}).CheckBalance(), apperrors.ErrInvariantViolation)
	assert.ErrorIs(t, (&Loan{Amount: d("100"), Outstanding: d("100.01")}).CheckBalance(), apperrors.ErrInvariantViolation)
}
