package loan

import (
	"credit-ledger/internal/pkg/apperrors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type transitionRule struct {
	err       error
	stampTake bool
}

type transitionKey struct {
	cur  LoanStatus
	next LoanStatus
}

// transitions covers every (current, requested) pair of the update path.
// PAID is only reachable through payment allocation.
var transitions = map[transitionKey]transitionRule{
	{StatusPending, StatusPending}:  {},
	{StatusPending, StatusActive}:   {stampTake: true},
	{StatusPending, StatusRejected}: {},
	{StatusPending, StatusPaid}:     {err: apperrors.ErrDirectPaidNotAllowed},

	{StatusActive, StatusPending}:  {},
	{StatusActive, StatusActive}:   {},
	{StatusActive, StatusRejected}: {err: apperrors.ErrInvalidTransition},
	{StatusActive, StatusPaid}:     {err: apperrors.ErrDirectPaidNotAllowed},

	{StatusRejected, StatusPending}:  {err: apperrors.ErrTerminalState},
	{StatusRejected, StatusActive}:   {err: apperrors.ErrTerminalState},
	{StatusRejected, StatusRejected}: {err: apperrors.ErrInvalidTransition},
	{StatusRejected, StatusPaid}:     {err: apperrors.ErrDirectPaidNotAllowed},

	{StatusPaid, StatusPending}:  {err: apperrors.ErrTerminalState},
	{StatusPaid, StatusActive}:   {err: apperrors.ErrTerminalState},
	{StatusPaid, StatusRejected}: {err: apperrors.ErrInvalidTransition},
	{StatusPaid, StatusPaid}:     {err: apperrors.ErrDirectPaidNotAllowed},
}

// NextStatus checks a requested status change. The bool result reports whether
// taken_at must be stamped.
func NextStatus(cur, next LoanStatus) (bool, error) {
	rule, ok := transitions[transitionKey{cur, next}]
	if !ok {
		return false, fmt.Errorf("%w: unknown transition %s -> %s", apperrors.ErrInvalidArgument, cur, next)
	}
	if rule.err != nil {
		return false, fmt.Errorf("%w: %s -> %s", rule.err, cur, next)
	}
	return rule.stampTake, nil
}

// UpdateInput is a partial loan update. Amount and Outstanding are accepted
// so callers can pass them through, but they are always dropped.
type UpdateInput struct {
	ExternalID         *string
	ContractVersion    *string
	MaximumPaymentDate *time.Time
	Status             *LoanStatus
	Amount             *decimal.Decimal
	Outstanding        *decimal.Decimal
}

// ApplyUpdate mutates l according to in. It returns the previous status when the
// status changed.
func (l *Loan) ApplyUpdate(in UpdateInput, now time.Time) (previous LoanStatus, changed bool, err error) {
	var stamp bool
	if in.Status != nil {
		stamp, err = NextStatus(l.Status, *in.Status)
		if err != nil {
			return "", false, err
		}
	}
	if in.ExternalID != nil {
		id := strings.TrimSpace(*in.ExternalID)
		if id == "" {
			return "", false, apperrors.NewValidationError("externalId", "must not be empty")
		}
		l.ExternalID = id
	}
	if in.ContractVersion != nil {
		l.ContractVersion = in.ContractVersion
	}
	if in.MaximumPaymentDate != nil {
		l.MaximumPaymentDate = in.MaximumPaymentDate
	}
	if in.Status != nil && *in.Status != l.Status {
		previous, changed = l.Status, true
		l.Status = *in.Status
	}
	if stamp {
		taken := now
		l.TakenAt = &taken
	}
	return previous, changed, nil
}
