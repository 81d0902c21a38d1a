package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("resource not found")

	ErrInvalidArgument = errors.New("invalid argument")

	ErrValidation = errors.New("validation failed")

	ErrAlreadyExists = errors.New("resource already exists")

	ErrDatabase = errors.New("database error")

	ErrInternalServer = errors.New("internal server error")

	ErrUnauthorized = errors.New("unauthorized")

	ErrForbidden = errors.New("forbidden")

	ErrConflict = errors.New("resource conflict")
)

// Loan issuance and status-update rejections.
var (
	ErrCreditExceeded = errors.New("credit ceiling exceeded")

	ErrInvalidTransition = errors.New("invalid loan status transition")

	ErrDirectPaidNotAllowed = errors.New("loan cannot be set to paid directly, use the payment endpoint")

	ErrTerminalState = errors.New("loan is in a terminal state")
)

// Payment application and reversal rejections.
var (
	ErrAmountMismatch = errors.New("total amount does not match the sum of allocations")

	ErrNoOutstandingDebt = errors.New("customer has no outstanding debt")

	ErrAmountExceedsDebt = errors.New("payment amount exceeds total debt")

	ErrUnknownOrClosedLoan = errors.New("loan does not exist or is not open for this customer")

	ErrAllocationExceedsOutstanding = errors.New("allocation exceeds loan outstanding")

	ErrAlreadyRejected = errors.New("payment was already rejected")
)

// ErrInvariantViolation marks a broken ledger invariant. It is a server fault, never a user error.
var ErrInvariantViolation = errors.New("ledger invariant violation")

var codes = []struct {
	err  error
	code string
}{
	{ErrCreditExceeded, "CREDIT_EXCEEDED"},
	{ErrInvalidTransition, "INVALID_TRANSITION"},
	{ErrDirectPaidNotAllowed, "DIRECT_PAID_NOT_ALLOWED"},
	{ErrTerminalState, "TERMINAL_STATE"},
	{ErrAmountMismatch, "AMOUNT_MISMATCH"},
	{ErrNoOutstandingDebt, "NO_OUTSTANDING_DEBT"},
	{ErrAmountExceedsDebt, "AMOUNT_EXCEEDS_DEBT"},
	{ErrUnknownOrClosedLoan, "UNKNOWN_OR_CLOSED_LOAN"},
	{ErrAllocationExceedsOutstanding, "ALLOCATION_EXCEEDS_OUTSTANDING"},
	{ErrAlreadyRejected, "ALREADY_REJECTED"},
	{ErrInvariantViolation, "INVARIANT_VIOLATION"},
	{ErrNotFound, "NOT_FOUND"},
	{ErrAlreadyExists, "ALREADY_EXISTS"},
	{ErrInvalidArgument, "INVALID_ARGUMENT"},
	{ErrValidation, "VALIDATION_FAILED"},
	{ErrUnauthorized, "UNAUTHORIZED"},
	{ErrForbidden, "FORBIDDEN"},
	{ErrConflict, "CONFLICT"},
}

// Code returns the stable kind name of the first known sentinel err wraps.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "INTERNAL"
}

type ValidationError struct {
	Field   string
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func NewValidationError(field, message string) error {

	return fmt.Errorf("%w: %w", ErrValidation, &ValidationError{Field: field, Message: message})
}

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func WrapDatabaseError(cause error, message string) error {
	return &AppError{
		Code:    "DB_ERROR",
		Message: message,
		Cause:   fmt.Errorf("%w: %w", ErrDatabase, cause),
	}
}

// AllocationViolation is one rejected entry of a payment's allocation list.
type AllocationViolation struct {
	Index  int
	LoanID int64
	Kind   error
	Detail string
}

func (v AllocationViolation) Error() string {
	if v.Detail != "" {
		return fmt.Sprintf("allocation %d (loan %d): %v: %s", v.Index, v.LoanID, v.Kind, v.Detail)
	}
	return fmt.Sprintf("allocation %d (loan %d): %v", v.Index, v.LoanID, v.Kind)
}

func (v AllocationViolation) Unwrap() error {
	return v.Kind
}

// AllocationViolations collects every failing allocation entry of a single payment.
// errors.Is matches any of the contained kinds.
type AllocationViolations struct {
	Violations []AllocationViolation
}

func (e *AllocationViolations) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Error())
	}
	return fmt.Sprintf("%d allocation(s) rejected: %s", len(e.Violations), strings.Join(msgs, "; "))
}

func (e *AllocationViolations) Unwrap() []error {
	errs := make([]error, 0, len(e.Violations))
	for _, v := range e.Violations {
		errs = append(errs, v)
	}
	return errs
}
