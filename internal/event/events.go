package event

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoutingKeyLoanCreated       = "loan.created"
	RoutingKeyLoanStatusChanged = "loan.status_changed"
	RoutingKeyPaymentApplied    = "payment.applied"
	RoutingKeyPaymentRejected   = "payment.rejected"
)

type EventPublisher interface {
	PublishLoanCreated(ctx context.Context, event LoanCreatedEvent) error
	PublishLoanStatusChanged(ctx context.Context, event LoanStatusChangedEvent) error
	PublishPaymentApplied(ctx context.Context, event PaymentAppliedEvent) error
	PublishPaymentRejected(ctx context.Context, event PaymentRejectedEvent) error
}

type LoanCreatedEvent struct {
	LoanID      int64           `json:"loanId"`
	CustomerID  int64           `json:"customerId"`
	ExternalID  string          `json:"externalId"`
	Amount      decimal.Decimal `json:"amount"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Status      string          `json:"status"`
	Timestamp   time.Time       `json:"timestamp"`
}

type LoanStatusChangedEvent struct {
	LoanID     int64     `json:"loanId"`
	CustomerID int64     `json:"customerId"`
	OldStatus  string    `json:"oldStatus"`
	NewStatus  string    `json:"newStatus"`
	Timestamp  time.Time `json:"timestamp"`
}

type AllocationPayload struct {
	LoanID int64           `json:"loanId"`
	Amount decimal.Decimal `json:"amount"`
}

type PaymentAppliedEvent struct {
	PaymentID   int64               `json:"paymentId"`
	CustomerID  int64               `json:"customerId"`
	ExternalID  string              `json:"externalId"`
	TotalAmount decimal.Decimal     `json:"totalAmount"`
	Allocations []AllocationPayload `json:"allocations"`
	PaidLoanIDs []int64             `json:"paidLoanIds,omitempty"`
	Timestamp   time.Time           `json:"timestamp"`
}

type PaymentRejectedEvent struct {
	PaymentID   int64               `json:"paymentId"`
	CustomerID  int64               `json:"customerId"`
	TotalAmount decimal.Decimal     `json:"totalAmount"`
	Allocations []AllocationPayload `json:"allocations"`
	Timestamp   time.Time           `json:"timestamp"`
}

// NoopPublisher drops every event. Used when RabbitMQ is disabled.
type NoopPublisher struct{}

var _ EventPublisher = NoopPublisher{}

func (NoopPublisher) PublishLoanCreated(context.Context, LoanCreatedEvent) error { return nil }

func (NoopPublisher) PublishLoanStatusChanged(context.Context, LoanStatusChangedEvent) error {
	return nil
}

func (NoopPublisher) PublishPaymentApplied(context.Context, PaymentAppliedEvent) error { return nil }

func (NoopPublisher) PublishPaymentRejected(context.Context, PaymentRejectedEvent) error { return nil }
