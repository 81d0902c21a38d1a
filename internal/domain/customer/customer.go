package customer

import (
	"credit-ledger/internal/pkg/apperrors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusActive:
		return StatusActive, nil
	case StatusInactive:
		return StatusInactive, nil
	}
	return "", fmt.Errorf("%w: unknown customer status %q", apperrors.ErrInvalidArgument, s)
}

// Customer is a borrower with a fixed credit ceiling.
type Customer struct {
	ID            int64
	ExternalID    string
	Status        Status
	CreditCeiling decimal.Decimal
	PreapprovedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type CreateInput struct {
	ExternalID    string
	CreditCeiling decimal.Decimal
	PreapprovedAt *time.Time
	Status        Status
}

// NewCustomer builds a customer from input. New customers always start ACTIVE,
// whatever status the caller asked for.
func NewCustomer(in CreateInput) (*Customer, error) {
	externalID := strings.TrimSpace(in.ExternalID)
	if externalID == "" {
		return nil, apperrors.NewValidationError("externalId", "must not be empty")
	}
	if in.CreditCeiling.IsNegative() {
		return nil, apperrors.NewValidationError("creditCeiling", "must not be negative")
	}

	c := &Customer{
		ExternalID:    externalID,
		CreditCeiling: in.CreditCeiling,
		PreapprovedAt: in.PreapprovedAt,
	}
	ApplyCreationDefaults(c)
	return c, nil
}

func ApplyCreationDefaults(c *Customer) {
	c.Status = StatusActive
}

// UpdateInput is a partial update. The credit ceiling is immutable after creation,
// so a supplied value is ignored.
type UpdateInput struct {
	ExternalID    *string
	Status        *Status
	PreapprovedAt *time.Time
	CreditCeiling *decimal.Decimal
}

func (c *Customer) ApplyUpdate(in UpdateInput) error {
	if in.ExternalID != nil {
		id := strings.TrimSpace(*in.ExternalID)
		if id == "" {
			return apperrors.NewValidationError("externalId", "must not be empty")
		}
		c.ExternalID = id
	}
	if in.Status != nil {
		c.Status = *in.Status
	}
	if in.PreapprovedAt != nil {
		c.PreapprovedAt = in.PreapprovedAt
	}
	return nil
}

func (c *Customer) IsActive() bool {
	return c.Status == StatusActive
}
