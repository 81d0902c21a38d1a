package dto

import (
	"credit-ledger/internal/domain/customer"
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/pkg/apperrors"
	"encoding/json"
	"time"
)

type CreateCustomerRequest struct {
	ExternalID    string  `json:"externalId" validate:"required,max=60"`
	CreditCeiling string  `json:"creditCeiling" validate:"required,money2"`
	PreapprovedAt *string `json:"preapprovedAt,omitempty"`
	Status        string  `json:"status,omitempty" validate:"customer_status"`
}

func (r *CreateCustomerRequest) ToInput() (customer.CreateInput, error) {
	ceiling, err := ParseAmount(r.CreditCeiling, CeilingPlaces)
	if err != nil {
		return customer.CreateInput{}, apperrors.NewValidationError("creditCeiling", err.Error())
	}
	preapproved, err := parseOptionalDate(r.PreapprovedAt)
	if err != nil {
		return customer.CreateInput{}, apperrors.NewValidationError("preapprovedAt", "must be RFC3339 or YYYY-MM-DD")
	}
	return customer.CreateInput{
		ExternalID:    r.ExternalID,
		CreditCeiling: ceiling,
		PreapprovedAt: preapproved,
		Status:        customer.Status(r.Status),
	}, nil
}

// UpdateCustomerRequest is a partial update. creditCeiling is accepted and ignored.
type UpdateCustomerRequest struct {
	ExternalID    *string         `json:"externalId,omitempty" validate:"omitempty,max=60"`
	Status        *string         `json:"status,omitempty" validate:"omitempty,customer_status"`
	PreapprovedAt *string         `json:"preapprovedAt,omitempty"`
	CreditCeiling json.RawMessage `json:"creditCeiling,omitempty"`
}

func (r *UpdateCustomerRequest) ToInput() (customer.UpdateInput, error) {
	in := customer.UpdateInput{ExternalID: r.ExternalID}
	if r.Status != nil {
		s := customer.Status(*r.Status)
		in.Status = &s
	}
	preapproved, err := parseOptionalDate(r.PreapprovedAt)
	if err != nil {
		return customer.UpdateInput{}, apperrors.NewValidationError("preapprovedAt", "must be RFC3339 or YYYY-MM-DD")
	}
	in.PreapprovedAt = preapproved
	return in, nil
}

type CustomerResponse struct {
	ID            int64      `json:"id"`
	ExternalID    string     `json:"externalId"`
	Status        string     `json:"status"`
	CreditCeiling string     `json:"creditCeiling"`
	PreapprovedAt *time.Time `json:"preapprovedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

func NewCustomerResponse(c *customer.Customer) CustomerResponse {
	if c == nil {
		return CustomerResponse{}
	}
	return CustomerResponse{
		ID:            c.ID,
		ExternalID:    c.ExternalID,
		Status:        string(c.Status),
		CreditCeiling: c.CreditCeiling.StringFixed(CeilingPlaces),
		PreapprovedAt: c.PreapprovedAt,
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
}

type DebtResponse struct {
	CustomerID      int64  `json:"customerId"`
	ExternalID      string `json:"externalId"`
	CreditCeiling   string `json:"creditCeiling"`
	TotalDebt       string `json:"totalDebt"`
	AvailableAmount string `json:"availableAmount"`
}

func NewDebtResponse(s *loan.DebtSummary) DebtResponse {
	return DebtResponse{
		CustomerID:      s.CustomerID,
		ExternalID:      s.ExternalID,
		CreditCeiling:   s.CreditCeiling.StringFixed(CeilingPlaces),
		TotalDebt:       s.TotalDebt.String(),
		AvailableAmount: s.AvailableAmount.String(),
	}
}
