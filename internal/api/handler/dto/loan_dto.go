package dto

import (
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/pkg/apperrors"
	"encoding/json"
	"time"
)

// CreateLoanRequest accepts an outstanding value for compatibility and
// discards it; a new loan always starts with outstanding equal to amount.
type CreateLoanRequest struct {
	CustomerID         int64           `json:"customerId" validate:"required,gt=0"`
	ExternalID         string          `json:"externalId" validate:"required,max=60"`
	Amount             string          `json:"amount" validate:"required,money2"`
	Outstanding        json.RawMessage `json:"outstanding,omitempty"`
	Status             *string         `json:"status,omitempty" validate:"omitempty,loan_status"`
	ContractVersion    *string         `json:"contractVersion,omitempty" validate:"omitempty,max=30"`
	MaximumPaymentDate *string         `json:"maximumPaymentDate,omitempty"`
}

func (r *CreateLoanRequest) ToInput() (loan.CreateInput, error) {
	amount, err := ParseAmount(r.Amount, LoanPlaces)
	if err != nil {
		return loan.CreateInput{}, apperrors.NewValidationError("amount", err.Error())
	}
	due, err := parseOptionalDate(r.MaximumPaymentDate)
	if err != nil {
		return loan.CreateInput{}, apperrors.NewValidationError("maximumPaymentDate", "must be RFC3339 or YYYY-MM-DD")
	}
	in := loan.CreateInput{
		CustomerID:         r.CustomerID,
		ExternalID:         r.ExternalID,
		Amount:             amount,
		ContractVersion:    r.ContractVersion,
		MaximumPaymentDate: due,
	}
	if r.Status != nil {
		s := loan.LoanStatus(*r.Status)
		in.Status = &s
	}
	return in, nil
}

// UpdateLoanRequest is a partial update. amount and outstanding are accepted
// in any form and ignored; only issuance and payments change them.
type UpdateLoanRequest struct {
	ExternalID         *string         `json:"externalId,omitempty" validate:"omitempty,max=60"`
	ContractVersion    *string         `json:"contractVersion,omitempty" validate:"omitempty,max=30"`
	MaximumPaymentDate *string         `json:"maximumPaymentDate,omitempty"`
	Status             *string         `json:"status,omitempty" validate:"omitempty,loan_status"`
	Amount             json.RawMessage `json:"amount,omitempty"`
	Outstanding        json.RawMessage `json:"outstanding,omitempty"`
}

func (r *UpdateLoanRequest) ToInput() (loan.UpdateInput, error) {
	due, err := parseOptionalDate(r.MaximumPaymentDate)
	if err != nil {
		return loan.UpdateInput{}, apperrors.NewValidationError("maximumPaymentDate", "must be RFC3339 or YYYY-MM-DD")
	}
	in := loan.UpdateInput{
		ExternalID:         r.ExternalID,
		ContractVersion:    r.ContractVersion,
		MaximumPaymentDate: due,
	}
	if r.Status != nil {
		s := loan.LoanStatus(*r.Status)
		in.Status = &s
	}
	return in, nil
}

type LoanResponse struct {
	ID                 int64      `json:"id"`
	ExternalID         string     `json:"externalId"`
	CustomerID         int64      `json:"customerId"`
	Amount             string     `json:"amount"`
	Outstanding        string     `json:"outstanding"`
	Status             string     `json:"status"`
	ContractVersion    *string    `json:"contractVersion,omitempty"`
	TakenAt            *time.Time `json:"takenAt,omitempty"`
	MaximumPaymentDate *time.Time `json:"maximumPaymentDate,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

func NewLoanResponse(l *loan.Loan) LoanResponse {
	if l == nil {
		return LoanResponse{}
	}
	return LoanResponse{
		ID:                 l.ID,
		ExternalID:         l.ExternalID,
		CustomerID:         l.CustomerID,
		Amount:             l.Amount.String(),
		Outstanding:        l.Outstanding.String(),
		Status:             string(l.Status),
		ContractVersion:    l.ContractVersion,
		TakenAt:            l.TakenAt,
		MaximumPaymentDate: l.MaximumPaymentDate,
		CreatedAt:          l.CreatedAt,
		UpdatedAt:          l.UpdatedAt,
	}
}

func NewLoanListResponse(loans []*loan.Loan) []LoanResponse {
	resp := make([]LoanResponse, len(loans))
	for i, l := range loans {
		resp[i] = NewLoanResponse(l)
	}
	return resp
}
