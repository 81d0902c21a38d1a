package dto

import (
	"credit-ledger/internal/domain/payment"
	"credit-ledger/internal/pkg/apperrors"
	"fmt"
	"time"
)

type AllocationRequest struct {
	LoanID int64  `json:"loanId" validate:"required,gt=0"`
	Amount string `json:"amount" validate:"required,money10"`
}

type ApplyPaymentRequest struct {
	CustomerID  int64               `json:"customerId" validate:"required,gt=0"`
	ExternalID  string              `json:"externalId" validate:"required,max=60"`
	TotalAmount string              `json:"totalAmount" validate:"required,money10"`
	Allocations []AllocationRequest `json:"allocations" validate:"required,min=1,dive"`
}

func (r *ApplyPaymentRequest) ToInput() (payment.ApplyInput, error) {
	total, err := ParseAmount(r.TotalAmount, PaymentPlaces)
	if err != nil {
		return payment.ApplyInput{}, apperrors.NewValidationError("totalAmount", err.Error())
	}
	allocs := make([]payment.AllocationRequest, len(r.Allocations))
	for i, a := range r.Allocations {
		amount, err := ParseAmount(a.Amount, PaymentPlaces)
		if err != nil {
			return payment.ApplyInput{}, apperrors.NewValidationError(fmt.Sprintf("allocations[%d].amount", i), err.Error())
		}
		allocs[i] = payment.AllocationRequest{LoanID: a.LoanID, Amount: amount}
	}
	return payment.ApplyInput{
		CustomerID:  r.CustomerID,
		ExternalID:  r.ExternalID,
		TotalAmount: total,
		Allocations: allocs,
	}, nil
}

type AllocationResponse struct {
	ID     int64  `json:"id"`
	LoanID int64  `json:"loanId"`
	Amount string `json:"amount"`
}

type PaymentResponse struct {
	ID          int64                `json:"id"`
	ExternalID  string               `json:"externalId"`
	CustomerID  int64                `json:"customerId"`
	TotalAmount string               `json:"totalAmount"`
	Status      string               `json:"status"`
	Allocations []AllocationResponse `json:"allocations"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

func NewPaymentResponse(p *payment.Payment) PaymentResponse {
	if p == nil {
		return PaymentResponse{}
	}
	allocs := make([]AllocationResponse, len(p.Allocations))
	for i, a := range p.Allocations {
		allocs[i] = AllocationResponse{ID: a.ID, LoanID: a.LoanID, Amount: a.Amount.String()}
	}
	return PaymentResponse{
		ID:          p.ID,
		ExternalID:  p.ExternalID,
		CustomerID:  p.CustomerID,
		TotalAmount: p.TotalAmount.String(),
		Status:      string(p.Status),
		Allocations: allocs,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
