package handler

import (
	"credit-ledger/internal/api/handler/dto"
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/pkg/apperrors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
)

type LoanHandler struct {
	service loan.LoanService
	logger  *slog.Logger
}

func NewLoanHandler(s loan.LoanService, l *slog.Logger) *LoanHandler {
	if s == nil {
		panic("loan service cannot be nil")
	}
	return &LoanHandler{
		service: s,
		logger:  l.With("component", "LoanHandler"),
	}
}

// CreateLoan issues a new loan against a customer's credit ceiling.
//
// @Summary Create a new loan
// @Description Issues a loan. Fails with CREDIT_EXCEEDED when the customer's committed principal plus the new amount would exceed the credit ceiling.
// @Tags Loans
// @Accept json
// @Produce json
// @Param request body dto.CreateLoanRequest true "Loan issuance request"
// @Success 201 {object} dto.LoanResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 409 {object} dto.ErrorResponse "Credit exceeded or status not allowed at creation"
// @Router /loans [post]
// @Security BearerAuth
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateLoanRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Invalid create loan request", slog.Any("error", err))
		respondError(w, err)
		return
	}
	in, err := req.ToInput()
	if err != nil {
		respondError(w, err)
		return
	}

	created, err := h.service.CreateLoan(r.Context(), in)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to create loan", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Loan created", slog.Int64("loanID", created.ID), slog.Int64("customerID", created.CustomerID))
	respondJSON(w, http.StatusCreated, dto.NewLoanResponse(created))
}

// GetLoan handles GET /loans/{loanID}
// @Summary Retrieve a loan
// @Tags Loans
// @Produce json
// @Param loanID path int true "Loan ID" Minimum(1)
// @Success 200 {object} dto.LoanResponse
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /loans/{loanID} [get]
// @Security BearerAuth
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := idFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	l, err := h.service.GetLoan(r.Context(), loanID)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to get loan", slog.Any("error", err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLoanResponse(l))
}

// ListLoans handles GET /loans
// @Summary List loans
// @Tags Loans
// @Produce json
// @Param customerId query int false "Filter by customer"
// @Param status query string false "Comma separated statuses, e.g. PENDING,ACTIVE"
// @Success 200 {array} dto.LoanResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid filter"
// @Router /loans [get]
// @Security BearerAuth
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	filter, err := parseLoanFilter(r)
	if err != nil {
		respondError(w, err)
		return
	}
	h.listLoans(w, r, filter)
}

// ListCustomerLoans handles GET /customers/{customerID}/loans
// @Summary List a customer's loans
// @Tags Customers
// @Produce json
// @Param customerID path int true "Customer ID" Minimum(1)
// @Param status query string false "Comma separated statuses"
// @Success 200 {array} dto.LoanResponse
// @Router /customers/{customerID}/loans [get]
// @Security BearerAuth
func (h *LoanHandler) ListCustomerLoans(w http.ResponseWriter, r *http.Request) {
	customerID, err := idFromURL(r, "customerID")
	if err != nil {
		respondError(w, err)
		return
	}
	filter, err := parseLoanFilter(r)
	if err != nil {
		respondError(w, err)
		return
	}
	filter.CustomerID = &customerID
	h.listLoans(w, r, filter)
}

func (h *LoanHandler) listLoans(w http.ResponseWriter, r *http.Request, filter loan.ListFilter) {
	loans, err := h.service.ListLoans(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Service failed to list loans", slog.Any("error", err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLoanListResponse(loans))
}

func parseLoanFilter(r *http.Request) (loan.ListFilter, error) {
	var filter loan.ListFilter
	q := r.URL.Query()
	if raw := q.Get("customerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return filter, apperrors.NewValidationError("customerId", "must be a positive integer")
		}
		filter.CustomerID = &id
	}
	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			s, err := loan.ParseStatus(part)
			if err != nil {
				return filter, err
			}
			filter.Statuses = append(filter.Statuses, s)
		}
	}
	return filter, nil
}

// UpdateLoan handles PATCH /loans/{loanID}
// @Summary Update a loan
// @Description Partially updates a loan. Status changes follow the lifecycle table; amount and outstanding are ignored.
// @Tags Loans
// @Accept json
// @Produce json
// @Param loanID path int true "Loan ID" Minimum(1)
// @Param request body dto.UpdateLoanRequest true "Fields to update"
// @Success 200 {object} dto.LoanResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request payload"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Failure 409 {object} dto.ErrorResponse "Transition not allowed"
// @Router /loans/{loanID} [patch]
// @Security BearerAuth
func (h *LoanHandler) UpdateLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := idFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.UpdateLoanRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Invalid update loan request", slog.Any("error", err))
		respondError(w, err)
		return
	}
	in, err := req.ToInput()
	if err != nil {
		respondError(w, err)
		return
	}

	updated, err := h.service.UpdateLoan(r.Context(), loanID, in)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to update loan", slog.Any("error", err), slog.Int64("loanID", loanID))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewLoanResponse(updated))
}

// DeleteLoan handles DELETE /loans/{loanID}
// @Summary Delete a loan
// @Tags Loans
// @Param loanID path int true "Loan ID" Minimum(1)
// @Success 204 "Loan deleted"
// @Failure 404 {object} dto.ErrorResponse "Loan not found"
// @Router /loans/{loanID} [delete]
// @Security BearerAuth
func (h *LoanHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	loanID, err := idFromURL(r, "loanID")
	if err != nil {
		respondError(w, err)
		return
	}
	if err := h.service.DeleteLoan(r.Context(), loanID); err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to delete loan", slog.Any("error", err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// GetCustomerDebt handles GET /customers/{customerID}/debt
// @Summary Customer debt summary
// @Description Returns the credit ceiling, the sum of outstanding balances of ACTIVE loans and the remaining amount.
// @Tags Customers
// @Produce json
// @Param customerID path int true "Customer ID" Minimum(1)
// @Success 200 {object} dto.DebtResponse
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Router /customers/{customerID}/debt [get]
// @Security BearerAuth
func (h *LoanHandler) GetCustomerDebt(w http.ResponseWriter, r *http.Request) {
	customerID, err := idFromURL(r, "customerID")
	if err != nil {
		respondError(w, err)
		return
	}

	summary, err := h.service.GetCustomerDebt(r.Context(), customerID)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to compute customer debt", slog.Any("error", err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewDebtResponse(summary))
}
