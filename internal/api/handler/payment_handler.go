package handler

import (
	"credit-ledger/internal/api/handler/dto"
	"credit-ledger/internal/domain/payment"
	"log/slog"
	"net/http"
)

type PaymentHandler struct {
	service payment.PaymentService
	logger  *slog.Logger
}

func NewPaymentHandler(s payment.PaymentService, l *slog.Logger) *PaymentHandler {
	if s == nil {
		panic("payment service cannot be nil")
	}
	return &PaymentHandler{
		service: s,
		logger:  l.With("component", "PaymentHandler"),
	}
}

// ApplyPayment handles POST /payments
// @Summary Apply a payment
// @Description Applies a payment split across the customer's ACTIVE loans. All allocations succeed or none do. Send an Idempotency-Key header to make retries safe.
// @Tags Payments
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client supplied retry key"
// @Param request body dto.ApplyPaymentRequest true "Payment with allocations"
// @Success 201 {object} dto.PaymentResponse
// @Failure 400 {object} dto.ErrorResponse "Payment rejected by allocation rules"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Failure 409 {object} dto.ErrorResponse "External id already used"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /payments [post]
// @Security BearerAuth
func (h *PaymentHandler) ApplyPayment(w http.ResponseWriter, r *http.Request) {
	var req dto.ApplyPaymentRequest
	if err := decodeAndValidate(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Invalid apply payment request", slog.Any("error", err))
		respondError(w, err)
		return
	}
	in, err := req.ToInput()
	if err != nil {
		respondError(w, err)
		return
	}

	p, err := h.service.ApplyPayment(r.Context(), in)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Payment not applied",
			slog.Any("error", err), slog.Int64("customerID", in.CustomerID), slog.String("externalID", in.ExternalID))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Payment applied", slog.Int64("paymentID", p.ID), slog.Int64("customerID", p.CustomerID))
	respondJSON(w, http.StatusCreated, dto.NewPaymentResponse(p))
}

// RejectPayment handles POST /payments/{paymentID}/reject
// @Summary Reject a payment
// @Description Reverses every allocation of a completed payment and marks it REJECTED.
// @Tags Payments
// @Produce json
// @Param Idempotency-Key header string false "Client supplied retry key"
// @Param paymentID path int true "Payment ID" Minimum(1)
// @Success 200 {object} dto.PaymentResponse
// @Failure 404 {object} dto.ErrorResponse "Payment not found"
// @Failure 409 {object} dto.ErrorResponse "Payment already rejected"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /payments/{paymentID}/reject [post]
// @Security BearerAuth
func (h *PaymentHandler) RejectPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := idFromURL(r, "paymentID")
	if err != nil {
		respondError(w, err)
		return
	}

	p, err := h.service.RejectPayment(r.Context(), paymentID)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Payment not rejected", slog.Any("error", err), slog.Int64("paymentID", paymentID))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Payment rejected", slog.Int64("paymentID", p.ID))
	respondJSON(w, http.StatusOK, dto.NewPaymentResponse(p))
}

// GetPayment handles GET /payments/{paymentID}
// @Summary Retrieve a payment with its allocations
// @Tags Payments
// @Produce json
// @Param paymentID path int true "Payment ID" Minimum(1)
// @Success 200 {object} dto.PaymentResponse
// @Failure 404 {object} dto.ErrorResponse "Payment not found"
// @Router /payments/{paymentID} [get]
// @Security BearerAuth
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	paymentID, err := idFromURL(r, "paymentID")
	if err != nil {
		respondError(w, err)
		return
	}

	p, err := h.service.GetPayment(r.Context(), paymentID)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to get payment", slog.Any("error", err))
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, dto.NewPaymentResponse(p))
}

// ListCustomerPayments handles GET /customers/{customerID}/payments
// @Summary List a customer's payments
// @Tags Customers
// @Produce json
// @Param customerID path int true "Customer ID" Minimum(1)
// @Success 200 {array} dto.PaymentResponse
// @Router /customers/{customerID}/payments [get]
// @Security BearerAuth
func (h *PaymentHandler) ListCustomerPayments(w http.ResponseWriter, r *http.Request) {
	customerID, err := idFromURL(r, "customerID")
	if err != nil {
		respondError(w, err)
		return
	}

	payments, err := h.service.ListCustomerPayments(r.Context(), customerID)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to list payments", slog.Any("error", err))
		respondError(w, err)
		return
	}

	resp := make([]dto.PaymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = dto.NewPaymentResponse(p)
	}
	respondJSON(w, http.StatusOK, resp)
}
