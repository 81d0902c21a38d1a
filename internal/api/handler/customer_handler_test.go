package handler

import (
	"credit-ledger/internal/api/handler/dto"
	"credit-ledger/internal/domain/customer"
	"credit-ledger/internal/pkg/apperrors"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newCustomerRouter(svc *MockCustomerService) chi.Router {
	h := NewCustomerHandler(svc, testLogger)
	r := chi.NewRouter()
	r.Post("/customers", h.CreateCustomer)
	r.Get("/customers", h.ListCustomers)
	r.Get("/customers/{customerID}", h.GetCustomer)
	r.Patch("/customers/{customerID}", h.UpdateCustomer)
	r.Delete("/customers/{customerID}", h.DeleteCustomer)
	return r
}

func sampleCustomer() *customer.Customer {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return &customer.Customer{
		ID: 1, ExternalID: "c-1", Status: customer.StatusActive,
		CreditCeiling: decimal.RequireFromString("4000"), CreatedAt: now, UpdatedAt: now,
	}
}

func TestCreateCustomerHandler(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("CreateCustomer", mock.Anything, mock.MatchedBy(func(in customer.CreateInput) bool {
			return in.ExternalID == "c-1" && in.CreditCeiling.Equal(decimal.NewFromInt(4000))
		})).Return(sampleCustomer(), nil)

		rec := doRequest(t, newCustomerRouter(svc), http.MethodPost, "/customers",
			`{"externalId":"c-1","creditCeiling":"4000.00"}`)

		assert.Equal(t, http.StatusCreated, rec.Code)
		var resp dto.CustomerResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "4000.00", resp.CreditCeiling)
		assert.Equal(t, "ACTIVE", resp.Status)
		svc.AssertExpectations(t)
	})

	t.Run("unknown field", func(t *testing.T) {
		svc := new(MockCustomerService)
		rec := doRequest(t, newCustomerRouter(svc), http.MethodPost, "/customers",
			`{"externalId":"c-1","creditCeiling":"1","name":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_ARGUMENT", decodeError(t, rec).Error.Code)
		svc.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
	})

	t.Run("ceiling with three decimals", func(t *testing.T) {
		svc := new(MockCustomerService)
		rec := doRequest(t, newCustomerRouter(svc), http.MethodPost, "/customers",
			`{"externalId":"c-1","creditCeiling":"10.123"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeError(t, rec)
		assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
		assert.Equal(t, "creditCeiling", body.Error.Field)
	})

	t.Run("duplicate external id", func(t *testing.T) {
		svc := new(MockCustomerService)
		svc.On("CreateCustomer", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: customer c-1", apperrors.ErrAlreadyExists))
		rec := doRequest(t, newCustomerRouter(svc), http.MethodPost, "/customers",
			`{"externalId":"c-1","creditCeiling":"1"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "ALREADY_EXISTS", decodeError(t, rec).Error.Code)
	})
}

func TestGetCustomerHandler(t *testing.T) {
	svc := new(MockCustomerService)
	svc.On("GetCustomer", mock.Anything, int64(1)).Return(sampleCustomer(), nil)
	svc.On("GetCustomer", mock.Anything, int64(2)).Return(nil, apperrors.ErrNotFound)
	router := newCustomerRouter(svc)

	assert.Equal(t, http.StatusOK, doRequest(t, router, http.MethodGet, "/customers/1", nil).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(t, router, http.MethodGet, "/customers/2", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(t, router, http.MethodGet, "/customers/abc", nil).Code)
}

func TestListCustomersHandlerStatusFilter(t *testing.T) {
	svc := new(MockCustomerService)
	svc.On("ListCustomers", mock.Anything, mock.MatchedBy(func(s *customer.Status) bool {
		return s != nil && *s == customer.StatusInactive
	})).Return([]*customer.Customer{sampleCustomer()}, nil)
	router := newCustomerRouter(svc)

	rec := doRequest(t, router, http.MethodGet, "/customers?status=inactive", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/customers?status=GONE", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNumberOfCalls(t, "ListCustomers", 1)
}

func TestUpdateCustomerHandler(t *testing.T) {
	svc := new(MockCustomerService)
	updated := sampleCustomer()
	updated.Status = customer.StatusInactive
	svc.On("UpdateCustomer", mock.Anything, int64(1), mock.MatchedBy(func(in customer.UpdateInput) bool {
		return in.Status != nil && *in.Status == customer.StatusInactive && in.CreditCeiling == nil
	})).Return(updated, nil)

	rec := doRequest(t, newCustomerRouter(svc), http.MethodPatch, "/customers/1",
		`{"status":"INACTIVE","creditCeiling":"99999"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp dto.CustomerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "4000.00", resp.CreditCeiling)
	svc.AssertExpectations(t)
}

func TestDeleteCustomerHandler(t *testing.T) {
	svc := new(MockCustomerService)
	svc.On("DeleteCustomer", mock.Anything, int64(1)).Return(nil)

	rec := doRequest(t, newCustomerRouter(svc), http.MethodDelete, "/customers/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestCustomerHandlerRejectsOverlongExternalID(t *testing.T) {
	svc := new(MockCustomerService)
	router := newCustomerRouter(svc)

	rec := doRequest(t, router, http.MethodPost, "/customers",
		fmt.Sprintf(`{"externalId":%q,"creditCeiling":"100"}`, strings.Repeat("c", 61)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "externalId", decodeError(t, rec).Error.Field)

	rec = doRequest(t, router, http.MethodPatch, "/customers/1",
		fmt.Sprintf(`{"externalId":%q}`, strings.Repeat("c", 61)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
	svc.AssertNotCalled(t, "UpdateCustomer", mock.Anything, mock.Anything, mock.Anything)
}
