package handler

import (
	"bytes"
	"context"
	"credit-ledger/internal/domain/customer"
	"credit-ledger/internal/domain/loan"
	"credit-ledger/internal/domain/payment"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type MockCustomerService struct{ mock.Mock }

func (m *MockCustomerService) CreateCustomer(ctx context.Context, in customer.CreateInput) (*customer.Customer, error) {
	args := m.Called(ctx, in)
	c, _ := args.Get(0).(*customer.Customer)
	return c, args.Error(1)
}

func (m *MockCustomerService) GetCustomer(ctx context.Context, id int64) (*customer.Customer, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*customer.Customer)
	return c, args.Error(1)
}

func (m *MockCustomerService) ListCustomers(ctx context.Context, status *customer.Status) ([]*customer.Customer, error) {
	args := m.Called(ctx, status)
	c, _ := args.Get(0).([]*customer.Customer)
	return c, args.Error(1)
}

func (m *MockCustomerService) UpdateCustomer(ctx context.Context, id int64, in customer.UpdateInput) (*customer.Customer, error) {
	args := m.Called(ctx, id, in)
	c, _ := args.Get(0).(*customer.Customer)
	return c, args.Error(1)
}

func (m *MockCustomerService) DeleteCustomer(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockLoanService struct{ mock.Mock }

func (m *MockLoanService) CreateLoan(ctx context.Context, in loan.CreateInput) (*loan.Loan, error) {
	args := m.Called(ctx, in)
	l, _ := args.Get(0).(*loan.Loan)
	return l, args.Error(1)
}

func (m *MockLoanService) UpdateLoan(ctx context.Context, id int64, in loan.UpdateInput) (*loan.Loan, error) {
	args := m.Called(ctx, id, in)
	l, _ := args.Get(0).(*loan.Loan)
	return l, args.Error(1)
}

func (m *MockLoanService) GetLoan(ctx context.Context, id int64) (*loan.Loan, error) {
	args := m.Called(ctx, id)
	l, _ := args.Get(0).(*loan.Loan)
	return l, args.Error(1)
}

func (m *MockLoanService) ListLoans(ctx context.Context, filter loan.ListFilter) ([]*loan.Loan, error) {
	args := m.Called(ctx, filter)
	l, _ := args.Get(0).([]*loan.Loan)
	return l, args.Error(1)
}

func (m *MockLoanService) GetCustomerDebt(ctx context.Context, id int64) (*loan.DebtSummary, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*loan.DebtSummary)
	return s, args.Error(1)
}

func (m *MockLoanService) DeleteLoan(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockPaymentService struct{ mock.Mock }

func (m *MockPaymentService) ApplyPayment(ctx context.Context, in payment.ApplyInput) (*payment.Payment, error) {
	args := m.Called(ctx, in)
	p, _ := args.Get(0).(*payment.Payment)
	return p, args.Error(1)
}

func (m *MockPaymentService) RejectPayment(ctx context.Context, id int64) (*payment.Payment, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*payment.Payment)
	return p, args.Error(1)
}

func (m *MockPaymentService) GetPayment(ctx context.Context, id int64) (*payment.Payment, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*payment.Payment)
	return p, args.Error(1)
}

func (m *MockPaymentService) ListCustomerPayments(ctx context.Context, id int64) ([]*payment.Payment, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).([]*payment.Payment)
	return p, args.Error(1)
}

func doRequest(t *testing.T, router chi.Router, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewBuffer(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error struct {
		Code    string   `json:"code"`
		Message string   `json:"message"`
		Field   string   `json:"field"`
		Details []string `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}
