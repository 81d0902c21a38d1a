package customer

import (
	"context"
	"credit-ledger/internal/pkg/apperrors"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Create(ctx context.Context, c *Customer) error {
	args := m.Called(ctx, c)
	if args.Error(0) == nil {
		c.ID = 42
	}
	return args.Error(0)
}

func (m *MockCustomerRepository) Update(ctx context.Context, c *Customer) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockCustomerRepository) FindByID(ctx context.Context, id int64) (*Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*Customer, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindAll(ctx context.Context, status *Status) ([]*Customer, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Customer), args.Error(1)
}

func (m *MockCustomerRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func newTestService(t *testing.T) (*MockCustomerRepository, CustomerService) {
	t.Helper()
	repo := new(MockCustomerRepository)
	return repo, NewCustomerService(repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCreateCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		repo, svc := newTestService(t)
		repo.On("Create", ctx, mock.MatchedBy(func(c *Customer) bool {
			return c.Status == StatusActive && c.ExternalID == "c-1"
		})).Return(nil).Once()

		c, err := svc.CreateCustomer(ctx, CreateInput{ExternalID: "c-1", CreditCeiling: decimal.NewFromInt(5000), Status: StatusInactive})
		require.NoError(t, err)
		assert.Equal(t, int64(42), c.ID)
		assert.Equal(t, StatusActive, c.Status)
		repo.AssertExpectations(t)
	})

	t.Run("duplicate external id", func(t *testing.T) {
		repo, svc := newTestService(t)
		repo.On("Create", ctx, mock.Anything).Return(apperrors.ErrAlreadyExists).Once()

		_, err := svc.CreateCustomer(ctx, CreateInput{ExternalID: "c-1", CreditCeiling: decimal.NewFromInt(5000)})
		assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	})

	t.Run("validation fails before repository", func(t *testing.T) {
		repo, svc := newTestService(t)

		_, err := svc.CreateCustomer(ctx, CreateInput{ExternalID: "", CreditCeiling: decimal.NewFromInt(5000)})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestGetCustomer(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		repo, svc := newTestService(t)
		repo.On("FindByID", ctx, int64(7)).Return(nil, apperrors.ErrNotFound).Once()

		_, err := svc.GetCustomer(ctx, 7)
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("database error is wrapped", func(t *testing.T) {
		repo, svc := newTestService(t)
		dbErr := errors.New("conn lost")
		repo.On("FindByID", ctx, int64(7)).Return(nil, dbErr).Once()

		_, err := svc.GetCustomer(ctx, 7)
		assert.ErrorIs(t, err, dbErr)
		assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestUpdateCustomerKeepsCeiling(t *testing.T) {
	ctx := context.Background()
	repo, svc := newTestService(t)

	existing := &Customer{ID: 1, ExternalID: "a", Status: StatusActive, CreditCeiling: decimal.NewFromInt(4000)}
	repo.On("FindByID", ctx, int64(1)).Return(existing, nil).Once()
	repo.On("Update", ctx, mock.MatchedBy(func(c *Customer) bool {
		return c.CreditCeiling.Equal(decimal.NewFromInt(4000)) && c.Status == StatusInactive
	})).Return(nil).Once()

	inactive := StatusInactive
	ceiling := decimal.NewFromInt(1)
	updated, err := svc.UpdateCustomer(ctx, 1, UpdateInput{Status: &inactive, CreditCeiling: &ceiling})
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, updated.Status)
	repo.AssertExpectations(t)
}

func TestListAndDeleteCustomers(t *testing.T) {
	ctx := context.Background()
	repo, svc := newTestService(t)

	active := StatusActive
	repo.On("FindAll", ctx, &active).Return([]*Customer{{ID: 1}, {ID: 2}}, nil).Once()
	repo.On("Delete", ctx, int64(3)).Return(apperrors.ErrNotFound).Once()
	repo.On("Delete", ctx, int64(1)).Return(nil).Once()

	list, err := svc.ListCustomers(ctx, &active)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	assert.ErrorIs(t, svc.DeleteCustomer(ctx, 3), apperrors.ErrNotFound)
	assert.NoError(t, svc.DeleteCustomer(ctx, 1))
	repo.AssertExpectations(t)
}
