package customer

import (
	"context"
	"credit-ledger/internal/pkg/apperrors"
	"errors"
	"fmt"
	"log/slog"
)

const customerNotFound = "Customer not found by repository"

type CustomerService interface {
	CreateCustomer(ctx context.Context, in CreateInput) (*Customer, error)
	GetCustomer(ctx context.Context, customerID int64) (*Customer, error)
	ListCustomers(ctx context.Context, status *Status) ([]*Customer, error)
	UpdateCustomer(ctx context.Context, customerID int64, in UpdateInput) (*Customer, error)
	DeleteCustomer(ctx context.Context, customerID int64) error
}

var _ CustomerService = (*customerService)(nil)

type customerService struct {
	repo   CustomerRepository
	logger *slog.Logger
}

func NewCustomerService(repo CustomerRepository, logger *slog.Logger) CustomerService {
	if repo == nil {
		panic("customer repository cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &customerService{
		repo:   repo,
		logger: logger.With(slog.String("component", "customerService")),
	}
}

func (s *customerService) CreateCustomer(ctx context.Context, in CreateInput) (*Customer, error) {
	logger := s.logger.With(slog.String("externalID", in.ExternalID))
	logger.InfoContext(ctx, "Attempting to create new customer")

	if in.Status != "" && in.Status != StatusActive {
		logger.InfoContext(ctx, "Requested status ignored, new customers start active", slog.String("requested", string(in.Status)))
	}

	cust, err := NewCustomer(in)
	if err != nil {
		logger.WarnContext(ctx, "Validation failed for new customer", slog.Any("error", err))
		return nil, err
	}

	if err := s.repo.Create(ctx, cust); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			logger.WarnContext(ctx, "Customer external id already taken")
			return nil, err
		}
		logger.ErrorContext(ctx, "Repository failed to save new customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to save new customer: %w", err)
	}

	logger.InfoContext(ctx, "Successfully created new customer", slog.Int64("customerID", cust.ID))
	return cust, nil
}

func (s *customerService) GetCustomer(ctx context.Context, customerID int64) (*Customer, error) {
	logger := s.logger.With(slog.Int64("customerID", customerID))

	cust, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, customerNotFound)
			return nil, fmt.Errorf("%w: customer %d", apperrors.ErrNotFound, customerID)
		}
		logger.ErrorContext(ctx, "Repository error finding customer", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get customer %d: %w", customerID, err)
	}
	return cust, nil
}

func (s *customerService) ListCustomers(ctx context.Context, status *Status) ([]*Customer, error) {
	customers, err := s.repo.FindAll(ctx, status)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error listing customers", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	s.logger.InfoContext(ctx, "Listed customers", slog.Int("count", len(customers)))
	return customers, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, customerID int64, in UpdateInput) (*Customer, error) {
	logger := s.logger.With(slog.Int64("customerID", customerID))
	logger.InfoContext(ctx, "Attempting to update customer")

	cust, err := s.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if in.CreditCeiling != nil && !in.CreditCeiling.Equal(cust.CreditCeiling) {
		logger.InfoContext(ctx, "Credit ceiling is immutable, ignoring supplied value")
	}

	if err := cust.ApplyUpdate(in); err != nil {
		logger.WarnContext(ctx, "Validation failed for customer update", slog.Any("error", err))
		return nil, err
	}

	if err := s.repo.Update(ctx, cust); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrAlreadyExists) {
			logger.WarnContext(ctx, "Customer update rejected by repository", slog.Any("error", err))
			return nil, err
		}
		logger.ErrorContext(ctx, "Repository failed to save customer update", slog.Any("error", err))
		return nil, fmt.Errorf("failed to update customer %d: %w", customerID, err)
	}

	logger.InfoContext(ctx, "Successfully updated customer")
	return cust, nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, customerID int64) error {
	logger := s.logger.With(slog.Int64("customerID", customerID))

	if err := s.repo.Delete(ctx, customerID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.WarnContext(ctx, customerNotFound)
			return fmt.Errorf("%w: customer %d", apperrors.ErrNotFound, customerID)
		}
		logger.ErrorContext(ctx, "Repository error deleting customer", slog.Any("error", err))
		return fmt.Errorf("failed to delete customer %d: %w", customerID, err)
	}

	logger.InfoContext(ctx, "Customer deleted")
	return nil
}
