package service

import (
	"context"
	"errors"
	"time"

	"roombook/internal/customers/validator"
	"roombook/internal/storage"
	"roombook/pkg/config"
	apperrors "roombook/pkg/errors"
	"roombook/pkg/model"
	"roombook/pkg/sanitizer"
	"roombook/pkg/validation"

	"github.com/google/uuid"
)

// CustomerService addresses customers by their natural key, the email.
type CustomerService interface {
	Create(ctx context.Context, customer *model.Customer) error
	GetByEmail(ctx context.Context, email string) (*model.Customer, error)
	GetAll(ctx context.Context) ([]*model.Customer, error)
	Update(ctx context.Context, email string, updates *model.CustomerUpdate) (*model.Customer, error)
	Delete(ctx context.Context, email string) error
}

type Engine interface {
	RemoveParty(ctx context.Context, customerID string) error
}

type customerService struct {
	repo      storage.CustomerRepository
	engine    Engine
	validator *validator.CustomerValidator
	cfg       *config.Config
	now       func() time.Time
}

func NewCustomerService(
	repo storage.CustomerRepository,
	engine Engine,
	validator *validator.CustomerValidator,
	cfg *config.Config,
) CustomerService {
	return &customerService{
		repo:      repo,
		engine:    engine,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (s *customerService) Create(ctx context.Context, customer *model.Customer) error {
	sanitizer.SanitizeCustomer(customer)
	if err := s.validator.Validate(customer); err != nil {
		s.cfg.Log.Warn("Customer validation failed", "error", err)
		return validation.ToAppError("Customer validation failed", err)
	}

	now := s.now().UTC()
	customer.ID = uuid.NewString()
	customer.CreatedAt = now
	customer.UpdatedAt = now

	if err := s.repo.CreateCustomer(ctx, customer); err != nil {
		s.cfg.Log.Warn("Failed to create customer", "email", customer.Email, "error", err)
		return storage.AdminError(err, "Customer", customer.Email)
	}

	s.cfg.Log.Info("Customer created successfully", "id", customer.ID, "email", customer.Email)
	return nil
}

func (s *customerService) GetByEmail(ctx context.Context, email string) (*model.Customer, error) {
	email = sanitizer.NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.InvalidInput("Customer email cannot be empty")
	}
	customer, err := s.repo.GetCustomerByEmail(ctx, email)
	if err != nil {
		return nil, storage.AdminError(err, "Customer", email)
	}
	return customer, nil
}

func (s *customerService) GetAll(ctx context.Context) ([]*model.Customer, error) {
	customers, err := s.repo.ListCustomers(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to list customers", "error", err)
		return nil, storage.AdminError(err, "Customer", "")
	}
	return customers, nil
}

func (s *customerService) Update(ctx context.Context, email string, updates *model.CustomerUpdate) (*model.Customer, error) {
	sanitizer.SanitizeCustomerUpdate(updates)
	if err := s.validator.ValidateUpdate(updates); err != nil {
		return nil, validation.ToAppError("Customer validation failed", err)
	}

	existing, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	merged := *existing
	if updates.Email != nil {
		merged.Email = *updates.Email
	}
	if updates.Name != nil {
		merged.Name = *updates.Name
	}
	if updates.Phone != nil {
		merged.Phone = *updates.Phone
	}
	merged.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateCustomer(ctx, &merged); err != nil {
		s.cfg.Log.Warn("Failed to update customer", "id", existing.ID, "error", err)
		key := existing.Email
		if errors.Is(err, storage.ErrDuplicate) {
			key = merged.Email
		}
		return nil, storage.AdminError(err, "Customer", key)
	}

	s.cfg.Log.Info("Customer updated successfully", "id", merged.ID, "email", merged.Email)
	return &merged, nil
}

// Delete removes the customer together with all of their reservations.
func (s *customerService) Delete(ctx context.Context, email string) error {
	customer, err := s.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.engine.RemoveParty(ctx, customer.ID)
}
