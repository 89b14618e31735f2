package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/internal/repository"
	"github.com/kinderpay/billing-service/pkg/logger"
)

// CustomerService registry of the customers everything else hangs off
type CustomerService interface {
	Register(ctx context.Context, req domain.RegisterCustomerRequest) (domain.Customer, error)
	GetByID(ctx context.Context, id string) (domain.Customer, error)
	Deactivate(ctx context.Context, id string) (domain.Customer, error)
}

type customerService struct {
	customerRepo repository.CustomerRepository
	newID        IDGenerator
	log          *logger.Logger
}

// NewCustomerService creates a new customer service
func NewCustomerService(customerRepo repository.CustomerRepository, newID IDGenerator, log *logger.Logger) CustomerService {
	return &customerService{
		customerRepo: customerRepo,
		newID:        newID,
		log:          log,
	}
}

// Register creates a new active customer
func (s *customerService) Register(ctx context.Context, req domain.RegisterCustomerRequest) (domain.Customer, error) {
	if err := requireFields(
		requiredField{"parent_name", req.ParentName},
		requiredField{"phone", req.Phone},
		requiredField{"child_name", req.ChildName},
	); err != nil {
		s.log.Warn("Customer registration rejected: %v", err)
		return domain.Customer{}, err
	}

	customer := domain.Customer{
		ID:         s.newID(),
		ParentName: req.ParentName,
		Phone:      req.Phone,
		Email:      req.Email,
		ChildName:  req.ChildName,
		ChildAge:   req.ChildAge,
		Allergies:  req.Allergies,
		Notes:      req.Notes,
		Status:     domain.CustomerStatusActive,
	}

	customer, err := s.customerRepo.Create(ctx, customer)
	if err != nil {
		s.log.Error("Failed to create customer: %v", err)
		return domain.Customer{}, err
	}

	s.log.Info("Registered customer %s", customer.ID)
	return customer, nil
}

// GetByID returns a customer by ID
func (s *customerService) GetByID(ctx context.Context, id string) (domain.Customer, error) {
	customerID, err := uuid.Parse(id)
	if err != nil {
		s.log.Warn("Invalid UUID format for customer ID: %s", id)
		return domain.Customer{}, repository.ErrInvalidData
	}

	return s.customerRepo.GetByID(ctx, customerID)
}

// Deactivate marks a customer inactive. Customers are never deleted.
func (s *customerService) Deactivate(ctx context.Context, id string) (domain.Customer, error) {
	customerID, err := uuid.Parse(id)
	if err != nil {
		s.log.Warn("Invalid UUID format for customer ID: %s", id)
		return domain.Customer{}, repository.ErrInvalidData
	}

	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return domain.Customer{}, err
	}

	customer.Status = domain.CustomerStatusInactive
	if err := s.customerRepo.Update(ctx, customer); err != nil {
		s.log.Error("Failed to deactivate customer %s: %v", id, err)
		return domain.Customer{}, err
	}

	s.log.Info("Deactivated customer %s", id)
	return customer, nil
}
