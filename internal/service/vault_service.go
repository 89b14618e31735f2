package service

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/internal/repository"
	"github.com/kinderpay/billing-service/internal/validation"
	"github.com/kinderpay/billing-service/pkg/logger"
)

// VaultService stores tokenized payment instruments. Instruments are
// validated on entry and only their redacted form is ever handed to
// storage; the full card number and CVV do not survive the call.
type VaultService interface {
	AddCard(ctx context.Context, req domain.AddCardRequest) (domain.PaymentMethod, error)
	AddBankAccount(ctx context.Context, req domain.AddBankAccountRequest) (domain.PaymentMethod, error)
	SetDefault(ctx context.Context, methodID string) (domain.PaymentMethod, error)
	ListActive(ctx context.Context, customerID string) ([]domain.PaymentMethod, error)
	Deactivate(ctx context.Context, methodID string) (domain.PaymentMethod, error)
}

type vaultService struct {
	methodRepo   repository.PaymentMethodRepository
	customerRepo repository.CustomerRepository
	newID        IDGenerator
	locker       *customerLocker
	log          *logger.Logger
}

// NewVaultService creates a new payment method vault
func NewVaultService(
	methodRepo repository.PaymentMethodRepository,
	customerRepo repository.CustomerRepository,
	newID IDGenerator,
	log *logger.Logger,
) VaultService {
	return &vaultService{
		methodRepo:   methodRepo,
		customerRepo: customerRepo,
		newID:        newID,
		locker:       newCustomerLocker(),
		log:          log,
	}
}

// AddCard validates a card and stores its redacted form
func (s *vaultService) AddCard(ctx context.Context, req domain.AddCardRequest) (domain.PaymentMethod, error) {
	if err := requireFields(
		requiredField{"customer_id", req.CustomerID},
		requiredField{"card_number", req.CardNumber},
		requiredField{"card_holder_name", req.CardHolderName},
		requiredField{"expiry_month", req.ExpiryMonth},
		requiredField{"expiry_year", req.ExpiryYear},
	); err != nil {
		return domain.PaymentMethod{}, err
	}

	customer, err := s.activeCustomer(ctx, req.CustomerID)
	if err != nil {
		return domain.PaymentMethod{}, err
	}

	network, err := validation.ValidateCard(req.CardNumber, req.ExpiryMonth, req.ExpiryYear, time.Now())
	if err != nil {
		s.log.Warn("Card validation failed for customer %s: %v", customer.ID, err)
		return domain.PaymentMethod{}, err
	}

	// The CVV is checked transiently and dropped; it must never reach
	// storage in any form
	if req.CVV != "" {
		if err := validation.ValidateCVV(req.CVV); err != nil {
			return domain.PaymentMethod{}, err
		}
	}

	expiryMonth, _ := strconv.Atoi(req.ExpiryMonth)
	expiryYear, _ := strconv.Atoi(req.ExpiryYear)
	if expiryYear < 100 {
		expiryYear += 2000
	}

	method := domain.PaymentMethod{
		ID:              s.newID(),
		CustomerID:      customer.ID,
		Kind:            domain.MethodKindCard,
		CardLast4:       validation.Last4(req.CardNumber),
		CardNetwork:     network,
		CardHolderName:  req.CardHolderName,
		CardExpiryMonth: expiryMonth,
		CardExpiryYear:  expiryYear,
		IsDefault:       req.IsDefault,
		IsActive:        true,
	}

	unlock := s.locker.Lock(customer.ID)
	defer unlock()

	method, err = s.methodRepo.Create(ctx, method)
	if err != nil {
		s.log.Error("Failed to store card for customer %s: %v", customer.ID, err)
		return domain.PaymentMethod{}, err
	}

	s.log.Info("Added card %s (%s ****%s) for customer %s", method.ID, method.CardNetwork, method.CardLast4, customer.ID)
	return method, nil
}

// AddBankAccount validates a standing order and stores its redacted
// form
func (s *vaultService) AddBankAccount(ctx context.Context, req domain.AddBankAccountRequest) (domain.PaymentMethod, error) {
	if err := requireFields(
		requiredField{"customer_id", req.CustomerID},
		requiredField{"bank_code", req.BankCode},
		requiredField{"branch_code", req.BranchCode},
		requiredField{"account_number", req.AccountNumber},
		requiredField{"account_holder_name", req.AccountHolderName},
	); err != nil {
		return domain.PaymentMethod{}, err
	}

	customer, err := s.activeCustomer(ctx, req.CustomerID)
	if err != nil {
		return domain.PaymentMethod{}, err
	}

	if err := validation.ValidateBankAccount(req.BankCode, req.BranchCode, req.AccountNumber); err != nil {
		s.log.Warn("Bank account validation failed for customer %s: %v", customer.ID, err)
		return domain.PaymentMethod{}, err
	}

	method := domain.PaymentMethod{
		ID:                s.newID(),
		CustomerID:        customer.ID,
		Kind:              domain.MethodKindBankStandingOrder,
		BankCode:          req.BankCode,
		BranchCode:        req.BranchCode,
		AccountLast4:      validation.Last4(req.AccountNumber),
		AccountHolderName: req.AccountHolderName,
		IsDefault:         req.IsDefault,
		IsActive:          true,
	}

	unlock := s.locker.Lock(customer.ID)
	defer unlock()

	method, err = s.methodRepo.Create(ctx, method)
	if err != nil {
		s.log.Error("Failed to store bank account for customer %s: %v", customer.ID, err)
		return domain.PaymentMethod{}, err
	}

	s.log.Info("Added bank account %s (****%s) for customer %s", method.ID, method.AccountLast4, customer.ID)
	return method, nil
}

// SetDefault makes the method the customer's default for its kind.
// The previous default of the same kind is cleared in the same step,
// so there is never more than one.
func (s *vaultService) SetDefault(ctx context.Context, methodID string) (domain.PaymentMethod, error) {
	id, err := uuid.Parse(methodID)
	if err != nil {
		s.log.Warn("Invalid UUID format for method ID: %s", methodID)
		return domain.PaymentMethod{}, repository.ErrInvalidData
	}

	method, err := s.methodRepo.GetByID(ctx, id)
	if err != nil {
		return domain.PaymentMethod{}, err
	}

	unlock := s.locker.Lock(method.CustomerID)
	defer unlock()

	// Re-read under the lock, the method may have been deactivated in
	// the meantime
	method, err = s.methodRepo.GetByID(ctx, id)
	if err != nil {
		return domain.PaymentMethod{}, err
	}
	if !method.IsActive {
		return domain.PaymentMethod{}, domain.ErrInvalidState
	}

	if err := s.methodRepo.SetDefault(ctx, method.CustomerID, method.ID, method.Kind); err != nil {
		s.log.Error("Failed to set default method %s: %v", methodID, err)
		return domain.PaymentMethod{}, err
	}

	method.IsDefault = true
	s.log.Info("Set method %s as default %s for customer %s", method.ID, method.Kind, method.CustomerID)
	return method, nil
}

// ListActive returns the customer's active methods in redacted form,
// default first
func (s *vaultService) ListActive(ctx context.Context, customerID string) ([]domain.PaymentMethod, error) {
	id, err := uuid.Parse(customerID)
	if err != nil {
		s.log.Warn("Invalid UUID format for customer ID: %s", customerID)
		return nil, repository.ErrInvalidData
	}

	return s.methodRepo.ListActiveByCustomer(ctx, id)
}

// Deactivate removes a method from use while keeping its row for the
// audit trail
func (s *vaultService) Deactivate(ctx context.Context, methodID string) (domain.PaymentMethod, error) {
	id, err := uuid.Parse(methodID)
	if err != nil {
		s.log.Warn("Invalid UUID format for method ID: %s", methodID)
		return domain.PaymentMethod{}, repository.ErrInvalidData
	}

	method, err := s.methodRepo.GetByID(ctx, id)
	if err != nil {
		return domain.PaymentMethod{}, err
	}

	unlock := s.locker.Lock(method.CustomerID)
	defer unlock()

	method, err = s.methodRepo.GetByID(ctx, id)
	if err != nil {
		return domain.PaymentMethod{}, err
	}

	method.IsActive = false
	method.IsDefault = false
	if err := s.methodRepo.Update(ctx, method); err != nil {
		s.log.Error("Failed to deactivate method %s: %v", methodID, err)
		return domain.PaymentMethod{}, err
	}

	s.log.Info("Deactivated payment method %s", methodID)
	return method, nil
}

// activeCustomer resolves a customer id string and requires the
// customer to be active
func (s *vaultService) activeCustomer(ctx context.Context, customerID string) (domain.Customer, error) {
	id, err := uuid.Parse(customerID)
	if err != nil {
		s.log.Warn("Invalid UUID format for customer ID: %s", customerID)
		return domain.Customer{}, repository.ErrInvalidData
	}

	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if !customer.IsActive() {
		return domain.Customer{}, domain.ErrCustomerInactive
	}

	return customer, nil
}
