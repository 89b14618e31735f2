package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/pkg/logger"
)

// CustomerRepository storage contract for customers
type CustomerRepository interface {
	Create(ctx context.Context, customer domain.Customer) (domain.Customer, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Customer, error)
	Update(ctx context.Context, customer domain.Customer) error
}

// InMemoryCustomerRepository in-memory implementation of the customer
// repository, used in tests and local development
type InMemoryCustomerRepository struct {
	customers map[uuid.UUID]domain.Customer
	mutex     sync.RWMutex
	log       *logger.Logger
}

// NewInMemoryCustomerRepository creates a new in-memory customer repository
func NewInMemoryCustomerRepository(log *logger.Logger) *InMemoryCustomerRepository {
	return &InMemoryCustomerRepository{
		customers: make(map[uuid.UUID]domain.Customer),
		log:       log,
	}
}

// Create stores a new customer
func (r *InMemoryCustomerRepository) Create(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.customers[customer.ID]; exists {
		return domain.Customer{}, ErrDuplicate
	}

	customer.CreatedAt = time.Now()
	customer.UpdatedAt = customer.CreatedAt
	r.customers[customer.ID] = customer

	return customer, nil
}

// GetByID returns a customer by ID
func (r *InMemoryCustomerRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Customer, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	customer, exists := r.customers[id]
	if !exists {
		return domain.Customer{}, ErrNotFound
	}

	return customer, nil
}

// Update replaces an existing customer
func (r *InMemoryCustomerRepository) Update(ctx context.Context, customer domain.Customer) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.customers[customer.ID]; !exists {
		return ErrNotFound
	}

	customer.UpdatedAt = time.Now()
	r.customers[customer.ID] = customer

	return nil
}
