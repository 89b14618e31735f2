package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/pkg/logger"
)

// PaymentMethodRepository storage contract for payment methods.
// SetDefault must atomically clear the default flag on every other
// method of the same kind for the customer.
type PaymentMethodRepository interface {
	Create(ctx context.Context, method domain.PaymentMethod) (domain.PaymentMethod, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.PaymentMethod, error)
	Update(ctx context.Context, method domain.PaymentMethod) error
	ListActiveByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.PaymentMethod, error)
	SetDefault(ctx context.Context, customerID, methodID uuid.UUID, kind domain.MethodKind) error
}

// InMemoryPaymentMethodRepository in-memory implementation of the
// payment method repository
type InMemoryPaymentMethodRepository struct {
	methods map[uuid.UUID]domain.PaymentMethod
	mutex   sync.RWMutex
	log     *logger.Logger
}

// NewInMemoryPaymentMethodRepository creates a new in-memory payment
// method repository
func NewInMemoryPaymentMethodRepository(log *logger.Logger) *InMemoryPaymentMethodRepository {
	return &InMemoryPaymentMethodRepository{
		methods: make(map[uuid.UUID]domain.PaymentMethod),
		log:     log,
	}
}

// Create stores a new payment method. When the method is flagged
// default, other methods of the same kind lose the flag in the same
// critical section.
func (r *InMemoryPaymentMethodRepository) Create(ctx context.Context, method domain.PaymentMethod) (domain.PaymentMethod, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.methods[method.ID]; exists {
		return domain.PaymentMethod{}, ErrDuplicate
	}

	if method.IsDefault {
		r.clearDefaultLocked(method.CustomerID, method.Kind)
	}

	method.CreatedAt = time.Now()
	method.UpdatedAt = method.CreatedAt
	r.methods[method.ID] = method

	return method, nil
}

// GetByID returns a payment method by ID
func (r *InMemoryPaymentMethodRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.PaymentMethod, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	method, exists := r.methods[id]
	if !exists {
		return domain.PaymentMethod{}, ErrNotFound
	}

	return method, nil
}

// Update replaces an existing payment method
func (r *InMemoryPaymentMethodRepository) Update(ctx context.Context, method domain.PaymentMethod) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.methods[method.ID]; !exists {
		return ErrNotFound
	}

	method.UpdatedAt = time.Now()
	r.methods[method.ID] = method

	return nil
}

// ListActiveByCustomer returns the customer's active methods, default
// first, then newest first
func (r *InMemoryPaymentMethodRepository) ListActiveByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.PaymentMethod, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	methods := make([]domain.PaymentMethod, 0)
	for _, method := range r.methods {
		if method.CustomerID == customerID && method.IsActive {
			methods = append(methods, method)
		}
	}

	sort.Slice(methods, func(i, j int) bool {
		if methods[i].IsDefault != methods[j].IsDefault {
			return methods[i].IsDefault
		}
		return methods[i].CreatedAt.After(methods[j].CreatedAt)
	})

	return methods, nil
}

// SetDefault makes the method the customer's default for its kind,
// clearing the flag everywhere else in one atomic step
func (r *InMemoryPaymentMethodRepository) SetDefault(ctx context.Context, customerID, methodID uuid.UUID, kind domain.MethodKind) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	method, exists := r.methods[methodID]
	if !exists || method.CustomerID != customerID {
		return ErrNotFound
	}

	r.clearDefaultLocked(customerID, kind)

	method.IsDefault = true
	method.UpdatedAt = time.Now()
	r.methods[methodID] = method

	return nil
}

// clearDefaultLocked unsets the default flag on every method of the
// kind for the customer. Caller must hold the write lock.
func (r *InMemoryPaymentMethodRepository) clearDefaultLocked(customerID uuid.UUID, kind domain.MethodKind) {
	for id, m := range r.methods {
		if m.CustomerID == customerID && m.Kind == kind && m.IsDefault {
			m.IsDefault = false
			m.UpdatedAt = time.Now()
			r.methods[id] = m
		}
	}
}
