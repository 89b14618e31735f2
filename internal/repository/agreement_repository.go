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

// AgreementRepository storage contract for recurring agreements.
// CreateWithFirstRecord and AdvanceWithRecord are single atomic units:
// an agreement must never exist without its first ledger record, and a
// rolled-forward due date must never be visible without the matching
// pending record.
type AgreementRepository interface {
	CreateWithFirstRecord(ctx context.Context, agreement domain.Agreement, first domain.PaymentRecord) (domain.Agreement, domain.PaymentRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Agreement, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Agreement, error)
	Update(ctx context.Context, agreement domain.Agreement) error
	AdvanceWithRecord(ctx context.Context, agreement domain.Agreement, record domain.PaymentRecord) error
}

// InMemoryAgreementRepository in-memory implementation of the
// agreement repository. It shares the in-memory ledger so the two
// cross-entity writes happen under one lock.
type InMemoryAgreementRepository struct {
	agreements map[uuid.UUID]domain.Agreement
	payments   *InMemoryPaymentRepository
	mutex      sync.RWMutex
	log        *logger.Logger
}

// NewInMemoryAgreementRepository creates a new in-memory agreement
// repository backed by the given ledger
func NewInMemoryAgreementRepository(payments *InMemoryPaymentRepository, log *logger.Logger) *InMemoryAgreementRepository {
	return &InMemoryAgreementRepository{
		agreements: make(map[uuid.UUID]domain.Agreement),
		payments:   payments,
		log:        log,
	}
}

// CreateWithFirstRecord stores a new agreement together with its first
// pending ledger record
func (r *InMemoryAgreementRepository) CreateWithFirstRecord(ctx context.Context, agreement domain.Agreement, first domain.PaymentRecord) (domain.Agreement, domain.PaymentRecord, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.agreements[agreement.ID]; exists {
		return domain.Agreement{}, domain.PaymentRecord{}, ErrDuplicate
	}

	r.payments.mutex.Lock()
	defer r.payments.mutex.Unlock()

	record, err := r.payments.createLocked(first)
	if err != nil {
		return domain.Agreement{}, domain.PaymentRecord{}, err
	}

	agreement.CreatedAt = time.Now()
	agreement.UpdatedAt = agreement.CreatedAt
	r.agreements[agreement.ID] = agreement

	return agreement, record, nil
}

// GetByID returns an agreement by ID
func (r *InMemoryAgreementRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Agreement, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	agreement, exists := r.agreements[id]
	if !exists {
		return domain.Agreement{}, ErrNotFound
	}

	return agreement, nil
}

// ListByCustomer returns the customer's agreements ordered by next due
// date
func (r *InMemoryAgreementRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Agreement, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	agreements := make([]domain.Agreement, 0)
	for _, agreement := range r.agreements {
		if agreement.CustomerID == customerID {
			agreements = append(agreements, agreement)
		}
	}

	sort.Slice(agreements, func(i, j int) bool {
		return agreements[i].NextDueDate.Before(agreements[j].NextDueDate)
	})

	return agreements, nil
}

// Update replaces an existing agreement. Terminal rows are never
// overwritten, matching the non-terminal guard on the SQL statement.
func (r *InMemoryAgreementRepository) Update(ctx context.Context, agreement domain.Agreement) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	current, exists := r.agreements[agreement.ID]
	if !exists {
		return ErrNotFound
	}
	if current.IsTerminal() {
		return domain.ErrInvalidState
	}

	agreement.UpdatedAt = time.Now()
	r.agreements[agreement.ID] = agreement

	return nil
}

// AdvanceWithRecord persists a rolled-forward agreement and appends
// the new pending record as one atomic step
func (r *InMemoryAgreementRepository) AdvanceWithRecord(ctx context.Context, agreement domain.Agreement, record domain.PaymentRecord) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	current, exists := r.agreements[agreement.ID]
	if !exists {
		return ErrNotFound
	}
	if current.Status != domain.AgreementStatusActive {
		return domain.ErrInvalidState
	}

	r.payments.mutex.Lock()
	defer r.payments.mutex.Unlock()

	if _, err := r.payments.createLocked(record); err != nil {
		return err
	}

	agreement.UpdatedAt = time.Now()
	r.agreements[agreement.ID] = agreement

	return nil
}
