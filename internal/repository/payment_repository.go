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

// PaymentRepository storage contract for the append-only ledger.
// Records are never deleted; UpdateStatus is the only mutation.
type PaymentRepository interface {
	Create(ctx context.Context, record domain.PaymentRecord) (domain.PaymentRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.PaymentRecord, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) (domain.PaymentRecord, error)
	HistoryByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]domain.PaymentRecord, error)
	ListPendingDue(ctx context.Context, asOf time.Time) ([]domain.PaymentRecord, error)
}

// InMemoryPaymentRepository in-memory implementation of the ledger
type InMemoryPaymentRepository struct {
	records map[uuid.UUID]domain.PaymentRecord
	// order preserves insertion sequence so history can be returned
	// most-recent-first even when timestamps collide
	order []uuid.UUID
	mutex sync.RWMutex
	log   *logger.Logger
}

// NewInMemoryPaymentRepository creates a new in-memory ledger
func NewInMemoryPaymentRepository(log *logger.Logger) *InMemoryPaymentRepository {
	return &InMemoryPaymentRepository{
		records: make(map[uuid.UUID]domain.PaymentRecord),
		log:     log,
	}
}

// Create appends a new ledger record
func (r *InMemoryPaymentRepository) Create(ctx context.Context, record domain.PaymentRecord) (domain.PaymentRecord, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.createLocked(record)
}

// createLocked appends a record. Caller must hold the write lock.
func (r *InMemoryPaymentRepository) createLocked(record domain.PaymentRecord) (domain.PaymentRecord, error) {
	if _, exists := r.records[record.ID]; exists {
		return domain.PaymentRecord{}, ErrDuplicate
	}

	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	r.records[record.ID] = record
	r.order = append(r.order, record.ID)

	return record, nil
}

// GetByID returns a ledger record by ID
func (r *InMemoryPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.PaymentRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	record, exists := r.records[id]
	if !exists {
		return domain.PaymentRecord{}, ErrNotFound
	}

	return record, nil
}

// UpdateStatus sets the outcome of a record and returns the updated
// record
func (r *InMemoryPaymentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.PaymentStatus) (domain.PaymentRecord, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	record, exists := r.records[id]
	if !exists {
		return domain.PaymentRecord{}, ErrNotFound
	}

	record.Status = status
	record.UpdatedAt = time.Now()
	r.records[id] = record

	return record, nil
}

// HistoryByCustomer returns the customer's records most-recent-first,
// capped at limit. An unknown customer yields an empty slice.
func (r *InMemoryPaymentRepository) HistoryByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]domain.PaymentRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	history := make([]domain.PaymentRecord, 0, limit)
	for i := len(r.order) - 1; i >= 0 && len(history) < limit; i-- {
		record := r.records[r.order[i]]
		if record.CustomerID == customerID {
			history = append(history, record)
		}
	}

	return history, nil
}

// ListPendingDue returns pending records due on or before asOf, most
// overdue first
func (r *InMemoryPaymentRepository) ListPendingDue(ctx context.Context, asOf time.Time) ([]domain.PaymentRecord, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	due := make([]domain.PaymentRecord, 0)
	for _, id := range r.order {
		record := r.records[id]
		if record.Status == domain.PaymentStatusPending && !record.DueDate.After(asOf) {
			due = append(due, record)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].DueDate.Before(due[j].DueDate)
	})

	return due, nil
}
