package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/pkg/logger"
)

// CachedAgreementRepository decorates an AgreementRepository with a
// Redis read-through cache. Cache failures are logged and ignored, the
// underlying store is always authoritative.
type CachedAgreementRepository struct {
	repo  AgreementRepository
	cache *RedisCacheRepository
	log   *logger.Logger
}

// NewCachedAgreementRepository creates a new caching agreement
// repository
func NewCachedAgreementRepository(repo AgreementRepository, cache *RedisCacheRepository, log *logger.Logger) AgreementRepository {
	return &CachedAgreementRepository{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// CreateWithFirstRecord writes through to the store and caches the new
// agreement
func (r *CachedAgreementRepository) CreateWithFirstRecord(ctx context.Context, agreement domain.Agreement, first domain.PaymentRecord) (domain.Agreement, domain.PaymentRecord, error) {
	agreement, record, err := r.repo.CreateWithFirstRecord(ctx, agreement, first)
	if err != nil {
		return domain.Agreement{}, domain.PaymentRecord{}, err
	}

	if err := r.cache.CacheAgreement(ctx, agreement); err != nil {
		r.log.Warn("Failed to cache agreement %s: %v", agreement.ID, err)
	}

	return agreement, record, nil
}

// GetByID checks the cache first and falls back to the store
func (r *CachedAgreementRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Agreement, error) {
	cached, err := r.cache.GetCachedAgreement(ctx, id)
	if err != nil {
		r.log.Warn("Cache lookup failed for agreement %s: %v", id, err)
	}
	if cached != nil {
		return *cached, nil
	}

	agreement, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Agreement{}, err
	}

	if err := r.cache.CacheAgreement(ctx, agreement); err != nil {
		r.log.Warn("Failed to cache agreement %s: %v", agreement.ID, err)
	}

	return agreement, nil
}

// ListByCustomer always hits the store; the listing is not cached
func (r *CachedAgreementRepository) ListByCustomer(ctx context.Context, customerID uuid.UUID) ([]domain.Agreement, error) {
	return r.repo.ListByCustomer(ctx, customerID)
}

// Update writes through and refreshes the cache entry
func (r *CachedAgreementRepository) Update(ctx context.Context, agreement domain.Agreement) error {
	if err := r.repo.Update(ctx, agreement); err != nil {
		return err
	}

	if err := r.cache.InvalidateAgreement(ctx, agreement.ID); err != nil {
		r.log.Warn("Failed to invalidate agreement %s: %v", agreement.ID, err)
	}

	return nil
}

// AdvanceWithRecord writes through and invalidates the stale due date
func (r *CachedAgreementRepository) AdvanceWithRecord(ctx context.Context, agreement domain.Agreement, record domain.PaymentRecord) error {
	if err := r.repo.AdvanceWithRecord(ctx, agreement, record); err != nil {
		return err
	}

	if err := r.cache.InvalidateAgreement(ctx, agreement.ID); err != nil {
		r.log.Warn("Failed to invalidate agreement %s: %v", agreement.ID, err)
	}

	return nil
}
