package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/internal/kafka/producer"
	"github.com/kinderpay/billing-service/internal/metrics"
	"github.com/kinderpay/billing-service/internal/repository"
	"github.com/kinderpay/billing-service/pkg/logger"
)

// defaultHistoryLimit is used when callers do not specify one
const defaultHistoryLimit = 12

// LedgerService reads and settles the append-only payment ledger.
// Records are never deleted; settling one only moves it from pending
// to a terminal status.
type LedgerService interface {
	GetByID(ctx context.Context, id string) (domain.PaymentRecord, error)
	History(ctx context.Context, customerID string, limit int) ([]domain.PaymentRecord, error)
	PendingDue(ctx context.Context, asOf time.Time) ([]domain.PaymentRecord, error)
	MarkOutcome(ctx context.Context, id string, req domain.MarkOutcomeRequest) (domain.PaymentRecord, error)
}

type ledgerService struct {
	paymentRepo repository.PaymentRepository
	events      producer.BillingProducer
	metrics     metrics.BillingMetrics
	log         *logger.Logger
}

// NewLedgerService creates a new ledger service. events and metrics
// may be nil when eventing or instrumentation is disabled.
func NewLedgerService(
	paymentRepo repository.PaymentRepository,
	events producer.BillingProducer,
	billingMetrics metrics.BillingMetrics,
	log *logger.Logger,
) LedgerService {
	return &ledgerService{
		paymentRepo: paymentRepo,
		events:      events,
		metrics:     billingMetrics,
		log:         log,
	}
}

// GetByID returns a ledger record by ID
func (s *ledgerService) GetByID(ctx context.Context, id string) (domain.PaymentRecord, error) {
	recordID, err := uuid.Parse(id)
	if err != nil {
		s.log.Warn("Invalid UUID format for record ID: %s", id)
		return domain.PaymentRecord{}, repository.ErrInvalidData
	}

	return s.paymentRepo.GetByID(ctx, recordID)
}

// History returns the customer's most recent ledger records, newest
// first. A non-positive limit falls back to the default page size.
func (s *ledgerService) History(ctx context.Context, customerID string, limit int) ([]domain.PaymentRecord, error) {
	id, err := uuid.Parse(customerID)
	if err != nil {
		s.log.Warn("Invalid UUID format for customer ID: %s", customerID)
		return nil, repository.ErrInvalidData
	}

	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	return s.paymentRepo.HistoryByCustomer(ctx, id, limit)
}

// PendingDue returns all pending records whose due date is on or
// before asOf, ordered by due date. This is the worklist a collection
// run works through.
func (s *ledgerService) PendingDue(ctx context.Context, asOf time.Time) ([]domain.PaymentRecord, error) {
	return s.paymentRepo.ListPendingDue(ctx, asOf)
}

// MarkOutcome settles a pending record as completed or failed. A
// record that has already been settled cannot change outcome.
func (s *ledgerService) MarkOutcome(ctx context.Context, id string, req domain.MarkOutcomeRequest) (domain.PaymentRecord, error) {
	recordID, err := uuid.Parse(id)
	if err != nil {
		s.log.Warn("Invalid UUID format for record ID: %s", id)
		return domain.PaymentRecord{}, repository.ErrInvalidData
	}

	status := domain.PaymentStatus(req.Status)
	if status != domain.PaymentStatusCompleted && status != domain.PaymentStatusFailed {
		var errs domain.ValidationErrors
		errs.Add("status", "must be completed or failed")
		return domain.PaymentRecord{}, errs
	}

	record, err := s.paymentRepo.GetByID(ctx, recordID)
	if err != nil {
		return domain.PaymentRecord{}, err
	}

	if record.Status != domain.PaymentStatusPending {
		s.log.Warn("Record %s is already %s, refusing outcome change", id, record.Status)
		return domain.PaymentRecord{}, domain.ErrInvalidState
	}

	record, err = s.paymentRepo.UpdateStatus(ctx, recordID, status)
	if err != nil {
		s.log.Error("Failed to settle record %s: %v", id, err)
		return domain.PaymentRecord{}, err
	}

	s.log.Info("Record %s settled as %s", id, status)

	if s.metrics != nil {
		s.metrics.IncRecordOutcome(string(status), record.Currency)
	}
	if s.events != nil {
		if err := s.events.PublishPaymentOutcome(ctx, record); err != nil {
			s.log.Warn("Failed to publish outcome event for %s: %v", id, err)
		}
	}

	return record, nil
}
