package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/internal/kafka/producer"
	"github.com/kinderpay/billing-service/internal/metrics"
	"github.com/kinderpay/billing-service/internal/repository"
	"github.com/kinderpay/billing-service/internal/schedule"
	"github.com/kinderpay/billing-service/pkg/logger"
	"github.com/shopspring/decimal"
)

// SchedulerService manages the lifecycle of recurring agreements:
// creation with the first ledger record, due-date roll-forward, and
// the pause/resume/cancel state machine.
type SchedulerService interface {
	CreateAgreement(ctx context.Context, req domain.CreateAgreementRequest) (domain.Agreement, error)
	GetByID(ctx context.Context, id string) (domain.Agreement, error)
	ListByCustomer(ctx context.Context, customerID string) ([]domain.Agreement, error)
	RollForward(ctx context.Context, id string) (domain.PaymentRecord, error)
	Pause(ctx context.Context, id string) (domain.Agreement, error)
	Resume(ctx context.Context, id string) (domain.Agreement, error)
	Cancel(ctx context.Context, id string) (domain.Agreement, error)
}

type schedulerService struct {
	agreementRepo repository.AgreementRepository
	methodRepo    repository.PaymentMethodRepository
	billing       domain.BillingConfig
	newID         IDGenerator
	locker        *customerLocker
	events        producer.BillingProducer
	metrics       metrics.BillingMetrics
	log           *logger.Logger
}

// NewSchedulerService creates a new scheduler. events and metrics may
// be nil when eventing or instrumentation is disabled.
func NewSchedulerService(
	agreementRepo repository.AgreementRepository,
	methodRepo repository.PaymentMethodRepository,
	billing domain.BillingConfig,
	newID IDGenerator,
	events producer.BillingProducer,
	billingMetrics metrics.BillingMetrics,
	log *logger.Logger,
) SchedulerService {
	return &schedulerService{
		agreementRepo: agreementRepo,
		methodRepo:    methodRepo,
		billing:       billing,
		newID:         newID,
		locker:        newCustomerLocker(),
		events:        events,
		metrics:       billingMetrics,
		log:           log,
	}
}

// CreateAgreement creates an active agreement and its first pending
// ledger record as one atomic unit
func (s *schedulerService) CreateAgreement(ctx context.Context, req domain.CreateAgreementRequest) (domain.Agreement, error) {
	if err := requireFields(
		requiredField{"customer_id", req.CustomerID},
		requiredField{"payment_method_id", req.PaymentMethodID},
		requiredField{"start_date", req.StartDate},
	); err != nil {
		return domain.Agreement{}, err
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		s.log.Warn("Invalid UUID format for customer ID: %s", req.CustomerID)
		return domain.Agreement{}, repository.ErrInvalidData
	}
	methodID, err := uuid.Parse(req.PaymentMethodID)
	if err != nil {
		s.log.Warn("Invalid UUID format for method ID: %s", req.PaymentMethodID)
		return domain.Agreement{}, repository.ErrInvalidData
	}

	// The instrument must belong to the customer and still be usable
	method, err := s.methodRepo.GetByID(ctx, methodID)
	if err != nil {
		if err == repository.ErrNotFound {
			return domain.Agreement{}, domain.ErrInvalidPaymentMethod
		}
		return domain.Agreement{}, err
	}
	if method.CustomerID != customerID || !method.IsActive {
		return domain.Agreement{}, domain.ErrInvalidPaymentMethod
	}

	startDate, err := schedule.ParseDate(req.StartDate)
	if err != nil {
		return domain.Agreement{}, err
	}

	agreement := domain.Agreement{
		ID:              s.newID(),
		CustomerID:      customerID,
		PaymentMethodID: methodID,
		Amount:          s.billing.MonthlyFee,
		Currency:        s.billing.Currency,
		Frequency:       domain.FrequencyMonthly,
		StartDate:       startDate,
		Status:          domain.AgreementStatusActive,
	}

	if req.Frequency != "" {
		agreement.Frequency = domain.Frequency(req.Frequency)
	}

	if req.Amount != "" {
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil || !amount.IsPositive() {
			var errs domain.ValidationErrors
			errs.Add("amount", "must be a positive decimal")
			return domain.Agreement{}, errs
		}
		agreement.Amount = amount
	}

	if req.EndDate != "" {
		endDate, err := schedule.ParseDate(req.EndDate)
		if err != nil {
			return domain.Agreement{}, err
		}
		if startDate.After(endDate) {
			return domain.Agreement{}, domain.ErrInvalidDateRange
		}
		agreement.EndDate = &endDate
	}

	agreement.NextDueDate, err = schedule.Advance(startDate, agreement.Frequency)
	if err != nil {
		return domain.Agreement{}, err
	}

	first := s.newRecord(agreement, startDate)

	unlock := s.locker.Lock(customerID)
	defer unlock()

	agreement, first, err = s.agreementRepo.CreateWithFirstRecord(ctx, agreement, first)
	if err != nil {
		s.log.Error("Failed to create agreement for customer %s: %v", customerID, err)
		return domain.Agreement{}, err
	}

	s.log.Info("Created agreement %s for customer %s, first cycle due %s",
		agreement.ID, customerID, first.DueDate.Format(schedule.DateLayout))
	s.publishCreated(ctx, agreement, first)

	return agreement, nil
}

// GetByID returns an agreement by ID
func (s *schedulerService) GetByID(ctx context.Context, id string) (domain.Agreement, error) {
	agreementID, err := uuid.Parse(id)
	if err != nil {
		s.log.Warn("Invalid UUID format for agreement ID: %s", id)
		return domain.Agreement{}, repository.ErrInvalidData
	}

	return s.agreementRepo.GetByID(ctx, agreementID)
}

// ListByCustomer returns the customer's agreements
func (s *schedulerService) ListByCustomer(ctx context.Context, customerID string) ([]domain.Agreement, error) {
	id, err := uuid.Parse(customerID)
	if err != nil {
		s.log.Warn("Invalid UUID format for customer ID: %s", customerID)
		return nil, repository.ErrInvalidData
	}

	return s.agreementRepo.ListByCustomer(ctx, id)
}

// RollForward advances an active agreement one cycle: the next due
// date moves forward by one frequency unit and a new pending ledger
// record is appended for it. When the advanced date would pass the end
// date the agreement completes instead and no record is created.
// Callers are expected to invoke this at most once per billing cycle;
// there is no per-cycle dedupe here.
func (s *schedulerService) RollForward(ctx context.Context, id string) (domain.PaymentRecord, error) {
	agreementID, err := uuid.Parse(id)
	if err != nil {
		s.log.Warn("Invalid UUID format for agreement ID: %s", id)
		return domain.PaymentRecord{}, repository.ErrInvalidData
	}

	// First read only resolves the customer to lock on; the state it
	// carries may be stale by the time the lock is held
	agreement, err := s.agreementRepo.GetByID(ctx, agreementID)
	if err != nil {
		return domain.PaymentRecord{}, err
	}

	unlock := s.locker.Lock(agreement.CustomerID)
	defer unlock()

	// Re-read under the lock: a concurrent call may have advanced or
	// transitioned the agreement while we waited, and advancing from a
	// stale due date would bill the same cycle twice
	agreement, err = s.agreementRepo.GetByID(ctx, agreementID)
	if err != nil {
		return domain.PaymentRecord{}, err
	}

	if agreement.Status != domain.AgreementStatusActive {
		return domain.PaymentRecord{}, domain.ErrInvalidState
	}

	nextDue, err := schedule.Advance(agreement.NextDueDate, agreement.Frequency)
	if err != nil {
		return domain.PaymentRecord{}, err
	}

	if agreement.EndDate != nil && nextDue.After(*agreement.EndDate) {
		agreement.Status = domain.AgreementStatusCompleted
		if err := s.agreementRepo.Update(ctx, agreement); err != nil {
			return domain.PaymentRecord{}, err
		}

		s.log.Info("Agreement %s completed, next cycle would pass end date", agreement.ID)
		s.publishTransition(ctx, agreement)
		return domain.PaymentRecord{}, domain.ErrAgreementCompleted
	}

	agreement.NextDueDate = nextDue
	record := s.newRecord(agreement, nextDue)

	if err := s.agreementRepo.AdvanceWithRecord(ctx, agreement, record); err != nil {
		s.log.Error("Failed to roll forward agreement %s: %v", agreement.ID, err)
		return domain.PaymentRecord{}, err
	}

	s.log.Info("Rolled agreement %s forward to %s", agreement.ID, nextDue.Format(schedule.DateLayout))

	if s.metrics != nil {
		s.metrics.IncRecordCreated(record.Currency)
		s.metrics.ObserveRecordAmount(record.Amount.InexactFloat64(), record.Currency)
	}
	if s.events != nil {
		if err := s.events.PublishPaymentCreated(ctx, record); err != nil {
			s.log.Warn("Failed to publish payment event for %s: %v", record.ID, err)
		}
	}

	return record, nil
}

// Pause freezes an active agreement. Paused agreements are skipped by
// cycle runners and keep their due date.
func (s *schedulerService) Pause(ctx context.Context, id string) (domain.Agreement, error) {
	return s.transition(ctx, id, domain.AgreementStatusPaused, func(a domain.Agreement) error {
		if a.Status != domain.AgreementStatusActive {
			return domain.ErrInvalidState
		}
		return nil
	})
}

// Resume reactivates a paused agreement. Cycles missed while paused
// are skipped, not billed retroactively: the due date stays where it
// was at pause time.
func (s *schedulerService) Resume(ctx context.Context, id string) (domain.Agreement, error) {
	return s.transition(ctx, id, domain.AgreementStatusActive, func(a domain.Agreement) error {
		if a.Status != domain.AgreementStatusPaused {
			return domain.ErrInvalidState
		}
		return nil
	})
}

// Cancel terminates an agreement from active or paused. Cancelling an
// already cancelled agreement is a no-op success.
func (s *schedulerService) Cancel(ctx context.Context, id string) (domain.Agreement, error) {
	agreementID, err := uuid.Parse(id)
	if err != nil {
		s.log.Warn("Invalid UUID format for agreement ID: %s", id)
		return domain.Agreement{}, repository.ErrInvalidData
	}

	agreement, err := s.agreementRepo.GetByID(ctx, agreementID)
	if err != nil {
		return domain.Agreement{}, err
	}

	unlock := s.locker.Lock(agreement.CustomerID)
	defer unlock()

	// Re-read under the lock before deciding; a concurrent transition
	// may have settled the state while we waited
	agreement, err = s.agreementRepo.GetByID(ctx, agreementID)
	if err != nil {
		return domain.Agreement{}, err
	}

	// Idempotent from cancelled
	if agreement.Status == domain.AgreementStatusCancelled {
		return agreement, nil
	}
	if agreement.Status == domain.AgreementStatusCompleted {
		return domain.Agreement{}, domain.ErrInvalidState
	}

	agreement.Status = domain.AgreementStatusCancelled
	if err := s.agreementRepo.Update(ctx, agreement); err != nil {
		s.log.Error("Failed to cancel agreement %s: %v", id, err)
		return domain.Agreement{}, err
	}

	s.log.Info("Cancelled agreement %s", id)
	s.publishTransition(ctx, agreement)

	return agreement, nil
}

// transition applies a guarded single-state transition
func (s *schedulerService) transition(ctx context.Context, id string, target domain.AgreementStatus, guard func(domain.Agreement) error) (domain.Agreement, error) {
	agreementID, err := uuid.Parse(id)
	if err != nil {
		s.log.Warn("Invalid UUID format for agreement ID: %s", id)
		return domain.Agreement{}, repository.ErrInvalidData
	}

	agreement, err := s.agreementRepo.GetByID(ctx, agreementID)
	if err != nil {
		return domain.Agreement{}, err
	}

	unlock := s.locker.Lock(agreement.CustomerID)
	defer unlock()

	// Re-read and re-guard under the lock so a transition that committed
	// while we waited cannot be silently overwritten
	agreement, err = s.agreementRepo.GetByID(ctx, agreementID)
	if err != nil {
		return domain.Agreement{}, err
	}

	if err := guard(agreement); err != nil {
		return domain.Agreement{}, err
	}

	agreement.Status = target
	if err := s.agreementRepo.Update(ctx, agreement); err != nil {
		s.log.Error("Failed to transition agreement %s to %s: %v", id, target, err)
		return domain.Agreement{}, err
	}

	s.log.Info("Agreement %s is now %s", id, target)
	s.publishTransition(ctx, agreement)

	return agreement, nil
}

// newRecord builds the pending ledger record for one billing cycle
func (s *schedulerService) newRecord(agreement domain.Agreement, dueDate time.Time) domain.PaymentRecord {
	return domain.PaymentRecord{
		ID:              s.newID(),
		CustomerID:      agreement.CustomerID,
		PaymentMethodID: agreement.PaymentMethodID,
		AgreementID:     agreement.ID,
		Amount:          agreement.Amount,
		Currency:        agreement.Currency,
		Status:          domain.PaymentStatusPending,
		DueDate:         dueDate,
		Description:     schedule.CycleLabel(dueDate),
	}
}

func (s *schedulerService) publishCreated(ctx context.Context, agreement domain.Agreement, first domain.PaymentRecord) {
	if s.metrics != nil {
		s.metrics.IncAgreementCreated()
		s.metrics.IncRecordCreated(first.Currency)
		s.metrics.ObserveRecordAmount(first.Amount.InexactFloat64(), first.Currency)
	}
	if s.events == nil {
		return
	}
	if err := s.events.PublishAgreementCreated(ctx, agreement); err != nil {
		s.log.Warn("Failed to publish agreement event for %s: %v", agreement.ID, err)
	}
	if err := s.events.PublishPaymentCreated(ctx, first); err != nil {
		s.log.Warn("Failed to publish payment event for %s: %v", first.ID, err)
	}
}

func (s *schedulerService) publishTransition(ctx context.Context, agreement domain.Agreement) {
	if s.metrics != nil {
		s.metrics.IncAgreementTransition(string(agreement.Status))
	}
	if s.events == nil {
		return
	}
	if err := s.events.PublishAgreementState(ctx, agreement); err != nil {
		s.log.Warn("Failed to publish agreement event for %s: %v", agreement.ID, err)
	}
}
