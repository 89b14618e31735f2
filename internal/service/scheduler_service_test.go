package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) createAgreement(t *testing.T, req domain.CreateAgreementRequest) domain.Agreement {
	t.Helper()

	agreement, err := e.scheduler.CreateAgreement(context.Background(), req)
	require.NoError(t, err)
	return agreement
}

func (e *testEnv) agreementRequest(t *testing.T, startDate string) domain.CreateAgreementRequest {
	t.Helper()

	customer := e.registerCustomer(t)
	method := e.addCard(t, customer.ID.String())

	return domain.CreateAgreementRequest{
		CustomerID:      customer.ID.String(),
		PaymentMethodID: method.ID.String(),
		StartDate:       startDate,
	}
}

func TestCreateAgreementDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	agreement := env.createAgreement(t, env.agreementRequest(t, "2024-03-15"))

	assert.Equal(t, domain.AgreementStatusActive, agreement.Status)
	assert.Equal(t, domain.FrequencyMonthly, agreement.Frequency)
	assert.Equal(t, "ILS", agreement.Currency)
	assert.True(t, agreement.Amount.Equal(decimal.NewFromInt(3500)), "amount %s", agreement.Amount)
	assert.Equal(t, "2024-04-15", agreement.NextDueDate.Format("2006-01-02"))

	// The first ledger record covers the start date itself
	history, err := env.ledger.History(ctx, agreement.CustomerID.String(), 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.PaymentStatusPending, history[0].Status)
	assert.Equal(t, "2024-03-15", history[0].DueDate.Format("2006-01-02"))
	assert.Equal(t, "Monthly fee - 03/2024", history[0].Description)
	assert.Equal(t, agreement.ID, history[0].AgreementID)
}

func TestCreateAgreementCustomAmount(t *testing.T) {
	env := newTestEnv(t)

	req := env.agreementRequest(t, "2024-03-15")
	req.Amount = "1750.50"

	agreement := env.createAgreement(t, req)
	assert.True(t, agreement.Amount.Equal(decimal.RequireFromString("1750.50")))
}

func TestCreateAgreementRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	t.Run("negative amount", func(t *testing.T) {
		req := env.agreementRequest(t, "2024-03-15")
		req.Amount = "-5"
		_, err := env.scheduler.CreateAgreement(ctx, req)
		assert.True(t, errors.Is(err, domain.ErrValidationFailed))
	})

	t.Run("end date before start date", func(t *testing.T) {
		req := env.agreementRequest(t, "2024-03-15")
		req.EndDate = "2024-02-15"
		_, err := env.scheduler.CreateAgreement(ctx, req)
		assert.True(t, errors.Is(err, domain.ErrInvalidDateRange))
	})

	t.Run("unparseable start date", func(t *testing.T) {
		req := env.agreementRequest(t, "2024-03-15")
		req.StartDate = "15/03/2024"
		_, err := env.scheduler.CreateAgreement(ctx, req)
		assert.True(t, errors.Is(err, domain.ErrInvalidDateRange))
	})

	t.Run("unsupported frequency", func(t *testing.T) {
		req := env.agreementRequest(t, "2024-03-15")
		req.Frequency = "weekly"
		_, err := env.scheduler.CreateAgreement(ctx, req)
		assert.True(t, errors.Is(err, domain.ErrUnsupportedFrequency))
	})

	t.Run("method of another customer", func(t *testing.T) {
		req := env.agreementRequest(t, "2024-03-15")
		other := env.registerCustomer(t)
		req.CustomerID = other.ID.String()
		_, err := env.scheduler.CreateAgreement(ctx, req)
		assert.True(t, errors.Is(err, domain.ErrInvalidPaymentMethod))
	})

	t.Run("deactivated method", func(t *testing.T) {
		req := env.agreementRequest(t, "2024-03-15")
		_, err := env.vault.Deactivate(ctx, req.PaymentMethodID)
		require.NoError(t, err)
		_, err = env.scheduler.CreateAgreement(ctx, req)
		assert.True(t, errors.Is(err, domain.ErrInvalidPaymentMethod))
	})

	t.Run("unknown method", func(t *testing.T) {
		req := env.agreementRequest(t, "2024-03-15")
		req.PaymentMethodID = "00000000-0000-4000-8000-000000000000"
		_, err := env.scheduler.CreateAgreement(ctx, req)
		assert.True(t, errors.Is(err, domain.ErrInvalidPaymentMethod))
	})
}

func TestRollForwardAppendsRecordAndAdvancesDueDate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	agreement := env.createAgreement(t, env.agreementRequest(t, "2024-01-31"))
	assert.Equal(t, "2024-02-29", agreement.NextDueDate.Format("2006-01-02"))

	record, err := env.scheduler.RollForward(ctx, agreement.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, record.Status)
	assert.Equal(t, "2024-03-29", record.DueDate.Format("2006-01-02"))
	assert.Equal(t, "Monthly fee - 03/2024", record.Description)

	updated, err := env.scheduler.GetByID(ctx, agreement.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "2024-03-29", updated.NextDueDate.Format("2006-01-02"))

	history, err := env.ledger.History(ctx, agreement.CustomerID.String(), 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestRollForwardCompletesPastEndDate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := env.agreementRequest(t, "2024-01-15")
	req.EndDate = "2024-02-20"
	agreement := env.createAgreement(t, req)
	assert.Equal(t, "2024-02-15", agreement.NextDueDate.Format("2006-01-02"))

	// The next cycle (March 15) passes the end date: the agreement
	// completes and no record is created
	_, err := env.scheduler.RollForward(ctx, agreement.ID.String())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAgreementCompleted))

	updated, err := env.scheduler.GetByID(ctx, agreement.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.AgreementStatusCompleted, updated.Status)

	history, err := env.ledger.History(ctx, agreement.CustomerID.String(), 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	// A completed agreement cannot roll forward again
	_, err = env.scheduler.RollForward(ctx, agreement.ID.String())
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestPauseAndResume(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	agreement := env.createAgreement(t, env.agreementRequest(t, "2024-03-15"))
	dueBefore := agreement.NextDueDate

	paused, err := env.scheduler.Pause(ctx, agreement.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.AgreementStatusPaused, paused.Status)

	// Paused agreements neither bill nor pause again
	_, err = env.scheduler.RollForward(ctx, agreement.ID.String())
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
	_, err = env.scheduler.Pause(ctx, agreement.ID.String())
	assert.True(t, errors.Is(err, domain.ErrInvalidState))

	resumed, err := env.scheduler.Resume(ctx, agreement.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.AgreementStatusActive, resumed.Status)

	// Missed cycles are skipped: the due date did not move and no
	// catch-up records appeared
	assert.True(t, resumed.NextDueDate.Equal(dueBefore))
	history, err := env.ledger.History(ctx, agreement.CustomerID.String(), 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	// Resume only applies to paused agreements
	_, err = env.scheduler.Resume(ctx, agreement.ID.String())
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestCancelIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	agreement := env.createAgreement(t, env.agreementRequest(t, "2024-03-15"))

	cancelled, err := env.scheduler.Cancel(ctx, agreement.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.AgreementStatusCancelled, cancelled.Status)

	// Cancelling again is a no-op success
	again, err := env.scheduler.Cancel(ctx, agreement.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.AgreementStatusCancelled, again.Status)

	_, err = env.scheduler.RollForward(ctx, agreement.ID.String())
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
	_, err = env.scheduler.Resume(ctx, agreement.ID.String())
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestCancelFromPaused(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	agreement := env.createAgreement(t, env.agreementRequest(t, "2024-03-15"))

	_, err := env.scheduler.Pause(ctx, agreement.ID.String())
	require.NoError(t, err)

	cancelled, err := env.scheduler.Cancel(ctx, agreement.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.AgreementStatusCancelled, cancelled.Status)
}

func TestCancelCompletedAgreementFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	req := env.agreementRequest(t, "2024-01-15")
	req.EndDate = "2024-02-20"
	agreement := env.createAgreement(t, req)

	_, err := env.scheduler.RollForward(ctx, agreement.ID.String())
	require.True(t, errors.Is(err, domain.ErrAgreementCompleted))

	_, err = env.scheduler.Cancel(ctx, agreement.ID.String())
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestEndOfMonthClampAcrossCycles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	agreement := env.createAgreement(t, env.agreementRequest(t, "2023-12-31"))
	assert.Equal(t, "2024-01-31", agreement.NextDueDate.Format("2006-01-02"))

	var due time.Time
	previous := agreement.NextDueDate
	for i := 0; i < 6; i++ {
		record, err := env.scheduler.RollForward(ctx, agreement.ID.String())
		require.NoError(t, err)
		due = record.DueDate
		assert.True(t, due.After(previous), "cycle %d: due date regressed", i)
		previous = due
	}

	// Jan 31 -> Feb 29 -> Mar 29 -> ... the clamped day sticks
	assert.Equal(t, "2024-07-29", due.Format("2006-01-02"))
}

func TestGetAgreementUnknownID(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.scheduler.GetByID(context.Background(), "00000000-0000-4000-8000-000000000000")
	assert.True(t, errors.Is(err, repository.ErrNotFound))

	_, err = env.scheduler.GetByID(context.Background(), "not-a-uuid")
	assert.True(t, errors.Is(err, repository.ErrInvalidData))
}

func TestListAgreementsByCustomer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.registerCustomer(t)
	method := env.addCard(t, customer.ID.String())

	for _, start := range []string{"2024-05-01", "2024-03-01"} {
		env.createAgreement(t, domain.CreateAgreementRequest{
			CustomerID:      customer.ID.String(),
			PaymentMethodID: method.ID.String(),
			StartDate:       start,
		})
	}

	agreements, err := env.scheduler.ListByCustomer(ctx, customer.ID.String())
	require.NoError(t, err)
	require.Len(t, agreements, 2)
	assert.True(t, agreements[0].NextDueDate.Before(agreements[1].NextDueDate))
}
