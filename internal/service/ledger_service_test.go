package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkOutcomeSettlesPendingRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	agreement := env.createAgreement(t, env.agreementRequest(t, "2024-03-15"))

	history, err := env.ledger.History(ctx, agreement.CustomerID.String(), 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	recordID := history[0].ID.String()

	settled, err := env.ledger.MarkOutcome(ctx, recordID, domain.MarkOutcomeRequest{Status: "completed"})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, settled.Status)

	// A settled record cannot change outcome again
	_, err = env.ledger.MarkOutcome(ctx, recordID, domain.MarkOutcomeRequest{Status: "failed"})
	assert.True(t, errors.Is(err, domain.ErrInvalidState))
}

func TestMarkOutcomeFailed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	agreement := env.createAgreement(t, env.agreementRequest(t, "2024-03-15"))

	history, err := env.ledger.History(ctx, agreement.CustomerID.String(), 0)
	require.NoError(t, err)
	require.Len(t, history, 1)

	settled, err := env.ledger.MarkOutcome(ctx, history[0].ID.String(), domain.MarkOutcomeRequest{Status: "failed"})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, settled.Status)
}

func TestMarkOutcomeRejectsInvalidStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	agreement := env.createAgreement(t, env.agreementRequest(t, "2024-03-15"))

	history, err := env.ledger.History(ctx, agreement.CustomerID.String(), 0)
	require.NoError(t, err)
	require.Len(t, history, 1)

	_, err = env.ledger.MarkOutcome(ctx, history[0].ID.String(), domain.MarkOutcomeRequest{Status: "pending"})
	assert.True(t, errors.Is(err, domain.ErrValidationFailed))

	_, err = env.ledger.MarkOutcome(ctx, "not-a-uuid", domain.MarkOutcomeRequest{Status: "completed"})
	assert.True(t, errors.Is(err, repository.ErrInvalidData))

	_, err = env.ledger.MarkOutcome(ctx, "00000000-0000-4000-8000-000000000000", domain.MarkOutcomeRequest{Status: "completed"})
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestHistoryDefaultLimitAndOrdering(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	agreement := env.createAgreement(t, env.agreementRequest(t, "2024-01-15"))

	// One record exists from creation; roll forward until the ledger
	// holds more than the default page size
	for i := 0; i < 14; i++ {
		_, err := env.scheduler.RollForward(ctx, agreement.ID.String())
		require.NoError(t, err)
	}

	history, err := env.ledger.History(ctx, agreement.CustomerID.String(), 0)
	require.NoError(t, err)
	assert.Len(t, history, 12)

	// Newest first: due dates descend through the page
	for i := 1; i < len(history); i++ {
		assert.True(t, history[i].DueDate.Before(history[i-1].DueDate),
			"history not newest-first at index %d", i)
	}

	// An explicit limit caps the page
	history, err = env.ledger.History(ctx, agreement.CustomerID.String(), 3)
	require.NoError(t, err)
	assert.Len(t, history, 3)
}

func TestHistoryUnknownCustomerIsEmpty(t *testing.T) {
	env := newTestEnv(t)

	history, err := env.ledger.History(context.Background(), "00000000-0000-4000-8000-000000000000", 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestPendingDueWorklist(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	agreement := env.createAgreement(t, env.agreementRequest(t, "2024-01-15"))
	for i := 0; i < 2; i++ {
		_, err := env.scheduler.RollForward(ctx, agreement.ID.String())
		require.NoError(t, err)
	}

	// Records due: Jan 15, Feb 15, Mar 15. As of Feb 20 only the first
	// two are collectible, most overdue first.
	asOf := time.Date(2024, time.February, 20, 0, 0, 0, 0, time.UTC)
	due, err := env.ledger.PendingDue(ctx, asOf)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "2024-01-15", due[0].DueDate.Format("2006-01-02"))
	assert.Equal(t, "2024-02-15", due[1].DueDate.Format("2006-01-02"))

	// Settled records drop off the worklist
	_, err = env.ledger.MarkOutcome(ctx, due[0].ID.String(), domain.MarkOutcomeRequest{Status: "completed"})
	require.NoError(t, err)

	due, err = env.ledger.PendingDue(ctx, asOf)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "2024-02-15", due[0].DueDate.Format("2006-01-02"))
}
