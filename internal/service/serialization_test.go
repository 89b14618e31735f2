package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rendezvousAgreementRepo holds the first two GetByID calls at a
// barrier so both callers read the same snapshot before either can
// take the customer lock. Later calls, the re-reads under the lock,
// pass straight through.
type rendezvousAgreementRepo struct {
	repository.AgreementRepository
	reads   atomic.Int32
	barrier *sync.WaitGroup
}

func (r *rendezvousAgreementRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Agreement, error) {
	if r.reads.Add(1) <= 2 {
		r.barrier.Done()
		r.barrier.Wait()
	}
	return r.AgreementRepository.GetByID(ctx, id)
}

func newRendezvousEnv(t *testing.T) (*testEnv, *rendezvousAgreementRepo) {
	t.Helper()

	gate := &rendezvousAgreementRepo{}
	gate.barrier = &sync.WaitGroup{}
	gate.barrier.Add(2)

	env := newTestEnvWith(t, func(r repository.AgreementRepository) repository.AgreementRepository {
		gate.AgreementRepository = r
		return gate
	})
	return env, gate
}

func TestConcurrentRollForwardBillsDistinctCycles(t *testing.T) {
	env, _ := newRendezvousEnv(t)
	ctx := context.Background()

	agreement := env.createAgreement(t, env.agreementRequest(t, "2024-01-15"))

	var wg sync.WaitGroup
	results := make([]domain.PaymentRecord, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = env.scheduler.RollForward(ctx, agreement.ID.String())
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	// Both calls read the same snapshot before locking; the second must
	// still advance to the cycle after the first, never bill it again
	assert.NotEqual(t, results[0].DueDate, results[1].DueDate)

	history, err := env.ledger.History(ctx, agreement.CustomerID.String(), 0)
	require.NoError(t, err)
	require.Len(t, history, 3)

	seen := make(map[string]bool)
	for _, record := range history {
		due := record.DueDate.Format("2006-01-02")
		assert.False(t, seen[due], "cycle %s billed twice", due)
		seen[due] = true
	}
	assert.True(t, seen["2024-01-15"])
	assert.True(t, seen["2024-02-15"])
	assert.True(t, seen["2024-03-15"])

	current, err := env.scheduler.GetByID(ctx, agreement.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", current.NextDueDate.Format("2006-01-02"))
}

func TestConcurrentCancelAndPauseSettlesCancelled(t *testing.T) {
	env, _ := newRendezvousEnv(t)
	ctx := context.Background()

	agreement := env.createAgreement(t, env.agreementRequest(t, "2024-01-15"))

	var wg sync.WaitGroup
	var cancelErr, pauseErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, cancelErr = env.scheduler.Cancel(ctx, agreement.ID.String())
	}()
	go func() {
		defer wg.Done()
		_, pauseErr = env.scheduler.Pause(ctx, agreement.ID.String())
	}()
	wg.Wait()

	require.NoError(t, cancelErr)
	// Pause either wins the lock first and succeeds, or finds the
	// agreement already cancelled
	if pauseErr != nil {
		assert.ErrorIs(t, pauseErr, domain.ErrInvalidState)
	}

	// Cancelled is terminal; a pause racing the cancel must never leave
	// the agreement paused
	current, err := env.scheduler.GetByID(ctx, agreement.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.AgreementStatusCancelled, current.Status)
}

func TestConcurrentSetDefaultKeepsSingleDefault(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	customer := env.registerCustomer(t)
	first := env.addCard(t, customer.ID.String())
	second, err := env.vault.AddCard(ctx, domain.AddCardRequest{
		CustomerID:     customer.ID.String(),
		CardNumber:     "371449635398431",
		CardHolderName: "Dana Levi",
		ExpiryMonth:    "06",
		ExpiryYear:     "2031",
		CVV:            "1234",
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{first.ID.String(), second.ID.String()} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = env.vault.SetDefault(ctx, id)
		}(i, id)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	methods, err := env.vault.ListActive(ctx, customer.ID.String())
	require.NoError(t, err)
	require.Len(t, methods, 2)

	defaults := 0
	for _, method := range methods {
		if method.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults, "exactly one default per kind")
}
