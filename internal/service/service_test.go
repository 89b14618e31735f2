package service

import (
	"context"
	"io"
	"testing"

	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/internal/repository"
	"github.com/kinderpay/billing-service/pkg/logger"
	"github.com/stretchr/testify/require"
)

// testEnv wires the full service layer onto in-memory repositories.
// Events and metrics are disabled, every test runs against a clean
// store.
type testEnv struct {
	customers CustomerService
	vault     VaultService
	scheduler SchedulerService
	ledger    LedgerService

	customerRepo  repository.CustomerRepository
	methodRepo    repository.PaymentMethodRepository
	paymentRepo   repository.PaymentRepository
	agreementRepo repository.AgreementRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, func(r repository.AgreementRepository) repository.AgreementRepository {
		return r
	})
}

// newTestEnvWith lets a test wrap the agreement repository, e.g. to
// coordinate goroutines in concurrency tests
func newTestEnvWith(t *testing.T, wrap func(repository.AgreementRepository) repository.AgreementRepository) *testEnv {
	t.Helper()

	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)

	payments := repository.NewInMemoryPaymentRepository(log)
	customerRepo := repository.NewInMemoryCustomerRepository(log)
	methodRepo := repository.NewInMemoryPaymentMethodRepository(log)
	agreementRepo := wrap(repository.NewInMemoryAgreementRepository(payments, log))

	newID := NewUUIDGenerator()
	billing := domain.DefaultBillingConfig()

	return &testEnv{
		customers:     NewCustomerService(customerRepo, newID, log),
		vault:         NewVaultService(methodRepo, customerRepo, newID, log),
		scheduler:     NewSchedulerService(agreementRepo, methodRepo, billing, newID, nil, nil, log),
		ledger:        NewLedgerService(payments, nil, nil, log),
		customerRepo:  customerRepo,
		methodRepo:    methodRepo,
		paymentRepo:   payments,
		agreementRepo: agreementRepo,
	}
}

func (e *testEnv) registerCustomer(t *testing.T) domain.Customer {
	t.Helper()

	customer, err := e.customers.Register(context.Background(), domain.RegisterCustomerRequest{
		ParentName: "Dana Levi",
		Phone:      "050-1234567",
		Email:      "dana@example.com",
		ChildName:  "Noam Levi",
	})
	require.NoError(t, err)
	return customer
}

func (e *testEnv) addCard(t *testing.T, customerID string) domain.PaymentMethod {
	t.Helper()

	method, err := e.vault.AddCard(context.Background(), domain.AddCardRequest{
		CustomerID:     customerID,
		CardNumber:     "4532015112830366",
		CardHolderName: "Dana Levi",
		ExpiryMonth:    "12",
		ExpiryYear:     "2030",
		CVV:            "123",
	})
	require.NoError(t, err)
	return method
}
