package rest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/internal/repository"
	"github.com/kinderpay/billing-service/internal/service"
	"github.com/kinderpay/billing-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New(logger.ERROR)
	log.SetOutput(io.Discard)

	payments := repository.NewInMemoryPaymentRepository(log)
	customerRepo := repository.NewInMemoryCustomerRepository(log)
	methodRepo := repository.NewInMemoryPaymentMethodRepository(log)
	agreementRepo := repository.NewInMemoryAgreementRepository(payments, log)

	newID := service.NewUUIDGenerator()
	billing := domain.DefaultBillingConfig()

	services := Services{
		Customers: service.NewCustomerService(customerRepo, newID, log),
		Vault:     service.NewVaultService(methodRepo, customerRepo, newID, log),
		Scheduler: service.NewSchedulerService(agreementRepo, methodRepo, billing, newID, nil, nil, log),
		Ledger:    service.NewLedgerService(payments, nil, nil, log),
		Billing:   billing,
	}

	return SetupRouter(services, log, prometheus.NewRegistry())
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestConfigEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/config", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "3500", body["monthly_fee"])
	assert.Equal(t, "ILS", body["currency"])
	assert.ElementsMatch(t, []any{"card", "bank_standing_order"}, body["supported_instrument_kinds"])
	assert.ElementsMatch(t, []any{"monthly"}, body["supported_frequencies"])
}

func TestValidateCardEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/validate/card", gin.H{
		"card_number":  "4532015112830366",
		"expiry_month": "12",
		"expiry_year":  "2030",
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "Visa", body["network"])
	assert.Equal(t, "0366", body["last4"])

	w = doJSON(t, router, http.MethodPost, "/api/v1/validate/card", gin.H{
		"card_number":  "4532015112830367",
		"expiry_month": "12",
		"expiry_year":  "2030",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestValidateBankAccountEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/validate/bank-account", gin.H{
		"bank_code":      "12",
		"branch_code":    "345",
		"account_number": "678901",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "8901", decode(t, w)["last4"])

	w = doJSON(t, router, http.MethodPost, "/api/v1/validate/bank-account", gin.H{
		"bank_code":      "1",
		"branch_code":    "345",
		"account_number": "678901",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

// End to end over HTTP: register, vault a card, open an agreement,
// advance a cycle, settle the record.
func TestBillingLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/customers", gin.H{
		"parent_name": "Dana Levi",
		"phone":       "050-1234567",
		"child_name":  "Noam Levi",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	customerID := decode(t, w)["id"].(string)

	w = doJSON(t, router, http.MethodPost, "/api/v1/payment-methods/cards", gin.H{
		"customer_id":      customerID,
		"card_number":      "4532015112830366",
		"card_holder_name": "Dana Levi",
		"expiry_month":     "12",
		"expiry_year":      "2030",
		"cvv":              "123",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	method := decode(t, w)
	assert.Equal(t, "0366", method["card_last4"])

	w = doJSON(t, router, http.MethodPost, "/api/v1/agreements", gin.H{
		"customer_id":       customerID,
		"payment_method_id": method["id"],
		"start_date":        "2024-01-31",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	agreement := decode(t, w)
	assert.Equal(t, "active", agreement["status"])

	w = doJSON(t, router, http.MethodPost, "/api/v1/agreements/"+agreement["id"].(string)+"/advance", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	record := decode(t, w)
	assert.Equal(t, "pending", record["status"])

	w = doJSON(t, router, http.MethodPut, "/api/v1/payments/"+record["id"].(string)+"/outcome", gin.H{
		"status": "completed",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", decode(t, w)["status"])

	w = doJSON(t, router, http.MethodGet, "/api/v1/customers/"+customerID+"/payments", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var history []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Len(t, history, 2)
}

func TestAgreementNotFoundOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/agreements/00000000-0000-4000-8000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/agreements/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
