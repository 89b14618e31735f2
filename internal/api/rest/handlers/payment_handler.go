package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/internal/schedule"
	"github.com/kinderpay/billing-service/internal/service"
	"github.com/kinderpay/billing-service/pkg/logger"
)

// PaymentHandler serves the payment ledger endpoints
type PaymentHandler struct {
	service service.LedgerService
	log     *logger.Logger
}

// NewPaymentHandler creates a new payment ledger handler
func NewPaymentHandler(svc service.LedgerService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: svc,
		log:     log,
	}
}

// GetPayment returns a ledger record by ID
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	id := c.Param("id")

	record, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get payment record")
		return
	}

	c.JSON(http.StatusOK, record)
}

// GetHistory returns the customer's most recent ledger records,
// newest first. An optional limit query parameter caps the page size.
func (h *PaymentHandler) GetHistory(c *gin.Context) {
	customerID := c.Param("id")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = parsed
	}

	records, err := h.service.History(c.Request.Context(), customerID, limit)
	if err != nil {
		respondError(c, err, "Failed to get payment history")
		return
	}

	c.JSON(http.StatusOK, records)
}

// GetPendingDue returns pending records due on or before the as_of
// query date (today by default), most overdue first. This is the
// collection worklist for the external processor.
func (h *PaymentHandler) GetPendingDue(c *gin.Context) {
	asOf := time.Now()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := schedule.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "as_of must be a YYYY-MM-DD date"})
			return
		}
		asOf = parsed
	}

	records, err := h.service.PendingDue(c.Request.Context(), asOf)
	if err != nil {
		respondError(c, err, "Failed to list pending payments")
		return
	}

	c.JSON(http.StatusOK, records)
}

// MarkOutcome settles a pending record as completed or failed
func (h *PaymentHandler) MarkOutcome(c *gin.Context) {
	id := c.Param("id")

	var req domain.MarkOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.service.MarkOutcome(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err, "Failed to settle payment record")
		return
	}

	h.log.Info("Payment record %s settled as %s", id, record.Status)
	c.JSON(http.StatusOK, record)
}
