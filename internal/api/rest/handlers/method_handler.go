package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/internal/service"
	"github.com/kinderpay/billing-service/pkg/logger"
)

// MethodHandler serves the payment method vault endpoints. Responses
// only ever carry the redacted instrument form.
type MethodHandler struct {
	service service.VaultService
	log     *logger.Logger
}

// NewMethodHandler creates a new payment method handler
func NewMethodHandler(svc service.VaultService, log *logger.Logger) *MethodHandler {
	return &MethodHandler{
		service: svc,
		log:     log,
	}
}

// AddCard validates and stores a card
func (h *MethodHandler) AddCard(c *gin.Context) {
	var req domain.AddCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	method, err := h.service.AddCard(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to add card")
		return
	}

	h.log.Info("Added card with ID: %s", method.ID)
	c.JSON(http.StatusCreated, method)
}

// AddBankAccount validates and stores a standing order
func (h *MethodHandler) AddBankAccount(c *gin.Context) {
	var req domain.AddBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	method, err := h.service.AddBankAccount(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to add bank account")
		return
	}

	h.log.Info("Added bank account with ID: %s", method.ID)
	c.JSON(http.StatusCreated, method)
}

// SetDefault makes a method the customer's default for its kind
func (h *MethodHandler) SetDefault(c *gin.Context) {
	id := c.Param("id")

	method, err := h.service.SetDefault(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to set default method")
		return
	}

	c.JSON(http.StatusOK, method)
}

// ListMethods returns the customer's active methods, default first
func (h *MethodHandler) ListMethods(c *gin.Context) {
	customerID := c.Param("id")

	methods, err := h.service.ListActive(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, err, "Failed to list payment methods")
		return
	}

	c.JSON(http.StatusOK, methods)
}

// DeactivateMethod removes a method from use. The row survives for
// the audit trail.
func (h *MethodHandler) DeactivateMethod(c *gin.Context) {
	id := c.Param("id")

	method, err := h.service.Deactivate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to deactivate method")
		return
	}

	h.log.Info("Deactivated payment method with ID: %s", id)
	c.JSON(http.StatusOK, method)
}
