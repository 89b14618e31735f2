package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/internal/service"
	"github.com/kinderpay/billing-service/pkg/logger"
)

// CustomerHandler serves the customer registry endpoints
type CustomerHandler struct {
	service service.CustomerService
	log     *logger.Logger
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(svc service.CustomerService, log *logger.Logger) *CustomerHandler {
	return &CustomerHandler{
		service: svc,
		log:     log,
	}
}

// RegisterCustomer creates a new customer
func (h *CustomerHandler) RegisterCustomer(c *gin.Context) {
	var req domain.RegisterCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customer, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to register customer")
		return
	}

	h.log.Info("Registered customer with ID: %s", customer.ID)
	c.JSON(http.StatusCreated, customer)
}

// GetCustomer returns a customer by ID
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	id := c.Param("id")

	customer, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get customer")
		return
	}

	c.JSON(http.StatusOK, customer)
}

// DeactivateCustomer marks a customer inactive. The record is kept.
func (h *CustomerHandler) DeactivateCustomer(c *gin.Context) {
	id := c.Param("id")

	customer, err := h.service.Deactivate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to deactivate customer")
		return
	}

	h.log.Info("Deactivated customer with ID: %s", id)
	c.JSON(http.StatusOK, customer)
}
