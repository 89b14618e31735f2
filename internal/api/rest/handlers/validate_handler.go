package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kinderpay/billing-service/internal/validation"
	"github.com/kinderpay/billing-service/pkg/logger"
)

// ValidateCardRequest is the payload for standalone card validation
type ValidateCardRequest struct {
	CardNumber  string `json:"card_number" binding:"required"`
	ExpiryMonth string `json:"expiry_month" binding:"required"`
	ExpiryYear  string `json:"expiry_year" binding:"required"`
	CVV         string `json:"cvv,omitempty"`
}

// ValidateBankAccountRequest is the payload for standalone bank
// account validation
type ValidateBankAccountRequest struct {
	BankCode      string `json:"bank_code" binding:"required"`
	BranchCode    string `json:"branch_code" binding:"required"`
	AccountNumber string `json:"account_number" binding:"required"`
}

// ValidateHandler exposes the validation checks without touching
// storage. Nothing from these requests is persisted.
type ValidateHandler struct {
	log *logger.Logger
}

// NewValidateHandler creates a new validation handler
func NewValidateHandler(log *logger.Logger) *ValidateHandler {
	return &ValidateHandler{log: log}
}

// ValidateCard checks a card number, expiry and optional CVV
func (h *ValidateHandler) ValidateCard(c *gin.Context) {
	var req ValidateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	network, err := validation.ValidateCard(req.CardNumber, req.ExpiryMonth, req.ExpiryYear, time.Now())
	if err != nil {
		respondError(c, err, "Card validation failed")
		return
	}

	if req.CVV != "" {
		if err := validation.ValidateCVV(req.CVV); err != nil {
			respondError(c, err, "Card validation failed")
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":   true,
		"network": network,
		"last4":   validation.Last4(req.CardNumber),
	})
}

// ValidateBankAccount checks a standing order's bank account fields
func (h *ValidateHandler) ValidateBankAccount(c *gin.Context) {
	var req ValidateBankAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := validation.ValidateBankAccount(req.BankCode, req.BranchCode, req.AccountNumber); err != nil {
		respondError(c, err, "Bank account validation failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"last4": validation.Last4(req.AccountNumber),
	})
}
