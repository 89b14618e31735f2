package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kinderpay/billing-service/internal/domain"
)

// ConfigHandler exposes the billing setup so clients can render the
// fee and the accepted instruments without hardcoding them
type ConfigHandler struct {
	billing domain.BillingConfig
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(billing domain.BillingConfig) *ConfigHandler {
	return &ConfigHandler{billing: billing}
}

// GetConfig returns the billing configuration
func (h *ConfigHandler) GetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, h.billing)
}
