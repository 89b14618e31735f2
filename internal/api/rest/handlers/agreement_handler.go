package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/internal/service"
	"github.com/kinderpay/billing-service/pkg/logger"
)

// AgreementHandler serves the recurring agreement endpoints
type AgreementHandler struct {
	service service.SchedulerService
	log     *logger.Logger
}

// NewAgreementHandler creates a new agreement handler
func NewAgreementHandler(svc service.SchedulerService, log *logger.Logger) *AgreementHandler {
	return &AgreementHandler{
		service: svc,
		log:     log,
	}
}

// CreateAgreement creates an active agreement with its first pending
// ledger record
func (h *AgreementHandler) CreateAgreement(c *gin.Context) {
	var req domain.CreateAgreementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warn("Invalid request: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	agreement, err := h.service.CreateAgreement(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to create agreement")
		return
	}

	h.log.Info("Created agreement with ID: %s", agreement.ID)
	c.JSON(http.StatusCreated, agreement)
}

// GetAgreement returns an agreement by ID
func (h *AgreementHandler) GetAgreement(c *gin.Context) {
	id := c.Param("id")

	agreement, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get agreement")
		return
	}

	c.JSON(http.StatusOK, agreement)
}

// ListAgreements returns the customer's agreements
func (h *AgreementHandler) ListAgreements(c *gin.Context) {
	customerID := c.Param("id")

	agreements, err := h.service.ListByCustomer(c.Request.Context(), customerID)
	if err != nil {
		respondError(c, err, "Failed to list agreements")
		return
	}

	c.JSON(http.StatusOK, agreements)
}

// AdvanceAgreement rolls an active agreement one cycle forward and
// returns the new pending ledger record. When the next cycle would
// pass the end date the agreement completes and no record is created.
func (h *AgreementHandler) AdvanceAgreement(c *gin.Context) {
	id := c.Param("id")

	record, err := h.service.RollForward(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrAgreementCompleted) {
			h.log.Info("Agreement %s completed during advance", id)
			c.JSON(http.StatusOK, gin.H{
				"status":  string(domain.AgreementStatusCompleted),
				"message": "Agreement reached its end date, no further cycles",
			})
			return
		}
		respondError(c, err, "Failed to advance agreement")
		return
	}

	c.JSON(http.StatusCreated, record)
}

// PauseAgreement freezes an active agreement
func (h *AgreementHandler) PauseAgreement(c *gin.Context) {
	h.transition(c, h.service.Pause, "Failed to pause agreement")
}

// ResumeAgreement reactivates a paused agreement
func (h *AgreementHandler) ResumeAgreement(c *gin.Context) {
	h.transition(c, h.service.Resume, "Failed to resume agreement")
}

// CancelAgreement terminates an agreement
func (h *AgreementHandler) CancelAgreement(c *gin.Context) {
	h.transition(c, h.service.Cancel, "Failed to cancel agreement")
}

func (h *AgreementHandler) transition(c *gin.Context, op func(ctx context.Context, id string) (domain.Agreement, error), fallback string) {
	id := c.Param("id")

	agreement, err := op(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, fallback)
		return
	}

	h.log.Info("Agreement %s is now %s", id, agreement.Status)
	c.JSON(http.StatusOK, agreement)
}
