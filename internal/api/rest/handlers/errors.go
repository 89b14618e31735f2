package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/kinderpay/billing-service/internal/repository"
)

// respondError maps service errors to HTTP responses. Validation
// failures carry their per-field details in the body so the caller can
// surface them; everything unexpected collapses to a 500 with the
// fallback message.
func respondError(c *gin.Context, err error, fallback string) {
	var validationErrs domain.ValidationErrors
	if errors.As(err, &validationErrs) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "Validation failed",
			"fields": validationErrs,
		})
		return
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, repository.ErrInvalidData):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
	case errors.Is(err, repository.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": "Already exists"})
	case errors.Is(err, domain.ErrMissingField):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidDateRange):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrUnsupportedFrequency):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidPaymentMethod):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Payment method is missing, inactive or belongs to another customer"})
	case errors.Is(err, domain.ErrCustomerInactive):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Customer is inactive"})
	case errors.Is(err, domain.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "Operation not allowed in the current state"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
