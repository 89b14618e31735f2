package domain

import (
	"time"

	"github.com/google/uuid"
)

// CustomerStatus lifecycle status of a customer
type CustomerStatus string

const (
	CustomerStatusActive   CustomerStatus = "active"
	CustomerStatusInactive CustomerStatus = "inactive"
)

// Customer is the anchor entity every payment method, agreement and
// ledger record references. Customers are deactivated, never deleted.
type Customer struct {
	ID         uuid.UUID      `json:"id"`
	ParentName string         `json:"parent_name"`
	Phone      string         `json:"phone"`
	Email      string         `json:"email,omitempty"`
	ChildName  string         `json:"child_name"`
	ChildAge   string         `json:"child_age,omitempty"`
	Allergies  string         `json:"allergies,omitempty"`
	Notes      string         `json:"notes,omitempty"`
	Status     CustomerStatus `json:"status"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// IsActive reports whether the customer may be billed
func (c Customer) IsActive() bool {
	return c.Status == CustomerStatusActive
}

// RegisterCustomerRequest is the payload for customer registration
type RegisterCustomerRequest struct {
	ParentName string `json:"parent_name" binding:"required"`
	Phone      string `json:"phone" binding:"required"`
	ChildName  string `json:"child_name" binding:"required"`
	Email      string `json:"email,omitempty" binding:"omitempty,email"`
	ChildAge   string `json:"child_age,omitempty"`
	Allergies  string `json:"allergies,omitempty"`
	Notes      string `json:"notes,omitempty"`
}
