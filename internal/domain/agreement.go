package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AgreementStatus lifecycle state of a recurring agreement
type AgreementStatus string

const (
	AgreementStatusActive    AgreementStatus = "active"
	AgreementStatusPaused    AgreementStatus = "paused"
	AgreementStatusCancelled AgreementStatus = "cancelled"
	AgreementStatusCompleted AgreementStatus = "completed"
)

// Frequency billing cycle length of an agreement. Only monthly is
// defined today, the field exists so new cycles can be added without
// a schema change.
type Frequency string

const (
	FrequencyMonthly Frequency = "monthly"
)

// Agreement is a recurring billing arrangement between a customer and
// one of their payment methods. NextDueDate always equals StartDate
// advanced by whole frequency units and is meaningless once the
// agreement reaches a terminal state.
type Agreement struct {
	ID              uuid.UUID       `json:"id"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	PaymentMethodID uuid.UUID       `json:"payment_method_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Frequency       Frequency       `json:"frequency"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         *time.Time      `json:"end_date,omitempty"`
	NextDueDate     time.Time       `json:"next_due_date"`
	Status          AgreementStatus `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsTerminal reports whether the agreement can never advance again
func (a Agreement) IsTerminal() bool {
	return a.Status == AgreementStatusCancelled || a.Status == AgreementStatusCompleted
}

// CreateAgreementRequest is the payload for creating an agreement.
// Amount defaults to the configured monthly fee when omitted.
type CreateAgreementRequest struct {
	CustomerID      string `json:"customer_id" binding:"required,uuid4"`
	PaymentMethodID string `json:"payment_method_id" binding:"required,uuid4"`
	StartDate       string `json:"start_date" binding:"required,billingdate"`
	Amount          string `json:"amount,omitempty"`
	Frequency       string `json:"frequency,omitempty"`
	EndDate         string `json:"end_date,omitempty" binding:"omitempty,billingdate"`
}
