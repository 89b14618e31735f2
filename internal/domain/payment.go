package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus status of a ledger record
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// PaymentRecord is one scheduled charge in the ledger. Records are
// created pending by the scheduler and never deleted; the only later
// mutation is the status set by the external payment processor.
type PaymentRecord struct {
	ID              uuid.UUID       `json:"id"`
	CustomerID      uuid.UUID       `json:"customer_id"`
	PaymentMethodID uuid.UUID       `json:"payment_method_id"`
	AgreementID     uuid.UUID       `json:"agreement_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Status          PaymentStatus   `json:"status"`
	DueDate         time.Time       `json:"due_date"`
	Description     string          `json:"description,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// MarkOutcomeRequest is the external processor's payload for settling
// a pending record
type MarkOutcomeRequest struct {
	Status string `json:"status" binding:"required,oneof=completed failed"`
}
