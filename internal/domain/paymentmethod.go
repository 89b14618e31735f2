package domain

import (
	"time"

	"github.com/google/uuid"
)

// MethodKind discriminates the two supported payment instruments
type MethodKind string

const (
	MethodKindCard              MethodKind = "card"
	MethodKindBankStandingOrder MethodKind = "bank_standing_order"
)

// PaymentMethod is a tokenized payment instrument owned by a customer.
// Only the redacted form of card and account numbers is ever stored;
// the full number and CVV exist transiently during validation and are
// never persisted.
type PaymentMethod struct {
	ID         uuid.UUID  `json:"id"`
	CustomerID uuid.UUID  `json:"customer_id"`
	Kind       MethodKind `json:"kind"`

	// Card fields
	CardLast4       string `json:"card_last4,omitempty"`
	CardNetwork     string `json:"card_network,omitempty"`
	CardHolderName  string `json:"card_holder_name,omitempty"`
	CardExpiryMonth int    `json:"card_expiry_month,omitempty"`
	CardExpiryYear  int    `json:"card_expiry_year,omitempty"`

	// Bank standing order fields
	BankCode          string `json:"bank_code,omitempty"`
	BranchCode        string `json:"branch_code,omitempty"`
	AccountLast4      string `json:"account_last4,omitempty"`
	AccountHolderName string `json:"account_holder_name,omitempty"`

	IsDefault bool      `json:"is_default"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AddCardRequest is the payload for registering a card. The full card
// number and CVV only live in this request.
type AddCardRequest struct {
	CustomerID     string `json:"customer_id" binding:"required,uuid4"`
	CardNumber     string `json:"card_number" binding:"required"`
	CardHolderName string `json:"card_holder_name" binding:"required"`
	ExpiryMonth    string `json:"expiry_month" binding:"required"`
	ExpiryYear     string `json:"expiry_year" binding:"required"`
	CVV            string `json:"cvv,omitempty"`
	IsDefault      bool   `json:"is_default,omitempty"`
}

// AddBankAccountRequest is the payload for registering a standing order
type AddBankAccountRequest struct {
	CustomerID        string `json:"customer_id" binding:"required,uuid4"`
	BankCode          string `json:"bank_code" binding:"required"`
	BranchCode        string `json:"branch_code" binding:"required"`
	AccountNumber     string `json:"account_number" binding:"required"`
	AccountHolderName string `json:"account_holder_name" binding:"required"`
	IsDefault         bool   `json:"is_default,omitempty"`
}
