package domain

import "github.com/shopspring/decimal"

// BillingConfig is the fixed billing setup returned by the config
// query: the monthly fee every agreement defaults to, its currency
// and the instrument kinds and frequencies the service accepts.
type BillingConfig struct {
	MonthlyFee     decimal.Decimal `json:"monthly_fee"`
	Currency       string          `json:"currency"`
	InstrumentKind []MethodKind    `json:"supported_instrument_kinds"`
	Frequencies    []Frequency     `json:"supported_frequencies"`
}

// DefaultBillingConfig returns the standard monthly fee configuration
func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		MonthlyFee:     decimal.NewFromInt(3500),
		Currency:       "ILS",
		InstrumentKind: []MethodKind{MethodKindCard, MethodKindBankStandingOrder},
		Frequencies:    []Frequency{FrequencyMonthly},
	}
}
