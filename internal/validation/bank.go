package validation

import (
	"fmt"

	"github.com/kinderpay/billing-service/internal/domain"
)

// Length bounds for bank account identifiers. There is no checksum for
// bank accounts, only format checks.
const (
	minBankCodeDigits   = 2
	maxBankCodeDigits   = 3
	minBranchCodeDigits = 3
	maxBranchCodeDigits = 4
	minAccountDigits    = 1
	maxAccountDigits    = 12
)

// ValidateBankAccount checks the identifiers of a bank standing order.
// Each field must be non-empty, numeric and within its length bounds.
func ValidateBankAccount(bankCode, branchCode, accountNumber string) error {
	var errs domain.ValidationErrors

	checkNumericField(&errs, "bank_code", bankCode, minBankCodeDigits, maxBankCodeDigits)
	checkNumericField(&errs, "branch_code", branchCode, minBranchCodeDigits, maxBranchCodeDigits)
	checkNumericField(&errs, "account_number", accountNumber, minAccountDigits, maxAccountDigits)

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func checkNumericField(errs *domain.ValidationErrors, field, value string, minLen, maxLen int) {
	if value == "" {
		errs.Add(field, "must not be empty")
		return
	}
	if !isDigits(value) {
		errs.Add(field, "must contain digits only")
		return
	}
	if len(value) < minLen || len(value) > maxLen {
		errs.Add(field, fmt.Sprintf("must be %d-%d digits", minLen, maxLen))
	}
}
