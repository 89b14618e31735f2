// Package validation holds the pure checks run before a payment
// instrument is accepted into the vault. Nothing here touches storage.
package validation

import (
	"strconv"
	"strings"
	"time"

	"github.com/kinderpay/billing-service/internal/domain"
)

const (
	minCardDigits = 12
	maxCardDigits = 19
)

// Card networks reported by DetectNetwork. Detection failure is not a
// validation failure, it only affects the label.
const (
	NetworkVisa       = "Visa"
	NetworkMastercard = "Mastercard"
	NetworkAmex       = "American Express"
	NetworkDiners     = "Diners Club"
	NetworkDiscover   = "Discover"
	NetworkIsracard   = "Isracard"
	NetworkUnknown    = "unknown"
)

// ValidateCard checks a card number and expiry against the given
// processing date. It returns the detected network on success and
// domain.ValidationErrors describing every failed check otherwise.
func ValidateCard(number, expiryMonth, expiryYear string, now time.Time) (string, error) {
	var errs domain.ValidationErrors

	digits := stripNonDigits(number)
	switch {
	case digits == "":
		errs.Add("card_number", "card number must contain digits")
	case len(digits) < minCardDigits || len(digits) > maxCardDigits:
		errs.Add("card_number", "card number length must be 12-19 digits")
	case !luhnCheck(digits):
		errs.Add("card_number", "card number failed checksum")
	}

	month, err := strconv.Atoi(expiryMonth)
	if err != nil || month < 1 || month > 12 {
		errs.Add("expiry_month", "expiry month must be 1-12")
	}

	year, err := strconv.Atoi(expiryYear)
	if err != nil {
		errs.Add("expiry_year", "expiry year must be numeric")
	} else {
		// Two-digit years are taken as 20xx
		if year < 100 {
			year += 2000
		}

		// A card is usable through the last day of its expiry month
		if month >= 1 && month <= 12 {
			expiry := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
			currentMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
			if expiry.Before(currentMonth) {
				errs.Add("expiry_year", "card is expired")
			}
		}
	}

	if errs.HasErrors() {
		return "", errs
	}

	return DetectNetwork(digits), nil
}

// ValidateCVV checks the transient CVV when one is supplied. The value
// is never stored anywhere past this call.
func ValidateCVV(cvv string) error {
	var errs domain.ValidationErrors
	if !isDigits(cvv) || (len(cvv) != 3 && len(cvv) != 4) {
		errs.Add("cvv", "cvv must be 3 or 4 digits")
		return errs
	}
	return nil
}

// luhnCheck validates a card number using the Luhn algorithm: every
// second digit from the right is doubled, digits above 9 reduced by 9,
// and the total must divide by 10.
func luhnCheck(digits string) bool {
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// DetectNetwork detects the card network from leading-digit prefixes.
// Returns NetworkUnknown when no range matches.
func DetectNetwork(number string) string {
	digits := stripNonDigits(number)
	if digits == "" {
		return NetworkUnknown
	}

	if digits[0] == '4' {
		return NetworkVisa
	}

	if len(digits) >= 2 {
		prefix2, _ := strconv.Atoi(digits[:2])
		if prefix2 >= 51 && prefix2 <= 55 {
			return NetworkMastercard
		}
		switch digits[:2] {
		case "34", "37":
			return NetworkAmex
		case "36", "38":
			return NetworkDiners
		}
	}

	if len(digits) >= 4 {
		prefix4, _ := strconv.Atoi(digits[:4])
		// The 2-series Mastercard range
		if prefix4 >= 2221 && prefix4 <= 2720 {
			return NetworkMastercard
		}
		if prefix4 == 6011 || prefix4 == 6221 {
			return NetworkDiscover
		}
	}

	if len(digits) >= 2 {
		switch digits[:2] {
		case "45", "47", "52", "53":
			return NetworkIsracard
		}
	}

	return NetworkUnknown
}

// Last4 returns the last four digits of a card or account number for
// the redacted stored form
func Last4(number string) string {
	digits := stripNonDigits(number)
	if len(digits) < 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
