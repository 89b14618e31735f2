// Package schedule owns the due-date arithmetic for recurring
// agreements.
package schedule

import (
	"fmt"
	"time"

	"github.com/kinderpay/billing-service/internal/domain"
)

// DateLayout is the wire format for billing dates
const DateLayout = "2006-01-02"

// Advance moves a due date forward by one whole frequency unit. For
// monthly billing the day-of-month is preserved; when the target month
// is shorter than the source day (Jan 31 -> Feb) the result clamps to
// the last day of the target month instead of rolling into the next.
func Advance(date time.Time, frequency domain.Frequency) (time.Time, error) {
	switch frequency {
	case domain.FrequencyMonthly:
		return addMonthClamped(date), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedFrequency, frequency)
	}
}

// addMonthClamped adds one calendar month. time.AddDate would overflow
// Jan 31 into Mar 2/3, so the target month and its length are computed
// explicitly.
func addMonthClamped(date time.Time) time.Time {
	year, month, day := date.Date()

	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, date.Location())
	lastDay := daysInMonth(firstOfNext.Year(), firstOfNext.Month())
	if day > lastDay {
		day = lastDay
	}

	return time.Date(firstOfNext.Year(), firstOfNext.Month(), day, 0, 0, 0, 0, date.Location())
}

// daysInMonth returns the number of days in the given month. Day 0 of
// the following month normalizes to the last day of this one.
func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParseDate parses a YYYY-MM-DD billing date
func ParseDate(value string) (time.Time, error) {
	date, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", domain.ErrInvalidDateRange, value)
	}
	return date, nil
}

// CycleLabel builds the human-readable cycle description put on every
// ledger record, e.g. "Monthly fee - 02/2024"
func CycleLabel(dueDate time.Time) string {
	return fmt.Sprintf("Monthly fee - %02d/%d", int(dueDate.Month()), dueDate.Year())
}
