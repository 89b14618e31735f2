package service

import "github.com/kinderpay/billing-service/internal/domain"

// requiredField pairs a request field name with its value so services
// can report exactly which required input was absent
type requiredField struct {
	name  string
	value string
}

// requireFields returns a MissingFieldError for the first empty
// required field, in declaration order
func requireFields(fields ...requiredField) error {
	for _, f := range fields {
		if f.value == "" {
			return domain.NewMissingFieldError(f.name)
		}
	}
	return nil
}
