package validation

import (
	"errors"
	"testing"
	"time"

	"github.com/kinderpay/billing-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)

func TestValidateCard(t *testing.T) {
	tests := []struct {
		name        string
		number      string
		expiryMonth string
		expiryYear  string
		wantNetwork string
		wantErr     bool
	}{
		{
			name:        "valid visa",
			number:      "4532015112830366",
			expiryMonth: "12",
			expiryYear:  "2030",
			wantNetwork: NetworkVisa,
		},
		{
			name:        "valid visa with spaces and dashes",
			number:      "4532-0151-1283-0366",
			expiryMonth: "12",
			expiryYear:  "2030",
			wantNetwork: NetworkVisa,
		},
		{
			name:        "valid mastercard",
			number:      "5425233430109903",
			expiryMonth: "6",
			expiryYear:  "2031",
			wantNetwork: NetworkMastercard,
		},
		{
			name:        "two digit expiry year",
			number:      "4532015112830366",
			expiryMonth: "12",
			expiryYear:  "30",
			wantNetwork: NetworkVisa,
		},
		{
			name:        "luhn failure",
			number:      "4532015112830367",
			expiryMonth: "12",
			expiryYear:  "2030",
			wantErr:     true,
		},
		{
			name:        "too short",
			number:      "1234",
			expiryMonth: "12",
			expiryYear:  "2030",
			wantErr:     true,
		},
		{
			name:        "no digits at all",
			number:      "abcd",
			expiryMonth: "12",
			expiryYear:  "2030",
			wantErr:     true,
		},
		{
			name:        "expired last year",
			number:      "4532015112830366",
			expiryMonth: "12",
			expiryYear:  "2023",
			wantErr:     true,
		},
		{
			name:        "expired earlier this year",
			number:      "4532015112830366",
			expiryMonth: "5",
			expiryYear:  "2024",
			wantErr:     true,
		},
		{
			name:        "expires in current month is still valid",
			number:      "4532015112830366",
			expiryMonth: "6",
			expiryYear:  "2024",
			wantNetwork: NetworkVisa,
		},
		{
			name:        "invalid month",
			number:      "4532015112830366",
			expiryMonth: "13",
			expiryYear:  "2030",
			wantErr:     true,
		},
		{
			name:        "non numeric year",
			number:      "4532015112830366",
			expiryMonth: "12",
			expiryYear:  "20xx",
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			network, err := ValidateCard(tt.number, tt.expiryMonth, tt.expiryYear, testNow)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrValidationFailed))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantNetwork, network)
		})
	}
}

func TestValidateCardCollectsAllFailures(t *testing.T) {
	_, err := ValidateCard("1234", "13", "bad", testNow)
	require.Error(t, err)

	var errs domain.ValidationErrors
	require.True(t, errors.As(err, &errs))
	assert.Len(t, errs, 3)
}

func TestValidateCVV(t *testing.T) {
	assert.NoError(t, ValidateCVV("123"))
	assert.NoError(t, ValidateCVV("1234"))
	assert.Error(t, ValidateCVV("12"))
	assert.Error(t, ValidateCVV("12345"))
	assert.Error(t, ValidateCVV("12a"))
	assert.Error(t, ValidateCVV(""))
}

func TestDetectNetwork(t *testing.T) {
	tests := []struct {
		number string
		want   string
	}{
		{"4532015112830366", NetworkVisa},
		{"5425233430109903", NetworkMastercard},
		{"2221000000000009", NetworkMastercard},
		{"378282246310005", NetworkAmex},
		{"36227206271667", NetworkDiners},
		{"6011111111111117", NetworkDiscover},
		{"9999999999999999", NetworkUnknown},
		{"", NetworkUnknown},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectNetwork(tt.number), "number %q", tt.number)
	}
}

func TestLast4(t *testing.T) {
	assert.Equal(t, "0366", Last4("4532015112830366"))
	assert.Equal(t, "0366", Last4("4532-0151-1283-0366"))
	assert.Equal(t, "123", Last4("123"))
}
