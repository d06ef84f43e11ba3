package domain

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

var amountTolerance = decimal.RequireFromString("0.01")

// AmountTolerance is the currency epsilon used when reconciling milestone
// sums against a contract total.
func AmountTolerance() decimal.Decimal { return amountTolerance }

// NormalizeCurrency upper-cases and trims a currency code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCurrency checks that code is a three-letter ISO style code.
func ValidateCurrency(code string) error {
	if !currencyPattern.MatchString(code) {
		return Errorf(ErrValidation, "currency %q must be a 3-letter code (e.g. USD)", code)
	}
	return nil
}

// ValidatePositiveAmount rejects zero and negative amounts.
func ValidatePositiveAmount(field string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return Errorf(ErrValidation, "%s must be greater than 0 (got %s)", field, amount.StringFixed(2))
	}
	return nil
}

// WithinTolerance reports whether |a - b| < AmountTolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(amountTolerance)
}
