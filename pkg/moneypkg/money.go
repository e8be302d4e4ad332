// Package moneypkg provides parsing and validation of monetary amounts.
//
// Amounts are exact decimals and are never converted to binary floating point.
// Only plain notation is accepted ("-12.34"), bounded to MaxIntegerDigits
// before and MaxFractionDigits after the point.
package moneypkg

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Amount bounds.
const (
	MaxIntegerDigits  = 15
	MaxFractionDigits = 4
)

// Errors returned by Parse and CheckRange.
var (
	ErrMalformedAmount  = errors.New("amount is not a plain decimal number")
	ErrAmountOutOfRange = errors.New("amount has too many digits")
)

var plainDecimal = regexp.MustCompile(`^-?([0-9]+)(?:\.([0-9]+))?$`)

// Parse parses a plain decimal string such as "100.00".
//
// Exponent notation is rejected, as is anything outside the amount bounds.
func Parse(s string) (decimal.Decimal, error) {
	m := plainDecimal.FindStringSubmatch(s)
	if m == nil {
		return decimal.Zero, ErrMalformedAmount
	}

	if len(strings.TrimLeft(m[1], "0")) > MaxIntegerDigits || len(m[2]) > MaxFractionDigits {
		return decimal.Zero, ErrAmountOutOfRange
	}

	return decimal.NewFromString(s)
}

// CheckRange reports ErrAmountOutOfRange when amount does not fit the amount bounds.
//
// It works from the coefficient length and exponent, so huge exponents are
// rejected without being expanded.
func CheckRange(amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}

	digits := int64(amount.Abs().NumDigits())
	exp := int64(amount.Exponent())

	// |amount| < 10^(digits+exp)
	if digits+exp > MaxIntegerDigits {
		return ErrAmountOutOfRange
	}

	// Trailing zeros of the coefficient may cover the excess scale: 1.50000 is fine, 0.00001 is not.
	if excess := -exp - MaxFractionDigits; excess > 0 {
		if excess >= digits || !amount.Equal(amount.Truncate(MaxFractionDigits)) {
			return ErrAmountOutOfRange
		}
	}

	return nil
}

// IsPositive reports whether amount is strictly greater than zero.
func IsPositive(amount decimal.Decimal) bool {
	return amount.GreaterThan(decimal.Zero)
}

// ValidAmount validates whether the field holds a positive decimal amount.
var ValidAmount validator.Func = func(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	d, err := Parse(s)
	if err != nil {
		return false
	}

	return IsPositive(d)
}

// ValidNonNegativeAmount validates whether the field holds a decimal amount >= 0.
// Empty values are accepted and treated as zero.
var ValidNonNegativeAmount validator.Func = func(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	if s == "" {
		return true
	}

	d, err := Parse(s)
	if err != nil {
		return false
	}

	return !d.IsNegative()
}
