// Package accnumpkg assigns and validates human-facing account numbers.
//
// An account number is a two-letter country code followed by 14 decimal digits,
// for example LT00000000000001.
package accnumpkg

import (
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/go-petr/pet-ledger/pkg/randompkg"
)

// DigitsLen is the number of digits following the country code.
const DigitsLen = 14

var (
	pattern     = regexp.MustCompile(`^[A-Z]{2}[0-9]{14}$`)
	countryCode = regexp.MustCompile(`^[A-Z]{2}$`)
)

// ValidCountryCode reports whether cc can prefix account numbers.
func ValidCountryCode(cc string) bool {
	return countryCode.MatchString(cc)
}

// Generate returns a new random account number for the country code.
func Generate(countryCode string) string {
	return randompkg.AccountNumber(countryCode)
}

// Valid reports whether s is a well-formed account number.
func Valid(s string) bool {
	return pattern.MatchString(s)
}

// ValidAccountNumber validates whether the field holds a well-formed account number.
var ValidAccountNumber validator.Func = func(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return Valid(s)
	}

	return false
}
