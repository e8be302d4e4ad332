// Package web defines common components for a web application.
package web

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

// Response holds the common response type for all APIs.
type Response struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// Error wraps a given err into json frinedly struct.
//
// Storage failures are reported as errorspkg.ErrInternal so driver details never leak.
func Error(err error) Response {
	kind := errorspkg.KindOf(err)
	if kind == errorspkg.KindStorage {
		err = errorspkg.ErrInternal
	}

	return Response{Error: err.Error(), Kind: string(kind)}
}

// StatusCode maps the kind of err to an HTTP status code.
func StatusCode(err error) int {
	switch errorspkg.KindOf(err) {
	case errorspkg.KindInvalidAmount, errorspkg.KindInsufficientFunds:
		return http.StatusBadRequest
	case errorspkg.KindAccountNotFound:
		return http.StatusNotFound
	case errorspkg.KindDuplicateAccountNumber, errorspkg.KindConcurrencyConflict:
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}

// BindError turns a request binding error into a response with a readable message.
func BindError(err error) Response {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		field := ve[0]
		return Response{Error: field.Field() + GetErrorMsg(field)}
	}

	return Response{Error: err.Error()}
}

// GetErrorMsg returns a message suffix describing the failed validation tag.
func GetErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return " field is required"
	case "uuid":
		return " must be a valid uuid"
	case "amount":
		return " must be a positive decimal amount"
	case "nonnegative_amount":
		return " must be a non-negative decimal amount"
	case "accountnumber":
		return " must be a country code followed by 14 digits"
	case "min":
		return " must be at least " + fe.Param()
	case "max":
		return " must be at most " + fe.Param()
	}

	return " is invalid"
}
