package web

import (
	"errors"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/go-petr/pet-ledger/pkg/accnumpkg"
	"github.com/go-petr/pet-ledger/pkg/moneypkg"
)

// ErrValidatorEngine indicates that gin is not using go-playground/validator.
var ErrValidatorEngine = errors.New("unexpected binding validator engine")

// RegisterValidators registers the custom binding tags used by request structs.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return ErrValidatorEngine
	}

	validations := map[string]validator.Func{
		"amount":             moneypkg.ValidAmount,
		"nonnegative_amount": moneypkg.ValidNonNegativeAmount,
		"accountnumber":      accnumpkg.ValidAccountNumber,
	}

	for tag, fn := range validations {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return err
		}
	}

	return nil
}
