// Package domain provides defenitions of all entities.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

var (
	// ErrAccountNotFound indicates that the account is not found.
	ErrAccountNotFound = errorspkg.NewKind(errorspkg.KindAccountNotFound, "account not found")
	// ErrSenderNotFound indicates that the sending side of a transfer is not found.
	ErrSenderNotFound = errorspkg.New(errorspkg.KindAccountNotFound, "sender account not found")
	// ErrRecipientNotFound indicates that the receiving side of a transfer is not found.
	ErrRecipientNotFound = errorspkg.New(errorspkg.KindAccountNotFound, "recipient account not found")
	// ErrDuplicateAccountNumber indicates that the account number is already assigned.
	ErrDuplicateAccountNumber = errorspkg.NewKind(errorspkg.KindDuplicateAccountNumber, "account number already exists")
	// ErrAccountOwnerMismatch indicates that the account does not belong to the caller.
	ErrAccountOwnerMismatch = errorspkg.New(errorspkg.KindAccountNotFound, "account doesn't belong to the user")
)

// Account holds the balance of a single customer account.
//
// Balance is mutated only by the ledger. Version is bumped on every balance
// change and guards compare-and-swap updates.
type Account struct {
	ID            uuid.UUID       `json:"id"`
	AccountNumber string          `json:"account_number"`
	UserID        uuid.UUID       `json:"user_id"`
	OwnerName     string          `json:"owner_name"`
	Balance       decimal.Decimal `json:"balance"`
	Version       int64           `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
}

// CreateAccountParams is the input data to store a new account.
type CreateAccountParams struct {
	AccountNumber string
	UserID        uuid.UUID
	OwnerName     string
}

// OpenAccountParams is the input data to open an account for a user.
type OpenAccountParams struct {
	UserID         uuid.UUID
	OwnerName      string
	InitialDeposit decimal.Decimal
}
