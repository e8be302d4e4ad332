package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

var (
	// ErrInvalidAmount indicates missing, zero or negative amount.
	ErrInvalidAmount = errorspkg.NewKind(errorspkg.KindInvalidAmount, "amount must be greater than zero")
	// ErrSameAccount indicates a transfer whose sender and recipient are the same account.
	ErrSameAccount = errorspkg.New(errorspkg.KindInvalidAmount, "sender and recipient accounts must differ")
	// ErrInsufficientFunds indicates that the account balance does not cover the amount.
	ErrInsufficientFunds = errorspkg.NewKind(errorspkg.KindInsufficientFunds, "insufficient funds")
	// ErrConcurrencyConflict indicates that a concurrent operation changed the account first.
	ErrConcurrencyConflict = errorspkg.NewKind(errorspkg.KindConcurrencyConflict, "concurrent update conflict")
	// ErrInvalidTransactionType indicates a transaction type outside of the known set.
	ErrInvalidTransactionType = errorspkg.New(errorspkg.KindStorage, "invalid transaction type")
)

// TransactionType tags a transaction record.
type TransactionType string

// The closed set of transaction types.
const (
	TransactionDeposit     TransactionType = "DEPOSIT"
	TransactionWithdraw    TransactionType = "WITHDRAW"
	TransactionTransferOut TransactionType = "TRANSFER_OUT"
	TransactionTransferIn  TransactionType = "TRANSFER_IN"
)

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionDeposit, TransactionWithdraw, TransactionTransferOut, TransactionTransferIn:
		return true
	}

	return false
}

// IsTransfer reports whether t is one side of a transfer.
func (t TransactionType) IsTransfer() bool {
	return t == TransactionTransferOut || t == TransactionTransferIn
}

// Transaction is an immutable audit record of one balance change.
type Transaction struct {
	ID                        uuid.UUID       `json:"id"`
	Type                      TransactionType `json:"type"`
	Amount                    decimal.Decimal `json:"amount"` // always positive
	AccountNumber             string          `json:"account_number"`
	CounterpartyAccountNumber string          `json:"counterparty_account_number,omitempty"`
	ResultingBalance          decimal.Decimal `json:"resulting_balance"`
	CreatedAt                 time.Time       `json:"created_at"`
}

// LedgerTx is the set of storage operations available inside one ledger unit of work.
//
// Everything written through a LedgerTx becomes visible atomically when the
// unit of work commits, or not at all.
type LedgerTx interface {
	Create(ctx context.Context, arg CreateAccountParams) (Account, error)
	GetForUpdate(ctx context.Context, id uuid.UUID) (Account, error)
	UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, version int64) (Account, error)
	AppendTransaction(ctx context.Context, t Transaction) (Transaction, error)
}
