// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const accountColumns = `id, account_number, user_id, owner_name, balance, version, created_at`

func scanAccount(row *sql.Row) (domain.Account, error) {
	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.AccountNumber,
		&a.UserID,
		&a.OwnerName,
		&a.Balance,
		&a.Version,
		&a.CreatedAt,
	)

	return a, err
}

const createQuery = `
INSERT INTO
    accounts (id, account_number, user_id, owner_name)
VALUES
    ($1, $2, $3, $4)
RETURNING ` + accountColumns

// Create stores the account with zero balance and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateAccountParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, uuid.New(), arg.AccountNumber, arg.UserID, arg.OwnerName)

	a, err := scanAccount(row)
	if err != nil {
		if dbpkg.Code(err) == dbpkg.CodeUniqueViolation &&
			dbpkg.Constraint(err) == "accounts_account_number_key" {
			l.Info().Err(err).Str("account_number", arg.AccountNumber).Send()
			return domain.Account{}, domain.ErrDuplicateAccountNumber
		}

		l.Error().Err(err).Send()

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

const getQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE account_number = $1
`

// Get returns the account with the given account number.
func (r *RepoPGS) Get(ctx context.Context, accountNumber string) (domain.Account, error) {
	return r.getOne(ctx, getQuery, accountNumber)
}

const getByIDQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1
`

// GetByID returns the account with the given id.
func (r *RepoPGS) GetByID(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return r.getOne(ctx, getByIDQuery, id)
}

const getByUserIDQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE user_id = $1
ORDER BY created_at, id
LIMIT 1
`

// GetByUserID returns the first account opened by the user.
func (r *RepoPGS) GetByUserID(ctx context.Context, userID uuid.UUID) (domain.Account, error) {
	return r.getOne(ctx, getByUserIDQuery, userID)
}

const getForUpdateQuery = `
SELECT ` + accountColumns + `
FROM accounts
WHERE id = $1
FOR UPDATE
`

// GetForUpdate returns the account and locks its row until the surrounding transaction ends.
func (r *RepoPGS) GetForUpdate(ctx context.Context, id uuid.UUID) (domain.Account, error) {
	return r.getOne(ctx, getForUpdateQuery, id)
}

func (r *RepoPGS) getOne(ctx context.Context, query string, arg interface{}) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Account{}, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		if dbpkg.IsRetryable(err) {
			return domain.Account{}, domain.ErrConcurrencyConflict
		}

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}

const updateBalanceQuery = `
UPDATE accounts
SET balance = $1, version = version + 1
WHERE id = $2 AND version = $3
RETURNING ` + accountColumns

// UpdateBalance sets the account balance if its version still equals version.
//
// A moved version is reported as domain.ErrConcurrencyConflict and a negative
// balance as domain.ErrInsufficientFunds.
func (r *RepoPGS) UpdateBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal, version int64) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	a, err := scanAccount(r.db.QueryRowContext(ctx, updateBalanceQuery, balance, id, version))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			l.Info().Stringer("account_id", id).Int64("version", version).Msg("stale account version")
			return domain.Account{}, domain.ErrConcurrencyConflict
		case dbpkg.Constraint(err) == "accounts_balance_check":
			l.Info().Err(err).Send()
			return domain.Account{}, domain.ErrInsufficientFunds
		case dbpkg.IsRetryable(err):
			l.Info().Err(err).Send()
			return domain.Account{}, domain.ErrConcurrencyConflict
		}

		l.Error().Err(err).Send()

		return domain.Account{}, errorspkg.ErrInternal
	}

	return a, nil
}
