// Package transactionrepo manages repository layer of the append-only transaction log.
package transactionrepo

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dbpkg"
	"github.com/go-petr/pet-ledger/pkg/errorspkg"
)

// RepoPGS facilitates transaction repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns transaction RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{db: db}
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (domain.Transaction, error) {
	var (
		t            domain.Transaction
		counterparty sql.NullString
	)

	err := row.Scan(
		&t.ID,
		&t.Type,
		&t.Amount,
		&t.AccountNumber,
		&counterparty,
		&t.ResultingBalance,
		&t.CreatedAt,
	)

	t.CounterpartyAccountNumber = counterparty.String

	return t, err
}

const appendQuery = `
INSERT INTO
    transactions (id, type, amount, account_number, counterparty_account_number, resulting_balance, created_at)
VALUES
    ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, type, amount, account_number, counterparty_account_number, resulting_balance, created_at
`

// Append stores the transaction record. Stored records are never changed.
func (r *RepoPGS) Append(ctx context.Context, t domain.Transaction) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	counterparty := sql.NullString{
		String: t.CounterpartyAccountNumber,
		Valid:  t.CounterpartyAccountNumber != "",
	}

	row := r.db.QueryRowContext(ctx, appendQuery,
		t.ID,
		string(t.Type),
		t.Amount,
		t.AccountNumber,
		counterparty,
		t.ResultingBalance,
		t.CreatedAt,
	)

	got, err := scanTransaction(row)
	if err != nil {
		l.Error().Err(err).Msgf("Append(ctx context.Context, %+v)", t)

		switch dbpkg.Constraint(err) {
		case "transactions_type_check":
			return domain.Transaction{}, domain.ErrInvalidTransactionType
		case "transactions_amount_check":
			return domain.Transaction{}, domain.ErrInvalidAmount
		case "transactions_account_number_fkey", "transactions_counterparty_account_number_fkey":
			return domain.Transaction{}, domain.ErrAccountNotFound
		}

		if dbpkg.IsRetryable(err) {
			return domain.Transaction{}, domain.ErrConcurrencyConflict
		}

		return domain.Transaction{}, errorspkg.ErrInternal
	}

	return got, nil
}

const listByAccountQuery = `
SELECT
	id, type, amount, account_number, counterparty_account_number, resulting_balance, created_at
FROM transactions
WHERE account_number = $1
ORDER BY created_at DESC, id
`

// ListByAccount returns the account's transactions, newest first.
func (r *RepoPGS) ListByAccount(ctx context.Context, accountNumber string) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listByAccountQuery, accountNumber)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Transaction{}

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, t)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}
